package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"nucleo-coop/backend/internal/dto"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNotClosed    = errors.New("选举尚未关闭，无法导出结果")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response。
// Excel 格式：概览 Sheet（投票率）+ 每个委员会一个 Sheet。
type ExportService interface {
	ExportResults(ctx context.Context, electionID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	tally  TallyService
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(tally TallyService, logger *zap.Logger) ExportService {
	return &exportService{tally: tally, logger: logger}
}

var councilSheetNames = map[string]string{
	"administration": "行政委员会",
	"fiscal":         "监事会",
	"ethics":         "道德委员会",
}

var outcomeLabels = map[string]string{
	"elected_effective": "当选（正式）",
	"elected_alternate": "当选（候补）",
	"not_elected":       "未当选",
}

func (s *exportService) ExportResults(ctx context.Context, electionID string) (*bytes.Buffer, string, error) {
	results, err := s.tally.Results(ctx, electionID, true)
	if err != nil {
		return nil, "", err
	}
	if !results.Final {
		return nil, "", ErrExportNotClosed
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 概览
	summary := "概览"
	idx, _ := f.NewSheet(summary)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")
	f.SetColWidth(summary, "A", "A", 18)
	f.SetColWidth(summary, "B", "B", 40)

	rows := [][]interface{}{
		{"选举", results.ElectionID},
		{"关闭时间", derefString(results.ClosedAt)},
		{"投票人数", results.Turnout.Voters},
		{"行政委员会投票人数", results.Turnout.Administration},
		{"监事会投票人数", results.Turnout.Fiscal},
		{"道德委员会投票人数", results.Turnout.Ethics},
	}
	for i, r := range rows {
		f.SetSheetRow(summary, cell("A", i+1), &r)
	}
	f.SetCellStyle(summary, "A1", cell("A", len(rows)), headerStyle)

	// 各委员会
	for _, council := range results.Councils {
		if err := writeCouncilSheet(f, &council, headerStyle); err != nil {
			s.logger.Error("写入委员会 Sheet 失败", zap.String("council", council.Council), zap.Error(err))
			return nil, "", ErrExportGenerateFail
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("选举结果_%s.xlsx", results.ElectionID)
	return buf, filename, nil
}

func writeCouncilSheet(f *excelize.File, council *dto.CouncilResultResponse, headerStyle int) error {
	sheet := councilSheetNames[council.Council]
	if sheet == "" {
		sheet = council.Council
	}
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	f.SetColWidth(sheet, "A", "A", 8)
	f.SetColWidth(sheet, "B", "B", 20)
	f.SetColWidth(sheet, "C", "C", 40)
	f.SetColWidth(sheet, "D", "D", 10)
	f.SetColWidth(sheet, "E", "E", 16)

	title := fmt.Sprintf("%s（席位 %d", sheet, council.Seats)
	if council.AlternateSeats > 0 {
		title += fmt.Sprintf("，候补 %d", council.AlternateSeats)
	}
	title += "）"
	if council.Withheld {
		title += "，平票待裁决，结果暂不公布"
	}
	f.SetCellValue(sheet, "A1", title)
	f.MergeCell(sheet, "A1", "E1")
	f.SetCellStyle(sheet, "A1", "A1", headerStyle)

	header := []interface{}{"名次", "候选人", "候选人 ID", "票数", "结果"}
	if err := f.SetSheetRow(sheet, "A2", &header); err != nil {
		return err
	}
	f.SetCellStyle(sheet, "A2", "E2", headerStyle)

	for i, c := range council.Candidates {
		row := []interface{}{"-", c.StudentName, c.ID, "-", "-"}
		if c.Position != nil {
			row[0] = *c.Position
		}
		if c.VoteTotal != nil {
			row[3] = *c.VoteTotal
		}
		if c.Outcome != nil {
			row[4] = outcomeLabels[*c.Outcome]
		}
		if err := f.SetSheetRow(sheet, cell("A", i+3), &row); err != nil {
			return err
		}
	}
	return nil
}

// ── 辅助函数 ──

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
