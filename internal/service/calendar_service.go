package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"nucleo-coop/backend/internal/model"
	"nucleo-coop/backend/internal/repository"
)

// ErrCalendarEmpty 选举未配置任何完整的时间窗口
var ErrCalendarEmpty = errors.New("选举未配置时间窗口")

// CalendarService 选举日程导出（iCalendar）
type CalendarService interface {
	ExportCalendar(ctx context.Context, electionID string) (string, error)
}

type calendarService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewCalendarService 创建 CalendarService 实例
func NewCalendarService(repo *repository.Repository, logger *zap.Logger) CalendarService {
	return &calendarService{repo: repo, logger: logger}
}

// ExportCalendar 每个同时配置了开始与结束时间的窗口生成一个 VEVENT
func (s *calendarService) ExportCalendar(ctx context.Context, electionID string) (string, error) {
	if !isElectionID(electionID) {
		return "", ErrElectionNotFound
	}

	election, err := s.repo.Election.GetByID(ctx, electionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrElectionNotFound
		}
		s.logger.Error("查询选举失败", zap.String("election_id", electionID), zap.Error(err))
		return "", err
	}
	return buildElectionCalendar(election, time.Now().UTC())
}

func buildElectionCalendar(e *model.Election, stamp time.Time) (string, error) {
	windows := []struct {
		key   string
		label string
		start *time.Time
		end   *time.Time
	}{
		{"registration", "候选人报名", e.RegistrationStartsAt, e.RegistrationEndsAt},
		{"campaign", "竞选宣传", e.CampaignStartsAt, e.CampaignEndsAt},
		{"voting", "投票", e.VotingStartsAt, e.VotingEndsAt},
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//nucleo-eleicoes//elections//ZH")

	added := 0
	for _, w := range windows {
		if w.start == nil || w.end == nil {
			continue
		}
		summary := w.label
		if e.Title != "" {
			summary = fmt.Sprintf("%s · %s", e.Title, w.label)
		}

		event := cal.AddEvent(fmt.Sprintf("%s-%s@nucleo-eleicoes", e.ElectionID, w.key))
		event.SetDtStampTime(stamp)
		event.SetStartAt(w.start.UTC())
		event.SetEndAt(w.end.UTC())
		event.SetSummary(summary)
		event.SetDescription(fmt.Sprintf("班级 %s 委员会选举：%s", e.ClassID, w.label))
		added++
	}
	if added == 0 {
		return "", ErrCalendarEmpty
	}
	return cal.Serialize(), nil
}
