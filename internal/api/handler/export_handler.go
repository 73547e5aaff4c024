package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"nucleo-coop/backend/internal/service"
	"nucleo-coop/backend/pkg/response"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc   service.ExportService
	calendarSvc service.CalendarService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService, calendarSvc service.CalendarService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc, calendarSvc: calendarSvc}
}

// ExportResults 导出选举结果
// GET /api/v1/elections/:id/results/export
func (h *ExportHandler) ExportResults(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "选举ID不能为空")
		return
	}

	buf, filename, err := h.exportSvc.ExportResults(c.Request.Context(), id)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	// 设置下载响应头
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// ExportCalendar 导出选举日程
// GET /api/v1/elections/:id/calendar.ics
func (h *ExportHandler) ExportCalendar(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "选举ID不能为空")
		return
	}

	ics, err := h.calendarSvc.ExportCalendar(c.Request.Context(), id)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=election-%s.ics", id))
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(ics))
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrElectionNotFound):
		response.NotFound(c, 20001, "选举不存在")
	case errors.Is(err, service.ErrExportNotClosed):
		response.Conflict(c, 22006, "选举尚未关闭，无法导出结果")
	case errors.Is(err, service.ErrCalendarEmpty):
		response.NotFound(c, 20008, "选举未配置时间窗口")
	default:
		response.InternalError(c)
	}
}
