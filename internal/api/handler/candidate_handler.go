package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"nucleo-coop/backend/internal/service"
	"nucleo-coop/backend/pkg/response"
)

// CandidateHandler 候选人查询 HTTP 处理器
type CandidateHandler struct {
	candidateSvc service.CandidateService
}

// NewCandidateHandler 创建 CandidateHandler
func NewCandidateHandler(candidateSvc service.CandidateService) *CandidateHandler {
	return &CandidateHandler{candidateSvc: candidateSvc}
}

// ListCandidates 按委员会列出已审核候选人
// GET /api/v1/elections/:id/candidates?council=
func (h *CandidateHandler) ListCandidates(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "选举ID不能为空")
		return
	}

	list, err := h.candidateSvc.List(c.Request.Context(), id, c.Query("council"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCouncilInvalid):
			response.BadRequest(c, 20007, "委员会无效")
		case errors.Is(err, service.ErrElectionNotFound):
			response.NotFound(c, 20001, "选举不存在")
		default:
			response.InternalError(c)
		}
		return
	}

	response.OK(c, gin.H{"list": list})
}
