package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"nucleo-coop/backend/internal/dto"
	"nucleo-coop/backend/internal/service"
	pkgerrors "nucleo-coop/backend/pkg/errors"
	"nucleo-coop/backend/pkg/response"
)

// ElectionHandler 选举模块 HTTP 处理器
type ElectionHandler struct {
	electionSvc service.ElectionService
}

// NewElectionHandler 创建 ElectionHandler
func NewElectionHandler(electionSvc service.ElectionService) *ElectionHandler {
	return &ElectionHandler{electionSvc: electionSvc}
}

// ListElections 获取选举列表
// GET /api/v1/elections?class_id=&status=
func (h *ElectionHandler) ListElections(c *gin.Context) {
	var req dto.ListElectionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	elections, err := h.electionSvc.List(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": elections})
}

// GetElection 获取选举详情
// GET /api/v1/elections/:id
func (h *ElectionHandler) GetElection(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "选举ID不能为空")
		return
	}

	election, err := h.electionSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleElectionError(c, err)
		return
	}

	response.OK(c, election)
}

// CreateElection 创建选举
// POST /api/v1/elections
func (h *ElectionHandler) CreateElection(c *gin.Context) {
	var req dto.CreateElectionRequest
	if !BindJSON(c, &req) {
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	election, err := h.electionSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleElectionError(c, err)
		return
	}

	response.Created(c, election)
}

// UpdateElection 更新席位与时间窗口
// PUT /api/v1/elections/:id
func (h *ElectionHandler) UpdateElection(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "选举ID不能为空")
		return
	}

	var req dto.UpdateElectionRequest
	if !BindJSON(c, &req) {
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	election, err := h.electionSvc.Update(c.Request.Context(), id, &req, callerID)
	if err != nil {
		h.handleElectionError(c, err)
		return
	}

	response.OK(c, election)
}

// DeleteElection 删除选举
// DELETE /api/v1/elections/:id
func (h *ElectionHandler) DeleteElection(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "选举ID不能为空")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.electionSvc.Delete(c.Request.Context(), id, callerID); err != nil {
		h.handleElectionError(c, err)
		return
	}

	response.OK(c, nil)
}

// AdvanceStatus 推进到下一状态（voting → closed 请使用关闭接口）
// PUT /api/v1/elections/:id/status
func (h *ElectionHandler) AdvanceStatus(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "选举ID不能为空")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	election, err := h.electionSvc.AdvanceStatus(c.Request.Context(), id, nil, callerID)
	if err != nil {
		h.handleElectionError(c, err)
		return
	}

	response.OK(c, election)
}

// handleElectionError 统一处理选举模块业务错误
func (h *ElectionHandler) handleElectionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrElectionNotFound):
		response.NotFound(c, 20001, "选举不存在")
	case errors.Is(err, service.ErrElectionOverlap):
		response.Conflict(c, 20002, "该班级已有未结束的选举")
	case errors.Is(err, service.ErrElectionLocked):
		response.Conflict(c, 20003, "选举已进入竞选或投票阶段，不可修改或删除")
	case errors.Is(err, service.ErrElectionDateInvalid):
		response.BadRequest(c, 20004, "选举时间窗口无效")
	case errors.Is(err, service.ErrSeatsInvalid):
		response.BadRequest(c, 20005, "席位数无效")
	case errors.Is(err, service.ErrInvalidTransition):
		response.Conflict(c, 20006, "当前状态不允许该操作")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 10006, "数据已被修改，请刷新后重试")
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/election_handler.go
