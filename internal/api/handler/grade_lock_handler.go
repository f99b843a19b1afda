package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"sistema-notas/backend/internal/dto"
	"sistema-notas/backend/internal/service"
	"sistema-notas/backend/pkg/response"
)

// GradeLockHandler 成绩锁定配置 HTTP 处理器
type GradeLockHandler struct {
	lockSvc service.GradeLockService
}

// NewGradeLockHandler 创建 GradeLockHandler
func NewGradeLockHandler(lockSvc service.GradeLockService) *GradeLockHandler {
	return &GradeLockHandler{lockSvc: lockSvc}
}

// GetGradeLock 学年成绩锁定配置，term_id 为 current 或空时取当前学年
// GET /api/v1/terms/:id/grade-lock
func (h *GradeLockHandler) GetGradeLock(c *gin.Context) {
	lock, err := h.lockSvc.Get(c.Request.Context(), termParam(c))
	if err != nil {
		h.handleGradeLockError(c, err)
		return
	}

	response.OK(c, lock)
}

// UpdateGradeLock 整体覆盖学年成绩锁定配置
// PUT /api/v1/terms/:id/grade-lock
func (h *GradeLockHandler) UpdateGradeLock(c *gin.Context) {
	var req dto.UpdateGradeLockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	identity, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	lock, err := h.lockSvc.Update(c.Request.Context(), identity, termParam(c), &req)
	if err != nil {
		h.handleGradeLockError(c, err)
		return
	}

	response.OK(c, lock)
}

func termParam(c *gin.Context) string {
	id := c.Param("id")
	if id == "current" {
		return ""
	}
	return id
}

func (h *GradeLockHandler) handleGradeLockError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrGradeLocksUnavailable):
		response.ServiceUnavailable(c, 16001, "成绩锁定功能未启用")
	default:
		if !handleCommonError(c, err) {
			response.InternalError(c)
		}
	}
}
