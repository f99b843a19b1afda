package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"sistema-notas/backend/internal/dto"
	"sistema-notas/backend/internal/service"
	"sistema-notas/backend/pkg/response"
)

// PendingHandler 待补科目 HTTP 处理器
// 登记与状态变更仅限管理员与校领导；补修评价由任课教师录入
type PendingHandler struct {
	pendingSvc service.PendingService
	gradeSvc   service.GradeService
}

// NewPendingHandler 创建 PendingHandler
func NewPendingHandler(pendingSvc service.PendingService, gradeSvc service.GradeService) *PendingHandler {
	return &PendingHandler{pendingSvc: pendingSvc, gradeSvc: gradeSvc}
}

// AssignPending 登记待补科目
// POST /api/v1/pending-subjects
func (h *PendingHandler) AssignPending(c *gin.Context) {
	var req dto.AssignPendingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	identity, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	pending, err := h.pendingSvc.Assign(c.Request.Context(), identity, &req)
	if err != nil {
		handlePendingError(c, err)
		return
	}

	response.Created(c, pending)
}

// ListPending 待补科目列表
// GET /api/v1/pending-subjects?term_id=&offering_id=&course_id=&student_id=&status=
func (h *PendingHandler) ListPending(c *gin.Context) {
	var req dto.PendingListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	identity, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	list, err := h.pendingSvc.List(c.Request.Context(), identity, &req)
	if err != nil {
		handlePendingError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

// GetPending 待补科目详情
// GET /api/v1/pending-subjects/:id
func (h *PendingHandler) GetPending(c *gin.Context) {
	identity, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	pending, err := h.pendingSvc.GetByID(c.Request.Context(), identity, c.Param("id"))
	if err != nil {
		handlePendingError(c, err)
		return
	}

	response.OK(c, pending)
}

// ChangeStatus 启用或停用待补科目
// PUT /api/v1/pending-subjects/:id/status
func (h *PendingHandler) ChangeStatus(c *gin.Context) {
	var req dto.ChangePendingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	identity, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	pending, err := h.pendingSvc.ChangeStatus(c.Request.Context(), identity, c.Param("id"), req.Status)
	if err != nil {
		handlePendingError(c, err)
		return
	}

	response.OK(c, pending)
}

// SavePendingGrades 批量保存补修评价
// POST /api/v1/pending-subjects/grades
func (h *PendingHandler) SavePendingGrades(c *gin.Context) {
	var req dto.SavePendingGradesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	identity, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	result, err := h.gradeSvc.SavePending(c.Request.Context(), identity, &req)
	if err != nil {
		handlePendingError(c, err)
		return
	}

	response.OK(c, result)
}

// handlePendingError 待补科目错误，其余交给成绩模块映射
func handlePendingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPendingNotFound):
		response.NotFound(c, 18001, "待补科目记录不存在")
	case errors.Is(err, service.ErrPendingDuplicate):
		response.Conflict(c, 18002, "该学生在此开课已有进行中的待补科目")
	case errors.Is(err, service.ErrPendingInvalidReference):
		response.BadRequest(c, 18003, "学生或开课无效")
	case errors.Is(err, service.ErrPendingYearInvalid):
		response.BadRequest(c, 18004, "原修读年份必须早于当前学年")
	case errors.Is(err, service.ErrPendingForbidden):
		response.Forbidden(c, 18005, "无权查看该待补科目")
	case errors.Is(err, service.ErrPendingUnavailable):
		response.ServiceUnavailable(c, 18006, "待补科目功能未启用")
	default:
		handleGradeError(c, err)
	}
}
