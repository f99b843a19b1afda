package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"sistema-notas/backend/internal/dto"
	"sistema-notas/backend/internal/service"
	"sistema-notas/backend/pkg/response"
)

// CourseHandler 班级、科目、开课与注册 HTTP 处理器
type CourseHandler struct {
	courseSvc service.CourseService
}

// NewCourseHandler 创建 CourseHandler
func NewCourseHandler(courseSvc service.CourseService) *CourseHandler {
	return &CourseHandler{courseSvc: courseSvc}
}

// ────────────────────── Course ──────────────────────

// CreateCourse 创建班级
// POST /api/v1/courses
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	var req dto.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	course, err := h.courseSvc.CreateCourse(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.Created(c, course)
}

// ListCourses 班级列表，term_id 为空时取当前学年
// GET /api/v1/courses?term_id=xxx
func (h *CourseHandler) ListCourses(c *gin.Context) {
	courses, err := h.courseSvc.ListCourses(c.Request.Context(), c.Query("term_id"))
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OK(c, gin.H{"list": courses})
}

// GetCourse 班级详情
// GET /api/v1/courses/:id
func (h *CourseHandler) GetCourse(c *gin.Context) {
	course, err := h.courseSvc.GetCourse(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OK(c, course)
}

// DeleteCourse 删除班级（无注册学生、无开课时才允许）
// DELETE /api/v1/courses/:id
func (h *CourseHandler) DeleteCourse(c *gin.Context) {
	if err := h.courseSvc.DeleteCourse(c.Request.Context(), c.Param("id")); err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OK(c, nil)
}

// ListStudents 班级当前注册学生
// GET /api/v1/courses/:id/students
func (h *CourseHandler) ListStudents(c *gin.Context) {
	students, err := h.courseSvc.ListStudents(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OK(c, gin.H{"list": students})
}

// ────────────────────── Enrollment ──────────────────────

// Enroll 学生注册到班级，原有效注册自动停用
// POST /api/v1/courses/:id/enrollments
func (h *CourseHandler) Enroll(c *gin.Context) {
	var req dto.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	enrollment, err := h.courseSvc.Enroll(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.Created(c, enrollment)
}

// Withdraw 停用注册
// DELETE /api/v1/enrollments/:id
func (h *CourseHandler) Withdraw(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.courseSvc.Withdraw(c.Request.Context(), c.Param("id"), callerID); err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OK(c, nil)
}

// ────────────────────── Subject ──────────────────────

// CreateSubject 创建科目
// POST /api/v1/subjects
func (h *CourseHandler) CreateSubject(c *gin.Context) {
	var req dto.CreateSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	subject, err := h.courseSvc.CreateSubject(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.Created(c, subject)
}

// ListSubjects 科目列表
// GET /api/v1/subjects
func (h *CourseHandler) ListSubjects(c *gin.Context) {
	subjects, err := h.courseSvc.ListSubjects(c.Request.Context())
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OK(c, gin.H{"list": subjects})
}

// ────────────────────── Offering ──────────────────────

// CreateOffering 班级开设科目
// POST /api/v1/courses/:id/offerings
func (h *CourseHandler) CreateOffering(c *gin.Context) {
	var req dto.CreateOfferingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	offering, err := h.courseSvc.CreateOffering(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.Created(c, offering)
}

// ListOfferings 班级开课列表
// GET /api/v1/courses/:id/offerings
func (h *CourseHandler) ListOfferings(c *gin.Context) {
	offerings, err := h.courseSvc.ListOfferings(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OK(c, gin.H{"list": offerings})
}

// ListMyOfferings 教师本人任课的开课；管理员与校领导返回全部
// GET /api/v1/offerings/mine
func (h *CourseHandler) ListMyOfferings(c *gin.Context) {
	identity, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	offerings, err := h.courseSvc.ListMyOfferings(c.Request.Context(), identity)
	if err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OK(c, gin.H{"list": offerings})
}

// AssignTeacher 指定或取消任课教师
// PUT /api/v1/offerings/:id/teacher
func (h *CourseHandler) AssignTeacher(c *gin.Context) {
	var req dto.AssignTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.courseSvc.AssignTeacher(c.Request.Context(), c.Param("id"), &req, callerID); err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OK(c, nil)
}

// SetSubgroupMembers 整体替换分组开课成员
// PUT /api/v1/offerings/:id/subgroups
func (h *CourseHandler) SetSubgroupMembers(c *gin.Context) {
	var req dto.SetSubgroupMembersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	identity, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	if err := h.courseSvc.SetSubgroupMembers(c.Request.Context(), identity, c.Param("id"), &req); err != nil {
		h.handleCourseError(c, err)
		return
	}

	response.OK(c, nil)
}

// handleCourseError 统一处理班级模块业务错误
func (h *CourseHandler) handleCourseError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCourseNotFound):
		response.NotFound(c, 13001, "班级不存在")
	case errors.Is(err, service.ErrCourseHasEnrollments):
		response.Conflict(c, 13002, "班级下仍有注册学生，无法删除")
	case errors.Is(err, service.ErrCourseHasOfferings):
		response.Conflict(c, 13003, "班级下仍有开课科目，无法删除")
	case errors.Is(err, service.ErrSubjectNotFound):
		response.NotFound(c, 13004, "科目不存在")
	case errors.Is(err, service.ErrOfferingDuplicate):
		response.Conflict(c, 13006, "该班级已开设此科目")
	case errors.Is(err, service.ErrOfferingNoSubgroups):
		response.BadRequest(c, 13008, "该开课未启用分组名单")
	case errors.Is(err, service.ErrTeacherInvalid):
		response.BadRequest(c, 13009, "指定的教师不存在")
	case errors.Is(err, service.ErrSubjectCodeDuplicate):
		response.Conflict(c, 13010, "科目代码已存在")
	case errors.Is(err, service.ErrEnrollmentNotFound):
		response.NotFound(c, 13011, "注册记录不存在")
	case errors.Is(err, service.ErrEnrollmentInvalidReference):
		response.BadRequest(c, 13012, "学生不存在或不是学生账号")
	default:
		if !handleCommonError(c, err) {
			response.InternalError(c)
		}
	}
}
