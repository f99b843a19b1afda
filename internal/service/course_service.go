package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"sistema-notas/backend/internal/dto"
	"sistema-notas/backend/internal/model"
	"sistema-notas/backend/internal/repository"
	pkgerrors "sistema-notas/backend/pkg/errors"
)

// ── 班级 / 开课模块业务错误 ──

var (
	ErrCourseNotFound             = errors.New("班级不存在")
	ErrCourseHasEnrollments       = errors.New("班级下仍有注册学生，无法删除")
	ErrCourseHasOfferings         = errors.New("班级下仍有开课科目，无法删除")
	ErrSubjectNotFound            = errors.New("科目不存在")
	ErrSubjectCodeDuplicate       = errors.New("科目代码已存在")
	ErrOfferingNotFound           = errors.New("开课不存在")
	ErrOfferingDuplicate          = errors.New("该班级已开设此科目")
	ErrOfferingForbidden          = errors.New("无权操作该开课")
	ErrOfferingNoSubgroups        = errors.New("该开课未启用分组名单")
	ErrTeacherInvalid             = errors.New("指定的教师不存在")
	ErrEnrollmentNotFound         = errors.New("注册记录不存在")
	ErrEnrollmentInvalidReference = errors.New("学生不存在或不是学生账号")
)

// CourseService 班级、科目、开课与注册业务接口
type CourseService interface {
	CreateCourse(ctx context.Context, req *dto.CreateCourseRequest, callerID string) (*dto.CourseResponse, error)
	GetCourse(ctx context.Context, id string) (*dto.CourseResponse, error)
	ListCourses(ctx context.Context, termID string) ([]dto.CourseResponse, error)
	DeleteCourse(ctx context.Context, id string) error

	CreateSubject(ctx context.Context, req *dto.CreateSubjectRequest, callerID string) (*dto.SubjectResponse, error)
	ListSubjects(ctx context.Context) ([]dto.SubjectResponse, error)

	CreateOffering(ctx context.Context, courseID string, req *dto.CreateOfferingRequest, callerID string) (*dto.OfferingResponse, error)
	ListOfferings(ctx context.Context, courseID string) ([]dto.OfferingResponse, error)
	ListMyOfferings(ctx context.Context, identity Identity) ([]dto.OfferingResponse, error)
	AssignTeacher(ctx context.Context, offeringID string, req *dto.AssignTeacherRequest, callerID string) error
	SetSubgroupMembers(ctx context.Context, identity Identity, offeringID string, req *dto.SetSubgroupMembersRequest) error

	Enroll(ctx context.Context, courseID string, req *dto.EnrollRequest, callerID string) (*dto.EnrollmentResponse, error)
	Withdraw(ctx context.Context, enrollmentID string, callerID string) error
	ListStudents(ctx context.Context, courseID string) ([]dto.UserResponse, error)
}

type courseService struct {
	repo   *repository.Repository
	terms  termResolver
	logger *zap.Logger
}

// NewCourseService 创建 CourseService 实例
func NewCourseService(repo *repository.Repository, logger *zap.Logger) CourseService {
	return &courseService{
		repo:   repo,
		terms:  termResolver{repo: repo, now: time.Now},
		logger: logger,
	}
}

// ────────────────────── Course ──────────────────────

func (s *courseService) CreateCourse(ctx context.Context, req *dto.CreateCourseRequest, callerID string) (*dto.CourseResponse, error) {
	term, err := s.terms.resolve(ctx, req.TermID)
	if err != nil {
		return nil, err
	}

	course := &model.Course{
		Name:       req.Name,
		GradeLevel: req.GradeLevel,
		TermID:     term.TermID,
	}
	course.CreatedBy = &callerID
	course.UpdatedBy = &callerID

	if err := s.repo.Course.Create(ctx, course); err != nil {
		s.logger.Error("创建班级失败", zap.String("name", req.Name), zap.Error(err))
		return nil, pkgerrors.Store("创建班级", err)
	}
	return toCourseResponse(course), nil
}

func (s *courseService) GetCourse(ctx context.Context, id string) (*dto.CourseResponse, error) {
	course, err := s.getCourse(ctx, id)
	if err != nil {
		return nil, err
	}
	return toCourseResponse(course), nil
}

func (s *courseService) ListCourses(ctx context.Context, termID string) ([]dto.CourseResponse, error) {
	courses, err := s.repo.Course.List(ctx, termID)
	if err != nil {
		s.logger.Error("列出班级失败", zap.Error(err))
		return nil, pkgerrors.Store("列出班级", err)
	}

	result := make([]dto.CourseResponse, 0, len(courses))
	for i := range courses {
		result = append(result, *toCourseResponse(&courses[i]))
	}
	return result, nil
}

// DeleteCourse 仅在没有注册记录和开课时允许删除
func (s *courseService) DeleteCourse(ctx context.Context, id string) error {
	if _, err := s.getCourse(ctx, id); err != nil {
		return err
	}

	enrollments, err := s.repo.Enrollment.CountByCourse(ctx, id)
	if err != nil {
		s.logger.Error("统计班级注册失败", zap.String("course_id", id), zap.Error(err))
		return pkgerrors.Store("统计班级注册", err)
	}
	if enrollments > 0 {
		return ErrCourseHasEnrollments
	}

	offerings, err := s.repo.Offering.CountByCourse(ctx, id)
	if err != nil {
		s.logger.Error("统计班级开课失败", zap.String("course_id", id), zap.Error(err))
		return pkgerrors.Store("统计班级开课", err)
	}
	if offerings > 0 {
		return ErrCourseHasOfferings
	}

	if err := s.repo.Course.Delete(ctx, id); err != nil {
		if repository.IsForeignKeyViolation(err) {
			// 检查与删除之间有并发写入
			return courseDeleteConflict(err)
		}
		s.logger.Error("删除班级失败", zap.String("course_id", id), zap.Error(err))
		return pkgerrors.Store("删除班级", err)
	}
	return nil
}

// courseDeleteConflict 按约束名区分阻止删除的是开课还是注册
// SQLite 不报告约束名，统一视为注册
func courseDeleteConflict(err error) error {
	if strings.HasPrefix(repository.ConstraintName(err), "subject_offerings_") {
		return ErrCourseHasOfferings
	}
	return ErrCourseHasEnrollments
}

// ────────────────────── Subject ──────────────────────

func (s *courseService) CreateSubject(ctx context.Context, req *dto.CreateSubjectRequest, callerID string) (*dto.SubjectResponse, error) {
	subject := &model.Subject{Name: req.Name, Code: req.Code}
	subject.CreatedBy = &callerID
	subject.UpdatedBy = &callerID

	if err := s.repo.Subject.Create(ctx, subject); err != nil {
		if repository.IsDuplicateKey(err) {
			return nil, ErrSubjectCodeDuplicate
		}
		s.logger.Error("创建科目失败", zap.String("code", req.Code), zap.Error(err))
		return nil, pkgerrors.Store("创建科目", err)
	}
	return &dto.SubjectResponse{ID: subject.SubjectID, Name: subject.Name, Code: subject.Code}, nil
}

func (s *courseService) ListSubjects(ctx context.Context) ([]dto.SubjectResponse, error) {
	subjects, err := s.repo.Subject.List(ctx)
	if err != nil {
		s.logger.Error("列出科目失败", zap.Error(err))
		return nil, pkgerrors.Store("列出科目", err)
	}

	result := make([]dto.SubjectResponse, 0, len(subjects))
	for _, sub := range subjects {
		result = append(result, dto.SubjectResponse{ID: sub.SubjectID, Name: sub.Name, Code: sub.Code})
	}
	return result, nil
}

// ────────────────────── Offering ──────────────────────

func (s *courseService) CreateOffering(ctx context.Context, courseID string, req *dto.CreateOfferingRequest, callerID string) (*dto.OfferingResponse, error) {
	course, err := s.getCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	subject, err := s.repo.Subject.GetByID(ctx, req.SubjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubjectNotFound
		}
		return nil, pkgerrors.Store("查询科目", err)
	}

	if req.TeacherID != nil {
		if err := s.checkTeacher(ctx, *req.TeacherID); err != nil {
			return nil, err
		}
	}

	offering := &model.SubjectOffering{
		SubjectID:         subject.SubjectID,
		CourseID:          course.CourseID,
		TeacherID:         req.TeacherID,
		RequiresSubgroups: req.RequiresSubgroups,
	}
	offering.CreatedBy = &callerID
	offering.UpdatedBy = &callerID

	if err := s.repo.Offering.Create(ctx, offering); err != nil {
		if repository.IsDuplicateKey(err) {
			return nil, ErrOfferingDuplicate
		}
		s.logger.Error("创建开课失败",
			zap.String("course_id", courseID),
			zap.String("subject_id", req.SubjectID),
			zap.Error(err),
		)
		return nil, pkgerrors.Store("创建开课", err)
	}

	offering.Subject = subject
	offering.Course = course
	return toOfferingResponse(offering), nil
}

func (s *courseService) ListOfferings(ctx context.Context, courseID string) ([]dto.OfferingResponse, error) {
	if _, err := s.getCourse(ctx, courseID); err != nil {
		return nil, err
	}

	offerings, err := s.repo.Offering.ListByCourse(ctx, courseID)
	if err != nil {
		s.logger.Error("列出开课失败", zap.String("course_id", courseID), zap.Error(err))
		return nil, pkgerrors.Store("列出开课", err)
	}

	result := make([]dto.OfferingResponse, 0, len(offerings))
	for i := range offerings {
		result = append(result, *toOfferingResponse(&offerings[i]))
	}
	return result, nil
}

// ListMyOfferings 教师查看自己任课的开课
func (s *courseService) ListMyOfferings(ctx context.Context, identity Identity) ([]dto.OfferingResponse, error) {
	offerings, err := s.repo.Offering.ListByTeacher(ctx, identity.UserID)
	if err != nil {
		s.logger.Error("列出任课开课失败", zap.String("teacher_id", identity.UserID), zap.Error(err))
		return nil, pkgerrors.Store("列出任课开课", err)
	}

	result := make([]dto.OfferingResponse, 0, len(offerings))
	for i := range offerings {
		result = append(result, *toOfferingResponse(&offerings[i]))
	}
	return result, nil
}

func (s *courseService) AssignTeacher(ctx context.Context, offeringID string, req *dto.AssignTeacherRequest, callerID string) error {
	if _, err := s.getOffering(ctx, offeringID); err != nil {
		return err
	}
	if req.TeacherID != nil {
		if err := s.checkTeacher(ctx, *req.TeacherID); err != nil {
			return err
		}
	}

	if err := s.repo.Offering.SetTeacher(ctx, offeringID, req.TeacherID, callerID); err != nil {
		s.logger.Error("指派教师失败", zap.String("offering_id", offeringID), zap.Error(err))
		return pkgerrors.Store("指派教师", err)
	}
	return nil
}

// SetSubgroupMembers 整体替换分组开课的成员：先全部停用，再按请求写入
func (s *courseService) SetSubgroupMembers(ctx context.Context, identity Identity, offeringID string, req *dto.SetSubgroupMembersRequest) error {
	offering, err := s.getOffering(ctx, offeringID)
	if err != nil {
		return err
	}
	if !identity.CanManageOffering(offering) {
		return ErrOfferingForbidden
	}
	if !offering.RequiresSubgroups {
		return ErrOfferingNoSubgroups
	}

	term, err := s.terms.resolve(ctx, req.TermID)
	if err != nil {
		return err
	}

	ops := []repository.TxOp{
		func(ctx context.Context, tx *repository.Repository) error {
			return tx.OfferingStudent.DeactivateAll(ctx, offeringID, term.TermID, identity.UserID)
		},
	}
	for _, m := range req.Members {
		member := &model.OfferingStudent{
			OfferingID: offeringID,
			StudentID:  m.StudentID,
			TermID:     term.TermID,
			Subgroup:   m.Subgroup,
			IsActive:   true,
		}
		member.CreatedBy = identity.actorPtr()
		member.UpdatedBy = identity.actorPtr()
		ops = append(ops, func(ctx context.Context, tx *repository.Repository) error {
			return tx.OfferingStudent.Upsert(ctx, member)
		})
	}

	if err := s.repo.Atomic(ctx, ops...); err != nil {
		if repository.IsForeignKeyViolation(err) {
			return ErrEnrollmentInvalidReference
		}
		s.logger.Error("更新分组名单失败", zap.String("offering_id", offeringID), zap.Error(err))
		return pkgerrors.Store("更新分组名单", err)
	}
	return nil
}

// ────────────────────── Enrollment ──────────────────────

// Enroll 注册学生到班级；已有 active 注册时在同一事务内先停用旧记录（转班）
func (s *courseService) Enroll(ctx context.Context, courseID string, req *dto.EnrollRequest, callerID string) (*dto.EnrollmentResponse, error) {
	course, err := s.getCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	student, err := s.repo.User.GetByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEnrollmentInvalidReference
		}
		return nil, pkgerrors.Store("查询学生", err)
	}
	if student.Role != model.RoleStudent {
		return nil, ErrEnrollmentInvalidReference
	}

	enrollment := &model.Enrollment{
		StudentID:  student.UserID,
		CourseID:   course.CourseID,
		Status:     model.EnrollmentActive,
		EnrolledAt: time.Now(),
	}
	enrollment.CreatedBy = &callerID
	enrollment.UpdatedBy = &callerID

	err = s.repo.Atomic(ctx,
		func(ctx context.Context, tx *repository.Repository) error {
			return tx.Enrollment.DeactivateByStudent(ctx, student.UserID, callerID)
		},
		func(ctx context.Context, tx *repository.Repository) error {
			return tx.Enrollment.Create(ctx, enrollment)
		},
	)
	if err != nil {
		s.logger.Error("注册学生失败",
			zap.String("student_id", req.StudentID),
			zap.String("course_id", courseID),
			zap.Error(err),
		)
		return nil, pkgerrors.Store("注册学生", err)
	}

	s.logger.Info("学生已注册",
		zap.String("student_id", student.UserID),
		zap.String("course", course.Name),
		zap.String("by", callerID),
	)
	return toEnrollmentResponse(enrollment), nil
}

func (s *courseService) Withdraw(ctx context.Context, enrollmentID string, callerID string) error {
	enrollment, err := s.repo.Enrollment.GetByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEnrollmentNotFound
		}
		return pkgerrors.Store("查询注册", err)
	}
	if enrollment.Status == model.EnrollmentInactive {
		return nil
	}

	if err := s.repo.Enrollment.SetStatus(ctx, enrollmentID, model.EnrollmentInactive, callerID); err != nil {
		s.logger.Error("停用注册失败", zap.String("enrollment_id", enrollmentID), zap.Error(err))
		return pkgerrors.Store("停用注册", err)
	}
	return nil
}

func (s *courseService) ListStudents(ctx context.Context, courseID string) ([]dto.UserResponse, error) {
	if _, err := s.getCourse(ctx, courseID); err != nil {
		return nil, err
	}

	rows, err := s.repo.Enrollment.ListActiveStudents(ctx, courseID)
	if err != nil {
		s.logger.Error("列出班级学生失败", zap.String("course_id", courseID), zap.Error(err))
		return nil, pkgerrors.Store("列出班级学生", err)
	}

	sortRows(rows)
	result := make([]dto.UserResponse, 0, len(rows))
	for _, r := range rows {
		result = append(result, dto.UserResponse{
			ID:         r.StudentID,
			Name:       r.Name,
			Surname:    r.Surname,
			NationalID: r.NationalID,
			Role:       model.RoleStudent,
		})
	}
	return result, nil
}

// ── 内部辅助方法 ──

func (s *courseService) getCourse(ctx context.Context, id string) (*model.Course, error) {
	course, err := s.repo.Course.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		s.logger.Error("查询班级失败", zap.String("id", id), zap.Error(err))
		return nil, pkgerrors.Store("查询班级", err)
	}
	return course, nil
}

func (s *courseService) getOffering(ctx context.Context, id string) (*model.SubjectOffering, error) {
	offering, err := s.repo.Offering.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOfferingNotFound
		}
		s.logger.Error("查询开课失败", zap.String("id", id), zap.Error(err))
		return nil, pkgerrors.Store("查询开课", err)
	}
	return offering, nil
}

func (s *courseService) checkTeacher(ctx context.Context, teacherID string) error {
	teacher, err := s.repo.User.GetByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTeacherInvalid
		}
		return pkgerrors.Store("查询教师", err)
	}
	if teacher.Role != model.RoleTeacher {
		return ErrTeacherInvalid
	}
	return nil
}

func toCourseResponse(course *model.Course) *dto.CourseResponse {
	return &dto.CourseResponse{
		ID:         course.CourseID,
		Name:       course.Name,
		GradeLevel: course.GradeLevel,
		TermID:     course.TermID,
	}
}

func toOfferingResponse(o *model.SubjectOffering) *dto.OfferingResponse {
	resp := &dto.OfferingResponse{
		ID:                o.OfferingID,
		SubjectID:         o.SubjectID,
		SubjectName:       o.DisplayName(),
		CourseID:          o.CourseID,
		RequiresSubgroups: o.RequiresSubgroups,
	}
	if o.Course != nil {
		resp.CourseName = o.Course.Name
		resp.GradeLevel = o.Course.GradeLevel
	}
	if o.TeacherID != nil {
		resp.TeacherID = *o.TeacherID
	}
	if o.Teacher != nil {
		resp.TeacherName = o.Teacher.Surname + ", " + o.Teacher.Name
	}
	return resp
}

func toEnrollmentResponse(e *model.Enrollment) *dto.EnrollmentResponse {
	return &dto.EnrollmentResponse{
		ID:         e.EnrollmentID,
		StudentID:  e.StudentID,
		CourseID:   e.CourseID,
		Status:     e.Status,
		EnrolledAt: e.EnrolledAt.Format(dateLayout),
	}
}
