package repository

import (
	"context"

	"gorm.io/gorm"

	"sistema-notas/backend/internal/model"
)

// StudentCourseRow 名单查询的扁平行：学生信息 + 参照班级
type StudentCourseRow struct {
	StudentID  string
	Name       string
	Surname    string
	NationalID string
	CourseID   string
	CourseName string
	GradeLevel int
	Subgroup   string
}

// EnrollmentRepository 学籍注册数据访问接口
type EnrollmentRepository interface {
	Create(ctx context.Context, enrollment *model.Enrollment) error
	GetByID(ctx context.Context, id string) (*model.Enrollment, error)
	GetActiveByStudent(ctx context.Context, studentID string) (*model.Enrollment, error)
	DeactivateByStudent(ctx context.Context, studentID string, updatedBy string) error
	SetStatus(ctx context.Context, id string, status string, updatedBy string) error
	CountByCourse(ctx context.Context, courseID string) (int64, error)
	ListActiveStudents(ctx context.Context, courseID string) ([]StudentCourseRow, error)
}

type enrollmentRepo struct {
	db *gorm.DB
}

// NewEnrollmentRepo 创建 EnrollmentRepository 实例
func NewEnrollmentRepo(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepo{db: db}
}

func (r *enrollmentRepo) Create(ctx context.Context, enrollment *model.Enrollment) error {
	return r.db.WithContext(ctx).Create(enrollment).Error
}

func (r *enrollmentRepo) GetByID(ctx context.Context, id string) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	err := r.db.WithContext(ctx).
		Where("enrollment_id = ?", id).
		First(&enrollment).Error
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (r *enrollmentRepo) GetActiveByStudent(ctx context.Context, studentID string) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	db := r.db.WithContext(ctx)
	err := db.
		Where("student_id = ? AND status = ?", studentID, model.EnrollmentActive).
		First(&enrollment).Error
	if err != nil {
		return nil, err
	}

	var courses []model.Course
	if err := db.Where("course_id = ?", enrollment.CourseID).Limit(1).Find(&courses).Error; err != nil {
		return nil, err
	}
	if len(courses) > 0 {
		enrollment.Course = &courses[0]
	}
	return &enrollment, nil
}

// DeactivateByStudent 将学生所有 active 注册置为 inactive
func (r *enrollmentRepo) DeactivateByStudent(ctx context.Context, studentID string, updatedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.Enrollment{}).
		Where("student_id = ? AND status = ?", studentID, model.EnrollmentActive).
		Updates(map[string]interface{}{
			"status":     model.EnrollmentInactive,
			"updated_by": updatedBy,
		}).Error
}

func (r *enrollmentRepo) SetStatus(ctx context.Context, id string, status string, updatedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.Enrollment{}).
		Where("enrollment_id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_by": updatedBy,
		}).Error
}

// CountByCourse 统计班级的注册记录数（不区分状态，用于删除保护）
func (r *enrollmentRepo) CountByCourse(ctx context.Context, courseID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Enrollment{}).
		Where("course_id = ?", courseID).
		Count(&n).Error
	return n, err
}

// ListActiveStudents 班级内 active 注册的学生，参照班级即该班级
func (r *enrollmentRepo) ListActiveStudents(ctx context.Context, courseID string) ([]StudentCourseRow, error) {
	var rows []StudentCourseRow
	err := r.db.WithContext(ctx).
		Table("enrollments AS e").
		Select(`u.user_id AS student_id, u.name, u.surname, u.national_id,
			c.course_id, c.name AS course_name, c.grade_level`).
		Joins("JOIN users u ON u.user_id = e.student_id").
		Joins("JOIN courses c ON c.course_id = e.course_id").
		Where("e.course_id = ? AND e.status = ?", courseID, model.EnrollmentActive).
		Scan(&rows).Error
	return rows, err
}
