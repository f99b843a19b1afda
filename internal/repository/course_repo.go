package repository

import (
	"context"

	"gorm.io/gorm"

	"sistema-notas/backend/internal/model"
)

// CourseRepository 班级数据访问接口
type CourseRepository interface {
	Create(ctx context.Context, course *model.Course) error
	GetByID(ctx context.Context, id string) (*model.Course, error)
	List(ctx context.Context, termID string) ([]model.Course, error)
	Delete(ctx context.Context, id string) error
}

type courseRepo struct {
	db *gorm.DB
}

// NewCourseRepo 创建 CourseRepository 实例
func NewCourseRepo(db *gorm.DB) CourseRepository {
	return &courseRepo{db: db}
}

func (r *courseRepo) Create(ctx context.Context, course *model.Course) error {
	return r.db.WithContext(ctx).Create(course).Error
}

func (r *courseRepo) GetByID(ctx context.Context, id string) (*model.Course, error) {
	var course model.Course
	err := r.db.WithContext(ctx).
		Where("course_id = ?", id).
		First(&course).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

// List 按学年列出班级，termID 为空时列出全部
func (r *courseRepo) List(ctx context.Context, termID string) ([]model.Course, error) {
	var courses []model.Course
	db := r.db.WithContext(ctx)
	if termID != "" {
		db = db.Where("term_id = ?", termID)
	}
	err := db.Order("grade_level ASC, name ASC").Find(&courses).Error
	return courses, err
}

func (r *courseRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("course_id = ?", id).
		Delete(&model.Course{}).Error
}
