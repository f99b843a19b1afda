package repository

import (
	"context"

	"gorm.io/gorm"

	"sistema-notas/backend/internal/model"
)

// OfferingRepository 开课数据访问接口
type OfferingRepository interface {
	Create(ctx context.Context, offering *model.SubjectOffering) error
	GetByID(ctx context.Context, id string) (*model.SubjectOffering, error)
	ListByCourse(ctx context.Context, courseID string) ([]model.SubjectOffering, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]model.SubjectOffering, error)
	SetTeacher(ctx context.Context, id string, teacherID *string, updatedBy string) error
	CountByCourse(ctx context.Context, courseID string) (int64, error)
}

type offeringRepo struct {
	db *gorm.DB
}

// NewOfferingRepo 创建 OfferingRepository 实例
func NewOfferingRepo(db *gorm.DB) OfferingRepository {
	return &offeringRepo{db: db}
}

func (r *offeringRepo) Create(ctx context.Context, offering *model.SubjectOffering) error {
	return r.db.WithContext(ctx).Create(offering).Error
}

func (r *offeringRepo) GetByID(ctx context.Context, id string) (*model.SubjectOffering, error) {
	var offering model.SubjectOffering
	db := r.db.WithContext(ctx)
	err := db.
		Preload("Teacher").
		Where("offering_id = ?", id).
		First(&offering).Error
	if err != nil {
		return nil, err
	}
	if err := fillOfferingRefs(db, &offering); err != nil {
		return nil, err
	}
	return &offering, nil
}

func (r *offeringRepo) ListByCourse(ctx context.Context, courseID string) ([]model.SubjectOffering, error) {
	var offerings []model.SubjectOffering
	db := r.db.WithContext(ctx)
	err := db.
		Preload("Teacher").
		Joins("JOIN subjects ON subjects.subject_id = subject_offerings.subject_id").
		Where("subject_offerings.course_id = ?", courseID).
		Order("subjects.name ASC").
		Find(&offerings).Error
	if err != nil {
		return nil, err
	}
	return offerings, fillOfferingRefs(db, offeringPtrs(offerings)...)
}

func (r *offeringRepo) ListByTeacher(ctx context.Context, teacherID string) ([]model.SubjectOffering, error) {
	var offerings []model.SubjectOffering
	db := r.db.WithContext(ctx)
	err := db.
		Where("teacher_id = ?", teacherID).
		Find(&offerings).Error
	if err != nil {
		return nil, err
	}
	return offerings, fillOfferingRefs(db, offeringPtrs(offerings)...)
}

// SetTeacher 指派或取消指派（teacherID 为 nil）任课教师
func (r *offeringRepo) SetTeacher(ctx context.Context, id string, teacherID *string, updatedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.SubjectOffering{}).
		Where("offering_id = ?", id).
		Updates(map[string]interface{}{
			"teacher_id": teacherID,
			"updated_by": updatedBy,
		}).Error
}

func (r *offeringRepo) CountByCourse(ctx context.Context, courseID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.SubjectOffering{}).
		Where("course_id = ?", courseID).
		Count(&n).Error
	return n, err
}

// fillOfferingRefs 按 ID 批量回填开课的科目与班级
func fillOfferingRefs(db *gorm.DB, offerings ...*model.SubjectOffering) error {
	subjectIDs := make([]string, 0, len(offerings))
	courseIDs := make([]string, 0, len(offerings))
	for _, o := range offerings {
		if o == nil {
			continue
		}
		subjectIDs = append(subjectIDs, o.SubjectID)
		courseIDs = append(courseIDs, o.CourseID)
	}
	if len(subjectIDs) == 0 {
		return nil
	}

	var subjects []model.Subject
	if err := db.Where("subject_id IN ?", subjectIDs).Find(&subjects).Error; err != nil {
		return err
	}
	var courses []model.Course
	if err := db.Where("course_id IN ?", courseIDs).Find(&courses).Error; err != nil {
		return err
	}

	subjectByID := make(map[string]*model.Subject, len(subjects))
	for i := range subjects {
		subjectByID[subjects[i].SubjectID] = &subjects[i]
	}
	courseByID := make(map[string]*model.Course, len(courses))
	for i := range courses {
		courseByID[courses[i].CourseID] = &courses[i]
	}
	for _, o := range offerings {
		if o == nil {
			continue
		}
		o.Subject = subjectByID[o.SubjectID]
		o.Course = courseByID[o.CourseID]
	}
	return nil
}

func offeringPtrs(offerings []model.SubjectOffering) []*model.SubjectOffering {
	ptrs := make([]*model.SubjectOffering, len(offerings))
	for i := range offerings {
		ptrs[i] = &offerings[i]
	}
	return ptrs
}
