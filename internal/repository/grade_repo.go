package repository

import (
	"context"

	"gorm.io/gorm"

	"sistema-notas/backend/internal/model"
)

// GradeRepository 成绩数据访问接口
type GradeRepository interface {
	Get(ctx context.Context, studentID, offeringID, termID string) (*model.GradeRecord, error)
	Create(ctx context.Context, grade *model.GradeRecord) error
	Update(ctx context.Context, grade *model.GradeRecord) error
	Count(ctx context.Context, studentID, offeringID, termID string) (int64, error)
	DeleteFor(ctx context.Context, studentID, offeringID, termID string) (int64, error)
	ListByOffering(ctx context.Context, offeringID, termID string) ([]model.GradeRecord, error)
	ListByStudent(ctx context.Context, studentID, termID string) ([]model.GradeRecord, error)
}

type gradeRepo struct {
	db *gorm.DB
}

// NewGradeRepo 创建 GradeRepository 实例
func NewGradeRepo(db *gorm.DB) GradeRepository {
	return &gradeRepo{db: db}
}

func (r *gradeRepo) Get(ctx context.Context, studentID, offeringID, termID string) (*model.GradeRecord, error) {
	var grade model.GradeRecord
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND offering_id = ? AND term_id = ?", studentID, offeringID, termID).
		First(&grade).Error
	if err != nil {
		return nil, err
	}
	return &grade, nil
}

func (r *gradeRepo) Create(ctx context.Context, grade *model.GradeRecord) error {
	return r.db.WithContext(ctx).Create(grade).Error
}

// Update 全量写回（含 nil 字段），Save 会把指针字段的 nil 写成 NULL
func (r *gradeRepo) Update(ctx context.Context, grade *model.GradeRecord) error {
	return r.db.WithContext(ctx).Save(grade).Error
}

func (r *gradeRepo) Count(ctx context.Context, studentID, offeringID, termID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.GradeRecord{}).
		Where("student_id = ? AND offering_id = ? AND term_id = ?", studentID, offeringID, termID).
		Count(&n).Error
	return n, err
}

func (r *gradeRepo) DeleteFor(ctx context.Context, studentID, offeringID, termID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("student_id = ? AND offering_id = ? AND term_id = ?", studentID, offeringID, termID).
		Delete(&model.GradeRecord{})
	return res.RowsAffected, res.Error
}

func (r *gradeRepo) ListByOffering(ctx context.Context, offeringID, termID string) ([]model.GradeRecord, error) {
	var grades []model.GradeRecord
	err := r.db.WithContext(ctx).
		Where("offering_id = ? AND term_id = ?", offeringID, termID).
		Find(&grades).Error
	return grades, err
}

func (r *gradeRepo) ListByStudent(ctx context.Context, studentID, termID string) ([]model.GradeRecord, error) {
	var grades []model.GradeRecord
	db := r.db.WithContext(ctx)
	err := db.
		Where("student_id = ? AND term_id = ?", studentID, termID).
		Find(&grades).Error
	if err != nil || len(grades) == 0 {
		return grades, err
	}

	offeringIDs := make([]string, len(grades))
	for i := range grades {
		offeringIDs[i] = grades[i].OfferingID
	}
	var offerings []model.SubjectOffering
	if err := db.Where("offering_id IN ?", offeringIDs).Find(&offerings).Error; err != nil {
		return nil, err
	}
	if err := fillOfferingRefs(db, offeringPtrs(offerings)...); err != nil {
		return nil, err
	}
	byID := make(map[string]*model.SubjectOffering, len(offerings))
	for i := range offerings {
		byID[offerings[i].OfferingID] = &offerings[i]
	}
	for i := range grades {
		grades[i].Offering = byID[grades[i].OfferingID]
	}
	return grades, nil
}
