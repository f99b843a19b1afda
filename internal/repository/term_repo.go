package repository

import (
	"context"

	"gorm.io/gorm"

	"sistema-notas/backend/internal/model"
)

// TermRepository 学年数据访问接口
type TermRepository interface {
	Create(ctx context.Context, term *model.AcademicTerm) error
	GetByID(ctx context.Context, id string) (*model.AcademicTerm, error)
	GetActive(ctx context.Context) (*model.AcademicTerm, error)
	List(ctx context.Context) ([]model.AcademicTerm, error)
	Update(ctx context.Context, term *model.AcademicTerm) error
	ClearActive(ctx context.Context) error
}

type termRepo struct {
	db *gorm.DB
}

// NewTermRepo 创建 TermRepository 实例
func NewTermRepo(db *gorm.DB) TermRepository {
	return &termRepo{db: db}
}

func (r *termRepo) Create(ctx context.Context, term *model.AcademicTerm) error {
	return r.db.WithContext(ctx).Create(term).Error
}

func (r *termRepo) GetByID(ctx context.Context, id string) (*model.AcademicTerm, error) {
	var term model.AcademicTerm
	err := r.db.WithContext(ctx).
		Where("term_id = ?", id).
		First(&term).Error
	if err != nil {
		return nil, err
	}
	return &term, nil
}

func (r *termRepo) GetActive(ctx context.Context) (*model.AcademicTerm, error) {
	var term model.AcademicTerm
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		First(&term).Error
	if err != nil {
		return nil, err
	}
	return &term, nil
}

func (r *termRepo) List(ctx context.Context) ([]model.AcademicTerm, error) {
	var terms []model.AcademicTerm
	err := r.db.WithContext(ctx).
		Order("year DESC").
		Find(&terms).Error
	return terms, err
}

func (r *termRepo) Update(ctx context.Context, term *model.AcademicTerm) error {
	return r.db.WithContext(ctx).Save(term).Error
}

// ClearActive 将所有学年的 is_active 设为 false
func (r *termRepo) ClearActive(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Model(&model.AcademicTerm{}).
		Where("is_active = ?", true).
		Update("is_active", false).Error
}
