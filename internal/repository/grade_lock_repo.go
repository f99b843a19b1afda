package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sistema-notas/backend/internal/model"
)

// GradeLockRepository 成绩锁定配置数据访问接口
type GradeLockRepository interface {
	Get(ctx context.Context, termID string) (*model.GradeLock, error)
	Upsert(ctx context.Context, lock *model.GradeLock) error
}

type gradeLockRepo struct {
	db *gorm.DB
}

// NewGradeLockRepo 创建 GradeLockRepository 实例
func NewGradeLockRepo(db *gorm.DB) GradeLockRepository {
	return &gradeLockRepo{db: db}
}

func (r *gradeLockRepo) Get(ctx context.Context, termID string) (*model.GradeLock, error) {
	var lock model.GradeLock
	err := r.db.WithContext(ctx).
		Where("term_id = ?", termID).
		First(&lock).Error
	if err != nil {
		return nil, err
	}
	return &lock, nil
}

func (r *gradeLockRepo) Upsert(ctx context.Context, lock *model.GradeLock) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "term_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"general_lock", "period1_mark_locked", "period1_value_locked",
				"period2_mark_locked", "period2_value_locked", "intensification_locked",
				"final_locked", "notes_locked", "message", "updated_by", "updated_at",
			}),
		}).
		Create(lock).Error
}
