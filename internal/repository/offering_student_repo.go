package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sistema-notas/backend/internal/model"
)

// OfferingStudentRepository 分组开课名单数据访问接口
type OfferingStudentRepository interface {
	Upsert(ctx context.Context, member *model.OfferingStudent) error
	DeactivateAll(ctx context.Context, offeringID, termID string, updatedBy string) error
	ListActiveMembers(ctx context.Context, offeringID, termID string) ([]StudentCourseRow, error)
}

type offeringStudentRepo struct {
	db *gorm.DB
}

// NewOfferingStudentRepo 创建 OfferingStudentRepository 实例
func NewOfferingStudentRepo(db *gorm.DB) OfferingStudentRepository {
	return &offeringStudentRepo{db: db}
}

// Upsert 按 (offering, student, term) 写入成员，已存在时更新分组并重新启用
func (r *offeringStudentRepo) Upsert(ctx context.Context, member *model.OfferingStudent) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "offering_id"}, {Name: "student_id"}, {Name: "term_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"subgroup", "is_active", "updated_by", "updated_at"}),
		}).
		Create(member).Error
}

func (r *offeringStudentRepo) DeactivateAll(ctx context.Context, offeringID, termID string, updatedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.OfferingStudent{}).
		Where("offering_id = ? AND term_id = ? AND is_active = ?", offeringID, termID, true).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_by": updatedBy,
		}).Error
}

// ListActiveMembers 分组开课的启用成员，参照班级为开课所属班级
func (r *offeringStudentRepo) ListActiveMembers(ctx context.Context, offeringID, termID string) ([]StudentCourseRow, error) {
	var rows []StudentCourseRow
	err := r.db.WithContext(ctx).
		Table("offering_students AS os").
		Select(`u.user_id AS student_id, u.name, u.surname, u.national_id,
			c.course_id, c.name AS course_name, c.grade_level, os.subgroup`).
		Joins("JOIN users u ON u.user_id = os.student_id").
		Joins("JOIN subject_offerings so ON so.offering_id = os.offering_id").
		Joins("JOIN courses c ON c.course_id = so.course_id").
		Where("os.offering_id = ? AND os.term_id = ? AND os.is_active = ?", offeringID, termID, true).
		Scan(&rows).Error
	return rows, err
}
