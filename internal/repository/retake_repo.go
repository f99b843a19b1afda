package repository

import (
	"context"

	"gorm.io/gorm"

	"sistema-notas/backend/internal/model"
)

// RetakeRepository 重修分配数据访问接口
type RetakeRepository interface {
	Create(ctx context.Context, retake *model.RetakeAssignment) error
	GetByID(ctx context.Context, id string) (*model.RetakeAssignment, error)
	UpdateStatus(ctx context.Context, id string, status string, updatedBy string) error
	Delete(ctx context.Context, id string) error
	// ExistsActive 是否已有 active 重修（excludeID 非空时排除该记录自身）
	ExistsActive(ctx context.Context, studentID, targetOfferingID, excludeID string) (bool, error)
	List(ctx context.Context, termID, status string) ([]model.RetakeAssignment, error)
	CountByStatus(ctx context.Context, termID string) (map[string]int64, error)

	// 名单计算
	ListActiveTargetStudents(ctx context.Context, offeringID, termID string) ([]StudentCourseRow, error)
	ListLiberatedStudentIDs(ctx context.Context, offeringID, termID string) ([]string, error)
}

type retakeRepo struct {
	db *gorm.DB
}

// NewRetakeRepo 创建 RetakeRepository 实例
func NewRetakeRepo(db *gorm.DB) RetakeRepository {
	return &retakeRepo{db: db}
}

func (r *retakeRepo) Create(ctx context.Context, retake *model.RetakeAssignment) error {
	return r.db.WithContext(ctx).Create(retake).Error
}

func (r *retakeRepo) GetByID(ctx context.Context, id string) (*model.RetakeAssignment, error) {
	var retake model.RetakeAssignment
	db := r.db.WithContext(ctx)
	err := db.
		Preload("Student").
		Preload("TargetOffering").
		Preload("LiberatedOffering").
		Where("retake_id = ?", id).
		First(&retake).Error
	if err != nil {
		return nil, err
	}
	if err := fillOfferingRefs(db, retake.TargetOffering, retake.LiberatedOffering); err != nil {
		return nil, err
	}
	return &retake, nil
}

func (r *retakeRepo) UpdateStatus(ctx context.Context, id string, status string, updatedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.RetakeAssignment{}).
		Where("retake_id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_by": updatedBy,
		}).Error
}

func (r *retakeRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("retake_id = ?", id).
		Delete(&model.RetakeAssignment{}).Error
}

func (r *retakeRepo) ExistsActive(ctx context.Context, studentID, targetOfferingID, excludeID string) (bool, error) {
	var n int64
	db := r.db.WithContext(ctx).
		Model(&model.RetakeAssignment{}).
		Where("student_id = ? AND target_offering_id = ? AND status = ?",
			studentID, targetOfferingID, model.RetakeStatusActive)
	if excludeID != "" {
		db = db.Where("retake_id <> ?", excludeID)
	}
	if err := db.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// List 按学年列出重修，status 为空时不过滤
func (r *retakeRepo) List(ctx context.Context, termID, status string) ([]model.RetakeAssignment, error) {
	var retakes []model.RetakeAssignment
	base := r.db.WithContext(ctx)
	db := base.
		Preload("Student").
		Preload("TargetOffering").
		Preload("LiberatedOffering").
		Where("term_id = ?", termID)
	if status != "" {
		db = db.Where("status = ?", status)
	}
	if err := db.Order("assigned_at DESC").Find(&retakes).Error; err != nil {
		return nil, err
	}

	offerings := make([]*model.SubjectOffering, 0, 2*len(retakes))
	for i := range retakes {
		offerings = append(offerings, retakes[i].TargetOffering, retakes[i].LiberatedOffering)
	}
	return retakes, fillOfferingRefs(base, offerings...)
}

func (r *retakeRepo) CountByStatus(ctx context.Context, termID string) (map[string]int64, error) {
	var rows []struct {
		Status string
		Total  int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.RetakeAssignment{}).
		Select("status, COUNT(*) AS total").
		Where("term_id = ?", termID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

// ListActiveTargetStudents 以该开课为目标的 active 重修学生，参照班级为目标开课所属班级
func (r *retakeRepo) ListActiveTargetStudents(ctx context.Context, offeringID, termID string) ([]StudentCourseRow, error) {
	var rows []StudentCourseRow
	err := r.db.WithContext(ctx).
		Table("retake_assignments AS ra").
		Select(`u.user_id AS student_id, u.name, u.surname, u.national_id,
			c.course_id, c.name AS course_name, c.grade_level`).
		Joins("JOIN users u ON u.user_id = ra.student_id").
		Joins("JOIN subject_offerings so ON so.offering_id = ra.target_offering_id").
		Joins("JOIN courses c ON c.course_id = so.course_id").
		Where("ra.target_offering_id = ? AND ra.term_id = ? AND ra.status = ?",
			offeringID, termID, model.RetakeStatusActive).
		Scan(&rows).Error
	return rows, err
}

// ListLiberatedStudentIDs 因 active 重修而免修该开课的学生
func (r *retakeRepo) ListLiberatedStudentIDs(ctx context.Context, offeringID, termID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.RetakeAssignment{}).
		Where("liberated_offering_id = ? AND term_id = ? AND status = ?",
			offeringID, termID, model.RetakeStatusActive).
		Distinct().
		Pluck("student_id", &ids).Error
	return ids, err
}
