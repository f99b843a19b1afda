package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sistema-notas/backend/internal/model"
)

// PendingFilter 待补科目列表过滤条件，空字段不过滤
type PendingFilter struct {
	TermID     string
	OfferingID string
	CourseID   string
	StudentID  string
	TeacherID  string
	Status     string
}

// PendingRepository 待补科目数据访问接口
type PendingRepository interface {
	Create(ctx context.Context, pending *model.PendingSubject) error
	GetByID(ctx context.Context, id string) (*model.PendingSubject, error)
	Update(ctx context.Context, pending *model.PendingSubject) error
	SetStatus(ctx context.Context, id string, status string, updatedBy string) error
	ExistsActive(ctx context.Context, studentID, offeringID, termID, excludeID string) (bool, error)
	List(ctx context.Context, filter PendingFilter) ([]model.PendingSubject, error)
}

type pendingRepo struct {
	db *gorm.DB
}

// NewPendingRepo 创建 PendingRepository 实例
func NewPendingRepo(db *gorm.DB) PendingRepository {
	return &pendingRepo{db: db}
}

func (r *pendingRepo) Create(ctx context.Context, pending *model.PendingSubject) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(pending).Error
}

func (r *pendingRepo) GetByID(ctx context.Context, id string) (*model.PendingSubject, error) {
	var pending model.PendingSubject
	db := r.db.WithContext(ctx)
	err := db.
		Preload("Student").
		Where("pending_id = ?", id).
		First(&pending).Error
	if err != nil {
		return nil, err
	}
	if err := r.fillOfferings(db, &pending); err != nil {
		return nil, err
	}
	return &pending, nil
}

func (r *pendingRepo) Update(ctx context.Context, pending *model.PendingSubject) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(pending).Error
}

func (r *pendingRepo) SetStatus(ctx context.Context, id string, status string, updatedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.PendingSubject{}).
		Where("pending_id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_by": updatedBy,
		}).Error
}

func (r *pendingRepo) ExistsActive(ctx context.Context, studentID, offeringID, termID, excludeID string) (bool, error) {
	var n int64
	db := r.db.WithContext(ctx).
		Model(&model.PendingSubject{}).
		Where("student_id = ? AND offering_id = ? AND term_id = ? AND status = ?",
			studentID, offeringID, termID, model.PendingActive)
	if excludeID != "" {
		db = db.Where("pending_id <> ?", excludeID)
	}
	if err := db.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// List 按过滤条件列出，按学生姓氏、姓名排序
func (r *pendingRepo) List(ctx context.Context, filter PendingFilter) ([]model.PendingSubject, error) {
	var list []model.PendingSubject
	base := r.db.WithContext(ctx)
	db := base.
		Preload("Student").
		Joins("JOIN users ON users.user_id = pending_subjects.student_id").
		Joins("JOIN subject_offerings ON subject_offerings.offering_id = pending_subjects.offering_id")

	if filter.TermID != "" {
		db = db.Where("pending_subjects.term_id = ?", filter.TermID)
	}
	if filter.OfferingID != "" {
		db = db.Where("pending_subjects.offering_id = ?", filter.OfferingID)
	}
	if filter.CourseID != "" {
		db = db.Where("subject_offerings.course_id = ?", filter.CourseID)
	}
	if filter.StudentID != "" {
		db = db.Where("pending_subjects.student_id = ?", filter.StudentID)
	}
	if filter.TeacherID != "" {
		db = db.Where("subject_offerings.teacher_id = ?", filter.TeacherID)
	}
	if filter.Status != "" {
		db = db.Where("pending_subjects.status = ?", filter.Status)
	}

	if err := db.Order("users.surname ASC, users.name ASC").Find(&list).Error; err != nil {
		return nil, err
	}

	ptrs := make([]*model.PendingSubject, len(list))
	for i := range list {
		ptrs[i] = &list[i]
	}
	return list, r.fillOfferings(base, ptrs...)
}

// fillOfferings 回填开课及其科目、班级
func (r *pendingRepo) fillOfferings(db *gorm.DB, list ...*model.PendingSubject) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]string, len(list))
	for i, p := range list {
		ids[i] = p.OfferingID
	}

	var offerings []model.SubjectOffering
	if err := db.Where("offering_id IN ?", ids).Find(&offerings).Error; err != nil {
		return err
	}
	if err := fillOfferingRefs(db, offeringPtrs(offerings)...); err != nil {
		return err
	}
	byID := make(map[string]*model.SubjectOffering, len(offerings))
	for i := range offerings {
		byID[offerings[i].OfferingID] = &offerings[i]
	}
	for _, p := range list {
		p.Offering = byID[p.OfferingID]
	}
	return nil
}
