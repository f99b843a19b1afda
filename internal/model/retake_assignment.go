package model

import (
	"time"

	"gorm.io/gorm"
)

// 重修状态
const (
	RetakeStatusActive    = "active"
	RetakeStatusFinished  = "finished"
	RetakeStatusCancelled = "cancelled"
)

// RetakeAssignment 重修分配表 — 对应 retake_assignments
// 学生在 TargetOffering 的名单中出现；若 LiberatedOfferingID 非空，则从本班对应开课的名单中移除
// (student_id, target_offering_id) 在 status='active' 范围内唯一（部分唯一索引，见迁移）
type RetakeAssignment struct {
	RetakeID            string    `gorm:"type:uuid;primaryKey"                       json:"retake_id"`
	StudentID           string    `gorm:"type:uuid;not null;index"                   json:"student_id"`
	TargetOfferingID    string    `gorm:"type:uuid;not null;index"                   json:"target_offering_id"`
	LiberatedOfferingID *string   `gorm:"type:uuid;index"                            json:"liberated_offering_id,omitempty"`
	TermID              string    `gorm:"type:uuid;not null;index"                   json:"term_id"`
	Status              string    `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	AssignedAt          time.Time `gorm:"type:date;not null"                         json:"assigned_at"`
	Notes               string    `gorm:"type:text"                                  json:"notes"`
	BaseModel

	// 关联
	Student           *User            `gorm:"foreignKey:StudentID;references:UserID"               json:"student,omitempty"`
	TargetOffering    *SubjectOffering `gorm:"foreignKey:TargetOfferingID;references:OfferingID"    json:"target_offering,omitempty"`
	LiberatedOffering *SubjectOffering `gorm:"foreignKey:LiberatedOfferingID;references:OfferingID" json:"liberated_offering,omitempty"`
}

// TableName 指定表名
func (RetakeAssignment) TableName() string { return "retake_assignments" }

// BeforeCreate 生成主键
func (r *RetakeAssignment) BeforeCreate(tx *gorm.DB) error {
	ensureID(&r.RetakeID)
	return nil
}

// ValidRetakeStatus 状态值是否属于三值枚举
func ValidRetakeStatus(status string) bool {
	switch status {
	case RetakeStatusActive, RetakeStatusFinished, RetakeStatusCancelled:
		return true
	}
	return false
}
