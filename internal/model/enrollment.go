package model

import (
	"time"

	"gorm.io/gorm"
)

// 注册状态
const (
	EnrollmentActive   = "active"
	EnrollmentInactive = "inactive"
)

// Enrollment 学籍注册表 — 对应 enrollments
// 每个学生至多一条 active 记录
type Enrollment struct {
	EnrollmentID string    `gorm:"type:uuid;primaryKey"                        json:"enrollment_id"`
	StudentID    string    `gorm:"type:uuid;not null;index"                    json:"student_id"`
	CourseID     string    `gorm:"type:uuid;not null;index"                    json:"course_id"`
	Status       string    `gorm:"type:varchar(20);not null;default:'active'"  json:"status"`
	EnrolledAt   time.Time `gorm:"type:date;not null"                          json:"enrolled_at"`
	BaseModel

	// 关联
	Student *User   `gorm:"foreignKey:StudentID;references:UserID"  json:"student,omitempty"`
	Course  *Course `gorm:"-"                                       json:"course,omitempty"`
}

// TableName 指定表名
func (Enrollment) TableName() string { return "enrollments" }

// BeforeCreate 生成主键
func (e *Enrollment) BeforeCreate(tx *gorm.DB) error {
	ensureID(&e.EnrollmentID)
	return nil
}
