package model

import "gorm.io/gorm"

// Course 班级表 — 对应 courses（如 "3°B"）
type Course struct {
	CourseID   string `gorm:"type:uuid;primaryKey"       json:"course_id"`
	Name       string `gorm:"type:varchar(50);not null"  json:"name"`
	GradeLevel int    `gorm:"not null"                   json:"grade_level"` // 1-7
	TermID     string `gorm:"type:uuid;not null;index"   json:"term_id"`
	BaseModel

	// 关联（外键在子表一侧）
	Offerings   []SubjectOffering `gorm:"foreignKey:CourseID" json:"-"`
	Enrollments []Enrollment      `gorm:"foreignKey:CourseID" json:"-"`
}

// TableName 指定表名
func (Course) TableName() string { return "courses" }

// BeforeCreate 生成主键
func (c *Course) BeforeCreate(tx *gorm.DB) error {
	ensureID(&c.CourseID)
	return nil
}
