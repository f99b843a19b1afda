package model

import (
	"time"

	"gorm.io/gorm"
)

// AcademicTerm 学年表 — 对应 academic_terms
// 任意时刻至多一个学年处于启用状态
type AcademicTerm struct {
	TermID    string    `gorm:"type:uuid;primaryKey"   json:"term_id"`
	Year      int       `gorm:"not null;uniqueIndex"   json:"year"`
	StartDate time.Time `gorm:"type:date;not null"     json:"start_date"`
	EndDate   time.Time `gorm:"type:date;not null"     json:"end_date"`
	IsActive  bool      `gorm:"not null;default:false" json:"is_active"`
	BaseModel

	// 关联（外键在 courses 一侧）
	Courses []Course `gorm:"foreignKey:TermID" json:"-"`
}

// TableName 指定表名
func (AcademicTerm) TableName() string { return "academic_terms" }

// BeforeCreate 生成主键
func (t *AcademicTerm) BeforeCreate(tx *gorm.DB) error {
	ensureID(&t.TermID)
	return nil
}
