package model

import "gorm.io/gorm"

// Subject 科目表 — 对应 subjects
type Subject struct {
	SubjectID string `gorm:"type:uuid;primaryKey"                  json:"subject_id"`
	Name      string `gorm:"type:varchar(100);not null"            json:"name"`
	Code      string `gorm:"type:varchar(20);not null;uniqueIndex" json:"code"`
	BaseModel

	Offerings []SubjectOffering `gorm:"foreignKey:SubjectID" json:"-"`
}

// TableName 指定表名
func (Subject) TableName() string { return "subjects" }

// BeforeCreate 生成主键
func (s *Subject) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.SubjectID)
	return nil
}
