package model

import "gorm.io/gorm"

// OfferingStudent 分组开课名单 — 对应 offering_students
// 仅 requires_subgroups 的开课使用，名单以此表为准
type OfferingStudent struct {
	ID         string `gorm:"type:uuid;primaryKey"                                         json:"id"`
	OfferingID string `gorm:"type:uuid;not null;uniqueIndex:uq_offering_student_term,priority:1" json:"offering_id"`
	StudentID  string `gorm:"type:uuid;not null;uniqueIndex:uq_offering_student_term,priority:2" json:"student_id"`
	TermID     string `gorm:"type:uuid;not null;uniqueIndex:uq_offering_student_term,priority:3" json:"term_id"`
	Subgroup   string `gorm:"type:varchar(20)"                                             json:"subgroup"`
	IsActive   bool   `gorm:"not null;default:true"                                        json:"is_active"`
	BaseModel

	// 关联
	Student *User `gorm:"foreignKey:StudentID;references:UserID" json:"student,omitempty"`
}

// TableName 指定表名
func (OfferingStudent) TableName() string { return "offering_students" }

// BeforeCreate 生成主键
func (m *OfferingStudent) BeforeCreate(tx *gorm.DB) error {
	ensureID(&m.ID)
	return nil
}
