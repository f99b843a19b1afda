package model

import "gorm.io/gorm"

// SubjectOffering 班级开课表 — 对应 subject_offerings
// 同一班级同一科目只能开设一次
type SubjectOffering struct {
	OfferingID        string  `gorm:"type:uuid;primaryKey"                                   json:"offering_id"`
	SubjectID         string  `gorm:"type:uuid;not null;uniqueIndex:uq_offering_course_subject,priority:2" json:"subject_id"`
	CourseID          string  `gorm:"type:uuid;not null;uniqueIndex:uq_offering_course_subject,priority:1" json:"course_id"`
	TeacherID         *string `gorm:"type:uuid;index"                                        json:"teacher_id,omitempty"`
	RequiresSubgroups bool    `gorm:"not null;default:false"                                 json:"requires_subgroups"`
	BaseModel

	// 关联
	Teacher *User             `gorm:"foreignKey:TeacherID;references:UserID"                json:"teacher,omitempty"`
	Grades  []GradeRecord     `gorm:"foreignKey:OfferingID"                                 json:"-"`
	Members []OfferingStudent `gorm:"foreignKey:OfferingID;constraint:OnDelete:CASCADE"     json:"-"`
	Pending []PendingSubject  `gorm:"foreignKey:OfferingID"                                 json:"-"`

	// 展示字段，由 repository 按 ID 回填
	Subject *Subject `gorm:"-" json:"subject,omitempty"`
	Course  *Course  `gorm:"-" json:"course,omitempty"`
}

// TableName 指定表名
func (SubjectOffering) TableName() string { return "subject_offerings" }

// BeforeCreate 生成主键
func (o *SubjectOffering) BeforeCreate(tx *gorm.DB) error {
	ensureID(&o.OfferingID)
	return nil
}

// DisplayName 科目名称，未预加载时返回空串
func (o *SubjectOffering) DisplayName() string {
	if o == nil || o.Subject == nil {
		return ""
	}
	return o.Subject.Name
}
