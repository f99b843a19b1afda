package model

import "gorm.io/gorm"

// 补修阶段评价
const (
	ProgressAA  = "AA"  // 已通过并认定
	ProgressCCA = "CCA" // 继续，有进展
	ProgressCSA = "CSA" // 继续，无进展
)

// 待补科目状态
const (
	PendingActive   = "active"
	PendingInactive = "inactive"
)

// PendingSubject 待补科目表 — 对应 pending_subjects
// 学生往年未通过的科目，在当前学年由指定开课的教师分阶段评价
// (student_id, offering_id, term_id) 在 status='active' 范围内唯一（部分唯一索引，见迁移）
type PendingSubject struct {
	PendingID        string  `gorm:"type:uuid;primaryKey"                       json:"pending_id"`
	StudentID        string  `gorm:"type:uuid;not null;index"                   json:"student_id"`
	OfferingID       string  `gorm:"type:uuid;not null;index"                   json:"offering_id"`
	TermID           string  `gorm:"type:uuid;not null;index"                   json:"term_id"`
	OriginalYear     int     `gorm:"not null"                                   json:"original_year"`
	InitialKnowledge string  `gorm:"type:text;not null"                         json:"initial_knowledge"`
	March            *string `gorm:"type:varchar(3)"                            json:"march"`
	July             *string `gorm:"type:varchar(3)"                            json:"july"`
	August           *string `gorm:"type:varchar(3)"                            json:"august"`
	December         *string `gorm:"type:varchar(3)"                            json:"december"`
	February         *string `gorm:"type:varchar(3)"                            json:"february"`
	FinalValue       *int    `                                                  json:"final_value"`
	ClosingKnowledge string  `gorm:"type:text"                                  json:"closing_knowledge"`
	Notes            string  `gorm:"type:text"                                  json:"notes"`
	Status           string  `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	BaseModel

	// 关联
	Student *User `gorm:"foreignKey:StudentID;references:UserID" json:"student,omitempty"`

	// 展示字段，由 repository 回填
	Offering *SubjectOffering `gorm:"-" json:"offering,omitempty"`
}

// TableName 指定表名
func (PendingSubject) TableName() string { return "pending_subjects" }

// BeforeCreate 生成主键
func (p *PendingSubject) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.PendingID)
	return nil
}

// SameProgress 评价字段是否完全一致
func (p *PendingSubject) SameProgress(o *PendingSubject) bool {
	return eqStr(p.March, o.March) &&
		eqStr(p.July, o.July) &&
		eqStr(p.August, o.August) &&
		eqStr(p.December, o.December) &&
		eqStr(p.February, o.February) &&
		eqInt(p.FinalValue, o.FinalValue) &&
		p.ClosingKnowledge == o.ClosingKnowledge
}

// Accredited 期末分数达到及格线即视为已认定
func (p *PendingSubject) Accredited(passingMark int) bool {
	return p.FinalValue != nil && *p.FinalValue >= passingMark
}
