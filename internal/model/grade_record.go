package model

import "gorm.io/gorm"

// 定性评价
const (
	MarkTEA = "TEA" // 已达到预期
	MarkTEP = "TEP" // 进展中
	MarkTED = "TED" // 存在困难
)

// 修读类型
const (
	CursationFirstTime = "first_time"
	CursationRetake    = "retake"
)

// 期末状态
const (
	FinalStatusApproved = "approved"
	FinalStatusPending  = "pending"
)

// GradeRecord 成绩表 — 对应 grade_records
// 每个 (student, offering, term) 至多一条
type GradeRecord struct {
	GradeID              string  `gorm:"type:uuid;primaryKey"                                                   json:"grade_id"`
	StudentID            string  `gorm:"type:uuid;not null;uniqueIndex:uq_grade_student_offering_term,priority:1" json:"student_id"`
	OfferingID           string  `gorm:"type:uuid;not null;uniqueIndex:uq_grade_student_offering_term,priority:2" json:"offering_id"`
	TermID               string  `gorm:"type:uuid;not null;uniqueIndex:uq_grade_student_offering_term,priority:3" json:"term_id"`
	Period1Mark          *string `gorm:"type:varchar(3)"                                                        json:"period1_mark"`
	Period1Value         *int    `                                                                              json:"period1_value"`
	Period2Mark          *string `gorm:"type:varchar(3)"                                                        json:"period2_mark"`
	Period2Value         *int    `                                                                              json:"period2_value"`
	IntensificationValue *int    `                                                                              json:"intensification_value"`
	FinalValue           *int    `                                                                              json:"final_value"`
	CursationType        string  `gorm:"type:varchar(20);not null;default:'first_time'"                         json:"cursation_type"`
	Notes                string  `gorm:"type:text"                                                              json:"notes"`
	FinalStatus          string  `gorm:"type:varchar(20);not null;default:'pending'"                            json:"final_status"`
	BaseModel

	// 展示字段，由 repository 回填
	Offering *SubjectOffering `gorm:"-" json:"offering,omitempty"`
}

// TableName 指定表名
func (GradeRecord) TableName() string { return "grade_records" }

// BeforeCreate 生成主键
func (g *GradeRecord) BeforeCreate(tx *gorm.DB) error {
	ensureID(&g.GradeID)
	return nil
}

// ValidMark 是否为合法的定性评价
func ValidMark(mark string) bool {
	switch mark {
	case MarkTEA, MarkTEP, MarkTED:
		return true
	}
	return false
}

// DeriveFinalStatus 期末成绩达到及格线为 approved，否则（含未填写）为 pending
func DeriveFinalStatus(final *int, passingMark int) string {
	if final != nil && *final >= passingMark {
		return FinalStatusApproved
	}
	return FinalStatusPending
}

// SameValues 比较可编辑字段是否一致，用于判断保存是否为无变化写入
func (g *GradeRecord) SameValues(o *GradeRecord) bool {
	return eqStr(g.Period1Mark, o.Period1Mark) &&
		eqInt(g.Period1Value, o.Period1Value) &&
		eqStr(g.Period2Mark, o.Period2Mark) &&
		eqInt(g.Period2Value, o.Period2Value) &&
		eqInt(g.IntensificationValue, o.IntensificationValue) &&
		eqInt(g.FinalValue, o.FinalValue) &&
		g.CursationType == o.CursationType &&
		g.Notes == o.Notes &&
		g.FinalStatus == o.FinalStatus
}

func eqInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func eqStr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
