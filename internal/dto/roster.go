package dto

// ── 名单模块 DTO ──

// RosterRequest 名单查询参数
type RosterRequest struct {
	CourseID   string `form:"course_id"   binding:"required,uuid"`
	OfferingID string `form:"offering_id" binding:"required,uuid"`
	TermID     string `form:"term_id"     binding:"omitempty,uuid"` // 为空时使用当前学年
}

// RosterEntry 名单中的一名学生
type RosterEntry struct {
	StudentID           string `json:"student_id"`
	Name                string `json:"name"`
	Surname             string `json:"surname"`
	NationalID          string `json:"national_id"`
	CursationType       string `json:"cursation_type"` // first_time | retake
	ReferenceCourseID   string `json:"reference_course_id"`
	ReferenceCourse     string `json:"reference_course"`
	ReferenceGradeLevel int    `json:"reference_grade_level"`
	Subgroup            string `json:"subgroup,omitempty"`
}

// RosterSheetEntry 名单行 + 已有成绩
type RosterSheetEntry struct {
	RosterEntry
	Grade *GradeResponse `json:"grade"`
}

// RosterSheet 成绩录入页数据
type RosterSheet struct {
	Term     TermResponse       `json:"term"`
	Period   int                `json:"period"`
	Offering OfferingResponse   `json:"offering"`
	Editable bool               `json:"editable"` // 查询的是启用学年时可编辑
	Entries  []RosterSheetEntry `json:"entries"`
}
