package dto

// ── 待补科目（intensificación）DTO ──

// LenientProgress 宽松解析的补修阶段评价（AA / CCA / CSA）
// 规则同 LenientMark：任意 JSON 值均可接受，无法识别时视为未填写
type LenientProgress struct {
	Value *string
}

// ParseLenientProgress 按同样规则解析文本
func ParseLenientProgress(s string) LenientProgress {
	return LenientProgress{Value: pickCode(s, "AA", "CCA", "CSA")}
}

// UnmarshalJSON 实现 json.Unmarshaler
func (l *LenientProgress) UnmarshalJSON(b []byte) error {
	*l = ParseLenientProgress(jsonString(b))
	return nil
}

// MarshalJSON 实现 json.Marshaler
func (l LenientProgress) MarshalJSON() ([]byte, error) {
	return marshalCode(l.Value)
}

// AssignPendingRequest 登记待补科目请求
// OfferingID 为当前学年承担补修评价的开课
type AssignPendingRequest struct {
	StudentID        string `json:"student_id"        binding:"required,uuid"`
	OfferingID       string `json:"offering_id"       binding:"required,uuid"`
	OriginalYear     int    `json:"original_year"     binding:"required,min=2000,max=2100"`
	InitialKnowledge string `json:"initial_knowledge" binding:"required,max=2000"`
	Notes            string `json:"notes"             binding:"max=1000"`
}

// ChangePendingStatusRequest 启用或停用待补科目
type ChangePendingStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active inactive"`
}

// PendingListRequest 待补科目列表查询参数
// 教师只能看到自己任课开课下的记录；学生只能看到本人
type PendingListRequest struct {
	TermID     string `form:"term_id"     binding:"omitempty,uuid"`
	OfferingID string `form:"offering_id" binding:"omitempty,uuid"`
	CourseID   string `form:"course_id"   binding:"omitempty,uuid"`
	StudentID  string `form:"student_id"  binding:"omitempty,uuid"`
	Status     string `form:"status"      binding:"omitempty,oneof=active inactive"`
}

// PendingGradeEntry 单条待补科目的补修评价
// 整行覆盖写入：未提交或无法识别的字段视为清空
type PendingGradeEntry struct {
	PendingID        string          `json:"pending_id"        binding:"required,uuid"`
	March            LenientProgress `json:"march"`
	July             LenientProgress `json:"july"`
	August           LenientProgress `json:"august"`
	December         LenientProgress `json:"december"`
	February         LenientProgress `json:"february"`
	FinalValue       LenientInt      `json:"final_value"`
	ClosingKnowledge string          `json:"closing_knowledge" binding:"max=2000"`
}

// SavePendingGradesRequest 批量保存补修评价
type SavePendingGradesRequest struct {
	OfferingID string              `json:"offering_id" binding:"required,uuid"`
	TermID     string              `json:"term_id"     binding:"omitempty,uuid"`
	Entries    []PendingGradeEntry `json:"entries"     binding:"required,min=1,dive"`
}

// PendingResponse 待补科目响应
type PendingResponse struct {
	ID                string  `json:"id"`
	StudentID         string  `json:"student_id"`
	StudentName       string  `json:"student_name"`
	StudentNationalID string  `json:"student_national_id"`
	OfferingID        string  `json:"offering_id"`
	SubjectName       string  `json:"subject_name"`
	CourseName        string  `json:"course_name"`
	TermID            string  `json:"term_id"`
	OriginalYear      int     `json:"original_year"`
	InitialKnowledge  string  `json:"initial_knowledge"`
	March             *string `json:"march"`
	July              *string `json:"july"`
	August            *string `json:"august"`
	December          *string `json:"december"`
	February          *string `json:"february"`
	FinalValue        *int    `json:"final_value"`
	ClosingKnowledge  string  `json:"closing_knowledge"`
	Notes             string  `json:"notes"`
	Status            string  `json:"status"`
	Accredited        bool    `json:"accredited"`
}
