package dto

// ── 重修模块 DTO ──

// AssignRetakeRequest 分配重修请求
type AssignRetakeRequest struct {
	StudentID           string  `json:"student_id"            binding:"required,uuid"`
	TargetOfferingID    string  `json:"target_offering_id"    binding:"required,uuid"`
	LiberatedOfferingID *string `json:"liberated_offering_id" binding:"omitempty,uuid"`
	Notes               string  `json:"notes"                 binding:"max=500"`
}

// ChangeRetakeStatusRequest 变更重修状态请求
type ChangeRetakeStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active finished cancelled"`
}

// DeleteRetakeRequest 删除重修参数
// 存在成绩且 force=false 时不删除，仅返回提示
type DeleteRetakeRequest struct {
	Force bool `form:"force"`
}

// RetakeListRequest 重修列表查询参数
type RetakeListRequest struct {
	TermID string `form:"term_id" binding:"omitempty,uuid"`
	Status string `form:"status"  binding:"omitempty,oneof=active finished cancelled"`
}

// RetakeResponse 重修信息响应
type RetakeResponse struct {
	ID                  string `json:"id"`
	StudentID           string `json:"student_id"`
	StudentName         string `json:"student_name"`
	StudentNationalID   string `json:"student_national_id"`
	CurrentCourse       string `json:"current_course,omitempty"`
	TargetOfferingID    string `json:"target_offering_id"`
	TargetSubject       string `json:"target_subject"`
	TargetCourse        string `json:"target_course"`
	LiberatedOfferingID string `json:"liberated_offering_id,omitempty"`
	LiberatedSubject    string `json:"liberated_subject,omitempty"`
	TermID              string `json:"term_id"`
	Status              string `json:"status"`
	AssignedAt          string `json:"assigned_at"`
	Notes               string `json:"notes"`
	DependentGrades     int64  `json:"dependent_grades"`
}

// RetakeDeleteResult 删除重修结果
// HasDependentGrades=true 且 Deleted=false 表示需要确认后以 force=true 重新调用
type RetakeDeleteResult struct {
	Deleted            bool  `json:"deleted"`
	HasDependentGrades bool  `json:"has_dependent_grades"`
	DependentGrades    int64 `json:"dependent_grades"`
	GradesDeleted      int64 `json:"grades_deleted"`
}

// RetakeStatsResponse 重修统计
type RetakeStatsResponse struct {
	TermID    string `json:"term_id"`
	Total     int64  `json:"total"`
	Active    int64  `json:"active"`
	Finished  int64  `json:"finished"`
	Cancelled int64  `json:"cancelled"`
}
