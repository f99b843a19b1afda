package dto

// ── 成绩锁定 DTO ──

// UpdateGradeLockRequest 更新成绩锁定配置（整体覆盖）
type UpdateGradeLockRequest struct {
	GeneralLock           bool   `json:"general_lock"`
	Period1MarkLocked     bool   `json:"period1_mark_locked"`
	Period1ValueLocked    bool   `json:"period1_value_locked"`
	Period2MarkLocked     bool   `json:"period2_mark_locked"`
	Period2ValueLocked    bool   `json:"period2_value_locked"`
	IntensificationLocked bool   `json:"intensification_locked"`
	FinalLocked           bool   `json:"final_locked"`
	NotesLocked           bool   `json:"notes_locked"`
	Message               string `json:"message" binding:"max=500"`
}

// GradeLockResponse 成绩锁定配置响应
type GradeLockResponse struct {
	TermID                string `json:"term_id"`
	GeneralLock           bool   `json:"general_lock"`
	Period1MarkLocked     bool   `json:"period1_mark_locked"`
	Period1ValueLocked    bool   `json:"period1_value_locked"`
	Period2MarkLocked     bool   `json:"period2_mark_locked"`
	Period2ValueLocked    bool   `json:"period2_value_locked"`
	IntensificationLocked bool   `json:"intensification_locked"`
	FinalLocked           bool   `json:"final_locked"`
	NotesLocked           bool   `json:"notes_locked"`
	Message               string `json:"message"`
}
