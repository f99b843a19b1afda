package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Capabilities 启动时一次性探测的库表能力
// 旧库可能尚未创建重修表，此时名单计算按"无重修"处理，而不是每个请求都去探测
type Capabilities struct {
	Retakes         bool
	GradeLocks      bool
	PendingSubjects bool
}

// DetectCapabilities 探测可选表是否存在
func DetectCapabilities(db *gorm.DB, logger *zap.Logger) Capabilities {
	m := db.Migrator()
	caps := Capabilities{
		Retakes:         m.HasTable("retake_assignments"),
		GradeLocks:      m.HasTable("grade_locks"),
		PendingSubjects: m.HasTable("pending_subjects"),
	}
	if !caps.Retakes {
		logger.Warn("未检测到 retake_assignments 表，重修功能已降级为只读空集")
	}
	if !caps.GradeLocks {
		logger.Warn("未检测到 grade_locks 表，成绩锁定功能不可用")
	}
	if !caps.PendingSubjects {
		logger.Warn("未检测到 pending_subjects 表，待补科目功能不可用")
	}
	return caps
}
