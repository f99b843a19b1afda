package service

import (
	"testing"
	"time"

	"gorm.io/gorm"

	"sistema-notas/backend/internal/model"
	"sistema-notas/backend/internal/repository"
	"sistema-notas/backend/internal/repository/repotest"
	"sistema-notas/backend/pkg/database"
)

var allCaps = database.Capabilities{Retakes: true, GradeLocks: true, PendingSubjects: true}

// fixedNow 示例学年内的第 1 学段日期
func fixedNow() time.Time {
	return time.Date(2025, 4, 15, 10, 0, 0, 0, time.UTC)
}

// seedSchool SQLite 内存库 + 重修示例数据
func seedSchool(t *testing.T) (*gorm.DB, *repository.Repository, *repotest.School) {
	t.Helper()
	db := repotest.NewDB(t)
	school := repotest.SeedSchool(t, db)
	return db, repository.NewRepository(db), school
}

func adminIdentity() Identity {
	return Identity{UserID: "00000000-0000-0000-0000-0000000000a1", Role: model.RoleAdmin}
}

func teacherIdentity(u *model.User) Identity {
	return Identity{UserID: u.UserID, Role: model.RoleTeacher}
}

func countRows(t *testing.T, db *gorm.DB, m interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	if err := db.Model(m).Where(query, args...).Count(&n).Error; err != nil {
		t.Fatalf("统计 %T 失败: %v", m, err)
	}
	return n
}
