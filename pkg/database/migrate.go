package database

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunMigrations 执行 PostgreSQL 版本化迁移
// 自动检测当前版本并应用所有未执行的迁移
func RunMigrations(db *sql.DB, logger *zap.Logger) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("加载迁移文件失败: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("创建迁移驱动失败: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("初始化迁移实例失败: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("执行迁移失败: %w", err)
	}

	version, dirty, _ := m.Version()
	if dirty {
		logger.Warn("数据库迁移处于 dirty 状态", zap.Uint("version", version))
	} else {
		logger.Info("数据库迁移完成", zap.Uint("version", version))
	}

	return nil
}

// partialIndexes GORM 标签无法表达的部分唯一索引，与版本化迁移保持一致
var partialIndexes = []struct {
	table string
	sql   string
}{
	{"retake_assignments", `CREATE UNIQUE INDEX IF NOT EXISTS uq_retake_active
		ON retake_assignments (student_id, target_offering_id) WHERE status = 'active'`},
	{"enrollments", `CREATE UNIQUE INDEX IF NOT EXISTS uq_enrollment_active
		ON enrollments (student_id) WHERE status = 'active'`},
	{"pending_subjects", `CREATE UNIQUE INDEX IF NOT EXISTS uq_pending_active
		ON pending_subjects (student_id, offering_id, term_id) WHERE status = 'active'`},
}

// AutoMigrate SQLite 场景下用 GORM 建表，并补建部分唯一索引
func AutoMigrate(db *gorm.DB, models ...interface{}) error {
	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("AutoMigrate 失败: %w", err)
	}
	for _, idx := range partialIndexes {
		if !db.Migrator().HasTable(idx.table) {
			continue
		}
		if err := db.Exec(idx.sql).Error; err != nil {
			return fmt.Errorf("创建 %s 部分唯一索引失败: %w", idx.table, err)
		}
	}
	return nil
}
