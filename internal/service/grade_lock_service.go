package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"sistema-notas/backend/internal/dto"
	"sistema-notas/backend/internal/model"
	"sistema-notas/backend/internal/repository"
	"sistema-notas/backend/pkg/database"
	pkgerrors "sistema-notas/backend/pkg/errors"
)

// GradeLockService 成绩锁定配置业务接口
type GradeLockService interface {
	Get(ctx context.Context, termID string) (*dto.GradeLockResponse, error)
	Update(ctx context.Context, identity Identity, termID string, req *dto.UpdateGradeLockRequest) (*dto.GradeLockResponse, error)
}

type gradeLockService struct {
	repo   *repository.Repository
	caps   database.Capabilities
	terms  termResolver
	logger *zap.Logger
}

// NewGradeLockService 创建 GradeLockService 实例
func NewGradeLockService(repo *repository.Repository, caps database.Capabilities, logger *zap.Logger) GradeLockService {
	return &gradeLockService{
		repo:   repo,
		caps:   caps,
		terms:  termResolver{repo: repo},
		logger: logger,
	}
}

// Get 未配置过的学年返回全部解锁
func (s *gradeLockService) Get(ctx context.Context, termID string) (*dto.GradeLockResponse, error) {
	if !s.caps.GradeLocks {
		return nil, ErrGradeLocksUnavailable
	}
	term, err := s.terms.resolve(ctx, termID)
	if err != nil {
		return nil, err
	}

	lock, err := s.repo.GradeLock.Get(ctx, term.TermID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return toGradeLockResponse(&model.GradeLock{TermID: term.TermID}), nil
		}
		s.logger.Error("查询成绩锁定失败", zap.String("term_id", term.TermID), zap.Error(err))
		return nil, pkgerrors.Store("查询成绩锁定", err)
	}
	return toGradeLockResponse(lock), nil
}

func (s *gradeLockService) Update(ctx context.Context, identity Identity, termID string, req *dto.UpdateGradeLockRequest) (*dto.GradeLockResponse, error) {
	if !s.caps.GradeLocks {
		return nil, ErrGradeLocksUnavailable
	}
	term, err := s.terms.resolve(ctx, termID)
	if err != nil {
		return nil, err
	}

	lock := &model.GradeLock{
		TermID:                term.TermID,
		GeneralLock:           req.GeneralLock,
		Period1MarkLocked:     req.Period1MarkLocked,
		Period1ValueLocked:    req.Period1ValueLocked,
		Period2MarkLocked:     req.Period2MarkLocked,
		Period2ValueLocked:    req.Period2ValueLocked,
		IntensificationLocked: req.IntensificationLocked,
		FinalLocked:           req.FinalLocked,
		NotesLocked:           req.NotesLocked,
		Message:               req.Message,
	}
	lock.CreatedBy = identity.actorPtr()
	lock.UpdatedBy = identity.actorPtr()

	if err := s.repo.GradeLock.Upsert(ctx, lock); err != nil {
		s.logger.Error("更新成绩锁定失败", zap.String("term_id", term.TermID), zap.Error(err))
		return nil, pkgerrors.Store("更新成绩锁定", err)
	}

	s.logger.Info("成绩锁定已更新",
		zap.String("term_id", term.TermID),
		zap.Bool("general_lock", lock.GeneralLock),
		zap.String("by", identity.UserID),
	)
	return toGradeLockResponse(lock), nil
}

func toGradeLockResponse(l *model.GradeLock) *dto.GradeLockResponse {
	return &dto.GradeLockResponse{
		TermID:                l.TermID,
		GeneralLock:           l.GeneralLock,
		Period1MarkLocked:     l.Period1MarkLocked,
		Period1ValueLocked:    l.Period1ValueLocked,
		Period2MarkLocked:     l.Period2MarkLocked,
		Period2ValueLocked:    l.Period2ValueLocked,
		IntensificationLocked: l.IntensificationLocked,
		FinalLocked:           l.FinalLocked,
		NotesLocked:           l.NotesLocked,
		Message:               l.Message,
	}
}
