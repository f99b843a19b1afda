package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"sistema-notas/backend/internal/dto"
	"sistema-notas/backend/internal/model"
	"sistema-notas/backend/internal/repository"
	pkgerrors "sistema-notas/backend/pkg/errors"
)

// ── 学年模块业务错误 ──

var (
	ErrTermNotFound      = errors.New("学年不存在")
	ErrNoActiveTerm      = errors.New("尚未启用任何学年，系统处于只读状态")
	ErrTermDateInvalid   = errors.New("学年结束日期必须晚于开始日期")
	ErrTermYearDuplicate = errors.New("该年份的学年已存在")
	ErrTermReadOnly      = errors.New("非当前学年的数据为只读")
)

// DefaultPeriodSplitMonths 学年开始后满 3 个月进入第二学段
const DefaultPeriodSplitMonths = 3

const dateLayout = "2006-01-02"

// CurrentPeriod 返回 now 所处的学段：晚于 start_date + 3 个月为 2，否则为 1
func CurrentPeriod(term *model.AcademicTerm, now time.Time) int {
	return periodAfter(term, now, DefaultPeriodSplitMonths)
}

func periodAfter(term *model.AcademicTerm, now time.Time, months int) int {
	if now.After(term.StartDate.AddDate(0, months, 0)) {
		return 2
	}
	return 1
}

// termResolver 学年解析，名单、成绩等服务共用
type termResolver struct {
	repo        *repository.Repository
	splitMonths int
	now         func() time.Time
}

// active 当前启用学年，没有时返回 ErrNoActiveTerm
func (r termResolver) active(ctx context.Context) (*model.AcademicTerm, error) {
	term, err := r.repo.Term.GetActive(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoActiveTerm
		}
		return nil, pkgerrors.Store("查询启用学年", err)
	}
	return term, nil
}

// resolve termID 为空时取启用学年
func (r termResolver) resolve(ctx context.Context, termID string) (*model.AcademicTerm, error) {
	if termID == "" {
		return r.active(ctx)
	}
	term, err := r.repo.Term.GetByID(ctx, termID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTermNotFound
		}
		return nil, pkgerrors.Store("查询学年", err)
	}
	return term, nil
}

func (r termResolver) period(term *model.AcademicTerm) int {
	months := r.splitMonths
	if months <= 0 {
		months = DefaultPeriodSplitMonths
	}
	return periodAfter(term, r.now(), months)
}

// TermService 学年业务接口
type TermService interface {
	Create(ctx context.Context, req *dto.CreateTermRequest, callerID string) (*dto.TermResponse, error)
	GetByID(ctx context.Context, id string) (*dto.TermResponse, error)
	List(ctx context.Context) ([]dto.TermResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateTermRequest, callerID string) (*dto.TermResponse, error)
	Activate(ctx context.Context, id string, callerID string) error
	GetActive(ctx context.Context) (*model.AcademicTerm, error)
	GetActivePeriod(ctx context.Context) (*dto.ActivePeriodResponse, error)
}

type termService struct {
	terms  termResolver
	repo   *repository.Repository
	logger *zap.Logger
}

// NewTermService 创建 TermService 实例
func NewTermService(repo *repository.Repository, splitMonths int, logger *zap.Logger) TermService {
	return NewTermServiceWithClock(repo, splitMonths, time.Now, logger)
}

// NewTermServiceWithClock 指定时钟创建 TermService（测试使用）
func NewTermServiceWithClock(repo *repository.Repository, splitMonths int, now func() time.Time, logger *zap.Logger) TermService {
	return &termService{
		terms:  termResolver{repo: repo, splitMonths: splitMonths, now: now},
		repo:   repo,
		logger: logger,
	}
}

// ────────────────────── Create ──────────────────────

func (s *termService) Create(ctx context.Context, req *dto.CreateTermRequest, callerID string) (*dto.TermResponse, error) {
	startDate, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		return nil, ErrTermDateInvalid
	}
	endDate, err := time.Parse(dateLayout, req.EndDate)
	if err != nil {
		return nil, ErrTermDateInvalid
	}
	if !endDate.After(startDate) {
		return nil, ErrTermDateInvalid
	}

	term := &model.AcademicTerm{
		Year:      req.Year,
		StartDate: startDate,
		EndDate:   endDate,
		IsActive:  false,
	}
	term.CreatedBy = &callerID
	term.UpdatedBy = &callerID

	if err := s.repo.Term.Create(ctx, term); err != nil {
		if repository.IsDuplicateKey(err) {
			return nil, ErrTermYearDuplicate
		}
		s.logger.Error("创建学年失败", zap.Int("year", req.Year), zap.Error(err))
		return nil, pkgerrors.Store("创建学年", err)
	}

	return toTermResponse(term), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *termService) GetByID(ctx context.Context, id string) (*dto.TermResponse, error) {
	term, err := s.terms.resolve(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrTermNotFound) {
			s.logger.Error("查询学年失败", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}
	return toTermResponse(term), nil
}

// ────────────────────── List ──────────────────────

func (s *termService) List(ctx context.Context) ([]dto.TermResponse, error) {
	terms, err := s.repo.Term.List(ctx)
	if err != nil {
		s.logger.Error("列出学年失败", zap.Error(err))
		return nil, pkgerrors.Store("列出学年", err)
	}

	result := make([]dto.TermResponse, 0, len(terms))
	for i := range terms {
		result = append(result, *toTermResponse(&terms[i]))
	}
	return result, nil
}

// ────────────────────── Update ──────────────────────

func (s *termService) Update(ctx context.Context, id string, req *dto.UpdateTermRequest, callerID string) (*dto.TermResponse, error) {
	term, err := s.terms.resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.StartDate != nil {
		startDate, err := time.Parse(dateLayout, *req.StartDate)
		if err != nil {
			return nil, ErrTermDateInvalid
		}
		term.StartDate = startDate
	}
	if req.EndDate != nil {
		endDate, err := time.Parse(dateLayout, *req.EndDate)
		if err != nil {
			return nil, ErrTermDateInvalid
		}
		term.EndDate = endDate
	}
	if !term.EndDate.After(term.StartDate) {
		return nil, ErrTermDateInvalid
	}

	term.UpdatedBy = &callerID

	if err := s.repo.Term.Update(ctx, term); err != nil {
		s.logger.Error("更新学年失败", zap.String("id", id), zap.Error(err))
		return nil, pkgerrors.Store("更新学年", err)
	}

	return toTermResponse(term), nil
}

// ────────────────────── Activate ──────────────────────

func (s *termService) Activate(ctx context.Context, id string, callerID string) error {
	term, err := s.terms.resolve(ctx, id)
	if err != nil {
		return err
	}

	// 使用事务保证 ClearActive + Update 的原子性
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return pkgerrors.Store("开启事务", err)
	}
	defer func() {
		if r := recover(); r != nil {
			if tx != nil {
				tx.Rollback()
			}
			panic(r)
		}
	}()

	txRepo := s.repo.WithTx(tx)

	// 先将所有学年置为非启用
	if err := txRepo.Term.ClearActive(ctx); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("清除启用学年失败", zap.Error(err))
		return pkgerrors.Store("清除启用学年", err)
	}

	term.IsActive = true
	term.UpdatedBy = &callerID

	if err := txRepo.Term.Update(ctx, term); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		s.logger.Error("启用学年失败", zap.String("id", id), zap.Error(err))
		return pkgerrors.Store("启用学年", err)
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return pkgerrors.Store("提交事务", err)
		}
	}

	s.logger.Info("学年已启用", zap.String("term_id", id), zap.Int("year", term.Year), zap.String("by", callerID))
	return nil
}

// ────────────────────── GetActive ──────────────────────

func (s *termService) GetActive(ctx context.Context) (*model.AcademicTerm, error) {
	return s.terms.active(ctx)
}

func (s *termService) GetActivePeriod(ctx context.Context) (*dto.ActivePeriodResponse, error) {
	term, err := s.terms.active(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.ActivePeriodResponse{
		Term:   *toTermResponse(term),
		Period: s.terms.period(term),
	}, nil
}

// ── 内部辅助方法 ──

func toTermResponse(term *model.AcademicTerm) *dto.TermResponse {
	return &dto.TermResponse{
		ID:        term.TermID,
		Year:      term.Year,
		StartDate: term.StartDate.Format(dateLayout),
		EndDate:   term.EndDate.Format(dateLayout),
		IsActive:  term.IsActive,
	}
}
