package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"sistema-notas/backend/config"
	"sistema-notas/backend/internal/dto"
	"sistema-notas/backend/internal/model"
	"sistema-notas/backend/internal/repository"
	"sistema-notas/backend/pkg/database"
	pkgerrors "sistema-notas/backend/pkg/errors"
)

// ── 待补科目模块业务错误 ──

var (
	ErrPendingNotFound         = errors.New("待补科目记录不存在")
	ErrPendingDuplicate        = errors.New("该学生在此开课已有进行中的待补科目")
	ErrPendingInvalidReference = errors.New("学生或开课无效")
	ErrPendingYearInvalid      = errors.New("原修读年份必须早于当前学年")
	ErrPendingForbidden        = errors.New("无权查看该待补科目")
	ErrPendingUnavailable      = errors.New("待补科目功能未启用（缺少 pending_subjects 表）")
)

// PendingService 待补科目登记与查询业务接口
// 补修评价的写入见 GradeService.SavePending
type PendingService interface {
	Assign(ctx context.Context, identity Identity, req *dto.AssignPendingRequest) (*dto.PendingResponse, error)
	ChangeStatus(ctx context.Context, identity Identity, id string, status string) (*dto.PendingResponse, error)
	GetByID(ctx context.Context, identity Identity, id string) (*dto.PendingResponse, error)
	List(ctx context.Context, identity Identity, req *dto.PendingListRequest) ([]dto.PendingResponse, error)
}

type pendingService struct {
	repo        *repository.Repository
	caps        database.Capabilities
	terms       termResolver
	passingMark int
	logger      *zap.Logger
}

// NewPendingService 创建 PendingService 实例
func NewPendingService(repo *repository.Repository, caps database.Capabilities, school config.SchoolConfig, logger *zap.Logger) PendingService {
	passing := school.PassingMark
	if passing <= 0 {
		passing = 4
	}
	return &pendingService{
		repo:        repo,
		caps:        caps,
		terms:       termResolver{repo: repo, splitMonths: school.PeriodSplitMonths, now: time.Now},
		passingMark: passing,
		logger:      logger,
	}
}

// ────────────────────── Assign ──────────────────────

func (s *pendingService) Assign(ctx context.Context, identity Identity, req *dto.AssignPendingRequest) (*dto.PendingResponse, error) {
	if !s.caps.PendingSubjects {
		return nil, ErrPendingUnavailable
	}

	term, err := s.terms.active(ctx)
	if err != nil {
		return nil, err
	}
	if req.OriginalYear >= term.Year {
		return nil, ErrPendingYearInvalid
	}

	student, err := s.repo.User.GetByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPendingInvalidReference
		}
		return nil, s.storeErr("查询学生", err)
	}
	if student.Role != model.RoleStudent {
		return nil, ErrPendingInvalidReference
	}

	if _, err := s.repo.Offering.GetByID(ctx, req.OfferingID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPendingInvalidReference
		}
		return nil, s.storeErr("查询开课", err)
	}

	exists, err := s.repo.Pending.ExistsActive(ctx, student.UserID, req.OfferingID, term.TermID, "")
	if err != nil {
		return nil, s.storeErr("检查待补科目唯一性", err)
	}
	if exists {
		return nil, ErrPendingDuplicate
	}

	pending := &model.PendingSubject{
		StudentID:        student.UserID,
		OfferingID:       req.OfferingID,
		TermID:           term.TermID,
		OriginalYear:     req.OriginalYear,
		InitialKnowledge: strings.TrimSpace(req.InitialKnowledge),
		Notes:            strings.TrimSpace(req.Notes),
		Status:           model.PendingActive,
	}
	pending.CreatedBy = identity.actorPtr()
	pending.UpdatedBy = identity.actorPtr()

	if err := s.repo.Pending.Create(ctx, pending); err != nil {
		switch {
		case repository.IsDuplicateKey(err):
			return nil, ErrPendingDuplicate
		case repository.IsForeignKeyViolation(err):
			s.logger.Warn("待补科目引用不存在",
				zap.String("student_id", student.UserID),
				zap.String("constraint", repository.ConstraintName(err)))
			return nil, ErrPendingInvalidReference
		}
		return nil, s.storeErr("登记待补科目", err)
	}

	s.logger.Info("已登记待补科目",
		zap.String("pending_id", pending.PendingID),
		zap.String("student_id", pending.StudentID),
		zap.String("offering_id", pending.OfferingID),
		zap.Int("original_year", pending.OriginalYear),
		zap.String("by", identity.UserID),
	)
	return s.GetByID(ctx, identity, pending.PendingID)
}

// ────────────────────── ChangeStatus ──────────────────────

// ChangeStatus 停用即软删除；重新启用时不能与另一条 active 记录冲突
func (s *pendingService) ChangeStatus(ctx context.Context, identity Identity, id string, status string) (*dto.PendingResponse, error) {
	if !s.caps.PendingSubjects {
		return nil, ErrPendingUnavailable
	}

	pending, err := s.getPending(ctx, id)
	if err != nil {
		return nil, err
	}
	if pending.Status == status {
		return s.toPendingResponse(pending), nil
	}

	if status == model.PendingActive {
		exists, err := s.repo.Pending.ExistsActive(ctx, pending.StudentID, pending.OfferingID, pending.TermID, pending.PendingID)
		if err != nil {
			return nil, s.storeErr("检查待补科目唯一性", err)
		}
		if exists {
			return nil, ErrPendingDuplicate
		}
	}

	if err := s.repo.Pending.SetStatus(ctx, id, status, identity.UserID); err != nil {
		if repository.IsDuplicateKey(err) {
			return nil, ErrPendingDuplicate
		}
		return nil, s.storeErr("更新待补科目状态", err)
	}

	s.logger.Info("待补科目状态已变更",
		zap.String("pending_id", id),
		zap.String("from", pending.Status),
		zap.String("to", status),
		zap.String("by", identity.UserID),
	)
	pending.Status = status
	return s.toPendingResponse(pending), nil
}

// ────────────────────── Query ──────────────────────

func (s *pendingService) GetByID(ctx context.Context, identity Identity, id string) (*dto.PendingResponse, error) {
	if !s.caps.PendingSubjects {
		return nil, ErrPendingUnavailable
	}
	pending, err := s.getPending(ctx, id)
	if err != nil {
		return nil, err
	}

	switch {
	case identity.IsStaff():
	case identity.Role == model.RoleStudent:
		if pending.StudentID != identity.UserID {
			return nil, ErrPendingForbidden
		}
	default:
		if pending.Offering == nil || !identity.CanManageOffering(pending.Offering) {
			return nil, ErrPendingForbidden
		}
	}
	return s.toPendingResponse(pending), nil
}

// List 教师只看自己任课开课下的 active 记录，学生只看本人
func (s *pendingService) List(ctx context.Context, identity Identity, req *dto.PendingListRequest) ([]dto.PendingResponse, error) {
	if !s.caps.PendingSubjects {
		return []dto.PendingResponse{}, nil
	}

	term, err := s.terms.resolve(ctx, req.TermID)
	if err != nil {
		return nil, err
	}

	filter := repository.PendingFilter{
		TermID:     term.TermID,
		OfferingID: req.OfferingID,
		CourseID:   req.CourseID,
		StudentID:  req.StudentID,
		Status:     req.Status,
	}
	switch {
	case identity.IsStaff():
	case identity.Role == model.RoleTeacher:
		filter.TeacherID = identity.UserID
		filter.Status = model.PendingActive
	case identity.Role == model.RoleStudent:
		filter.StudentID = identity.UserID
		filter.Status = model.PendingActive
	default:
		return nil, ErrPendingForbidden
	}

	list, err := s.repo.Pending.List(ctx, filter)
	if err != nil {
		return nil, s.storeErr("列出待补科目", err)
	}

	result := make([]dto.PendingResponse, 0, len(list))
	for i := range list {
		result = append(result, *s.toPendingResponse(&list[i]))
	}
	return result, nil
}

// ── 内部辅助方法 ──

func (s *pendingService) getPending(ctx context.Context, id string) (*model.PendingSubject, error) {
	pending, err := s.repo.Pending.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPendingNotFound
		}
		return nil, s.storeErr("查询待补科目", err)
	}
	return pending, nil
}

func (s *pendingService) storeErr(op string, err error) error {
	s.logger.Error(op+"失败", zap.Error(err))
	return pkgerrors.Store(op, err)
}

func (s *pendingService) toPendingResponse(p *model.PendingSubject) *dto.PendingResponse {
	resp := &dto.PendingResponse{
		ID:               p.PendingID,
		StudentID:        p.StudentID,
		OfferingID:       p.OfferingID,
		TermID:           p.TermID,
		OriginalYear:     p.OriginalYear,
		InitialKnowledge: p.InitialKnowledge,
		March:            p.March,
		July:             p.July,
		August:           p.August,
		December:         p.December,
		February:         p.February,
		FinalValue:       p.FinalValue,
		ClosingKnowledge: p.ClosingKnowledge,
		Notes:            p.Notes,
		Status:           p.Status,
		Accredited:       p.Accredited(s.passingMark),
	}
	if p.Student != nil {
		resp.StudentName = p.Student.Surname + ", " + p.Student.Name
		resp.StudentNationalID = p.Student.NationalID
	}
	if p.Offering != nil {
		resp.SubjectName = p.Offering.DisplayName()
		if p.Offering.Course != nil {
			resp.CourseName = p.Offering.Course.Name
		}
	}
	return resp
}
