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
	"sistema-notas/backend/pkg/database"
	pkgerrors "sistema-notas/backend/pkg/errors"
)

// ── 重修模块业务错误 ──

var (
	ErrRetakeNotFound         = errors.New("重修记录不存在")
	ErrRetakeDuplicate        = errors.New("该学生已有此开课的进行中重修")
	ErrRetakeInvalidReference = errors.New("学生或开课无效")
	ErrRetakeInvalidStatus    = errors.New("重修状态无效")
	ErrRetakesUnavailable     = errors.New("重修功能未启用（缺少 retake_assignments 表）")
)

// RetakeService 重修生命周期业务接口
//
// 状态机：active → finished | cancelled，finished | cancelled → active；写入相同状态为空操作
type RetakeService interface {
	Assign(ctx context.Context, identity Identity, req *dto.AssignRetakeRequest) (*dto.RetakeResponse, error)
	ChangeStatus(ctx context.Context, identity Identity, id string, status string) (*dto.RetakeResponse, error)
	Delete(ctx context.Context, identity Identity, id string, force bool) (*dto.RetakeDeleteResult, error)
	GetByID(ctx context.Context, id string) (*dto.RetakeResponse, error)
	List(ctx context.Context, req *dto.RetakeListRequest) ([]dto.RetakeResponse, error)
	Stats(ctx context.Context, termID string) (*dto.RetakeStatsResponse, error)
}

type retakeService struct {
	repo   *repository.Repository
	caps   database.Capabilities
	terms  termResolver
	logger *zap.Logger
}

// NewRetakeService 创建 RetakeService 实例
func NewRetakeService(repo *repository.Repository, caps database.Capabilities, logger *zap.Logger) RetakeService {
	return &retakeService{
		repo:   repo,
		caps:   caps,
		terms:  termResolver{repo: repo, now: time.Now},
		logger: logger,
	}
}

// ────────────────────── Assign ──────────────────────

func (s *retakeService) Assign(ctx context.Context, identity Identity, req *dto.AssignRetakeRequest) (*dto.RetakeResponse, error) {
	if !s.caps.Retakes {
		return nil, ErrRetakesUnavailable
	}

	term, err := s.terms.active(ctx)
	if err != nil {
		return nil, err
	}

	// 1. 学生必须存在且为学生账号
	student, err := s.repo.User.GetByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRetakeInvalidReference
		}
		return nil, s.storeErr("查询学生", err)
	}
	if student.Role != model.RoleStudent {
		return nil, ErrRetakeInvalidReference
	}

	// 2. 目标开课
	if _, err := s.getOffering(ctx, req.TargetOfferingID); err != nil {
		return nil, err
	}

	// 3. 免修开课：不能与目标相同，且必须属于学生当前班级
	if req.LiberatedOfferingID != nil {
		if *req.LiberatedOfferingID == req.TargetOfferingID {
			return nil, ErrRetakeInvalidReference
		}
		liberated, err := s.getOffering(ctx, *req.LiberatedOfferingID)
		if err != nil {
			return nil, err
		}
		enrollment, err := s.repo.Enrollment.GetActiveByStudent(ctx, student.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrRetakeInvalidReference
			}
			return nil, s.storeErr("查询学生注册", err)
		}
		if liberated.CourseID != enrollment.CourseID {
			return nil, ErrRetakeInvalidReference
		}
	}

	// 4. 唯一性
	exists, err := s.repo.Retake.ExistsActive(ctx, student.UserID, req.TargetOfferingID, "")
	if err != nil {
		return nil, s.storeErr("检查重修唯一性", err)
	}
	if exists {
		return nil, ErrRetakeDuplicate
	}

	retake := &model.RetakeAssignment{
		StudentID:           student.UserID,
		TargetOfferingID:    req.TargetOfferingID,
		LiberatedOfferingID: req.LiberatedOfferingID,
		TermID:              term.TermID,
		Status:              model.RetakeStatusActive,
		AssignedAt:          s.terms.now(),
		Notes:               req.Notes,
	}
	retake.CreatedBy = identity.actorPtr()
	retake.UpdatedBy = identity.actorPtr()

	if err := s.repo.Retake.Create(ctx, retake); err != nil {
		switch {
		case repository.IsDuplicateKey(err):
			// 并发插入被部分唯一索引拦截
			return nil, ErrRetakeDuplicate
		case repository.IsForeignKeyViolation(err):
			s.logger.Warn("重修引用不存在",
				zap.String("student_id", student.UserID),
				zap.String("constraint", repository.ConstraintName(err)))
			return nil, ErrRetakeInvalidReference
		}
		return nil, s.storeErr("创建重修", err)
	}

	s.logger.Info("已分配重修",
		zap.String("retake_id", retake.RetakeID),
		zap.String("student_id", retake.StudentID),
		zap.String("target_offering_id", retake.TargetOfferingID),
		zap.String("by", identity.UserID),
	)
	return s.GetByID(ctx, retake.RetakeID)
}

// ────────────────────── ChangeStatus ──────────────────────

func (s *retakeService) ChangeStatus(ctx context.Context, identity Identity, id string, status string) (*dto.RetakeResponse, error) {
	if !s.caps.Retakes {
		return nil, ErrRetakesUnavailable
	}
	if !model.ValidRetakeStatus(status) {
		return nil, ErrRetakeInvalidStatus
	}

	retake, err := s.getRetake(ctx, id)
	if err != nil {
		return nil, err
	}
	if retake.Status == status {
		return s.toRetakeResponse(ctx, retake)
	}

	// 重新启用时不能与另一条 active 记录冲突
	if status == model.RetakeStatusActive {
		exists, err := s.repo.Retake.ExistsActive(ctx, retake.StudentID, retake.TargetOfferingID, retake.RetakeID)
		if err != nil {
			return nil, s.storeErr("检查重修唯一性", err)
		}
		if exists {
			return nil, ErrRetakeDuplicate
		}
	}

	if err := s.repo.Retake.UpdateStatus(ctx, id, status, identity.UserID); err != nil {
		if repository.IsDuplicateKey(err) {
			return nil, ErrRetakeDuplicate
		}
		return nil, s.storeErr("更新重修状态", err)
	}

	s.logger.Info("重修状态已变更",
		zap.String("retake_id", id),
		zap.String("from", retake.Status),
		zap.String("to", status),
		zap.String("by", identity.UserID),
	)
	retake.Status = status
	return s.toRetakeResponse(ctx, retake)
}

// ────────────────────── Delete ──────────────────────

// Delete 删除重修
// 依赖成绩 = 该学生在目标开课、重修所属学年的成绩记录
//   - 无依赖成绩：直接删除
//   - 有依赖成绩且 force=false：不做任何修改，返回提示
//   - 有依赖成绩且 force=true：同一事务内删除成绩与重修
func (s *retakeService) Delete(ctx context.Context, identity Identity, id string, force bool) (*dto.RetakeDeleteResult, error) {
	if !s.caps.Retakes {
		return nil, ErrRetakesUnavailable
	}

	retake, err := s.getRetake(ctx, id)
	if err != nil {
		return nil, err
	}

	dependent, err := s.repo.Grade.Count(ctx, retake.StudentID, retake.TargetOfferingID, retake.TermID)
	if err != nil {
		return nil, s.storeErr("统计依赖成绩", err)
	}

	if dependent == 0 {
		if err := s.repo.Retake.Delete(ctx, id); err != nil {
			return nil, s.storeErr("删除重修", err)
		}
		s.logger.Info("重修已删除", zap.String("retake_id", id), zap.String("by", identity.UserID))
		return &dto.RetakeDeleteResult{Deleted: true}, nil
	}

	if !force {
		return &dto.RetakeDeleteResult{
			HasDependentGrades: true,
			DependentGrades:    dependent,
		}, nil
	}

	var gradesDeleted int64
	err = s.repo.Atomic(ctx,
		func(ctx context.Context, tx *repository.Repository) error {
			n, err := tx.Grade.DeleteFor(ctx, retake.StudentID, retake.TargetOfferingID, retake.TermID)
			gradesDeleted = n
			return err
		},
		func(ctx context.Context, tx *repository.Repository) error {
			return tx.Retake.Delete(ctx, id)
		},
	)
	if err != nil {
		s.logger.Error("级联删除重修失败，已回滚",
			zap.String("retake_id", id),
			zap.Int64("dependent_grades", dependent),
			zap.Error(err),
		)
		return nil, pkgerrors.Store("级联删除重修", err)
	}

	s.logger.Info("重修及其成绩已删除",
		zap.String("retake_id", id),
		zap.Int64("grades_deleted", gradesDeleted),
		zap.String("by", identity.UserID),
	)
	return &dto.RetakeDeleteResult{
		Deleted:            true,
		HasDependentGrades: true,
		DependentGrades:    dependent,
		GradesDeleted:      gradesDeleted,
	}, nil
}

// ────────────────────── Query ──────────────────────

func (s *retakeService) GetByID(ctx context.Context, id string) (*dto.RetakeResponse, error) {
	if !s.caps.Retakes {
		return nil, ErrRetakesUnavailable
	}
	retake, err := s.getRetake(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toRetakeResponse(ctx, retake)
}

func (s *retakeService) List(ctx context.Context, req *dto.RetakeListRequest) ([]dto.RetakeResponse, error) {
	if !s.caps.Retakes {
		return []dto.RetakeResponse{}, nil
	}

	term, err := s.terms.resolve(ctx, req.TermID)
	if err != nil {
		return nil, err
	}

	retakes, err := s.repo.Retake.List(ctx, term.TermID, req.Status)
	if err != nil {
		return nil, s.storeErr("列出重修", err)
	}

	result := make([]dto.RetakeResponse, 0, len(retakes))
	for i := range retakes {
		resp, err := s.toRetakeResponse(ctx, &retakes[i])
		if err != nil {
			return nil, err
		}
		result = append(result, *resp)
	}
	return result, nil
}

func (s *retakeService) Stats(ctx context.Context, termID string) (*dto.RetakeStatsResponse, error) {
	term, err := s.terms.resolve(ctx, termID)
	if err != nil {
		return nil, err
	}

	stats := &dto.RetakeStatsResponse{TermID: term.TermID}
	if !s.caps.Retakes {
		return stats, nil
	}

	counts, err := s.repo.Retake.CountByStatus(ctx, term.TermID)
	if err != nil {
		return nil, s.storeErr("统计重修", err)
	}
	stats.Active = counts[model.RetakeStatusActive]
	stats.Finished = counts[model.RetakeStatusFinished]
	stats.Cancelled = counts[model.RetakeStatusCancelled]
	stats.Total = stats.Active + stats.Finished + stats.Cancelled
	return stats, nil
}

// ── 内部辅助方法 ──

func (s *retakeService) getRetake(ctx context.Context, id string) (*model.RetakeAssignment, error) {
	retake, err := s.repo.Retake.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRetakeNotFound
		}
		return nil, s.storeErr("查询重修", err)
	}
	return retake, nil
}

// getOffering 重修引用的开课不存在时返回 ErrRetakeInvalidReference
func (s *retakeService) getOffering(ctx context.Context, id string) (*model.SubjectOffering, error) {
	offering, err := s.repo.Offering.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRetakeInvalidReference
		}
		return nil, s.storeErr("查询开课", err)
	}
	return offering, nil
}

func (s *retakeService) storeErr(op string, err error) error {
	s.logger.Error(op+"失败", zap.Error(err))
	return pkgerrors.Store(op, err)
}

func (s *retakeService) toRetakeResponse(ctx context.Context, r *model.RetakeAssignment) (*dto.RetakeResponse, error) {
	resp := &dto.RetakeResponse{
		ID:               r.RetakeID,
		StudentID:        r.StudentID,
		TargetOfferingID: r.TargetOfferingID,
		TermID:           r.TermID,
		Status:           r.Status,
		AssignedAt:       r.AssignedAt.Format(dateLayout),
		Notes:            r.Notes,
	}
	if r.Student != nil {
		resp.StudentName = r.Student.Surname + ", " + r.Student.Name
		resp.StudentNationalID = r.Student.NationalID
	}
	if r.TargetOffering != nil {
		resp.TargetSubject = r.TargetOffering.DisplayName()
		if r.TargetOffering.Course != nil {
			resp.TargetCourse = r.TargetOffering.Course.Name
		}
	}
	if r.LiberatedOfferingID != nil {
		resp.LiberatedOfferingID = *r.LiberatedOfferingID
		resp.LiberatedSubject = r.LiberatedOffering.DisplayName()
	}

	enrollment, err := s.repo.Enrollment.GetActiveByStudent(ctx, r.StudentID)
	switch {
	case err == nil:
		if enrollment.Course != nil {
			resp.CurrentCourse = enrollment.Course.Name
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, s.storeErr("查询学生注册", err)
	}

	n, err := s.repo.Grade.Count(ctx, r.StudentID, r.TargetOfferingID, r.TermID)
	if err != nil {
		return nil, s.storeErr("统计依赖成绩", err)
	}
	resp.DependentGrades = n
	return resp, nil
}
