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

// ── 成绩模块业务错误 ──

var (
	ErrGradesLocked          = errors.New("成绩录入已锁定")
	ErrGradeLocksUnavailable = errors.New("成绩锁定功能未启用（缺少 grade_locks 表）")
	ErrReportForbidden       = errors.New("无权查看该学生的成绩")
)

// 跳过原因
const (
	skipNotOnRoster     = "学生不在该开课的名单中"
	skipPendingMismatch = "待补科目不存在、不属于该开课或已停用"
)

// GradeService 成绩业务接口
type GradeService interface {
	// Save 批量保存成绩，整批在一个事务内完成
	Save(ctx context.Context, identity Identity, req *dto.SaveGradesRequest) (*dto.SaveGradesResult, error)
	// SavePending 批量保存待补科目的补修评价，受总锁与补修锁约束
	SavePending(ctx context.Context, identity Identity, req *dto.SavePendingGradesRequest) (*dto.SaveGradesResult, error)
	// ListByStudent 学生成绩单，mark 非空时只返回任一学段评价等于 mark 的记录
	ListByStudent(ctx context.Context, identity Identity, req *dto.StudentReportRequest) (*dto.StudentReportResponse, error)
}

type gradeService struct {
	repo        *repository.Repository
	caps        database.Capabilities
	roster      RosterService
	terms       termResolver
	passingMark int
	logger      *zap.Logger
}

// NewGradeService 创建 GradeService 实例
func NewGradeService(repo *repository.Repository, caps database.Capabilities, roster RosterService, school config.SchoolConfig, logger *zap.Logger) GradeService {
	passing := school.PassingMark
	if passing <= 0 {
		passing = 4
	}
	return &gradeService{
		repo:        repo,
		caps:        caps,
		roster:      roster,
		terms:       termResolver{repo: repo, splitMonths: school.PeriodSplitMonths, now: time.Now},
		passingMark: passing,
		logger:      logger,
	}
}

// ═══════════════════════════════════════════════════════════
// Save
// ═══════════════════════════════════════════════════════════
//
//  1. 学年：为空取启用学年；非启用学年仅管理员/校领导可写
//  2. 开课存在且调用者有权操作
//  3. 锁定：总锁拒绝教师；字段锁对教师保留原值
//  4. 名单：不在名单中的学生跳过并报告
//  5. 逐行宽松转换、计算期末状态、无变化不写入

func (s *gradeService) Save(ctx context.Context, identity Identity, req *dto.SaveGradesRequest) (*dto.SaveGradesResult, error) {
	term, err := s.terms.resolve(ctx, req.TermID)
	if err != nil {
		return nil, err
	}
	if !term.IsActive && !identity.IsStaff() {
		return nil, ErrTermReadOnly
	}

	offering, err := s.repo.Offering.GetByID(ctx, req.OfferingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOfferingNotFound
		}
		return nil, s.storeErr("查询开课", err)
	}
	if !identity.CanManageOffering(offering) {
		return nil, ErrOfferingForbidden
	}

	lock, err := s.lockFor(ctx, term.TermID, identity)
	if err != nil {
		return nil, err
	}
	if lock.GeneralLock {
		return nil, ErrGradesLocked
	}

	entries, err := s.roster.Resolve(ctx, offering.CourseID, offering.OfferingID, term.TermID)
	if err != nil {
		return nil, err
	}
	onRoster := make(map[string]string, len(entries))
	for _, e := range entries {
		onRoster[e.StudentID] = e.CursationType
	}

	var result *dto.SaveGradesResult
	err = s.repo.Atomic(ctx, func(ctx context.Context, tx *repository.Repository) error {
		result = &dto.SaveGradesResult{Skipped: []dto.SkippedEntry{}}
		for i := range req.Entries {
			entry := &req.Entries[i]
			classification, ok := onRoster[entry.StudentID]
			if !ok {
				result.Skipped = append(result.Skipped, dto.SkippedEntry{
					StudentID: entry.StudentID,
					Reason:    skipNotOnRoster,
				})
				continue
			}
			if err := s.upsert(ctx, tx, identity, term.TermID, offering.OfferingID, classification, lock, entry, result); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("批量保存成绩失败，已回滚",
			zap.String("offering_id", offering.OfferingID),
			zap.String("term_id", term.TermID),
			zap.Int("entries", len(req.Entries)),
			zap.Error(err),
		)
		return nil, pkgerrors.Store("保存成绩", err)
	}

	s.logger.Info("成绩已保存",
		zap.String("offering_id", offering.OfferingID),
		zap.String("term_id", term.TermID),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("unchanged", result.Unchanged),
		zap.Int("skipped", len(result.Skipped)),
		zap.String("by", identity.UserID),
	)
	return result, nil
}

// upsert 写入单个学生的成绩
func (s *gradeService) upsert(
	ctx context.Context,
	tx *repository.Repository,
	identity Identity,
	termID, offeringID, classification string,
	lock *model.GradeLock,
	entry *dto.GradeEntry,
	result *dto.SaveGradesResult,
) error {
	existing, err := tx.Grade.Get(ctx, entry.StudentID, offeringID, termID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		existing = nil
	}

	next := &model.GradeRecord{
		StudentID:  entry.StudentID,
		OfferingID: offeringID,
		TermID:     termID,
	}
	if existing != nil {
		copied := *existing
		next = &copied
	}

	if !lock.Period1MarkLocked {
		next.Period1Mark = entry.Period1Mark.Value
	}
	if !lock.Period1ValueLocked {
		next.Period1Value = entry.Period1Value.Value
	}
	if !lock.Period2MarkLocked {
		next.Period2Mark = entry.Period2Mark.Value
	}
	if !lock.Period2ValueLocked {
		next.Period2Value = entry.Period2Value.Value
	}
	if !lock.IntensificationLocked {
		next.IntensificationValue = entry.IntensificationValue.Value
	}
	if !lock.FinalLocked {
		next.FinalValue = entry.FinalValue.Value
	}
	if !lock.NotesLocked {
		next.Notes = strings.TrimSpace(entry.Notes)
	}
	next.CursationType = coerceCursation(entry.CursationType, classification)
	next.FinalStatus = model.DeriveFinalStatus(next.FinalValue, s.passingMark)

	if existing == nil {
		next.CreatedBy = identity.actorPtr()
		next.UpdatedBy = identity.actorPtr()
		if err := tx.Grade.Create(ctx, next); err != nil {
			return err
		}
		result.Created++
		return nil
	}

	if existing.SameValues(next) {
		result.Unchanged++
		return nil
	}
	next.UpdatedBy = identity.actorPtr()
	if err := tx.Grade.Update(ctx, next); err != nil {
		return err
	}
	result.Updated++
	return nil
}

// ═══════════════════════════════════════════════════════════
// SavePending
// ═══════════════════════════════════════════════════════════
//
// 与 Save 相同的学年、开课与锁定检查；补修锁开启时整批拒绝教师写入
// 每条记录整行覆盖，不属于该开课与学年或已停用的记录跳过并报告

func (s *gradeService) SavePending(ctx context.Context, identity Identity, req *dto.SavePendingGradesRequest) (*dto.SaveGradesResult, error) {
	if !s.caps.PendingSubjects {
		return nil, ErrPendingUnavailable
	}

	term, err := s.terms.resolve(ctx, req.TermID)
	if err != nil {
		return nil, err
	}
	if !term.IsActive && !identity.IsStaff() {
		return nil, ErrTermReadOnly
	}

	offering, err := s.repo.Offering.GetByID(ctx, req.OfferingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOfferingNotFound
		}
		return nil, s.storeErr("查询开课", err)
	}
	if !identity.CanManageOffering(offering) {
		return nil, ErrOfferingForbidden
	}

	lock, err := s.lockFor(ctx, term.TermID, identity)
	if err != nil {
		return nil, err
	}
	if lock.GeneralLock || lock.IntensificationLocked {
		return nil, ErrGradesLocked
	}

	var result *dto.SaveGradesResult
	err = s.repo.Atomic(ctx, func(ctx context.Context, tx *repository.Repository) error {
		result = &dto.SaveGradesResult{Skipped: []dto.SkippedEntry{}}
		for i := range req.Entries {
			entry := &req.Entries[i]
			existing, err := tx.Pending.GetByID(ctx, entry.PendingID)
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			if existing == nil || existing.OfferingID != offering.OfferingID ||
				existing.TermID != term.TermID || existing.Status != model.PendingActive {
				result.Skipped = append(result.Skipped, dto.SkippedEntry{
					StudentID: pendingStudentID(existing),
					Reason:    skipPendingMismatch,
				})
				continue
			}

			next := *existing
			next.March = entry.March.Value
			next.July = entry.July.Value
			next.August = entry.August.Value
			next.December = entry.December.Value
			next.February = entry.February.Value
			next.FinalValue = entry.FinalValue.Value
			next.ClosingKnowledge = strings.TrimSpace(entry.ClosingKnowledge)

			if existing.SameProgress(&next) {
				result.Unchanged++
				continue
			}
			next.UpdatedBy = identity.actorPtr()
			if err := tx.Pending.Update(ctx, &next); err != nil {
				return err
			}
			result.Updated++
		}
		return nil
	})
	if err != nil {
		s.logger.Error("批量保存补修评价失败，已回滚",
			zap.String("offering_id", offering.OfferingID),
			zap.String("term_id", term.TermID),
			zap.Int("entries", len(req.Entries)),
			zap.Error(err),
		)
		return nil, pkgerrors.Store("保存补修评价", err)
	}

	s.logger.Info("补修评价已保存",
		zap.String("offering_id", offering.OfferingID),
		zap.String("term_id", term.TermID),
		zap.Int("updated", result.Updated),
		zap.Int("unchanged", result.Unchanged),
		zap.Int("skipped", len(result.Skipped)),
		zap.String("by", identity.UserID),
	)
	return result, nil
}

func pendingStudentID(p *model.PendingSubject) string {
	if p == nil {
		return ""
	}
	return p.StudentID
}

// lockFor 调用者适用的锁定配置；管理员、校领导或锁定表缺失时返回全开放配置
func (s *gradeService) lockFor(ctx context.Context, termID string, identity Identity) (*model.GradeLock, error) {
	open := &model.GradeLock{TermID: termID}
	if identity.IsStaff() || !s.caps.GradeLocks {
		return open, nil
	}
	lock, err := s.repo.GradeLock.Get(ctx, termID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return open, nil
		}
		return nil, s.storeErr("查询成绩锁定", err)
	}
	return lock, nil
}

// ═══════════════════════════════════════════════════════════
// ListByStudent
// ═══════════════════════════════════════════════════════════

func (s *gradeService) ListByStudent(ctx context.Context, identity Identity, req *dto.StudentReportRequest) (*dto.StudentReportResponse, error) {
	studentID := req.StudentID
	switch {
	case identity.Role == model.RoleStudent:
		// 学生只能查看本人
		studentID = identity.UserID
	case !identity.IsStaff():
		return nil, ErrReportForbidden
	case studentID == "":
		return nil, ErrUserNotFound
	}

	term, err := s.terms.active(ctx)
	if err != nil {
		return nil, err
	}

	grades, err := s.repo.Grade.ListByStudent(ctx, studentID, term.TermID)
	if err != nil {
		return nil, s.storeErr("查询学生成绩", err)
	}

	mark := strings.ToUpper(strings.TrimSpace(req.Mark))
	resp := &dto.StudentReportResponse{
		StudentID: studentID,
		Term:      *toTermResponse(term),
		Period:    s.terms.period(term),
		Grades:    make([]dto.GradeResponse, 0, len(grades)),
	}
	for i := range grades {
		g := &grades[i]
		if mark != "" && !hasMark(g, mark) {
			continue
		}
		resp.Grades = append(resp.Grades, *toGradeResponse(g))
	}
	return resp, nil
}

// ── 内部辅助方法 ──

func (s *gradeService) storeErr(op string, err error) error {
	s.logger.Error(op+"失败", zap.Error(err))
	return pkgerrors.Store(op, err)
}

// coerceCursation 无效值取名单中的分类
func coerceCursation(value, classification string) string {
	switch value {
	case model.CursationFirstTime, model.CursationRetake:
		return value
	}
	if classification != "" {
		return classification
	}
	return model.CursationFirstTime
}

func hasMark(g *model.GradeRecord, mark string) bool {
	return (g.Period1Mark != nil && *g.Period1Mark == mark) ||
		(g.Period2Mark != nil && *g.Period2Mark == mark)
}

func toGradeResponse(g *model.GradeRecord) *dto.GradeResponse {
	resp := &dto.GradeResponse{
		ID:                   g.GradeID,
		StudentID:            g.StudentID,
		OfferingID:           g.OfferingID,
		TermID:               g.TermID,
		Period1Mark:          g.Period1Mark,
		Period1Value:         g.Period1Value,
		Period2Mark:          g.Period2Mark,
		Period2Value:         g.Period2Value,
		IntensificationValue: g.IntensificationValue,
		FinalValue:           g.FinalValue,
		CursationType:        g.CursationType,
		Notes:                g.Notes,
		FinalStatus:          g.FinalStatus,
	}
	if g.Offering != nil {
		resp.SubjectName = g.Offering.DisplayName()
	}
	return resp
}
