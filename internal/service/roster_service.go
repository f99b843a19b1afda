package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"sistema-notas/backend/internal/dto"
	"sistema-notas/backend/internal/model"
	"sistema-notas/backend/internal/repository"
	"sistema-notas/backend/pkg/database"
	pkgerrors "sistema-notas/backend/pkg/errors"
)

// RosterService 名单计算业务接口
type RosterService interface {
	// Resolve 计算 (班级, 开课, 学年) 需要录入成绩的学生名单，按 (姓, 名) 升序
	// 调用方负责权限检查，传入的 ID 视为已过滤
	Resolve(ctx context.Context, courseID, offeringID, termID string) ([]dto.RosterEntry, error)
	// ResolveWithGrades 名单 + 已有成绩，供成绩录入页与表格导出使用
	ResolveWithGrades(ctx context.Context, identity Identity, req *dto.RosterRequest) (*dto.RosterSheet, error)
}

type rosterService struct {
	repo   *repository.Repository
	caps   database.Capabilities
	terms  termResolver
	logger *zap.Logger
}

// NewRosterService 创建 RosterService 实例
func NewRosterService(repo *repository.Repository, caps database.Capabilities, splitMonths int, logger *zap.Logger) RosterService {
	return NewRosterServiceWithClock(repo, caps, splitMonths, time.Now, logger)
}

// NewRosterServiceWithClock 指定时钟创建 RosterService（测试使用）
func NewRosterServiceWithClock(repo *repository.Repository, caps database.Capabilities, splitMonths int, now func() time.Time, logger *zap.Logger) RosterService {
	return &rosterService{
		repo:   repo,
		caps:   caps,
		terms:  termResolver{repo: repo, splitMonths: splitMonths, now: now},
		logger: logger,
	}
}

// ═══════════════════════════════════════════════════════════
// Resolve
// ═══════════════════════════════════════════════════════════
//
//  1. 常规名单：班级内 active 注册学生（分组开课改用分组成员），
//     排除本学年持有 active 重修且免修该开课的学生
//  2. 重修名单：本学年以该开课为目标的 active 重修学生，与当前班级无关
//  3. 按学生合并去重，冲突时归为重修
//  4. 参照班级：重修取目标开课所属班级，常规取当前班级
//  5. 重修表不存在时视为没有任何重修

func (s *rosterService) Resolve(ctx context.Context, courseID, offeringID, termID string) ([]dto.RosterEntry, error) {
	course, err := s.repo.Course.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, s.storeErr("查询班级", err)
	}

	offering, err := s.repo.Offering.GetByID(ctx, offeringID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOfferingNotFound
		}
		return nil, s.storeErr("查询开课", err)
	}
	if offering.CourseID != course.CourseID {
		return nil, ErrOfferingNotFound
	}

	if termID == "" {
		termID = course.TermID
	}

	// 1. 常规名单
	var regular []repository.StudentCourseRow
	if offering.RequiresSubgroups {
		regular, err = s.repo.OfferingStudent.ListActiveMembers(ctx, offeringID, termID)
	} else {
		regular, err = s.repo.Enrollment.ListActiveStudents(ctx, courseID)
	}
	if err != nil {
		return nil, s.storeErr("查询常规名单", err)
	}

	// 2. 重修名单与免修排除
	var retakes []repository.StudentCourseRow
	liberated := map[string]bool{}
	if s.caps.Retakes {
		ids, err := s.repo.Retake.ListLiberatedStudentIDs(ctx, offeringID, termID)
		if err != nil {
			return nil, s.storeErr("查询免修学生", err)
		}
		for _, id := range ids {
			liberated[id] = true
		}

		retakes, err = s.repo.Retake.ListActiveTargetStudents(ctx, offeringID, termID)
		if err != nil {
			return nil, s.storeErr("查询重修学生", err)
		}
	}

	// 3. 合并去重
	merged := make(map[string]dto.RosterEntry, len(regular)+len(retakes))
	for _, r := range regular {
		if liberated[r.StudentID] {
			continue
		}
		merged[r.StudentID] = toRosterEntry(r, model.CursationFirstTime)
	}
	for _, r := range retakes {
		entry := toRosterEntry(r, model.CursationRetake)
		if prev, ok := merged[r.StudentID]; ok && entry.Subgroup == "" {
			entry.Subgroup = prev.Subgroup
		}
		merged[r.StudentID] = entry
	}

	entries := make([]dto.RosterEntry, 0, len(merged))
	for _, e := range merged {
		entries = append(entries, e)
	}
	sortEntries(entries)
	return entries, nil
}

// ═══════════════════════════════════════════════════════════
// ResolveWithGrades
// ═══════════════════════════════════════════════════════════

func (s *rosterService) ResolveWithGrades(ctx context.Context, identity Identity, req *dto.RosterRequest) (*dto.RosterSheet, error) {
	term, err := s.terms.resolve(ctx, req.TermID)
	if err != nil {
		return nil, err
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

	entries, err := s.Resolve(ctx, req.CourseID, req.OfferingID, term.TermID)
	if err != nil {
		return nil, err
	}

	grades, err := s.repo.Grade.ListByOffering(ctx, req.OfferingID, term.TermID)
	if err != nil {
		return nil, s.storeErr("查询成绩", err)
	}
	byStudent := make(map[string]*model.GradeRecord, len(grades))
	for i := range grades {
		byStudent[grades[i].StudentID] = &grades[i]
	}

	sheet := &dto.RosterSheet{
		Term:     *toTermResponse(term),
		Period:   s.terms.period(term),
		Offering: *toOfferingResponse(offering),
		Editable: term.IsActive,
		Entries:  make([]dto.RosterSheetEntry, 0, len(entries)),
	}
	for _, e := range entries {
		row := dto.RosterSheetEntry{RosterEntry: e}
		if g, ok := byStudent[e.StudentID]; ok {
			row.Grade = toGradeResponse(g)
		}
		sheet.Entries = append(sheet.Entries, row)
	}
	return sheet, nil
}

// ── 内部辅助方法 ──

func (s *rosterService) storeErr(op string, err error) error {
	s.logger.Error(op+"失败", zap.Error(err))
	return pkgerrors.Store(op, err)
}

func toRosterEntry(r repository.StudentCourseRow, cursation string) dto.RosterEntry {
	return dto.RosterEntry{
		StudentID:           r.StudentID,
		Name:                r.Name,
		Surname:             r.Surname,
		NationalID:          r.NationalID,
		CursationType:       cursation,
		ReferenceCourseID:   r.CourseID,
		ReferenceCourse:     r.CourseName,
		ReferenceGradeLevel: r.GradeLevel,
		Subgroup:            r.Subgroup,
	}
}

// sortEntries 按 (姓, 名, 学生ID) 升序，保证输出稳定
func sortEntries(entries []dto.RosterEntry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Surname != b.Surname {
			return a.Surname < b.Surname
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.StudentID < b.StudentID
	})
}

func sortRows(rows []repository.StudentCourseRow) {
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Surname != b.Surname {
			return a.Surname < b.Surname
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.StudentID < b.StudentID
	})
}
