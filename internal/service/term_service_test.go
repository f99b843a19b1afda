package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"sistema-notas/backend/internal/dto"
	"sistema-notas/backend/internal/model"
	"sistema-notas/backend/internal/repository"
)

func setupTestTermService(now time.Time) (TermService, *mockTermRepo) {
	termRepo := newMockTermRepo()
	repo := &repository.Repository{Term: termRepo}
	svc := NewTermServiceWithClock(repo, DefaultPeriodSplitMonths, func() time.Time { return now }, zap.NewNop())
	return svc, termRepo
}

func TestCurrentPeriod(t *testing.T) {
	term := &model.AcademicTerm{StartDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)}

	if p := CurrentPeriod(term, time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)); p != 1 {
		t.Errorf("开学后未满 3 个月应为第 1 学段，实际=%d", p)
	}
	if p := CurrentPeriod(term, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)); p != 1 {
		t.Errorf("恰好满 3 个月当天仍为第 1 学段，实际=%d", p)
	}
	if p := CurrentPeriod(term, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)); p != 2 {
		t.Errorf("满 3 个月后应为第 2 学段，实际=%d", p)
	}
}

func TestTermCreate_InvalidDates(t *testing.T) {
	svc, _ := setupTestTermService(time.Now())

	_, err := svc.Create(context.Background(), &dto.CreateTermRequest{
		Year: 2025, StartDate: "2025-12-15", EndDate: "2025-03-01",
	}, "admin-1")
	if !errors.Is(err, ErrTermDateInvalid) {
		t.Errorf("期望 ErrTermDateInvalid，实际: %v", err)
	}

	_, err = svc.Create(context.Background(), &dto.CreateTermRequest{
		Year: 2025, StartDate: "2025/03/01", EndDate: "2025-12-15",
	}, "admin-1")
	if !errors.Is(err, ErrTermDateInvalid) {
		t.Errorf("日期格式错误时期望 ErrTermDateInvalid，实际: %v", err)
	}
}

func TestTermCreate_DuplicateYear(t *testing.T) {
	svc, _ := setupTestTermService(time.Now())
	req := &dto.CreateTermRequest{Year: 2025, StartDate: "2025-03-01", EndDate: "2025-12-15"}

	if _, err := svc.Create(context.Background(), req, "admin-1"); err != nil {
		t.Fatalf("首次创建应成功: %v", err)
	}
	_, err := svc.Create(context.Background(), req, "admin-1")
	if !errors.Is(err, ErrTermYearDuplicate) {
		t.Errorf("期望 ErrTermYearDuplicate，实际: %v", err)
	}
}

func TestTermActivate_SwitchesActiveTerm(t *testing.T) {
	svc, termRepo := setupTestTermService(time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC))

	old, _ := svc.Create(context.Background(), &dto.CreateTermRequest{Year: 2025, StartDate: "2025-03-01", EndDate: "2025-12-15"}, "admin-1")
	next, _ := svc.Create(context.Background(), &dto.CreateTermRequest{Year: 2026, StartDate: "2026-03-01", EndDate: "2026-12-15"}, "admin-1")

	if err := svc.Activate(context.Background(), old.ID, "admin-1"); err != nil {
		t.Fatalf("启用 2025 失败: %v", err)
	}
	if err := svc.Activate(context.Background(), next.ID, "admin-1"); err != nil {
		t.Fatalf("启用 2026 失败: %v", err)
	}

	if termRepo.terms[old.ID].IsActive {
		t.Error("旧学年应被置为非启用")
	}

	period, err := svc.GetActivePeriod(context.Background())
	if err != nil {
		t.Fatalf("GetActivePeriod 失败: %v", err)
	}
	if period.Term.Year != 2026 {
		t.Errorf("期望启用学年=2026，实际=%d", period.Term.Year)
	}
	if period.Period != 2 {
		t.Errorf("7 月应为第 2 学段，实际=%d", period.Period)
	}
}

func TestTermGetActive_NoActiveTerm(t *testing.T) {
	svc, _ := setupTestTermService(time.Now())

	_, err := svc.GetActive(context.Background())
	if !errors.Is(err, ErrNoActiveTerm) {
		t.Errorf("期望 ErrNoActiveTerm，实际: %v", err)
	}
}

func TestTermGetByID_NotFound(t *testing.T) {
	svc, _ := setupTestTermService(time.Now())

	_, err := svc.GetByID(context.Background(), "missing")
	if !errors.Is(err, ErrTermNotFound) {
		t.Errorf("期望 ErrTermNotFound，实际: %v", err)
	}
}
