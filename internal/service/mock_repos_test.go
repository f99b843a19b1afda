package service

import (
	"context"
	"time"

	"gorm.io/gorm"

	"sistema-notas/backend/internal/model"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User // key: user_id 或 national_id
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.UserID == "" {
		user.UserID = "user-" + user.NationalID
	}
	m.users[user.UserID] = user
	m.users[user.NationalID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok && u.UserID == id {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByNationalID(_ context.Context, nationalID string) (*model.User, error) {
	if u, ok := m.users[nationalID]; ok && u.NationalID == nationalID {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	m.users[user.UserID] = user
	m.users[user.NationalID] = user
	return nil
}

func (m *mockUserRepo) ListByRole(_ context.Context, role string) ([]model.User, error) {
	var result []model.User
	for key, u := range m.users {
		if key == u.UserID && u.Role == role && u.IsActive {
			result = append(result, *u)
		}
	}
	return result, nil
}

// ── Mock TermRepository ──

type mockTermRepo struct {
	terms map[string]*model.AcademicTerm
}

func newMockTermRepo() *mockTermRepo {
	return &mockTermRepo{terms: make(map[string]*model.AcademicTerm)}
}

func (m *mockTermRepo) Create(_ context.Context, term *model.AcademicTerm) error {
	for _, t := range m.terms {
		if t.Year == term.Year {
			return gorm.ErrDuplicatedKey
		}
	}
	if term.TermID == "" {
		term.TermID = "term-" + term.StartDate.Format("2006")
	}
	m.terms[term.TermID] = term
	return nil
}

func (m *mockTermRepo) GetByID(_ context.Context, id string) (*model.AcademicTerm, error) {
	if t, ok := m.terms[id]; ok {
		return t, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTermRepo) GetActive(_ context.Context) (*model.AcademicTerm, error) {
	for _, t := range m.terms {
		if t.IsActive {
			return t, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTermRepo) List(_ context.Context) ([]model.AcademicTerm, error) {
	var result []model.AcademicTerm
	for _, t := range m.terms {
		result = append(result, *t)
	}
	return result, nil
}

func (m *mockTermRepo) Update(_ context.Context, term *model.AcademicTerm) error {
	m.terms[term.TermID] = term
	return nil
}

func (m *mockTermRepo) ClearActive(_ context.Context) error {
	for _, t := range m.terms {
		t.IsActive = false
	}
	return nil
}

// ── Mock TokenBlacklist ──

type mockBlacklist struct {
	entries map[string]time.Duration
}

func newMockBlacklist() *mockBlacklist {
	return &mockBlacklist{entries: make(map[string]time.Duration)}
}

func (m *mockBlacklist) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.entries[jti] = ttl
	return nil
}

func (m *mockBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	_, ok := m.entries[jti]
	return ok, nil
}
