package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"sistema-notas/backend/internal/dto"
	"sistema-notas/backend/internal/model"
	"sistema-notas/backend/internal/repository"
	pkgerrors "sistema-notas/backend/pkg/errors"
)

// ── 用户模块业务错误 ──

var (
	ErrNationalIDExists = errors.New("该证件号已被注册")
)

// UserService 用户业务接口
type UserService interface {
	CreateUser(ctx context.Context, identity Identity, req *dto.CreateUserRequest) (*dto.UserResponse, error)
	GetByID(ctx context.Context, id string) (*dto.UserResponse, error)
	List(ctx context.Context, req *dto.UserListRequest) ([]dto.UserResponse, error)
}

type userService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewUserService 创建 UserService 实例
func NewUserService(repo *repository.Repository, logger *zap.Logger) UserService {
	return &userService{repo: repo, logger: logger}
}

// ────────────────────── CreateUser ──────────────────────

func (s *userService) CreateUser(ctx context.Context, identity Identity, req *dto.CreateUserRequest) (*dto.UserResponse, error) {
	nationalID := strings.TrimSpace(req.NationalID)

	// 检查证件号唯一性
	if _, err := s.repo.User.GetByNationalID(ctx, nationalID); err == nil {
		return nil, ErrNationalIDExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, pkgerrors.Store("查询用户", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}

	user := &model.User{
		Name:         strings.TrimSpace(req.Name),
		Surname:      strings.TrimSpace(req.Surname),
		NationalID:   nationalID,
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: string(hash),
		Role:         req.Role,
		IsActive:     true,
	}
	user.CreatedBy = identity.actorPtr()
	user.UpdatedBy = identity.actorPtr()

	if err := s.repo.User.Create(ctx, user); err != nil {
		if repository.IsDuplicateKey(err) {
			return nil, ErrNationalIDExists
		}
		s.logger.Error("创建用户失败", zap.Error(err))
		return nil, pkgerrors.Store("创建用户", err)
	}

	s.logger.Info("用户已创建",
		zap.String("user_id", user.UserID),
		zap.String("role", user.Role),
		zap.String("by", identity.UserID),
	)
	resp := s.toUserResponse(user)
	return &resp, nil
}

// ────────────────────── GetByID ──────────────────────

func (s *userService) GetByID(ctx context.Context, id string) (*dto.UserResponse, error) {
	user, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, pkgerrors.Store("查询用户", err)
	}
	resp := s.toUserResponse(user)
	return &resp, nil
}

// ────────────────────── List ──────────────────────

func (s *userService) List(ctx context.Context, req *dto.UserListRequest) ([]dto.UserResponse, error) {
	users, err := s.repo.User.ListByRole(ctx, req.Role)
	if err != nil {
		s.logger.Error("查询用户列表失败", zap.Error(err))
		return nil, pkgerrors.Store("查询用户列表", err)
	}

	result := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		result = append(result, s.toUserResponse(&users[i]))
	}
	return result, nil
}

func (s *userService) toUserResponse(u *model.User) dto.UserResponse {
	return toUserResponse(u.UserID, u.Name, u.Surname, u.NationalID, u.Email, u.Role)
}
