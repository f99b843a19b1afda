package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"sistema-notas/backend/internal/dto"
	"sistema-notas/backend/internal/model"
	"sistema-notas/backend/internal/repository"
)

func TestCreateUser_Success(t *testing.T) {
	userRepo := newMockUserRepo()
	svc := NewUserService(&repository.Repository{User: userRepo}, zap.NewNop())

	resp, err := svc.CreateUser(context.Background(), adminIdentity(), &dto.CreateUserRequest{
		Name:       " Lucía ",
		Surname:    "Fernández",
		NationalID: "41222333",
		Password:   "password123",
		Role:       model.RoleStudent,
	})
	if err != nil {
		t.Fatalf("CreateUser 应成功: %v", err)
	}
	if resp.Name != "Lucía" {
		t.Errorf("姓名应去除首尾空格，实际=%q", resp.Name)
	}

	stored := userRepo.users["41222333"]
	if stored == nil {
		t.Fatal("用户未写入")
	}
	if bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("password123")) != nil {
		t.Error("密码应以 bcrypt 哈希保存")
	}
	if !stored.IsActive {
		t.Error("新用户应为启用状态")
	}
}

func TestCreateUser_DuplicateNationalID(t *testing.T) {
	userRepo := newMockUserRepo()
	createTestUser(userRepo, "41222333", "password123", model.RoleStudent)
	svc := NewUserService(&repository.Repository{User: userRepo}, zap.NewNop())

	_, err := svc.CreateUser(context.Background(), adminIdentity(), &dto.CreateUserRequest{
		Name: "Otro", Surname: "Alumno", NationalID: "41222333", Password: "password123", Role: model.RoleStudent,
	})
	if !errors.Is(err, ErrNationalIDExists) {
		t.Errorf("期望 ErrNationalIDExists，实际: %v", err)
	}
}

func TestListUsersByRole(t *testing.T) {
	userRepo := newMockUserRepo()
	createTestUser(userRepo, "30000001", "password123", model.RoleTeacher)
	createTestUser(userRepo, "40000001", "password123", model.RoleStudent)
	svc := NewUserService(&repository.Repository{User: userRepo}, zap.NewNop())

	teachers, err := svc.List(context.Background(), &dto.UserListRequest{Role: model.RoleTeacher})
	if err != nil {
		t.Fatalf("List 失败: %v", err)
	}
	if len(teachers) != 1 || teachers[0].NationalID != "30000001" {
		t.Errorf("期望 1 名教师，实际=%+v", teachers)
	}
}
