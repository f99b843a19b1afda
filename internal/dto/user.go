package dto

// ── 用户模块 DTO ──

// CreateUserRequest 创建用户请求（学生、教师等由管理员录入）
type CreateUserRequest struct {
	Name       string `json:"name"        binding:"required,min=2,max=100"`
	Surname    string `json:"surname"     binding:"required,min=2,max=100"`
	NationalID string `json:"national_id" binding:"required,numeric,min=7,max=20"`
	Email      string `json:"email"       binding:"omitempty,email"`
	Password   string `json:"password"    binding:"required,min=8,max=64"`
	Role       string `json:"role"        binding:"required,oneof=admin director teacher student"`
}

// UserListRequest 用户列表查询参数
type UserListRequest struct {
	Role string `form:"role" binding:"required,oneof=admin director teacher student"`
}
