package service

import "sistema-notas/backend/internal/model"

// Identity 请求身份，由处理器根据 JWT 声明构造并显式传入
type Identity struct {
	UserID string
	Role   string
}

// IsStaff 管理员或校领导
func (id Identity) IsStaff() bool {
	return model.IsStaff(id.Role)
}

// CanManageOffering 教师只能操作自己任课的开课，管理员与校领导不受限
func (id Identity) CanManageOffering(offering *model.SubjectOffering) bool {
	if id.IsStaff() {
		return true
	}
	if id.Role != model.RoleTeacher || offering.TeacherID == nil {
		return false
	}
	return *offering.TeacherID == id.UserID
}

// actorPtr 审计字段 created_by / updated_by
func (id Identity) actorPtr() *string {
	if id.UserID == "" {
		return nil
	}
	s := id.UserID
	return &s
}
