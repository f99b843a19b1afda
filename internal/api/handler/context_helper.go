package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"sistema-notas/backend/internal/service"
	"sistema-notas/backend/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// MustGetRole 从 Gin 上下文中安全提取 role。
func MustGetRole(c *gin.Context) (string, bool) {
	v, exists := c.Get("role")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// MustGetIdentity 由 JWT 声明构造请求身份，随后显式传入服务层
func MustGetIdentity(c *gin.Context) (service.Identity, bool) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return service.Identity{}, false
	}
	role, ok := MustGetRole(c)
	if !ok {
		return service.Identity{}, false
	}
	return service.Identity{UserID: userID, Role: role}, true
}

// tokenMeta 当前 Access Token 的 jti 与过期时间，登出时写入黑名单
func tokenMeta(c *gin.Context) (string, time.Time) {
	jti := c.GetString("token_jti")
	exp, _ := c.Get("token_exp")
	t, _ := exp.(time.Time)
	return jti, t
}
