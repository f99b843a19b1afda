package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"sistema-notas/backend/internal/service"
	pkgerrors "sistema-notas/backend/pkg/errors"
	"sistema-notas/backend/pkg/response"
)

// handleCommonError 各模块共用的错误映射：学年状态与存储故障
// 返回 false 表示未识别，由调用方按 500 处理
func handleCommonError(c *gin.Context, err error) bool {
	switch {
	case errors.Is(err, pkgerrors.ErrStoreUnavailable):
		response.ServiceUnavailable(c, 50300, "数据存储暂不可用，请稍后再试")
	case errors.Is(err, service.ErrNoActiveTerm):
		response.Conflict(c, 12002, "尚未启用任何学年，系统处于只读状态")
	case errors.Is(err, service.ErrTermNotFound):
		response.NotFound(c, 12001, "学年不存在")
	case errors.Is(err, service.ErrTermReadOnly):
		response.Conflict(c, 12005, "非当前学年的数据为只读")
	case errors.Is(err, service.ErrOfferingNotFound):
		response.NotFound(c, 13005, "开课不存在")
	case errors.Is(err, service.ErrOfferingForbidden):
		response.Forbidden(c, 13007, "无权操作该开课")
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 20001, "用户不存在")
	default:
		return false
	}
	return true
}
