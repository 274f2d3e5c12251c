package handler

import (
	"github.com/gin-gonic/gin"

	"projet-5iw/backend/internal/api/middleware"
	pkgerrors "projet-5iw/backend/pkg/errors"
	"projet-5iw/backend/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	s := c.GetString(middleware.ContextUserID)
	if s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// MustGetRole 从 Gin 上下文中安全提取 role。
func MustGetRole(c *gin.Context) (string, bool) {
	s := c.GetString(middleware.ContextRole)
	if s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// writeKindError 未被模块单独处理的错误按类别映射状态码
func writeKindError(c *gin.Context, err error) {
	msg := pkgerrors.Message(err)
	switch pkgerrors.Kind(err) {
	case pkgerrors.ErrNotFound:
		response.NotFound(c, 10404, msg)
	case pkgerrors.ErrConflict:
		response.Conflict(c, 10409, msg)
	case pkgerrors.ErrInvalidArgument:
		response.BadRequest(c, 10001, msg)
	case pkgerrors.ErrForbidden:
		response.Forbidden(c, 10003, msg)
	default:
		_ = c.Error(err)
		response.InternalError(c)
	}
}
