package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"projet-5iw/backend/internal/dto"
	"projet-5iw/backend/internal/service"
	"projet-5iw/backend/pkg/response"
)

// ClosureHandler 闭馆日查询 HTTP 处理器
type ClosureHandler struct {
	closureSvc service.ClosureService
}

// NewClosureHandler 创建 ClosureHandler
func NewClosureHandler(closureSvc service.ClosureService) *ClosureHandler {
	return &ClosureHandler{closureSvc: closureSvc}
}

// ListClosures 列出区间内的闭馆日
// GET /api/v1/closures?from=2026-05-01&to=2026-05-31
func (h *ClosureHandler) ListClosures(c *gin.Context) {
	var query dto.ClosureQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, 10001, "from 与 to 不能为空")
		return
	}

	days, err := h.closureSvc.List(c.Request.Context(), &query)
	if err != nil {
		if errors.Is(err, service.ErrClosureRangeInvalid) {
			response.BadRequest(c, 14001, "日期区间无效（YYYY-MM-DD，最长 366 天）")
			return
		}
		writeKindError(c, err)
		return
	}

	response.OK(c, gin.H{"list": days})
}
