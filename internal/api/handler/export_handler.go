package handler

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"projet-5iw/backend/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportTemplate 下载空白周模板
// GET /api/v1/schedule-template
func (h *ExportHandler) ExportTemplate(c *gin.Context) {
	buf, filename, err := h.exportSvc.ExportTemplate(c.Request.Context())
	if err != nil {
		writeKindError(c, err)
		return
	}

	setAttachment(c, filename)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// setAttachment 设置下载响应头（文件名按 RFC 5987 编码）
func setAttachment(c *gin.Context, filename string) {
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(filename))
}
