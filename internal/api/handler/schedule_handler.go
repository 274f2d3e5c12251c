package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"projet-5iw/backend/internal/api/middleware"
	"projet-5iw/backend/internal/dto"
	"projet-5iw/backend/internal/service"
	"projet-5iw/backend/pkg/response"
)

// ScheduleHandler 排课模块 HTTP 处理器
type ScheduleHandler struct {
	scheduleSvc    service.ScheduleService
	readerSvc      service.ScheduleReader
	maxUploadBytes int64
}

// NewScheduleHandler 创建 ScheduleHandler
func NewScheduleHandler(scheduleSvc service.ScheduleService, readerSvc service.ScheduleReader, maxUploadBytes int64) *ScheduleHandler {
	return &ScheduleHandler{scheduleSvc: scheduleSvc, readerSvc: readerSvc, maxUploadBytes: maxUploadBytes}
}

// ════════════════════════════════════════════════════════════
// 导入与原始文件
// ════════════════════════════════════════════════════════════

// ImportSchedule 上传周模板并整学期替换
// POST /api/v1/semesters/:id/schedule (multipart, 字段 file)
func (h *ScheduleHandler) ImportSchedule(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	fileHeader, err := c.FormFile("file")
	if err != nil {
		if middleware.IsBodyTooLarge(err) {
			h.fileTooLarge(c)
			return
		}
		response.BadRequest(c, 13001, "请上传文件（字段 file）")
		return
	}
	if fileHeader.Size > h.maxUploadBytes {
		h.fileTooLarge(c)
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		response.BadRequest(c, 13001, "无法读取上传文件")
		return
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		response.BadRequest(c, 13001, "无法读取上传文件")
		return
	}

	result, err := h.scheduleSvc.Import(c.Request.Context(), c.Param("id"), &service.ScheduleUpload{
		Filename: fileHeader.Filename,
		Content:  content,
	}, callerID)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, result)
}

// DownloadSourceFile 下载最近一次导入的工作簿
// GET /api/v1/semesters/:id/schedule/source-file
func (h *ScheduleHandler) DownloadSourceFile(c *gin.Context) {
	body, meta, err := h.scheduleSvc.SourceFile(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}
	defer body.Close()

	setAttachment(c, meta.OriginalName)
	c.DataFromReader(http.StatusOK, meta.SizeBytes, xlsxContentType, body, nil)
}

// ════════════════════════════════════════════════════════════
// 查询
// ════════════════════════════════════════════════════════════

// GetSemesterSchedule 整学期排课
// GET /api/v1/semesters/:id/schedule
func (h *ScheduleHandler) GetSemesterSchedule(c *gin.Context) {
	entries, err := h.readerSvc.AggregatedSchedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, gin.H{"list": entries})
}

// GetStaffSchedule 员工日程（管理员或员工本人）
// GET /api/v1/semesters/:id/schedule/staff/:staffId
func (h *ScheduleHandler) GetStaffSchedule(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	entries, err := h.readerSvc.StaffSchedule(c.Request.Context(), c.Param("id"), c.Param("staffId"), callerID, role)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, gin.H{"list": entries})
}

// GetChildSchedule 儿童日程（仅监护人）
// GET /api/v1/semesters/:id/schedule/children/:childId
func (h *ScheduleHandler) GetChildSchedule(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	entries, err := h.readerSvc.ChildSchedule(c.Request.Context(), c.Param("id"), c.Param("childId"), callerID)
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, gin.H{"list": entries})
}

// ════════════════════════════════════════════════════════════
// 条目变更
// ════════════════════════════════════════════════════════════

// CancelEntry 取消 / 恢复条目
// PUT /api/v1/schedule-entries/:id/cancel
func (h *ScheduleHandler) CancelEntry(c *gin.Context) {
	var req dto.CancelEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	if err := h.scheduleSvc.Cancel(c.Request.Context(), c.Param("id"), *req.Cancel); err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, nil)
}

// RestoreEntry 召回被调走的儿童
// POST /api/v1/schedule-entries/:id/restore
func (h *ScheduleHandler) RestoreEntry(c *gin.Context) {
	n, err := h.scheduleSvc.RestoreTransferred(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleScheduleError(c, err)
		return
	}

	response.OK(c, dto.CountResponse{Count: n})
}

// ReassignEntry 调动儿童；未指定 child_id 时调动全部并取消源条目
// POST /api/v1/schedule-entries/:id/reassign
func (h *ScheduleHandler) ReassignEntry(c *gin.Context) {
	var req dto.ReassignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 13001, "参数校验失败")
		return
	}

	sourceID := c.Param("id")
	if req.ChildID == "" {
		moved, err := h.scheduleSvc.ReassignAll(c.Request.Context(), sourceID, req.TargetEntryID)
		if err != nil {
			h.handleScheduleError(c, err)
			return
		}
		response.OK(c, dto.CountResponse{Count: moved})
		return
	}

	if err := h.scheduleSvc.ReassignOne(c.Request.Context(), sourceID, req.ChildID, req.TargetEntryID); err != nil {
		h.handleScheduleError(c, err)
		return
	}
	response.OK(c, dto.CountResponse{Count: 1})
}

func (h *ScheduleHandler) fileTooLarge(c *gin.Context) {
	response.ErrorWithDetails(c, http.StatusRequestEntityTooLarge, 13004, "文件过大",
		fmt.Sprintf("最大 %d 字节", h.maxUploadBytes))
}

// handleScheduleError 排课模块错误映射；校验报告原样返回
func (h *ScheduleHandler) handleScheduleError(c *gin.Context, err error) {
	var report *service.ValidationReport
	switch {
	case errors.As(err, &report):
		response.BadRequestWithData(c, 13002, "周模板校验未通过", report)
	case errors.Is(err, service.ErrWorkbookUnreadable):
		response.BadRequest(c, 13003, "无法读取工作簿，请上传 .xlsx 文件")
	case errors.Is(err, service.ErrEmptyUpload):
		response.BadRequest(c, 13001, "上传文件为空")
	case errors.Is(err, service.ErrSemesterNotFound):
		response.NotFound(c, 12001, "学期不存在")
	case errors.Is(err, service.ErrSourceFileNotFound):
		response.NotFound(c, 13101, "该学期尚未导入工作簿")
	case errors.Is(err, service.ErrEntryNotFound):
		response.NotFound(c, 13102, "排课条目不存在")
	case errors.Is(err, service.ErrLinkNotFound):
		response.NotFound(c, 13103, "该儿童不在源条目中")
	case errors.Is(err, service.ErrAlreadyAtTarget):
		response.Conflict(c, 13201, "该儿童已在目标条目中")
	case errors.Is(err, service.ErrNotGuardian), errors.Is(err, service.ErrNotOwnStaff):
		response.Forbidden(c, 13301, "无权查看该日程")
	default:
		writeKindError(c, err)
	}
}
