package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"projet-5iw/backend/config"
	"projet-5iw/backend/internal/api/handler"
	"projet-5iw/backend/internal/api/middleware"
	"projet-5iw/backend/pkg/jwt"
)

// JSON 请求体上限；导入接口单独按 planning.max_upload_bytes 限制
const jsonBodyLimit = 1 << 20

// Setup 初始化并返回 Gin 路由引擎
// limiter 为 nil 时导入接口不限流
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, limiter middleware.Limiter, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	admin := middleware.RoleAuth(jwt.RoleAdmin)

	// ── API v1（全部需要认证） ──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtMgr))
	{
		// 周模板上传（multipart，不走 JSON 体积限制）
		v1.POST("/semesters/:id/schedule",
			admin,
			middleware.RateLimit(limiter, cfg.Planning.ImportRateLimit, time.Minute),
			h.Schedule.ImportSchedule,
		)

		api := v1.Group("")
		api.Use(middleware.BodyLimit(jsonBodyLimit))

		// 学期模块
		semesters := api.Group("/semesters")
		{
			semesters.GET("", h.Semester.ListSemesters)
			semesters.GET("/:id", h.Semester.GetSemester)
			semesters.POST("", admin, h.Semester.CreateSemester)

			// 排课查询
			semesters.GET("/:id/schedule", admin, h.Schedule.GetSemesterSchedule)
			semesters.GET("/:id/schedule/source-file", admin, h.Schedule.DownloadSourceFile)
			semesters.GET("/:id/schedule/staff/:staffId",
				middleware.RoleAuth(jwt.RoleAdmin, jwt.RoleStaff), h.Schedule.GetStaffSchedule) // 员工本人由 Service 层校验
			semesters.GET("/:id/schedule/children/:childId",
				middleware.RoleAuth(jwt.RoleGuardian), h.Schedule.GetChildSchedule)
		}

		// 排课条目变更
		entries := api.Group("/schedule-entries", admin)
		{
			entries.PUT("/:id/cancel", h.Schedule.CancelEntry)
			entries.POST("/:id/restore", h.Schedule.RestoreEntry)
			entries.POST("/:id/reassign", h.Schedule.ReassignEntry)
		}

		// 闭馆日
		api.GET("/closures", h.Closure.ListClosures)

		// 空白周模板下载
		api.GET("/schedule-template", admin, h.Export.ExportTemplate)
	}

	return r
}
