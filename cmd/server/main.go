package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"projet-5iw/backend/config"
	"projet-5iw/backend/internal/api/handler"
	"projet-5iw/backend/internal/api/middleware"
	"projet-5iw/backend/internal/api/router"
	"projet-5iw/backend/internal/repository"
	"projet-5iw/backend/internal/service"
	"projet-5iw/backend/pkg/database"
	"projet-5iw/backend/pkg/jwt"
	applogger "projet-5iw/backend/pkg/logger"
	"projet-5iw/backend/pkg/redis"
	"projet-5iw/backend/pkg/storage"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径（默认查找 ./config/config.yaml）")
	migrateDown := flag.Int("migrate-down", 0, "回滚最近 N 个迁移后退出")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("storage_driver", cfg.Storage.Driver),
	)

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}

	// 3.1 回滚模式：执行后直接退出
	if *migrateDown > 0 {
		if err := database.RollbackMigrations(sqlDB, *migrateDown, logger); err != nil {
			logger.Fatal("回滚迁移失败", zap.Error(err))
		}
		sqlDB.Close()
		return
	}

	// 3.2 执行数据库迁移
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：失败时闭馆源不走共享缓存，导入接口不限流）
	var (
		feedCache service.FeedCache
		limiter   middleware.Limiter
	)
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，共享缓存与限流不可用", zap.Error(err))
		rdb = nil
	} else {
		feedCache = rdb
		limiter = rdb
	}

	// 5. 排课参数与闭馆日历
	settings, err := service.NewPlanningSettings(&cfg.Planning)
	if err != nil {
		logger.Fatal("排课配置无效", zap.Error(err))
	}
	loc := settings.Policy.Location

	feed, err := service.NewICSClosureFeed(&cfg.Planning.ClosureFeed, loc, feedCache, logger)
	if err != nil {
		logger.Fatal("闭馆日历源配置无效", zap.Error(err))
	}
	calendar := service.NewClosureCalendar(feed, loc, cfg.Planning.SupportedYears, logger)

	// 6. 原始工作簿存储
	files, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		logger.Fatal("初始化文件存储失败", zap.Error(err))
	}

	// 7. 初始化 JWT 管理器（只校验身份服务签发的 Access Token）
	jwtMgr := jwt.NewManager(&cfg.Auth)

	// 8. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db)
	svc := service.NewService(repo, calendar, settings, files, logger)
	h := handler.NewHandler(svc, cfg.Planning.MaxUploadBytes)

	// 9. 初始化路由
	engine := router.Setup(cfg, h, jwtMgr, limiter, logger)

	// 10. 启动 HTTP 服务器（优雅关闭）
	writeTimeout := cfg.Server.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 3 * time.Minute
	}
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 11. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	sqlDB.Close()

	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
