// QueKou 人力缺口分析引擎服务
// 主程序入口

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quekou/quekou/internal/config"
	"github.com/quekou/quekou/internal/database"
	"github.com/quekou/quekou/internal/handler"
	"github.com/quekou/quekou/internal/metrics"
	"github.com/quekou/quekou/internal/middleware"
	"github.com/quekou/quekou/internal/repository"
	"github.com/quekou/quekou/internal/security"
	"github.com/quekou/quekou/pkg/logger"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logger.Init(logger.Config{
		Level:  cfg.App.LogLevel,
		Format: "console",
	})

	// 打印版本信息
	fmt.Printf("QueKou 人力缺口分析引擎 v%s\n", Version)
	fmt.Printf("Build: %s (%s)\n", BuildTime, GitCommit)
	fmt.Println()

	// 数据库（可选）：未启用时以纯内存模式运行
	var (
		attendanceRepo repository.AttendanceRepositoryInterface
		analysisRepo   repository.AnalysisRepositoryInterface
	)
	if cfg.Database.Enabled {
		db, err := database.New(&cfg.Database)
		if err != nil {
			logger.Error().Err(err).Msg("数据库连接失败")
			os.Exit(1)
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := db.EnsureSchema(ctx); err != nil {
			cancel()
			logger.Error().Err(err).Msg("初始化表结构失败")
			os.Exit(1)
		}
		cancel()

		attendanceRepo = repository.NewAttendanceRepository(db)
		analysisRepo = repository.NewAnalysisRepository(db)
	} else {
		logger.Info().Msg("数据库未启用，以内存模式运行")
	}

	// 创建处理器
	engineDefaults := cfg.Engine.ToEngineConfig()
	analysisHandler := handler.NewAnalysisHandler(engineDefaults, attendanceRepo, analysisRepo)

	// API密钥与限流
	keyManager := security.NewAPIKeyManager()
	rateLimiter := security.NewRateLimiter(cfg.API.RateLimit, time.Minute)
	if cfg.API.APIKey != "" {
		// 预置运维密钥，全权限
		keyManager.Seed(cfg.API.APIKey, "ops", []string{"*"})
	}

	// 创建 HTTP 服务器
	mux := http.NewServeMux()

	// ========================================
	// 系统端点
	// ========================================

	// 健康检查端点
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"quekou"}`))
	})

	// 版本信息端点
	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"version":"%s","build_time":"%s","git_commit":"%s"}`, Version, BuildTime, GitCommit)
	})

	// ========================================
	// API v1 端点
	// ========================================

	// API 根路由
	mux.HandleFunc("/api/v1/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{
			"message": "QueKou 人力缺口分析引擎 API v1",
			"endpoints": {
				"analysis": {
					"run": "POST /api/v1/analysis/run",
					"scenarios": "POST /api/v1/analysis/scenarios",
					"report": "POST /api/v1/analysis/report",
					"get": "GET /api/v1/analysis/run?run_id=...",
					"list": "GET /api/v1/analysis/runs",
					"quarantine": "GET /api/v1/analysis/quarantine?run_id=..."
				},
				"attendance": {
					"import": "POST /api/v1/attendance/import"
				}
			}
		}`))
	})

	// 缺口分析 API：POST触发运行，GET查询历史明细
	mux.HandleFunc("/api/v1/analysis/run", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			analysisHandler.GetRun(w, r)
			return
		}
		analysisHandler.Run(w, r)
	})

	// 多场景对比 API
	mux.HandleFunc("/api/v1/analysis/scenarios", analysisHandler.Scenarios)

	// 覆盖率与工作量报告 API
	mux.HandleFunc("/api/v1/analysis/report", analysisHandler.Report)

	// 历史运行列表 API
	mux.HandleFunc("/api/v1/analysis/runs", analysisHandler.ListRuns)

	// 隔离区报告 API
	mux.HandleFunc("/api/v1/analysis/quarantine", analysisHandler.Quarantine)

	// 出勤记录导入 API
	mux.HandleFunc("/api/v1/attendance/import", analysisHandler.Import)

	// ========================================
	// 监控端点
	// ========================================

	// Prometheus 指标端点
	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, metrics.Handler())
	}

	// ========================================
	// 中间件
	// ========================================

	// 中间件执行顺序：recovery -> requestID -> auth -> cors -> logging -> handler
	var root http.Handler = mux
	root = middleware.LoggingMiddleware(root)
	root = corsMiddleware(root)
	if cfg.API.APIKey != "" {
		root = middleware.AuthMiddleware(&middleware.AuthConfig{
			APIKeyManager:   keyManager,
			RateLimiter:     rateLimiter,
			SkipPaths:       []string{"/health", "/version", cfg.Metrics.Path},
			EnableRateLimit: true,
		})(root)
	}
	root = middleware.RequestIDMiddleware(root)
	root = middleware.RecoveryMiddleware(root)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      root,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 启动服务器（非阻塞）
	go func() {
		logger.Info().
			Int("port", cfg.App.Port).
			Str("version", Version).
			Str("url", fmt.Sprintf("http://localhost:%d", cfg.App.Port)).
			Str("api_docs", fmt.Sprintf("http://localhost:%d/api/v1/", cfg.App.Port)).
			Msg("服务器启动")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("服务器启动失败")
			os.Exit(1)
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("服务器关闭失败")
		os.Exit(1)
	}

	logger.Info().Msg("服务器已关闭")
}

// corsMiddleware CORS中间件
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
