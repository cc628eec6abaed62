package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/KilimcininKorOglu/Cli-Proxy-API-Management-Center/internal/api"
	"github.com/KilimcininKorOglu/Cli-Proxy-API-Management-Center/internal/config"
	"github.com/KilimcininKorOglu/Cli-Proxy-API-Management-Center/internal/console"
	"github.com/KilimcininKorOglu/Cli-Proxy-API-Management-Center/internal/logger"
	"github.com/KilimcininKorOglu/Cli-Proxy-API-Management-Center/internal/proxyapi"
	"github.com/KilimcininKorOglu/Cli-Proxy-API-Management-Center/internal/store"
)

func main() {
	// 命令行参数
	configPath := flag.String("config", "config.yaml", "配置文件路径")
	flag.Parse()

	// 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	logger.Info("config loaded", "path", *configPath)

	// 初始化审计存储（可选）
	var db *store.Store
	if cfg.Audit.Enabled {
		db, err = store.New(cfg.Database.Path)
		if err != nil {
			log.Fatalf("Failed to init database: %v", err)
		}
		defer db.Close()
		logger.Info("audit store initialized", "path", cfg.Database.Path)

		// 启动时清一次过期记录
		if n, err := db.CleanOldAudits(cfg.Audit.RetentionDays); err != nil {
			logger.Warn("audit cleanup failed", "err", err)
		} else if n > 0 {
			logger.Info("expired audit entries removed", "count", n)
		}
	}

	// 初始化上游客户端和操作员会话
	client := proxyapi.New(cfg.Upstream.BaseURL, cfg.Upstream.ManagementKey,
		time.Duration(cfg.Upstream.Timeout)*time.Second)
	session := console.NewSession(client, auditRecorder(db))
	logger.Info("upstream client ready", "base_url", cfg.Upstream.BaseURL)

	// 设置路由
	h := api.NewHandler(session, db, cfg)
	r := api.SetupRouter(cfg, h)

	// 使用 http.Server 以支持 Graceful Shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	// 创建一个 context，监听 SIGINT / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 在 goroutine 中启动 HTTP server
	srvErr := make(chan error, 1)
	go func() {
		logger.Info("management console starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
		close(srvErr)
	}()

	// 等待信号或服务器错误
	select {
	case err := <-srvErr:
		if err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received, draining connections")
	}

	// 给在途请求 15 秒的时间完成
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}

	logger.Info("server stopped gracefully")
}

// auditRecorder 把可能为 nil 的 *store.Store 转成接口。
// 直接传 db 会得到一个非 nil 接口包着 nil 指针。
func auditRecorder(db *store.Store) console.Recorder {
	if db == nil {
		return nil
	}
	return db
}
