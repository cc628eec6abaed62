package api

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/KilimcininKorOglu/Cli-Proxy-API-Management-Center/internal/config"
	"github.com/KilimcininKorOglu/Cli-Proxy-API-Management-Center/internal/logger"
	"github.com/KilimcininKorOglu/Cli-Proxy-API-Management-Center/internal/model"
	"github.com/gin-gonic/gin"
)

// AuthMiddleware 管理密钥认证中间件
func AuthMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 如果未设置密钥，跳过认证
		if apiKey == "" {
			c.Next()
			return
		}

		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.JSON(401, model.ErrorResponse{
				Error: model.ErrorDetail{
					Message: "Missing Authorization header",
					Type:    "authentication_error",
					Code:    "missing_api_key",
				},
			})
			c.Abort()
			return
		}

		// 解析 Bearer token
		token := strings.TrimPrefix(auth, "Bearer ")
		if token == auth {
			// 没有 Bearer 前缀，可能直接是 key
			token = auth
		}

		if token != apiKey {
			c.JSON(401, model.ErrorResponse{
				Error: model.ErrorDetail{
					Message: "Invalid API key",
					Type:    "authentication_error",
					Code:    "invalid_api_key",
				},
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// CORSMiddleware CORS 中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// RecoveryMiddleware 恢复中间件
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				c.JSON(500, model.ErrorResponse{
					Error: model.ErrorDetail{
						Message: "Internal server error",
						Type:    "internal_error",
						Code:    "internal_error",
					},
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// LoggerMiddleware 请求日志中间件
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.Info("http",
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"method", c.Request.Method,
			"path", path)
	}
}

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, h *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	// 控制台 API（需要管理密钥）
	api := r.Group("/api")
	api.Use(AuthMiddleware(cfg.Server.AdminAPIKey))
	{
		// 路由策略
		api.GET("/routing", h.GetRouting)
		api.PUT("/routing/strategy", h.PutStrategy)
		api.POST("/routing/rules", h.CreateRule)
		api.PUT("/routing/rules/:index", h.UpdateRule)
		api.DELETE("/routing/rules/:index", h.DeleteRule)
		api.POST("/routing/bindings", h.CreateBinding)
		api.PUT("/routing/bindings/:index", h.UpdateBinding)
		api.DELETE("/routing/bindings/:index", h.DeleteBinding)

		// 限流
		api.GET("/rate-limits", h.GetRateLimits)
		api.PUT("/rate-limiting", h.SaveRateLimiting)
		api.PUT("/rate-limiting/enabled", h.ToggleRateLimiting)
		api.POST("/key-configs", h.CreateKeyConfig)
		api.PUT("/key-configs/:key", h.UpdateKeyConfig)
		api.DELETE("/key-configs/:key", h.DeleteKeyConfig)
		api.DELETE("/usage/:key", h.ResetUsage)

		// 状态与审计
		api.GET("/status", h.GetStatus)
		api.GET("/audit", h.GetAudit)
		api.GET("/audit/stats", h.GetAuditStats)
	}

	// 健康检查端点
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// 静态文件服务（Web UI）
	webDir := "./dist/web"
	if _, err := os.Stat(webDir); err == nil {
		r.Static("/assets", filepath.Join(webDir, "assets"))
		r.StaticFile("/favicon.svg", filepath.Join(webDir, "favicon.svg"))

		// SPA fallback
		r.NoRoute(func(c *gin.Context) {
			if strings.HasPrefix(c.Request.URL.Path, "/api/") {
				c.JSON(404, gin.H{"error": "not found"})
				return
			}
			c.File(filepath.Join(webDir, "index.html"))
		})
	}

	return r
}
