package proxyapi

import (
	"context"
	"net/http"
	"net/url"

	"github.com/KilimcininKorOglu/Cli-Proxy-API-Management-Center/internal/model"
)

// === 全局限流配置（单例） ===

// GetRateLimiting 获取全局限流配置
func (c *Client) GetRateLimiting(ctx context.Context) (model.RateLimitingConfig, error) {
	var cfg model.RateLimitingConfig
	err := c.do(ctx, http.MethodGet, "/rate-limiting", nil, &cfg)
	return cfg, err
}

// PutRateLimiting 整体替换全局限流配置
func (c *Client) PutRateLimiting(ctx context.Context, cfg model.RateLimitingConfig) (model.MutationResult, error) {
	return c.doMutation(ctx, http.MethodPut, "/rate-limiting", cfg)
}

// === 用量快照 ===

// GetAllUsage 获取全部 Key 的用量快照
func (c *Client) GetAllUsage(ctx context.Context) (map[string]model.APIKeyUsage, error) {
	var resp struct {
		Usage map[string]model.APIKeyUsage `json:"usage"`
	}
	err := c.do(ctx, http.MethodGet, "/rate-limits/usage", nil, &resp)
	return resp.Usage, err
}

// GetUsage 获取单 Key 的用量快照
func (c *Client) GetUsage(ctx context.Context, key string) (model.APIKeyUsage, error) {
	var u model.APIKeyUsage
	err := c.do(ctx, http.MethodGet, "/rate-limits/usage/"+url.PathEscape(key), nil, &u)
	return u, err
}

// ResetUsage 清零并移除单 Key 的用量记录（不动配置的配额）
func (c *Client) ResetUsage(ctx context.Context, key string) error {
	var resp struct {
		OK    bool `json:"ok"`
		Reset bool `json:"reset"`
	}
	if err := c.do(ctx, http.MethodDelete, "/rate-limits/usage/"+url.PathEscape(key), nil, &resp); err != nil {
		return err
	}
	if !resp.OK {
		return &RemoteError{StatusCode: http.StatusOK, Message: "remote rejected the reset"}
	}
	return nil
}
