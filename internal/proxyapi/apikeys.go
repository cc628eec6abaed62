package proxyapi

import (
	"context"
	"net/http"
	"net/url"

	"github.com/KilimcininKorOglu/Cli-Proxy-API-Management-Center/internal/model"
)

// === API Key 配置（按 key 字符串寻址） ===

// ListAPIKeyConfigs 列出所有 Key 配置
func (c *Client) ListAPIKeyConfigs(ctx context.Context) ([]model.APIKeyConfig, error) {
	var resp struct {
		APIKeyConfigs []model.APIKeyConfig `json:"api_key_configs"`
	}
	err := c.do(ctx, http.MethodGet, "/api-key-configs", nil, &resp)
	return resp.APIKeyConfigs, err
}

// CreateAPIKeyConfig 创建 Key 配置
func (c *Client) CreateAPIKeyConfig(ctx context.Context, cfg model.APIKeyConfig) (model.MutationResult, error) {
	return c.doMutation(ctx, http.MethodPost, "/api-key-configs", cfg)
}

// GetAPIKeyConfig 获取单个 Key 配置
func (c *Client) GetAPIKeyConfig(ctx context.Context, key string) (model.APIKeyConfig, error) {
	var cfg model.APIKeyConfig
	err := c.do(ctx, http.MethodGet, "/api-key-configs/"+url.PathEscape(key), nil, &cfg)
	return cfg, err
}

// UpdateAPIKeyConfig 更新 Key 配置（key 本身不可变）
func (c *Client) UpdateAPIKeyConfig(ctx context.Context, cfg model.APIKeyConfig) (model.MutationResult, error) {
	return c.doMutation(ctx, http.MethodPut, "/api-key-configs/"+url.PathEscape(cfg.Key), cfg)
}

// DeleteAPIKeyConfig 删除 Key 配置
func (c *Client) DeleteAPIKeyConfig(ctx context.Context, key string) (model.MutationResult, error) {
	return c.doMutation(ctx, http.MethodDelete, "/api-key-configs/"+url.PathEscape(key), nil)
}
