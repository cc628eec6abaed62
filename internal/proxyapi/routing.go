package proxyapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/KilimcininKorOglu/Cli-Proxy-API-Management-Center/internal/model"
)

// === 路由配置 ===

// GetRoutingConfig 获取完整路由配置
func (c *Client) GetRoutingConfig(ctx context.Context) (model.RoutingConfig, error) {
	var cfg model.RoutingConfig
	err := c.do(ctx, http.MethodGet, "/routing", nil, &cfg)
	return cfg, err
}

// PutRoutingConfig 整体替换路由配置
func (c *Client) PutRoutingConfig(ctx context.Context, cfg model.RoutingConfig) (model.MutationResult, error) {
	return c.doMutation(ctx, http.MethodPut, "/routing", cfg)
}

// GetStrategy 获取当前选源策略
func (c *Client) GetStrategy(ctx context.Context) (string, error) {
	var resp struct {
		Strategy string `json:"strategy"`
	}
	err := c.do(ctx, http.MethodGet, "/routing/strategy", nil, &resp)
	return resp.Strategy, err
}

// PutStrategy 切换选源策略（单次原子更新）
func (c *Client) PutStrategy(ctx context.Context, strategy string) (model.MutationResult, error) {
	payload := map[string]string{"strategy": strategy}
	return c.doMutation(ctx, http.MethodPut, "/routing/strategy", payload)
}

// === 优先级规则（按索引寻址） ===

// GetPriority 获取优先级规则列表
func (c *Client) GetPriority(ctx context.Context) ([]model.PriorityRule, error) {
	var resp struct {
		Priority []model.PriorityRule `json:"priority"`
	}
	err := c.do(ctx, http.MethodGet, "/routing/priority", nil, &resp)
	return resp.Priority, err
}

// PutPriority 整体替换规则列表
func (c *Client) PutPriority(ctx context.Context, rules []model.PriorityRule) (model.MutationResult, error) {
	payload := map[string][]model.PriorityRule{"priority": rules}
	return c.doMutation(ctx, http.MethodPut, "/routing/priority", payload)
}

// AddPriorityRule 追加规则（远端 append-only，不回报分配的索引位置）
func (c *Client) AddPriorityRule(ctx context.Context, rule model.PriorityRule) (model.MutationResult, error) {
	return c.doMutation(ctx, http.MethodPost, "/routing/priority", rule)
}

// GetPriorityRule 获取指定索引的规则
func (c *Client) GetPriorityRule(ctx context.Context, index int) (model.PriorityRule, error) {
	var rule model.PriorityRule
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/routing/priority/%d", index), nil, &rule)
	return rule, err
}

// UpdatePriorityRule 整体替换指定索引的规则
func (c *Client) UpdatePriorityRule(ctx context.Context, index int, rule model.PriorityRule) (model.MutationResult, error) {
	return c.doMutation(ctx, http.MethodPut, fmt.Sprintf("/routing/priority/%d", index), rule)
}

// DeletePriorityRule 删除指定索引的规则
func (c *Client) DeletePriorityRule(ctx context.Context, index int) (model.MutationResult, error) {
	return c.doMutation(ctx, http.MethodDelete, fmt.Sprintf("/routing/priority/%d", index), nil)
}

// === 凭据绑定（按索引寻址） ===

// GetBindings 获取绑定列表
func (c *Client) GetBindings(ctx context.Context) ([]model.AuthBinding, error) {
	var resp struct {
		Bindings []model.AuthBinding `json:"bindings"`
	}
	err := c.do(ctx, http.MethodGet, "/routing/bindings", nil, &resp)
	return resp.Bindings, err
}

// PutBindings 整体替换绑定列表
func (c *Client) PutBindings(ctx context.Context, bindings []model.AuthBinding) (model.MutationResult, error) {
	payload := map[string][]model.AuthBinding{"bindings": bindings}
	return c.doMutation(ctx, http.MethodPut, "/routing/bindings", payload)
}

// AddBinding 追加绑定
func (c *Client) AddBinding(ctx context.Context, b model.AuthBinding) (model.MutationResult, error) {
	return c.doMutation(ctx, http.MethodPost, "/routing/bindings", b)
}

// GetBinding 获取指定索引的绑定
func (c *Client) GetBinding(ctx context.Context, index int) (model.AuthBinding, error) {
	var b model.AuthBinding
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/routing/bindings/%d", index), nil, &b)
	return b, err
}

// UpdateBinding 整体替换指定索引的绑定
func (c *Client) UpdateBinding(ctx context.Context, index int, b model.AuthBinding) (model.MutationResult, error) {
	return c.doMutation(ctx, http.MethodPut, fmt.Sprintf("/routing/bindings/%d", index), b)
}

// DeleteBinding 删除指定索引的绑定
func (c *Client) DeleteBinding(ctx context.Context, index int) (model.MutationResult, error) {
	return c.doMutation(ctx, http.MethodDelete, fmt.Sprintf("/routing/bindings/%d", index), nil)
}
