// Package console 是配置对账的核心：把表单产出的策略文档同步到
// 远端权威存储，并在每次远端确认成功后把等价的变更应用到本地缓存。
// 远端失败时本地状态保持上一次确认的样子，错误原样上抛。
package console

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/KilimcininKorOglu/Cli-Proxy-API-Management-Center/internal/forms"
	"github.com/KilimcininKorOglu/Cli-Proxy-API-Management-Center/internal/logger"
	"github.com/KilimcininKorOglu/Cli-Proxy-API-Management-Center/internal/model"
	"github.com/KilimcininKorOglu/Cli-Proxy-API-Management-Center/internal/proxyapi"
	"github.com/KilimcininKorOglu/Cli-Proxy-API-Management-Center/internal/reconcile"
	"github.com/KilimcininKorOglu/Cli-Proxy-API-Management-Center/internal/usage"
)

// 错误定义
var (
	// ErrBusy 上一个变更还在途中；同会话内的变更互斥，杜绝双击重复提交
	ErrBusy = errors.New("another mutation is in flight")
	// ErrInvalidStrategy 不认识的选源策略
	ErrInvalidStrategy = errors.New("invalid strategy")
)

// Recorder 审计记录落盘接口，由 store.Store 实现
type Recorder interface {
	SaveAudit(entry *model.AuditEntry) error
}

// Session 单个操作员会话的状态
// 持有最后一次确认的本地镜像；所有读走快照，所有写走
// 校验 → 远端 → 对账 → 审计 的流水线。
type Session struct {
	client *proxyapi.Client
	audit  Recorder // 可为 nil（审计关闭）
	log    *logger.Logger

	mu       sync.Mutex
	saving   bool
	strategy string
	rules    *reconcile.List[model.PriorityRule]
	bindings *reconcile.List[model.AuthBinding]
	keys     *reconcile.KeyedList[model.APIKeyConfig]
	rl       model.RateLimitingConfig
	usage    map[string]model.APIKeyUsage
}

// NewSession 创建会话
func NewSession(client *proxyapi.Client, audit Recorder) *Session {
	return &Session{
		client:   client,
		audit:    audit,
		log:      logger.Default(),
		strategy: model.StrategyRoundRobin,
		rules:    reconcile.NewList[model.PriorityRule](nil),
		bindings: reconcile.NewList[model.AuthBinding](nil),
		keys:     reconcile.NewKeyedList(nil, func(c model.APIKeyConfig) string { return c.Key }),
		rl:       model.RateLimitingConfig{Enabled: true, ExceededStatusCode: model.DefaultExceededStatusCode},
		usage:    make(map[string]model.APIKeyUsage),
	}
}

// begin 占用变更互斥标志
func (s *Session) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saving {
		return ErrBusy
	}
	s.saving = true
	return nil
}

// end 释放变更互斥标志
func (s *Session) end() {
	s.mu.Lock()
	s.saving = false
	s.mu.Unlock()
}

// Saving 返回是否有变更在途
func (s *Session) Saving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saving
}

// record 写一条审计记录，落盘失败只记日志不影响主流程
func (s *Session) record(action, resource, detail string, opErr error) {
	if s.audit == nil {
		return
	}
	entry := &model.AuditEntry{
		ID:        generateAuditID(),
		Timestamp: time.Now(),
		Action:    action,
		Resource:  resource,
		Detail:    detail,
		Success:   opErr == nil,
	}
	if opErr != nil {
		entry.Error = opErr.Error()
	}
	if err := s.audit.SaveAudit(entry); err != nil {
		s.log.Warn("audit write failed", "action", action, "err", err)
	}
}

func generateAuditID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return fmt.Sprintf("audit_%d_%s", time.Now().UnixNano(), hex.EncodeToString(b))
}

// === 加载 ===

// LoadRouting 加载路由页的权威状态。失败属于页面级错误，
// 本地镜像不动，由操作员手动重试。
func (s *Session) LoadRouting(ctx context.Context) error {
	cfg, err := s.client.GetRoutingConfig(ctx)
	if err != nil {
		return fmt.Errorf("load routing config: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.strategy = cfg.Strategy
	s.rules.Reset(cfg.Priority)
	s.bindings.Reset(cfg.Bindings)
	return nil
}

// LoadRateLimits 加载限流页的三块数据，三路并发。
// 单路失败用默认值顶上：限流配置默认启用 + 429，Key 配置和用量
// 默认为空；三路全挂才算页面级失败。
func (s *Session) LoadRateLimits(ctx context.Context) error {
	var (
		wg      sync.WaitGroup
		keys    []model.APIKeyConfig
		rl      model.RateLimitingConfig
		snaps   map[string]model.APIKeyUsage
		keysErr, rlErr, usageErr error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		keys, keysErr = s.client.ListAPIKeyConfigs(ctx)
	}()
	go func() {
		defer wg.Done()
		rl, rlErr = s.client.GetRateLimiting(ctx)
	}()
	go func() {
		defer wg.Done()
		snaps, usageErr = s.client.GetAllUsage(ctx)
	}()
	wg.Wait()

	if keysErr != nil {
		s.log.Warn("api key configs unreachable, defaulting to empty", "err", keysErr)
		keys = nil
	}
	if rlErr != nil {
		s.log.Warn("rate limiting config unreachable, defaulting to enabled", "err", rlErr)
		rl = model.RateLimitingConfig{Enabled: true, ExceededStatusCode: model.DefaultExceededStatusCode}
	}
	if usageErr != nil {
		s.log.Warn("usage snapshots unreachable, defaulting to empty", "err", usageErr)
		snaps = nil
	}
	if snaps == nil {
		snaps = make(map[string]model.APIKeyUsage)
	}
	if rl.ExceededStatusCode == 0 {
		rl.ExceededStatusCode = model.DefaultExceededStatusCode
	}

	s.mu.Lock()
	s.keys.Reset(keys)
	s.rl = rl
	s.usage = snaps
	s.mu.Unlock()

	if keysErr != nil && rlErr != nil && usageErr != nil {
		return fmt.Errorf("load rate limits: %w", errors.Join(keysErr, rlErr, usageErr))
	}
	return nil
}

// === 快照读取 ===

// Strategy 返回当前策略
func (s *Session) Strategy() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.strategy
}

// Rules 返回优先级规则快照
func (s *Session) Rules() []model.PriorityRule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rules.Items()
}

// Bindings 返回绑定快照
func (s *Session) Bindings() []model.AuthBinding {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bindings.Items()
}

// KeyConfigs 返回 Key 配置快照
func (s *Session) KeyConfigs() []model.APIKeyConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys.Items()
}

// RateLimiting 返回全局限流配置快照
func (s *Session) RateLimiting() model.RateLimitingConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rl
}

// UsageRows 返回用量投影（配额 × 实时计数）
func (s *Session) UsageRows() []usage.Row {
	s.mu.Lock()
	configs := s.keys.Items()
	snaps := make(map[string]model.APIKeyUsage, len(s.usage))
	for k, v := range s.usage {
		snaps[k] = v
	}
	s.mu.Unlock()
	return usage.Project(configs, snaps)
}

// === 策略 ===

// SetStrategy 切换选源策略，一次原子远端更新
func (s *Session) SetStrategy(ctx context.Context, strategy string) error {
	if strategy != model.StrategyRoundRobin && strategy != model.StrategyFillFirst {
		return fmt.Errorf("%w: %q", ErrInvalidStrategy, strategy)
	}
	if err := s.begin(); err != nil {
		return err
	}
	defer s.end()

	_, err := s.client.PutStrategy(ctx, strategy)
	s.record("strategy.update", strategy, "", err)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.strategy = strategy
	s.mu.Unlock()
	return nil
}

// === 优先级规则（按索引对账） ===

// AddRule 校验表单、远端追加，成功后把规则放到本地列表末尾
func (s *Session) AddRule(ctx context.Context, form *forms.RuleForm) error {
	rule, err := form.Build()
	if err != nil {
		return err
	}
	if err := s.begin(); err != nil {
		return err
	}
	defer s.end()

	_, err = s.client.AddPriorityRule(ctx, rule)
	s.record("rule.create", "", describeRule(rule), err)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.rules.Append(rule)
	s.mu.Unlock()
	return nil
}

// UpdateRule 校验表单、远端按索引替换，成功后本地同位置替换
func (s *Session) UpdateRule(ctx context.Context, index int, form *forms.RuleForm) error {
	rule, err := form.Build()
	if err != nil {
		return err
	}
	if err := s.begin(); err != nil {
		return err
	}
	defer s.end()

	_, err = s.client.UpdatePriorityRule(ctx, index, rule)
	s.record("rule.update", fmt.Sprintf("%d", index), describeRule(rule), err)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.rules.ReplaceAt(index, rule)
	s.mu.Unlock()
	return nil
}

// DeleteRule 远端按索引删除，成功后本地同位置删除
func (s *Session) DeleteRule(ctx context.Context, index int) error {
	if err := s.begin(); err != nil {
		return err
	}
	defer s.end()

	_, err := s.client.DeletePriorityRule(ctx, index)
	s.record("rule.delete", fmt.Sprintf("%d", index), "", err)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.rules.RemoveAt(index)
	s.mu.Unlock()
	return nil
}

// === 凭据绑定（按索引对账） ===

// AddBinding 校验表单、远端追加，成功后放到本地列表末尾
func (s *Session) AddBinding(ctx context.Context, form *forms.BindingForm) error {
	b, err := form.Build()
	if err != nil {
		return err
	}
	if err := s.begin(); err != nil {
		return err
	}
	defer s.end()

	_, err = s.client.AddBinding(ctx, b)
	s.record("binding.create", b.APIKey, "", err)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.bindings.Append(b)
	s.mu.Unlock()
	return nil
}

// UpdateBinding 远端按索引替换，成功后本地同位置替换
func (s *Session) UpdateBinding(ctx context.Context, index int, form *forms.BindingForm) error {
	b, err := form.Build()
	if err != nil {
		return err
	}
	if err := s.begin(); err != nil {
		return err
	}
	defer s.end()

	_, err = s.client.UpdateBinding(ctx, index, b)
	s.record("binding.update", fmt.Sprintf("%d", index), b.APIKey, err)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.bindings.ReplaceAt(index, b)
	s.mu.Unlock()
	return nil
}

// DeleteBinding 远端按索引删除，成功后本地同位置删除
func (s *Session) DeleteBinding(ctx context.Context, index int) error {
	if err := s.begin(); err != nil {
		return err
	}
	defer s.end()

	_, err := s.client.DeleteBinding(ctx, index)
	s.record("binding.delete", fmt.Sprintf("%d", index), "", err)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.bindings.RemoveAt(index)
	s.mu.Unlock()
	return nil
}

// === API Key 配置（按 key 对账） ===

// SaveKeyConfig 保存 Key 配置：表单锁定 key 时走更新，否则走创建；
// 成功后按 key 相等 upsert 到本地集合。
func (s *Session) SaveKeyConfig(ctx context.Context, form *forms.KeyConfigForm) error {
	cfg, err := form.Build()
	if err != nil {
		return err
	}
	if err := s.begin(); err != nil {
		return err
	}
	defer s.end()

	action := "key-config.create"
	if form.KeyLocked() {
		action = "key-config.update"
		_, err = s.client.UpdateAPIKeyConfig(ctx, cfg)
	} else {
		_, err = s.client.CreateAPIKeyConfig(ctx, cfg)
	}
	s.record(action, cfg.Key, "", err)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.keys.Upsert(cfg)
	s.mu.Unlock()
	return nil
}

// DeleteKeyConfig 远端按 key 删除，成功后本地按 key 移除
func (s *Session) DeleteKeyConfig(ctx context.Context, key string) error {
	if err := s.begin(); err != nil {
		return err
	}
	defer s.end()

	_, err := s.client.DeleteAPIKeyConfig(ctx, key)
	s.record("key-config.delete", key, "", err)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.keys.Remove(key)
	s.mu.Unlock()
	return nil
}

// === 全局限流 ===

// ToggleEnabled 即时提交开关。状态码和持久化路径带的是
// 最后一次加载或保存的值，不是表单里可能没保存的草稿。
func (s *Session) ToggleEnabled(ctx context.Context, enabled bool) error {
	if err := s.begin(); err != nil {
		return err
	}
	defer s.end()

	s.mu.Lock()
	cfg := s.rl
	s.mu.Unlock()
	cfg.Enabled = enabled

	_, err := s.client.PutRateLimiting(ctx, cfg)
	s.record("rate-limiting.toggle", fmt.Sprintf("enabled=%t", enabled), "", err)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.rl = cfg
	s.mu.Unlock()
	return nil
}

// SaveSettings 批量保存状态码和持久化路径，enabled 维持当前值
func (s *Session) SaveSettings(ctx context.Context, form *forms.SettingsForm) error {
	if err := s.begin(); err != nil {
		return err
	}
	defer s.end()

	s.mu.Lock()
	enabled := s.rl.Enabled
	s.mu.Unlock()

	cfg := form.Build(enabled)
	_, err := s.client.PutRateLimiting(ctx, cfg)
	s.record("rate-limiting.save", fmt.Sprintf("status=%d", cfg.ExceededStatusCode), cfg.PersistencePath, err)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.rl = cfg
	s.mu.Unlock()
	return nil
}

// === 用量 ===

// ResetUsage 远端清零成功后移除本地用量条目，配置的配额不动
func (s *Session) ResetUsage(ctx context.Context, key string) error {
	if err := s.begin(); err != nil {
		return err
	}
	defer s.end()

	err := s.client.ResetUsage(ctx, key)
	s.record("usage.reset", key, "", err)
	if err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.usage, key)
	s.mu.Unlock()
	return nil
}

func describeRule(r model.PriorityRule) string {
	if r.IsDefault() {
		return "default"
	}
	return fmt.Sprintf("models=%d patterns=%d", len(r.Models), len(r.Order))
}
