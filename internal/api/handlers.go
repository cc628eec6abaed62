package api

import (
	"errors"
	"strconv"

	"github.com/KilimcininKorOglu/Cli-Proxy-API-Management-Center/internal/config"
	"github.com/KilimcininKorOglu/Cli-Proxy-API-Management-Center/internal/console"
	"github.com/KilimcininKorOglu/Cli-Proxy-API-Management-Center/internal/forms"
	"github.com/KilimcininKorOglu/Cli-Proxy-API-Management-Center/internal/model"
	"github.com/KilimcininKorOglu/Cli-Proxy-API-Management-Center/internal/proxyapi"
	"github.com/KilimcininKorOglu/Cli-Proxy-API-Management-Center/internal/store"
	"github.com/KilimcininKorOglu/Cli-Proxy-API-Management-Center/internal/taglist"
	"github.com/gin-gonic/gin"
)

// Handler 控制台 HTTP 处理器
type Handler struct {
	session *console.Session
	store   *store.Store // 可为 nil（审计关闭）
	cfg     *config.Config
}

// NewHandler 创建处理器
func NewHandler(session *console.Session, st *store.Store, cfg *config.Config) *Handler {
	return &Handler{session: session, store: st, cfg: cfg}
}

// writeError 把会话层错误映射到 HTTP 响应：
// 表单校验失败 400，变更互斥 409，远端拒绝或不可达 502。
func writeError(c *gin.Context, err error) {
	var ve *forms.ValidationError
	var re *proxyapi.RemoteError

	switch {
	case errors.As(err, &ve):
		c.JSON(400, model.ErrorResponse{
			Error: model.ErrorDetail{
				Message: ve.Error(),
				Type:    "invalid_request_error",
				Code:    "invalid_" + ve.Field,
			},
		})
	case errors.Is(err, console.ErrBusy):
		c.JSON(409, model.ErrorResponse{
			Error: model.ErrorDetail{
				Message: err.Error(),
				Type:    "conflict_error",
				Code:    "save_in_progress",
			},
		})
	case errors.Is(err, console.ErrInvalidStrategy):
		c.JSON(400, model.ErrorResponse{
			Error: model.ErrorDetail{
				Message: err.Error(),
				Type:    "invalid_request_error",
				Code:    "invalid_strategy",
			},
		})
	case errors.As(err, &re):
		c.JSON(502, model.ErrorResponse{
			Error: model.ErrorDetail{
				Message: re.Error(),
				Type:    "upstream_error",
				Code:    "remote_rejected",
			},
		})
	default:
		c.JSON(502, model.ErrorResponse{
			Error: model.ErrorDetail{
				Message: err.Error(),
				Type:    "upstream_error",
				Code:    "upstream_unreachable",
			},
		})
	}
}

func badRequest(c *gin.Context, code, message string) {
	c.JSON(400, model.ErrorResponse{
		Error: model.ErrorDetail{
			Message: message,
			Type:    "invalid_request_error",
			Code:    code,
		},
	})
}

func notFound(c *gin.Context, message string) {
	c.JSON(404, model.ErrorResponse{
		Error: model.ErrorDetail{
			Message: message,
			Type:    "invalid_request_error",
			Code:    "not_found",
		},
	})
}

// parseIndex 解析路径里的列表索引
func parseIndex(c *gin.Context) (int, bool) {
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil || idx < 0 {
		badRequest(c, "invalid_index", "index must be a non-negative integer")
		return 0, false
	}
	return idx, true
}

// === 路由策略 ===

// GetRouting 从远端加载路由页并返回快照
func (h *Handler) GetRouting(c *gin.Context) {
	if err := h.session.LoadRouting(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(200, gin.H{
		"strategy": h.session.Strategy(),
		"priority": h.session.Rules(),
		"bindings": h.session.Bindings(),
	})
}

// PutStrategy 切换选源策略
func (h *Handler) PutStrategy(c *gin.Context) {
	var req struct {
		Strategy string `json:"strategy"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_body", "invalid request body")
		return
	}
	if err := h.session.SetStrategy(c.Request.Context(), req.Strategy); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(200, gin.H{"strategy": h.session.Strategy()})
}

// rulePayload 规则表单的线上表示
type rulePayload struct {
	Models   []string `json:"models"`
	Patterns []string `json:"patterns"`
	Fallback *bool    `json:"fallback"`
}

// fillRuleForm 把请求体灌进表单
func fillRuleForm(f *forms.RuleForm, req rulePayload) {
	f.Models = taglist.NewFrom(req.Models)
	f.Order = taglist.NewFrom(req.Patterns)
	if req.Fallback != nil {
		f.Fallback = *req.Fallback
	}
}

// CreateRule 新增优先级规则（追加到末尾）
func (h *Handler) CreateRule(c *gin.Context) {
	var req rulePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_body", "invalid request body")
		return
	}
	form := forms.NewRuleForm()
	fillRuleForm(form, req)
	if err := h.session.AddRule(c.Request.Context(), form); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(200, gin.H{"priority": h.session.Rules()})
}

// UpdateRule 按索引编辑规则
func (h *Handler) UpdateRule(c *gin.Context) {
	idx, ok := parseIndex(c)
	if !ok {
		return
	}
	rules := h.session.Rules()
	if idx >= len(rules) {
		notFound(c, "rule index out of range")
		return
	}
	var req rulePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_body", "invalid request body")
		return
	}
	form := forms.NewRuleFormEdit(rules[idx])
	fillRuleForm(form, req)
	if err := h.session.UpdateRule(c.Request.Context(), idx, form); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(200, gin.H{"priority": h.session.Rules()})
}

// DeleteRule 按索引删除规则
func (h *Handler) DeleteRule(c *gin.Context) {
	idx, ok := parseIndex(c)
	if !ok {
		return
	}
	if idx >= len(h.session.Rules()) {
		notFound(c, "rule index out of range")
		return
	}
	if err := h.session.DeleteRule(c.Request.Context(), idx); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(200, gin.H{"priority": h.session.Rules()})
}

// === 凭据绑定 ===

// bindingPayload 绑定表单的线上表示
type bindingPayload struct {
	APIKey   string   `json:"api-key"`
	AuthIDs  []string `json:"auth-ids"`
	Fallback *bool    `json:"fallback"`
}

// CreateBinding 新增绑定（追加到末尾）
func (h *Handler) CreateBinding(c *gin.Context) {
	var req bindingPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_body", "invalid request body")
		return
	}
	form := forms.NewBindingForm()
	form.SetAPIKey(req.APIKey)
	form.AuthIDs = taglist.NewFrom(req.AuthIDs)
	if req.Fallback != nil {
		form.Fallback = *req.Fallback
	}
	if err := h.session.AddBinding(c.Request.Context(), form); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(200, gin.H{"bindings": h.session.Bindings()})
}

// UpdateBinding 按索引编辑绑定。api-key 字段锁定：
// 请求里带的改名会被表单忽略。
func (h *Handler) UpdateBinding(c *gin.Context) {
	idx, ok := parseIndex(c)
	if !ok {
		return
	}
	bindings := h.session.Bindings()
	if idx >= len(bindings) {
		notFound(c, "binding index out of range")
		return
	}
	var req bindingPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_body", "invalid request body")
		return
	}
	form := forms.NewBindingFormEdit(bindings[idx])
	form.SetAPIKey(req.APIKey)
	form.AuthIDs = taglist.NewFrom(req.AuthIDs)
	if req.Fallback != nil {
		form.Fallback = *req.Fallback
	}
	if err := h.session.UpdateBinding(c.Request.Context(), idx, form); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(200, gin.H{"bindings": h.session.Bindings()})
}

// DeleteBinding 按索引删除绑定
func (h *Handler) DeleteBinding(c *gin.Context) {
	idx, ok := parseIndex(c)
	if !ok {
		return
	}
	if idx >= len(h.session.Bindings()) {
		notFound(c, "binding index out of range")
		return
	}
	if err := h.session.DeleteBinding(c.Request.Context(), idx); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(200, gin.H{"bindings": h.session.Bindings()})
}

// === 限流 ===

// GetRateLimits 加载限流页（配置 + Key 配置 + 用量投影）
func (h *Handler) GetRateLimits(c *gin.Context) {
	if err := h.session.LoadRateLimits(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(200, gin.H{
		"config":      h.session.RateLimiting(),
		"key_configs": h.session.KeyConfigs(),
		"usage":       h.session.UsageRows(),
	})
}

// SaveRateLimiting 批量保存状态码和持久化路径
// 数值字段按原始字符串接收，归一化交给表单。
func (h *Handler) SaveRateLimiting(c *gin.Context) {
	var req struct {
		ExceededStatusCode string `json:"exceeded-status-code"`
		PersistencePath    string `json:"persistence-path"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_body", "invalid request body")
		return
	}
	form := forms.NewSettingsForm()
	form.ExceededStatusCode = req.ExceededStatusCode
	form.PersistencePath = req.PersistencePath
	if err := h.session.SaveSettings(c.Request.Context(), form); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(200, gin.H{"config": h.session.RateLimiting()})
}

// ToggleRateLimiting 即时提交限流开关
func (h *Handler) ToggleRateLimiting(c *gin.Context) {
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		badRequest(c, "invalid_body", "enabled is required")
		return
	}
	if err := h.session.ToggleEnabled(c.Request.Context(), *req.Enabled); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(200, gin.H{"config": h.session.RateLimiting()})
}

// keyConfigPayload Key 配置表单的线上表示
// 四个配额字段是字符串：空白表示不限制，和 0 区分开。
type keyConfigPayload struct {
	Key              string   `json:"key"`
	RequestsPerDay   string   `json:"requests-per-day"`
	RequestsPerMonth string   `json:"requests-per-month"`
	TokensPerDay     string   `json:"tokens-per-day"`
	TokensPerMonth   string   `json:"tokens-per-month"`
	AllowedProviders []string `json:"allowed-providers"`
	AuthIDs          []string `json:"auth-ids"`
}

func fillKeyConfigForm(f *forms.KeyConfigForm, req keyConfigPayload) {
	f.SetKey(req.Key)
	f.RequestsPerDay = req.RequestsPerDay
	f.RequestsPerMonth = req.RequestsPerMonth
	f.TokensPerDay = req.TokensPerDay
	f.TokensPerMonth = req.TokensPerMonth
	f.AllowedProviders = taglist.NewFrom(req.AllowedProviders)
	f.AuthIDs = taglist.NewFrom(req.AuthIDs)
}

// CreateKeyConfig 新增 API Key 配置
func (h *Handler) CreateKeyConfig(c *gin.Context) {
	var req keyConfigPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_body", "invalid request body")
		return
	}
	form := forms.NewKeyConfigForm()
	fillKeyConfigForm(form, req)
	if err := h.session.SaveKeyConfig(c.Request.Context(), form); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(200, gin.H{"key_configs": h.session.KeyConfigs()})
}

// UpdateKeyConfig 按 key 编辑配置。key 字段锁定，改名会被忽略。
func (h *Handler) UpdateKeyConfig(c *gin.Context) {
	key := c.Param("key")
	existing, ok := findKeyConfig(h.session.KeyConfigs(), key)
	if !ok {
		notFound(c, "api key config not found")
		return
	}
	var req keyConfigPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid_body", "invalid request body")
		return
	}
	form := forms.NewKeyConfigFormEdit(existing)
	fillKeyConfigForm(form, req)
	if err := h.session.SaveKeyConfig(c.Request.Context(), form); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(200, gin.H{"key_configs": h.session.KeyConfigs()})
}

// DeleteKeyConfig 按 key 删除配置
func (h *Handler) DeleteKeyConfig(c *gin.Context) {
	key := c.Param("key")
	if _, ok := findKeyConfig(h.session.KeyConfigs(), key); !ok {
		notFound(c, "api key config not found")
		return
	}
	if err := h.session.DeleteKeyConfig(c.Request.Context(), key); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(200, gin.H{"key_configs": h.session.KeyConfigs()})
}

func findKeyConfig(configs []model.APIKeyConfig, key string) (model.APIKeyConfig, bool) {
	for _, cfg := range configs {
		if cfg.Key == key {
			return cfg, true
		}
	}
	return model.APIKeyConfig{}, false
}

// === 用量 ===

// ResetUsage 清零单个 key 的用量计数
func (h *Handler) ResetUsage(c *gin.Context) {
	key := c.Param("key")
	if err := h.session.ResetUsage(c.Request.Context(), key); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(200, gin.H{"usage": h.session.UsageRows()})
}

// === 状态与审计 ===

// GetStatus 返回会话状态
func (h *Handler) GetStatus(c *gin.Context) {
	c.JSON(200, gin.H{
		"saving":        h.session.Saving(),
		"strategy":      h.session.Strategy(),
		"audit_enabled": h.store != nil,
		"upstream":      h.cfg.Upstream.BaseURL,
	})
}

// GetAudit 查询操作审计记录
func (h *Handler) GetAudit(c *gin.Context) {
	if h.store == nil {
		c.JSON(503, model.ErrorResponse{
			Error: model.ErrorDetail{
				Message: "audit is disabled",
				Type:    "invalid_request_error",
				Code:    "audit_disabled",
			},
		})
		return
	}
	var query model.AuditQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		badRequest(c, "invalid_query", "invalid query parameters")
		return
	}
	entries, err := h.store.QueryAudits(&query)
	if err != nil {
		c.JSON(500, model.ErrorResponse{
			Error: model.ErrorDetail{
				Message: err.Error(),
				Type:    "internal_error",
				Code:    "audit_query_failed",
			},
		})
		return
	}
	if entries == nil {
		entries = []*model.AuditEntry{}
	}
	c.JSON(200, gin.H{"entries": entries})
}

// GetAuditStats 查询每日操作统计
func (h *Handler) GetAuditStats(c *gin.Context) {
	if h.store == nil {
		c.JSON(503, model.ErrorResponse{
			Error: model.ErrorDetail{
				Message: "audit is disabled",
				Type:    "invalid_request_error",
				Code:    "audit_disabled",
			},
		})
		return
	}
	days := 7
	if s := c.Query("days"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			days = v
		}
	}
	stats, err := h.store.GetDailyStats(days)
	if err != nil {
		c.JSON(500, model.ErrorResponse{
			Error: model.ErrorDetail{
				Message: err.Error(),
				Type:    "internal_error",
				Code:    "audit_query_failed",
			},
		})
		return
	}
	if stats == nil {
		stats = []*model.AuditDailyStats{}
	}
	c.JSON(200, gin.H{"stats": stats})
}
