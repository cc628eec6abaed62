package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/KilimcininKorOglu/Cli-Proxy-API-Management-Center/internal/config"
	"github.com/KilimcininKorOglu/Cli-Proxy-API-Management-Center/internal/console"
	"github.com/KilimcininKorOglu/Cli-Proxy-API-Management-Center/internal/proxyapi"
	"github.com/gin-gonic/gin"
)

// upstream 模拟上游代理服务的管理 API
type upstream struct {
	mu        sync.Mutex
	mutations []recordedCall
	rejectAll bool
}

type recordedCall struct {
	method string
	path   string
	body   string
}

func (u *upstream) setRejectAll(v bool) {
	u.mu.Lock()
	u.rejectAll = v
	u.mu.Unlock()
}

func (u *upstream) lastMutation(t *testing.T) recordedCall {
	t.Helper()
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.mutations) == 0 {
		t.Fatal("no mutation reached upstream")
	}
	return u.mutations[len(u.mutations)-1]
}

func (u *upstream) mutationCount() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.mutations)
}

func (u *upstream) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			body, _ := io.ReadAll(r.Body)
			u.mu.Lock()
			u.mutations = append(u.mutations, recordedCall{r.Method, r.URL.Path, string(body)})
			reject := u.rejectAll
			u.mu.Unlock()

			if reject {
				w.WriteHeader(500)
				w.Write([]byte(`{"error":{"message":"persistence failure"}}`))
				return
			}
			if r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/rate-limits/usage/") {
				w.Write([]byte(`{"ok":true,"reset":true}`))
				return
			}
			w.Write([]byte(`{"ok":true}`))
			return
		}

		switch r.URL.Path {
		case "/routing":
			w.Write([]byte(`{
				"strategy": "round-robin",
				"priority": [{"models": ["gpt-4"], "order": [{"pattern": "openai/*"}], "fallback": true}],
				"bindings": [{"api-key": "sk-a", "auth-ids": ["auth-1"], "fallback": true}]
			}`))
		case "/rate-limiting":
			w.Write([]byte(`{"enabled": true, "exceeded-status-code": 429}`))
		case "/api-key-configs":
			w.Write([]byte(`{"api_key_configs": [{"key": "sk-a", "limits": {"requests-per-day": 100}}]}`))
		case "/rate-limits/usage":
			w.Write([]byte(`{"usage": {"sk-a": {"requests_today": 40}}}`))
		default:
			w.WriteHeader(404)
		}
	})
}

// newTestRouter 起一个假上游，返回控制台路由和上游记录器
func newTestRouter(t *testing.T) (*gin.Engine, *upstream) {
	t.Helper()
	up := &upstream{}
	srv := httptest.NewServer(up.handler())
	t.Cleanup(srv.Close)

	cfg := &config.Config{}
	cfg.Server.AdminAPIKey = "admin-secret"
	cfg.Upstream.BaseURL = srv.URL

	client := proxyapi.New(srv.URL, "mk-test", time.Second)
	session := console.NewSession(client, nil)
	h := NewHandler(session, nil, cfg)
	return SetupRouter(cfg, h), up
}

// doReq 带管理密钥发请求
func doReq(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Authorization", "Bearer admin-secret")
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest("GET", "/api/status", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != 401 {
		t.Fatalf("no auth: status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest("GET", "/api/status", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != 401 {
		t.Fatalf("wrong key: status = %d, want 401", w.Code)
	}

	if w := doReq(r, "GET", "/api/status", ""); w.Code != 200 {
		t.Fatalf("valid key: status = %d, want 200", w.Code)
	}
}

func TestGetRouting(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doReq(r, "GET", "/api/routing", "")
	if w.Code != 200 {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Strategy string `json:"strategy"`
		Priority []struct {
			Models []string `json:"models"`
		} `json:"priority"`
		Bindings []struct {
			APIKey string `json:"api-key"`
		} `json:"bindings"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Strategy != "round-robin" {
		t.Errorf("strategy = %q", resp.Strategy)
	}
	if len(resp.Priority) != 1 || len(resp.Bindings) != 1 {
		t.Fatalf("priority = %d, bindings = %d", len(resp.Priority), len(resp.Bindings))
	}
	if resp.Bindings[0].APIKey != "sk-a" {
		t.Errorf("binding key = %q", resp.Bindings[0].APIKey)
	}
}

func TestPutStrategy_Invalid(t *testing.T) {
	r, up := newTestRouter(t)

	w := doReq(r, "PUT", "/api/routing/strategy", `{"strategy": "weighted"}`)
	if w.Code != 400 {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if up.mutationCount() != 0 {
		t.Fatal("invalid strategy must not reach upstream")
	}
}

func TestCreateRule_ValidationStopsLocally(t *testing.T) {
	r, up := newTestRouter(t)

	w := doReq(r, "POST", "/api/routing/rules", `{"models": ["gpt-4"], "patterns": []}`)
	if w.Code != 400 {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "invalid_order") {
		t.Errorf("body = %s", w.Body.String())
	}
	if up.mutationCount() != 0 {
		t.Fatal("invalid form must not reach upstream")
	}
}

func TestCreateRule_AppendsAndReturnsList(t *testing.T) {
	r, up := newTestRouter(t)
	doReq(r, "GET", "/api/routing", "")

	w := doReq(r, "POST", "/api/routing/rules", `{"models": [], "patterns": ["claude/*"], "fallback": false}`)
	if w.Code != 200 {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	call := up.lastMutation(t)
	if call.method != "POST" || call.path != "/routing/priority" {
		t.Fatalf("upstream call = %s %s", call.method, call.path)
	}

	var resp struct {
		Priority []struct {
			Models []string `json:"models"`
		} `json:"priority"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Priority) != 2 {
		t.Fatalf("priority = %d, want 2", len(resp.Priority))
	}
	if len(resp.Priority[1].Models) != 0 {
		t.Error("new default rule must be appended last")
	}
}

func TestUpdateRule_IndexOutOfRange(t *testing.T) {
	r, up := newTestRouter(t)
	doReq(r, "GET", "/api/routing", "")

	w := doReq(r, "PUT", "/api/routing/rules/5", `{"patterns": ["x/*"]}`)
	if w.Code != 404 {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if up.mutationCount() != 0 {
		t.Fatal("out-of-range index must not reach upstream")
	}
}

func TestUpdateBinding_RenameIgnored(t *testing.T) {
	r, up := newTestRouter(t)
	doReq(r, "GET", "/api/routing", "")

	w := doReq(r, "PUT", "/api/routing/bindings/0",
		`{"api-key": "sk-renamed", "auth-ids": ["auth-2"], "fallback": false}`)
	if w.Code != 200 {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	call := up.lastMutation(t)
	if call.path != "/routing/bindings/0" {
		t.Fatalf("upstream path = %s", call.path)
	}
	if !strings.Contains(call.body, `"api-key":"sk-a"`) {
		t.Errorf("rename must be ignored, body = %s", call.body)
	}
	if !strings.Contains(call.body, "auth-2") {
		t.Errorf("auth ids not updated, body = %s", call.body)
	}
}

func TestDeleteBinding(t *testing.T) {
	r, up := newTestRouter(t)
	doReq(r, "GET", "/api/routing", "")

	w := doReq(r, "DELETE", "/api/routing/bindings/0", "")
	if w.Code != 200 {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	call := up.lastMutation(t)
	if call.method != "DELETE" || call.path != "/routing/bindings/0" {
		t.Fatalf("upstream call = %s %s", call.method, call.path)
	}

	var resp struct {
		Bindings []json.RawMessage `json:"bindings"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Bindings) != 0 {
		t.Fatalf("bindings = %d, want 0", len(resp.Bindings))
	}
}

func TestRemoteFailureMapsTo502(t *testing.T) {
	r, up := newTestRouter(t)
	doReq(r, "GET", "/api/routing", "")
	up.setRejectAll(true)

	w := doReq(r, "DELETE", "/api/routing/rules/0", "")
	if w.Code != 502 {
		t.Fatalf("status = %d, want 502", w.Code)
	}
	if !strings.Contains(w.Body.String(), "persistence failure") {
		t.Errorf("remote message missing, body = %s", w.Body.String())
	}

	// 失败后本地镜像不动，重试仍然可行
	up.setRejectAll(false)
	if w := doReq(r, "DELETE", "/api/routing/rules/0", ""); w.Code != 200 {
		t.Fatalf("retry status = %d", w.Code)
	}
}

func TestGetRateLimits(t *testing.T) {
	r, _ := newTestRouter(t)

	w := doReq(r, "GET", "/api/rate-limits", "")
	if w.Code != 200 {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Config struct {
			Enabled            bool `json:"enabled"`
			ExceededStatusCode int  `json:"exceeded-status-code"`
		} `json:"config"`
		KeyConfigs []json.RawMessage `json:"key_configs"`
		Usage      []struct {
			Key           string `json:"key"`
			RequestsToday struct {
				Percent int `json:"percent"`
			} `json:"requests_today"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Config.Enabled || resp.Config.ExceededStatusCode != 429 {
		t.Errorf("config = %+v", resp.Config)
	}
	if len(resp.KeyConfigs) != 1 {
		t.Fatalf("key_configs = %d", len(resp.KeyConfigs))
	}
	if len(resp.Usage) != 1 || resp.Usage[0].Key != "sk-a" {
		t.Fatalf("usage = %+v", resp.Usage)
	}
	if resp.Usage[0].RequestsToday.Percent != 40 {
		t.Errorf("percent = %d, want 40", resp.Usage[0].RequestsToday.Percent)
	}
}

func TestToggleRateLimiting(t *testing.T) {
	r, up := newTestRouter(t)
	doReq(r, "GET", "/api/rate-limits", "")

	w := doReq(r, "PUT", "/api/rate-limiting/enabled", `{"enabled": false}`)
	if w.Code != 200 {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	call := up.lastMutation(t)
	if call.method != "PUT" || call.path != "/rate-limiting" {
		t.Fatalf("upstream call = %s %s", call.method, call.path)
	}
	if !strings.Contains(call.body, `"enabled":false`) {
		t.Errorf("body = %s", call.body)
	}
	// 开关提交带的是最后一次加载的状态码
	if !strings.Contains(call.body, `"exceeded-status-code":429`) {
		t.Errorf("body = %s", call.body)
	}
}

func TestSaveRateLimiting_NormalizesStatusCode(t *testing.T) {
	r, up := newTestRouter(t)
	doReq(r, "GET", "/api/rate-limits", "")

	w := doReq(r, "PUT", "/api/rate-limiting", `{"exceeded-status-code": "", "persistence-path": " /var/usage.json "}`)
	if w.Code != 200 {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	call := up.lastMutation(t)
	if !strings.Contains(call.body, `"exceeded-status-code":429`) {
		t.Errorf("blank status code must fall back to 429, body = %s", call.body)
	}
	if !strings.Contains(call.body, `"persistence-path":"/var/usage.json"`) {
		t.Errorf("path must be trimmed, body = %s", call.body)
	}
}

func TestCreateKeyConfig_InvalidLimit(t *testing.T) {
	r, up := newTestRouter(t)

	w := doReq(r, "POST", "/api/key-configs", `{"key": "sk-new", "requests-per-day": "abc"}`)
	if w.Code != 400 {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if up.mutationCount() != 0 {
		t.Fatal("invalid limit must not reach upstream")
	}
}

func TestUpdateKeyConfig_UnknownKey(t *testing.T) {
	r, _ := newTestRouter(t)
	doReq(r, "GET", "/api/rate-limits", "")

	w := doReq(r, "PUT", "/api/key-configs/sk-missing", `{"requests-per-day": "10"}`)
	if w.Code != 404 {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestUpdateKeyConfig_RenameIgnored(t *testing.T) {
	r, up := newTestRouter(t)
	doReq(r, "GET", "/api/rate-limits", "")

	w := doReq(r, "PUT", "/api/key-configs/sk-a", `{"key": "sk-other", "requests-per-day": "200"}`)
	if w.Code != 200 {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	call := up.lastMutation(t)
	if call.method != "PUT" || call.path != "/api-key-configs/sk-a" {
		t.Fatalf("upstream call = %s %s", call.method, call.path)
	}
	if !strings.Contains(call.body, `"key":"sk-a"`) {
		t.Errorf("rename must be ignored, body = %s", call.body)
	}
}

func TestResetUsage(t *testing.T) {
	r, up := newTestRouter(t)
	doReq(r, "GET", "/api/rate-limits", "")

	w := doReq(r, "DELETE", "/api/usage/sk-a", "")
	if w.Code != 200 {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	call := up.lastMutation(t)
	if call.method != "DELETE" || call.path != "/rate-limits/usage/sk-a" {
		t.Fatalf("upstream call = %s %s", call.method, call.path)
	}
}

func TestAuditDisabled(t *testing.T) {
	r, _ := newTestRouter(t)

	if w := doReq(r, "GET", "/api/audit", ""); w.Code != 503 {
		t.Fatalf("audit: status = %d, want 503", w.Code)
	}
	if w := doReq(r, "GET", "/api/audit/stats", ""); w.Code != 503 {
		t.Fatalf("stats: status = %d, want 503", w.Code)
	}
}
