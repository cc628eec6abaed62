// Package proxyapi 封装上游代理服务的管理 REST API。
// 这里只做请求组装和 JSON 编解码，不含任何业务逻辑；
// 每个资源一组类型化的方法，路径里的 key 一律做百分号转义。
package proxyapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/KilimcininKorOglu/Cli-Proxy-API-Management-Center/internal/model"
)

// RemoteError 远端明确报告的失败（非 2xx 或 ok:false）
// 与传输层错误（连不上、超时）区分开，前者带远端的错误消息。
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("remote error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("remote error (status %d)", e.StatusCode)
}

// Client 管理 API 客户端
type Client struct {
	baseURL string
	key     string
	http    *http.Client
}

// New 创建客户端，baseURL 形如 http://127.0.0.1:8317/v0/management
func New(baseURL, managementKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     managementKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// do 发送请求并把响应解码进 out（out 为 nil 时丢弃响应体）
func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.key != "" {
		req.Header.Set("Authorization", "Bearer "+c.key)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &RemoteError{StatusCode: resp.StatusCode, Message: remoteMessage(data)}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// doMutation 发送变更请求并检查 ok 标志
func (c *Client) doMutation(ctx context.Context, method, path string, payload any) (model.MutationResult, error) {
	var result model.MutationResult
	if err := c.do(ctx, method, path, payload, &result); err != nil {
		return model.MutationResult{}, err
	}
	if !result.OK {
		return model.MutationResult{}, &RemoteError{StatusCode: http.StatusOK, Message: "remote rejected the mutation"}
	}
	return result, nil
}

// remoteMessage 尽力从错误响应体里提取远端消息
func remoteMessage(data []byte) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil {
		if envelope.Error.Message != "" {
			return envelope.Error.Message
		}
		if envelope.Message != "" {
			return envelope.Message
		}
	}
	s := strings.TrimSpace(string(data))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
