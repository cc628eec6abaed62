package model

import "time"

// AuditEntry 操作审计记录
type AuditEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`   // e.g. "rule.create", "key-config.delete"
	Resource  string    `json:"resource"` // 目标资源（key、索引等）
	Detail    string    `json:"detail,omitempty"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
}

// AuditQuery 审计查询条件
type AuditQuery struct {
	Action    string    `form:"action"`
	Resource  string    `form:"resource"`
	Success   *bool     `form:"success"`
	StartTime time.Time `form:"start_time" time_format:"2006-01-02T15:04:05Z07:00"`
	EndTime   time.Time `form:"end_time" time_format:"2006-01-02T15:04:05Z07:00"`
	Limit     int       `form:"limit"`
	Offset    int       `form:"offset"`
}

// AuditDailyStats 每日操作统计
type AuditDailyStats struct {
	Date         string `json:"date"`
	TotalActions int    `json:"total_actions"`
	FailureCount int    `json:"failure_count"`
}
