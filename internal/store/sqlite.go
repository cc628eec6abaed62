package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/KilimcininKorOglu/Cli-Proxy-API-Management-Center/internal/model"
	_ "github.com/mattn/go-sqlite3"
)

// Store 操作审计存储
type Store struct {
	db *sql.DB
}

// New 创建存储实例
func New(dbPath string) (*Store, error) {
	// 确保目录存在
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return store, nil
}

// migrate 数据库迁移
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS audit_logs (
		id TEXT PRIMARY KEY,
		timestamp DATETIME NOT NULL,
		action TEXT NOT NULL,
		resource TEXT,
		detail TEXT,
		success INTEGER,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_logs(timestamp);
	CREATE INDEX IF NOT EXISTS idx_audit_action ON audit_logs(action);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close 关闭数据库
func (s *Store) Close() error {
	return s.db.Close()
}

// === 审计记录 ===

// SaveAudit 保存审计记录
func (s *Store) SaveAudit(entry *model.AuditEntry) error {
	_, err := s.db.Exec(`
		INSERT INTO audit_logs (id, timestamp, action, resource, detail, success, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.Timestamp, entry.Action, entry.Resource, entry.Detail, entry.Success, entry.Error)
	return err
}

// QueryAudits 查询审计记录
func (s *Store) QueryAudits(query *model.AuditQuery) ([]*model.AuditEntry, error) {
	sql := "SELECT id, timestamp, action, resource, COALESCE(detail, ''), success, COALESCE(error, '') FROM audit_logs WHERE 1=1"
	args := []any{}

	if query.Action != "" {
		sql += " AND action = ?"
		args = append(args, query.Action)
	}
	if query.Resource != "" {
		sql += " AND resource = ?"
		args = append(args, query.Resource)
	}
	if query.Success != nil {
		sql += " AND success = ?"
		args = append(args, *query.Success)
	}
	if !query.StartTime.IsZero() {
		sql += " AND timestamp >= ?"
		args = append(args, query.StartTime)
	}
	if !query.EndTime.IsZero() {
		sql += " AND timestamp <= ?"
		args = append(args, query.EndTime)
	}

	sql += " ORDER BY timestamp DESC"

	if query.Limit > 0 {
		sql += fmt.Sprintf(" LIMIT %d", query.Limit)
	} else {
		sql += " LIMIT 100"
	}
	if query.Offset > 0 {
		sql += fmt.Sprintf(" OFFSET %d", query.Offset)
	}

	rows, err := s.db.Query(sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Action, &e.Resource, &e.Detail, &e.Success, &e.Error); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, nil
}

// GetDailyStats 获取每日操作统计
func (s *Store) GetDailyStats(days int) ([]*model.AuditDailyStats, error) {
	rows, err := s.db.Query(`
		SELECT
			date(timestamp) as date,
			COUNT(*) as total_actions,
			SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END) as failure_count
		FROM audit_logs
		WHERE timestamp >= date('now', ?)
		GROUP BY date(timestamp)
		ORDER BY date DESC
	`, fmt.Sprintf("-%d days", days))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []*model.AuditDailyStats
	for rows.Next() {
		var st model.AuditDailyStats
		if err := rows.Scan(&st.Date, &st.TotalActions, &st.FailureCount); err != nil {
			return nil, err
		}
		stats = append(stats, &st)
	}
	return stats, nil
}

// CleanOldAudits 清理过期审计记录
func (s *Store) CleanOldAudits(retentionDays int) (int64, error) {
	result, err := s.db.Exec(`
		DELETE FROM audit_logs
		WHERE timestamp < date('now', ?)
	`, fmt.Sprintf("-%d days", retentionDays))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
