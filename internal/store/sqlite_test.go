package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/KilimcininKorOglu/Cli-Proxy-API-Management-Center/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleEntry(id, action string, success bool) *model.AuditEntry {
	e := &model.AuditEntry{
		ID:        id,
		Timestamp: time.Now(),
		Action:    action,
		Resource:  "0",
		Detail:    "models=1 patterns=2",
		Success:   success,
	}
	if !success {
		e.Error = "remote error (status 500): boom"
	}
	return e
}

func TestSaveAndQueryAudit(t *testing.T) {
	s := newTestStore(t)

	if err := s.SaveAudit(sampleEntry("a1", "rule.create", true)); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := s.SaveAudit(sampleEntry("a2", "rule.delete", false)); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	entries, err := s.QueryAudits(&model.AuditQuery{})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
}

func TestQueryAudits_FilterByAction(t *testing.T) {
	s := newTestStore(t)
	s.SaveAudit(sampleEntry("a1", "rule.create", true))
	s.SaveAudit(sampleEntry("a2", "binding.create", true))

	entries, err := s.QueryAudits(&model.AuditQuery{Action: "rule.create"})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "a1" {
		t.Fatalf("entries = %+v", entries)
	}
}

func TestQueryAudits_FilterBySuccess(t *testing.T) {
	s := newTestStore(t)
	s.SaveAudit(sampleEntry("a1", "rule.create", true))
	s.SaveAudit(sampleEntry("a2", "rule.create", false))

	failed := false
	entries, err := s.QueryAudits(&model.AuditQuery{Success: &failed})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "a2" {
		t.Fatalf("entries = %+v", entries)
	}
	if entries[0].Error == "" {
		t.Fatal("failed entry should carry its error")
	}
}

func TestQueryAudits_Limit(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 5; i++ {
		s.SaveAudit(sampleEntry(string(rune('a'+i)), "rule.create", true))
	}

	entries, err := s.QueryAudits(&model.AuditQuery{Limit: 3})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}
}

func TestGetDailyStats(t *testing.T) {
	s := newTestStore(t)
	s.SaveAudit(sampleEntry("a1", "rule.create", true))
	s.SaveAudit(sampleEntry("a2", "rule.create", false))

	stats, err := s.GetDailyStats(7)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats[0].TotalActions != 2 || stats[0].FailureCount != 1 {
		t.Fatalf("stats[0] = %+v", stats[0])
	}
}

func TestCleanOldAudits(t *testing.T) {
	s := newTestStore(t)

	old := sampleEntry("a1", "rule.create", true)
	old.Timestamp = time.Now().AddDate(0, 0, -60)
	s.SaveAudit(old)
	s.SaveAudit(sampleEntry("a2", "rule.create", true))

	n, err := s.CleanOldAudits(30)
	if err != nil {
		t.Fatalf("clean failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("cleaned = %d, want 1", n)
	}

	entries, _ := s.QueryAudits(&model.AuditQuery{})
	if len(entries) != 1 || entries[0].ID != "a2" {
		t.Fatalf("entries = %+v", entries)
	}
}
