package usage

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "usage_test.db")
	s, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("NewStore(%q): %v", dbPath, err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndStats(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	recs := []Record{
		{Timestamp: now, Document: "a.md", TemplateID: "general-note", Model: "gpt-3.5-turbo", Provider: "openai", Success: true, Tokens: 100, DurationMs: 200},
		{Timestamp: now.Add(time.Second), Document: "b.md", TemplateID: "general-note", Model: "gpt-3.5-turbo", Provider: "openai", Success: true, Tokens: 50, DurationMs: 400},
		{Timestamp: now.Add(2 * time.Second), Document: "c.md", TemplateID: "general-note", Model: "gpt-3.5-turbo", Provider: "openai", ErrorCode: "API_REQUEST_FAILED", DurationMs: 600},
	}
	for _, rec := range recs {
		if err := s.Record(ctx, rec); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalRequests != 3 || stats.SuccessfulRequests != 2 || stats.FailedRequests != 1 {
		t.Errorf("Unexpected counters: %+v", stats)
	}
	if stats.TotalTokensUsed != 150 {
		t.Errorf("TotalTokensUsed = %d, want 150", stats.TotalTokensUsed)
	}
	if stats.AverageProcessingTimeMs != 400 {
		t.Errorf("AverageProcessingTimeMs = %v, want 400", stats.AverageProcessingTimeMs)
	}
	if !stats.LastUsedAt.Equal(now.Add(2 * time.Second).Truncate(time.Nanosecond)) {
		t.Errorf("LastUsedAt = %v", stats.LastUsedAt)
	}
	if !stats.LastResetAt.IsZero() {
		t.Errorf("LastResetAt should be zero before any reset, got %v", stats.LastResetAt)
	}
}

func TestResetHidesOlderRecords(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := s.Record(ctx, Record{Timestamp: now.Add(-time.Hour), Document: "old.md", Success: true, Tokens: 10}); err != nil {
		t.Fatal(err)
	}
	if err := s.Reset(ctx, now); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if err := s.Record(ctx, Record{Timestamp: now.Add(time.Minute), Document: "new.md", Success: true, Tokens: 7}); err != nil {
		t.Fatal(err)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalRequests != 1 || stats.TotalTokensUsed != 7 {
		t.Errorf("Stats after reset = %+v", stats)
	}
	if !stats.LastResetAt.Equal(now) {
		t.Errorf("LastResetAt = %v, want %v", stats.LastResetAt, now)
	}

	recent, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 || recent[0].Document != "new.md" {
		t.Errorf("Recent should list every record newest first, got %+v", recent)
	}
	if recent[0].ID == "" {
		t.Error("Record should assign an ID")
	}
}

func TestEmptyStats(t *testing.T) {
	s := testStore(t)
	stats, err := s.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalRequests != 0 || !stats.LastUsedAt.IsZero() {
		t.Errorf("Expected empty stats, got %+v", stats)
	}
}
