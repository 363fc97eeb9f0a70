package audit

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nerrad567/pushgate/migrations"
)

// setupTestDB creates an in-memory SQLite database with the audit schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup

	schema, err := migrations.FS.ReadFile("20260101_000000_audit_logs.up.sql")
	if err != nil {
		t.Fatalf("reading audit schema: %v", err)
	}
	if _, err := db.Exec(string(schema)); err != nil {
		t.Fatalf("applying audit schema: %v", err)
	}
	return db
}

func TestCreateFillsDefaults(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	entry := &Entry{Action: "create", EntityType: EntityChannel, EntityID: "news", Source: "api"}
	if err := repo.Create(ctx, entry); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if entry.ID == "" || entry.CreatedAt.IsZero() {
		t.Errorf("Create() left ID or CreatedAt empty: %+v", entry)
	}

	result, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Total != 1 || len(result.Logs) != 1 {
		t.Fatalf("List() total=%d logs=%d, want 1", result.Total, len(result.Logs))
	}
	got := result.Logs[0]
	if got.ID != entry.ID || got.EntityID != "news" || got.UserID != "" || got.Details != nil {
		t.Errorf("List() entry = %+v", got)
	}
}

func TestListFiltersAndOrder(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	entries := []Entry{
		{Action: "create", EntityType: EntityChannel, EntityID: "news", Source: "api", CreatedAt: base},
		{Action: "kick", EntityType: EntityUser, UserID: "7", Source: "api", CreatedAt: base.Add(500 * time.Millisecond)},
		{Action: "logout", EntityType: EntityAuthToken, Source: "api", CreatedAt: base.Add(time.Second),
			Details: map[string]any{"connections": float64(2)}},
		{Action: "delete", EntityType: EntityChannel, EntityID: "news", Source: "api", CreatedAt: base.Add(2 * time.Second)},
	}
	for i := range entries {
		if err := repo.Create(ctx, &entries[i]); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	tests := []struct {
		name       string
		filter     Filter
		wantTotal  int
		wantFirst  string
		wantLength int
	}{
		{"all newest first", Filter{}, 4, "delete", 4},
		{"by entity", Filter{EntityType: EntityChannel, EntityID: "news"}, 2, "delete", 2},
		{"by action", Filter{Action: "kick"}, 1, "kick", 1},
		{"by user", Filter{UserID: "7"}, 1, "kick", 1},
		{"paged", Filter{Limit: 2, Offset: 1}, 4, "logout", 2},
		{"no match", Filter{Action: "nothing"}, 0, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if result.Total != tt.wantTotal || len(result.Logs) != tt.wantLength {
				t.Fatalf("List() total=%d len=%d, want %d/%d", result.Total, len(result.Logs), tt.wantTotal, tt.wantLength)
			}
			if tt.wantLength > 0 && result.Logs[0].Action != tt.wantFirst {
				t.Errorf("first action = %q, want %q", result.Logs[0].Action, tt.wantFirst)
			}
			if result.Logs == nil {
				t.Error("Logs is nil, want empty slice")
			}
		})
	}

	result, _ := repo.List(ctx, Filter{Action: "logout"})
	if result.Logs[0].Details["connections"] != float64(2) {
		t.Errorf("details = %v, want connections=2", result.Logs[0].Details)
	}
}

func TestListClampsLimit(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	result, err := repo.List(context.Background(), Filter{Limit: 10000, Offset: -5})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if result.Limit != maxLimit || result.Offset != 0 {
		t.Errorf("List() limit=%d offset=%d, want %d/0", result.Limit, result.Offset, maxLimit)
	}
}
