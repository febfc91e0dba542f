package stores

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(Config{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return store
}

func newTestReconciliation(root, action string) *Reconciliation {
	now := time.Now()
	return &Reconciliation{
		ID:        uuid.NewString(),
		Root:      root,
		Action:    action,
		Status:    ReconciliationStatusRunning,
		StartedAt: now,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestNewSQLiteStoreRequiresPath(t *testing.T) {
	if _, err := NewSQLiteStore(Config{}); err == nil {
		t.Fatal("expected an error for an empty path")
	}
}

func TestMigrateIdempotent(t *testing.T) {
	store := setupTestStore(t)
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}

func TestReconciliationLifecycle(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	rec := newTestReconciliation("/srv/stack", "status")
	if err := store.CreateReconciliation(ctx, rec); err != nil {
		t.Fatalf("CreateReconciliation: %v", err)
	}

	got, err := store.GetReconciliation(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetReconciliation: %v", err)
	}
	if got.Root != "/srv/stack" || got.Action != "status" || got.Status != ReconciliationStatusRunning {
		t.Errorf("got %+v", got)
	}
	if got.CompletedAt != nil {
		t.Error("CompletedAt set on a running record")
	}

	exit := 2
	ready := false
	if err := store.CompleteReconciliation(ctx, rec.ID, ReconciliationStatusSucceeded, &exit, &ready, nil); err != nil {
		t.Fatalf("CompleteReconciliation: %v", err)
	}

	got, err = store.GetReconciliation(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetReconciliation after complete: %v", err)
	}
	if got.Status != ReconciliationStatusSucceeded {
		t.Errorf("Status = %q, want succeeded", got.Status)
	}
	if got.PlanExit == nil || *got.PlanExit != 2 {
		t.Errorf("PlanExit = %v, want 2", got.PlanExit)
	}
	if got.Ready == nil || *got.Ready {
		t.Errorf("Ready = %v, want false", got.Ready)
	}
	if got.CompletedAt == nil {
		t.Error("CompletedAt not set")
	}
}

func TestCompleteReconciliationWithError(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	rec := newTestReconciliation("/srv/stack", "apply")
	if err := store.CreateReconciliation(ctx, rec); err != nil {
		t.Fatalf("CreateReconciliation: %v", err)
	}

	msg := "[runtime] failed to apply stack"
	if err := store.CompleteReconciliation(ctx, rec.ID, ReconciliationStatusFailed, nil, nil, &msg); err != nil {
		t.Fatalf("CompleteReconciliation: %v", err)
	}

	got, err := store.GetReconciliation(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetReconciliation: %v", err)
	}
	if got.Status != ReconciliationStatusFailed {
		t.Errorf("Status = %q, want failed", got.Status)
	}
	if got.Error == nil || *got.Error != msg {
		t.Errorf("Error = %v, want %q", got.Error, msg)
	}
}

func TestGetReconciliationNotFound(t *testing.T) {
	store := setupTestStore(t)
	if _, err := store.GetReconciliation(context.Background(), "no-such-id"); err == nil {
		t.Fatal("expected an error for an unknown ID")
	}
}

func TestCompleteReconciliationNotFound(t *testing.T) {
	store := setupTestStore(t)
	err := store.CompleteReconciliation(context.Background(), "no-such-id", ReconciliationStatusSucceeded, nil, nil, nil)
	if err == nil {
		t.Fatal("expected an error for an unknown ID")
	}
}

func TestListReconciliations(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for i, root := range []string{"/srv/a", "/srv/a", "/srv/b"} {
		rec := newTestReconciliation(root, "status")
		rec.StartedAt = rec.StartedAt.Add(time.Duration(i) * time.Second)
		if err := store.CreateReconciliation(ctx, rec); err != nil {
			t.Fatalf("CreateReconciliation %d: %v", i, err)
		}
	}

	all, err := store.ListReconciliations(ctx, "", 10, 0)
	if err != nil {
		t.Fatalf("ListReconciliations: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("unfiltered list = %d records, want 3", len(all))
	}
	if len(all) > 1 && all[0].StartedAt.Before(all[1].StartedAt) {
		t.Error("list is not newest first")
	}

	byRoot, err := store.ListReconciliations(ctx, "/srv/a", 10, 0)
	if err != nil {
		t.Fatalf("ListReconciliations by root: %v", err)
	}
	if len(byRoot) != 2 {
		t.Errorf("filtered list = %d records, want 2", len(byRoot))
	}

	limited, err := store.ListReconciliations(ctx, "", 1, 0)
	if err != nil {
		t.Fatalf("ListReconciliations limited: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("limited list = %d records, want 1", len(limited))
	}
}

func TestEvents(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	rec := newTestReconciliation("/srv/stack", "apply")
	if err := store.CreateReconciliation(ctx, rec); err != nil {
		t.Fatalf("CreateReconciliation: %v", err)
	}

	for _, level := range []EventLevel{EventLevelInfo, EventLevelWarning, EventLevelInfo} {
		event := &Event{
			ReconciliationID: &rec.ID,
			Level:            level,
			Message:          "apply output line",
			Timestamp:        time.Now(),
		}
		if err := store.AppendEvent(ctx, event); err != nil {
			t.Fatalf("AppendEvent: %v", err)
		}
		if event.ID == 0 {
			t.Error("AppendEvent did not backfill the event ID")
		}
	}

	all, err := store.GetEvents(ctx, &rec.ID, nil, 10, 0)
	if err != nil {
		t.Fatalf("GetEvents: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("events = %d, want 3", len(all))
	}

	warning := EventLevelWarning
	warnings, err := store.GetEvents(ctx, &rec.ID, &warning, 10, 0)
	if err != nil {
		t.Fatalf("GetEvents by level: %v", err)
	}
	if len(warnings) != 1 {
		t.Errorf("warning events = %d, want 1", len(warnings))
	}
}

func TestHealthCheck(t *testing.T) {
	store := setupTestStore(t)
	if err := store.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}

	uninitialized, err := NewSQLiteStore(Config{Path: filepath.Join(t.TempDir(), "x.db")})
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	if err := uninitialized.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck passed before Init")
	}
}
