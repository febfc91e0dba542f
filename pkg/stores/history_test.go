package stores

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestHistoryBeginFinish(t *testing.T) {
	store := setupTestStore(t)
	hist := NewReconciliationHistory(store, zerolog.Nop())
	ctx := context.Background()

	id, err := hist.Begin(ctx, "/srv/stack", "status")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	rec, err := store.GetReconciliation(ctx, id)
	if err != nil {
		t.Fatalf("GetReconciliation: %v", err)
	}
	if rec.Status != ReconciliationStatusRunning {
		t.Errorf("Status = %q, want running", rec.Status)
	}

	exit := 0
	ready := true
	hist.Finish(ctx, id, &exit, &ready, nil)

	rec, err = store.GetReconciliation(ctx, id)
	if err != nil {
		t.Fatalf("GetReconciliation after Finish: %v", err)
	}
	if rec.Status != ReconciliationStatusSucceeded {
		t.Errorf("Status = %q, want succeeded", rec.Status)
	}
	if rec.Ready == nil || !*rec.Ready {
		t.Errorf("Ready = %v, want true", rec.Ready)
	}
}

func TestHistoryFinishWithError(t *testing.T) {
	store := setupTestStore(t)
	hist := NewReconciliationHistory(store, zerolog.Nop())
	ctx := context.Background()

	id, err := hist.Begin(ctx, "/srv/stack", "apply")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	hist.Finish(ctx, id, nil, nil, errors.New("apply blew up"))

	rec, err := store.GetReconciliation(ctx, id)
	if err != nil {
		t.Fatalf("GetReconciliation: %v", err)
	}
	if rec.Status != ReconciliationStatusFailed {
		t.Errorf("Status = %q, want failed", rec.Status)
	}
	if rec.Error == nil || *rec.Error != "apply blew up" {
		t.Errorf("Error = %v, want the operation error message", rec.Error)
	}
}

func TestHistoryFinishBestEffort(t *testing.T) {
	store := setupTestStore(t)
	hist := NewReconciliationHistory(store, zerolog.Nop())

	// Finishing an unknown record must not panic or propagate.
	hist.Finish(context.Background(), "no-such-id", nil, nil, nil)
}
