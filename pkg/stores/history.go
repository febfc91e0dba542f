package stores

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tendril-dev/tendril/pkg/terraform"
)

// ReconciliationHistory adapts a Store to the driver's History interface.
type ReconciliationHistory struct {
	store  Store
	logger zerolog.Logger
}

// NewReconciliationHistory creates a history recorder on top of a store.
func NewReconciliationHistory(store Store, logger zerolog.Logger) *ReconciliationHistory {
	return &ReconciliationHistory{
		store:  store,
		logger: logger.With().Str("component", "history").Logger(),
	}
}

// Begin opens a reconciliation record and returns its ID.
func (h *ReconciliationHistory) Begin(ctx context.Context, root, action string) (string, error) {
	now := time.Now()
	rec := &Reconciliation{
		ID:        uuid.NewString(),
		Root:      root,
		Action:    action,
		Status:    ReconciliationStatusRunning,
		StartedAt: now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.store.CreateReconciliation(ctx, rec); err != nil {
		return "", err
	}
	return rec.ID, nil
}

// Finish completes a reconciliation record. Best-effort: failures are
// logged, never returned, so recording can never fail an operation.
func (h *ReconciliationHistory) Finish(ctx context.Context, id string, exitCode *int, ready *bool, opErr error) {
	status := ReconciliationStatusSucceeded
	var errMsg *string
	if opErr != nil {
		status = ReconciliationStatusFailed
		msg := opErr.Error()
		errMsg = &msg
	}
	if err := h.store.CompleteReconciliation(ctx, id, status, exitCode, ready, errMsg); err != nil {
		h.logger.Warn().Err(err).Str("id", id).Msg("failed to complete history record")
	}
}

// interface guard
var _ terraform.History = (*ReconciliationHistory)(nil)
