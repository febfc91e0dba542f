package stores

import (
	"context"
	"time"
)

// ReconciliationStatus represents the status of one recorded driver operation.
type ReconciliationStatus string

const (
	ReconciliationStatusRunning   ReconciliationStatus = "running"
	ReconciliationStatusSucceeded ReconciliationStatus = "succeeded"
	ReconciliationStatusFailed    ReconciliationStatus = "failed"
)

// EventLevel represents the severity level of an event.
type EventLevel string

const (
	EventLevelDebug   EventLevel = "debug"
	EventLevelInfo    EventLevel = "info"
	EventLevelWarning EventLevel = "warning"
	EventLevelError   EventLevel = "error"
)

// Reconciliation is one recorded driver operation against a stack root.
type Reconciliation struct {
	ID          string               `json:"id"`
	Root        string               `json:"root"`
	Action      string               `json:"action"` // validate, status, apply, passthrough:<sub>
	Status      ReconciliationStatus `json:"status"`
	PlanExit    *int                 `json:"plan_exit,omitempty"`
	Ready       *bool                `json:"ready,omitempty"`
	Error       *string              `json:"error,omitempty"`
	StartedAt   time.Time            `json:"started_at"`
	CompletedAt *time.Time           `json:"completed_at,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// Event represents an append-only log event tied to a reconciliation.
type Event struct {
	ID               int64      `json:"id"`
	ReconciliationID *string    `json:"reconciliation_id,omitempty"`
	Level            EventLevel `json:"level"`
	Message          string     `json:"message"`
	Details          *string    `json:"details,omitempty"` // JSON blob
	Timestamp        time.Time  `json:"timestamp"`
}

// Store defines the interface for the history persistence layer.
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// Reconciliation operations
	CreateReconciliation(ctx context.Context, rec *Reconciliation) error
	GetReconciliation(ctx context.Context, id string) (*Reconciliation, error)
	CompleteReconciliation(ctx context.Context, id string, status ReconciliationStatus, planExit *int, ready *bool, errMsg *string) error
	ListReconciliations(ctx context.Context, root string, limit, offset int) ([]*Reconciliation, error)

	// Event operations
	AppendEvent(ctx context.Context, event *Event) error
	GetEvents(ctx context.Context, reconciliationID *string, level *EventLevel, limit, offset int) ([]*Event, error)

	// Utility
	HealthCheck(ctx context.Context) error
}
