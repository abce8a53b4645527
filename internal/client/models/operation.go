package models

import "time"

// OperationType classifies a pending mutation.
type OperationType string

const (
	OperationCreate OperationType = "create"
	OperationUpdate OperationType = "update"
	OperationDelete OperationType = "delete"
)

// PendingOperation is a mutation that could not be confirmed remotely and is
// awaiting replay. Operations are replayed in EnqueuedAt order, one scope at
// a time.
type PendingOperation struct {
	ID      string        `json:"id"`
	Type    OperationType `json:"type"`
	ScopeID int64         `json:"scope_id"`

	// TargetID is the entity the operation applies to. For updates and
	// deletes of unacknowledged entities it may be a sentinel id; the sync
	// engine rewrites it once the corresponding create reconciles.
	TargetID int64 `json:"target_id,omitempty"`

	// SentinelID is set on creates: the placeholder id the optimistic entity
	// was inserted under. Reconciliation replaces this id with the
	// server-assigned one.
	SentinelID int64 `json:"sentinel_id,omitempty"`

	Create *CategoryCreateRequest `json:"create,omitempty"`
	Update *CategoryUpdateRequest `json:"update,omitempty"`

	EnqueuedAt time.Time `json:"enqueued_at"`
	RetryCount int       `json:"retry_count"`
	MaxRetries int       `json:"max_retries"`
}

// Exhausted reports whether the operation ran out of retry budget.
func (op PendingOperation) Exhausted() bool { return op.RetryCount >= op.MaxRetries }

// ScopeRecord is the per-scope blob persisted by the durable store:
// the last known entity snapshot, the pending operations, and the time of
// the last completed sync pass (epoch milliseconds).
type ScopeRecord struct {
	ScopeID    int64              `json:"scope_id"`
	Entities   []Category         `json:"entities"`
	Operations []PendingOperation `json:"operations"`
	LastSync   int64              `json:"last_sync"`
}

// SyncStatus describes the synchronization state of one scope.
type SyncStatus struct {
	ScopeID      int64     `json:"scope_id"`
	IsOnline     bool      `json:"is_online"`
	IsSyncing    bool      `json:"is_syncing"`
	PendingCount int       `json:"pending_count"`
	LastSyncTime time.Time `json:"last_sync_time"`
	LastError    string    `json:"last_error,omitempty"`
}
