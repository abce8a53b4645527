package models

import "time"

// DeletionType distinguishes soft (deactivate) from hard (remove) deletion.
type DeletionType string

const (
	DeletionSoft DeletionType = "soft"
	DeletionHard DeletionType = "hard"
)

// ImpactPayload is the raw dependency summary the server returns for a
// deletion candidate.
type ImpactPayload struct {
	Category           *Category `json:"category,omitempty"`
	CanDelete          bool      `json:"can_delete"`
	ActiveDependents   int       `json:"active_dependents"`
	InactiveDependents int       `json:"inactive_dependents"`
}

// ImpactAnalysis is the client-side interpretation of an ImpactPayload:
// the same counts plus deterministic risk and recommendation text.
type ImpactAnalysis struct {
	ScopeID            int64      `json:"scope_id"`
	CategoryID         int64      `json:"category_id"`
	CanDelete          bool       `json:"can_delete"`
	ActiveDependents   int        `json:"active_dependents"`
	InactiveDependents int        `json:"inactive_dependents"`
	TotalDependents    int        `json:"total_dependents"`
	SuggestSoftDelete  bool       `json:"suggest_soft_delete"`
	AlternativeTargets []Category `json:"alternative_targets,omitempty"`
	Risks              []string   `json:"risks,omitempty"`
	Recommendations    []string   `json:"recommendations,omitempty"`
}

// DeletionRequest asks for a single validated deletion.
type DeletionRequest struct {
	CategoryID     int64        `json:"category_id"`
	DeletionType   DeletionType `json:"deletion_type"`
	ReassignTarget *int64       `json:"reassign_target,omitempty"`
	Reason         string       `json:"reason,omitempty"`
}

// BulkDeletionRequest asks for a batch of deletions of the same type.
type BulkDeletionRequest struct {
	CategoryIDs  []int64      `json:"category_ids"`
	DeletionType DeletionType `json:"deletion_type"`
	Reason       string       `json:"reason,omitempty"`
}

// EnhancedDeleteResponse is returned by the enhanced-delete endpoint. A
// non-empty UndoToken grants a bounded-time undo.
type EnhancedDeleteResponse struct {
	UndoToken     string    `json:"undo_token,omitempty"`
	ExpiresAt     time.Time `json:"expires_at,omitempty"`
	AffectedCount int       `json:"affected_count"`
	SoftDeleted   bool      `json:"soft_deleted"`
}

// BulkDeleteItemResult reports the outcome for one id of a bulk deletion.
type BulkDeleteItemResult struct {
	CategoryID int64  `json:"category_id"`
	Deleted    bool   `json:"deleted"`
	Error      string `json:"error,omitempty"`
}

// BulkDeleteResponse reports per-item outcomes plus an optional batch-level
// undo token.
type BulkDeleteResponse struct {
	Results       []BulkDeleteItemResult `json:"results"`
	UndoToken     string                 `json:"undo_token,omitempty"`
	ExpiresAt     time.Time              `json:"expires_at,omitempty"`
	AffectedCount int                    `json:"affected_count"`
}

// PendingUndo is a registered, time-bounded undo opportunity.
type PendingUndo struct {
	Token         string       `json:"token"`
	ScopeID       int64        `json:"scope_id"`
	Snapshot      []Category   `json:"snapshot"`
	DeletionType  DeletionType `json:"deletion_type"`
	ExpiresAt     time.Time    `json:"expires_at"`
	AffectedCount int          `json:"affected_count"`
}

// Expired reports whether the undo window has closed at time now.
func (p PendingUndo) Expired(now time.Time) bool { return !now.Before(p.ExpiresAt) }
