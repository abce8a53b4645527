// Package remote contains the contract for talking to the category backend
// and a concrete HTTP/JSON implementation.
//
// The API interface is transport-agnostic; the sync core only depends on it
// and on the sentinel errors the implementation maps transport failures to:
// common.ErrUnavailable (connectivity/5xx, retryable), common.ErrNotFound,
// common.ErrConflict (already-converged signals during replay) and
// common.ErrRemoteRejected (other 4xx, never queued).
package remote

import (
	"context"

	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/client/models"
)

// API is the remote category service consumed by the sync core.
// All methods honor context cancellation and timeouts.
type API interface {
	// Ping checks backend liveness. Used by the connectivity monitor.
	Ping(ctx context.Context) error

	List(ctx context.Context, scopeID int64, params models.ListParams) (*models.Page, error)
	Get(ctx context.Context, scopeID, id int64) (*models.Category, error)
	Create(ctx context.Context, scopeID int64, req models.CategoryCreateRequest) (*models.Category, error)
	Update(ctx context.Context, scopeID, id int64, req models.CategoryUpdateRequest) (*models.Category, error)
	Delete(ctx context.Context, scopeID, id int64) error

	// ValidateName reports whether name is free within the scope, optionally
	// ignoring one id (for renames).
	ValidateName(ctx context.Context, scopeID int64, name string, excludeID *int64) (bool, error)

	// ValidateDeletion returns the dependency summary for a deletion candidate.
	ValidateDeletion(ctx context.Context, scopeID, id int64) (*models.ImpactPayload, error)

	// DeleteWithOptions performs a validated (possibly soft) deletion and may
	// grant an undo token.
	DeleteWithOptions(ctx context.Context, scopeID int64, req models.DeletionRequest) (*models.EnhancedDeleteResponse, error)

	// BulkDelete deletes a batch; per-item outcomes are reported individually.
	BulkDelete(ctx context.Context, scopeID int64, req models.BulkDeletionRequest) (*models.BulkDeleteResponse, error)

	// Undo reverses a previous deletion identified by token.
	Undo(ctx context.Context, scopeID int64, token string) error
}
