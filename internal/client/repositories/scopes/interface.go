// Package scopes persists per-scope records: the entity snapshot, the
// pending operations and the last sync time, serialized as one opaque blob
// per scope.
package scopes

import (
	"context"

	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/client/models"
)

// Repository stores one record per scope. Save must be durable before it
// returns: a process restart mid-operation never loses an acknowledged
// pending mutation.
type Repository interface {
	// Load returns the record for scopeID, or common.ErrNotFound if no
	// record was ever saved.
	Load(ctx context.Context, scopeID int64) (*models.ScopeRecord, error)

	// Save writes the record synchronously.
	Save(ctx context.Context, record *models.ScopeRecord) error

	// Delete removes the record. Deleting an absent record is not an error.
	Delete(ctx context.Context, scopeID int64) error
}
