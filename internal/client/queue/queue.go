// Package queue implements the durable, per-scope FIFO of pending mutations.
// Every mutation is persisted through the scopes repository before the call
// returns, so a restart never loses acknowledged work.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/client/events"
	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/client/models"
	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/client/repositories/scopes"
	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/common"
	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/logging"
)

// OfflineQueue queues mutations made while the remote cannot confirm them.
// All methods are safe for concurrent use; the queue serializes
// load-modify-save cycles on the underlying repository.
type OfflineQueue struct {
	repo       scopes.Repository
	log        logging.Logger
	emitter    *events.Emitter
	maxRetries int

	mu sync.Mutex
}

// New returns an OfflineQueue persisting through repo. Operations enqueued
// without an explicit budget get maxRetries.
func New(repo scopes.Repository, maxRetries int, emitter *events.Emitter, log logging.Logger) *OfflineQueue {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &OfflineQueue{repo: repo, maxRetries: maxRetries, emitter: emitter, log: log}
}

// loadOrInit returns the stored record for scopeID, or a fresh one if none
// was ever saved.
func (q *OfflineQueue) loadOrInit(ctx context.Context, scopeID int64) (*models.ScopeRecord, error) {
	rec, err := q.repo.Load(ctx, scopeID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return &models.ScopeRecord{ScopeID: scopeID}, nil
		}
		return nil, err
	}
	return rec, nil
}

// Enqueue assigns id, timestamp and a zero retry count, persists the
// operation durably and returns it. The stored record is written before
// Enqueue returns.
func (q *OfflineQueue) Enqueue(ctx context.Context, op models.PendingOperation) (models.PendingOperation, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if op.ID == "" {
		op.ID = uuid.NewString()
	}
	op.EnqueuedAt = time.Now().UTC()
	op.RetryCount = 0
	if op.MaxRetries <= 0 {
		op.MaxRetries = q.maxRetries
	}

	rec, err := q.loadOrInit(ctx, op.ScopeID)
	if err != nil {
		return op, fmt.Errorf("loading scope record: %w", err)
	}
	rec.Operations = append(rec.Operations, op)
	if err := q.repo.Save(ctx, rec); err != nil {
		return op, fmt.Errorf("persisting operation: %w", err)
	}

	q.log.Info(ctx, "operation queued", "scope", op.ScopeID, "op", op.ID, "type", op.Type)
	q.emitter.Emit(events.Event{Kind: events.KindQueued, ScopeID: op.ScopeID, OpID: op.ID, TargetID: op.TargetID})
	return op, nil
}

// Pending returns the operations still within their retry budget, in
// EnqueuedAt order. The FIFO order is never rearranged.
func (q *OfflineQueue) Pending(ctx context.Context, scopeID int64) ([]models.PendingOperation, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	rec, err := q.loadOrInit(ctx, scopeID)
	if err != nil {
		return nil, err
	}
	var out []models.PendingOperation
	for _, op := range rec.Operations {
		if !op.Exhausted() {
			out = append(out, op)
		}
	}
	return out, nil
}

// Count returns how many operations are pending for the scope (within
// budget).
func (q *OfflineQueue) Count(ctx context.Context, scopeID int64) (int, error) {
	ops, err := q.Pending(ctx, scopeID)
	if err != nil {
		return 0, err
	}
	return len(ops), nil
}

// EvictExhausted removes operations that ran out of retry budget and
// returns them so callers can report terminal failures. They are never
// silently dropped.
func (q *OfflineQueue) EvictExhausted(ctx context.Context, scopeID int64) ([]models.PendingOperation, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	rec, err := q.loadOrInit(ctx, scopeID)
	if err != nil {
		return nil, err
	}

	var kept, evicted []models.PendingOperation
	for _, op := range rec.Operations {
		if op.Exhausted() {
			evicted = append(evicted, op)
		} else {
			kept = append(kept, op)
		}
	}
	if len(evicted) == 0 {
		return nil, nil
	}

	rec.Operations = kept
	if err := q.repo.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("persisting eviction: %w", err)
	}
	for _, op := range evicted {
		q.log.Warn(ctx, "operation evicted after retry budget", "scope", scopeID, "op", op.ID, "retries", op.RetryCount)
	}
	return evicted, nil
}

// MarkRetried increments the retry count of one operation.
func (q *OfflineQueue) MarkRetried(ctx context.Context, scopeID int64, opID string) error {
	return q.mutateOp(ctx, scopeID, opID, func(op *models.PendingOperation) {
		op.RetryCount++
	})
}

// Remove deletes one operation, after remote success or terminal resolution.
func (q *OfflineQueue) Remove(ctx context.Context, scopeID int64, opID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	rec, err := q.loadOrInit(ctx, scopeID)
	if err != nil {
		return err
	}
	idx := -1
	for i, op := range rec.Operations {
		if op.ID == opID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return common.ErrNotFound
	}
	rec.Operations = append(rec.Operations[:idx], rec.Operations[idx+1:]...)
	return q.repo.Save(ctx, rec)
}

func (q *OfflineQueue) mutateOp(ctx context.Context, scopeID int64, opID string, fn func(*models.PendingOperation)) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	rec, err := q.loadOrInit(ctx, scopeID)
	if err != nil {
		return err
	}
	for i := range rec.Operations {
		if rec.Operations[i].ID == opID {
			fn(&rec.Operations[i])
			return q.repo.Save(ctx, rec)
		}
	}
	return common.ErrNotFound
}

// ApplyLocally applies the operation to the persisted entity snapshot, which
// is what makes offline mutations visible before remote confirmation:
// creates insert a sentinel-id entity at the head, updates merge fields,
// deletes remove the entity.
func (q *OfflineQueue) ApplyLocally(ctx context.Context, op models.PendingOperation) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	rec, err := q.loadOrInit(ctx, op.ScopeID)
	if err != nil {
		return err
	}

	switch op.Type {
	case models.OperationCreate:
		if op.Create == nil {
			return fmt.Errorf("create operation %s has no payload", op.ID)
		}
		now := time.Now().UTC()
		ent := models.Category{
			ID:          op.SentinelID,
			Name:        op.Create.Name,
			Description: op.Create.Description,
			ScopeID:     op.ScopeID,
			Active:      op.Create.Active,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		rec.Entities = append([]models.Category{ent}, rec.Entities...)

	case models.OperationUpdate:
		if op.Update == nil {
			return fmt.Errorf("update operation %s has no payload", op.ID)
		}
		for i := range rec.Entities {
			if rec.Entities[i].ID == op.TargetID {
				rec.Entities[i] = op.Update.ApplyTo(rec.Entities[i])
				break
			}
		}

	case models.OperationDelete:
		for i := range rec.Entities {
			if rec.Entities[i].ID == op.TargetID {
				rec.Entities = append(rec.Entities[:i], rec.Entities[i+1:]...)
				break
			}
		}

	default:
		return fmt.Errorf("unknown operation type %q", op.Type)
	}

	return q.repo.Save(ctx, rec)
}

// ReplaceSentinel swaps a sentinel id for the server-assigned entity in the
// persisted snapshot and rewrites any queued operation still targeting it.
func (q *OfflineQueue) ReplaceSentinel(ctx context.Context, scopeID, sentinelID int64, server models.Category) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	rec, err := q.loadOrInit(ctx, scopeID)
	if err != nil {
		return err
	}
	for i := range rec.Entities {
		if rec.Entities[i].ID == sentinelID {
			rec.Entities[i] = server
		}
	}
	for i := range rec.Operations {
		if rec.Operations[i].TargetID == sentinelID {
			rec.Operations[i].TargetID = server.ID
		}
	}
	return q.repo.Save(ctx, rec)
}

// SaveEntities overwrites the persisted entity snapshot, keeping the queued
// operations intact.
func (q *OfflineQueue) SaveEntities(ctx context.Context, scopeID int64, entities []models.Category) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	rec, err := q.loadOrInit(ctx, scopeID)
	if err != nil {
		return err
	}
	rec.Entities = entities
	return q.repo.Save(ctx, rec)
}

// SetLastSync records the completion time of a sync pass (epoch ms).
func (q *OfflineQueue) SetLastSync(ctx context.Context, scopeID int64, t time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	rec, err := q.loadOrInit(ctx, scopeID)
	if err != nil {
		return err
	}
	rec.LastSync = t.UnixMilli()
	return q.repo.Save(ctx, rec)
}

// Snapshot returns the persisted record for the scope (a fresh empty record
// if none exists yet).
func (q *OfflineQueue) Snapshot(ctx context.Context, scopeID int64) (*models.ScopeRecord, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.loadOrInit(ctx, scopeID)
}
