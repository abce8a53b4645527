// Package deletion guards destructive operations: impact analysis before a
// delete, atomic rejection of blocked bulk deletions, and a bounded-time
// undo window for what did get deleted.
package deletion

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/client/events"
	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/client/models"
	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/client/remote"
	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/client/store"
	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/common"
	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/logging"
)

const (
	// DefaultUndoTTL is how long an undo stays valid when the server does
	// not dictate an expiry of its own.
	DefaultUndoTTL = 5 * time.Minute
	// DefaultSweepInterval bounds how long an expired undo can linger in
	// memory. Expiry is also checked at lookup, so correctness never
	// depends on the sweep.
	DefaultSweepInterval = time.Minute
)

// Coordinator validates, executes and optionally reverses deletions.
type Coordinator struct {
	api     remote.API
	store   *store.StateStore
	emitter *events.Emitter
	log     logging.Logger

	undoTTL       time.Duration
	sweepInterval time.Duration
	now           func() time.Time

	mu    sync.Mutex
	undos map[string]models.PendingUndo
}

// Option adjusts a Coordinator.
type Option func(*Coordinator)

// WithUndoTTL overrides the default undo window.
func WithUndoTTL(d time.Duration) Option {
	return func(c *Coordinator) { c.undoTTL = d }
}

// WithSweepInterval overrides how often expired undos are purged.
func WithSweepInterval(d time.Duration) Option {
	return func(c *Coordinator) { c.sweepInterval = d }
}

// WithClock overrides the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

func New(api remote.API, st *store.StateStore, emitter *events.Emitter, log logging.Logger, opts ...Option) *Coordinator {
	if log == nil {
		log = logging.NopLogger{}
	}
	c := &Coordinator{
		api:           api,
		store:         st,
		emitter:       emitter,
		log:           log,
		undoTTL:       DefaultUndoTTL,
		sweepInterval: DefaultSweepInterval,
		now:           time.Now,
		undos:         make(map[string]models.PendingUndo),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Validate fetches the dependency summary for a candidate and interprets it
// into an ImpactAnalysis. The risk and recommendation text is a pure
// function of the counts, so identical payloads always produce identical
// analyses.
func (c *Coordinator) Validate(ctx context.Context, scopeID, id int64) (*models.ImpactAnalysis, error) {
	payload, err := c.api.ValidateDeletion(ctx, scopeID, id)
	if err != nil {
		return nil, fmt.Errorf("validating deletion of category %d: %w", id, err)
	}
	return c.analyze(scopeID, id, payload), nil
}

func (c *Coordinator) analyze(scopeID, id int64, p *models.ImpactPayload) *models.ImpactAnalysis {
	total := p.ActiveDependents + p.InactiveDependents
	a := &models.ImpactAnalysis{
		ScopeID:            scopeID,
		CategoryID:         id,
		CanDelete:          p.CanDelete,
		ActiveDependents:   p.ActiveDependents,
		InactiveDependents: p.InactiveDependents,
		TotalDependents:    total,
		SuggestSoftDelete:  total > 0,
	}

	if total > 0 {
		a.Risks = append(a.Risks, fmt.Sprintf("%d dependent products will lose their category", total))
	}
	if p.ActiveDependents > 0 {
		a.Risks = append(a.Risks, fmt.Sprintf("%d active products depend on this category and will become unavailable", p.ActiveDependents))
		a.Recommendations = append(a.Recommendations, "reassign active products to another category first")
	}
	if !p.CanDelete {
		a.Recommendations = append(a.Recommendations, "use soft delete to deactivate this category instead")
	}

	if c.store != nil {
		for _, cat := range c.store.Collection().Get() {
			if cat.ID != id && cat.Active && !cat.IsPending() {
				a.AlternativeTargets = append(a.AlternativeTargets, cat)
			}
		}
	}
	return a
}

// Delete re-validates and executes one deletion. A hard delete of a blocked
// category fails with ErrHardDeleteBlocked before any remote dispatch. When
// the server grants an undo token the deletion is registered for undo and
// the evicted entities are kept as the restore snapshot.
func (c *Coordinator) Delete(ctx context.Context, scopeID int64, req models.DeletionRequest) (*models.EnhancedDeleteResponse, error) {
	analysis, err := c.Validate(ctx, scopeID, req.CategoryID)
	if err != nil {
		return nil, err
	}
	if req.DeletionType == models.DeletionHard && !analysis.CanDelete {
		return nil, fmt.Errorf("category %d has %d dependents: %w", req.CategoryID, analysis.TotalDependents, common.ErrHardDeleteBlocked)
	}

	resp, err := c.api.DeleteWithOptions(ctx, scopeID, req)
	if err != nil {
		return nil, err
	}

	var snapshot []models.Category
	if c.store != nil {
		snapshot = c.store.Evict(req.CategoryID)
	}
	c.emitter.Emit(events.Event{Kind: events.KindDeleted, ScopeID: scopeID, TargetID: req.CategoryID})

	if resp.UndoToken != "" {
		c.register(scopeID, resp.UndoToken, resp.ExpiresAt, req.DeletionType, snapshot, resp.AffectedCount)
	}
	return resp, nil
}

// BulkDelete validates every id first; if any requested hard deletion is
// blocked the whole batch is rejected before a single remote delete is
// dispatched. Once execution starts, per-item failures are reported in the
// response rather than aborting the batch.
func (c *Coordinator) BulkDelete(ctx context.Context, scopeID int64, req models.BulkDeletionRequest) (*models.BulkDeleteResponse, error) {
	if req.DeletionType == models.DeletionHard {
		for _, id := range req.CategoryIDs {
			analysis, err := c.Validate(ctx, scopeID, id)
			if err != nil {
				return nil, err
			}
			if !analysis.CanDelete {
				return nil, fmt.Errorf("category %d blocks the batch: %w", id, common.ErrHardDeleteBlocked)
			}
		}
	}

	resp, err := c.api.BulkDelete(ctx, scopeID, req)
	if err != nil {
		return nil, err
	}

	var deleted []int64
	for _, r := range resp.Results {
		if r.Deleted {
			deleted = append(deleted, r.CategoryID)
		}
	}
	var snapshot []models.Category
	if c.store != nil && len(deleted) > 0 {
		snapshot = c.store.Evict(deleted...)
	}
	for _, id := range deleted {
		c.emitter.Emit(events.Event{Kind: events.KindDeleted, ScopeID: scopeID, TargetID: id})
	}

	if resp.UndoToken != "" {
		c.register(scopeID, resp.UndoToken, resp.ExpiresAt, req.DeletionType, snapshot, resp.AffectedCount)
	}
	return resp, nil
}

func (c *Coordinator) register(scopeID int64, token string, expiresAt time.Time, dt models.DeletionType, snapshot []models.Category, affected int) {
	if expiresAt.IsZero() {
		expiresAt = c.now().Add(c.undoTTL)
	}
	undo := models.PendingUndo{
		Token:         token,
		ScopeID:       scopeID,
		Snapshot:      snapshot,
		DeletionType:  dt,
		ExpiresAt:     expiresAt,
		AffectedCount: affected,
	}
	c.mu.Lock()
	c.undos[token] = undo
	c.mu.Unlock()
	c.emitter.Emit(events.Event{Kind: events.KindUndoRegistered, ScopeID: scopeID})
}

// Undo reverses a previously registered deletion. An unknown or expired
// token fails with ErrTokenInvalidOrExpired without touching the backend.
func (c *Coordinator) Undo(ctx context.Context, token string) error {
	c.mu.Lock()
	undo, ok := c.undos[token]
	if ok && undo.Expired(c.now()) {
		delete(c.undos, token)
		ok = false
	}
	c.mu.Unlock()
	if !ok {
		return common.ErrTokenInvalidOrExpired
	}

	if err := c.api.Undo(ctx, undo.ScopeID, token); err != nil {
		return fmt.Errorf("undoing deletion: %w", err)
	}

	c.mu.Lock()
	delete(c.undos, token)
	c.mu.Unlock()

	if c.store != nil {
		c.store.Restore(undo.Snapshot)
	}
	c.emitter.Emit(events.Event{Kind: events.KindUndoPerformed, ScopeID: undo.ScopeID})
	c.log.Info(ctx, "deletion undone", "scope", undo.ScopeID, "affected", undo.AffectedCount)
	return nil
}

// PendingUndoFor returns the live undo covering the given category, if any.
func (c *Coordinator) PendingUndoFor(id int64) (models.PendingUndo, bool) {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, undo := range c.undos {
		if undo.Expired(now) {
			continue
		}
		for _, cat := range undo.Snapshot {
			if cat.ID == id {
				return undo, true
			}
		}
	}
	return models.PendingUndo{}, false
}

// Run purges expired undo entries until ctx is done.
func (c *Coordinator) Run(ctx context.Context) {
	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-ctx.Done():
			return
		}
	}
}

func (c *Coordinator) sweep() {
	now := c.now()
	c.mu.Lock()
	var expired []models.PendingUndo
	for token, undo := range c.undos {
		if undo.Expired(now) {
			delete(c.undos, token)
			expired = append(expired, undo)
		}
	}
	c.mu.Unlock()

	for _, undo := range expired {
		c.emitter.Emit(events.Event{Kind: events.KindUndoExpired, ScopeID: undo.ScopeID})
	}
}
