// Package syncengine drains the offline queue against the remote API.
// Each scope runs an Idle → Syncing → Idle state machine with at most one
// pass in flight; triggers arriving mid-pass coalesce into no-ops.
package syncengine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/client/cache"
	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/client/events"
	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/client/models"
	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/client/queue"
	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/client/remote"
	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/client/stream"
	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/common"
	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/logging"
)

// Reconciler receives server-assigned ids for locally created entities.
// The StateStore implements it to swap sentinel ids in its live collection
// and selection.
type Reconciler interface {
	ReconcileCreate(scopeID, sentinelID int64, server models.Category)
}

// Options tunes the engine. Zero values fall back to defaults.
type Options struct {
	// SyncInterval is the periodic tick (default 30s).
	SyncInterval time.Duration
	// DispatchDelay is the fixed pause between per-operation dispatches
	// within one pass (default 250ms).
	DispatchDelay time.Duration
}

func (o Options) withDefaults() Options {
	if o.SyncInterval <= 0 {
		o.SyncInterval = 30 * time.Second
	}
	if o.DispatchDelay <= 0 {
		o.DispatchDelay = 250 * time.Millisecond
	}
	return o
}

type scopeState struct {
	inFlight bool
	status   *stream.Value[models.SyncStatus]
}

// Engine replays pending operations scope by scope.
type Engine struct {
	api     remote.API
	queue   *queue.OfflineQueue
	cache   *cache.LocalCache
	emitter *events.Emitter
	log     logging.Logger
	opts    Options

	reconciler Reconciler

	mu     sync.Mutex
	scopes map[int64]*scopeState
	online atomic.Bool
}

// New returns an Engine. Call SetReconciler before the first pass if live
// collection reconciliation is wanted.
func New(api remote.API, q *queue.OfflineQueue, c *cache.LocalCache, emitter *events.Emitter, log logging.Logger, opts Options) *Engine {
	return &Engine{
		api:     api,
		queue:   q,
		cache:   c,
		emitter: emitter,
		log:     log,
		opts:    opts.withDefaults(),
		scopes:  make(map[int64]*scopeState),
	}
}

// SetReconciler wires the live-state reconciler. Must be called before Run.
func (e *Engine) SetReconciler(r Reconciler) { e.reconciler = r }

// RegisterScope makes the engine track a scope for periodic syncing and
// returns immediately if it is already tracked.
func (e *Engine) RegisterScope(scopeID int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ensureLocked(scopeID)
}

func (e *Engine) ensureLocked(scopeID int64) *scopeState {
	st, ok := e.scopes[scopeID]
	if !ok {
		st = &scopeState{status: stream.New(models.SyncStatus{ScopeID: scopeID, IsOnline: e.online.Load()})}
		e.scopes[scopeID] = st
	}
	return st
}

// Status returns the reactive SyncStatus of a scope.
func (e *Engine) Status(scopeID int64) *stream.Value[models.SyncStatus] {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ensureLocked(scopeID).status
}

// Online reports the last connectivity signal received.
func (e *Engine) Online() bool { return e.online.Load() }

// OnlineChanged consumes the external reachability signal. An offline→online
// transition triggers an immediate sync attempt for every tracked scope.
func (e *Engine) OnlineChanged(ctx context.Context, online bool) {
	was := e.online.Swap(online)

	e.mu.Lock()
	for _, st := range e.scopes {
		cur := st.status.Get()
		cur.IsOnline = online
		st.status.Set(cur)
	}
	e.mu.Unlock()

	if online && !was {
		e.log.Info(ctx, "connectivity restored, starting sync")
		e.SyncAll(ctx)
	}
}

// Run drives the periodic tick until ctx is done.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.opts.SyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if e.online.Load() {
				e.SyncAll(ctx)
			}
		case <-ctx.Done():
			return
		}
	}
}

// SyncAll runs one pass for every tracked scope.
func (e *Engine) SyncAll(ctx context.Context) {
	e.mu.Lock()
	ids := make([]int64, 0, len(e.scopes))
	for id := range e.scopes {
		ids = append(ids, id)
	}
	e.mu.Unlock()

	for _, id := range ids {
		if err := e.ForceSync(ctx, id); err != nil {
			e.log.Warn(ctx, "sync pass failed", "scope", id, "error", err)
		}
	}
}

// ForceSync runs one pass for a scope. Best-effort: if a pass is already in
// flight the call is a no-op, not queued.
func (e *Engine) ForceSync(ctx context.Context, scopeID int64) error {
	e.mu.Lock()
	st := e.ensureLocked(scopeID)
	if st.inFlight {
		e.mu.Unlock()
		return nil
	}
	st.inFlight = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		st.inFlight = false
		e.mu.Unlock()
	}()

	return e.pass(ctx, scopeID, st)
}

func (e *Engine) pass(ctx context.Context, scopeID int64, st *scopeState) error {
	started := time.Now()
	e.emitter.Emit(events.Event{Kind: events.KindSyncStarted, ScopeID: scopeID})

	cur := st.status.Get()
	cur.IsSyncing = true
	st.status.Set(cur)

	var lastErr string

	evicted, err := e.queue.EvictExhausted(ctx, scopeID)
	if err != nil {
		return e.finishPass(ctx, scopeID, st, started, fmt.Sprintf("evicting exhausted operations: %v", err))
	}
	for _, op := range evicted {
		lastErr = fmt.Sprintf("operation %s: %v", op.ID, common.ErrRetryBudgetExhausted)
		e.emitter.Emit(events.Event{Kind: events.KindOpExhausted, ScopeID: scopeID, OpID: op.ID, TargetID: op.TargetID, Err: common.ErrRetryBudgetExhausted})
	}

	ops, err := e.queue.Pending(ctx, scopeID)
	if err != nil {
		return e.finishPass(ctx, scopeID, st, started, fmt.Sprintf("reading pending operations: %v", err))
	}

	for i := range ops {
		if i > 0 {
			select {
			case <-time.After(e.opts.DispatchDelay):
			case <-ctx.Done():
				return e.finishPass(ctx, scopeID, st, started, lastErr)
			}
		}

		op := ops[i]
		serverID, err := e.dispatch(ctx, op)
		switch {
		case err == nil:
			if op.Type == models.OperationCreate {
				// later ops in this snapshot may still target the sentinel
				for j := i + 1; j < len(ops); j++ {
					if ops[j].TargetID == op.SentinelID {
						ops[j].TargetID = serverID
					}
				}
			}
			if rerr := e.queue.Remove(ctx, scopeID, op.ID); rerr != nil && !errors.Is(rerr, common.ErrNotFound) {
				e.log.Error(ctx, "removing completed operation", "scope", scopeID, "op", op.ID, "error", rerr)
			}
			e.emitter.Emit(events.Event{Kind: events.KindOpSucceeded, ScopeID: scopeID, OpID: op.ID, TargetID: op.TargetID})

		case errors.Is(err, common.ErrNotFound), errors.Is(err, common.ErrConflict):
			// the server already converged to the op's outcome
			if rerr := e.queue.Remove(ctx, scopeID, op.ID); rerr != nil && !errors.Is(rerr, common.ErrNotFound) {
				e.log.Error(ctx, "removing resolved operation", "scope", scopeID, "op", op.ID, "error", rerr)
			}
			e.emitter.Emit(events.Event{Kind: events.KindOpResolved, ScopeID: scopeID, OpID: op.ID, TargetID: op.TargetID, Err: common.ErrResolvedConflict})
			e.log.Info(ctx, "operation resolved as converged", "scope", scopeID, "op", op.ID)

		case errors.Is(err, common.ErrUnavailable):
			lastErr = err.Error()
			if rerr := e.queue.MarkRetried(ctx, scopeID, op.ID); rerr != nil {
				e.log.Error(ctx, "marking retry", "scope", scopeID, "op", op.ID, "error", rerr)
			}
			e.emitter.Emit(events.Event{Kind: events.KindOpFailed, ScopeID: scopeID, OpID: op.ID, TargetID: op.TargetID, Err: err})
			// the server is unreachable: abort the pass so FIFO order holds
			return e.finishPass(ctx, scopeID, st, started, lastErr)

		default:
			lastErr = err.Error()
			if rerr := e.queue.MarkRetried(ctx, scopeID, op.ID); rerr != nil {
				e.log.Error(ctx, "marking retry", "scope", scopeID, "op", op.ID, "error", rerr)
			}
			e.emitter.Emit(events.Event{Kind: events.KindOpFailed, ScopeID: scopeID, OpID: op.ID, TargetID: op.TargetID, Err: err})
		}
	}

	if err := e.queue.SetLastSync(ctx, scopeID, time.Now()); err != nil {
		e.log.Warn(ctx, "recording last sync time", "scope", scopeID, "error", err)
	}
	return e.finishPass(ctx, scopeID, st, started, lastErr)
}

// dispatch performs the remote call for one operation. For creates it
// returns the server-assigned id.
func (e *Engine) dispatch(ctx context.Context, op models.PendingOperation) (int64, error) {
	switch op.Type {
	case models.OperationCreate:
		if op.Create == nil {
			return 0, fmt.Errorf("create operation %s has no payload", op.ID)
		}
		cat, err := e.api.Create(ctx, op.ScopeID, *op.Create)
		if err != nil {
			return 0, err
		}
		if err := e.queue.ReplaceSentinel(ctx, op.ScopeID, op.SentinelID, *cat); err != nil {
			e.log.Error(ctx, "persisting sentinel replacement", "scope", op.ScopeID, "op", op.ID, "error", err)
		}
		e.cache.Invalidate(cache.EntityKey(op.ScopeID, op.SentinelID))
		e.cache.Set(cache.EntityKey(op.ScopeID, cat.ID), *cat)
		e.cache.InvalidatePrefix(cache.ListKeyPrefix(op.ScopeID))
		if e.reconciler != nil {
			e.reconciler.ReconcileCreate(op.ScopeID, op.SentinelID, *cat)
		}
		return cat.ID, nil

	case models.OperationUpdate:
		if op.Update == nil {
			return 0, fmt.Errorf("update operation %s has no payload", op.ID)
		}
		cat, err := e.api.Update(ctx, op.ScopeID, op.TargetID, *op.Update)
		if err != nil {
			return 0, err
		}
		e.cache.Set(cache.EntityKey(op.ScopeID, cat.ID), *cat)
		e.cache.InvalidatePrefix(cache.ListKeyPrefix(op.ScopeID))
		return cat.ID, nil

	case models.OperationDelete:
		if err := e.api.Delete(ctx, op.ScopeID, op.TargetID); err != nil {
			return 0, err
		}
		e.cache.Invalidate(cache.EntityKey(op.ScopeID, op.TargetID))
		e.cache.InvalidatePrefix(cache.ListKeyPrefix(op.ScopeID))
		return op.TargetID, nil

	default:
		return 0, fmt.Errorf("unknown operation type %q", op.Type)
	}
}

func (e *Engine) finishPass(ctx context.Context, scopeID int64, st *scopeState, started time.Time, lastErr string) error {
	pending, err := e.queue.Count(ctx, scopeID)
	if err != nil {
		e.log.Warn(ctx, "counting pending operations", "scope", scopeID, "error", err)
	}

	cur := st.status.Get()
	cur.IsSyncing = false
	cur.IsOnline = e.online.Load()
	cur.PendingCount = pending
	cur.LastSyncTime = time.Now()
	cur.LastError = lastErr
	st.status.Set(cur)

	e.emitter.Emit(events.Event{Kind: events.KindSyncCompleted, ScopeID: scopeID, Duration: time.Since(started)})
	e.log.Debug(ctx, "sync pass finished", "scope", scopeID, "pending", pending, "duration", time.Since(started))

	if lastErr != "" {
		return errors.New(lastErr)
	}
	return nil
}
