// Package store holds the reactive category collection consumed by the
// application layer. It composes the local cache, the remote API, the
// offline queue and the sync engine into optimistic create/update/delete
// with exact rollback, degrading to durable queuing whenever the backend
// is unreachable.
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/client/cache"
	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/client/events"
	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/client/models"
	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/client/queue"
	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/client/remote"
	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/client/stream"
	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/client/syncengine"
	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/common"
	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/logging"
)

// StateStore is the single writer of the in-memory collection for the
// currently selected scope. All mutating methods are safe for concurrent
// use; consumers observe changes through the reactive values.
type StateStore struct {
	api     remote.API
	queue   *queue.OfflineQueue
	cache   *cache.LocalCache
	engine  *syncengine.Engine
	emitter *events.Emitter
	log     logging.Logger

	mu      sync.Mutex
	scopeID int64
	base    []models.Category
	spec    models.FilterSpec

	collection *stream.Value[[]models.Category]
	selection  *stream.Value[*models.Category]
	loading    *stream.Value[bool]
	lastErr    *stream.Value[error]
	filter     *stream.Value[models.FilterSpec]
	page       *stream.Value[models.Page]
}

// New wires a store over its collaborators. Call engine.SetReconciler with
// the returned store so server-assigned ids propagate back into the
// collection after replay.
func New(api remote.API, q *queue.OfflineQueue, c *cache.LocalCache, e *syncengine.Engine, emitter *events.Emitter, log logging.Logger) *StateStore {
	if log == nil {
		log = logging.NopLogger{}
	}
	return &StateStore{
		api:        api,
		queue:      q,
		cache:      c,
		engine:     e,
		emitter:    emitter,
		log:        log,
		collection: stream.New([]models.Category(nil)),
		selection:  stream.New[*models.Category](nil),
		loading:    stream.New(false),
		lastErr:    stream.New[error](nil),
		filter:     stream.New(models.FilterSpec{}),
		page:       stream.New(models.Page{}),
	}
}

// Collection is the filtered view of the current scope's categories.
func (s *StateStore) Collection() *stream.Value[[]models.Category] { return s.collection }

// Selection is the currently selected category, nil when none.
func (s *StateStore) Selection() *stream.Value[*models.Category] { return s.selection }

// Loading reports whether a Load call is in flight.
func (s *StateStore) Loading() *stream.Value[bool] { return s.loading }

// LastError is the most recent operation error, nil after a success.
func (s *StateStore) LastError() *stream.Value[error] { return s.lastErr }

// Filter is the active filter spec.
func (s *StateStore) Filter() *stream.Value[models.FilterSpec] { return s.filter }

// PageInfo is the pagination metadata of the last remote load.
func (s *StateStore) PageInfo() *stream.Value[models.Page] { return s.page }

// Status is the sync status stream for the selected scope.
func (s *StateStore) Status() (*stream.Value[models.SyncStatus], error) {
	scope, err := s.Scope()
	if err != nil {
		return nil, err
	}
	return s.engine.Status(scope), nil
}

// Scope returns the selected scope id.
func (s *StateStore) Scope() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scopeID == 0 {
		return 0, common.ErrScopeNotSelected
	}
	return s.scopeID, nil
}

// SetScope selects the working scope and resets collection, selection,
// filter and pagination to defaults. Data persisted for the scope by an
// earlier session (entities plus still-queued operations) is restored so a
// restart never loses offline work.
func (s *StateStore) SetScope(ctx context.Context, scopeID int64) {
	s.mu.Lock()
	s.scopeID = scopeID
	s.base = nil
	s.spec = models.FilterSpec{}
	s.mu.Unlock()

	s.selection.Set(nil)
	s.loading.Set(false)
	s.lastErr.Set(nil)
	s.filter.Set(models.FilterSpec{})
	s.page.Set(models.Page{})

	s.engine.RegisterScope(scopeID)

	rec, err := s.queue.Snapshot(ctx, scopeID)
	if err == nil && len(rec.Entities) > 0 {
		s.mu.Lock()
		s.base = append([]models.Category(nil), rec.Entities...)
		s.mu.Unlock()
	} else if err != nil && !errors.Is(err, common.ErrNotFound) {
		s.log.Warn(ctx, "restoring persisted scope state", "scope", scopeID, "error", err)
	}
	s.publish()
}

// publish recomputes the filtered view and pushes it to subscribers.
func (s *StateStore) publish() {
	s.mu.Lock()
	view := Apply(s.base, s.spec)
	s.mu.Unlock()
	s.collection.Set(view)
}

// Load fetches one page of categories. The cache is consulted first; a hit
// never touches the network. A remote failure leaves the current collection
// untouched and is surfaced to the caller.
func (s *StateStore) Load(ctx context.Context, params models.ListParams) error {
	scope, err := s.Scope()
	if err != nil {
		return err
	}

	s.loading.Set(true)
	defer s.loading.Set(false)

	key := cache.ListKey(scope, params)
	if v, ok := s.cache.Get(key); ok {
		if pg, ok := v.(models.Page); ok {
			s.adopt(pg)
			s.lastErr.Set(nil)
			s.emitter.Emit(events.Event{Kind: events.KindLoaded, ScopeID: scope, FromCache: true})
			return nil
		}
	}

	started := time.Now()
	pg, err := s.api.List(ctx, scope, params)
	if err != nil {
		s.lastErr.Set(err)
		s.log.Warn(ctx, "loading categories", "scope", scope, "error", err)
		return err
	}

	s.cache.Set(key, *pg)
	s.cache.Warm(scope, pg.Items)
	if err := s.queue.SaveEntities(ctx, scope, pg.Items); err != nil {
		s.log.Warn(ctx, "persisting loaded entities", "scope", scope, "error", err)
	}

	s.adopt(*pg)
	s.lastErr.Set(nil)
	s.emitter.Emit(events.Event{Kind: events.KindLoaded, ScopeID: scope, Duration: time.Since(started)})
	return nil
}

func (s *StateStore) adopt(pg models.Page) {
	s.mu.Lock()
	s.base = append([]models.Category(nil), pg.Items...)
	s.mu.Unlock()
	s.page.Set(pg)
	s.publish()
}

// Create inserts an optimistic entity with a sentinel id at the head of the
// collection, then confirms it remotely. When the backend is unreachable the
// mutation is queued durably instead of failing; any other remote failure
// rolls the insertion back exactly.
func (s *StateStore) Create(ctx context.Context, req models.CategoryCreateRequest) (*models.Category, error) {
	scope, err := s.Scope()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	optimistic := models.Category{
		ID:          models.NextSentinelID(),
		Name:        req.Name,
		Description: req.Description,
		ScopeID:     scope,
		Active:      req.Active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	s.mu.Lock()
	s.base = append([]models.Category{optimistic}, s.base...)
	s.mu.Unlock()
	s.publish()

	if s.engine.Online() {
		cat, err := s.api.Create(ctx, scope, req)
		switch {
		case err == nil:
			s.swapEntity(optimistic.ID, *cat)
			s.cache.Set(cache.EntityKey(scope, cat.ID), *cat)
			s.cache.InvalidatePrefix(cache.ListKeyPrefix(scope))
			s.persistBase(ctx, scope)
			s.lastErr.Set(nil)
			s.emitter.Emit(events.Event{Kind: events.KindCreated, ScopeID: scope, TargetID: cat.ID})
			return cat, nil
		case errors.Is(err, common.ErrUnavailable):
			// fall through to queuing below
		default:
			s.removeEntity(optimistic.ID)
			s.lastErr.Set(err)
			s.emitter.Emit(events.Event{Kind: events.KindRolledBack, ScopeID: scope, TargetID: optimistic.ID, Err: err})
			return nil, err
		}
	}

	op := models.PendingOperation{
		Type:       models.OperationCreate,
		ScopeID:    scope,
		SentinelID: optimistic.ID,
		Create:     &req,
	}
	if err := s.degradeToQueue(ctx, op, optimistic.ID); err != nil {
		return nil, err
	}
	s.cache.Set(cache.EntityKey(scope, optimistic.ID), optimistic)
	s.cache.InvalidatePrefix(cache.ListKeyPrefix(scope))
	s.lastErr.Set(nil)
	return &optimistic, nil
}

// Update merges the request into the tracked entity immediately. Unreachable
// backend degrades to queuing; any other failure restores the pre-mutation
// entity.
func (s *StateStore) Update(ctx context.Context, id int64, req models.CategoryUpdateRequest) (*models.Category, error) {
	scope, err := s.Scope()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	idx := indexOf(s.base, id)
	if idx < 0 {
		s.mu.Unlock()
		return nil, common.ErrNotFound
	}
	prev := s.base[idx]
	merged := req.ApplyTo(prev)
	s.base[idx] = merged
	s.mu.Unlock()
	s.publish()
	s.reselect(id, &merged)

	if s.engine.Online() {
		cat, err := s.api.Update(ctx, scope, id, req)
		switch {
		case err == nil:
			s.swapEntity(id, *cat)
			s.reselect(id, cat)
			s.cache.Set(cache.EntityKey(scope, cat.ID), *cat)
			s.cache.InvalidatePrefix(cache.ListKeyPrefix(scope))
			s.persistBase(ctx, scope)
			s.lastErr.Set(nil)
			s.emitter.Emit(events.Event{Kind: events.KindUpdated, ScopeID: scope, TargetID: cat.ID})
			return cat, nil
		case errors.Is(err, common.ErrUnavailable):
			// fall through to queuing below
		default:
			s.swapEntity(id, prev)
			s.reselect(id, &prev)
			s.lastErr.Set(err)
			s.emitter.Emit(events.Event{Kind: events.KindRolledBack, ScopeID: scope, TargetID: id, Err: err})
			return nil, err
		}
	}

	op := models.PendingOperation{
		Type:     models.OperationUpdate,
		ScopeID:  scope,
		TargetID: id,
		Update:   &req,
	}
	if err := s.degradeToQueue(ctx, op, id); err != nil {
		s.swapEntity(id, prev)
		s.reselect(id, &prev)
		return nil, err
	}
	s.cache.Set(cache.EntityKey(scope, id), merged)
	s.cache.InvalidatePrefix(cache.ListKeyPrefix(scope))
	s.lastErr.Set(nil)
	return &merged, nil
}

// Delete removes the entity from the collection immediately, clearing the
// selection when it pointed at it. Unreachable backend degrades to queuing;
// any other failure reinserts the entity at its original position.
func (s *StateStore) Delete(ctx context.Context, id int64) error {
	scope, err := s.Scope()
	if err != nil {
		return err
	}

	s.mu.Lock()
	idx := indexOf(s.base, id)
	if idx < 0 {
		s.mu.Unlock()
		return common.ErrNotFound
	}
	removed := s.base[idx]
	s.base = append(s.base[:idx], s.base[idx+1:]...)
	s.mu.Unlock()
	s.publish()
	if sel := s.selection.Get(); sel != nil && sel.ID == id {
		s.selection.Set(nil)
	}

	restore := func() {
		s.mu.Lock()
		if idx > len(s.base) {
			idx = len(s.base)
		}
		s.base = append(s.base[:idx], append([]models.Category{removed}, s.base[idx:]...)...)
		s.mu.Unlock()
		s.publish()
	}

	if s.engine.Online() {
		err := s.api.Delete(ctx, scope, id)
		switch {
		case err == nil:
			s.cache.Invalidate(cache.EntityKey(scope, id))
			s.cache.InvalidatePrefix(cache.ListKeyPrefix(scope))
			s.persistBase(ctx, scope)
			s.lastErr.Set(nil)
			s.emitter.Emit(events.Event{Kind: events.KindDeleted, ScopeID: scope, TargetID: id})
			return nil
		case errors.Is(err, common.ErrUnavailable):
			// fall through to queuing below
		default:
			restore()
			s.lastErr.Set(err)
			s.emitter.Emit(events.Event{Kind: events.KindRolledBack, ScopeID: scope, TargetID: id, Err: err})
			return err
		}
	}

	op := models.PendingOperation{
		Type:     models.OperationDelete,
		ScopeID:  scope,
		TargetID: id,
	}
	if err := s.degradeToQueue(ctx, op, id); err != nil {
		restore()
		return err
	}
	s.cache.Invalidate(cache.EntityKey(scope, id))
	s.cache.InvalidatePrefix(cache.ListKeyPrefix(scope))
	s.lastErr.Set(nil)
	return nil
}

// degradeToQueue persists the operation durably and applies it to the
// persisted snapshot. Queuing failures are surfaced so the caller can roll
// its optimistic change back.
func (s *StateStore) degradeToQueue(ctx context.Context, op models.PendingOperation, targetID int64) error {
	queued, err := s.queue.Enqueue(ctx, op)
	if err != nil {
		if op.Type == models.OperationCreate {
			s.removeEntity(targetID)
		}
		s.lastErr.Set(err)
		return err
	}
	if err := s.queue.ApplyLocally(ctx, queued); err != nil {
		s.log.Warn(ctx, "applying queued operation to snapshot", "op", queued.ID, "error", err)
	}
	s.log.Info(ctx, "operation queued for replay", "op", queued.ID, "type", string(queued.Type), "scope", op.ScopeID)
	return nil
}

// Search applies a filter spec over the in-memory collection and publishes
// the resulting view. Purely local, never touches the network.
func (s *StateStore) Search(spec models.FilterSpec) []models.Category {
	s.mu.Lock()
	s.spec = spec
	view := Apply(s.base, spec)
	s.mu.Unlock()
	s.filter.Set(spec)
	s.collection.Set(view)
	return view
}

// Select marks a tracked entity as selected.
func (s *StateStore) Select(id int64) (*models.Category, error) {
	s.mu.Lock()
	idx := indexOf(s.base, id)
	if idx < 0 {
		s.mu.Unlock()
		return nil, common.ErrNotFound
	}
	cat := s.base[idx]
	s.mu.Unlock()
	s.selection.Set(&cat)
	return &cat, nil
}

// ClearSelection drops the current selection.
func (s *StateStore) ClearSelection() { s.selection.Set(nil) }

// ValidateName asks the backend whether name is free within the selected
// scope, optionally ignoring one id during renames.
func (s *StateStore) ValidateName(ctx context.Context, name string, excludeID *int64) (bool, error) {
	scope, err := s.Scope()
	if err != nil {
		return false, err
	}
	return s.api.ValidateName(ctx, scope, name, excludeID)
}

// ForceSync triggers one replay pass for the selected scope.
func (s *StateStore) ForceSync(ctx context.Context) error {
	scope, err := s.Scope()
	if err != nil {
		return err
	}
	return s.engine.ForceSync(ctx, scope)
}

// ReconcileCreate swaps a sentinel id for the server entity across the
// collection and the selection. Invoked by the sync engine after a queued
// create is acknowledged.
func (s *StateStore) ReconcileCreate(scopeID, sentinelID int64, server models.Category) {
	s.mu.Lock()
	if s.scopeID != scopeID {
		s.mu.Unlock()
		return
	}
	idx := indexOf(s.base, sentinelID)
	if idx >= 0 {
		s.base[idx] = server
	}
	s.mu.Unlock()
	s.publish()
	s.reselect(sentinelID, &server)
}

// Evict removes the given ids from the collection and returns the removed
// entities in collection order. Used by the deletion coordinator to build
// undo snapshots.
func (s *StateStore) Evict(ids ...int64) []models.Category {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}

	s.mu.Lock()
	var removed []models.Category
	kept := s.base[:0]
	for _, c := range s.base {
		if _, ok := set[c.ID]; ok {
			removed = append(removed, c)
			continue
		}
		kept = append(kept, c)
	}
	s.base = kept
	s.mu.Unlock()
	s.publish()

	if sel := s.selection.Get(); sel != nil {
		if _, ok := set[sel.ID]; ok {
			s.selection.Set(nil)
		}
	}
	return removed
}

// Restore reinserts previously evicted entities, used when a deletion is
// undone.
func (s *StateStore) Restore(entities []models.Category) {
	if len(entities) == 0 {
		return
	}
	s.mu.Lock()
	s.base = append(append([]models.Category(nil), entities...), s.base...)
	s.mu.Unlock()
	s.publish()
}

func (s *StateStore) swapEntity(id int64, c models.Category) {
	s.mu.Lock()
	if idx := indexOf(s.base, id); idx >= 0 {
		s.base[idx] = c
	}
	s.mu.Unlock()
	s.publish()
}

func (s *StateStore) removeEntity(id int64) {
	s.mu.Lock()
	if idx := indexOf(s.base, id); idx >= 0 {
		s.base = append(s.base[:idx], s.base[idx+1:]...)
	}
	s.mu.Unlock()
	s.publish()
}

func (s *StateStore) reselect(id int64, c *models.Category) {
	if sel := s.selection.Get(); sel != nil && sel.ID == id {
		s.selection.Set(c)
	}
}

func (s *StateStore) persistBase(ctx context.Context, scope int64) {
	s.mu.Lock()
	snapshot := append([]models.Category(nil), s.base...)
	s.mu.Unlock()
	if err := s.queue.SaveEntities(ctx, scope, snapshot); err != nil {
		s.log.Warn(ctx, "persisting scope entities", "scope", scope, "error", err)
	}
}

func indexOf(list []models.Category, id int64) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}
