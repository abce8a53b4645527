package store

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/client/cache"
	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/client/events"
	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/client/models"
	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/client/queue"
	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/client/syncengine"
	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/common"
	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/logging"
)

type memRepo struct {
	mu      sync.Mutex
	records map[int64]*models.ScopeRecord
}

func newMemRepo() *memRepo { return &memRepo{records: make(map[int64]*models.ScopeRecord)} }

func (m *memRepo) Load(ctx context.Context, scopeID int64) (*models.ScopeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[scopeID]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *rec
	cp.Entities = append([]models.Category(nil), rec.Entities...)
	cp.Operations = append([]models.PendingOperation(nil), rec.Operations...)
	return &cp, nil
}

func (m *memRepo) Save(ctx context.Context, record *models.ScopeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *record
	m.records[record.ScopeID] = &cp
	return nil
}

func (m *memRepo) Delete(ctx context.Context, scopeID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, scopeID)
	return nil
}

type fakeAPI struct {
	mu        sync.Mutex
	listFn    func(scopeID int64, params models.ListParams) (*models.Page, error)
	createFn  func(scopeID int64, req models.CategoryCreateRequest) (*models.Category, error)
	updateFn  func(scopeID, id int64, req models.CategoryUpdateRequest) (*models.Category, error)
	deleteFn  func(scopeID, id int64) error
	listCalls int
}

func (f *fakeAPI) Ping(ctx context.Context) error { return nil }

func (f *fakeAPI) List(ctx context.Context, scopeID int64, params models.ListParams) (*models.Page, error) {
	f.mu.Lock()
	f.listCalls++
	f.mu.Unlock()
	if f.listFn != nil {
		return f.listFn(scopeID, params)
	}
	return &models.Page{}, nil
}

func (f *fakeAPI) listCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func (f *fakeAPI) Get(ctx context.Context, scopeID, id int64) (*models.Category, error) {
	return nil, common.ErrNotFound
}

func (f *fakeAPI) Create(ctx context.Context, scopeID int64, req models.CategoryCreateRequest) (*models.Category, error) {
	if f.createFn != nil {
		return f.createFn(scopeID, req)
	}
	return nil, common.ErrUnavailable
}

func (f *fakeAPI) Update(ctx context.Context, scopeID, id int64, req models.CategoryUpdateRequest) (*models.Category, error) {
	if f.updateFn != nil {
		return f.updateFn(scopeID, id, req)
	}
	return nil, common.ErrUnavailable
}

func (f *fakeAPI) Delete(ctx context.Context, scopeID, id int64) error {
	if f.deleteFn != nil {
		return f.deleteFn(scopeID, id)
	}
	return common.ErrUnavailable
}

func (f *fakeAPI) ValidateName(ctx context.Context, scopeID int64, name string, excludeID *int64) (bool, error) {
	return name != "taken", nil
}

func (f *fakeAPI) ValidateDeletion(ctx context.Context, scopeID, id int64) (*models.ImpactPayload, error) {
	return &models.ImpactPayload{CanDelete: true}, nil
}

func (f *fakeAPI) DeleteWithOptions(ctx context.Context, scopeID int64, req models.DeletionRequest) (*models.EnhancedDeleteResponse, error) {
	return &models.EnhancedDeleteResponse{}, nil
}

func (f *fakeAPI) BulkDelete(ctx context.Context, scopeID int64, req models.BulkDeletionRequest) (*models.BulkDeleteResponse, error) {
	return &models.BulkDeleteResponse{}, nil
}

func (f *fakeAPI) Undo(ctx context.Context, scopeID int64, token string) error { return nil }

type fixture struct {
	api    *fakeAPI
	queue  *queue.OfflineQueue
	cache  *cache.LocalCache
	engine *syncengine.Engine
	store  *StateStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	api := &fakeAPI{}
	em := &events.Emitter{}
	q := queue.New(newMemRepo(), 3, em, logging.NopLogger{})
	c := cache.New(time.Minute)
	e := syncengine.New(api, q, c, em, logging.NopLogger{}, syncengine.Options{SyncInterval: time.Hour, DispatchDelay: time.Millisecond})
	st := New(api, q, c, e, em, logging.NopLogger{})
	e.SetReconciler(st)
	return &fixture{api: api, queue: q, cache: c, engine: e, store: st}
}

func seeded(t *testing.T, fx *fixture, items ...models.Category) {
	t.Helper()
	fx.api.listFn = func(scopeID int64, params models.ListParams) (*models.Page, error) {
		return &models.Page{Items: items, Total: len(items), Page: 1, PageSize: 20}, nil
	}
	fx.store.SetScope(context.Background(), 1)
	require.NoError(t, fx.store.Load(context.Background(), models.ListParams{Page: 1, PageSize: 20}))
}

func TestScopeNotSelected(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	err := fx.store.Load(ctx, models.ListParams{})
	assert.ErrorIs(t, err, common.ErrScopeNotSelected)

	_, err = fx.store.Create(ctx, models.CategoryCreateRequest{Name: "x"})
	assert.ErrorIs(t, err, common.ErrScopeNotSelected)

	_, err = fx.store.Update(ctx, 1, models.CategoryUpdateRequest{})
	assert.ErrorIs(t, err, common.ErrScopeNotSelected)

	assert.ErrorIs(t, fx.store.Delete(ctx, 1), common.ErrScopeNotSelected)
	assert.ErrorIs(t, fx.store.ForceSync(ctx), common.ErrScopeNotSelected)
}

func TestOfflineCreateThenReconnect(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.store.SetScope(ctx, 1)

	cat, err := fx.store.Create(ctx, models.CategoryCreateRequest{Name: "Bebidas", Active: true})
	require.NoError(t, err, "offline mutations degrade to queuing, never fail for connectivity")
	assert.Less(t, cat.ID, int64(0))
	assert.True(t, cat.IsPending())

	col := fx.store.Collection().Get()
	require.Len(t, col, 1)
	assert.Equal(t, cat.ID, col[0].ID)

	pending, err := fx.queue.Pending(ctx, 1)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, models.OperationCreate, pending[0].Type)
	assert.Equal(t, cat.ID, pending[0].SentinelID)

	fx.api.createFn = func(scopeID int64, req models.CategoryCreateRequest) (*models.Category, error) {
		return &models.Category{ID: 42, Name: req.Name, ScopeID: scopeID, Active: req.Active}, nil
	}

	// connectivity returns: the transition itself replays the queue
	fx.engine.OnlineChanged(ctx, true)

	col = fx.store.Collection().Get()
	require.Len(t, col, 1)
	assert.Equal(t, int64(42), col[0].ID, "sentinel replaced by the server id")
	assert.False(t, col[0].IsPending())

	pending, err = fx.queue.Pending(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestOnlineCreateReplacesSentinelImmediately(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.store.SetScope(ctx, 1)
	fx.engine.OnlineChanged(ctx, true)

	fx.api.createFn = func(scopeID int64, req models.CategoryCreateRequest) (*models.Category, error) {
		return &models.Category{ID: 7, Name: req.Name, ScopeID: scopeID}, nil
	}

	cat, err := fx.store.Create(ctx, models.CategoryCreateRequest{Name: "Lanches"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), cat.ID)

	col := fx.store.Collection().Get()
	require.Len(t, col, 1)
	assert.Equal(t, int64(7), col[0].ID)

	count, err := fx.queue.Count(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCreateRejectionRollsBack(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	seeded(t, fx, models.Category{ID: 1, Name: "Bebidas", ScopeID: 1})
	fx.engine.OnlineChanged(ctx, true)

	fx.api.createFn = func(scopeID int64, req models.CategoryCreateRequest) (*models.Category, error) {
		return nil, common.ErrRemoteRejected
	}

	before := fx.store.Collection().Get()
	_, err := fx.store.Create(ctx, models.CategoryCreateRequest{Name: "Duplicada"})
	assert.ErrorIs(t, err, common.ErrRemoteRejected)

	after := fx.store.Collection().Get()
	assert.Equal(t, before, after, "post-failure state equals pre-mutation state")

	count, cerr := fx.queue.Count(ctx, 1)
	require.NoError(t, cerr)
	assert.Zero(t, count, "rejections are never queued")
	assert.ErrorIs(t, fx.store.LastError().Get(), common.ErrRemoteRejected)
}

func TestUpdateRollsBackToExactSnapshot(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	orig := models.Category{ID: 5, Name: "Bebidas", Description: "geladas", ScopeID: 1, Active: true}
	seeded(t, fx, orig)
	fx.engine.OnlineChanged(ctx, true)

	fx.api.updateFn = func(scopeID, id int64, req models.CategoryUpdateRequest) (*models.Category, error) {
		return nil, common.ErrRemoteRejected
	}
	_, sErr := fx.store.Select(5)
	require.NoError(t, sErr)

	name := "Renomeada"
	_, err := fx.store.Update(ctx, 5, models.CategoryUpdateRequest{Name: &name})
	assert.ErrorIs(t, err, common.ErrRemoteRejected)

	col := fx.store.Collection().Get()
	require.Len(t, col, 1)
	assert.Equal(t, orig, col[0])
	require.NotNil(t, fx.store.Selection().Get())
	assert.Equal(t, orig, *fx.store.Selection().Get())
}

func TestUpdateUnknownID(t *testing.T) {
	fx := newFixture(t)
	seeded(t, fx)
	_, err := fx.store.Update(context.Background(), 999, models.CategoryUpdateRequest{})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestOfflineUpdateQueues(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	seeded(t, fx, models.Category{ID: 5, Name: "Bebidas", ScopeID: 1})

	name := "Renomeada"
	cat, err := fx.store.Update(ctx, 5, models.CategoryUpdateRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renomeada", cat.Name)

	pending, err := fx.queue.Pending(ctx, 1)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, models.OperationUpdate, pending[0].Type)
	assert.Equal(t, int64(5), pending[0].TargetID)
}

func TestDeleteRollbackRestoresPosition(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	seeded(t, fx,
		models.Category{ID: 1, Name: "A", ScopeID: 1},
		models.Category{ID: 2, Name: "B", ScopeID: 1},
		models.Category{ID: 3, Name: "C", ScopeID: 1},
	)
	fx.engine.OnlineChanged(ctx, true)

	fx.api.deleteFn = func(scopeID, id int64) error { return common.ErrRemoteRejected }

	err := fx.store.Delete(ctx, 2)
	assert.ErrorIs(t, err, common.ErrRemoteRejected)

	col := fx.store.Collection().Get()
	assert.Equal(t, []int64{1, 2, 3}, ids(col), "entity reinserted at its original position")
}

func TestDeleteClearsSelection(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	seeded(t, fx, models.Category{ID: 2, Name: "B", ScopeID: 1})

	_, err := fx.store.Select(2)
	require.NoError(t, err)

	require.NoError(t, fx.store.Delete(ctx, 2), "offline delete queues")
	assert.Nil(t, fx.store.Selection().Get())
	assert.Empty(t, fx.store.Collection().Get())

	pending, err := fx.queue.Pending(ctx, 1)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, models.OperationDelete, pending[0].Type)
}

func TestLoadUsesCacheUntilInvalidated(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	seeded(t, fx, models.Category{ID: 1, Name: "Bebidas", ScopeID: 1})
	require.Equal(t, 1, fx.api.listCount())

	params := models.ListParams{Page: 1, PageSize: 20}
	require.NoError(t, fx.store.Load(ctx, params))
	assert.Equal(t, 1, fx.api.listCount(), "second load served from cache")

	n := fx.cache.InvalidateByPattern(func(key string) bool {
		return strings.HasPrefix(key, cache.ListKeyPrefix(1))
	})
	assert.Positive(t, n)

	require.NoError(t, fx.store.Load(ctx, params))
	assert.Equal(t, 2, fx.api.listCount(), "invalidation forces a remote round trip")
}

func TestLoadFailureLeavesCollectionIntact(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	seeded(t, fx, models.Category{ID: 1, Name: "Bebidas", ScopeID: 1})

	fx.api.listFn = func(scopeID int64, params models.ListParams) (*models.Page, error) {
		return nil, common.ErrUnavailable
	}
	err := fx.store.Load(ctx, models.ListParams{Page: 2, PageSize: 20})
	assert.ErrorIs(t, err, common.ErrUnavailable)

	col := fx.store.Collection().Get()
	require.Len(t, col, 1)
	assert.Equal(t, int64(1), col[0].ID)
	assert.False(t, fx.store.Loading().Get())
}

func TestSetScopeResetsAndRestoresPersistedState(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	seeded(t, fx, models.Category{ID: 1, Name: "Bebidas", ScopeID: 1})
	fx.store.Search(models.FilterSpec{Search: "beb"})
	_, err := fx.store.Select(1)
	require.NoError(t, err)

	fx.store.SetScope(ctx, 2)
	assert.Empty(t, fx.store.Collection().Get())
	assert.Nil(t, fx.store.Selection().Get())
	assert.True(t, fx.store.Filter().Get().IsZero())

	// switching back restores what was durably persisted for scope 1
	fx.store.SetScope(ctx, 1)
	col := fx.store.Collection().Get()
	require.Len(t, col, 1)
	assert.Equal(t, int64(1), col[0].ID)
}

func TestSearchPublishesFilteredView(t *testing.T) {
	fx := newFixture(t)
	seeded(t, fx,
		models.Category{ID: 1, Name: "Bebidas", Active: true, ScopeID: 1},
		models.Category{ID: 2, Name: "Lanches", Active: false, ScopeID: 1},
	)

	got := fx.store.Search(models.FilterSpec{Search: "lan"})
	assert.Equal(t, []int64{2}, ids(got))
	assert.Equal(t, []int64{2}, ids(fx.store.Collection().Get()))

	// mutations keep honoring the active filter
	got = fx.store.Search(models.FilterSpec{})
	assert.Len(t, got, 2)
}

func TestValidateNamePassthrough(t *testing.T) {
	fx := newFixture(t)
	fx.store.SetScope(context.Background(), 1)

	ok, err := fx.store.ValidateName(context.Background(), "livre", nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = fx.store.ValidateName(context.Background(), "taken", nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvictAndRestore(t *testing.T) {
	fx := newFixture(t)
	seeded(t, fx,
		models.Category{ID: 1, Name: "A", ScopeID: 1},
		models.Category{ID: 2, Name: "B", ScopeID: 1},
		models.Category{ID: 3, Name: "C", ScopeID: 1},
	)
	_, err := fx.store.Select(2)
	require.NoError(t, err)

	removed := fx.store.Evict(2, 3)
	assert.Equal(t, []int64{2, 3}, ids(removed))
	assert.Equal(t, []int64{1}, ids(fx.store.Collection().Get()))
	assert.Nil(t, fx.store.Selection().Get())

	fx.store.Restore(removed)
	assert.ElementsMatch(t, []int64{1, 2, 3}, ids(fx.store.Collection().Get()))
}
