package collection

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/GameStoreGo/internal/domain"
	"github.com/utafrali/GameStoreGo/internal/repository/memory"
	apperrors "github.com/utafrali/GameStoreGo/pkg/errors"
)

// --- Mocks ---

type mockRemote struct {
	mock.Mock
}

func (m *mockRemote) List(ctx context.Context) ([]domain.Item, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Item), args.Error(1)
}

func (m *mockRemote) Add(ctx context.Context, game *domain.Game) error {
	return m.Called(ctx, game).Error(0)
}

func (m *mockRemote) Remove(ctx context.Context, gameID int64) error {
	return m.Called(ctx, gameID).Error(0)
}

func (m *mockRemote) Clear(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type stubIdentity struct {
	authed atomic.Bool
}

func (s *stubIdentity) IsAuthenticated() bool { return s.authed.Load() }

type failingStore struct{}

func (failingStore) Load(context.Context, domain.Kind) ([]domain.Item, error) {
	return nil, errors.New("disk unreadable")
}
func (failingStore) Save(context.Context, domain.Kind, []domain.Item) error {
	return errors.New("disk full")
}
func (failingStore) Delete(context.Context, domain.Kind) error { return errors.New("disk full") }

// --- Test Helpers ---

var fixedNow = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	cache    *Cache
	remote   *mockRemote
	identity *stubIdentity
	store    *memory.SnapshotStore
	registry *prometheus.Registry
	metrics  *Metrics
}

func newFixture(t *testing.T, authed bool, cfg Config) *fixture {
	t.Helper()
	f := &fixture{
		remote:   new(mockRemote),
		identity: &stubIdentity{},
		store:    memory.NewSnapshotStore(),
		registry: prometheus.NewRegistry(),
	}
	f.metrics = NewMetrics(f.registry)
	f.identity.authed.Store(authed)
	f.cache = NewCart(f.deps(), cfg)
	t.Cleanup(func() { f.remote.AssertExpectations(t) })
	return f
}

func (f *fixture) deps() Deps {
	return Deps{
		Remote:   f.remote,
		Identity: f.identity,
		Store:    f.store,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock:    func() time.Time { return fixedNow },
		Metrics:  f.metrics,
	}
}

func game(id int64, price ...float64) *domain.Game {
	g := &domain.Game{ID: id, Title: "Game"}
	if len(price) > 0 {
		g.Price = domain.PriceOf(price[0])
	}
	return g
}

func item(id int64) domain.Item {
	return domain.Item{GameID: id, Title: "Game", AddedAt: fixedNow}
}

func ids(items []domain.Item) []int64 {
	out := make([]int64, len(items))
	for i, it := range items {
		out[i] = it.GameID
	}
	return out
}

func gameWithID(id int64) any {
	return mock.MatchedBy(func(g *domain.Game) bool { return g != nil && g.ID == id })
}

// --- Guest mode ---

func TestAdd_GuestIsIdempotent(t *testing.T) {
	f := newFixture(t, false, DefaultConfig())
	ctx := context.Background()

	require.NoError(t, f.cache.Add(ctx, game(10)))
	require.NoError(t, f.cache.Add(ctx, game(10)))

	assert.Equal(t, 1, f.cache.Count())
	assert.True(t, f.cache.IsMember(10))
	assert.Equal(t, fixedNow, f.cache.Items()[0].AddedAt)
	assert.Equal(t, domain.StatePopulated, f.cache.State())
	f.remote.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
}

func TestAdd_InvalidInput(t *testing.T) {
	for _, authed := range []bool{false, true} {
		f := newFixture(t, authed, DefaultConfig())

		err := f.cache.Add(context.Background(), nil)
		assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

		err = f.cache.Add(context.Background(), &domain.Game{Title: "no id"})
		assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
		assert.Zero(t, f.cache.Count())
	}
}

func TestRemove_GuestNonMemberIsNoop(t *testing.T) {
	f := newFixture(t, false, DefaultConfig())
	ctx := context.Background()
	require.NoError(t, f.cache.Add(ctx, game(1)))
	require.NoError(t, f.cache.Add(ctx, game(2)))

	require.NoError(t, f.cache.Remove(ctx, 99))
	require.NoError(t, f.cache.Remove(ctx, -4))
	assert.Equal(t, 2, f.cache.Count())

	require.NoError(t, f.cache.Remove(ctx, 1))
	assert.Equal(t, []int64{2}, ids(f.cache.Items()))
}

func TestRefresh_GuestIsNoop(t *testing.T) {
	f := newFixture(t, false, DefaultConfig())
	require.NoError(t, f.cache.Add(context.Background(), game(5)))

	require.NoError(t, f.cache.Refresh(context.Background()))
	assert.Equal(t, []int64{5}, ids(f.cache.Items()))
	f.remote.AssertNotCalled(t, "List", mock.Anything)
}

func TestClear_Guest(t *testing.T) {
	f := newFixture(t, false, DefaultConfig())
	ctx := context.Background()
	require.NoError(t, f.cache.Add(ctx, game(5)))

	require.NoError(t, f.cache.Clear(ctx))
	assert.Zero(t, f.cache.Count())
	assert.Equal(t, domain.StateEmpty, f.cache.State())
}

// --- Authenticated mode ---

func TestAdd_AuthenticatedIsIdempotent(t *testing.T) {
	f := newFixture(t, true, DefaultConfig())
	ctx := context.Background()

	f.remote.On("Add", mock.Anything, gameWithID(7)).Return(nil).Once()
	f.remote.On("Add", mock.Anything, gameWithID(7)).Return(apperrors.Conflict("Game already in cart")).Once()
	f.remote.On("List", mock.Anything).Return([]domain.Item{item(7)}, nil).Twice()

	before := f.cache.Count()
	require.NoError(t, f.cache.Add(ctx, game(7)))
	require.NoError(t, f.cache.Add(ctx, game(7)))

	assert.Equal(t, before+1, f.cache.Count())
	assert.True(t, f.cache.IsMember(7))
}

func TestAdd_ConflictAbsorbedAndRefreshed(t *testing.T) {
	f := newFixture(t, true, DefaultConfig())

	f.remote.On("Add", mock.Anything, gameWithID(3)).Return(apperrors.AlreadyExists("wishlist item", "gameId", "3"))
	f.remote.On("List", mock.Anything).Return([]domain.Item{item(1), item(3)}, nil).Once()

	require.NoError(t, f.cache.Add(context.Background(), game(3)))
	assert.True(t, f.cache.IsMember(3))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.cache.metrics.operations.WithLabelValues("cart", "add", "absorbed")))
}

func TestAdd_FailureSurfacesAndKeepsMirror(t *testing.T) {
	f := newFixture(t, true, DefaultConfig())
	ctx := context.Background()

	f.remote.On("List", mock.Anything).Return([]domain.Item{item(1)}, nil).Once()
	require.NoError(t, f.cache.Refresh(ctx))

	f.remote.On("Add", mock.Anything, gameWithID(2)).Return(apperrors.ServiceError("Game not found in catalog"))

	err := f.cache.Add(ctx, game(2))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrServiceUnavail))
	assert.Equal(t, "Game not found in catalog", apperrors.Message(err))
	assert.Equal(t, []int64{1}, ids(f.cache.Items()))
	assert.Equal(t, domain.StatePopulated, f.cache.State())
}

func TestAdd_UnauthorizedSurfaces(t *testing.T) {
	f := newFixture(t, true, DefaultConfig())
	f.remote.On("Add", mock.Anything, gameWithID(2)).Return(apperrors.Unauthorized("token expired"))

	err := f.cache.Add(context.Background(), game(2))
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
	assert.False(t, f.cache.IsMember(2))
}

func TestRemove_AuthenticatedNotFoundAbsorbed(t *testing.T) {
	f := newFixture(t, true, DefaultConfig())
	ctx := context.Background()

	f.remote.On("List", mock.Anything).Return([]domain.Item{item(1), item(2)}, nil)
	require.NoError(t, f.cache.Refresh(ctx))

	f.remote.On("Remove", mock.Anything, int64(42)).Return(apperrors.NotFound("cart item", "42"))
	require.NoError(t, f.cache.Remove(ctx, 42))
	assert.Equal(t, 2, f.cache.Count())
}

func TestRemove_AuthenticatedInvalidIDSkipsServer(t *testing.T) {
	f := newFixture(t, true, DefaultConfig())
	require.NoError(t, f.cache.Remove(context.Background(), 0))
	f.remote.AssertNotCalled(t, "Remove", mock.Anything, mock.Anything)
}

func TestRemove_AuthenticatedSuccessRefreshes(t *testing.T) {
	f := newFixture(t, true, DefaultConfig())
	ctx := context.Background()

	f.remote.On("List", mock.Anything).Return([]domain.Item{item(1), item(2)}, nil).Once()
	require.NoError(t, f.cache.Refresh(ctx))

	f.remote.On("Remove", mock.Anything, int64(1)).Return(nil)
	f.remote.On("List", mock.Anything).Return([]domain.Item{item(2)}, nil).Once()
	require.NoError(t, f.cache.Remove(ctx, 1))
	assert.Equal(t, []int64{2}, ids(f.cache.Items()))
}

func TestRemove_AuthenticatedFailureKeepsMirror(t *testing.T) {
	f := newFixture(t, true, DefaultConfig())
	ctx := context.Background()

	f.remote.On("List", mock.Anything).Return([]domain.Item{item(1)}, nil).Once()
	require.NoError(t, f.cache.Refresh(ctx))

	f.remote.On("Remove", mock.Anything, int64(1)).Return(apperrors.ServiceError(""))
	err := f.cache.Remove(ctx, 1)
	assert.True(t, errors.Is(err, apperrors.ErrServiceUnavail))
	assert.Equal(t, apperrors.FallbackMessage, apperrors.Message(err))
	assert.True(t, f.cache.IsMember(1))
}

func TestRefresh_ReplacesNotMerges(t *testing.T) {
	f := newFixture(t, true, DefaultConfig())
	ctx := context.Background()

	f.remote.On("List", mock.Anything).Return([]domain.Item{item(1), item(2)}, nil).Once()
	f.remote.On("List", mock.Anything).Return([]domain.Item{item(2), item(3)}, nil).Once()

	require.NoError(t, f.cache.Refresh(ctx))
	require.NoError(t, f.cache.Refresh(ctx))

	assert.Equal(t, []int64{2, 3}, ids(f.cache.Items()))
}

func TestRefresh_DropsServerDuplicates(t *testing.T) {
	f := newFixture(t, true, DefaultConfig())
	f.remote.On("List", mock.Anything).Return([]domain.Item{item(4), item(4), item(5)}, nil)

	require.NoError(t, f.cache.Refresh(context.Background()))
	assert.Equal(t, []int64{4, 5}, ids(f.cache.Items()))
}

func TestRefresh_FailureLeavesMirror(t *testing.T) {
	f := newFixture(t, true, DefaultConfig())
	ctx := context.Background()

	f.remote.On("List", mock.Anything).Return([]domain.Item{item(1)}, nil).Once()
	f.remote.On("List", mock.Anything).Return(nil, apperrors.Unauthorized("token expired")).Once()

	require.NoError(t, f.cache.Refresh(ctx))
	err := f.cache.Refresh(ctx)

	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
	assert.Equal(t, []int64{1}, ids(f.cache.Items()))
	assert.Equal(t, domain.StatePopulated, f.cache.State())
}

func TestGuestToAuthenticated_ServerWins(t *testing.T) {
	f := newFixture(t, false, DefaultConfig())
	ctx := context.Background()
	require.NoError(t, f.cache.Add(ctx, game(100)))

	f.identity.authed.Store(true)
	f.remote.On("List", mock.Anything).Return([]domain.Item{item(1), item(2)}, nil)
	require.NoError(t, f.cache.Refresh(ctx))

	assert.Equal(t, []int64{1, 2}, ids(f.cache.Items()))
	assert.False(t, f.cache.IsMember(100))
}

// --- Clear ---

func TestCheckoutFlow_ClearThenEmptyRefresh(t *testing.T) {
	f := newFixture(t, true, DefaultConfig())
	ctx := context.Background()

	f.remote.On("List", mock.Anything).Return([]domain.Item{item(1), item(2)}, nil).Once()
	require.NoError(t, f.cache.Refresh(ctx))
	require.Equal(t, 2, f.cache.Count())

	f.remote.On("Clear", mock.Anything).Return(nil)
	require.NoError(t, f.cache.Clear(ctx))
	assert.Zero(t, f.cache.Count())

	f.remote.On("List", mock.Anything).Return([]domain.Item{}, nil).Once()
	require.NoError(t, f.cache.Refresh(ctx))
	assert.Zero(t, f.cache.Count())
	assert.Equal(t, domain.StateEmpty, f.cache.State())
}

func TestClear_StrictKeepsMirrorOnFailure(t *testing.T) {
	f := newFixture(t, true, DefaultConfig())
	ctx := context.Background()

	f.remote.On("List", mock.Anything).Return([]domain.Item{item(1)}, nil).Once()
	require.NoError(t, f.cache.Refresh(ctx))

	f.remote.On("Clear", mock.Anything).Return(apperrors.ServiceError("backend down"))
	err := f.cache.Clear(ctx)

	assert.True(t, errors.Is(err, apperrors.ErrServiceUnavail))
	assert.Equal(t, 1, f.cache.Count())
}

func TestClear_BestEffortEmptiesMirrorAndReportsFailure(t *testing.T) {
	f := newFixture(t, true, Config{ClearPolicy: ClearBestEffort})
	ctx := context.Background()

	f.remote.On("List", mock.Anything).Return([]domain.Item{item(1)}, nil).Once()
	require.NoError(t, f.cache.Refresh(ctx))

	f.remote.On("Clear", mock.Anything).Return(apperrors.ServiceError("backend down"))
	err := f.cache.Clear(ctx)

	assert.True(t, errors.Is(err, apperrors.ErrServiceUnavail))
	assert.Zero(t, f.cache.Count())
}

func TestNewLibrary_AlwaysStrict(t *testing.T) {
	f := newFixture(t, true, DefaultConfig())
	lib := NewLibrary(f.deps(), Config{ClearPolicy: ClearBestEffort})

	f.remote.On("List", mock.Anything).Return([]domain.Item{item(1)}, nil).Once()
	require.NoError(t, lib.Refresh(context.Background()))

	f.remote.On("Clear", mock.Anything).Return(apperrors.Forbidden("library items cannot be removed"))
	err := lib.Clear(context.Background())

	assert.True(t, errors.Is(err, apperrors.ErrForbidden))
	assert.Equal(t, 1, lib.Count())
	assert.Equal(t, domain.KindLibrary, lib.Kind())
}

func TestLibrary_NonMemberRemoveAndEmptyClear(t *testing.T) {
	f := newFixture(t, true, DefaultConfig())
	lib := NewLibrary(f.deps(), DefaultConfig())
	ctx := context.Background()

	f.remote.On("List", mock.Anything).Return([]domain.Item{item(1)}, nil)
	require.NoError(t, lib.Refresh(ctx))

	f.remote.On("Remove", mock.Anything, int64(4242)).Return(apperrors.NotFound("library game", "4242"))
	require.NoError(t, lib.Remove(ctx, 4242))

	f.remote.On("Remove", mock.Anything, int64(1)).Return(apperrors.Forbidden("games cannot be removed from the library"))
	err := lib.Remove(ctx, 1)
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))
	assert.True(t, lib.IsMember(1))
}

func TestLibrary_ClearWhenNothingOwned(t *testing.T) {
	f := newFixture(t, true, DefaultConfig())
	lib := NewLibrary(f.deps(), DefaultConfig())

	f.remote.On("Clear", mock.Anything).Return(nil)
	require.NoError(t, lib.Clear(context.Background()))
	assert.Equal(t, domain.StateEmpty, lib.State())
}

func TestClear_RefreshAfterClearIgnoresEarlierRefetch(t *testing.T) {
	f := newFixture(t, true, DefaultConfig())
	ctx := context.Background()
	releaseOld := make(chan struct{})
	var lists atomic.Int32
	f.remote.On("List", mock.Anything).Run(func(mock.Arguments) {
		lists.Add(1)
		<-releaseOld
	}).Return([]domain.Item{item(1), item(2)}, nil).Once()
	f.remote.On("List", mock.Anything).Run(func(mock.Arguments) {
		lists.Add(1)
	}).Return([]domain.Item{}, nil).Once()
	f.remote.On("Clear", mock.Anything).Return(nil)

	done := make(chan error)
	go func() { done <- f.cache.Refresh(ctx) }()
	require.Eventually(t, func() bool { return f.cache.State() == domain.StateRefreshing }, time.Second, time.Millisecond)

	require.NoError(t, f.cache.Clear(ctx))
	require.NoError(t, f.cache.Refresh(ctx))
	assert.Zero(t, f.cache.Count())

	close(releaseOld)
	require.NoError(t, <-done)

	assert.Zero(t, f.cache.Count())
	assert.Empty(t, f.cache.Items())
	assert.Equal(t, int32(2), lists.Load())
}

func TestReset_DiscardsRefetchInFlight(t *testing.T) {
	f := newFixture(t, true, DefaultConfig())
	release := make(chan struct{})
	f.remote.On("List", mock.Anything).Run(func(mock.Arguments) { <-release }).Return([]domain.Item{item(1)}, nil).Once()

	done := make(chan error)
	go func() { done <- f.cache.Refresh(context.Background()) }()
	require.Eventually(t, func() bool { return f.cache.State() == domain.StateRefreshing }, time.Second, time.Millisecond)

	require.NoError(t, f.cache.Reset(context.Background()))
	close(release)
	require.NoError(t, <-done)

	assert.False(t, f.cache.IsMember(1))
}

// --- Totals ---

func TestTotal_FallbackPrice(t *testing.T) {
	f := newFixture(t, true, DefaultConfig())
	f.remote.On("List", mock.Anything).Return([]domain.Item{
		{GameID: 1, Price: domain.PriceOf(19.99)},
		{GameID: 2},
		{GameID: 3, Price: domain.PriceOf(59.99)},
	}, nil)
	require.NoError(t, f.cache.Refresh(context.Background()))

	assert.Equal(t, 139.97, f.cache.Total())
	assert.Equal(t, int64(13997), f.cache.TotalCents())
}

func TestTotal_MalformedPrices(t *testing.T) {
	f := newFixture(t, false, Config{FallbackPrice: 10})
	ctx := context.Background()

	require.NoError(t, f.cache.Add(ctx, game(1, math.NaN())))
	require.NoError(t, f.cache.Add(ctx, game(2, math.Inf(1))))
	require.NoError(t, f.cache.Add(ctx, game(3, -5)))
	require.NoError(t, f.cache.Add(ctx, game(4, 0)))

	assert.Equal(t, 30.0, f.cache.Total())
}

func TestTotal_EmptyAndDefaultFallback(t *testing.T) {
	f := newFixture(t, false, Config{FallbackPrice: math.NaN()})
	assert.Zero(t, f.cache.Total())

	require.NoError(t, f.cache.Add(context.Background(), game(1)))
	assert.Equal(t, DefaultFallbackPrice, f.cache.Total())
}

// --- State ---

func TestState_RestoredSnapshotIsStale(t *testing.T) {
	f := newFixture(t, true, DefaultConfig())
	ctx := context.Background()
	require.NoError(t, f.store.Save(ctx, domain.KindCart, []domain.Item{item(8), item(8), item(9)}))

	require.NoError(t, f.cache.Restore(ctx))
	assert.Equal(t, domain.StateStale, f.cache.State())
	assert.Equal(t, []int64{8, 9}, ids(f.cache.Items()))

	f.remote.On("List", mock.Anything).Return([]domain.Item{item(9)}, nil)
	require.NoError(t, f.cache.Refresh(ctx))
	assert.Equal(t, domain.StatePopulated, f.cache.State())
}

func TestState_RefreshingWhileListInFlight(t *testing.T) {
	f := newFixture(t, true, DefaultConfig())
	var during domain.State
	f.remote.On("List", mock.Anything).Run(func(mock.Arguments) {
		during = f.cache.State()
	}).Return([]domain.Item{item(1)}, nil)

	require.NoError(t, f.cache.Refresh(context.Background()))
	assert.Equal(t, domain.StateRefreshing, during)
	assert.Equal(t, domain.StatePopulated, f.cache.State())
}

func TestState_StaleWhileMutationPending(t *testing.T) {
	f := newFixture(t, true, DefaultConfig())
	var during domain.State
	f.remote.On("Add", mock.Anything, gameWithID(1)).Run(func(mock.Arguments) {
		during = f.cache.State()
	}).Return(nil)
	f.remote.On("List", mock.Anything).Return([]domain.Item{item(1)}, nil)

	require.NoError(t, f.cache.Add(context.Background(), game(1)))
	assert.Equal(t, domain.StateStale, during)
	assert.Equal(t, domain.StatePopulated, f.cache.State())
}

// --- Concurrency ---

func TestRefresh_ConcurrentCallsCoalesce(t *testing.T) {
	f := newFixture(t, true, DefaultConfig())
	release := make(chan struct{})
	var calls atomic.Int32
	f.remote.On("List", mock.Anything).Run(func(mock.Arguments) {
		calls.Add(1)
		<-release
	}).Return([]domain.Item{item(1)}, nil)

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = f.cache.Refresh(context.Background())
		}(i)
	}

	require.Eventually(t, func() bool { return f.cache.State() == domain.StateRefreshing }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestRefresh_OlderResultDiscarded(t *testing.T) {
	f := newFixture(t, true, DefaultConfig())
	releaseOld := make(chan struct{})
	f.remote.On("List", mock.Anything).Run(func(mock.Arguments) { <-releaseOld }).Return([]domain.Item{item(1)}, nil).Once()
	f.remote.On("List", mock.Anything).Return([]domain.Item{item(2)}, nil).Once()

	done := make(chan error)
	go func() { done <- f.cache.refresh(context.Background()) }()
	require.Eventually(t, func() bool { return f.cache.State() == domain.StateRefreshing }, time.Second, time.Millisecond)

	require.NoError(t, f.cache.refresh(context.Background()))
	close(releaseOld)
	require.NoError(t, <-done)

	assert.Equal(t, []int64{2}, ids(f.cache.Items()))
}

func TestRefresh_CallerCancellation(t *testing.T) {
	f := newFixture(t, true, DefaultConfig())
	release := make(chan struct{})
	f.remote.On("List", mock.Anything).Run(func(mock.Arguments) { <-release }).Return([]domain.Item{item(1)}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := f.cache.Refresh(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	require.Eventually(t, func() bool { return f.cache.IsMember(1) }, time.Second, time.Millisecond)
}

// --- Persistence ---

func TestPersistence_SnapshotFollowsMirror(t *testing.T) {
	f := newFixture(t, false, DefaultConfig())
	ctx := context.Background()

	require.NoError(t, f.cache.Add(ctx, game(1)))
	require.NoError(t, f.cache.Add(ctx, game(2)))
	saved, err := f.store.Load(ctx, domain.KindCart)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids(saved))

	restored := NewCart(f.deps(), DefaultConfig())
	require.NoError(t, restored.Restore(ctx))
	assert.Equal(t, []int64{1, 2}, ids(restored.Items()))

	require.NoError(t, f.cache.Reset(ctx))
	_, err = f.store.Load(ctx, domain.KindCart)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.Zero(t, f.cache.Count())
}

func TestPersistence_WriteFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t, false, DefaultConfig())
	deps := f.deps()
	deps.Store = failingStore{}
	c := NewCart(deps, DefaultConfig())

	require.NoError(t, c.Add(context.Background(), game(1)))
	assert.True(t, c.IsMember(1))

	assert.Error(t, c.Restore(context.Background()))
	assert.Error(t, c.Reset(context.Background()))
}

func TestRestore_MissingSnapshot(t *testing.T) {
	f := newFixture(t, false, DefaultConfig())
	require.NoError(t, f.cache.Restore(context.Background()))
	assert.Equal(t, domain.StateEmpty, f.cache.State())
}

// --- Migration ---

func TestMigrate_RequiresAuthentication(t *testing.T) {
	f := newFixture(t, false, DefaultConfig())
	err := f.cache.Migrate(context.Background(), []domain.Item{item(1)})
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
}

func TestMigrate_ReaddsGuestItems(t *testing.T) {
	f := newFixture(t, true, DefaultConfig())
	f.remote.On("Add", mock.Anything, gameWithID(1)).Return(nil)
	f.remote.On("Add", mock.Anything, gameWithID(2)).Return(apperrors.Conflict("already in cart"))
	f.remote.On("Add", mock.Anything, gameWithID(3)).Return(apperrors.ServiceError("boom"))
	f.remote.On("List", mock.Anything).Return([]domain.Item{item(1), item(2), item(5)}, nil)

	err := f.cache.Migrate(context.Background(), []domain.Item{item(1), item(2), item(3)})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrate game 3")
	assert.NotContains(t, err.Error(), "migrate game 2")
	assert.Equal(t, []int64{1, 2, 5}, ids(f.cache.Items()))
}

func TestMigrate_NothingToDo(t *testing.T) {
	f := newFixture(t, true, DefaultConfig())
	assert.NoError(t, f.cache.Migrate(context.Background(), nil))
}

// --- Misc ---

func TestItems_ReturnsCopy(t *testing.T) {
	f := newFixture(t, false, DefaultConfig())
	require.NoError(t, f.cache.Add(context.Background(), game(1)))

	items := f.cache.Items()
	items[0].GameID = 999
	assert.True(t, f.cache.IsMember(1))
}

func TestMetrics_ItemsGauge(t *testing.T) {
	f := newFixture(t, false, DefaultConfig())
	ctx := context.Background()
	require.NoError(t, f.cache.Add(ctx, game(1)))
	require.NoError(t, f.cache.Add(ctx, game(2)))

	assert.Equal(t, float64(2), testutil.ToFloat64(f.cache.metrics.items.WithLabelValues("cart")))
	assert.Equal(t, float64(2), testutil.ToFloat64(f.cache.metrics.operations.WithLabelValues("cart", "add", "ok")))
}

func TestParseClearPolicy(t *testing.T) {
	p, err := ParseClearPolicy("")
	require.NoError(t, err)
	assert.Equal(t, ClearStrict, p)

	p, err = ParseClearPolicy("Best_Effort")
	require.NoError(t, err)
	assert.Equal(t, ClearBestEffort, p)
	assert.Equal(t, "best_effort", p.String())

	_, err = ParseClearPolicy("yolo")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestSet_Get(t *testing.T) {
	f := newFixture(t, false, DefaultConfig())
	s := &Set{
		Cart:     f.cache,
		Wishlist: NewWishlist(f.deps(), DefaultConfig()),
		Library:  NewLibrary(f.deps(), DefaultConfig()),
	}

	for _, k := range domain.Kinds() {
		assert.Equal(t, k, s.Get(k).Kind())
	}
	assert.Nil(t, s.Get("reviews"))
	assert.Len(t, s.All(), 3)
}
