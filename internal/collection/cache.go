package collection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/utafrali/GameStoreGo/internal/domain"
	"github.com/utafrali/GameStoreGo/internal/repository"
	apperrors "github.com/utafrali/GameStoreGo/pkg/errors"
	"github.com/utafrali/GameStoreGo/pkg/tracing"
)

// DefaultFallbackPrice is charged for cart entries whose price is unknown.
const DefaultFallbackPrice = 59.99

const tracerName = "github.com/utafrali/GameStoreGo/internal/collection"

const refreshKey = "refresh"

// Remote is the server side of one collection, scoped to the signed-in caller.
type Remote interface {
	List(ctx context.Context) ([]domain.Item, error)
	Add(ctx context.Context, game *domain.Game) error
	Remove(ctx context.Context, gameID int64) error
	Clear(ctx context.Context) error
}

// Identity reports whether the storefront currently has a signed-in user.
type Identity interface {
	IsAuthenticated() bool
}

// Deps are the collaborators of a Cache. Store, Logger, Clock and Metrics are
// optional.
type Deps struct {
	Remote   Remote
	Identity Identity
	Store    repository.SnapshotStore
	Logger   *slog.Logger
	Clock    func() time.Time
	Metrics  *Metrics
}

// Config tunes a Cache.
type Config struct {
	FallbackPrice float64
	ClearPolicy   ClearPolicy
}

// DefaultConfig returns the fallback price of 59.99 and strict clearing.
func DefaultConfig() Config {
	return Config{FallbackPrice: DefaultFallbackPrice, ClearPolicy: ClearStrict}
}

// Cache mirrors one server-owned collection. Without a signed-in user every
// mutation is applied to the local mirror only; with one, mutations go to the
// server and the mirror is replaced by an authoritative refetch.
type Cache struct {
	kind     domain.Kind
	remote   Remote
	identity Identity
	store    repository.SnapshotStore
	logger   *slog.Logger
	now      func() time.Time
	metrics  *Metrics
	tracer   trace.Tracer
	cfg      Config

	mu         sync.RWMutex
	items      []domain.Item
	settled    domain.State
	refreshing int
	pending    int
	startSeq   uint64
	appliedSeq uint64

	persistMu sync.Mutex
	group     singleflight.Group
}

// New builds a cache for kind.
func New(kind domain.Kind, deps Deps, cfg Config) *Cache {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Metrics == nil {
		deps.Metrics = NewMetrics(nil)
	}
	if cfg.FallbackPrice <= 0 || math.IsNaN(cfg.FallbackPrice) || math.IsInf(cfg.FallbackPrice, 0) {
		cfg.FallbackPrice = DefaultFallbackPrice
	}

	return &Cache{
		kind:     kind,
		remote:   deps.Remote,
		identity: deps.Identity,
		store:    deps.Store,
		logger:   deps.Logger.With(slog.String("kind", string(kind))),
		now:      deps.Clock,
		metrics:  deps.Metrics,
		tracer:   tracing.Tracer(tracerName),
		cfg:      cfg,
		settled:  domain.StateEmpty,
	}
}

// Kind returns the collection this cache mirrors.
func (c *Cache) Kind() domain.Kind { return c.kind }

// Restore loads the persisted snapshot into the mirror. A restored mirror is
// Stale until the next successful Refresh. A missing snapshot is not an error.
func (c *Cache) Restore(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	items, err := c.store.Load(ctx, c.kind)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("restore %s snapshot: %w", c.kind, err)
	}

	items = domain.Dedupe(items)
	c.mu.Lock()
	c.items = items
	if len(items) > 0 {
		c.settled = domain.StateStale
	} else {
		c.settled = domain.StateEmpty
	}
	c.mu.Unlock()

	c.metrics.items.WithLabelValues(string(c.kind)).Set(float64(len(items)))
	c.logger.DebugContext(ctx, "mirror restored", slog.Int("count", len(items)))
	return nil
}

// Refresh replaces the mirror with the server's list. It is a no-op for
// guests. Concurrent calls share one request. On failure the mirror is left
// untouched and the error is returned.
func (c *Cache) Refresh(ctx context.Context) error {
	if !c.authenticated() {
		return nil
	}

	ch := c.group.DoChan(refreshKey, func() (any, error) {
		return nil, c.refresh(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// refresh performs one uncoalesced refetch. A result is discarded when a
// refresh started later has already been applied.
func (c *Cache) refresh(ctx context.Context) (err error) {
	ctx, span := c.tracer.Start(ctx, "collection.refresh",
		trace.WithAttributes(attribute.String("collection.kind", string(c.kind))))
	defer func() { tracing.End(span, err) }()

	c.mu.Lock()
	c.startSeq++
	seq := c.startSeq
	c.refreshing++
	c.mu.Unlock()

	start := time.Now()
	items, err := c.remote.List(ctx)
	c.metrics.refreshDuration.WithLabelValues(string(c.kind)).Observe(time.Since(start).Seconds())

	c.mu.Lock()
	c.refreshing--
	if err != nil {
		c.mu.Unlock()
		c.record("refresh", resultError)
		c.logger.WarnContext(ctx, "refresh failed", slog.String("error", err.Error()))
		return fmt.Errorf("refresh %s: %w", c.kind, err)
	}
	applied := seq > c.appliedSeq
	if applied {
		c.appliedSeq = seq
		c.items = domain.Dedupe(items)
		c.settled = settledFor(len(c.items))
	}
	count := len(c.items)
	c.mu.Unlock()

	c.record("refresh", resultOK)
	if applied {
		c.metrics.items.WithLabelValues(string(c.kind)).Set(float64(count))
		c.persist(ctx)
	}
	span.SetAttributes(attribute.Int("collection.count", count), attribute.Bool("collection.applied", applied))
	return nil
}

// Add makes game a member. Re-adding an existing member succeeds without
// creating a duplicate. Authenticated adds resynchronise from the server.
func (c *Cache) Add(ctx context.Context, game *domain.Game) (err error) {
	if err := game.Validate(); err != nil {
		c.record("add", resultError)
		return err
	}

	if !c.authenticated() {
		c.mu.Lock()
		if domain.IndexOf(c.items, game.ID) < 0 {
			c.items = append(c.items, domain.ItemFromGame(game, c.now()))
		}
		c.settled = settledFor(len(c.items))
		c.mu.Unlock()
		c.afterLocalMutation(ctx, "add", slog.Int64("game_id", game.ID))
		return nil
	}

	ctx, span := c.startMutation(ctx, "collection.add", game.ID)
	defer func() { c.endMutation(); tracing.End(span, err) }()

	result := resultOK
	if err := c.remote.Add(ctx, game); err != nil {
		if !isConflict(err) {
			c.record("add", resultError)
			return fmt.Errorf("add game %d to %s: %w", game.ID, c.kind, err)
		}
		result = resultAbsorbed
		c.logger.DebugContext(ctx, "add absorbed: already a member", slog.Int64("game_id", game.ID))
	}
	c.record("add", result)

	return c.refresh(ctx)
}

// Remove drops id from the collection. Removing a non-member succeeds.
func (c *Cache) Remove(ctx context.Context, id int64) (err error) {
	if !c.authenticated() {
		c.mu.Lock()
		if i := domain.IndexOf(c.items, id); i >= 0 {
			c.items = append(c.items[:i:i], c.items[i+1:]...)
		}
		c.settled = settledFor(len(c.items))
		c.mu.Unlock()
		c.afterLocalMutation(ctx, "remove", slog.Int64("game_id", id))
		return nil
	}
	if id <= 0 {
		c.record("remove", resultAbsorbed)
		return nil
	}

	ctx, span := c.startMutation(ctx, "collection.remove", id)
	defer func() { c.endMutation(); tracing.End(span, err) }()

	result := resultOK
	if err := c.remote.Remove(ctx, id); err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			c.record("remove", resultError)
			return fmt.Errorf("remove game %d from %s: %w", id, c.kind, err)
		}
		result = resultAbsorbed
	}
	c.record("remove", result)

	return c.refresh(ctx)
}

// Clear empties the collection. In authenticated mode the configured
// ClearPolicy decides whether a failed remote clear still empties the mirror.
func (c *Cache) Clear(ctx context.Context) (err error) {
	if !c.authenticated() {
		c.setItems(nil)
		c.afterLocalMutation(ctx, "clear")
		return nil
	}

	ctx, span := c.startMutation(ctx, "collection.clear", 0)
	defer func() { c.endMutation(); tracing.End(span, err) }()

	remoteErr := c.remote.Clear(ctx)
	if remoteErr != nil {
		c.record("clear", resultError)
		remoteErr = fmt.Errorf("clear %s: %w", c.kind, remoteErr)
		if c.cfg.ClearPolicy == ClearStrict {
			return remoteErr
		}
		c.logger.WarnContext(ctx, "remote clear failed, clearing mirror anyway", slog.String("error", remoteErr.Error()))
	} else {
		c.record("clear", resultOK)
	}

	c.setItems(nil)
	c.metrics.items.WithLabelValues(string(c.kind)).Set(0)
	c.persist(ctx)
	return remoteErr
}

// Reset wipes the mirror and its snapshot without contacting the server. It
// is used when the user signs out.
func (c *Cache) Reset(ctx context.Context) error {
	c.setItems(nil)
	c.metrics.items.WithLabelValues(string(c.kind)).Set(0)
	c.record("reset", resultOK)

	if c.store == nil {
		return nil
	}
	c.persistMu.Lock()
	defer c.persistMu.Unlock()
	if err := c.store.Delete(ctx, c.kind); err != nil {
		return fmt.Errorf("delete %s snapshot: %w", c.kind, err)
	}
	return nil
}

// Migrate re-adds guest items to the signed-in account, absorbing conflicts,
// then refreshes. Every item is attempted; failures are joined.
func (c *Cache) Migrate(ctx context.Context, items []domain.Item) error {
	if !c.authenticated() {
		return apperrors.Unauthorized("sign in to migrate guest items")
	}
	if len(items) == 0 {
		return nil
	}

	var errs []error
	for _, it := range items {
		if err := c.remote.Add(ctx, it.Game()); err != nil && !isConflict(err) {
			errs = append(errs, fmt.Errorf("migrate game %d: %w", it.GameID, err))
		}
	}
	c.record("migrate", resultFor(len(errs) == 0))
	c.logger.InfoContext(ctx, "guest items migrated",
		slog.Int("count", len(items)), slog.Int("failed", len(errs)))

	if err := c.refresh(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// IsMember reports whether id is in the current mirror.
func (c *Cache) IsMember(id int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return domain.IndexOf(c.items, id) >= 0
}

// Count returns the number of items in the mirror.
func (c *Cache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Items returns a copy of the mirror in server order.
func (c *Cache) Items() []domain.Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Item, len(c.items))
	copy(out, c.items)
	return out
}

// State reports the mirror's state tag.
func (c *Cache) State() domain.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	switch {
	case c.refreshing > 0:
		return domain.StateRefreshing
	case c.pending > 0:
		return domain.StateStale
	default:
		return c.settled
	}
}

// TotalCents sums item prices in cents. Missing, negative or non-finite
// prices count as the fallback price.
func (c *Cache) TotalCents() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var total int64
	for _, it := range c.items {
		total += toCents(c.priceOf(it))
	}
	return total
}

// Total is TotalCents in currency units.
func (c *Cache) Total() float64 {
	return float64(c.TotalCents()) / 100
}

func (c *Cache) priceOf(it domain.Item) float64 {
	if it.Price == nil {
		return c.cfg.FallbackPrice
	}
	p := *it.Price
	if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
		return c.cfg.FallbackPrice
	}
	return p
}

func toCents(v float64) int64 {
	return int64(math.Round(v * 100))
}

func (c *Cache) authenticated() bool {
	return c.identity != nil && c.identity.IsAuthenticated()
}

// setItems replaces the mirror outright. Refetches already in flight started
// before this state existed, so their results are discarded.
func (c *Cache) setItems(items []domain.Item) {
	c.mu.Lock()
	c.items = items
	c.settled = settledFor(len(items))
	c.appliedSeq = c.startSeq
	c.mu.Unlock()
}

func (c *Cache) startMutation(ctx context.Context, name string, id int64) (context.Context, trace.Span) {
	c.mu.Lock()
	c.pending++
	c.mu.Unlock()

	attrs := []attribute.KeyValue{attribute.String("collection.kind", string(c.kind))}
	if id > 0 {
		attrs = append(attrs, attribute.Int64("game.id", id))
	}
	return c.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// endMutation also detaches any shared refetch in flight, so a Refresh issued
// after the mutation reaches the server instead of joining an older request.
func (c *Cache) endMutation() {
	c.mu.Lock()
	c.pending--
	c.mu.Unlock()
	c.group.Forget(refreshKey)
}

func (c *Cache) afterLocalMutation(ctx context.Context, op string, attrs ...any) {
	count := c.Count()
	c.record(op, resultOK)
	c.metrics.items.WithLabelValues(string(c.kind)).Set(float64(count))
	c.logger.DebugContext(ctx, "guest mirror updated",
		append([]any{slog.String("op", op), slog.String("mode", "guest"), slog.Int("count", count)}, attrs...)...)
	c.persist(ctx)
}

// persist writes the current mirror. Writes are serialised and always read
// the mirror under the persist lock, so the last write is the newest state.
// Failures are logged only.
func (c *Cache) persist(ctx context.Context) {
	if c.store == nil {
		return
	}
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	items := c.Items()
	if err := c.store.Save(ctx, c.kind, items); err != nil {
		c.logger.WarnContext(ctx, "snapshot write failed", slog.String("error", err.Error()))
	}
}

func (c *Cache) record(op, result string) {
	c.metrics.operations.WithLabelValues(string(c.kind), op, result).Inc()
}

func settledFor(n int) domain.State {
	if n == 0 {
		return domain.StateEmpty
	}
	return domain.StatePopulated
}

func resultFor(ok bool) string {
	if ok {
		return resultOK
	}
	return resultError
}

func isConflict(err error) bool {
	return errors.Is(err, apperrors.ErrConflict) || errors.Is(err, apperrors.ErrAlreadyExists)
}
