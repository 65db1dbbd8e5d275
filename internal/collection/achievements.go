package collection

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/utafrali/GameStoreGo/internal/domain"
	apperrors "github.com/utafrali/GameStoreGo/pkg/errors"
	"github.com/utafrali/GameStoreGo/pkg/tracing"
)

// achievementsLabel is the metrics and log label of the achievements mirror.
const achievementsLabel = "achievements"

// AchievementRemote is the server side of the achievements mirror.
type AchievementRemote interface {
	List(ctx context.Context) ([]domain.Achievement, error)
	Check(ctx context.Context) ([]domain.Achievement, error)
}

// Achievements mirrors the signed-in user's unlocked achievements. The server
// awards them, so the mirror is read-only: it changes only by refetching.
type Achievements struct {
	remote   AchievementRemote
	identity Identity
	logger   *slog.Logger
	metrics  *Metrics
	tracer   trace.Tracer

	mu         sync.RWMutex
	items      []domain.Achievement
	settled    domain.State
	refreshing int
	startSeq   uint64
	appliedSeq uint64

	group singleflight.Group
}

// NewAchievements builds the achievements mirror. Only Identity, Logger and
// Metrics are taken from deps.
func NewAchievements(remote AchievementRemote, deps Deps) *Achievements {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = NewMetrics(nil)
	}
	return &Achievements{
		remote:   remote,
		identity: deps.Identity,
		logger:   deps.Logger.With(slog.String("kind", achievementsLabel)),
		metrics:  deps.Metrics,
		tracer:   tracing.Tracer(tracerName),
		settled:  domain.StateEmpty,
	}
}

// Refresh replaces the mirror with the server's list. It is a no-op for
// guests and concurrent calls share one request.
func (a *Achievements) Refresh(ctx context.Context) error {
	if !a.authenticated() {
		return nil
	}
	ch := a.group.DoChan(refreshKey, func() (any, error) {
		return nil, a.refresh(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Achievements) refresh(ctx context.Context) (err error) {
	ctx, span := a.tracer.Start(ctx, "collection.refresh",
		trace.WithAttributes(attribute.String("collection.kind", achievementsLabel)))
	defer func() { tracing.End(span, err) }()

	a.mu.Lock()
	a.startSeq++
	seq := a.startSeq
	a.refreshing++
	a.mu.Unlock()

	start := time.Now()
	items, err := a.remote.List(ctx)
	a.metrics.refreshDuration.WithLabelValues(achievementsLabel).Observe(time.Since(start).Seconds())

	a.mu.Lock()
	a.refreshing--
	if err != nil {
		a.mu.Unlock()
		a.record("refresh", resultError)
		a.logger.WarnContext(ctx, "refresh failed", slog.String("error", err.Error()))
		return fmt.Errorf("refresh achievements: %w", err)
	}
	if seq > a.appliedSeq {
		a.appliedSeq = seq
		a.items = items
		a.settled = settledFor(len(items))
	}
	count := len(a.items)
	a.mu.Unlock()

	a.record("refresh", resultOK)
	a.metrics.items.WithLabelValues(achievementsLabel).Set(float64(count))
	return nil
}

// Check asks the server to award newly earned achievements and returns them.
// The mirror is refetched afterwards even when the check fails, since some
// achievements may have been unlocked before the failure; a refetch failure
// is logged only.
func (a *Achievements) Check(ctx context.Context) ([]domain.Achievement, error) {
	if !a.authenticated() {
		return nil, apperrors.Unauthorized("sign in to check achievements")
	}

	unlocked, err := a.remote.Check(ctx)
	a.group.Forget(refreshKey)
	if refreshErr := a.refresh(ctx); refreshErr != nil {
		a.logger.WarnContext(ctx, "refresh after achievement check failed", slog.String("error", refreshErr.Error()))
	}
	if err != nil {
		a.record("check", resultError)
		return nil, fmt.Errorf("check achievements: %w", err)
	}
	a.record("check", resultOK)
	if unlocked == nil {
		unlocked = []domain.Achievement{}
	}
	return unlocked, nil
}

// Reset wipes the mirror locally, discarding refetches still in flight.
func (a *Achievements) Reset() {
	a.mu.Lock()
	a.items = nil
	a.settled = domain.StateEmpty
	a.appliedSeq = a.startSeq
	a.mu.Unlock()
	a.group.Forget(refreshKey)
	a.metrics.items.WithLabelValues(achievementsLabel).Set(0)
	a.record("reset", resultOK)
}

// Has reports whether an achievement of type achievementType is unlocked.
func (a *Achievements) Has(achievementType string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.ContainsFunc(a.items, func(it domain.Achievement) bool {
		return it.Type == achievementType
	})
}

// Count returns the number of unlocked achievements.
func (a *Achievements) Count() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.items)
}

// Items returns a copy of the mirror in server order.
func (a *Achievements) Items() []domain.Achievement {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.items)
}

// State reports the mirror's state tag.
func (a *Achievements) State() domain.State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.refreshing > 0 {
		return domain.StateRefreshing
	}
	return a.settled
}

func (a *Achievements) authenticated() bool {
	return a.identity != nil && a.identity.IsAuthenticated()
}

func (a *Achievements) record(op, result string) {
	a.metrics.operations.WithLabelValues(achievementsLabel, op, result).Inc()
}
