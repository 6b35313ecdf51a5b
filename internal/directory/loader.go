package directory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Fetcher reads the full user collection from the remote source.
type Fetcher interface {
	FetchUsers(ctx context.Context) ([]User, error)
}

// LoadObserver records load outcomes.
type LoadObserver interface {
	ObserveLoad(outcome string, duration time.Duration)
}

// Load outcomes reported to the LoadObserver.
const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeDiscarded = "discarded"
)

// Loader owns the lifecycle of the single in-flight collection read.
type Loader struct {
	fetcher  Fetcher
	cache    *Cache
	logger   *slog.Logger
	observer LoadObserver
	now      func() time.Time

	mu         sync.Mutex
	state      Snapshot
	generation uint64
	cancel     context.CancelFunc
	done       *settled
	mounted    bool
	closed     bool
}

// NewLoader wires a loader. cache and observer may be nil.
func NewLoader(fetcher Fetcher, cache *Cache, logger *slog.Logger, observer LoadObserver) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		fetcher:  fetcher,
		cache:    cache,
		logger:   logger,
		observer: observer,
		now:      time.Now,
		state:    Snapshot{Status: StatusLoading},
		done:     newSettled(),
	}
}

// Mount starts the initial read. Subsequent calls are no-ops.
func (l *Loader) Mount(ctx context.Context) error {
	l.mu.Lock()
	if l.mounted && !l.closed {
		l.mu.Unlock()
		return nil
	}
	l.mounted = true
	l.mu.Unlock()
	return l.start(ctx, "mount")
}

// Reload supersedes any in-flight read with a fresh one.
func (l *Loader) Reload(ctx context.Context) error {
	return l.start(ctx, "reload")
}

// Close cancels the in-flight read and discards any late result.
func (l *Loader) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}

// Snapshot returns the current state. Records must not be modified.
func (l *Loader) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Wait blocks until the current read settles or ctx is done.
func (l *Loader) Wait(ctx context.Context) (Snapshot, error) {
	for {
		l.mu.Lock()
		done := l.done
		status := l.state.Status
		closed := l.closed
		l.mu.Unlock()
		if status != StatusLoading || closed {
			return l.Snapshot(), nil
		}
		select {
		case <-ctx.Done():
			return l.Snapshot(), ctx.Err()
		case <-done.ch:
		}
	}
}

func (l *Loader) start(parent context.Context, reason string) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrLoaderClosed
	}
	if l.cancel != nil {
		l.cancel()
	}
	l.generation++
	gen := l.generation
	ctx, cancel := context.WithCancel(parent)
	l.cancel = cancel
	previous := l.done
	done := newSettled()
	l.done = done
	loadID := uuid.NewString()
	l.state = Snapshot{Status: StatusLoading, LoadID: loadID}
	l.mu.Unlock()

	// Waiters parked on the superseded read move on to the new one.
	previous.fire()

	logger := l.logger.With(slog.String("load_id", loadID), slog.String("reason", reason))
	logger.Info("directory load started")

	go func() {
		defer done.fire()
		started := l.now()
		users, err := l.fetch(ctx)
		l.finish(gen, loadID, users, err, started, logger)
	}()
	return nil
}

func (l *Loader) fetch(ctx context.Context) ([]User, error) {
	if l.fetcher == nil {
		return nil, fmt.Errorf("%w: fetcher not configured", ErrLoadFailed)
	}
	if l.cache == nil {
		return l.fetcher.FetchUsers(ctx)
	}
	return l.cache.Users(ctx, l.fetcher.FetchUsers)
}

func (l *Loader) finish(gen uint64, loadID string, users []User, err error, started time.Time, logger *slog.Logger) {
	elapsed := l.now().Sub(started)

	l.mu.Lock()
	if l.closed || gen != l.generation {
		l.mu.Unlock()
		logger.Debug("directory load discarded")
		l.observe(OutcomeDiscarded, elapsed)
		return
	}
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	if err != nil {
		l.state = Snapshot{Status: StatusError, Message: LoadFailedMessage, LoadID: loadID}
	} else {
		l.state = Snapshot{Status: StatusReady, Records: users, LoadID: loadID, LoadedAt: l.now()}
	}
	l.mu.Unlock()

	if err != nil {
		logger.Error("directory load failed", slog.Any("error", fmt.Errorf("%w: %w", ErrLoadFailed, err)))
		l.observe(OutcomeFailure, elapsed)
		return
	}
	logger.Info("directory load completed", slog.Int("records", len(users)), slog.Duration("duration", elapsed))
	l.observe(OutcomeSuccess, elapsed)
}

func (l *Loader) observe(outcome string, d time.Duration) {
	if l.observer != nil {
		l.observer.ObserveLoad(outcome, d)
	}
}

// settled is closed once a read completes or is superseded.
type settled struct {
	ch   chan struct{}
	once sync.Once
}

func newSettled() *settled {
	return &settled{ch: make(chan struct{})}
}

func (s *settled) fire() {
	s.once.Do(func() { close(s.ch) })
}
