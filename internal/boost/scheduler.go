// Package boost closes turbo boost windows. The deadline lives on the player
// row; an in-process timer per window closes it on time, and a periodic sweep
// closes anything the timers missed (failed revert, process restart).
package boost

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"telegram_tapper/internal/clock"
	"telegram_tapper/internal/domain"
	"telegram_tapper/internal/economy"
	"telegram_tapper/internal/logger"
	"telegram_tapper/internal/metrics"
	"telegram_tapper/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const (
	DefaultSweepInterval = 5 * time.Second
	sweepBatch           = 500
	sweepParallelism     = 8
)

type Options struct {
	// Timeout bounds one revert transaction.
	Timeout       time.Duration
	SweepInterval time.Duration
}

type Scheduler struct {
	store         repository.PlayerStore
	clock         clock.Clock
	timeout       time.Duration
	sweepInterval time.Duration

	mu      sync.Mutex
	pending map[uuid.UUID]*entry
}

type entry struct {
	timer     clock.Timer
	expiresAt time.Time
}

func NewScheduler(store repository.PlayerStore, clk clock.Clock, opts Options) *Scheduler {
	if opts.Timeout <= 0 {
		opts.Timeout = repository.DefaultTimeout
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultSweepInterval
	}
	return &Scheduler{
		store:         store,
		clock:         clk,
		timeout:       opts.Timeout,
		sweepInterval: opts.SweepInterval,
		pending:       make(map[uuid.UUID]*entry),
	}
}

// Schedule arms the revert for a player's window. A player has at most one
// pending revert; scheduling again replaces it.
func (s *Scheduler) Schedule(playerID uuid.UUID, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.pending[playerID]; ok {
		if old.expiresAt.Equal(expiresAt) {
			return
		}
		old.timer.Stop()
	}

	delay := expiresAt.Sub(s.clock.Now())
	if delay < 0 {
		delay = 0
	}
	e := &entry{expiresAt: expiresAt}
	e.timer = s.clock.AfterFunc(delay, func() { s.fire(playerID, e) })
	s.pending[playerID] = e
}

// Pending returns the number of armed reverts.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *Scheduler) fire(playerID uuid.UUID, e *entry) {
	s.mu.Lock()
	if s.pending[playerID] == e {
		delete(s.pending, playerID)
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.revert(ctx, playerID, "timer"); err != nil {
		// not retried here; the sweeper picks the window up again
		metrics.TurboRevertFailures.Inc()
		logger.Error("turbo revert failed", "player_id", playerID, "error", err)
	}
}

// Revert closes the player's turbo window if its deadline has passed. It is
// idempotent and reports whether this call closed the window.
func (s *Scheduler) Revert(ctx context.Context, playerID uuid.UUID) (bool, error) {
	return s.revert(ctx, playerID, "sweep")
}

func (s *Scheduler) revert(ctx context.Context, playerID uuid.UUID, trigger string) (bool, error) {
	reverted := false
	_, err := s.store.UpdateAtomic(ctx, playerID, func(p *domain.Player) error {
		reverted = economy.ExpireTurbo(p, s.clock.Now())
		if !reverted {
			return errNothingToRevert
		}
		return nil
	})
	if errors.Is(err, errNothingToRevert) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	metrics.TurboReverts.WithLabelValues(trigger).Inc()
	logger.Debug("turbo boost reverted", "player_id", playerID, "trigger", trigger)
	return true, nil
}

// errNothingToRevert aborts the transaction without writing.
var errNothingToRevert = errors.New("no due turbo window")

// Sweep closes every overdue window and returns how many it closed. Reverts
// run in parallel, at most sweepParallelism at a time.
func (s *Scheduler) Sweep(ctx context.Context) (int, error) {
	windows, err := s.store.ListTurboWindows(ctx, s.clock.Now(), sweepBatch)
	if err != nil {
		return 0, err
	}

	var closed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(sweepParallelism)

	for _, w := range windows {
		w := w
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			ok, err := s.Revert(gctx, w.PlayerID)
			if err != nil {
				logger.Warn("sweep revert failed", "player_id", w.PlayerID, "error", err)
				return nil
			}
			if ok {
				closed.Add(1)
			}
			return nil
		})
	}
	err = g.Wait()
	return int(closed.Load()), err
}

// Recover re-arms timers for every window still open in the store. Run calls
// it once at start-up so windows opened before a restart still close.
func (s *Scheduler) Recover(ctx context.Context) (int, error) {
	until := s.clock.Now().Add(economy.TurboDuration)
	windows, err := s.store.ListTurboWindows(ctx, until, 0)
	if err != nil {
		return 0, err
	}
	for _, w := range windows {
		s.Schedule(w.PlayerID, w.ExpiresAt)
	}
	return len(windows), nil
}

// Run recovers persisted windows, then sweeps until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	n, err := s.Recover(ctx)
	if err != nil {
		logger.Error("turbo recover failed", "error", err)
	} else if n > 0 {
		logger.Info("re-armed turbo boost windows", "count", n)
	}

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.stopAll()
			return nil
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, s.timeout*2)
			if n, err := s.Sweep(sweepCtx); err != nil {
				logger.Warn("turbo sweep failed", "error", err)
			} else if n > 0 {
				logger.Info("turbo sweep closed windows", "count", n)
			}
			cancel()
		}
	}
}

func (s *Scheduler) stopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.pending {
		e.timer.Stop()
		delete(s.pending, id)
	}
}
