package boost

import (
	"context"
	"testing"
	"time"

	"telegram_tapper/internal/clock"
	"telegram_tapper/internal/domain"
	"telegram_tapper/internal/economy"
	"telegram_tapper/internal/repository"
)

var t0 = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*Scheduler, *repository.MemoryPlayerStore, *clock.Fake, *domain.Player) {
	t.Helper()
	clk := clock.NewFake(t0)
	store := repository.NewMemoryPlayerStore(clk.Now)
	seed := economy.DefaultSeed()
	seed.BalanceAmount, seed.EnergyAmount = 2, 3
	p, err := store.Create(context.Background(), economy.NewPlayer(domain.TelegramProfile{ID: 1}, seed, t0))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return NewScheduler(store, clk, Options{Timeout: time.Second}), store, clk, p
}

func activate(t *testing.T, store repository.PlayerStore, clk clock.Clock, p *domain.Player) *domain.Player {
	t.Helper()
	out, err := store.UpdateAtomic(context.Background(), p.ID, func(p *domain.Player) error {
		return economy.ActivateTurbo(p, clk.Now())
	})
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	return out
}

func TestTimerRevertsAfterDuration(t *testing.T) {
	s, store, clk, p := setup(t)
	ctx := context.Background()

	active := activate(t, store, clk, p)
	s.Schedule(p.ID, *active.TurboBoostExpiresAt)
	if s.Pending() != 1 {
		t.Fatalf("pending = %d", s.Pending())
	}

	clk.Advance(9 * time.Second)
	got, _ := store.Get(ctx, p.ID)
	if got.BalanceAmount != 6 || got.EnergyAmount != 0 || !got.IsTurboBoostActive {
		t.Fatalf("reverted too early: %+v", got)
	}

	clk.Advance(time.Second)
	got, _ = store.Get(ctx, p.ID)
	if got.BalanceAmount != 2 || got.EnergyAmount != 3 || got.IsTurboBoostActive || got.TurboBoostExpiresAt != nil {
		t.Fatalf("after expiry: balanceAmount=%d energyAmount=%d active=%v", got.BalanceAmount, got.EnergyAmount, got.IsTurboBoostActive)
	}
	if s.Pending() != 0 {
		t.Fatalf("pending = %d after fire", s.Pending())
	}
}

func TestRevertIgnoresInterveningMutations(t *testing.T) {
	s, store, clk, p := setup(t)
	ctx := context.Background()

	active := activate(t, store, clk, p)
	s.Schedule(p.ID, *active.TurboBoostExpiresAt)

	for i := 0; i < 4; i++ {
		_, _ = store.UpdateAtomic(ctx, p.ID, economy.ApplyTap)
	}
	clk.Advance(economy.TurboDuration)

	got, _ := store.Get(ctx, p.ID)
	if got.Balance != 24 || got.BalanceAmount != 2 || got.EnergyAmount != 3 {
		t.Fatalf("got balance=%d balanceAmount=%d energyAmount=%d", got.Balance, got.BalanceAmount, got.EnergyAmount)
	}
}

func TestRevertIsIdempotent(t *testing.T) {
	s, store, clk, p := setup(t)
	ctx := context.Background()

	activate(t, store, clk, p)
	clk.Advance(economy.TurboDuration)

	ok, err := s.Revert(ctx, p.ID)
	if err != nil || !ok {
		t.Fatalf("first revert: %v %v", ok, err)
	}
	before, _ := store.Get(ctx, p.ID)

	ok, err = s.Revert(ctx, p.ID)
	if err != nil || ok {
		t.Fatalf("second revert: %v %v", ok, err)
	}
	after, _ := store.Get(ctx, p.ID)
	if after.Version != before.Version {
		t.Fatalf("no-op revert wrote the row")
	}
}

func TestRevertDoesNotCloseNewerWindow(t *testing.T) {
	s, store, clk, p := setup(t)
	ctx := context.Background()

	first := activate(t, store, clk, p)
	firstExpiry := *first.TurboBoostExpiresAt

	// the first window is closed lazily and a second one opened before the
	// stale revert runs
	clk.Set(firstExpiry)
	_, _ = store.UpdateAtomic(ctx, p.ID, func(p *domain.Player) error {
		economy.ExpireTurbo(p, clk.Now())
		return economy.ActivateTurbo(p, clk.Now())
	})

	ok, err := s.Revert(ctx, p.ID)
	if err != nil || ok {
		t.Fatalf("stale revert closed the new window: %v %v", ok, err)
	}
	got, _ := store.Get(ctx, p.ID)
	if !got.IsTurboBoostActive || got.BalanceAmount != 6 {
		t.Fatalf("second window lost: %+v", got)
	}
}

func TestScheduleKeepsOnePendingRevertPerPlayer(t *testing.T) {
	s, _, clk, p := setup(t)

	s.Schedule(p.ID, t0.Add(10*time.Second))
	s.Schedule(p.ID, t0.Add(10*time.Second))
	s.Schedule(p.ID, t0.Add(20*time.Second))

	if s.Pending() != 1 || clk.Pending() != 1 {
		t.Fatalf("scheduler pending = %d, clock pending = %d; want 1, 1", s.Pending(), clk.Pending())
	}
}

func TestSweepClosesMissedWindows(t *testing.T) {
	s, store, clk, p := setup(t)
	ctx := context.Background()

	// activated without a timer: simulates a process that died mid-window
	activate(t, store, clk, p)

	n, err := s.Sweep(ctx)
	if err != nil || n != 0 {
		t.Fatalf("early sweep closed %d (err %v)", n, err)
	}

	clk.Advance(time.Minute)
	n, err = s.Sweep(ctx)
	if err != nil || n != 1 {
		t.Fatalf("sweep closed %d (err %v); want 1", n, err)
	}
	got, _ := store.Get(ctx, p.ID)
	if got.IsTurboBoostActive || got.BalanceAmount != 2 {
		t.Fatalf("sweep left window open: %+v", got)
	}
}

func TestRecoverRearmsPersistedWindows(t *testing.T) {
	_, store, clk, p := setup(t)
	ctx := context.Background()

	activate(t, store, clk, p)

	// fresh scheduler, as after a restart
	restarted := NewScheduler(store, clk, Options{})
	n, err := restarted.Recover(ctx)
	if err != nil || n != 1 || restarted.Pending() != 1 {
		t.Fatalf("recover: n=%d err=%v pending=%d", n, err, restarted.Pending())
	}

	clk.Advance(economy.TurboDuration)
	got, _ := store.Get(ctx, p.ID)
	if got.IsTurboBoostActive {
		t.Fatalf("recovered timer did not fire")
	}
}
