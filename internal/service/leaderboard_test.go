package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"telegram_tapper/internal/domain"
	"telegram_tapper/internal/repository"
)

// slowTopStore holds TopByBalance until released and fails it if the
// query's context is done by then.
type slowTopStore struct {
	repository.PlayerStore
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (s *slowTopStore) TopByBalance(ctx context.Context, limit int) ([]domain.TopPlayer, error) {
	s.once.Do(func() { close(s.started) })
	<-s.release
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.PlayerStore.TopByBalance(ctx, limit)
}

func TestClampTopLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 1},
		{-5, 1},
		{10, 10},
		{100, 100},
		{1000, 100},
	}
	for _, tt := range tests {
		if got := ClampTopLimit(tt.in); got != tt.want {
			t.Fatalf("ClampTopLimit(%d) = %d; want %d", tt.in, got, tt.want)
		}
	}
}

func TestLeaderboardCachesPerLimit(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	board := NewLeaderboard(f.store, f.clock, 5*time.Second)

	f.player(t, 1, func(p *domain.Player) { p.Balance = 10; p.FirstName = "a" })
	f.player(t, 2, func(p *domain.Player) { p.Balance = 30; p.FirstName = "b" })

	top, err := board.Top(ctx, 2)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 2 || top[0].Balance != 30 || top[1].Balance != 10 {
		t.Fatalf("top = %+v", top)
	}

	f.player(t, 3, func(p *domain.Player) { p.Balance = 50 })

	cached, _ := board.Top(ctx, 2)
	if cached[0].Balance != 30 {
		t.Fatalf("expected cached result, got %+v", cached)
	}

	// a different limit is a different cache entry
	one, _ := board.Top(ctx, 1)
	if len(one) != 1 || one[0].Balance != 50 {
		t.Fatalf("top(1) = %+v", one)
	}

	f.clock.Advance(5 * time.Second)
	fresh, _ := board.Top(ctx, 2)
	if fresh[0].Balance != 50 {
		t.Fatalf("expected refreshed result, got %+v", fresh)
	}
}

func TestLeaderboardSharedLoadSurvivesCanceledCaller(t *testing.T) {
	f := newFixture(t, false)
	f.player(t, 1, func(p *domain.Player) { p.Balance = 10 })

	store := &slowTopStore{PlayerStore: f.store, started: make(chan struct{}), release: make(chan struct{})}
	board := NewLeaderboard(store, f.clock, 0)

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := board.Top(firstCtx, 5)
		firstErr <- err
	}()
	<-store.started

	type result struct {
		top []domain.TopPlayer
		err error
	}
	second := make(chan result, 1)
	go func() {
		top, err := board.Top(context.Background(), 5)
		second <- result{top, err}
	}()
	// let the second caller join the in-flight load
	time.Sleep(50 * time.Millisecond)

	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("first caller err = %v; want context.Canceled", err)
	}

	close(store.release)
	select {
	case res := <-second:
		if res.err != nil {
			t.Fatalf("second caller err = %v", res.err)
		}
		if len(res.top) != 1 || res.top[0].Balance != 10 {
			t.Fatalf("top = %+v", res.top)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("second caller did not return")
	}
}
