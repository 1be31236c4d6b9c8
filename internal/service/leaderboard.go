package service

import (
	"context"
	"strconv"
	"time"

	"telegram_tapper/internal/clock"
	"telegram_tapper/internal/domain"
	"telegram_tapper/internal/repository"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTopLimit = 1
	MaxTopLimit     = 100

	topCacheSize = 32
)

type cachedTop struct {
	players   []domain.TopPlayer
	timestamp time.Time
}

// Leaderboard serves the richest players. Results are cached per limit for
// a short TTL; concurrent misses for the same limit share one query.
type Leaderboard struct {
	store repository.PlayerStore
	clock clock.Clock
	ttl   time.Duration
	cache *lru.Cache
	group singleflight.Group
}

func NewLeaderboard(store repository.PlayerStore, clk clock.Clock, ttl time.Duration) *Leaderboard {
	cache, _ := lru.New(topCacheSize)
	return &Leaderboard{
		store: store,
		clock: clk,
		ttl:   ttl,
		cache: cache,
	}
}

// ClampTopLimit maps a requested limit into [1, MaxTopLimit].
func ClampTopLimit(limit int) int {
	if limit <= 0 {
		return DefaultTopLimit
	}
	if limit > MaxTopLimit {
		return MaxTopLimit
	}
	return limit
}

// Top returns up to limit players ordered by balance, highest first.
func (l *Leaderboard) Top(ctx context.Context, limit int) ([]domain.TopPlayer, error) {
	limit = ClampTopLimit(limit)

	if l.ttl > 0 {
		if cached, ok := l.cache.Get(limit); ok {
			if c, ok := cached.(cachedTop); ok && l.clock.Now().Sub(c.timestamp) < l.ttl {
				return c.players, nil
			}
		}
	}

	// The shared load must not die with the caller that happened to start
	// it; each waiter still gives up on its own context.
	loadCtx := context.WithoutCancel(ctx)
	ch := l.group.DoChan(topKey(limit), func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(loadCtx, repository.DefaultTimeout)
		defer cancel()

		players, err := l.store.TopByBalance(ctx, limit)
		if err != nil {
			return nil, err
		}
		if l.ttl > 0 {
			l.cache.Add(limit, cachedTop{players: players, timestamp: l.clock.Now()})
		}
		return players, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]domain.TopPlayer), nil
	}
}

func topKey(limit int) string {
	return "top:" + strconv.Itoa(limit)
}
