package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"telegram_tapper/internal/domain"

	"github.com/google/uuid"
)

// MemoryPlayerStore keeps players in process memory. Transactions hold one
// store-wide lock and commit their staged writes only when fn succeeds.
// Used for local development (STORE_DRIVER=memory) and tests.
type MemoryPlayerStore struct {
	mu         sync.Mutex
	players    map[uuid.UUID]*domain.Player
	byTelegram map[int64]uuid.UUID
	now        func() time.Time
	timeout    time.Duration
}

func NewMemoryPlayerStore(now func() time.Time) *MemoryPlayerStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryPlayerStore{
		players:    make(map[uuid.UUID]*domain.Player),
		byTelegram: make(map[int64]uuid.UUID),
		now:        now,
		timeout:    DefaultTimeout,
	}
}

// SetTimeout changes the bound on RunTransaction.
func (s *MemoryPlayerStore) SetTimeout(d time.Duration) {
	if d > 0 {
		s.timeout = d
	}
}

func (s *MemoryPlayerStore) Get(ctx context.Context, id uuid.UUID) (*domain.Player, error) {
	if err := ctx.Err(); err != nil {
		return nil, classify(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p.Clone(), nil
}

func (s *MemoryPlayerStore) GetByTelegramID(ctx context.Context, telegramID int64) (*domain.Player, error) {
	if err := ctx.Err(); err != nil {
		return nil, classify(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byTelegram[telegramID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s.players[id].Clone(), nil
}

func (s *MemoryPlayerStore) Create(ctx context.Context, p *domain.Player) (*domain.Player, error) {
	if err := ctx.Err(); err != nil {
		return nil, classify(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byTelegram[p.TelegramID]; taken {
		return nil, ErrTelegramIDTaken
	}
	stored := p.Clone()
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	now := s.now()
	stored.Version = 1
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.players[stored.ID] = stored
	s.byTelegram[stored.TelegramID] = stored.ID
	return stored.Clone(), nil
}

func (s *MemoryPlayerStore) UpdateAtomic(ctx context.Context, id uuid.UUID, fn func(p *domain.Player) error) (*domain.Player, error) {
	return updateAtomic(ctx, s, id, fn)
}

// RunTransaction commits fn's staged writes only if fn succeeds within the
// store timeout.
func (s *MemoryPlayerStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx PlayerTx) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := ctx.Err(); err != nil {
		return classify(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memPlayerTx{store: s, staged: make(map[uuid.UUID]*domain.Player)}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	// a callback that outlived the deadline commits nothing
	if err := ctx.Err(); err != nil {
		return classify(err)
	}
	now := s.now()
	for id, p := range tx.staged {
		p.Version = s.players[id].Version + 1
		p.UpdatedAt = now
		s.players[id] = p
	}
	return nil
}

type memPlayerTx struct {
	store  *MemoryPlayerStore
	staged map[uuid.UUID]*domain.Player
}

func (t *memPlayerTx) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Player, error) {
	if err := ctx.Err(); err != nil {
		return nil, classify(err)
	}
	if p, ok := t.staged[id]; ok {
		return p.Clone(), nil
	}
	p, ok := t.store.players[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p.Clone(), nil
}

func (t *memPlayerTx) Save(ctx context.Context, p *domain.Player) error {
	if err := ctx.Err(); err != nil {
		return classify(err)
	}
	cur, ok := t.store.players[p.ID]
	if !ok {
		return domain.ErrNotFound
	}
	staged := p.Clone()
	// identity and quota caps are not writable through Save
	staged.TelegramID = cur.TelegramID
	staged.MaxQuantityEnergyBoost = cur.MaxQuantityEnergyBoost
	staged.MaxQuantityTurboBoost = cur.MaxQuantityTurboBoost
	staged.CreatedAt = cur.CreatedAt
	t.staged[p.ID] = staged

	p.Version = cur.Version + 1
	p.UpdatedAt = t.store.now()
	return nil
}

func (s *MemoryPlayerStore) TopByBalance(ctx context.Context, limit int) ([]domain.TopPlayer, error) {
	s.mu.Lock()
	all := make([]*domain.Player, 0, len(s.players))
	for _, p := range s.players {
		all = append(all, p)
	}
	s.mu.Unlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].Balance != all[j].Balance {
			return all[i].Balance > all[j].Balance
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	if limit < len(all) {
		all = all[:limit]
	}

	res := make([]domain.TopPlayer, 0, len(all))
	for _, p := range all {
		res = append(res, domain.TopPlayer{FirstName: p.FirstName, LastName: p.LastName, Balance: p.Balance})
	}
	return res, nil
}

func (s *MemoryPlayerStore) ListTurboWindows(ctx context.Context, until time.Time, limit int) ([]TurboWindow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res []TurboWindow
	for id, p := range s.players {
		if !p.IsTurboBoostActive {
			continue
		}
		exp := until
		if p.TurboBoostExpiresAt != nil {
			exp = *p.TurboBoostExpiresAt
		}
		if exp.After(until) {
			continue
		}
		res = append(res, TurboWindow{PlayerID: id, ExpiresAt: exp})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ExpiresAt.Before(res[j].ExpiresAt) })
	if limit > 0 && limit < len(res) {
		res = res[:limit]
	}
	return res, nil
}

func (s *MemoryPlayerStore) Ping(ctx context.Context) error {
	return ctx.Err()
}
