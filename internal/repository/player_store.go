package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"telegram_tapper/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrTelegramIDTaken is returned by Create when another player already owns
// the telegram id (two concurrent first sign-ins).
var ErrTelegramIDTaken = errors.New("telegram id already registered")

// DefaultTimeout bounds every store operation when none is configured.
const DefaultTimeout = 3 * time.Second

// PlayerTx is the view of the store inside RunTransaction. Rows read with
// GetForUpdate stay locked until the transaction ends.
type PlayerTx interface {
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Player, error)
	Save(ctx context.Context, p *domain.Player) error
}

// TurboWindow is an open turbo boost and its deadline.
type TurboWindow struct {
	PlayerID  uuid.UUID
	ExpiresAt time.Time
}

// PlayerStore persists players. Read-modify-write sequences on the same id
// are serialized; a failing callback leaves the record untouched.
type PlayerStore interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Player, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*domain.Player, error)
	Create(ctx context.Context, p *domain.Player) (*domain.Player, error)
	UpdateAtomic(ctx context.Context, id uuid.UUID, fn func(p *domain.Player) error) (*domain.Player, error)
	// RunTransaction hands fn the transaction's own context, which carries
	// the store timeout; statements inside fn must use it.
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx PlayerTx) error) error
	TopByBalance(ctx context.Context, limit int) ([]domain.TopPlayer, error)
	// ListTurboWindows returns open turbo windows expiring at or before until.
	ListTurboWindows(ctx context.Context, until time.Time, limit int) ([]TurboWindow, error)
	Ping(ctx context.Context) error
}

// updateAtomic is UpdateAtomic expressed over RunTransaction; both stores use it.
func updateAtomic(ctx context.Context, s PlayerStore, id uuid.UUID, fn func(p *domain.Player) error) (*domain.Player, error) {
	var out *domain.Player
	err := s.RunTransaction(ctx, func(ctx context.Context, tx PlayerTx) error {
		cur, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		work := cur.Clone()
		if err := fn(work); err != nil {
			return err
		}
		if err := tx.Save(ctx, work); err != nil {
			return err
		}
		out = work
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// classify maps driver errors onto the domain taxonomy. Domain errors raised
// by callbacks pass through unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrTransientStore, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "55P03": // serialization_failure, deadlock_detected, lock_not_available
			return fmt.Errorf("%w: %s", domain.ErrTransientStore, pgErr.Message)
		case "23505":
			return ErrTelegramIDTaken
		}
	}
	return err
}
