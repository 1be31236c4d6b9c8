package repository

import (
	"context"
	"time"

	"telegram_tapper/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const playerColumns = `id, telegram_id, COALESCE(username, ''), COALESCE(first_name, ''), COALESCE(last_name, ''),
	balance, balance_amount,
	energy, energy_amount, energy_recovery_amount, max_energy, last_energy_update,
	multitap_level, multitap_price, energy_limit_level, energy_limit_price,
	quantity_energy_boost, max_quantity_energy_boost, last_energy_boost_update,
	quantity_turbo_boost, max_quantity_turbo_boost, last_turbo_boost_update,
	is_turbo_boost_active, turbo_boost_expires_at, original_balance_amount, original_energy_amount,
	version, created_at, updated_at`

// PlayerRepository is the Postgres PlayerStore. Same-id writes serialize on
// the row lock taken by SELECT ... FOR UPDATE.
type PlayerRepository struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPlayerRepository(db *pgxpool.Pool, timeout time.Duration) *PlayerRepository {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &PlayerRepository{db: db, timeout: timeout}
}

func scanPlayer(row pgx.Row) (*domain.Player, error) {
	var p domain.Player
	if err := row.Scan(
		&p.ID, &p.TelegramID, &p.Username, &p.FirstName, &p.LastName,
		&p.Balance, &p.BalanceAmount,
		&p.Energy, &p.EnergyAmount, &p.EnergyRecoveryAmount, &p.MaxEnergy, &p.LastEnergyUpdate,
		&p.MultitapLevel, &p.MultitapPrice, &p.EnergyLimitLevel, &p.EnergyLimitPrice,
		&p.QuantityEnergyBoost, &p.MaxQuantityEnergyBoost, &p.LastEnergyBoostUpdate,
		&p.QuantityTurboBoost, &p.MaxQuantityTurboBoost, &p.LastTurboBoostUpdate,
		&p.IsTurboBoostActive, &p.TurboBoostExpiresAt, &p.OriginalBalanceAmount, &p.OriginalEnergyAmount,
		&p.Version, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PlayerRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Player, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	p, err := scanPlayer(r.db.QueryRow(ctx, `SELECT `+playerColumns+` FROM players WHERE id = $1`, id))
	return p, classify(err)
}

func (r *PlayerRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*domain.Player, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	p, err := scanPlayer(r.db.QueryRow(ctx, `SELECT `+playerColumns+` FROM players WHERE telegram_id = $1`, telegramID))
	return p, classify(err)
}

func (r *PlayerRepository) Create(ctx context.Context, p *domain.Player) (*domain.Player, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	row := r.db.QueryRow(ctx,
		`INSERT INTO players (
			id, telegram_id, username, first_name, last_name,
			balance, balance_amount,
			energy, energy_amount, energy_recovery_amount, max_energy, last_energy_update,
			multitap_level, multitap_price, energy_limit_level, energy_limit_price,
			quantity_energy_boost, max_quantity_energy_boost, last_energy_boost_update,
			quantity_turbo_boost, max_quantity_turbo_boost, last_turbo_boost_update,
			original_balance_amount, original_energy_amount)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23, $24)
		 RETURNING `+playerColumns,
		p.ID, p.TelegramID, p.Username, p.FirstName, p.LastName,
		p.Balance, p.BalanceAmount,
		p.Energy, p.EnergyAmount, p.EnergyRecoveryAmount, p.MaxEnergy, p.LastEnergyUpdate,
		p.MultitapLevel, p.MultitapPrice, p.EnergyLimitLevel, p.EnergyLimitPrice,
		p.QuantityEnergyBoost, p.MaxQuantityEnergyBoost, p.LastEnergyBoostUpdate,
		p.QuantityTurboBoost, p.MaxQuantityTurboBoost, p.LastTurboBoostUpdate,
		p.OriginalBalanceAmount, p.OriginalEnergyAmount,
	)
	created, err := scanPlayer(row)
	return created, classify(err)
}

func (r *PlayerRepository) UpdateAtomic(ctx context.Context, id uuid.UUID, fn func(p *domain.Player) error) (*domain.Player, error) {
	return updateAtomic(ctx, r, id, fn)
}

// RunTransaction runs fn in one database transaction bounded by the store
// timeout. fn's error rolls everything back.
func (r *PlayerRepository) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx PlayerTx) error) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return classify(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &pgPlayerTx{tx: tx}); err != nil {
		return classify(err)
	}
	return classify(tx.Commit(ctx))
}

type pgPlayerTx struct {
	tx pgx.Tx
}

func (t *pgPlayerTx) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Player, error) {
	p, err := scanPlayer(t.tx.QueryRow(ctx, `SELECT `+playerColumns+` FROM players WHERE id = $1 FOR UPDATE`, id))
	return p, classify(err)
}

func (t *pgPlayerTx) Save(ctx context.Context, p *domain.Player) error {
	err := t.tx.QueryRow(ctx,
		`UPDATE players SET
			balance = $2, balance_amount = $3,
			energy = $4, energy_amount = $5, energy_recovery_amount = $6, max_energy = $7, last_energy_update = $8,
			multitap_level = $9, multitap_price = $10, energy_limit_level = $11, energy_limit_price = $12,
			quantity_energy_boost = $13, last_energy_boost_update = $14,
			quantity_turbo_boost = $15, last_turbo_boost_update = $16,
			is_turbo_boost_active = $17, turbo_boost_expires_at = $18,
			original_balance_amount = $19, original_energy_amount = $20,
			version = version + 1, updated_at = NOW()
		 WHERE id = $1
		 RETURNING version, updated_at`,
		p.ID,
		p.Balance, p.BalanceAmount,
		p.Energy, p.EnergyAmount, p.EnergyRecoveryAmount, p.MaxEnergy, p.LastEnergyUpdate,
		p.MultitapLevel, p.MultitapPrice, p.EnergyLimitLevel, p.EnergyLimitPrice,
		p.QuantityEnergyBoost, p.LastEnergyBoostUpdate,
		p.QuantityTurboBoost, p.LastTurboBoostUpdate,
		p.IsTurboBoostActive, p.TurboBoostExpiresAt,
		p.OriginalBalanceAmount, p.OriginalEnergyAmount,
	).Scan(&p.Version, &p.UpdatedAt)
	return classify(err)
}

// TopByBalance returns the richest players first.
func (r *PlayerRepository) TopByBalance(ctx context.Context, limit int) ([]domain.TopPlayer, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT COALESCE(first_name, ''), COALESCE(last_name, ''), balance
		FROM players
		ORDER BY balance DESC, created_at ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var res []domain.TopPlayer
	for rows.Next() {
		var tp domain.TopPlayer
		if err := rows.Scan(&tp.FirstName, &tp.LastName, &tp.Balance); err != nil {
			return nil, classify(err)
		}
		res = append(res, tp)
	}
	return res, classify(rows.Err())
}

func (r *PlayerRepository) ListTurboWindows(ctx context.Context, until time.Time, limit int) ([]TurboWindow, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	// LIMIT NULL is no limit
	var lim any
	if limit > 0 {
		lim = limit
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, COALESCE(turbo_boost_expires_at, NOW())
		FROM players
		WHERE is_turbo_boost_active
		  AND (turbo_boost_expires_at IS NULL OR turbo_boost_expires_at <= $1)
		ORDER BY turbo_boost_expires_at NULLS FIRST
		LIMIT $2`, until, lim)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var res []TurboWindow
	for rows.Next() {
		var w TurboWindow
		if err := rows.Scan(&w.PlayerID, &w.ExpiresAt); err != nil {
			return nil, classify(err)
		}
		res = append(res, w)
	}
	return res, classify(rows.Err())
}

func (r *PlayerRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}
