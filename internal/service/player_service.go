package service

import (
	"context"
	"errors"
	"time"

	"telegram_tapper/internal/clock"
	"telegram_tapper/internal/domain"
	"telegram_tapper/internal/economy"
	"telegram_tapper/internal/logger"
	"telegram_tapper/internal/metrics"
	"telegram_tapper/internal/repository"

	"github.com/google/uuid"
)

// Operation names, used for metrics labels and logs.
const (
	OpSignIn             = "sign_in"
	OpChangeBalance      = "change_balance"
	OpRecoverEnergy      = "recover_energy"
	OpUseEnergyBoost     = "use_energy_boost"
	OpUseTurboBoost      = "use_turbo_boost"
	OpRestoreBoosts      = "restore_boosts"
	OpUpgradeMultitap    = "upgrade_multitap"
	OpUpgradeEnergyLimit = "upgrade_energy_limit"
)

// TurboScheduler arms the revert of a turbo window after it is committed.
type TurboScheduler interface {
	Schedule(playerID uuid.UUID, expiresAt time.Time)
}

type TapResult struct {
	Balance int64 `json:"balance"`
	Energy  int64 `json:"energy"`
}

type EnergyResult struct {
	Energy int64 `json:"energy"`
}

type EnergyBoostResult struct {
	QuantityEnergyBoost int64 `json:"quantityEnergyBoost"`
	Energy              int64 `json:"energy"`
}

type TurboBoostResult struct {
	QuantityTurboBoost int64     `json:"quantityTurboBoost"`
	BalanceAmount      int64     `json:"balanceAmount"`
	ExpiresAt          time.Time `json:"expiresAt"`
}

type RestoreBoostsResult struct {
	QuantityEnergyBoost int64 `json:"quantityEnergyBoost"`
	QuantityTurboBoost  int64 `json:"quantityTurboBoost"`
	EnergyBoostTimeLeft int64 `json:"energyBoostTimeLeft"`
	TurboBoostTimeLeft  int64 `json:"turboBoostTimeLeft"`
}

type MultitapResult struct {
	Balance       int64 `json:"balance"`
	MultitapLevel int64 `json:"multitapLevel"`
	MultitapPrice int64 `json:"multitapPrice"`
	BalanceAmount int64 `json:"balanceAmount"`
	EnergyAmount  int64 `json:"energyAmount"`
}

type EnergyLimitResult struct {
	Balance          int64 `json:"balance"`
	EnergyLimitLevel int64 `json:"energyLimitLevel"`
	EnergyLimitPrice int64 `json:"energyLimitPrice"`
	MaxEnergy        int64 `json:"maxEnergy"`
}

// PlayerService runs every player command as one atomic read-modify-write.
// An overdue turbo window is closed inside the same transaction before the
// command itself, so no command observes a stale boost.
type PlayerService struct {
	store     repository.PlayerStore
	clock     clock.Clock
	scheduler TurboScheduler
	seed      economy.Seed
	auditor   Auditor
}

func NewPlayerService(store repository.PlayerStore, clk clock.Clock, scheduler TurboScheduler, seed economy.Seed) *PlayerService {
	return &PlayerService{
		store:     store,
		clock:     clk,
		scheduler: scheduler,
		seed:      seed,
	}
}

// SetAuditor enables the audit trail for spending and boost actions.
func (s *PlayerService) SetAuditor(a Auditor) {
	s.auditor = a
}

func (s *PlayerService) audit(ctx context.Context, id uuid.UUID, action string, details map[string]any) {
	if s.auditor != nil {
		s.auditor.Log(ctx, id, action, details)
	}
}

// SignIn returns the player bound to the telegram profile, creating it on
// first sight. Existing players get their energy regenerated.
func (s *PlayerService) SignIn(ctx context.Context, profile domain.TelegramProfile) (*domain.Player, error) {
	p, err := s.store.GetByTelegramID(ctx, profile.ID)
	if errors.Is(err, domain.ErrNotFound) {
		p, err = s.store.Create(ctx, economy.NewPlayer(profile, s.seed, s.clock.Now()))
		if err == nil {
			observe(OpSignIn, nil)
			logger.Info("player created", "player_id", p.ID, "telegram_id", profile.ID)
			s.audit(ctx, p.ID, domain.AuditActionSignUp, map[string]any{"telegram_id": profile.ID})
			return p, nil
		}
		if !errors.Is(err, repository.ErrTelegramIDTaken) {
			observe(OpSignIn, err)
			return nil, err
		}
		// lost a concurrent first sign-in; use the winner's record
		p, err = s.store.GetByTelegramID(ctx, profile.ID)
	}
	if err != nil {
		observe(OpSignIn, err)
		return nil, err
	}

	p, err = s.update(ctx, OpSignIn, p.ID, func(p *domain.Player, now time.Time) error {
		economy.RegenerateEnergy(p, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Player returns the current snapshot, closing an overdue turbo window first.
func (s *PlayerService) Player(ctx context.Context, id uuid.UUID) (*domain.Player, error) {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !economy.TurboDue(p, s.clock.Now()) {
		return p, nil
	}
	return s.store.UpdateAtomic(ctx, id, func(p *domain.Player) error {
		s.expireTurbo(p, s.clock.Now())
		return nil
	})
}

// PlayerByTelegramID is Player keyed by the telegram account.
func (s *PlayerService) PlayerByTelegramID(ctx context.Context, telegramID int64) (*domain.Player, error) {
	p, err := s.store.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	return s.Player(ctx, p.ID)
}

// ChangeBalance is a tap.
func (s *PlayerService) ChangeBalance(ctx context.Context, id uuid.UUID) (*TapResult, error) {
	p, err := s.update(ctx, OpChangeBalance, id, func(p *domain.Player, _ time.Time) error {
		return economy.ApplyTap(p)
	})
	if err != nil {
		return nil, err
	}
	return &TapResult{Balance: p.Balance, Energy: p.Energy}, nil
}

func (s *PlayerService) RecoverEnergy(ctx context.Context, id uuid.UUID) (*EnergyResult, error) {
	p, err := s.update(ctx, OpRecoverEnergy, id, func(p *domain.Player, now time.Time) error {
		economy.RegenerateEnergy(p, now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &EnergyResult{Energy: p.Energy}, nil
}

func (s *PlayerService) UseEnergyBoost(ctx context.Context, id uuid.UUID) (*EnergyBoostResult, error) {
	p, err := s.update(ctx, OpUseEnergyBoost, id, func(p *domain.Player, _ time.Time) error {
		return economy.UseEnergyBoost(p)
	})
	if err != nil {
		return nil, err
	}
	s.audit(ctx, id, domain.AuditActionUseEnergyBoost, map[string]any{"energy": p.Energy, "left": p.QuantityEnergyBoost})
	return &EnergyBoostResult{QuantityEnergyBoost: p.QuantityEnergyBoost, Energy: p.Energy}, nil
}

// UseTurboBoost opens a turbo window and arms its revert once committed.
func (s *PlayerService) UseTurboBoost(ctx context.Context, id uuid.UUID) (*TurboBoostResult, error) {
	p, err := s.update(ctx, OpUseTurboBoost, id, func(p *domain.Player, now time.Time) error {
		return economy.ActivateTurbo(p, now)
	})
	if err != nil {
		return nil, err
	}
	expiresAt := *p.TurboBoostExpiresAt
	if s.scheduler != nil {
		s.scheduler.Schedule(id, expiresAt)
	}
	s.audit(ctx, id, domain.AuditActionUseTurboBoost, map[string]any{"expires_at": expiresAt, "left": p.QuantityTurboBoost})
	return &TurboBoostResult{
		QuantityTurboBoost: p.QuantityTurboBoost,
		BalanceAmount:      p.BalanceAmount,
		ExpiresAt:          expiresAt,
	}, nil
}

// RestoreBoosts refills daily quotas whose window has passed.
func (s *PlayerService) RestoreBoosts(ctx context.Context, id uuid.UUID) (*RestoreBoostsResult, error) {
	var st economy.QuotaStatus
	var energyBefore, turboBefore int64
	p, err := s.update(ctx, OpRestoreBoosts, id, func(p *domain.Player, now time.Time) error {
		energyBefore, turboBefore = p.QuantityEnergyBoost, p.QuantityTurboBoost
		st = economy.QuotaRefill(p, now, economy.QuotaWindow)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if p.QuantityEnergyBoost != energyBefore || p.QuantityTurboBoost != turboBefore {
		s.audit(ctx, id, domain.AuditActionRestoreBoosts, map[string]any{
			"energy_boosts": p.QuantityEnergyBoost,
			"turbo_boosts":  p.QuantityTurboBoost,
		})
	}
	return &RestoreBoostsResult{
		QuantityEnergyBoost: p.QuantityEnergyBoost,
		QuantityTurboBoost:  p.QuantityTurboBoost,
		EnergyBoostTimeLeft: st.EnergyBoostHoursLeft,
		TurboBoostTimeLeft:  st.TurboBoostHoursLeft,
	}, nil
}

func (s *PlayerService) UpgradeMultitap(ctx context.Context, id uuid.UUID) (*MultitapResult, error) {
	var paid int64
	p, err := s.update(ctx, OpUpgradeMultitap, id, func(p *domain.Player, _ time.Time) error {
		paid = p.MultitapPrice
		return economy.UpgradeMultitap(p)
	})
	if err != nil {
		return nil, err
	}
	s.audit(ctx, id, domain.AuditActionUpgradeMultitap, map[string]any{"price": paid, "level": p.MultitapLevel})
	return &MultitapResult{
		Balance:       p.Balance,
		MultitapLevel: p.MultitapLevel,
		MultitapPrice: p.MultitapPrice,
		BalanceAmount: p.BalanceAmount,
		EnergyAmount:  p.EnergyAmount,
	}, nil
}

func (s *PlayerService) UpgradeEnergyLimit(ctx context.Context, id uuid.UUID) (*EnergyLimitResult, error) {
	var paid int64
	p, err := s.update(ctx, OpUpgradeEnergyLimit, id, func(p *domain.Player, _ time.Time) error {
		paid = p.EnergyLimitPrice
		return economy.UpgradeEnergyLimit(p)
	})
	if err != nil {
		return nil, err
	}
	s.audit(ctx, id, domain.AuditActionUpgradeEnergyLimit, map[string]any{"price": paid, "level": p.EnergyLimitLevel})
	return &EnergyLimitResult{
		Balance:          p.Balance,
		EnergyLimitLevel: p.EnergyLimitLevel,
		EnergyLimitPrice: p.EnergyLimitPrice,
		MaxEnergy:        p.MaxEnergy,
	}, nil
}

// update runs fn inside one store transaction after closing any overdue
// turbo window, and records the outcome.
func (s *PlayerService) update(ctx context.Context, op string, id uuid.UUID, fn func(p *domain.Player, now time.Time) error) (*domain.Player, error) {
	p, err := s.store.UpdateAtomic(ctx, id, func(p *domain.Player) error {
		now := s.clock.Now()
		s.expireTurbo(p, now)
		return fn(p, now)
	})
	observe(op, err)
	if err != nil {
		if isFailure(err) {
			logger.Error("player command failed", "op", op, "player_id", id, "error", err)
		}
		return nil, err
	}
	return p, nil
}

func (s *PlayerService) expireTurbo(p *domain.Player, now time.Time) {
	if economy.ExpireTurbo(p, now) {
		metrics.TurboReverts.WithLabelValues("lazy").Inc()
	}
}

func observe(op string, err error) {
	metrics.Commands.WithLabelValues(op, Outcome(err)).Inc()
}

// Outcome is the metrics label for a command result.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrInsufficientEnergy),
		errors.Is(err, domain.ErrNoBoostsAvailable),
		errors.Is(err, domain.ErrBoostAlreadyActive):
		return "rejected"
	case errors.Is(err, domain.ErrTransientStore):
		return "transient"
	default:
		return "error"
	}
}

// isFailure reports errors that are not ordinary rule rejections.
func isFailure(err error) bool {
	o := Outcome(err)
	return o == "transient" || o == "error"
}
