package economy

import (
	"time"

	"telegram_tapper/internal/domain"

	"github.com/google/uuid"
)

// Seed holds the starting stats of a new player.
type Seed struct {
	BalanceAmount          int64 `toml:"balance_amount"`
	EnergyAmount           int64 `toml:"energy_amount"`
	EnergyRecoveryAmount   int64 `toml:"energy_recovery_amount"`
	MaxEnergy              int64 `toml:"max_energy"`
	MultitapPrice          int64 `toml:"multitap_price"`
	EnergyLimitPrice       int64 `toml:"energy_limit_price"`
	MaxQuantityEnergyBoost int64 `toml:"max_quantity_energy_boost"`
	MaxQuantityTurboBoost  int64 `toml:"max_quantity_turbo_boost"`
}

// DefaultSeed is used when no economy file is configured.
func DefaultSeed() Seed {
	return Seed{
		BalanceAmount:          1,
		EnergyAmount:           1,
		EnergyRecoveryAmount:   1,
		MaxEnergy:              1000,
		MultitapPrice:          100,
		EnergyLimitPrice:       100,
		MaxQuantityEnergyBoost: 3,
		MaxQuantityTurboBoost:  3,
	}
}

// NewPlayer builds a fresh player: level 0 upgrades, full energy and full
// boost quotas.
func NewPlayer(profile domain.TelegramProfile, s Seed, now time.Time) *domain.Player {
	return &domain.Player{
		ID:         uuid.New(),
		TelegramID: profile.ID,
		Username:   profile.Username,
		FirstName:  profile.FirstName,
		LastName:   profile.LastName,

		BalanceAmount:        s.BalanceAmount,
		Energy:               s.MaxEnergy,
		EnergyAmount:         s.EnergyAmount,
		EnergyRecoveryAmount: s.EnergyRecoveryAmount,
		MaxEnergy:            s.MaxEnergy,
		LastEnergyUpdate:     now,

		MultitapPrice:    s.MultitapPrice,
		EnergyLimitPrice: s.EnergyLimitPrice,

		QuantityEnergyBoost:    s.MaxQuantityEnergyBoost,
		MaxQuantityEnergyBoost: s.MaxQuantityEnergyBoost,
		LastEnergyBoostUpdate:  now,
		QuantityTurboBoost:     s.MaxQuantityTurboBoost,
		MaxQuantityTurboBoost:  s.MaxQuantityTurboBoost,
		LastTurboBoostUpdate:   now,

		OriginalBalanceAmount: s.BalanceAmount,
		OriginalEnergyAmount:  s.EnergyAmount,

		CreatedAt: now,
		UpdatedAt: now,
	}
}
