package domain

import (
	"time"

	"github.com/google/uuid"
)

// Player is one row of the players table: the economy state of a single user.
type Player struct {
	ID         uuid.UUID `db:"id" json:"id"`
	TelegramID int64     `db:"telegram_id" json:"-"`
	Username   string    `db:"username" json:"username"`
	FirstName  string    `db:"first_name" json:"firstName"`
	LastName   string    `db:"last_name" json:"lastName"`

	Balance       int64 `db:"balance" json:"balance"`
	BalanceAmount int64 `db:"balance_amount" json:"balanceAmount"`

	Energy               int64     `db:"energy" json:"energy"`
	EnergyAmount         int64     `db:"energy_amount" json:"energyAmount"`
	EnergyRecoveryAmount int64     `db:"energy_recovery_amount" json:"energyRecoveryAmount"`
	MaxEnergy            int64     `db:"max_energy" json:"maxEnergy"`
	LastEnergyUpdate     time.Time `db:"last_energy_update" json:"lastEnergyUpdate"`

	MultitapLevel    int64 `db:"multitap_level" json:"multitapLevel"`
	MultitapPrice    int64 `db:"multitap_price" json:"multitapPrice"`
	EnergyLimitLevel int64 `db:"energy_limit_level" json:"energyLimitLevel"`
	EnergyLimitPrice int64 `db:"energy_limit_price" json:"energyLimitPrice"`

	QuantityEnergyBoost    int64     `db:"quantity_energy_boost" json:"quantityEnergyBoost"`
	MaxQuantityEnergyBoost int64     `db:"max_quantity_energy_boost" json:"maxQuantityEnergyBoost"`
	LastEnergyBoostUpdate  time.Time `db:"last_energy_boost_update" json:"lastEnergyBoostUpdate"`
	QuantityTurboBoost     int64     `db:"quantity_turbo_boost" json:"quantityTurboBoost"`
	MaxQuantityTurboBoost  int64     `db:"max_quantity_turbo_boost" json:"maxQuantityTurboBoost"`
	LastTurboBoostUpdate   time.Time `db:"last_turbo_boost_update" json:"lastTurboBoostUpdate"`

	IsTurboBoostActive bool `db:"is_turbo_boost_active" json:"isTurboBoostActive"`
	// TurboBoostExpiresAt is set exactly while IsTurboBoostActive is true.
	TurboBoostExpiresAt *time.Time `db:"turbo_boost_expires_at" json:"turboBoostExpiresAt,omitempty"`
	// Pre-boost yields, restored verbatim when the turbo window closes.
	OriginalBalanceAmount int64 `db:"original_balance_amount" json:"-"`
	OriginalEnergyAmount  int64 `db:"original_energy_amount" json:"-"`

	Version   int64     `db:"version" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Clone returns a deep copy, so callers can mutate a snapshot freely.
func (p *Player) Clone() *Player {
	cp := *p
	if p.TurboBoostExpiresAt != nil {
		t := *p.TurboBoostExpiresAt
		cp.TurboBoostExpiresAt = &t
	}
	return &cp
}

// TelegramProfile is the identity handed over by the auth collaborator on sign-in.
type TelegramProfile struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// TopPlayer is a leaderboard row.
type TopPlayer struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Balance   int64  `json:"balance"`
}
