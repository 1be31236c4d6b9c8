package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditEntry records a spending or boost action of a player.
type AuditEntry struct {
	ID        int64          `db:"id" json:"id"`
	PlayerID  uuid.UUID      `db:"player_id" json:"-"`
	Action    string         `db:"action" json:"action"`
	Details   map[string]any `db:"details" json:"details,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
}

// Audit actions
const (
	AuditActionSignUp             = "sign_up"
	AuditActionUpgradeMultitap    = "upgrade_multitap"
	AuditActionUpgradeEnergyLimit = "upgrade_energy_limit"
	AuditActionUseEnergyBoost     = "use_energy_boost"
	AuditActionUseTurboBoost      = "use_turbo_boost"
	AuditActionRestoreBoosts      = "restore_boosts"
)
