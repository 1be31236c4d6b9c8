package economy

import (
	"time"

	"telegram_tapper/internal/domain"
)

// ActivateTurbo opens a turbo window ending at now+TurboDuration. The active
// check comes first so a player with an open window and no charges left is
// told the window is open.
func ActivateTurbo(p *domain.Player, now time.Time) error {
	if p.IsTurboBoostActive {
		return domain.ErrBoostAlreadyActive
	}
	if p.QuantityTurboBoost <= 0 {
		return domain.ErrNoBoostsAvailable
	}

	p.QuantityTurboBoost--
	p.OriginalBalanceAmount = p.BalanceAmount
	p.OriginalEnergyAmount = p.EnergyAmount
	p.BalanceAmount *= TurboMultiplier
	p.EnergyAmount = 0
	p.IsTurboBoostActive = true

	expiresAt := now.Add(TurboDuration)
	p.TurboBoostExpiresAt = &expiresAt
	return nil
}

// TurboDue reports whether an open turbo window has reached its expiry.
func TurboDue(p *domain.Player, now time.Time) bool {
	if !p.IsTurboBoostActive {
		return false
	}
	// A flag without a deadline is a stuck window; close it.
	if p.TurboBoostExpiresAt == nil {
		return true
	}
	return !now.Before(*p.TurboBoostExpiresAt)
}

// RevertTurbo closes the turbo window, restoring the pre-boost yields.
// It reports false, changing nothing, when no window is open.
func RevertTurbo(p *domain.Player) bool {
	if !p.IsTurboBoostActive {
		return false
	}
	p.BalanceAmount = p.OriginalBalanceAmount
	p.EnergyAmount = p.OriginalEnergyAmount
	p.IsTurboBoostActive = false
	p.TurboBoostExpiresAt = nil
	return true
}

// ExpireTurbo reverts the turbo window if it is due.
func ExpireTurbo(p *domain.Player, now time.Time) bool {
	if !TurboDue(p, now) {
		return false
	}
	return RevertTurbo(p)
}
