// Package economy holds the pure player economy rules: energy regeneration,
// taps, upgrade pricing, boosts and the daily boost quota. Functions mutate
// the snapshot they are handed and never perform I/O; persistence is the
// caller's job.
package economy

import (
	"math"
	"time"

	"telegram_tapper/internal/domain"
)

const (
	// EnergyTick is the regeneration step: one energyRecoveryAmount per tick.
	EnergyTick = 2 * time.Second

	TurboDuration   = 10 * time.Second
	TurboMultiplier = 3

	QuotaWindow = 24 * time.Hour
)

// Coefficient is a rational growth factor, kept as integers so that
// floor(price * coefficient) is exact.
type Coefficient struct {
	Num int64
	Den int64
}

var (
	MultitapPriceCoefficient    = Coefficient{Num: 5, Den: 2}   // 2.5
	EnergyLimitPriceCoefficient = Coefficient{Num: 3, Den: 2}   // 1.5
	MaxEnergyGrowth             = Coefficient{Num: 11, Den: 10} // 1.1
)

// Apply returns floor(v * c) for v >= 0, saturating at math.MaxInt64.
func (c Coefficient) Apply(v int64) int64 {
	if v <= 0 {
		return 0
	}
	// floor(v*n/d) = (v/d)*n + floor((v%d)*n/d), without the v*n overflow
	q, r := v/c.Den, v%c.Den
	frac := r * c.Num / c.Den
	if q > (math.MaxInt64-frac)/c.Num {
		return math.MaxInt64
	}
	return q*c.Num + frac
}

// PriceAfterUpgrade returns the next price of an upgrade.
func PriceAfterUpgrade(price int64, c Coefficient) int64 {
	return c.Apply(price)
}

func elapsedMillis(from, now time.Time) int64 {
	ms := now.Sub(from).Milliseconds()
	if ms < 0 {
		return 0
	}
	return ms
}

// RegenerateEnergy credits whole elapsed ticks since LastEnergyUpdate, capped
// at MaxEnergy, and moves the anchor to now. Energy never decreases.
func RegenerateEnergy(p *domain.Player, now time.Time) {
	ticks := elapsedMillis(p.LastEnergyUpdate, now) / EnergyTick.Milliseconds()
	recovered := ticks * p.EnergyRecoveryAmount

	energy := p.Energy
	if recovered > 0 && energy < p.MaxEnergy {
		energy += recovered
		if energy > p.MaxEnergy {
			energy = p.MaxEnergy
		}
	}
	p.Energy = energy
	p.LastEnergyUpdate = now
}

// ApplyTap spends energy for coins.
func ApplyTap(p *domain.Player) error {
	if p.Energy <= 0 {
		return domain.ErrInsufficientEnergy
	}
	p.Energy -= p.EnergyAmount
	if p.Energy < 0 {
		p.Energy = 0
	}
	p.Balance += p.BalanceAmount
	return nil
}

// UpgradeMultitap buys the next multitap level. During a turbo window the
// increment also lands on the saved pre-boost yields so the revert keeps it.
func UpgradeMultitap(p *domain.Player) error {
	if p.Balance < p.MultitapPrice {
		return domain.ErrInsufficientFunds
	}
	p.Balance -= p.MultitapPrice
	p.MultitapLevel++
	p.MultitapPrice = PriceAfterUpgrade(p.MultitapPrice, MultitapPriceCoefficient)

	if p.IsTurboBoostActive {
		p.OriginalBalanceAmount++
		p.OriginalEnergyAmount++
		p.BalanceAmount = p.OriginalBalanceAmount * TurboMultiplier
		return nil
	}
	p.BalanceAmount++
	p.EnergyAmount++
	return nil
}

// UpgradeEnergyLimit buys the next energy limit level.
func UpgradeEnergyLimit(p *domain.Player) error {
	if p.Balance < p.EnergyLimitPrice {
		return domain.ErrInsufficientFunds
	}
	p.Balance -= p.EnergyLimitPrice
	p.EnergyLimitLevel++
	p.EnergyLimitPrice = PriceAfterUpgrade(p.EnergyLimitPrice, EnergyLimitPriceCoefficient)
	p.MaxEnergy = MaxEnergyGrowth.Apply(p.MaxEnergy)
	return nil
}

// UseEnergyBoost refills energy to the cap.
func UseEnergyBoost(p *domain.Player) error {
	if p.QuantityEnergyBoost <= 0 {
		return domain.ErrNoBoostsAvailable
	}
	p.Energy = p.MaxEnergy
	p.QuantityEnergyBoost--
	return nil
}

// QuotaStatus is the outcome of a quota refill: whole hours until each boost
// kind refills again, 0 when it was refilled by this call.
type QuotaStatus struct {
	EnergyBoostHoursLeft int64
	TurboBoostHoursLeft  int64
}

// QuotaRefill resets each boost quantity to its maximum once window has
// passed since its anchor. Kinds are handled independently.
func QuotaRefill(p *domain.Player, now time.Time, window time.Duration) QuotaStatus {
	var st QuotaStatus
	st.EnergyBoostHoursLeft = refill(&p.QuantityEnergyBoost, p.MaxQuantityEnergyBoost, &p.LastEnergyBoostUpdate, now, window)
	st.TurboBoostHoursLeft = refill(&p.QuantityTurboBoost, p.MaxQuantityTurboBoost, &p.LastTurboBoostUpdate, now, window)
	return st
}

func refill(quantity *int64, max int64, anchor *time.Time, now time.Time, window time.Duration) int64 {
	windowMs := window.Milliseconds()
	elapsed := elapsedMillis(*anchor, now)
	if elapsed >= windowMs {
		*quantity = max
		*anchor = now
		return 0
	}
	left := (windowMs - elapsed) / time.Hour.Milliseconds()
	if left < 0 {
		return 0
	}
	return left
}
