package economy

import (
	"errors"
	"testing"
	"time"

	"telegram_tapper/internal/domain"
)

func TestTurboRoundTripRestoresExactValues(t *testing.T) {
	for _, amounts := range [][2]int64{{0, 0}, {1, 1}, {2, 3}, {17, 0}, {1 << 20, 9}} {
		p := &domain.Player{BalanceAmount: amounts[0], EnergyAmount: amounts[1], QuantityTurboBoost: 5}

		for i := 0; i < 3; i++ {
			if err := ActivateTurbo(p, t0); err != nil {
				t.Fatalf("activate %v #%d: %v", amounts, i, err)
			}
			if !RevertTurbo(p) {
				t.Fatalf("revert %v #%d reported no-op", amounts, i)
			}
		}
		if p.BalanceAmount != amounts[0] || p.EnergyAmount != amounts[1] {
			t.Fatalf("drift: got (%d,%d) want %v", p.BalanceAmount, p.EnergyAmount, amounts)
		}
		if p.IsTurboBoostActive || p.TurboBoostExpiresAt != nil {
			t.Fatalf("window still open after revert")
		}
	}
}

func TestActivateTurbo(t *testing.T) {
	p := &domain.Player{BalanceAmount: 2, EnergyAmount: 3, QuantityTurboBoost: 1}
	if err := ActivateTurbo(p, t0); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if p.BalanceAmount != 6 || p.EnergyAmount != 0 || !p.IsTurboBoostActive || p.QuantityTurboBoost != 0 {
		t.Fatalf("after activation: %+v", p)
	}
	if p.TurboBoostExpiresAt == nil || !p.TurboBoostExpiresAt.Equal(t0.Add(10*time.Second)) {
		t.Fatalf("expiresAt = %v", p.TurboBoostExpiresAt)
	}

	p.QuantityTurboBoost = 2
	before := p.Clone()
	if err := ActivateTurbo(p, t0); !errors.Is(err, domain.ErrBoostAlreadyActive) {
		t.Fatalf("err = %v; want already active", err)
	}
	if p.QuantityTurboBoost != before.QuantityTurboBoost || p.BalanceAmount != before.BalanceAmount {
		t.Fatalf("rejected activation mutated player")
	}
}

func TestActivateTurboWithoutCharges(t *testing.T) {
	p := &domain.Player{BalanceAmount: 2, EnergyAmount: 3}
	if err := ActivateTurbo(p, t0); !errors.Is(err, domain.ErrNoBoostsAvailable) {
		t.Fatalf("err = %v; want no boosts", err)
	}
	if p.IsTurboBoostActive || p.BalanceAmount != 2 || p.EnergyAmount != 3 {
		t.Fatalf("rejected activation mutated player: %+v", p)
	}
}

func TestExpireTurbo(t *testing.T) {
	p := &domain.Player{BalanceAmount: 2, EnergyAmount: 3, QuantityTurboBoost: 1}
	_ = ActivateTurbo(p, t0)

	if ExpireTurbo(p, t0.Add(9999*time.Millisecond)) {
		t.Fatalf("expired before deadline")
	}
	if !ExpireTurbo(p, t0.Add(10*time.Second)) {
		t.Fatalf("did not expire at deadline")
	}
	if ExpireTurbo(p, t0.Add(time.Hour)) {
		t.Fatalf("second expiry should be a no-op")
	}
	if p.BalanceAmount != 2 || p.EnergyAmount != 3 {
		t.Fatalf("got (%d,%d)", p.BalanceAmount, p.EnergyAmount)
	}
}

func TestUpgradeMultitapDuringTurboSurvivesRevert(t *testing.T) {
	p := &domain.Player{Balance: 100, MultitapPrice: 100, BalanceAmount: 2, EnergyAmount: 3, QuantityTurboBoost: 1}
	_ = ActivateTurbo(p, t0)

	if err := UpgradeMultitap(p); err != nil {
		t.Fatalf("upgrade: %v", err)
	}
	if p.BalanceAmount != 9 || p.EnergyAmount != 0 {
		t.Fatalf("boosted yields = (%d,%d); want (9,0)", p.BalanceAmount, p.EnergyAmount)
	}
	RevertTurbo(p)
	if p.BalanceAmount != 3 || p.EnergyAmount != 4 {
		t.Fatalf("reverted yields = (%d,%d); want (3,4)", p.BalanceAmount, p.EnergyAmount)
	}
}
