package service

import (
	"context"
	"errors"
	"testing"

	"telegram_tapper/internal/domain"
	"telegram_tapper/internal/repository"

	"github.com/google/uuid"
)

type failingAuditStore struct{}

func (failingAuditStore) Create(context.Context, *domain.AuditEntry) error {
	return errors.New("audit store down")
}

func (failingAuditStore) ListByPlayer(context.Context, uuid.UUID, int) ([]*domain.AuditEntry, error) {
	return nil, errors.New("audit store down")
}

func TestAuditTrailRecordsCommittedActions(t *testing.T) {
	f := newFixture(t, false)
	audit := NewAuditService(repository.NewMemoryAuditStore(f.clock.Now))
	f.svc.SetAuditor(audit)
	ctx := context.Background()

	p := f.player(t, 1, func(p *domain.Player) { p.Balance = 150 })

	if _, err := f.svc.UpgradeMultitap(ctx, p.ID); err != nil {
		t.Fatalf("upgrade: %v", err)
	}
	// rejected: 50 left, next level costs 250
	if _, err := f.svc.UpgradeMultitap(ctx, p.ID); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("second upgrade err = %v", err)
	}
	if _, err := f.svc.UseEnergyBoost(ctx, p.ID); err != nil {
		t.Fatalf("energy boost: %v", err)
	}
	// quotas untouched, nothing to record
	if _, err := f.svc.RestoreBoosts(ctx, p.ID); err != nil {
		t.Fatalf("restore: %v", err)
	}

	entries, err := audit.History(ctx, p.ID, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	want := []string{
		domain.AuditActionUseEnergyBoost,
		domain.AuditActionUpgradeMultitap,
		domain.AuditActionSignUp,
	}
	if len(entries) != len(want) {
		t.Fatalf("entries = %d; want %d", len(entries), len(want))
	}
	for i, action := range want {
		if entries[i].Action != action {
			t.Fatalf("entry %d = %s; want %s", i, entries[i].Action, action)
		}
	}
	if price := entries[1].Details["price"]; price != int64(100) {
		t.Fatalf("multitap price = %v", price)
	}
}

func TestAuditHistoryLimit(t *testing.T) {
	f := newFixture(t, false)
	audit := NewAuditService(repository.NewMemoryAuditStore(f.clock.Now))
	ctx := context.Background()
	id := mustPlayerID(t)

	for i := 0; i < 5; i++ {
		audit.Log(ctx, id, domain.AuditActionUseTurboBoost, nil)
	}
	audit.Log(ctx, mustPlayerID(t), domain.AuditActionSignUp, nil)

	entries, err := audit.History(ctx, id, 3)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 3 || entries[0].ID != 5 {
		t.Fatalf("entries = %+v", entries)
	}
}

func TestAuditFailureDoesNotFailCommand(t *testing.T) {
	f := newFixture(t, false)
	f.svc.SetAuditor(NewAuditService(failingAuditStore{}))
	p := f.player(t, 1, nil)

	if _, err := f.svc.UseEnergyBoost(context.Background(), p.ID); err != nil {
		t.Fatalf("energy boost: %v", err)
	}
}
