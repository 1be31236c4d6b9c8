package service

import (
	"context"

	"telegram_tapper/internal/domain"
	"telegram_tapper/internal/logger"
	"telegram_tapper/internal/repository"

	"github.com/google/uuid"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// Auditor receives economy actions after they commit.
type Auditor interface {
	Log(ctx context.Context, playerID uuid.UUID, action string, details map[string]any)
}

// AuditService handles audit logging
type AuditService struct {
	store repository.AuditStore
}

func NewAuditService(store repository.AuditStore) *AuditService {
	return &AuditService{store: store}
}

// Log records an entry. Failures are logged and never reach the caller, the
// action it describes has already committed.
func (s *AuditService) Log(ctx context.Context, playerID uuid.UUID, action string, details map[string]any) {
	e := &domain.AuditEntry{
		PlayerID: playerID,
		Action:   action,
		Details:  details,
	}
	if err := s.store.Create(context.WithoutCancel(ctx), e); err != nil {
		logger.Error("failed to create audit log", "error", err, "action", action, "player_id", playerID)
	}
}

// History returns the newest entries of a player, limit clamped to
// [1, MaxHistoryLimit].
func (s *AuditService) History(ctx context.Context, playerID uuid.UUID, limit int) ([]*domain.AuditEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	return s.store.ListByPlayer(ctx, playerID, limit)
}
