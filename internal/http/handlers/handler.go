package handlers

import (
	"time"

	"telegram_tapper/internal/service"

	"github.com/google/uuid"
)

// Notifier pushes state changes to a player's open sockets.
type Notifier interface {
	PushEnergy(playerID uuid.UUID, energy int64)
	PushCoins(playerID uuid.UUID, balance int64)
}

type Handler struct {
	Players     *service.PlayerService
	Leaderboard *service.Leaderboard
	Notifier    Notifier
	Audit       *service.AuditService

	BotToken string
	DevMode  bool
	now      func() time.Time
}

func NewHandler(players *service.PlayerService, leaderboard *service.Leaderboard, notifier Notifier, botToken string, devMode bool) *Handler {
	return &Handler{
		Players:     players,
		Leaderboard: leaderboard,
		Notifier:    notifier,
		BotToken:    botToken,
		DevMode:     devMode,
		now:         time.Now,
	}
}

func (h *Handler) pushEnergy(id uuid.UUID, energy int64) {
	if h.Notifier != nil {
		h.Notifier.PushEnergy(id, energy)
	}
}

func (h *Handler) pushCoins(id uuid.UUID, balance int64) {
	if h.Notifier != nil {
		h.Notifier.PushCoins(id, balance)
	}
}
