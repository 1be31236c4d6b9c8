package ws

import (
	"context"
	"sync"
	"time"

	"telegram_tapper/internal/domain"
	"telegram_tapper/internal/logger"
	"telegram_tapper/internal/metrics"
	"telegram_tapper/internal/service"

	"github.com/google/uuid"
)

const defaultCommandTimeout = 5 * time.Second

// Commands is the part of the command layer reachable over the socket.
type Commands interface {
	Player(ctx context.Context, id uuid.UUID) (*domain.Player, error)
	ChangeBalance(ctx context.Context, id uuid.UUID) (*service.TapResult, error)
	RecoverEnergy(ctx context.Context, id uuid.UUID) (*service.EnergyResult, error)
}

// Limiter throttles taps per player.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, int64, error)
}

// Hub tracks the open connections of every player.
type Hub struct {
	commands       Commands
	tapLimiter     Limiter
	commandTimeout time.Duration

	mu      sync.RWMutex
	clients map[uuid.UUID]map[*Client]struct{}
}

func NewHub(commands Commands, tapLimiter Limiter) *Hub {
	return &Hub{
		commands:       commands,
		tapLimiter:     tapLimiter,
		commandTimeout: defaultCommandTimeout,
		clients:        make(map[uuid.UUID]map[*Client]struct{}),
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.PlayerID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.PlayerID] = set
	}
	set[c] = struct{}{}
	metrics.SocketConnections.Inc()
	logger.Debug("socket connected", "player_id", c.PlayerID, "connections", len(set))
}

// unregister removes c and closes its send queue. Safe to call twice.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.PlayerID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.PlayerID)
	}
	close(c.Send)
	metrics.SocketConnections.Dec()
	logger.Debug("socket disconnected", "player_id", c.PlayerID)
}

// Connections returns the number of open sockets of a player.
func (h *Hub) Connections(playerID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[playerID])
}

// PushEnergy sends updateEnergy to every socket of the player.
func (h *Hub) PushEnergy(playerID uuid.UUID, energy int64) {
	h.broadcast(playerID, MsgUpdateEnergy, EnergyPayload{Energy: energy})
}

// PushCoins sends updateCoins to every socket of the player.
func (h *Hub) PushCoins(playerID uuid.UUID, balance int64) {
	h.broadcast(playerID, MsgUpdateCoins, CoinsPayload{Balance: balance})
}

func (h *Hub) broadcast(playerID uuid.UUID, msgType string, payload any) {
	msg, err := encode(msgType, payload)
	if err != nil {
		logger.Error("encode socket message", "type", msgType, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[playerID] {
		c.enqueue(msg)
	}
}

// CloseAll closes every connection. Used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	var all []*Client
	for _, set := range h.clients {
		for c := range set {
			all = append(all, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range all {
		_ = c.Conn.Close()
	}
}
