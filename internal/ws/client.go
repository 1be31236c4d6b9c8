package ws

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"telegram_tapper/internal/domain"
	"telegram_tapper/internal/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 25 * time.Second

	sendBuffer = 256
	readLimit  = 4096
)

var errWrongPlayer = errors.New("payload id does not match the authenticated player")

type Client struct {
	PlayerID uuid.UUID
	Conn     *websocket.Conn
	Send     chan []byte

	Hub  *Hub
	Done chan struct{}
}

func NewClient(playerID uuid.UUID, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		PlayerID: playerID,
		Conn:     conn,
		Send:     make(chan []byte, sendBuffer),
		Hub:      hub,
		Done:     make(chan struct{}),
	}
}

// Run serves the connection until it closes.
func (c *Client) Run() {
	go c.writePump()
	c.Hub.register(c)

	c.pushEnergy()
	c.readPump()
}

func (c *Client) pushEnergy() {
	ctx, cancel := c.commandContext()
	defer cancel()

	p, err := c.Hub.commands.Player(ctx, c.PlayerID)
	if err != nil {
		c.sendError(err)
		return
	}
	c.send(MsgUpdateEnergy, EnergyPayload{Energy: p.Energy})
}

//read
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister(c)
		_ = c.Conn.Close()
		close(c.Done)
	}()

	c.Conn.SetReadLimit(readLimit)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("socket read error", "player_id", c.PlayerID, "error", err)
			}
			return
		}
		c.handle(msg)
	}
}

func (c *Client) handle(msg []byte) {
	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		c.send(MsgError, ErrorPayload{Message: "malformed message"})
		return
	}

	switch env.Type {
	case MsgPing:
		c.send(MsgPong, nil)
	case MsgChangeBalance:
		if err := c.checkPayload(env.Payload); err != nil {
			c.sendError(err)
			return
		}
		c.changeBalance()
	case MsgRecoverEnergy:
		if err := c.checkPayload(env.Payload); err != nil {
			c.sendError(err)
			return
		}
		c.recoverEnergy()
	default:
		c.send(MsgError, ErrorPayload{Message: "unknown message type: " + env.Type})
	}
}

// checkPayload accepts an empty id or the authenticated player's own id.
func (c *Client) checkPayload(raw json.RawMessage) error {
	if len(raw) == 0 {
		return nil
	}
	var p PlayerPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return errors.New("malformed payload")
	}
	if p.ID != "" && p.ID != c.PlayerID.String() {
		return errWrongPlayer
	}
	return nil
}

func (c *Client) changeBalance() {
	ctx, cancel := c.commandContext()
	defer cancel()

	if c.Hub.tapLimiter != nil {
		allowed, _, err := c.Hub.tapLimiter.Allow(ctx, c.PlayerID.String())
		if err == nil && !allowed {
			c.send(MsgError, ErrorPayload{Message: "rate limit exceeded"})
			return
		}
	}

	res, err := c.Hub.commands.ChangeBalance(ctx, c.PlayerID)
	if err != nil {
		c.sendError(err)
		return
	}
	c.send(MsgUpdateCoins, CoinsPayload{Balance: res.Balance})
	c.send(MsgUpdateEnergy, EnergyPayload{Energy: res.Energy})
}

func (c *Client) recoverEnergy() {
	ctx, cancel := c.commandContext()
	defer cancel()

	res, err := c.Hub.commands.RecoverEnergy(ctx, c.PlayerID)
	if err != nil {
		c.sendError(err)
		return
	}
	c.send(MsgUpdateEnergy, EnergyPayload{Energy: res.Energy})
}

func (c *Client) commandContext() (context.Context, context.CancelFunc) {
	ctx := logger.NewContext(context.Background(), "player_id", c.PlayerID)
	return context.WithTimeout(ctx, c.Hub.commandTimeout)
}

func (c *Client) sendError(err error) {
	msg := err.Error()
	if errors.Is(err, domain.ErrTransientStore) {
		msg = domain.ErrTransientStore.Error()
	}
	c.send(MsgError, ErrorPayload{Message: msg})
}

// send queues a message from the connection's own goroutine.
func (c *Client) send(msgType string, payload any) {
	msg, err := encode(msgType, payload)
	if err != nil {
		logger.Error("encode socket message", "type", msgType, "error", err)
		return
	}
	c.enqueue(msg)
}

// enqueue never blocks; a client that cannot keep up loses messages.
func (c *Client) enqueue(msg []byte) {
	select {
	case c.Send <- msg:
	default:
		logger.Warn("socket send buffer full, dropping message", "player_id", c.PlayerID)
	}
}

//write
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Debug("socket write error", "player_id", c.PlayerID, "error", err)
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
