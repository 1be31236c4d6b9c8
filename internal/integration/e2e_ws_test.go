package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"telegram_tapper/internal/boost"
	"telegram_tapper/internal/clock"
	"telegram_tapper/internal/domain"
	"telegram_tapper/internal/economy"
	httpserver "telegram_tapper/internal/http"
	"telegram_tapper/internal/http/handlers"
	"telegram_tapper/internal/http/middleware"
	"telegram_tapper/internal/migrations"
	"telegram_tapper/internal/repository"
	"telegram_tapper/internal/service"
	"telegram_tapper/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
)

type backend struct {
	players repository.PlayerStore
	audit   repository.AuditStore
}

// backends returns the memory stores and, if DATABASE_URL is set, Postgres.
func backends(t *testing.T) map[string]func(t *testing.T) backend {
	t.Helper()
	out := map[string]func(t *testing.T) backend{
		"memory": func(t *testing.T) backend {
			return backend{
				players: repository.NewMemoryPlayerStore(nil),
				audit:   repository.NewMemoryAuditStore(nil),
			}
		},
	}
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return out
	}
	out["postgres"] = func(t *testing.T) backend {
		pool, err := pgxpool.New(context.Background(), dsn)
		if err != nil {
			t.Fatalf("connect db: %v", err)
		}
		t.Cleanup(pool.Close)
		if _, err := migrations.Apply(context.Background(), pool); err != nil {
			t.Fatalf("migrate: %v", err)
		}
		return backend{
			players: repository.NewPlayerRepository(pool, 5*time.Second),
			audit:   repository.NewAuditRepository(pool, 5*time.Second),
		}
	}
	return out
}

type server struct {
	srv *httptest.Server
}

func startServer(t *testing.T, b backend) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	service.InitJWT("e2e-secret", time.Hour)

	clk := clock.Real{}
	sched := boost.NewScheduler(b.players, clk, boost.Options{Timeout: 5 * time.Second})
	players := service.NewPlayerService(b.players, clk, sched, economy.DefaultSeed())
	audit := service.NewAuditService(b.audit)
	players.SetAuditor(audit)
	hub := ws.NewHub(players, nil)

	h := handlers.NewHandler(players, service.NewLeaderboard(b.players, clk, 0), hub, "", true)
	h.Audit = audit

	r := gin.New()
	httpserver.RegisterRoutes(r, httpserver.Deps{
		Handler:    h,
		Health:     handlers.NewHealthHandler(b.players, "e2e", nil),
		Hub:        hub,
		APILimiter: middleware.NewMemoryLimiter(1000, time.Minute),
		TapLimiter: middleware.NewMemoryLimiter(1000, time.Minute),
	})

	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		hub.CloseAll()
		srv.Close()
	})
	return &server{srv: srv}
}

func (s *server) post(t *testing.T, path, token string, body any, into any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req, err := http.NewRequest(http.MethodPost, s.srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post %s: %v", path, err)
	}
	defer resp.Body.Close()
	if into != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return resp.StatusCode
}

func readEnvelope(t *testing.T, conn *websocket.Conn, wantType string, into any) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var env ws.Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read %s: %v", wantType, err)
	}
	if env.Type != wantType {
		t.Fatalf("got %s; want %s", env.Type, wantType)
	}
	if into != nil {
		if err := json.Unmarshal(env.Payload, into); err != nil {
			t.Fatalf("payload: %v", err)
		}
	}
}

func TestE2E_TapOverHTTPReachesSocket(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := startServer(t, open(t))

			var signIn struct {
				User        domain.Player `json:"user"`
				AccessToken string        `json:"accessToken"`
			}
			tgID := time.Now().UnixNano()
			if code := s.post(t, "/api/auth/sign-in/telegram", "", gin.H{"id": tgID, "firstName": "E2E"}, &signIn); code != http.StatusOK {
				t.Fatalf("sign in: %d", code)
			}

			url := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/ws?token=" + signIn.AccessToken
			conn, _, err := websocket.DefaultDialer.Dial(url, nil)
			if err != nil {
				t.Fatalf("dial: %v", err)
			}
			defer conn.Close()

			var energy ws.EnergyPayload
			readEnvelope(t, conn, ws.MsgUpdateEnergy, &energy)
			if energy.Energy != signIn.User.Energy {
				t.Fatalf("connect energy = %d; want %d", energy.Energy, signIn.User.Energy)
			}

			var tap service.TapResult
			if code := s.post(t, "/api/users/tap", signIn.AccessToken, nil, &tap); code != http.StatusOK {
				t.Fatalf("tap: %d", code)
			}

			var coins ws.CoinsPayload
			readEnvelope(t, conn, ws.MsgUpdateCoins, &coins)
			readEnvelope(t, conn, ws.MsgUpdateEnergy, &energy)
			if coins.Balance != tap.Balance || energy.Energy != tap.Energy {
				t.Fatalf("socket saw balance=%d energy=%d; http returned %+v", coins.Balance, energy.Energy, tap)
			}

			var turbo service.TurboBoostResult
			if code := s.post(t, "/api/users/use-turbo-boost", signIn.AccessToken, nil, &turbo); code != http.StatusOK {
				t.Fatalf("turbo: %d", code)
			}
			if code := s.post(t, "/api/users/use-turbo-boost", signIn.AccessToken, nil, nil); code != http.StatusConflict {
				t.Fatalf("second turbo: %d; want 409", code)
			}

			// a socket tap while turbo is on costs no energy
			before := tap.Energy
			msg, _ := json.Marshal(ws.Envelope{Type: ws.MsgChangeBalance})
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				t.Fatalf("write: %v", err)
			}
			readEnvelope(t, conn, ws.MsgUpdateCoins, &coins)
			readEnvelope(t, conn, ws.MsgUpdateEnergy, &energy)
			if energy.Energy != before || coins.Balance != tap.Balance+turbo.BalanceAmount {
				t.Fatalf("turbo tap: balance=%d energy=%d", coins.Balance, energy.Energy)
			}
		})
	}
}
