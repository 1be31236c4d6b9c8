package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"telegram_tapper/internal/logger"

	"github.com/gorilla/websocket"
)

// Smoke test against a running server started with DEV_MODE=true: signs in
// over HTTP, opens the sync socket and taps a few times.
func main() {
	port := flag.String("port", envOr("APP_PORT", "8080"), "server port")
	tgID := flag.Int64("tg-id", 3001, "telegram id to sign in as")
	taps := flag.Int("taps", 3, "changeBalance messages to send")
	flag.Parse()

	// use 127.0.0.1 to prefer IPv4 (avoid resolving to [::1])
	base := "127.0.0.1:" + *port

	body, _ := json.Marshal(map[string]any{"id": *tgID, "firstName": "Smoke"})
	res, err := http.Post("http://"+base+"/api/auth/sign-in/telegram", "application/json", bytes.NewReader(body))
	if err != nil {
		logger.Fatal("sign in request", "error", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		logger.Fatal("sign in rejected", "status", res.StatusCode)
	}

	var signIn struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
		AccessToken string `json:"accessToken"`
	}
	if err := json.NewDecoder(res.Body).Decode(&signIn); err != nil {
		logger.Fatal("decode sign in", "error", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("ws://%s/ws?token=%s", base, signIn.AccessToken), nil)
	if err != nil {
		logger.Fatal("dial", "error", err)
	}
	defer conn.Close()

	readOne(conn)
	for i := 0; i < *taps; i++ {
		msg := fmt.Sprintf(`{"type":"changeBalance","payload":{"id":%q}}`, signIn.User.ID)
		if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			logger.Fatal("write", "error", err)
		}
		readOne(conn)
		readOne(conn)
	}

	fmt.Println("smoke test finished")
}

func readOne(conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		logger.Fatal("read", "error", err)
	}
	fmt.Printf("got: %s\n", msg)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
