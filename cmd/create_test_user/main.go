package main

import (
	"context"
	"flag"
	"fmt"

	"telegram_tapper/internal/clock"
	"telegram_tapper/internal/config"
	"telegram_tapper/internal/db"
	"telegram_tapper/internal/domain"
	"telegram_tapper/internal/logger"
	"telegram_tapper/internal/repository"
	"telegram_tapper/internal/service"
)

// Signs in (creating if needed) a player in the configured Postgres store
// and prints a bearer token for it.
func main() {
	tgID := flag.Int64("tg-id", 1234567890, "telegram id of the test player")
	firstName := flag.String("first-name", "Tester", "first name")
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	if cfg.StoreDriver != config.StoreDriverPostgres {
		logger.Fatal("create_test_user needs STORE_DRIVER=postgres")
	}
	service.InitJWT(cfg.JWTSecret, cfg.JWTTTL)

	pool := db.Connect(cfg.DatabaseURL)
	defer pool.Close()

	store := repository.NewPlayerRepository(pool, cfg.StoreTimeout)
	players := service.NewPlayerService(store, clock.Real{}, nil, cfg.Seed)

	p, err := players.SignIn(context.Background(), domain.TelegramProfile{
		ID:        *tgID,
		Username:  "testuser",
		FirstName: *firstName,
	})
	if err != nil {
		logger.Fatal("sign in failed", "error", err)
	}
	logger.Info("player ready", "player_id", p.ID, "balance", p.Balance, "energy", p.Energy)

	token, err := service.GenerateJWT(p.ID)
	if err != nil {
		logger.Fatal("failed to generate token", "error", err)
	}
	fmt.Println(token)
}
