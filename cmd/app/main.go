package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telegram_tapper/internal/boost"
	"telegram_tapper/internal/bot"
	"telegram_tapper/internal/clock"
	"telegram_tapper/internal/config"
	"telegram_tapper/internal/db"
	httpServer "telegram_tapper/internal/http"
	"telegram_tapper/internal/http/handlers"
	"telegram_tapper/internal/http/middleware"
	"telegram_tapper/internal/logger"
	"telegram_tapper/internal/repository"
	"telegram_tapper/internal/service"
	"telegram_tapper/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

var version = "dev"

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	service.InitJWT(cfg.JWTSecret, cfg.JWTTTL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store repository.PlayerStore
	var auditStore repository.AuditStore
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		logger.Warn("using in-memory player store; state is lost on restart")
		store = repository.NewMemoryPlayerStore(nil)
		auditStore = repository.NewMemoryAuditStore(nil)
	default:
		pool := db.Connect(cfg.DatabaseURL)
		defer pool.Close()
		store = repository.NewPlayerRepository(pool, cfg.StoreTimeout)
		auditStore = repository.NewAuditRepository(pool, cfg.StoreTimeout)
	}

	clk := clock.Real{}
	scheduler := boost.NewScheduler(store, clk, boost.Options{
		Timeout:       cfg.StoreTimeout,
		SweepInterval: cfg.TurboSweepInterval,
	})
	players := service.NewPlayerService(store, clk, scheduler, cfg.Seed)
	audit := service.NewAuditService(auditStore)
	players.SetAuditor(audit)
	leaderboard := service.NewLeaderboard(store, clk, cfg.TopCacheTTL)

	redisClient := middleware.InitRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	tapLimiter := middleware.NewLimiter(redisClient, "tap_rl", cfg.TapRateLimit, cfg.TapRateWindow)
	apiLimiter := middleware.NewLimiter(redisClient, "rl", cfg.APIRateLimit, cfg.APIRateWindow)

	extraChecks := map[string]handlers.Pinger{}
	if redisClient != nil {
		defer redisClient.Close()
		extraChecks["redis"] = handlers.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	hub := ws.NewHub(players, tapLimiter)

	if !cfg.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(), middleware.CORS(cfg.AllowedOrigin))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handler := handlers.NewHandler(players, leaderboard, hub, cfg.BotToken, cfg.DevMode)
	handler.Audit = audit

	httpServer.RegisterRoutes(r, httpServer.Deps{
		Handler:       handler,
		Health:        handlers.NewHealthHandler(store, version, extraChecks),
		Hub:           hub,
		APILimiter:    apiLimiter,
		TapLimiter:    tapLimiter,
		AllowedOrigin: cfg.AllowedOrigin,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server started", "port", cfg.AppPort, "store", cfg.StoreDriver, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return scheduler.Run(gctx)
	})

	if cfg.BotToken != "" && len(cfg.AdminIDs) > 0 {
		adminBot, err := bot.NewAdminBot(cfg.BotToken, bot.Deps{
			Players: players,
			Ranking: leaderboard,
			Sweeper: scheduler,
			History: audit,
		}, cfg.AdminIDs)
		if err != nil {
			logger.Warn("admin bot disabled", "error", err)
		} else {
			g.Go(func() error {
				adminBot.Start()
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				adminBot.Stop()
				return nil
			})
		}
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		hub.CloseAll()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("server exited")
}
