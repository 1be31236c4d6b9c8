package http

import (
	"telegram_tapper/internal/http/handlers"
	"telegram_tapper/internal/http/middleware"
	"telegram_tapper/internal/ws"

	"github.com/gin-gonic/gin"
)

type Deps struct {
	Handler *handlers.Handler
	Health  *handlers.HealthHandler
	Hub     *ws.Hub

	APILimiter    middleware.Limiter
	TapLimiter    middleware.Limiter
	AllowedOrigin string
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	h := d.Handler

	// Health checks (no rate limiting)
	r.GET("/health", d.Health.Health)
	r.GET("/healthz", d.Health.Liveness)
	r.GET("/readyz", d.Health.Readiness)

	api := r.Group("/api")
	api.Use(middleware.RateLimit(d.APILimiter))
	api.GET("/health", d.Health.Health)

	api.POST("/auth/sign-in/telegram", h.SignInTelegram)

	api.GET("/users/top", h.TopUsers)

	users := api.Group("/users")
	users.Use(middleware.JWT())
	{
		users.GET("/me", h.Me)
		users.GET("/me/history", h.History)
		users.POST("/tap", middleware.TapRateLimit(d.TapLimiter), h.Tap)
		users.POST("/recover-energy", h.RecoverEnergy)
		users.POST("/use-energy-boost", h.UseEnergyBoost)
		users.POST("/use-turbo-boost", h.UseTurboBoost)
		users.POST("/restore-boosts", h.RestoreBoosts)
		users.POST("/upgrade-multitap", h.UpgradeMultitap)
		users.POST("/upgrade-energy-limit", h.UpgradeEnergyLimit)
	}

	// Real-time sync
	r.GET("/ws", ws.HandleWS(d.Hub, d.AllowedOrigin))
}
