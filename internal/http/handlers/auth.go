package handlers

import (
	"net/http"

	"telegram_tapper/internal/domain"
	"telegram_tapper/internal/service"

	"github.com/gin-gonic/gin"
)

const maxInitDataLen = 4096

// SignInRequest carries Telegram WebApp init_data. In DEV_MODE the profile
// fields may be sent directly instead.
type SignInRequest struct {
	InitData  string `json:"init_data"`
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type SignInResponse struct {
	User        *domain.Player `json:"user"`
	AccessToken string         `json:"accessToken"`
}

func (h *Handler) SignInTelegram(c *gin.Context) {
	var req SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	profile, ok := h.profile(c, req)
	if !ok {
		return
	}

	player, err := h.Players.SignIn(c.Request.Context(), profile)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := service.GenerateJWT(player.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return
	}

	c.JSON(http.StatusOK, SignInResponse{User: player, AccessToken: token})
}

func (h *Handler) profile(c *gin.Context, req SignInRequest) (domain.TelegramProfile, bool) {
	if h.DevMode && req.InitData == "" {
		if req.ID == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "id required"})
			return domain.TelegramProfile{}, false
		}
		return domain.TelegramProfile{
			ID:        req.ID,
			Username:  req.Username,
			FirstName: req.FirstName,
			LastName:  req.LastName,
		}, true
	}

	if req.InitData == "" || len(req.InitData) > maxInitDataLen {
		c.JSON(http.StatusBadRequest, gin.H{"error": "init_data required"})
		return domain.TelegramProfile{}, false
	}
	profile, err := service.TelegramProfileFromInitData(req.InitData, h.BotToken, h.now())
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return domain.TelegramProfile{}, false
	}
	return profile, true
}
