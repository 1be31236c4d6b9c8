package handlers

import (
	"net/http"
	"strconv"

	"telegram_tapper/internal/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func playerID(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.PlayerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
	return id, ok
}

func (h *Handler) Me(c *gin.Context) {
	id, ok := playerID(c)
	if !ok {
		return
	}
	p, err := h.Players.Player(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// TopUsers returns the richest players; ?limit= defaults to 1, capped at 100.
func (h *Handler) TopUsers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	top, err := h.Leaderboard.Top(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, top)
}

func (h *Handler) Tap(c *gin.Context) {
	id, ok := playerID(c)
	if !ok {
		return
	}
	res, err := h.Players.ChangeBalance(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	h.pushCoins(id, res.Balance)
	h.pushEnergy(id, res.Energy)
	c.JSON(http.StatusOK, res)
}

func (h *Handler) RecoverEnergy(c *gin.Context) {
	id, ok := playerID(c)
	if !ok {
		return
	}
	res, err := h.Players.RecoverEnergy(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	h.pushEnergy(id, res.Energy)
	c.JSON(http.StatusOK, res)
}

func (h *Handler) UseEnergyBoost(c *gin.Context) {
	id, ok := playerID(c)
	if !ok {
		return
	}
	res, err := h.Players.UseEnergyBoost(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	h.pushEnergy(id, res.Energy)
	c.JSON(http.StatusOK, res)
}

func (h *Handler) UseTurboBoost(c *gin.Context) {
	id, ok := playerID(c)
	if !ok {
		return
	}
	res, err := h.Players.UseTurboBoost(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) RestoreBoosts(c *gin.Context) {
	id, ok := playerID(c)
	if !ok {
		return
	}
	res, err := h.Players.RestoreBoosts(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) UpgradeMultitap(c *gin.Context) {
	id, ok := playerID(c)
	if !ok {
		return
	}
	res, err := h.Players.UpgradeMultitap(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	h.pushCoins(id, res.Balance)
	c.JSON(http.StatusOK, res)
}

func (h *Handler) UpgradeEnergyLimit(c *gin.Context) {
	id, ok := playerID(c)
	if !ok {
		return
	}
	res, err := h.Players.UpgradeEnergyLimit(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	h.pushCoins(id, res.Balance)
	c.JSON(http.StatusOK, res)
}

// History lists the player's recent spending and boost actions, newest first.
func (h *Handler) History(c *gin.Context) {
	id, ok := playerID(c)
	if !ok {
		return
	}
	if h.Audit == nil {
		c.JSON(http.StatusOK, []any{})
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	entries, err := h.Audit.History(c.Request.Context(), id, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}
