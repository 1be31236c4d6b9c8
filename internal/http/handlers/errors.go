package handlers

import (
	"errors"
	"net/http"

	"telegram_tapper/internal/domain"
	"telegram_tapper/internal/logger"

	"github.com/gin-gonic/gin"
)

// statusFor maps command errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrInsufficientEnergy),
		errors.Is(err, domain.ErrNoBoostsAvailable):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrBoostAlreadyActive):
		return http.StatusConflict
	case errors.Is(err, domain.ErrTransientStore):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	switch status {
	case http.StatusServiceUnavailable:
		msg = domain.ErrTransientStore.Error()
	case http.StatusInternalServerError:
		logger.WithContext(c.Request.Context()).Error("request failed", "path", c.FullPath(), "error", err)
		msg = "internal error"
	}
	c.JSON(status, gin.H{"error": msg})
}
