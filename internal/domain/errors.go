package domain

import "errors"

// Error kinds surfaced by the command layer. Messages are shown to players
// verbatim (HTTP error body, socket error event).
var (
	ErrNotFound           = errors.New("player not found")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientEnergy = errors.New("energy is 0, cannot change balance")
	ErrNoBoostsAvailable  = errors.New("no boosts available")
	ErrBoostAlreadyActive = errors.New("turbo boost is already active")
	ErrTransientStore     = errors.New("store temporarily unavailable")
)
