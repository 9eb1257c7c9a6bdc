// services/errors.go
package services

import (
	"errors"
	"fmt"

	"game-session-engine/rules"
)

// Failures returned to the HTTP edge. Each maps to its own status code there.
var (
	ErrInsufficientCredit = errors.New("insufficient credit")
	ErrSessionNotActive   = errors.New("session is not active")
	ErrIllegalMove        = rules.ErrIllegalMove
	ErrCorruptState       = rules.ErrCorruptState
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")

	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrInvalidDifficulty = errors.New("unknown difficulty")
	ErrNotYourTurn       = fmt.Errorf("%w: not the player's turn", rules.ErrIllegalMove)
)
