package service

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the service layer. Callers use errors.Is to
// map them onto their own error surfaces.
var (
	ErrInvalidAmount          = errors.New("amount must be positive with at most 2 decimal places")
	ErrUnknownTransactionType = errors.New("unknown transaction type")
	ErrInsufficientBalance    = errors.New("insufficient wallet balance")
	ErrShopNotFound           = errors.New("shop not found")

	ErrGameNotFound            = errors.New("game not found")
	ErrGameNotPending          = errors.New("game is not pending")
	ErrGameNotActive           = errors.New("game is not active")
	ErrGameAlreadyFinished     = errors.New("game is already finished")
	ErrNoCartellas             = errors.New("at least one cartella is required")
	ErrEmptyCartella           = errors.New("cartella has no numbers")
	ErrTooManyCartellas        = errors.New("cartella count exceeds game capacity")
	ErrCartellaIndexOutOfRange = errors.New("cartella index out of range")
	ErrInvalidPattern          = errors.New("invalid claim pattern")
	ErrNoWinners               = errors.New("completing a game requires at least one winner")
	ErrGameCodeExhausted       = errors.New("could not generate a unique game code")

	ErrSessionNotFound        = errors.New("session not found")
	ErrSessionNotWaiting      = errors.New("session is not accepting changes")
	ErrSessionFull            = errors.New("session already has four players")
	ErrPlayerNotFound         = errors.New("player not found in session")
	ErrPlayerPaid             = errors.New("player has already paid")
	ErrPlayerNameRequired     = errors.New("player name is required")
	ErrInvalidCartellaNumbers = errors.New("invalid cartella number selection")
	ErrBetBelowMinimum        = errors.New("bet per cartella is below the session minimum")
	ErrSessionCartellaCap     = errors.New("session cartella capacity exceeded")
)

// DuplicateCartellaError reports cartella numbers already reserved by
// another player in the same session.
type DuplicateCartellaError struct {
	Numbers []int
}

func (e *DuplicateCartellaError) Error() string {
	return fmt.Sprintf("cartella numbers already taken: %v", e.Numbers)
}
