package manager

import (
	"errors"

	"github.com/boardloop/turn-engine/internal/game/store"
)

// Errors returned by GameManager operations. They are wrapped with context,
// so callers should test them with errors.Is.
var (
	ErrNotFound          = store.ErrNotFound
	ErrNotYourTurn       = errors.New("not your turn")
	ErrWrongAction       = errors.New("action not allowed in current state")
	ErrAlreadyOwned      = errors.New("property already owned")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidInput      = errors.New("invalid input")
	ErrGameOver          = errors.New("game over")
)

var rejections = []error{
	ErrNotFound,
	ErrNotYourTurn,
	ErrWrongAction,
	ErrAlreadyOwned,
	ErrInsufficientFunds,
	ErrInvalidInput,
	ErrGameOver,
}

// IsRejection reports whether err is a game rule rejection rather than an infrastructure failure
func IsRejection(err error) bool {
	for _, target := range rejections {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
