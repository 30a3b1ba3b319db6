package manager

import (
	"github.com/boardloop/turn-engine/internal/game/board"
	"github.com/boardloop/turn-engine/internal/game/models"
)

// Bankruptcy is reported on a successful response when a payment eliminated the player
type Bankruptcy struct {
	Bankrupt           bool   `json:"bankrupt"`
	EliminatedPlayerID *int64 `json:"eliminatedPlayerId,omitempty"`
	RemainingPlayers   int    `json:"remainingPlayers,omitempty"`
	GameOver           bool   `json:"gameOver"`
	WinnerID           *int64 `json:"winnerId,omitempty"`
}

func bankruptcyFrom(e *EliminationResult) Bankruptcy {
	return Bankruptcy{
		Bankrupt:           true,
		EliminatedPlayerID: models.Int64Ptr(e.PlayerID),
		RemainingPlayers:   e.RemainingPlayers,
		GameOver:           e.GameOver,
		WinnerID:           e.WinnerID,
	}
}

// RollResult is returned by Roll
type RollResult struct {
	Dice             [2]int                `json:"dice"`
	Steps            int                   `json:"steps"`
	From             int                   `json:"from"`
	Position         int                   `json:"position"`
	PassedGo         bool                  `json:"passedGo"`
	ReleasedFromJail bool                  `json:"releasedFromJail,omitempty"`
	UsedJailFreeCard bool                  `json:"usedJailFreeCard,omitempty"`
	Message          string                `json:"message"`
	RequiredAction   models.RequiredAction `json:"requiredAction"`
	Tile             *board.Resolution     `json:"tile,omitempty"`
	Player           *models.Player        `json:"player"`
	NextPlayerID     *int64                `json:"nextPlayerId,omitempty"`
	TurnNumber       int                   `json:"turnNumber"`
}

// BuyResult is returned by BuyProperty
type BuyResult struct {
	Player         *models.Player        `json:"player"`
	Property       *models.Property      `json:"property"`
	NextPlayerID   int64                 `json:"nextPlayerId"`
	TurnNumber     int                   `json:"turnNumber"`
	RequiredAction models.RequiredAction `json:"requiredAction"`
}

// RentResult is returned by PayRent
type RentResult struct {
	Bankruptcy
	Payer          *models.Player        `json:"payer,omitempty"`
	Owner          *models.Player        `json:"owner"`
	Property       *models.Property      `json:"property"`
	Amount         int                   `json:"amount"`
	NextPlayerID   *int64                `json:"nextPlayerId,omitempty"`
	TurnNumber     int                   `json:"turnNumber"`
	RequiredAction models.RequiredAction `json:"requiredAction"`
}

// TaxResult is returned by PayTax
type TaxResult struct {
	Bankruptcy
	Player         *models.Player        `json:"player,omitempty"`
	Position       int                   `json:"position"`
	Amount         int                   `json:"amount"`
	NextPlayerID   *int64                `json:"nextPlayerId,omitempty"`
	TurnNumber     int                   `json:"turnNumber"`
	RequiredAction models.RequiredAction `json:"requiredAction"`
}

// JailResult is returned by GoToJail
type JailResult struct {
	Player         *models.Player        `json:"player"`
	RequiredAction models.RequiredAction `json:"requiredAction"`
}

// CardResult is returned by DrawCard
type CardResult struct {
	Bankruptcy
	Card           *models.Card          `json:"card"`
	Player         *models.Player        `json:"player,omitempty"`
	PassedGo       bool                  `json:"passedGo"`
	Message        string                `json:"message"`
	Tile           *board.Resolution     `json:"tile,omitempty"`
	RequiredAction models.RequiredAction `json:"requiredAction"`
}

// TurnResult is returned by NextTurn
type TurnResult struct {
	CurrentPlayerID    int64                 `json:"currentPlayerId"`
	CurrentPlayerIndex int                   `json:"currentPlayerIndex"`
	TurnNumber         int                   `json:"turnNumber"`
	RequiredAction     models.RequiredAction `json:"requiredAction"`
}

// EliminationResult is returned by Eliminate
type EliminationResult struct {
	PlayerID           int64   `json:"playerId"`
	Eliminated         bool    `json:"eliminated"`
	ReleasedProperties []int64 `json:"releasedProperties,omitempty"`
	RemainingPlayers   int     `json:"remainingPlayers"`
	GameOver           bool    `json:"gameOver"`
	WinnerID           *int64  `json:"winnerId,omitempty"`
}

// StateView is the game state as seen by clients
type StateView struct {
	*models.GameState
	CurrentPlayerID *int64 `json:"currentPlayerId,omitempty"`
	PlayerCount     int    `json:"playerCount"`
}
