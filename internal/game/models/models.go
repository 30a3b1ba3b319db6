package models

import (
	"time"
)

// BoardSize is the number of tiles on the board loop
const BoardSize = 40

// Player represents a player in the game
type Player struct {
	ID       int64  `bson:"_id" json:"id"`
	Name     string `bson:"name" json:"name"`
	Position int    `bson:"position" json:"position"`
	// Cash may go negative between a card debit and elimination
	Cash            int       `bson:"cash" json:"cash"`
	InJail          bool      `bson:"inJail" json:"inJail"`
	HasJailFreeCard bool      `bson:"hasJailFreeCard" json:"hasJailFreeCard"`
	JoinedAt        time.Time `bson:"joinedAt" json:"joinedAt"`
}

// Property represents a purchasable tile on the game board
type Property struct {
	ID       int64        `bson:"_id" json:"id"`
	Position int          `bson:"position" json:"position"`
	Name     string       `bson:"name" json:"name"`
	Group    string       `bson:"group" json:"group"`
	Type     PropertyType `bson:"type" json:"type"`
	Price    int          `bson:"price" json:"price"`
	Rent     int          `bson:"rent" json:"rent"`
	// OwnerID is a weak reference to a Player; nil when unowned
	OwnerID *int64 `bson:"ownerId,omitempty" json:"ownerId,omitempty"`
}

// IsOwned reports whether the property has an owner
func (p *Property) IsOwned() bool {
	return p.OwnerID != nil
}

// OwnedBy reports whether the property belongs to the given player
func (p *Property) OwnedBy(playerID int64) bool {
	return p.OwnerID != nil && *p.OwnerID == playerID
}

// Card represents a chance or community chest card
type Card struct {
	ID       int64        `bson:"_id" json:"id"`
	Category CardCategory `bson:"category" json:"category"`
	Text     string       `bson:"text" json:"text"`
	Effect   CardEffect   `bson:"effect" json:"effect"`
}

// CardEffect describes what a card does when drawn
type CardEffect struct {
	Kind EffectKind `bson:"kind" json:"kind"`
	// Amount is a money delta, an absolute target position or a relative offset depending on Kind
	Amount int `bson:"amount" json:"amount"`
}

// GameState is the singleton turn record
type GameState struct {
	ID                 string         `bson:"_id" json:"-"`
	CurrentPlayerIndex int            `bson:"currentPlayerIndex" json:"currentPlayerIndex"`
	TurnNumber         int            `bson:"turnNumber" json:"turnNumber"`
	RequiredAction     RequiredAction `bson:"requiredAction" json:"requiredAction"`
	Status             GameStatus     `bson:"status" json:"status"`
	WinnerID           *int64         `bson:"winnerId,omitempty" json:"winnerId,omitempty"`
	LastDice           [2]int         `bson:"lastDice" json:"lastDice"`
	UpdatedAt          time.Time      `bson:"updatedAt" json:"updatedAt"`
}

// GameStateID is the key of the singleton GameState record
const GameStateID = "current"

// NewGameState returns the state a fresh game starts in
func NewGameState() *GameState {
	return &GameState{
		ID:                 GameStateID,
		CurrentPlayerIndex: 0,
		TurnNumber:         1,
		RequiredAction:     ActionRoll,
		Status:             GameStatusActive,
		UpdatedAt:          time.Now(),
	}
}

// Transaction is a ledger entry for a money movement in the game
type Transaction struct {
	ID           string          `bson:"_id" json:"transactionId"`
	Type         TransactionType `bson:"type" json:"type"`
	FromPlayerID *int64          `bson:"fromPlayerId,omitempty" json:"fromPlayerId,omitempty"`
	ToPlayerID   *int64          `bson:"toPlayerId,omitempty" json:"toPlayerId,omitempty"`
	Amount       int             `bson:"amount" json:"amount"`
	PropertyID   *int64          `bson:"propertyId,omitempty" json:"propertyId,omitempty"`
	CardID       *int64          `bson:"cardId,omitempty" json:"cardId,omitempty"`
	TurnNumber   int             `bson:"turnNumber" json:"turnNumber"`
	Timestamp    time.Time       `bson:"timestamp" json:"timestamp"`
}

// GameEvent is emitted after an action has been committed
type GameEvent struct {
	ID         string                 `json:"eventId"`
	Type       EventType              `json:"type"`
	PlayerID   int64                  `json:"playerId,omitempty"`
	TargetID   int64                  `json:"targetId,omitempty"`
	Amount     int                    `json:"amount,omitempty"`
	PropertyID int64                  `json:"propertyId,omitempty"`
	CardID     int64                  `json:"cardId,omitempty"`
	TurnNumber int                    `json:"turnNumber"`
	Data       map[string]interface{} `json:"data,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}

// RequiredAction is the single next legal operation in the turn state machine
type RequiredAction string

const (
	ActionRoll           RequiredAction = "ROLL"
	ActionBuy            RequiredAction = "BUY"
	ActionPayRent        RequiredAction = "PAY_RENT"
	ActionTax            RequiredAction = "TAX"
	ActionChance         RequiredAction = "CHANCE"
	ActionCommunityChest RequiredAction = "COMMUNITY_CHEST"
	ActionGoToJail       RequiredAction = "GO_TO_JAIL"
	ActionNone           RequiredAction = "NONE"
)

// GameStatus represents the status of a game
type GameStatus string

const (
	GameStatusActive    GameStatus = "ACTIVE"
	GameStatusCompleted GameStatus = "COMPLETED"
)

// PropertyType represents the type of a property
type PropertyType string

const (
	PropertyTypeStreet   PropertyType = "STREET"
	PropertyTypeRailroad PropertyType = "RAILROAD"
	PropertyTypeUtility  PropertyType = "UTILITY"
)

// CardCategory represents the deck a card belongs to
type CardCategory string

const (
	CardCategoryChance         CardCategory = "chance"
	CardCategoryCommunityChest CardCategory = "community_chest"
)

// EffectKind represents the kind of a card effect
type EffectKind string

const (
	EffectMoney    EffectKind = "money"
	EffectMoveTo   EffectKind = "move_to"
	EffectMoveBy   EffectKind = "move_by"
	EffectGoToJail EffectKind = "go_to_jail"
	EffectJailFree EffectKind = "jail_free"
)

// TransactionType represents the type of a ledger entry
type TransactionType string

const (
	TransactionTypePurchase   TransactionType = "PURCHASE"
	TransactionTypeRent       TransactionType = "RENT"
	TransactionTypeTax        TransactionType = "TAX"
	TransactionTypeCardEffect TransactionType = "CARD_EFFECT"
	TransactionTypeSalary     TransactionType = "SALARY"
)

// EventType represents the type of a game event
type EventType string

const (
	EventPlayerJoined     EventType = "PLAYER_JOINED"
	EventDiceRolled       EventType = "DICE_ROLLED"
	EventPassedGo         EventType = "PASSED_GO"
	EventPropertyBought   EventType = "PROPERTY_BOUGHT"
	EventRentPaid         EventType = "RENT_PAID"
	EventTaxPaid          EventType = "TAX_PAID"
	EventCardDrawn        EventType = "CARD_DRAWN"
	EventSentToJail       EventType = "SENT_TO_JAIL"
	EventPlayerEliminated EventType = "PLAYER_ELIMINATED"
	EventTurnAdvanced     EventType = "TURN_ADVANCED"
	EventGameOver         EventType = "GAME_OVER"
	EventGameReset        EventType = "GAME_RESET"
)

// IsCardDraw reports whether the required action is satisfied by drawing a card
func (a RequiredAction) IsCardDraw() bool {
	return a == ActionChance || a == ActionCommunityChest
}

// CardCategoryFor maps a card-draw required action to its deck
func CardCategoryFor(a RequiredAction) (CardCategory, bool) {
	switch a {
	case ActionChance:
		return CardCategoryChance, true
	case ActionCommunityChest:
		return CardCategoryCommunityChest, true
	default:
		return "", false
	}
}

// Int64Ptr returns a pointer to v
func Int64Ptr(v int64) *int64 {
	return &v
}
