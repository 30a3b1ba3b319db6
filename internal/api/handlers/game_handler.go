package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/boardloop/turn-engine/internal/api/middleware/auth"
	"github.com/boardloop/turn-engine/internal/game/manager"
	"github.com/boardloop/turn-engine/internal/game/models"
)

// TransactionLister reads the money ledger
type TransactionLister interface {
	ListTransactions(ctx context.Context, limit int) ([]*models.Transaction, error)
}

// TokenConfig enables issuing a player-bound token on join. An empty Secret disables it.
type TokenConfig struct {
	Secret          string
	ExpirationHours int
}

// GameHandler handles game-related requests
type GameHandler struct {
	gameManager *manager.GameManager
	ledger      TransactionLister
	tokens      TokenConfig
	logger      *zap.SugaredLogger
}

// NewGameHandler creates a new GameHandler. ledger may be nil when no ledger is configured.
func NewGameHandler(gameManager *manager.GameManager, ledger TransactionLister, tokens TokenConfig, logger *zap.SugaredLogger) *GameHandler {
	return &GameHandler{
		gameManager: gameManager,
		ledger:      ledger,
		tokens:      tokens,
		logger:      logger,
	}
}

// AddPlayerRequest represents a join request
type AddPlayerRequest struct {
	Name string `json:"name" validate:"required,max=50"`
}

// PlayerRequest represents an action taken by a player
type PlayerRequest struct {
	PlayerID int64 `json:"playerId" validate:"required,min=1"`
}

// PositionRequest represents an action taken by a player on a board position
type PositionRequest struct {
	PlayerID int64 `json:"playerId" validate:"required,min=1"`
	Position *int  `json:"position" validate:"required,min=0,max=39"`
}

// AddPlayerResponse is returned when a player joins
type AddPlayerResponse struct {
	Player *models.Player `json:"player"`
	Token  string         `json:"token,omitempty"`
}

// requestLogger returns the request-scoped logger set by the server middleware
func (h *GameHandler) requestLogger(c echo.Context) *zap.SugaredLogger {
	if l, ok := c.Get("logger").(*zap.SugaredLogger); ok {
		return l
	}
	return h.logger
}

// fail maps a manager error onto an HTTP error
func (h *GameHandler) fail(c echo.Context, action string, err error) error {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		h.requestLogger(c).Errorw("Game action failed", "action", action, "error", err)
		return echo.NewHTTPError(status, "internal error")
	}
	return echo.NewHTTPError(status, err.Error())
}

// StatusFor returns the HTTP status for an error returned by the game manager
func StatusFor(err error) int {
	switch {
	case errors.Is(err, manager.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, manager.ErrNotYourTurn),
		errors.Is(err, manager.ErrWrongAction),
		errors.Is(err, manager.ErrAlreadyOwned),
		errors.Is(err, manager.ErrGameOver):
		return http.StatusConflict
	case errors.Is(err, manager.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, manager.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	return nil
}

// bindPlayer binds a player request and checks it against the authenticated player
func bindPlayer(c echo.Context) (*PlayerRequest, error) {
	var req PlayerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return nil, err
	}
	if err := auth.CheckPlayer(c, req.PlayerID); err != nil {
		return nil, err
	}
	return &req, nil
}

func bindPosition(c echo.Context) (*PositionRequest, error) {
	var req PositionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return nil, err
	}
	if err := auth.CheckPlayer(c, req.PlayerID); err != nil {
		return nil, err
	}
	return &req, nil
}

func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name)
	}
	return id, nil
}

// AddPlayer joins a new player
func (h *GameHandler) AddPlayer(c echo.Context) error {
	var req AddPlayerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	player, err := h.gameManager.AddPlayer(c.Request().Context(), req.Name)
	if err != nil {
		return h.fail(c, "join", err)
	}

	resp := AddPlayerResponse{Player: player}
	if h.tokens.Secret != "" {
		token, err := auth.GenerateJWT(player.ID, h.tokens.Secret, h.tokens.ExpirationHours)
		if err != nil {
			h.requestLogger(c).Errorf("Failed to issue token for player %d: %v", player.ID, err)
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to issue token")
		}
		resp.Token = token
	}
	return c.JSON(http.StatusCreated, resp)
}

// ListPlayers lists the live players
func (h *GameHandler) ListPlayers(c echo.Context) error {
	players, err := h.gameManager.ListPlayers(c.Request().Context())
	if err != nil {
		return h.fail(c, "list players", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"players": players})
}

// GetPlayer returns one player
func (h *GameHandler) GetPlayer(c echo.Context) error {
	id, err := pathID(c, "playerId")
	if err != nil {
		return err
	}
	player, err := h.gameManager.GetPlayer(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, "get player", err)
	}
	return c.JSON(http.StatusOK, player)
}

// RemovePlayer eliminates a player who leaves the table
func (h *GameHandler) RemovePlayer(c echo.Context) error {
	id, err := pathID(c, "playerId")
	if err != nil {
		return err
	}
	if err := auth.CheckPlayer(c, id); err != nil {
		return err
	}
	result, err := h.gameManager.Eliminate(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, "leave", err)
	}
	return c.JSON(http.StatusOK, result)
}

// GetGameState returns the turn state
func (h *GameHandler) GetGameState(c echo.Context) error {
	state, err := h.gameManager.State(c.Request().Context())
	if err != nil {
		return h.fail(c, "state", err)
	}
	return c.JSON(http.StatusOK, state)
}

// ListProperties lists the board properties with their owners
func (h *GameHandler) ListProperties(c echo.Context) error {
	props, err := h.gameManager.ListProperties(c.Request().Context())
	if err != nil {
		return h.fail(c, "list properties", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"properties": props})
}

// ListCards lists the cards, optionally filtered by category
func (h *GameHandler) ListCards(c echo.Context) error {
	category := models.CardCategory(c.QueryParam("category"))
	switch category {
	case "", models.CardCategoryChance, models.CardCategoryCommunityChest:
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "Unknown card category")
	}

	cards, err := h.gameManager.ListCards(c.Request().Context(), category)
	if err != nil {
		return h.fail(c, "list cards", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"cards": cards})
}

// ListTransactions returns the newest ledger entries
func (h *GameHandler) ListTransactions(c echo.Context) error {
	if h.ledger == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "Ledger is not enabled")
	}

	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be between 1 and 500")
		}
		limit = n
	}

	txns, err := h.ledger.ListTransactions(c.Request().Context(), limit)
	if err != nil {
		return h.fail(c, "list transactions", err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"transactions": txns})
}

// Roll rolls the dice for the current player
func (h *GameHandler) Roll(c echo.Context) error {
	req, err := bindPlayer(c)
	if err != nil {
		return err
	}
	result, err := h.gameManager.Roll(c.Request().Context(), req.PlayerID)
	if err != nil {
		return h.fail(c, "roll", err)
	}
	return c.JSON(http.StatusOK, result)
}

// BuyProperty buys the property the player stands on
func (h *GameHandler) BuyProperty(c echo.Context) error {
	req, err := bindPosition(c)
	if err != nil {
		return err
	}
	result, err := h.gameManager.BuyProperty(c.Request().Context(), req.PlayerID, *req.Position)
	if err != nil {
		return h.fail(c, "buy", err)
	}
	return c.JSON(http.StatusOK, result)
}

// PayRent pays rent to the owner of the property the player stands on
func (h *GameHandler) PayRent(c echo.Context) error {
	req, err := bindPosition(c)
	if err != nil {
		return err
	}
	result, err := h.gameManager.PayRent(c.Request().Context(), req.PlayerID, *req.Position)
	if err != nil {
		return h.fail(c, "pay rent", err)
	}
	return c.JSON(http.StatusOK, result)
}

// PayTax pays the tax of the tile the player stands on
func (h *GameHandler) PayTax(c echo.Context) error {
	req, err := bindPosition(c)
	if err != nil {
		return err
	}
	result, err := h.gameManager.PayTax(c.Request().Context(), req.PlayerID, *req.Position)
	if err != nil {
		return h.fail(c, "pay tax", err)
	}
	return c.JSON(http.StatusOK, result)
}

// GoToJail sends the player to jail
func (h *GameHandler) GoToJail(c echo.Context) error {
	req, err := bindPlayer(c)
	if err != nil {
		return err
	}
	result, err := h.gameManager.GoToJail(c.Request().Context(), req.PlayerID)
	if err != nil {
		return h.fail(c, "go to jail", err)
	}
	return c.JSON(http.StatusOK, result)
}

// DrawCard draws from the deck the player landed on
func (h *GameHandler) DrawCard(c echo.Context) error {
	req, err := bindPlayer(c)
	if err != nil {
		return err
	}
	result, err := h.gameManager.DrawCard(c.Request().Context(), req.PlayerID)
	if err != nil {
		return h.fail(c, "draw card", err)
	}
	return c.JSON(http.StatusOK, result)
}

// NextTurn passes the turn to the next player. Declining a purchase is left to the buyer.
func (h *GameHandler) NextTurn(c echo.Context) error {
	req, err := bindPlayer(c)
	if err != nil {
		return err
	}
	result, err := h.gameManager.NextTurn(c.Request().Context(), req.PlayerID)
	if err != nil {
		return h.fail(c, "next turn", err)
	}
	return c.JSON(http.StatusOK, result)
}

// ResetGame clears players and ownership and restarts the turn state
func (h *GameHandler) ResetGame(c echo.Context) error {
	if err := h.gameManager.ResetGame(c.Request().Context()); err != nil {
		return h.fail(c, "reset", err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Game reset"})
}
