package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/boardloop/turn-engine/internal/api/handlers"
	"github.com/boardloop/turn-engine/internal/api/middleware/auth"
	"github.com/boardloop/turn-engine/internal/config"
	"github.com/boardloop/turn-engine/internal/game/manager"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// CustomValidator is the request validator for Echo
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates the request validator
func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

// Validate validates the request
func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// RequestMetrics tracks metrics for API requests
type RequestMetrics struct {
	RequestCount map[string]int     `json:"requestCount"`
	DurationSum  map[string]float64 `json:"durationSum"`
	GameActions  map[string]int     `json:"gameActions"`
	mutex        sync.RWMutex
}

// Dependencies are the collaborators the server routes to
type Dependencies struct {
	GameManager *manager.GameManager
	// Ledger may be nil when no ledger is configured
	Ledger handlers.TransactionLister
	// Health lists the components reported by /health, keyed by name
	Health map[string]handlers.Pinger
}

// Server represents the API server
type Server struct {
	echo    *echo.Echo
	cfg     *config.Config
	deps    Dependencies
	logger  *zap.SugaredLogger
	metrics *RequestMetrics
}

// NewServer creates a new API server
func NewServer(cfg *config.Config, deps Dependencies, logger *zap.SugaredLogger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Validator = NewValidator()
	e.Server.ReadTimeout = time.Duration(cfg.Server.ReadTimeout) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.Server.WriteTimeout) * time.Second

	server := &Server{
		echo:   e,
		cfg:    cfg,
		deps:   deps,
		logger: logger,
		metrics: &RequestMetrics{
			RequestCount: make(map[string]int),
			DurationSum:  make(map[string]float64),
			GameActions:  make(map[string]int),
		},
	}

	server.configureMiddleware()
	server.configureRoutes()

	return server
}

// Echo exposes the router, mainly for tests
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// configureMiddleware sets up Echo middleware
func (s *Server) configureMiddleware() {
	s.echo.Use(middleware.Logger())
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.CORS())
	s.echo.Use(middleware.RequestID())

	s.echo.Use(s.metricsMiddleware)

	// Request-scoped structured logger
	s.echo.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Response().Header().Get(echo.HeaderXRequestID)
			c.Set("requestID", requestID)

			requestLogger := s.logger.With(
				"requestID", requestID,
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"clientIP", c.RealIP(),
			)
			c.Set("logger", requestLogger)

			return next(c)
		}
	})
}

// metricsMiddleware records metrics for each request
func (s *Server) metricsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()

		err := next(c)

		duration := time.Since(start).Seconds()
		path := c.Path()
		status := c.Response().Status
		if httpErr, ok := err.(*echo.HTTPError); ok {
			status = httpErr.Code
		}
		key := c.Request().Method + ":" + path + ":" + strconv.Itoa(status)

		s.metrics.mutex.Lock()
		s.metrics.RequestCount[key]++
		s.metrics.DurationSum[key] += duration
		if action, ok := strings.CutPrefix(path, "/api/v1/actions/"); ok && err == nil {
			s.metrics.GameActions[action]++
		}
		s.metrics.mutex.Unlock()

		return err
	}
}

// configureRoutes sets up API routes
func (s *Server) configureRoutes() {
	gameHandler := handlers.NewGameHandler(s.deps.GameManager, s.deps.Ledger, s.tokenConfig(), s.logger)
	healthHandler := handlers.NewHealthHandler(s.deps.Health, Version, s.environment(), s.logger)

	apiV1 := s.echo.Group("/api/v1")

	// Player-bound routes need a token when auth is enabled
	var protected []echo.MiddlewareFunc
	if s.cfg.JWT.Enabled {
		protected = append(protected, auth.JWTMiddleware(s.cfg.JWT.Secret))
	}

	apiV1.POST("/players", gameHandler.AddPlayer)
	apiV1.GET("/players", gameHandler.ListPlayers)
	apiV1.GET("/players/:playerId", gameHandler.GetPlayer)
	apiV1.DELETE("/players/:playerId", gameHandler.RemovePlayer, protected...)

	apiV1.GET("/properties", gameHandler.ListProperties)
	apiV1.GET("/cards", gameHandler.ListCards)
	apiV1.GET("/game-state", gameHandler.GetGameState)
	apiV1.GET("/transactions", gameHandler.ListTransactions)
	apiV1.POST("/game/reset", gameHandler.ResetGame, protected...)

	actionGroup := apiV1.Group("/actions", protected...)
	actionGroup.POST("/roll", gameHandler.Roll)
	actionGroup.POST("/buy-property", gameHandler.BuyProperty)
	actionGroup.POST("/pay-rent", gameHandler.PayRent)
	actionGroup.POST("/pay-tax", gameHandler.PayTax)
	actionGroup.POST("/go-to-jail", gameHandler.GoToJail)
	actionGroup.POST("/draw-card", gameHandler.DrawCard)
	actionGroup.POST("/next-turn", gameHandler.NextTurn)

	s.echo.GET("/health", healthHandler.Check)
	s.echo.GET("/health/live", healthHandler.Live)

	s.echo.GET("/metrics", func(c echo.Context) error {
		s.metrics.mutex.RLock()
		defer s.metrics.mutex.RUnlock()
		return c.JSON(http.StatusOK, s.metrics)
	})
}

func (s *Server) tokenConfig() handlers.TokenConfig {
	if !s.cfg.JWT.Enabled {
		return handlers.TokenConfig{}
	}
	return handlers.TokenConfig{
		Secret:          s.cfg.JWT.Secret,
		ExpirationHours: s.cfg.JWT.Expiration,
	}
}

func (s *Server) environment() string {
	if s.cfg.Logging.Development {
		return "development"
	}
	return "production"
}

// Start starts the API server
func (s *Server) Start() error {
	address := s.cfg.Server.Host + ":" + strconv.Itoa(s.cfg.Server.Port)
	return s.echo.Start(address)
}

// Shutdown gracefully shuts down the API server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
