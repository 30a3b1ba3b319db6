package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Pinger is a component that can report whether it is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check requests
type HealthHandler struct {
	components  map[string]Pinger
	version     string
	environment string
	logger      *zap.SugaredLogger
}

// HealthStatus represents the health status of a component
type HealthStatus struct {
	Status       string `json:"status"`
	ResponseTime int64  `json:"responseTimeMs"`
	Error        string `json:"error,omitempty"`
}

// SystemHealth represents the health of the entire system
type SystemHealth struct {
	Status      string                  `json:"status"`
	Timestamp   string                  `json:"timestamp"`
	Version     string                  `json:"version"`
	Environment string                  `json:"environment"`
	Components  map[string]HealthStatus `json:"components"`
}

// NewHealthHandler creates a new health handler for the named components
func NewHealthHandler(components map[string]Pinger, version, environment string, logger *zap.SugaredLogger) *HealthHandler {
	return &HealthHandler{
		components:  components,
		version:     version,
		environment: environment,
		logger:      logger,
	}
}

// Check performs a health check of all system components
func (h *HealthHandler) Check(c echo.Context) error {
	systemHealth := SystemHealth{
		Status:      "healthy",
		Timestamp:   time.Now().Format(time.RFC3339),
		Version:     h.version,
		Environment: h.environment,
		Components:  make(map[string]HealthStatus, len(h.components)+1),
	}

	var wg sync.WaitGroup
	var mu sync.Mutex

	for name, component := range h.components {
		wg.Add(1)
		go func(name string, component Pinger) {
			defer wg.Done()
			status := h.check(c.Request().Context(), name, component)
			mu.Lock()
			systemHealth.Components[name] = status
			if status.Status != "healthy" {
				systemHealth.Status = "degraded"
			}
			mu.Unlock()
		}(name, component)
	}

	wg.Wait()
	systemHealth.Components["api"] = HealthStatus{Status: "healthy"}

	statusCode := http.StatusOK
	if systemHealth.Status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	return c.JSON(statusCode, systemHealth)
}

// Live reports that the process is serving requests
func (h *HealthHandler) Live(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HealthHandler) check(parent context.Context, name string, component Pinger) HealthStatus {
	start := time.Now()

	ctx, cancel := context.WithTimeout(parent, 3*time.Second)
	defer cancel()

	err := component.Ping(ctx)
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		h.logger.Errorw("Health check failed", "component", name, "error", err)
		return HealthStatus{
			Status:       "unhealthy",
			ResponseTime: elapsed,
			Error:        err.Error(),
		}
	}

	return HealthStatus{
		Status:       "healthy",
		ResponseTime: elapsed,
	}
}
