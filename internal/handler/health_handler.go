package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck проверяет доступность зависимости
type HealthCheck func(ctx context.Context) error

// HealthHandler отдает состояние сервиса и метрики WebSocket
type HealthHandler struct {
	checks  map[string]HealthCheck
	metrics func() map[string]interface{}
}

// NewHealthHandler создает обработчик /healthz
func NewHealthHandler(checks map[string]HealthCheck, metrics func() map[string]interface{}) *HealthHandler {
	return &HealthHandler{checks: checks, metrics: metrics}
}

// Health GET /healthz
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			log.Warn().Err(err).Str("dependency", name).Msg("[Health] Зависимость недоступна")
			deps[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "up"
	}

	body := gin.H{
		"status":       "ok",
		"dependencies": deps,
		"time":         time.Now().UTC().Format(time.RFC3339),
	}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	if h.metrics != nil {
		body["websocket"] = h.metrics()
	}
	c.JSON(status, body)
}
