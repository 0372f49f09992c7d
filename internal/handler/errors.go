package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	apperrors "github.com/yourusername/trivia-host/internal/pkg/errors"
	"github.com/yourusername/trivia-host/internal/service"
)

// handleGameError преобразует ошибку сервиса в HTTP ответ {error, error_type}
func handleGameError(c *gin.Context, component string, err error) {
	switch {
	case errors.Is(err, apperrors.ErrExpiredToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "error_type": "token_expired"})
	case errors.Is(err, apperrors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "error_type": "unauthorized"})
	case errors.Is(err, apperrors.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error(), "error_type": "forbidden"})
	case errors.Is(err, service.ErrNoActiveQuestion):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "no_active_question"})
	case errors.Is(err, service.ErrAlreadyAtEnd):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "already_at_end"})
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "validation"})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "error_type": "not_found"})
	case errors.Is(err, apperrors.ErrConflict):
		log.Warn().Err(err).Str("path", c.FullPath()).Msgf("[%s] Конфликт состояния", component)
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "error_type": "conflict"})
	case errors.Is(err, apperrors.ErrTimeout):
		log.Warn().Err(err).Str("path", c.FullPath()).Msgf("[%s] Превышено время операции", component)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Operation timed out, please retry", "error_type": "timeout"})
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msgf("[%s] Внутренняя ошибка", component)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "error_type": "internal"})
	}
}

// badRequest отвечает 400 на некорректное тело запроса
func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "error_type": "validation", "details": err.Error()})
}
