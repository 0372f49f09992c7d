package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/yourusername/trivia-host/internal/domain/entity"
	apperrors "github.com/yourusername/trivia-host/internal/pkg/errors"
	"github.com/yourusername/trivia-host/pkg/auth"
)

// Ключи контекста Gin, которые заполняет middleware
const (
	ContextUserID = "user_id"
	ContextRole   = "role"
	ContextSiteID = "site_id"
	ContextActor  = "actor"
	ContextGameID = "game_id"
	ContextGame   = "game"
)

// HostAuthorizer проверяет право пользователя вести игру
type HostAuthorizer interface {
	AuthorizeHost(ctx context.Context, gameID uint, actor *entity.Actor) (*entity.Game, error)
}

// AuthMiddleware обеспечивает аутентификацию для защищенных маршрутов
type AuthMiddleware struct {
	jwtService *auth.JWTService
}

// NewAuthMiddleware создает новый middleware аутентификации
func NewAuthMiddleware(jwtService *auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{jwtService: jwtService}
}

// RequireAuth проверяет токен сессии из заголовка Authorization: Bearer {token}
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required", "error_type": "token_missing"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}", "error_type": "token_format"})
			return
		}

		claims, err := m.jwtService.ParseToken(parts[1])
		if err != nil {
			if errors.Is(err, apperrors.ErrExpiredToken) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token has expired", "error_type": "token_expired"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "error_type": "token_invalid"})
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextRole, claims.Role)
		c.Set(ContextSiteID, claims.SiteID)
		c.Set(ContextActor, claims.Actor())
		c.Next()
	}
}

// RequireHost пропускает только администраторов и ведущих.
// Должен применяться ПОСЛЕ RequireAuth.
func (m *AuthMiddleware) RequireHost() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := ActorFromContext(c)
		if actor == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "error_type": "unauthorized"})
			return
		}
		if !actor.CanHost() {
			log.Warn().Uint("user_id", actor.UserID).Str("role", actor.Role).Msg("[AuthMiddleware] Нет прав ведущего")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Host rights required", "error_type": "forbidden"})
			return
		}
		c.Next()
	}
}

// HostGameAccess проверяет, что пользователь может вести игру из ContextGameID.
// Должен применяться ПОСЛЕ RequireAuth и ExtractUintParam.
func (m *AuthMiddleware) HostGameAccess(authorizer HostAuthorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		gameID := c.GetUint(ContextGameID)
		actor := ActorFromContext(c)

		game, err := authorizer.AuthorizeHost(c.Request.Context(), gameID, actor)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrUnauthorized):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "error_type": "unauthorized"})
			case errors.Is(err, apperrors.ErrForbidden):
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "You cannot host this game", "error_type": "forbidden"})
			case errors.Is(err, apperrors.ErrNotFound):
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Game not found", "error_type": "not_found"})
			case errors.Is(err, apperrors.ErrTimeout):
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Operation timed out", "error_type": "timeout"})
			default:
				log.Error().Err(err).Uint("game_id", gameID).Msg("[AuthMiddleware] Ошибка проверки доступа к игре")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "error_type": "internal"})
			}
			return
		}

		c.Set(ContextGame, game)
		c.Next()
	}
}

// ActorFromContext возвращает пользователя, установленного RequireAuth
func ActorFromContext(c *gin.Context) *entity.Actor {
	value, ok := c.Get(ContextActor)
	if !ok {
		return nil
	}
	actor, _ := value.(*entity.Actor)
	return actor
}
