package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog/log"

	"github.com/yourusername/trivia-host/internal/domain/entity"
	apperrors "github.com/yourusername/trivia-host/internal/pkg/errors"
)

// Claims содержит поля токена сессии
type Claims struct {
	UserID uint   `json:"user_id"`
	Role   string `json:"role"`
	SiteID uint   `json:"site_id,omitempty"`
	jwt.RegisteredClaims
}

// Actor возвращает пользователя, от имени которого выполняется действие
func (c *Claims) Actor() *entity.Actor {
	return &entity.Actor{
		UserID: c.UserID,
		Role:   c.Role,
		SiteID: c.SiteID,
	}
}

// JWTService проверяет токены сессии, подписанные HS256.
// Выпуск токенов (вход) выполняет внешний сервис; GenerateToken нужен для разработки и тестов.
type JWTService struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewJWTService создает сервис JWT
func NewJWTService(secret, issuer string, ttl time.Duration) (*JWTService, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JWTService{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
	}, nil
}

// GenerateToken создает подписанный токен для пользователя
func (s *JWTService) GenerateToken(userID uint, role string, siteID uint) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		Role:   role,
		SiteID: siteID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", userID),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseToken проверяет подпись и срок действия токена.
// Истекший токен - ErrExpiredToken, любой другой недействительный - ErrUnauthorized.
func (s *JWTService) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) && ve.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, fmt.Errorf("%w: user #%d", apperrors.ErrExpiredToken, claims.UserID)
		}
		log.Debug().Err(err).Msg("[JWT] Недействительный токен")
		return nil, fmt.Errorf("%w: invalid token", apperrors.ErrUnauthorized)
	}
	if !token.Valid {
		return nil, fmt.Errorf("%w: invalid token", apperrors.ErrUnauthorized)
	}
	if s.issuer != "" && claims.Issuer != s.issuer {
		return nil, fmt.Errorf("%w: unexpected issuer %q", apperrors.ErrUnauthorized, claims.Issuer)
	}
	if claims.UserID == 0 {
		return nil, fmt.Errorf("%w: token has no user", apperrors.ErrUnauthorized)
	}
	return claims, nil
}
