package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"marketplace_messaging/internal/config"
	"marketplace_messaging/pkg/logger"
)

// AuthMiddleware проверяет access-токен, выданный сервисом идентификации,
// и кладет user_id в контекст. Хранилища доверяют только этому ID —
// идентичность из тела запроса никогда не используется для авторизации
type AuthMiddleware struct {
	cfg config.JWTConfig
	log logger.Logger
}

func NewAuthMiddleware(cfg config.JWTConfig, log logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{cfg: cfg, log: log}
}

type accessClaims struct {
	jwt.RegisteredClaims
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			abortUnauthorized(c, "Authorization required")
			return
		}

		userID, err := m.ValidateToken(token)
		if err != nil {
			abortUnauthorized(c, "Invalid or expired token")
			return
		}

		c.Set("user_id", userID)
		c.Next()
	}
}

// ValidateToken разбирает и проверяет подпись токена, возвращает ID субъекта
func (m *AuthMiddleware) ValidateToken(tokenString string) (uuid.UUID, error) {
	claims := &accessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(m.cfg.AccessSecret), nil
	}, jwt.WithIssuer(m.cfg.Issuer))

	if err != nil || !token.Valid {
		return uuid.Nil, jwt.ErrTokenUnverifiable
	}

	return uuid.Parse(claims.Subject)
}

// extractToken достает токен из заголовка или query-параметра —
// websocket из браузера не умеет ставить заголовки
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}
	return c.Query("token")
}

func abortUnauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": message})
	c.Abort()
}

// UserID возвращает аутентифицированный ID из контекста запроса
func UserID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get("user_id")
	if !exists {
		return uuid.Nil, false
	}
	id, ok := value.(uuid.UUID)
	return id, ok
}
