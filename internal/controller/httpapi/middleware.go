package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/solnyshko/kidsbooking/internal/model"
	"github.com/solnyshko/kidsbooking/internal/service"
)

const callerKey = "caller"

// Claims полезная нагрузка токена доступа
type Claims struct {
	UserID int64      `json:"uid"`
	Role   model.Role `json:"role"`
	jwt.RegisteredClaims
}

// JWTAuth проверяет Bearer-токен и кладёт вызывающую сторону в контекст
// запроса. Гостевые маршруты этот middleware не проходят: гости
// авторизуются кодом управления брони.
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set(callerKey, service.Caller{
			UserID: claims.UserID,
			Role:   claims.Role,
		})
		c.Next()
	}
}

// RequireAdmin пропускает только администраторов; вешается после JWTAuth
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := callerFrom(c)
		if caller.Role != model.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin role required"})
			return
		}
		c.Next()
	}
}

func callerFrom(c *gin.Context) service.Caller {
	v, ok := c.Get(callerKey)
	if !ok {
		return service.Caller{Role: model.RoleGuest}
	}
	return v.(service.Caller)
}
