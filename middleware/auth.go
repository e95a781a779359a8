package middleware

import (
	"net/http"
	"strings"

	"nochatbuilder/pkg/config"
	tokenstore "nochatbuilder/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ContextSubjectKey = "current_subject"
	ContextRoleKey    = "current_role"
	ContextJTIKey     = "current_jti"

	RoleAdmin    = "admin"
	RoleCareTeam = "careteam"
)

// AuthMiddleware validates a bearer JWT and stashes subject, role and
// jti in the request context for the log endpoints.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "missing authorization header"})
			return
		}
		parts := strings.Fields(auth)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "invalid authorization header"})
			return
		}
		tokenStr := parts[1]

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			// only accept HMAC signing
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrTokenUnverifiable
			}
			return []byte(config.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "invalid token"})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "invalid token claims"})
			return
		}

		jtiVal, _ := claims["jti"].(string)
		if tokenstore.IsRevoked(jtiVal) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "Token has been revoked (logout)"})
			return
		}

		sub, _ := claims["sub"].(string)
		if sub == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"msg": "invalid subject in token"})
			return
		}
		role, _ := claims["role"].(string)
		if role != RoleAdmin && role != RoleCareTeam {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"msg": "unknown role"})
			return
		}

		c.Set(ContextSubjectKey, sub)
		c.Set(ContextRoleKey, role)
		c.Set(ContextJTIKey, jtiVal)
		c.Next()
	}
}
