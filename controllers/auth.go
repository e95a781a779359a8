package controllers

import (
	"net/http"
	"strings"
	"time"

	"nochatbuilder/middleware"
	"nochatbuilder/pkg/config"
	tokenstore "nochatbuilder/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Operator accounts come from the environment rather than the database:
// the dashboard has exactly two fixed roles, admin and care team.
func matchOperator(email, password string) (string, bool) {
	check := func(wantEmail, wantHash string) bool {
		if wantEmail == "" || wantHash == "" || email != wantEmail {
			return false
		}
		return bcrypt.CompareHashAndPassword([]byte(wantHash), []byte(password)) == nil
	}
	if check(config.AdminEmail, config.AdminPasswordHash) {
		return middleware.RoleAdmin, true
	}
	if check(config.CareTeamEmail, config.CareTeamPasswordHash) {
		return middleware.RoleCareTeam, true
	}
	return "", false
}

// Login handler for dashboard operators.
func Login() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid request"})
			return
		}
		email := strings.TrimSpace(strings.ToLower(body.Email))
		if email == "" || body.Password == "" {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "Email and password are required"})
			return
		}

		role, ok := matchOperator(email, body.Password)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"msg": "Invalid credentials"})
			return
		}

		// create JWT with 1 day expiry
		jti := uuid.NewString()
		claims := jwt.MapClaims{
			"sub":  email,
			"role": role,
			"exp":  time.Now().Add(24 * time.Hour).Unix(),
			"jti":  jti,
		}
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		tokenStr, err := token.SignedString([]byte(config.JWTSecret))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "failed to create token"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"access_token": tokenStr, "role": role})
	}
}

// Logout handler
func Logout() gin.HandlerFunc {
	return func(c *gin.Context) {
		jti, _ := c.Get(middleware.ContextJTIKey)
		if s, ok := jti.(string); ok && s != "" {
			tokenstore.Revoke(s)
		}
		c.JSON(http.StatusOK, gin.H{"msg": "logged out"})
	}
}
