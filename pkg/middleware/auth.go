package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/carlosaltan18/Parkingit4-Data/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// ContextKeyUserID is the context key for the authenticated user id
	ContextKeyUserID = "user_id"
	// ContextKeyRoles is the context key for the authenticated user's roles
	ContextKeyRoles = "roles"

	// RoleAdmin passes every role check
	RoleAdmin = "ADMIN"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// AuthConfig holds settings for bearer token validation
type AuthConfig struct {
	Secret string
	Issuer string
	// Disabled lets every request through as an anonymous admin
	Disabled bool
}

// Claims are the token claims issued by the identity provider
type Claims struct {
	UserID string   `json:"user_id"`
	Roles  []string `json:"roles"`
	jwt.RegisteredClaims
}

// ParseToken validates an HS256 token and returns its claims
func ParseToken(tokenString string, cfg *AuthConfig) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(cfg.Secret), nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	return claims, nil
}

// JWTAuth authenticates requests carrying "Authorization: Bearer <token>"
func JWTAuth(cfg *AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.Disabled {
			c.Set(ContextKeyUserID, "anonymous")
			c.Set(ContextKeyRoles, []string{RoleAdmin})
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(tokenString) == "" {
			response.Unauthorized(c, ErrMissingToken.Error())
			c.Abort()
			return
		}

		claims, err := ParseToken(strings.TrimSpace(tokenString), cfg)
		if err != nil {
			code := "INVALID_TOKEN"
			if errors.Is(err, jwt.ErrTokenExpired) {
				code = "TOKEN_EXPIRED"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Fail(code, "Invalid or expired token"))
			return
		}

		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyRoles, claims.Roles)
		c.Next()
	}
}

// RequireRole allows the request when the caller holds any of roles (or ADMIN)
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		granted := GetRoles(c)
		for _, have := range granted {
			if have == RoleAdmin {
				c.Next()
				return
			}
			for _, want := range roles {
				if strings.EqualFold(have, want) {
					c.Next()
					return
				}
			}
		}
		response.Forbidden(c, "Insufficient role")
		c.Abort()
	}
}

// GetUserID returns the authenticated user id
func GetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get(ContextKeyUserID)
	if !exists {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

// GetRoles returns the authenticated user's roles
func GetRoles(c *gin.Context) []string {
	v, exists := c.Get(ContextKeyRoles)
	if !exists {
		return nil
	}
	roles, _ := v.([]string)
	return roles
}
