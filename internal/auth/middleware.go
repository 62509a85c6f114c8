package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	contextExpertID = "auth.expert_id"
	contextRole     = "auth.role"
)

// Claims are issued by the upstream identity layer. The expert id identifies
// which expert profile is acting; role gates the administrative surface.
type Claims struct {
	ExpertID string `json:"expert_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Middleware validates the bearer token and stores the caller identity on
// the request context.
func Middleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tokenStr := strings.TrimPrefix(header, "Bearer ")

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		if claims.ExpertID != "" {
			if id, err := uuid.Parse(claims.ExpertID); err == nil {
				c.Set(contextExpertID, id)
			}
		}
		c.Set(contextRole, claims.Role)
		c.Next()
	}
}

// RequireRole rejects callers whose token does not carry the given role.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(contextRole) != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// ExpertID returns the acting expert's profile id from the request context.
func ExpertID(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get(contextExpertID)
	if !exists {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// SetExpertID injects an identity directly, bypassing token validation.
// Used by handler tests.
func SetExpertID(c *gin.Context, id uuid.UUID) {
	c.Set(contextExpertID, id)
}
