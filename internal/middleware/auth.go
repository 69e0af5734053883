package middleware

import (
	"net/http"
	"strings"

	"nfa-backend/internal/model"
	"nfa-backend/internal/repository"
	"nfa-backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Context keys set by the auth middleware.
const (
	CtxUserID = "userID"
	CtxRoles  = "userRoles"
	CtxToken  = "accessToken"
)

// AuthMiddleware validates bearer tokens and the server-side session table.
// A token that verifies cryptographically but has been revoked (its session
// row deleted) is rejected.
type AuthMiddleware struct {
	tokens repository.TokenRepository
	jwtKey []byte
}

func NewAuthMiddleware(tokens repository.TokenRepository, jwtKey []byte) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, jwtKey: jwtKey}
}

// ExtractToken pulls the access token from the Authorization header, the
// access_token cookie, or the access_token query parameter (used by the PDF
// download link).
func ExtractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if parts := strings.Split(authHeader, " "); len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	if cookie, err := c.Cookie("access_token"); err == nil && cookie != "" {
		return cookie
	}
	return c.Query("access_token")
}

// RequireAuth validates the token and sets userID/roles on the context.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.authenticate(c) {
			return
		}
		c.Next()
	}
}

// RequireElevated additionally checks the role set for an elevated level.
// Mutating services re-check roles against the user row inside their own
// transaction; this gate just keeps plain users off admin routes.
func (m *AuthMiddleware) RequireElevated() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.authenticate(c) {
			return
		}
		roles, _ := c.Get(CtxRoles)
		if rs, ok := roles.([]int64); !ok || !model.HasElevatedRole(rs) {
			c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Admin privileges required"))
			return
		}
		c.Next()
	}
}

func (m *AuthMiddleware) authenticate(c *gin.Context) bool {
	tokenString := ExtractToken(c)
	if tokenString == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Authorization is missing"))
		return false
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.jwtKey, nil
	})
	if err != nil || !token.Valid {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token"))
		return false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token claims"))
		return false
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token claims"))
		return false
	}

	// Revocation check against the session table.
	session, err := m.tokens.Get(c.Request.Context(), tokenString)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to verify session"))
		return false
	}
	if session == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Session has been revoked"))
		return false
	}

	c.Set(CtxUserID, sub)
	c.Set(CtxRoles, ParseRolesClaim(claims["roles"]))
	c.Set(CtxToken, tokenString)
	return true
}

// ParseRolesClaim converts the JSON-decoded roles claim into a role set.
func ParseRolesClaim(claim interface{}) []int64 {
	raw, ok := claim.([]interface{})
	if !ok {
		return nil
	}
	roles := make([]int64, 0, len(raw))
	for _, r := range raw {
		if f, ok := r.(float64); ok {
			roles = append(roles, int64(f))
		}
	}
	return roles
}
