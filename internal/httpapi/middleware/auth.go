package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/bioterms-backend/internal/httpapi/response"
	"github.com/yungbote/bioterms-backend/internal/platform/logger"
	"github.com/yungbote/bioterms-backend/internal/users"
)

// ContextUsername is the gin context key carrying the authenticated
// admin or key owner.
const ContextUsername = "username"

// AdminTokenTTL bounds how long a login token stays valid.
const AdminTokenTTL = 24 * time.Hour

// AuthMiddleware guards the management surface (admin JWT) and the
// data-plane write endpoints (API key).
type AuthMiddleware struct {
	log          *logger.Logger
	repo         users.Repo
	jwtSecret    []byte
	apiKeySecret string
}

func NewAuthMiddleware(log *logger.Logger, repo users.Repo, jwtSecret, apiKeySecret string) (*AuthMiddleware, error) {
	if repo == nil {
		return nil, fmt.Errorf("httpapi: user repo required")
	}
	if strings.TrimSpace(jwtSecret) == "" {
		return nil, fmt.Errorf("httpapi: admin JWT secret required")
	}
	if strings.TrimSpace(apiKeySecret) == "" {
		return nil, fmt.Errorf("httpapi: API key secret required")
	}
	return &AuthMiddleware{
		log:          log.With("Middleware", "AuthMiddleware"),
		repo:         repo,
		jwtSecret:    []byte(jwtSecret),
		apiKeySecret: apiKeySecret,
	}, nil
}

// IssueToken mints an admin JWT after a successful login.
func (am *AuthMiddleware) IssueToken(username string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(AdminTokenTTL)),
	})
	return token.SignedString(am.jwtSecret)
}

// RequireAdmin accepts a bearer token minted by IssueToken.
func (am *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			abortUnauthorized(c, "missing or invalid token")
			return
		}
		claims := &jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return am.jwtSecret, nil
		})
		if err != nil || !token.Valid || claims.Subject == "" {
			abortUnauthorized(c, "missing or invalid token")
			return
		}
		c.Set(ContextUsername, claims.Subject)
		c.Next()
	}
}

// RequireAPIKey resolves the X-Api-Key header through the keyed hash to
// a user record.
func (am *AuthMiddleware) RequireAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader("X-Api-Key"))
		if raw == "" {
			abortUnauthorized(c, "missing api key")
			return
		}
		user, err := am.repo.GetByAPIKeyHash(c.Request.Context(), users.HashKey(am.apiKeySecret, raw))
		if err != nil {
			am.log.Error("api key lookup failed", "error", err)
			response.RespondError(c, http.StatusInternalServerError, "internal", fmt.Errorf("internal error"))
			c.Abort()
			return
		}
		if user == nil {
			abortUnauthorized(c, "invalid api key")
			return
		}
		c.Set(ContextUsername, user.Username)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorEnvelope{
		Error: response.APIError{Message: msg, Code: "unauthorized"},
	})
}
