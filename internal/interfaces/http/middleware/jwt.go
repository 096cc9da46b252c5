package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/caixaops/backend/internal/infrastructure/auth"
	"github.com/caixaops/backend/internal/interfaces/http/dto"
)

// Context keys set by the JWT middleware
const (
	JWTClaimsKey  = "jwt_claims"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// JWTConfig holds configuration for the JWT middleware
type JWTConfig struct {
	JWTService *auth.JWTService
	// Blacklist is optional; when set, revoked tokens are rejected
	Blacklist auth.TokenBlacklist
	Logger    *zap.Logger
}

// JWTAuth validates the bearer token, rejects revoked tokens and stores the
// verified claims in the gin context
func JWTAuth(cfg JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthHeaderKey)
		if authHeader == "" {
			abortUnauthorized(c, "Missing authorization header")
			return
		}
		if !strings.HasPrefix(authHeader, BearerPrefix) {
			abortUnauthorized(c, "Invalid authorization header format")
			return
		}
		tokenString := strings.TrimPrefix(authHeader, BearerPrefix)

		claims, err := cfg.JWTService.ValidateAccessToken(tokenString)
		if err != nil {
			if errors.Is(err, auth.ErrExpiredToken) {
				abortUnauthorized(c, "Token has expired")
				return
			}
			abortUnauthorized(c, "Invalid token")
			return
		}

		if cfg.Blacklist != nil {
			ctx := c.Request.Context()
			if revoked, err := cfg.Blacklist.IsRevoked(ctx, claims.ID); err != nil {
				// Redis being down must not silently readmit revoked tokens
				if cfg.Logger != nil {
					cfg.Logger.Error("Token blacklist check failed", zap.Error(err))
				}
				abortUnauthorized(c, "Unable to verify token")
				return
			} else if revoked {
				abortUnauthorized(c, "Token has been revoked")
				return
			}

			issuedAt := time.Time{}
			if claims.IssuedAt != nil {
				issuedAt = claims.IssuedAt.Time
			}
			if revoked, err := cfg.Blacklist.IsRevokedForUser(ctx, claims.UserID, issuedAt); err != nil {
				if cfg.Logger != nil {
					cfg.Logger.Error("Token blacklist check failed", zap.Error(err))
				}
				abortUnauthorized(c, "Unable to verify token")
				return
			} else if revoked {
				abortUnauthorized(c, "Session has been revoked")
				return
			}
		}

		c.Set(JWTClaimsKey, claims)
		c.Next()
	}
}

// GetClaims returns the verified claims stored by JWTAuth
func GetClaims(c *gin.Context) (*auth.Claims, bool) {
	value, exists := c.Get(JWTClaimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*auth.Claims)
	return claims, ok
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		dto.NewErrorResponse(dto.ErrCodeUnauthorized, message, GetRequestID(c)))
}
