package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/caixaops/backend/internal/domain/identity"
	"github.com/caixaops/backend/internal/infrastructure/logger"
	"github.com/caixaops/backend/internal/interfaces/http/dto"
)

// ActorKey is the gin context key carrying the resolved actor
const ActorKey = "actor"

// ResolveActor builds the request's identity.Actor from the verified JWT
// claims. It must run after JWTAuth. The actor, not the raw claims, is what
// handlers pass into the application layer: it carries the access scope every
// repository call requires.
func ResolveActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := GetClaims(c)
		if !ok {
			abortUnauthorized(c, "Authentication required")
			return
		}

		userID, err := claims.GetUserUUID()
		if err != nil {
			abortUnauthorized(c, "Invalid token")
			return
		}
		tenantID, err := claims.GetTenantUUID()
		if err != nil {
			abortUnauthorized(c, "Invalid token")
			return
		}

		roles := make([]identity.Role, 0, len(claims.Roles))
		for _, r := range claims.Roles {
			roles = append(roles, identity.Role(r))
		}

		// Carry the user id on the request context so downstream log
		// entries can be tied back to the caller.
		ctx, _ := logger.WithUserID(c.Request.Context(), logger.FromContext(c.Request.Context()), userID.String())
		c.Request = c.Request.WithContext(ctx)

		c.Set(ActorKey, identity.NewActor(userID, tenantID, roles))
		c.Next()
	}
}

// GetActor returns the actor resolved by ResolveActor
func GetActor(c *gin.Context) (identity.Actor, bool) {
	value, exists := c.Get(ActorKey)
	if !exists {
		return identity.Actor{}, false
	}
	actor, ok := value.(identity.Actor)
	return actor, ok
}

// RequireCapability rejects requests whose actor lacks the capability.
// Services check capabilities again; this gate just fails fast and keeps
// unauthorized traffic out of the application layer.
func RequireCapability(cap identity.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok {
			abortUnauthorized(c, "Authentication required")
			return
		}
		if !actor.Can(cap) {
			c.AbortWithStatusJSON(http.StatusForbidden,
				dto.NewErrorResponse(dto.ErrCodeForbidden, "Missing required capability", GetRequestID(c)))
			return
		}
		c.Next()
	}
}
