package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	appidentity "github.com/caixaops/backend/internal/application/identity"
	"github.com/caixaops/backend/internal/infrastructure/auth"
	"github.com/caixaops/backend/internal/interfaces/http/dto"
	"github.com/caixaops/backend/internal/interfaces/http/middleware"
)

// AuthHandler exposes credential and token endpoints
type AuthHandler struct {
	BaseHandler
	service *appidentity.AuthService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service *appidentity.AuthService) *AuthHandler {
	return &AuthHandler{service: service}
}

// RegisterPublicRoutes registers the routes that do not require a valid token
func (h *AuthHandler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	auth := rg.Group("/auth")
	{
		auth.POST("/login", h.Login)
		auth.POST("/refresh", h.Refresh)
	}
}

// RegisterProtectedRoutes registers the routes that require a valid token
func (h *AuthHandler) RegisterProtectedRoutes(rg *gin.RouterGroup) {
	auth := rg.Group("/auth")
	{
		auth.POST("/logout", h.Logout)
		auth.POST("/logout-all", h.LogoutAll)
	}
}

// Login authenticates a user and issues a token pair
func (h *AuthHandler) Login(c *gin.Context) {
	var req appidentity.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}

	resp, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// Refresh exchanges a refresh token for a new token pair
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req appidentity.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}

	resp, err := h.service.Refresh(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// claims returns the validated token claims, aborting with 401 when absent
func (h *AuthHandler) claims(c *gin.Context) (*auth.Claims, bool) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized,
			dto.NewErrorResponse(dto.ErrCodeUnauthorized, "Authentication required", middleware.GetRequestID(c)))
		return nil, false
	}
	return claims, true
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Logout revokes the caller's current tokens
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, ok := h.claims(c)
	if !ok {
		return
	}

	// The refresh token is optional; an empty body only revokes the access token.
	var req logoutRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.BadRequest(c, err)
		return
	}

	if err := h.service.Logout(c.Request.Context(), claims, req.RefreshToken); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"message": "Logged out"})
}

// LogoutAll revokes every outstanding token for the caller
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	claims, ok := h.claims(c)
	if !ok {
		return
	}

	if err := h.service.LogoutAll(c.Request.Context(), claims.UserID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"message": "All sessions revoked"})
}
