package handler

import (
	"github.com/gin-gonic/gin"

	appidentity "github.com/caixaops/backend/internal/application/identity"
	"github.com/caixaops/backend/internal/domain/identity"
	"github.com/caixaops/backend/internal/interfaces/http/middleware"
)

// UserHandler exposes user administration endpoints
type UserHandler struct {
	BaseHandler
	service *appidentity.UserService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(service *appidentity.UserService) *UserHandler {
	return &UserHandler{service: service}
}

// RegisterRoutes registers user routes on the given group
func (h *UserHandler) RegisterRoutes(rg *gin.RouterGroup) {
	users := rg.Group("/users", middleware.RequireCapability(identity.CapManageUsers))
	{
		users.POST("", h.CreateUser)
		users.GET("", h.ListUsers)
		users.GET("/:id", h.GetUser)
		users.PUT("/:id/roles", h.AssignRoles)
		users.POST("/:id/deactivate", h.DeactivateUser)
	}
}

// CreateUser registers a new user account
func (h *UserHandler) CreateUser(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req appidentity.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}

	resp, err := h.service.CreateUser(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, resp)
}

// ListUsers returns the users visible to the caller
func (h *UserHandler) ListUsers(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	resp, err := h.service.ListUsers(c.Request.Context(), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// GetUser returns a single user
func (h *UserHandler) GetUser(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	resp, err := h.service.GetUser(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// AssignRoles replaces a user's role set
func (h *UserHandler) AssignRoles(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	var req appidentity.AssignRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}

	resp, err := h.service.AssignRoles(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// DeactivateUser disables a user account
func (h *UserHandler) DeactivateUser(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	resp, err := h.service.DeactivateUser(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}
