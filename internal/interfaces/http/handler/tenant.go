package handler

import (
	"github.com/gin-gonic/gin"

	apptenancy "github.com/caixaops/backend/internal/application/tenancy"
	"github.com/caixaops/backend/internal/domain/identity"
	"github.com/caixaops/backend/internal/interfaces/http/middleware"
)

// TenantHandler exposes tenant administration endpoints
type TenantHandler struct {
	BaseHandler
	service *apptenancy.TenantService
}

// NewTenantHandler creates a new TenantHandler
func NewTenantHandler(service *apptenancy.TenantService) *TenantHandler {
	return &TenantHandler{service: service}
}

// RegisterRoutes registers tenant routes on the given group. The capability
// gate keeps non-admin traffic out; the service checks again.
func (h *TenantHandler) RegisterRoutes(rg *gin.RouterGroup) {
	tenants := rg.Group("/tenants", middleware.RequireCapability(identity.CapManageTenants))
	{
		tenants.POST("", h.CreateTenant)
		tenants.GET("", h.ListTenants)
		tenants.GET("/:id", h.GetTenant)
		tenants.PUT("/:id/subscription", h.ChangeSubscription)
		tenants.POST("/:id/deactivate", h.DeactivateTenant)
	}
}

// CreateTenant provisions a new tenant
func (h *TenantHandler) CreateTenant(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req apptenancy.CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}

	resp, err := h.service.CreateTenant(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, resp)
}

// ListTenants returns all tenants
func (h *TenantHandler) ListTenants(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	resp, err := h.service.ListTenants(c.Request.Context(), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// GetTenant returns a single tenant
func (h *TenantHandler) GetTenant(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	resp, err := h.service.GetTenant(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// ChangeSubscription moves a tenant to a different subscription plan
func (h *TenantHandler) ChangeSubscription(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	var req apptenancy.ChangeSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}

	resp, err := h.service.ChangeSubscription(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// DeactivateTenant suspends a tenant
func (h *TenantHandler) DeactivateTenant(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	resp, err := h.service.DeactivateTenant(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}
