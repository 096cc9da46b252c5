package handler

import (
	"github.com/gin-gonic/gin"

	appcashday "github.com/caixaops/backend/internal/application/cashday"
)

// UnitHandler exposes unit management endpoints
type UnitHandler struct {
	BaseHandler
	service *appcashday.UnitService
}

// NewUnitHandler creates a new UnitHandler
func NewUnitHandler(service *appcashday.UnitService) *UnitHandler {
	return &UnitHandler{service: service}
}

// RegisterRoutes registers unit routes on the given group
func (h *UnitHandler) RegisterRoutes(rg *gin.RouterGroup) {
	units := rg.Group("/units")
	{
		units.POST("", h.CreateUnit)
		units.GET("", h.ListUnits)
		units.GET("/:id", h.GetUnit)
		units.PUT("/:id", h.UpdateUnit)
		units.POST("/:id/deactivate", h.DeactivateUnit)
	}
}

// CreateUnit registers a new unit
func (h *UnitHandler) CreateUnit(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req appcashday.CreateUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}

	resp, err := h.service.CreateUnit(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, resp)
}

// ListUnits returns the units visible to the caller
func (h *UnitHandler) ListUnits(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	resp, err := h.service.ListUnits(c.Request.Context(), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// GetUnit returns a single unit
func (h *UnitHandler) GetUnit(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	resp, err := h.service.GetUnit(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// UpdateUnit changes a unit's name and monthly target
func (h *UnitHandler) UpdateUnit(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	var req appcashday.UpdateUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}

	resp, err := h.service.UpdateUnit(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// DeactivateUnit closes a unit down from the given date
func (h *UnitHandler) DeactivateUnit(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	var req appcashday.DeactivateUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}

	resp, err := h.service.DeactivateUnit(c.Request.Context(), actor, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}
