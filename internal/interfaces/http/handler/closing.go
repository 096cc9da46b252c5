package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	appcashday "github.com/caixaops/backend/internal/application/cashday"
	"github.com/caixaops/backend/internal/interfaces/http/dto"
)

// ClosingHandler exposes the cash-closing lifecycle over HTTP
type ClosingHandler struct {
	BaseHandler
	service *appcashday.ClosingService
}

// NewClosingHandler creates a new ClosingHandler
func NewClosingHandler(service *appcashday.ClosingService) *ClosingHandler {
	return &ClosingHandler{service: service}
}

// RegisterRoutes registers closing routes on the given group
func (h *ClosingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	closings := rg.Group("/closings")
	{
		closings.POST("", h.OpenDay)
		closings.GET("/pending", h.ListPending)
		closings.GET("/:id", h.GetClosing)
		closings.GET("/:id/entries", h.ListEntries)
		closings.POST("/:id/entries", h.RecordEntry)
		closings.POST("/:id/close", h.CloseDay)
		closings.POST("/:id/confer", h.ConferDay)
		closings.POST("/:id/reopen", h.ReopenDay)
		closings.POST("/:id/cancel", h.CancelDay)
	}
	rg.GET("/units/:id/closings", h.ListByUnit)
}

// closingQuery holds the list query parameters shared by closing listings
type closingQuery struct {
	dto.ListRequest
	Status string `form:"status"`
	From   string `form:"from"`
	To     string `form:"to"`
}

func (q *closingQuery) toFilter() (appcashday.ClosingListFilter, error) {
	q.Normalize()
	filter := appcashday.ClosingListFilter{
		Status:   q.Status,
		Page:     q.Page,
		PageSize: q.PageSize,
	}
	if q.From != "" {
		from, err := time.Parse("2006-01-02", q.From)
		if err != nil {
			return filter, err
		}
		filter.From = &from
	}
	if q.To != "" {
		to, err := time.Parse("2006-01-02", q.To)
		if err != nil {
			return filter, err
		}
		filter.To = &to
	}
	return filter, nil
}

// OpenDay handles POST /closings
func (h *ClosingHandler) OpenDay(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req appcashday.OpenDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}

	resp, err := h.service.OpenDay(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// RecordEntry handles POST /closings/:id/entries
func (h *ClosingHandler) RecordEntry(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	closingID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req appcashday.RecordEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}
	req.ClosingID = closingID

	resp, err := h.service.RecordEntry(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// CloseDay handles POST /closings/:id/close
func (h *ClosingHandler) CloseDay(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	closingID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req appcashday.CloseDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}
	req.ClosingID = closingID

	resp, err := h.service.CloseDay(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ConferDay handles POST /closings/:id/confer
func (h *ClosingHandler) ConferDay(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	closingID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req appcashday.ConferDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}
	req.ClosingID = closingID

	resp, err := h.service.ConferDay(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ReopenDay handles POST /closings/:id/reopen
func (h *ClosingHandler) ReopenDay(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	closingID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req appcashday.ReopenDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}
	req.ClosingID = closingID

	resp, err := h.service.ReopenDay(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// CancelDay handles POST /closings/:id/cancel
func (h *ClosingHandler) CancelDay(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	closingID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req appcashday.CancelDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}
	req.ClosingID = closingID

	resp, err := h.service.CancelDay(c.Request.Context(), actor, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// GetClosing handles GET /closings/:id
func (h *ClosingHandler) GetClosing(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	closingID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	resp, err := h.service.GetClosing(c.Request.Context(), actor, closingID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ListByUnit handles GET /units/:id/closings
func (h *ClosingHandler) ListByUnit(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	unitID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var query closingQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err)
		return
	}
	filter, err := query.toFilter()
	if err != nil {
		h.BadRequest(c, err)
		return
	}

	closings, total, err := h.service.ListByUnit(c.Request.Context(), actor, unitID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, closings, total, filter.Page, filter.PageSize)
}

// ListEntries handles GET /closings/:id/entries
func (h *ClosingHandler) ListEntries(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	closingID, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	includeInactive := c.Query("include_inactive") == "true"

	entries, err := h.service.ListEntries(c.Request.Context(), actor, closingID, includeInactive)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entries)
}

// ListPending handles GET /closings/pending
func (h *ClosingHandler) ListPending(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var query closingQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err)
		return
	}
	filter, err := query.toFilter()
	if err != nil {
		h.BadRequest(c, err)
		return
	}

	pending, err := h.service.ListPending(c.Request.Context(), actor, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, pending)
}
