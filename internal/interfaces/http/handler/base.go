package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/caixaops/backend/internal/domain/identity"
	"github.com/caixaops/backend/internal/domain/shared"
	"github.com/caixaops/backend/internal/infrastructure/logger"
	"github.com/caixaops/backend/internal/interfaces/http/dto"
	"github.com/caixaops/backend/internal/interfaces/http/middleware"
)

// BaseHandler provides the response helpers shared by all handlers
type BaseHandler struct{}

// Success sends a 200 response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a 200 response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BadRequest sends a 400 response, attaching field details when the error
// came from request binding
func (h *BaseHandler) BadRequest(c *gin.Context, err error) {
	if details := dto.BindingErrorDetails(err); len(details) > 0 {
		c.JSON(http.StatusBadRequest,
			dto.NewValidationErrorResponse("Request validation failed", middleware.GetRequestID(c), details))
		return
	}
	c.JSON(http.StatusBadRequest,
		dto.NewErrorResponse(dto.ErrCodeBadRequest, err.Error(), middleware.GetRequestID(c)))
}

// HandleError maps an application error to an HTTP response. Domain error
// codes carry through to the wire; anything else becomes a 500 without
// leaking internals.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		// A cross-tenant write attempt is a security event, not a user
		// mistake; it gets its own log line with the caller attached.
		if domainErr.Code == shared.ErrTenantMismatch.Code {
			fields := []zap.Field{
				zap.Bool("security_event", true),
				zap.String("code", domainErr.Code),
				zap.String("client_ip", c.ClientIP()),
				zap.String("path", c.Request.URL.Path),
			}
			if actor, ok := middleware.GetActor(c); ok {
				fields = append(fields, zap.String("user_id", actor.UserID.String()))
			}
			logger.FromContext(c.Request.Context()).Warn("Cross-tenant write rejected", fields...)
		}
		c.JSON(dto.GetHTTPStatus(domainErr.Code),
			dto.NewErrorResponse(domainErr.Code, domainErr.Message, middleware.GetRequestID(c)))
		return
	}
	logger.FromContext(c.Request.Context()).Error("Unhandled application error", zap.Error(err))
	c.JSON(http.StatusInternalServerError,
		dto.NewErrorResponse(dto.ErrCodeInternal, "An unexpected error occurred", middleware.GetRequestID(c)))
}

// actor returns the request's resolved actor, aborting with 401 when absent
func (h *BaseHandler) actor(c *gin.Context) (identity.Actor, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized,
			dto.NewErrorResponse(dto.ErrCodeUnauthorized, "Authentication required", middleware.GetRequestID(c)))
		return identity.Actor{}, false
	}
	return actor, true
}

// pathUUID parses a UUID path parameter, aborting with 400 on bad input
func (h *BaseHandler) pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest,
			dto.NewErrorResponse(dto.ErrCodeBadRequest, "Invalid "+name+" path parameter", middleware.GetRequestID(c)))
		return uuid.Nil, false
	}
	return id, true
}
