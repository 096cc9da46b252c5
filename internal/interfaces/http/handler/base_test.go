package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/caixaops/backend/internal/domain/shared"
	"github.com/caixaops/backend/internal/infrastructure/logger"
)

func TestHandleErrorLogsCrossTenantRejection(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.WarnLevel)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(http.MethodPut, "/api/v1/closings/abc", nil)
	c.Request = req.WithContext(logger.WithContext(req.Context(), zap.New(core)))

	h := &BaseHandler{}
	h.HandleError(c, shared.ErrTenantMismatch)

	assert.Equal(t, http.StatusForbidden, w.Code)

	entries := logs.FilterMessage("Cross-tenant write rejected").All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, true, fields["security_event"])
		assert.Equal(t, "TENANT_MISMATCH", fields["code"])
		assert.Equal(t, "/api/v1/closings/abc", fields["path"])
	}
}

func TestHandleErrorKeepsValidationFailuresQuiet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.WarnLevel)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/closings", nil)
	c.Request = req.WithContext(logger.WithContext(req.Context(), zap.New(core)))

	h := &BaseHandler{}
	h.HandleError(c, shared.ErrInvalidInput)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, logs.Len())
}
