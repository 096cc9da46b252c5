package integration

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caixaops/backend/internal/domain/identity"
)

type closingPayload struct {
	ID              uuid.UUID       `json:"id"`
	Status          string          `json:"status"`
	OpeningFloat    decimal.Decimal `json:"opening_float"`
	CalculatedTotal decimal.Decimal `json:"calculated_total"`
	ConferredTotal  decimal.Decimal `json:"conferred_total"`
	ReconciledTotal decimal.Decimal `json:"reconciled_total"`
	Difference      decimal.Decimal `json:"difference"`
	HasSignature    bool            `json:"has_signature"`
	ReopenReason    string          `json:"reopen_reason"`
	Trail           []struct {
		Action       string `json:"action"`
		HadSignature bool   `json:"had_signature"`
	} `json:"trail"`
	Version int `json:"version"`
}

func TestClosingLifecycleOverHTTP(t *testing.T) {
	srv := NewTestServer(t)
	tn := srv.SeedTenant(t, "Rede Alfa")
	unit := srv.SeedUnit(t, tn.ID, "Loja Centro", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	_, operatorToken := srv.SeedUser(t, &tn.ID, "operator1", identity.RoleOperator)
	_, supervisorToken := srv.SeedUser(t, &tn.ID, "supervisor1", identity.RoleSupervisor)

	day := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	// Open the day with a float of 100
	rec, resp := srv.Do(t, http.MethodPost, "/api/v1/closings", operatorToken, map[string]any{
		"unit_id":       unit.ID,
		"date":          day,
		"opening_float": "100",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var opened closingPayload
	decodeData(t, resp, &opened)
	assert.Equal(t, "OPEN", opened.Status)

	// Record three revenue windows
	for i, amount := range []string{"200", "150", "300.50"} {
		rec, _ = srv.Do(t, http.MethodPost, fmt.Sprintf("/api/v1/closings/%s/entries", opened.ID), operatorToken, map[string]any{
			"amount":       amount,
			"window_start": day.Add(time.Duration(9+i) * time.Hour),
			"window_end":   day.Add(time.Duration(10+i) * time.Hour),
			"origin":       "AUTOMATED",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	// Close with a matching drawer count
	rec, resp = srv.Do(t, http.MethodPost, fmt.Sprintf("/api/v1/closings/%s/close", opened.ID), operatorToken, map[string]any{
		"conferred_total": "750.50",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var closed closingPayload
	decodeData(t, resp, &closed)
	assert.Equal(t, "CLOSED", closed.Status)
	assert.True(t, closed.CalculatedTotal.Equal(decimal.RequireFromString("750.50")))
	assert.True(t, closed.Difference.IsZero())
	assert.True(t, closed.HasSignature)

	// Operators cannot confer their own closings
	rec, _ = srv.Do(t, http.MethodPost, fmt.Sprintf("/api/v1/closings/%s/confer", opened.ID), operatorToken, map[string]any{
		"approved":         true,
		"reconciled_total": "750.50",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())

	// Supervisor approves
	rec, resp = srv.Do(t, http.MethodPost, fmt.Sprintf("/api/v1/closings/%s/confer", opened.ID), supervisorToken, map[string]any{
		"approved":         true,
		"reconciled_total": "750.50",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var confirmed closingPayload
	decodeData(t, resp, &confirmed)
	assert.Equal(t, "CONFIRMED", confirmed.Status)

	// The audit trail is exposed on the detail view
	rec, resp = srv.Do(t, http.MethodGet, fmt.Sprintf("/api/v1/closings/%s", opened.ID), supervisorToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var detail closingPayload
	decodeData(t, resp, &detail)
	require.Len(t, detail.Trail, 2)
	assert.Equal(t, "CLOSED", detail.Trail[0].Action)
	assert.Equal(t, "CONFIRMED", detail.Trail[1].Action)

	// Opening the same unit and date again conflicts
	rec, resp = srv.Do(t, http.MethodPost, "/api/v1/closings", operatorToken, map[string]any{
		"unit_id":       unit.ID,
		"date":          day,
		"opening_float": "50",
	})
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	require.NotNil(t, resp.Error)
	assert.Equal(t, "ALREADY_OPEN", resp.Error.Code)
}

func TestRejectedConferenceReopensDayOverHTTP(t *testing.T) {
	srv := NewTestServer(t)
	tn := srv.SeedTenant(t, "Rede Alfa")
	unit := srv.SeedUnit(t, tn.ID, "Loja Norte", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	_, operatorToken := srv.SeedUser(t, &tn.ID, "operator2", identity.RoleOperator)
	_, supervisorToken := srv.SeedUser(t, &tn.ID, "supervisor2", identity.RoleSupervisor)

	day := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)

	_, resp := srv.Do(t, http.MethodPost, "/api/v1/closings", operatorToken, map[string]any{
		"unit_id":       unit.ID,
		"date":          day,
		"opening_float": "100",
	})
	var opened closingPayload
	decodeData(t, resp, &opened)

	rec, _ := srv.Do(t, http.MethodPost, fmt.Sprintf("/api/v1/closings/%s/entries", opened.ID), operatorToken, map[string]any{
		"amount":       "400",
		"window_start": day.Add(9 * time.Hour),
		"window_end":   day.Add(18 * time.Hour),
		"origin":       "AUTOMATED",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, _ = srv.Do(t, http.MethodPost, fmt.Sprintf("/api/v1/closings/%s/close", opened.ID), operatorToken, map[string]any{
		"conferred_total": "480",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Rejection sends the day back to OPEN and clears the signature
	rec, resp = srv.Do(t, http.MethodPost, fmt.Sprintf("/api/v1/closings/%s/confer", opened.ID), supervisorToken, map[string]any{
		"approved":         false,
		"reconciled_total": "500",
		"notes":            "Drawer count does not match",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var reopened closingPayload
	decodeData(t, resp, &reopened)
	assert.Equal(t, "OPEN", reopened.Status)
	assert.False(t, reopened.HasSignature)

	rec, resp = srv.Do(t, http.MethodGet, fmt.Sprintf("/api/v1/closings/%s", opened.ID), supervisorToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var detail closingPayload
	decodeData(t, resp, &detail)
	require.Len(t, detail.Trail, 2)
	assert.Equal(t, "REJECTED", detail.Trail[1].Action)
	assert.True(t, detail.Trail[1].HadSignature)

	// The reopened day accepts further entries
	rec, _ = srv.Do(t, http.MethodPost, fmt.Sprintf("/api/v1/closings/%s/entries", opened.ID), operatorToken, map[string]any{
		"amount":       "80",
		"window_start": day.Add(19 * time.Hour),
		"window_end":   day.Add(20 * time.Hour),
		"origin":       "MANUAL",
	})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestRequestsWithoutTokenAreRejected(t *testing.T) {
	srv := NewTestServer(t)

	rec, resp := srv.Do(t, http.MethodGet, "/api/v1/closings/pending", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, resp.Error)
}
