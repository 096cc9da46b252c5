package integration

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caixaops/backend/internal/domain/identity"
)

func TestTenantIsolationOverHTTP(t *testing.T) {
	srv := NewTestServer(t)
	tenantA := srv.SeedTenant(t, "Rede Alfa")
	tenantB := srv.SeedTenant(t, "Rede Beta")

	unitA := srv.SeedUnit(t, tenantA.ID, "Loja Centro", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	srv.SeedUnit(t, tenantB.ID, "Loja Sul", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	_, tokenA := srv.SeedUser(t, &tenantA.ID, "manager-a", identity.RoleManager)
	_, tokenB := srv.SeedUser(t, &tenantB.ID, "manager-b", identity.RoleManager)
	_, adminToken := srv.SeedUser(t, nil, "platform-admin", identity.RoleAdmin)

	day := time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)
	rec, resp := srv.Do(t, http.MethodPost, "/api/v1/closings", tokenA, map[string]any{
		"unit_id":       unitA.ID,
		"date":          day,
		"opening_float": "100",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var opened closingPayload
	decodeData(t, resp, &opened)

	// Another tenant's manager cannot see the closing, not even its existence
	rec, resp = srv.Do(t, http.MethodGet, fmt.Sprintf("/api/v1/closings/%s", opened.ID), tokenB, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)

	// Nor mutate it
	rec, _ = srv.Do(t, http.MethodPost, fmt.Sprintf("/api/v1/closings/%s/close", opened.ID), tokenB, map[string]any{
		"conferred_total": "100",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())

	// Unit listings stay within the caller's tenant
	rec, resp = srv.Do(t, http.MethodGet, "/api/v1/units", tokenB, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var unitsB []struct {
		Name string `json:"name"`
	}
	decodeData(t, resp, &unitsB)
	require.Len(t, unitsB, 1)
	assert.Equal(t, "Loja Sul", unitsB[0].Name)

	// A platform admin without a tenant binding sees across tenants
	rec, resp = srv.Do(t, http.MethodGet, "/api/v1/units", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var unitsAll []struct {
		Name string `json:"name"`
	}
	decodeData(t, resp, &unitsAll)
	assert.Len(t, unitsAll, 2)

	rec, _ = srv.Do(t, http.MethodGet, fmt.Sprintf("/api/v1/closings/%s", opened.ID), adminToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestTenantManagementRequiresAdmin(t *testing.T) {
	srv := NewTestServer(t)
	tenantA := srv.SeedTenant(t, "Rede Alfa")

	_, managerToken := srv.SeedUser(t, &tenantA.ID, "manager-a", identity.RoleManager)
	_, adminToken := srv.SeedUser(t, nil, "platform-admin", identity.RoleAdmin)

	rec, _ := srv.Do(t, http.MethodPost, "/api/v1/tenants", managerToken, map[string]any{
		"name": "Rede Gama",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())

	rec, resp := srv.Do(t, http.MethodPost, "/api/v1/tenants", adminToken, map[string]any{
		"name": "Rede Gama",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Name   string `json:"name"`
		Active bool   `json:"active"`
	}
	decodeData(t, resp, &created)
	assert.Equal(t, "Rede Gama", created.Name)
	assert.True(t, created.Active)
}
