package tenancy

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caixaops/backend/internal/domain/shared"
)

func TestAccessScope(t *testing.T) {
	tenantA := uuid.New()
	tenantB := uuid.New()

	t.Run("scoped sees only its own tenant", func(t *testing.T) {
		scope := ScopedTo(tenantA)
		assert.True(t, scope.CanAccess(tenantA))
		assert.False(t, scope.CanAccess(tenantB))
		assert.False(t, scope.IsUnrestricted())

		id, ok := scope.TenantID()
		require.True(t, ok)
		assert.Equal(t, tenantA, id)
	})

	t.Run("unrestricted sees every tenant", func(t *testing.T) {
		scope := Unrestricted()
		assert.True(t, scope.CanAccess(tenantA))
		assert.True(t, scope.CanAccess(tenantB))
		assert.True(t, scope.IsUnrestricted())

		_, ok := scope.TenantID()
		assert.False(t, ok)
	})

	t.Run("zero value is invalid and sees nothing", func(t *testing.T) {
		var scope AccessScope
		assert.False(t, scope.IsValid())
		assert.False(t, scope.CanAccess(tenantA))
		assert.Error(t, scope.GuardWrite(tenantA))
	})

	t.Run("scoping to the nil tenant is invalid", func(t *testing.T) {
		scope := ScopedTo(uuid.Nil)
		assert.False(t, scope.IsValid())
	})
}

func TestAccessScopeGuardWrite(t *testing.T) {
	tenantA := uuid.New()
	tenantB := uuid.New()

	t.Run("allows writes within the tenant", func(t *testing.T) {
		assert.NoError(t, ScopedTo(tenantA).GuardWrite(tenantA))
	})

	t.Run("rejects cross-tenant writes with TENANT_MISMATCH", func(t *testing.T) {
		err := ScopedTo(tenantA).GuardWrite(tenantB)
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "TENANT_MISMATCH", de.Code)
	})

	t.Run("unrestricted may write anywhere", func(t *testing.T) {
		assert.NoError(t, Unrestricted().GuardWrite(tenantB))
	})
}
