package identity

import (
	"github.com/google/uuid"

	"github.com/caixaops/backend/internal/domain/tenancy"
)

// Actor is the resolved caller identity for one request: who is acting,
// which tenant they belong to (nil for system/admin identities) and what
// they are allowed to do. It is built fresh per request from verified
// claims and passed explicitly to every operation that needs it.
type Actor struct {
	UserID       uuid.UUID
	TenantID     *uuid.UUID
	Roles        []Role
	capabilities CapabilitySet
}

// NewActor builds an actor from verified identity attributes
func NewActor(userID uuid.UUID, tenantID *uuid.UUID, roles []Role) Actor {
	return Actor{
		UserID:       userID,
		TenantID:     tenantID,
		Roles:        roles,
		capabilities: CapabilitiesFor(roles),
	}
}

// Scope resolves the actor's tenant access scope
func (a Actor) Scope() tenancy.AccessScope {
	if a.TenantID == nil {
		return tenancy.Unrestricted()
	}
	return tenancy.ScopedTo(*a.TenantID)
}

// Can reports whether the actor holds the capability
func (a Actor) Can(cap Capability) bool {
	return a.capabilities.Has(cap)
}
