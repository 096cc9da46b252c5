package identity

// Role is a position in the approval hierarchy.
// Higher roles inherit every capability of the roles below them.
type Role string

const (
	RoleOperator   Role = "OPERATOR"
	RoleLeader     Role = "LEADER"
	RoleSupervisor Role = "SUPERVISOR"
	RoleManager    Role = "MANAGER"
	RoleAdmin      Role = "ADMIN"
)

// IsValid reports whether the role is a known value
func (r Role) IsValid() bool {
	switch r {
	case RoleOperator, RoleLeader, RoleSupervisor, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// rank orders roles for hierarchy comparisons; higher outranks lower
func (r Role) rank() int {
	switch r {
	case RoleOperator:
		return 1
	case RoleLeader:
		return 2
	case RoleSupervisor:
		return 3
	case RoleManager:
		return 4
	case RoleAdmin:
		return 5
	}
	return 0
}

// AtLeast reports whether the role outranks or equals the given role
func (r Role) AtLeast(other Role) bool {
	return r.rank() >= other.rank()
}

// Capability is a discrete permission gating one class of operations.
// State-machine transitions are authorized against capabilities, never
// against role-name string comparisons.
type Capability string

const (
	CapOpenDay       Capability = "cashday:open"
	CapRecordEntry   Capability = "cashday:record"
	CapCloseDay      Capability = "cashday:close"
	CapAudit         Capability = "cashday:audit"
	CapReopen        Capability = "cashday:reopen"
	CapCancel        Capability = "cashday:cancel"
	CapManageUnits   Capability = "units:manage"
	CapManageUsers   Capability = "users:manage"
	CapManageTenants Capability = "tenants:manage"
)

// CapabilitySet is the set of capabilities a caller holds
type CapabilitySet map[Capability]struct{}

// Has reports whether the set contains the capability
func (s CapabilitySet) Has(cap Capability) bool {
	_, ok := s[cap]
	return ok
}

// List returns the capabilities as strings, for claims serialization
func (s CapabilitySet) List() []string {
	out := make([]string, 0, len(s))
	for c := range s {
		out = append(out, string(c))
	}
	return out
}

// roleGrants maps the minimum role required to hold each capability
var roleGrants = map[Capability]Role{
	CapOpenDay:       RoleOperator,
	CapRecordEntry:   RoleOperator,
	CapCloseDay:      RoleOperator,
	CapAudit:         RoleSupervisor,
	CapReopen:        RoleManager,
	CapCancel:        RoleManager,
	CapManageUnits:   RoleManager,
	CapManageUsers:   RoleManager,
	CapManageTenants: RoleAdmin,
}

// CapabilitiesFor computes the capability set granted by a list of roles
func CapabilitiesFor(roles []Role) CapabilitySet {
	set := make(CapabilitySet)
	for cap, min := range roleGrants {
		for _, r := range roles {
			if r.AtLeast(min) {
				set[cap] = struct{}{}
				break
			}
		}
	}
	return set
}

// ParseCapabilities rebuilds a capability set from claim strings
func ParseCapabilities(raw []string) CapabilitySet {
	set := make(CapabilitySet, len(raw))
	for _, c := range raw {
		set[Capability(c)] = struct{}{}
	}
	return set
}
