package tenancy

import (
	"time"

	"github.com/caixaops/backend/internal/domain/shared"
)

// SubscriptionStatus represents a tenant's subscription state
type SubscriptionStatus string

const (
	SubscriptionTrial     SubscriptionStatus = "TRIAL"
	SubscriptionActive    SubscriptionStatus = "ACTIVE"
	SubscriptionSuspended SubscriptionStatus = "SUSPENDED"
)

// IsValid reports whether the status is a known value
func (s SubscriptionStatus) IsValid() bool {
	switch s {
	case SubscriptionTrial, SubscriptionActive, SubscriptionSuspended:
		return true
	}
	return false
}

// Tenant represents one customer organization, the isolation boundary
// for every other record in the system. Tenants are never hard-deleted;
// deactivation sets DeletedAt so historical closings stay auditable.
type Tenant struct {
	shared.BaseAggregateRoot
	Name         string             `gorm:"type:varchar(200);not null"`
	Subscription SubscriptionStatus `gorm:"type:varchar(20);not null;default:'TRIAL'"`
	DeletedAt    *time.Time         `gorm:"index"`
}

// TableName returns the table name for GORM
func (Tenant) TableName() string {
	return "tenants"
}

// NewTenant provisions a new tenant
func NewTenant(name string) (*Tenant, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_TENANT_NAME", "Tenant name cannot be empty")
	}
	if len(name) > 200 {
		return nil, shared.NewDomainError("INVALID_TENANT_NAME", "Tenant name cannot exceed 200 characters")
	}
	t := &Tenant{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Subscription:      SubscriptionTrial,
	}
	t.AddDomainEvent(NewTenantProvisionedEvent(t))
	return t, nil
}

// IsActive reports whether the tenant may use the platform
func (t *Tenant) IsActive() bool {
	return t.DeletedAt == nil && t.Subscription != SubscriptionSuspended
}

// ChangeSubscription moves the tenant to a new subscription status
func (t *Tenant) ChangeSubscription(status SubscriptionStatus) error {
	if !status.IsValid() {
		return shared.NewDomainErrorf("INVALID_SUBSCRIPTION", "Unknown subscription status %q", status)
	}
	t.Subscription = status
	t.UpdatedAt = time.Now()
	t.IncrementVersion()
	return nil
}

// Deactivate soft-deletes the tenant
func (t *Tenant) Deactivate() error {
	if t.DeletedAt != nil {
		return shared.NewDomainError("ALREADY_DEACTIVATED", "Tenant is already deactivated")
	}
	now := time.Now()
	t.DeletedAt = &now
	t.UpdatedAt = now
	t.IncrementVersion()
	return nil
}

// TenantProvisionedEvent is raised when a tenant is created
type TenantProvisionedEvent struct {
	shared.BaseDomainEvent
	Name string `json:"name"`
}

// NewTenantProvisionedEvent creates a TenantProvisionedEvent
func NewTenantProvisionedEvent(t *Tenant) *TenantProvisionedEvent {
	return &TenantProvisionedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("tenancy.tenant.provisioned", "Tenant", t.ID, t.ID),
		Name:            t.Name,
	}
}

// EventTypeTenantProvisioned is the event type emitted on provisioning
const EventTypeTenantProvisioned = "tenancy.tenant.provisioned"
