package tenancy

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/caixaops/backend/internal/domain/identity"
	"github.com/caixaops/backend/internal/domain/shared"
	"github.com/caixaops/backend/internal/domain/tenancy"
)

// TenantService manages tenant provisioning and lifecycle. Every mutation
// requires the tenants:manage capability, which only platform admins hold.
type TenantService struct {
	tenants tenancy.TenantRepository
	events  shared.EventPublisher
	logger  *zap.Logger
}

// NewTenantService creates a new TenantService
func NewTenantService(tenants tenancy.TenantRepository, events shared.EventPublisher, logger *zap.Logger) *TenantService {
	return &TenantService{tenants: tenants, events: events, logger: logger}
}

// TenantResponse is a tenant in API responses
type TenantResponse struct {
	ID           uuid.UUID  `json:"id"`
	Name         string     `json:"name"`
	Subscription string     `json:"subscription"`
	Active       bool       `json:"active"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Version      int        `json:"version"`
}

// CreateTenantRequest provisions a tenant
type CreateTenantRequest struct {
	Name string `json:"name" binding:"required"`
}

// ChangeSubscriptionRequest moves a tenant to a new subscription status
type ChangeSubscriptionRequest struct {
	Subscription string `json:"subscription" binding:"required"`
}

// CreateTenant provisions a new tenant
func (s *TenantService) CreateTenant(ctx context.Context, actor identity.Actor, req CreateTenantRequest) (*TenantResponse, error) {
	if !actor.Can(identity.CapManageTenants) {
		return nil, shared.NewDomainError("FORBIDDEN", "Managing tenants requires the tenants:manage capability")
	}

	tenant, err := tenancy.NewTenant(req.Name)
	if err != nil {
		return nil, err
	}
	if err := s.tenants.Save(ctx, actor.Scope(), tenant); err != nil {
		return nil, err
	}

	if err := s.events.Publish(ctx, tenant.GetDomainEvents()...); err != nil {
		s.logger.Warn("Failed to publish tenant events", zap.Error(err))
	}
	tenant.ClearDomainEvents()

	s.logger.Info("Tenant provisioned",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("name", tenant.Name))
	return toTenantResponse(tenant), nil
}

// GetTenant returns one tenant. Tenant-scoped callers can only ever see
// their own tenant; anything else reads as not found.
func (s *TenantService) GetTenant(ctx context.Context, actor identity.Actor, id uuid.UUID) (*TenantResponse, error) {
	tenant, err := s.tenants.FindByID(ctx, actor.Scope(), id)
	if err != nil {
		return nil, err
	}
	return toTenantResponse(tenant), nil
}

// ListTenants returns the active tenants visible to the actor
func (s *TenantService) ListTenants(ctx context.Context, actor identity.Actor) ([]TenantResponse, error) {
	tenants, err := s.tenants.FindAllActive(ctx, actor.Scope())
	if err != nil {
		return nil, err
	}
	responses := make([]TenantResponse, len(tenants))
	for i := range tenants {
		responses[i] = *toTenantResponse(&tenants[i])
	}
	return responses, nil
}

// ChangeSubscription moves a tenant to a new subscription status.
// Suspension takes effect at the next request; suspended tenants keep their
// data but their users cannot act.
func (s *TenantService) ChangeSubscription(ctx context.Context, actor identity.Actor, id uuid.UUID, req ChangeSubscriptionRequest) (*TenantResponse, error) {
	if !actor.Can(identity.CapManageTenants) {
		return nil, shared.NewDomainError("FORBIDDEN", "Managing tenants requires the tenants:manage capability")
	}

	tenant, err := s.tenants.FindByID(ctx, actor.Scope(), id)
	if err != nil {
		return nil, err
	}
	if err := tenant.ChangeSubscription(tenancy.SubscriptionStatus(req.Subscription)); err != nil {
		return nil, err
	}
	if err := s.tenants.Update(ctx, actor.Scope(), tenant); err != nil {
		return nil, err
	}

	s.logger.Info("Tenant subscription changed",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("subscription", req.Subscription))
	return toTenantResponse(tenant), nil
}

// DeactivateTenant soft-deletes a tenant. Historical closings stay
// queryable for audit; the tenant's users simply lose access.
func (s *TenantService) DeactivateTenant(ctx context.Context, actor identity.Actor, id uuid.UUID) (*TenantResponse, error) {
	if !actor.Can(identity.CapManageTenants) {
		return nil, shared.NewDomainError("FORBIDDEN", "Managing tenants requires the tenants:manage capability")
	}

	tenant, err := s.tenants.FindByID(ctx, actor.Scope(), id)
	if err != nil {
		return nil, err
	}
	if err := tenant.Deactivate(); err != nil {
		return nil, err
	}
	if err := s.tenants.Update(ctx, actor.Scope(), tenant); err != nil {
		return nil, err
	}

	s.logger.Info("Tenant deactivated", zap.String("tenant_id", tenant.ID.String()))
	return toTenantResponse(tenant), nil
}

func toTenantResponse(t *tenancy.Tenant) *TenantResponse {
	return &TenantResponse{
		ID:           t.ID,
		Name:         t.Name,
		Subscription: string(t.Subscription),
		Active:       t.IsActive(),
		DeletedAt:    t.DeletedAt,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
		Version:      t.Version,
	}
}
