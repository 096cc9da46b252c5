package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/caixaops/backend/internal/domain/identity"
	"github.com/caixaops/backend/internal/domain/shared"
)

// UserService manages user accounts
type UserService struct {
	users  identity.UserRepository
	logger *zap.Logger
}

// NewUserService creates a new UserService
func NewUserService(users identity.UserRepository, logger *zap.Logger) *UserService {
	return &UserService{users: users, logger: logger}
}

// UserResponse is a user in API responses. The password hash never leaves
// the service layer.
type UserResponse struct {
	ID          uuid.UUID  `json:"id"`
	TenantID    *uuid.UUID `json:"tenant_id,omitempty"`
	Username    string     `json:"username"`
	DisplayName string     `json:"display_name,omitempty"`
	Roles       []string   `json:"roles"`
	Active      bool       `json:"active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CreateUserRequest creates a user account
type CreateUserRequest struct {
	Username    string   `json:"username" binding:"required"`
	DisplayName string   `json:"display_name"`
	Password    string   `json:"password" binding:"required"`
	Roles       []string `json:"roles" binding:"required"`
	// TenantID is honored only for unrestricted callers; nil there creates
	// a platform-level user. Tenant-scoped callers always create under
	// their own tenant.
	TenantID *uuid.UUID `json:"tenant_id"`
}

// AssignRolesRequest replaces a user's roles
type AssignRolesRequest struct {
	Roles []string `json:"roles" binding:"required"`
}

// CreateUser creates a user under the actor's tenant
func (s *UserService) CreateUser(ctx context.Context, actor identity.Actor, req CreateUserRequest) (*UserResponse, error) {
	if !actor.Can(identity.CapManageUsers) {
		return nil, shared.NewDomainError("FORBIDDEN", "Managing users requires the users:manage capability")
	}

	tenantID := req.TenantID
	if ownTenant, ok := actor.Scope().TenantID(); ok {
		tenantID = &ownTenant
	}

	user, err := identity.NewUser(tenantID, req.Username, req.DisplayName, req.Password, parseRoles(req.Roles))
	if err != nil {
		return nil, err
	}
	if err := s.users.Save(ctx, actor.Scope(), user); err != nil {
		return nil, err
	}

	s.logger.Info("User created",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username))
	return toUserResponse(user), nil
}

// GetUser returns one user
func (s *UserService) GetUser(ctx context.Context, actor identity.Actor, id uuid.UUID) (*UserResponse, error) {
	user, err := s.users.FindByID(ctx, actor.Scope(), id)
	if err != nil {
		return nil, err
	}
	return toUserResponse(user), nil
}

// ListUsers returns all users visible to the actor
func (s *UserService) ListUsers(ctx context.Context, actor identity.Actor) ([]UserResponse, error) {
	users, err := s.users.FindAll(ctx, actor.Scope())
	if err != nil {
		return nil, err
	}
	responses := make([]UserResponse, len(users))
	for i := range users {
		responses[i] = *toUserResponse(&users[i])
	}
	return responses, nil
}

// AssignRoles replaces a user's roles. Outstanding tokens keep their old
// capabilities until they expire or are revoked; callers wanting an
// immediate effect pair this with a session revocation.
func (s *UserService) AssignRoles(ctx context.Context, actor identity.Actor, id uuid.UUID, req AssignRolesRequest) (*UserResponse, error) {
	if !actor.Can(identity.CapManageUsers) {
		return nil, shared.NewDomainError("FORBIDDEN", "Managing users requires the users:manage capability")
	}

	user, err := s.users.FindByID(ctx, actor.Scope(), id)
	if err != nil {
		return nil, err
	}
	if err := user.AssignRoles(parseRoles(req.Roles)); err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, actor.Scope(), user); err != nil {
		return nil, err
	}
	return toUserResponse(user), nil
}

// DeactivateUser disables a user account
func (s *UserService) DeactivateUser(ctx context.Context, actor identity.Actor, id uuid.UUID) (*UserResponse, error) {
	if !actor.Can(identity.CapManageUsers) {
		return nil, shared.NewDomainError("FORBIDDEN", "Managing users requires the users:manage capability")
	}

	user, err := s.users.FindByID(ctx, actor.Scope(), id)
	if err != nil {
		return nil, err
	}
	user.Deactivate()
	if err := s.users.Update(ctx, actor.Scope(), user); err != nil {
		return nil, err
	}

	s.logger.Info("User deactivated", zap.String("user_id", user.ID.String()))
	return toUserResponse(user), nil
}

func toUserResponse(u *identity.User) *UserResponse {
	roles := u.Roles()
	roleStrings := make([]string, len(roles))
	for i, r := range roles {
		roleStrings[i] = string(r)
	}
	return &UserResponse{
		ID:          u.ID,
		TenantID:    u.TenantID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Roles:       roleStrings,
		Active:      u.Active,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func parseRoles(raw []string) []identity.Role {
	roles := make([]identity.Role, len(raw))
	for i, r := range raw {
		roles[i] = identity.Role(r)
	}
	return roles
}
