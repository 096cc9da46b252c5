package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/caixaops/backend/internal/domain/shared"
)

// User is an authenticated platform identity. TenantID is nil for
// system/admin users, which resolve to an unrestricted access scope.
type User struct {
	shared.BaseAggregateRoot
	TenantID     *uuid.UUID `gorm:"type:uuid;index"`
	Username     string     `gorm:"type:varchar(100);not null;uniqueIndex"`
	DisplayName  string     `gorm:"type:varchar(200)"`
	PasswordHash string     `gorm:"type:varchar(100);not null"`
	RoleList     string     `gorm:"column:roles;type:varchar(200);not null"`
	Active       bool       `gorm:"not null;default:true"`
	LastLoginAt  *time.Time
}

// TableName returns the table name for GORM
func (User) TableName() string {
	return "users"
}

// NewUser creates a user with a bcrypt-hashed password
func NewUser(tenantID *uuid.UUID, username, displayName, password string, roles []Role) (*User, error) {
	if username == "" {
		return nil, shared.NewDomainError("INVALID_USERNAME", "Username cannot be empty")
	}
	if len(password) < 8 {
		return nil, shared.NewDomainError("WEAK_PASSWORD", "Password must be at least 8 characters")
	}
	if len(roles) == 0 {
		return nil, shared.NewDomainError("INVALID_ROLES", "User must hold at least one role")
	}
	for _, r := range roles {
		if !r.IsValid() {
			return nil, shared.NewDomainErrorf("INVALID_ROLES", "Unknown role %q", r)
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &User{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		TenantID:          tenantID,
		Username:          username,
		DisplayName:       displayName,
		PasswordHash:      string(hash),
		RoleList:          encodeRoles(roles),
		Active:            true,
	}, nil
}

// CheckPassword verifies a candidate password against the stored hash
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// Roles returns the user's roles
func (u *User) Roles() []Role {
	parts := strings.Split(u.RoleList, ",")
	roles := make([]Role, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			roles = append(roles, Role(p))
		}
	}
	return roles
}

// AssignRoles replaces the user's roles
func (u *User) AssignRoles(roles []Role) error {
	if len(roles) == 0 {
		return shared.NewDomainError("INVALID_ROLES", "User must hold at least one role")
	}
	for _, r := range roles {
		if !r.IsValid() {
			return shared.NewDomainErrorf("INVALID_ROLES", "Unknown role %q", r)
		}
	}
	u.RoleList = encodeRoles(roles)
	u.UpdatedAt = time.Now()
	u.IncrementVersion()
	return nil
}

// Capabilities returns the capability set granted by the user's roles
func (u *User) Capabilities() CapabilitySet {
	return CapabilitiesFor(u.Roles())
}

// RecordLogin stamps the last successful login time
func (u *User) RecordLogin(at time.Time) {
	u.LastLoginAt = &at
	u.UpdatedAt = at
	u.IncrementVersion()
}

// Deactivate disables the user
func (u *User) Deactivate() {
	u.Active = false
	u.UpdatedAt = time.Now()
	u.IncrementVersion()
}

func encodeRoles(roles []Role) string {
	parts := make([]string, len(roles))
	for i, r := range roles {
		parts[i] = string(r)
	}
	return strings.Join(parts, ",")
}
