package identity

import (
	"context"

	"github.com/google/uuid"

	"github.com/caixaops/backend/internal/domain/tenancy"
)

// UserRepository provides access to user records
type UserRepository interface {
	FindByID(ctx context.Context, scope tenancy.AccessScope, id uuid.UUID) (*User, error)
	// FindByUsername is used by login before a scope exists; it is the one
	// deliberate unscoped read in the system.
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindAll(ctx context.Context, scope tenancy.AccessScope) ([]User, error)
	Save(ctx context.Context, scope tenancy.AccessScope, user *User) error
	Update(ctx context.Context, scope tenancy.AccessScope, user *User) error
}
