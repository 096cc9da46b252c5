package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/caixaops/backend/internal/domain/cashday"
)

// GormUnitOfWork implements cashday.UnitOfWork on a GORM transaction.
// Repositories handed to the callback are bound to the transaction handle,
// so a failed closing transition rolls back the row update, the trail
// insert, and any entry writes together.
type GormUnitOfWork struct {
	db *gorm.DB
}

// NewGormUnitOfWork creates a new GormUnitOfWork
func NewGormUnitOfWork(db *gorm.DB) *GormUnitOfWork {
	return &GormUnitOfWork{db: db}
}

// Execute runs fn inside one database transaction
func (u *GormUnitOfWork) Execute(ctx context.Context, fn func(repos cashday.Repositories) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(cashday.Repositories{
			Closings: NewGormClosingRepository(tx),
			Entries:  NewGormRevenueEntryRepository(tx),
			Units:    NewGormUnitRepository(tx),
		})
	})
}
