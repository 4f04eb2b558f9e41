// Package repo holds the pieces every GORM repository shares: a connection
// that can be rebound to a transaction, and reusable query scopes.
package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/inventory-service/pkg/pagination"
)

// Base is embedded by repositories.
type Base struct {
	conn *gorm.DB
}

func NewBase(conn *gorm.DB) Base {
	return Base{conn: conn}
}

// DB returns the connection scoped to ctx.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.conn
	}
	return b.conn.WithContext(ctx)
}

// Bind returns a copy of b that queries through tx. A nil tx keeps b's
// connection.
func (b Base) Bind(tx *gorm.DB) Base {
	if tx != nil {
		b.conn = tx
	}
	return b
}

// ForUpdate locks the selected rows until the surrounding transaction ends.
func ForUpdate(q *gorm.DB) *gorm.DB {
	return q.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})
}

// ForUpdateSkipLocked is ForUpdate that leaves rows locked elsewhere out of
// the result instead of waiting for them.
func ForUpdateSkipLocked(q *gorm.DB) *gorm.DB {
	return q.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate, Options: clause.LockingOptionsSkipLocked})
}

// Page applies the limit and offset of p after normalising it.
func Page(p pagination.Params) func(*gorm.DB) *gorm.DB {
	p = p.Normalize()
	return func(q *gorm.DB) *gorm.DB {
		return q.Limit(p.Limit).Offset(p.Offset())
	}
}

// First runs q and returns the first matching row. A miss is
// gorm.ErrRecordNotFound.
func First[T any](q *gorm.DB) (*T, error) {
	var row T
	if err := q.First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}
