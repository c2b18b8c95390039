package order

import (
	"context"
	"time"

	"github.com/botica-labs/botica/internal/entity"
)

// Store persists orders. Create and Cancel are atomic: header, lines, and
// stock deltas commit together or roll back together.
type Store interface {
	Create(ctx context.Context, order *entity.Order) error
	GetByID(ctx context.Context, id int64) (*entity.Order, error)
	List(ctx context.Context) ([]*entity.Order, error)
	ListByDateRange(ctx context.Context, start, end time.Time) ([]*entity.Order, error)
	ListByCounterparty(ctx context.Context, id int64) ([]*entity.Order, error)
	Cancel(ctx context.Context, id int64) (*entity.Order, error)
	UpdateState(ctx context.Context, id int64, from, to entity.State) error
}

// Catalog exposes product lookups for validation and name snapshots.
type Catalog interface {
	GetProduct(ctx context.Context, id int64) (*entity.Product, error)
}

// Directory answers counterparty and operator existence checks.
type Directory interface {
	CustomerExists(ctx context.Context, id int64) (bool, error)
	SupplierExists(ctx context.Context, id int64) (bool, error)
	UserExists(ctx context.Context, id int64) (bool, error)
}
