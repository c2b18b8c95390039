package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Product is a catalog item with its current shelf stock.
type Product struct {
	bun.BaseModel `bun:"table:products,alias:p"`

	ID        int64           `bun:",pk,autoincrement"`
	Name      string          `bun:"name,notnull"`
	Barcode   string          `bun:"barcode"`
	Price     decimal.Decimal `bun:"price,notnull"`
	Stock     int64           `bun:"stock,notnull"`
	Active    bool            `bun:"active,notnull,default:true"`
	CreatedAt time.Time       `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time       `bun:"updated_at,nullzero"`
}

// Customer buys over the counter; sales may also be anonymous.
type Customer struct {
	bun.BaseModel `bun:"table:customers,alias:c"`

	ID        int64     `bun:",pk,autoincrement"`
	Name      string    `bun:"name,notnull"`
	Phone     string    `bun:"phone"`
	Email     string    `bun:"email"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
}

// Supplier is the mandatory counterparty of a purchase.
type Supplier struct {
	bun.BaseModel `bun:"table:suppliers,alias:s"`

	ID        int64     `bun:",pk,autoincrement"`
	Name      string    `bun:"name,notnull"`
	Phone     string    `bun:"phone"`
	Email     string    `bun:"email"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
}

// User is the operator recorded on every order.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID        int64     `bun:",pk,autoincrement"`
	Username  string    `bun:"username,notnull"`
	FullName  string    `bun:"full_name"`
	Active    bool      `bun:"active,notnull,default:true"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
}
