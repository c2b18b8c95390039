package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Kind distinguishes the two order flavours sharing one table.
type Kind string

const (
	KindSale     Kind = "sale"
	KindPurchase Kind = "purchase"
)

// Valid reports whether the kind is one of the known values.
func (k Kind) Valid() bool {
	return k == KindSale || k == KindPurchase
}

// State models the per-kind order lifecycle. Sales jump straight to
// completed on create; purchases start pending and move through the
// transition table in the order service. Cancelled is terminal for both.
type State string

const (
	StateCompleted State = "completed"
	StatePending   State = "pending"
	StateReceived  State = "received"
	StateCancelled State = "cancelled"
)

// ValidForPurchase reports whether the state belongs to the purchase lifecycle.
func (s State) ValidForPurchase() bool {
	return s == StatePending || s == StateReceived || s == StateCancelled
}

// PaymentMethod enumerates accepted sale tender types.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentCard     PaymentMethod = "card"
	PaymentTransfer PaymentMethod = "transfer"
)

// Valid reports whether the payment method is accepted at the register.
func (m PaymentMethod) Valid() bool {
	return m == PaymentCash || m == PaymentCard || m == PaymentTransfer
}

// Order is a sale or purchase header. Kind-specific fields are pointers or
// zero values on the other kind: customer/discount/payment method belong to
// sales, supplier to purchases.
type Order struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID            int64           `bun:",pk,autoincrement"`
	Kind          Kind            `bun:"kind,notnull"`
	OccurredAt    time.Time       `bun:"occurred_at,notnull"`
	CustomerID    *int64          `bun:"customer_id"`
	SupplierID    *int64          `bun:"supplier_id"`
	UserID        int64           `bun:"user_id,notnull"`
	Subtotal      decimal.Decimal `bun:"subtotal,notnull"`
	Discount      decimal.Decimal `bun:"discount,notnull"`
	Tax           decimal.Decimal `bun:"tax,notnull"`
	Total         decimal.Decimal `bun:"total,notnull"`
	PaymentMethod PaymentMethod   `bun:"payment_method"`
	State         State           `bun:"state,notnull"`
	Notes         string          `bun:"notes"`
	CreatedAt     time.Time       `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time       `bun:"updated_at,nullzero"`

	Lines []*OrderLine `bun:"rel:has-many,join:id=order_id"`
}

// CounterpartyID returns the customer or supplier id depending on kind.
// Nil for anonymous sales.
func (o *Order) CounterpartyID() *int64 {
	if o.Kind == KindPurchase {
		return o.SupplierID
	}
	return o.CustomerID
}

// StockDelta returns the signed stock change one unit of this order applies:
// sales take stock out, purchases bring it in.
func (o *Order) StockDelta(qty int64) int64 {
	if o.Kind == KindSale {
		return -qty
	}
	return qty
}

// OrderLine is one product position within an order. ProductName snapshots
// the catalog name at sale time so historical tickets survive renames.
type OrderLine struct {
	bun.BaseModel `bun:"table:order_lines,alias:ol"`

	ID          int64           `bun:",pk,autoincrement"`
	OrderID     int64           `bun:"order_id,notnull"`
	ProductID   int64           `bun:"product_id,notnull"`
	Quantity    int64           `bun:"quantity,notnull"`
	UnitPrice   decimal.Decimal `bun:"unit_price,notnull"`
	Subtotal    decimal.Decimal `bun:"subtotal,notnull"`
	ProductName string          `bun:"product_name"`
}
