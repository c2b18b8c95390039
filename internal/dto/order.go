package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderLineRequest is one product position in a create payload.
type OrderLineRequest struct {
	ProductID int64           `json:"product_id"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// CreateSaleRequest is the payload for registering a sale.
type CreateSaleRequest struct {
	CustomerID    *int64             `json:"customer_id,omitempty"`
	UserID        int64              `json:"user_id"`
	PaymentMethod string             `json:"payment_method"`
	Discount      decimal.Decimal    `json:"discount"`
	Notes         string             `json:"notes,omitempty"`
	Lines         []OrderLineRequest `json:"lines"`
}

// CreatePurchaseRequest is the payload for registering a purchase.
type CreatePurchaseRequest struct {
	SupplierID int64              `json:"supplier_id"`
	UserID     int64              `json:"user_id"`
	State      string             `json:"state,omitempty"`
	Notes      string             `json:"notes,omitempty"`
	Lines      []OrderLineRequest `json:"lines"`
}

// UpdateStateRequest moves a purchase to a new state.
type UpdateStateRequest struct {
	State string `json:"state"`
}

// OrderLineResponse represents a persisted order line.
type OrderLineResponse struct {
	ID          int64           `json:"id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// OrderResponse represents an order as exposed via transport layers.
type OrderResponse struct {
	ID            int64               `json:"id"`
	Kind          string              `json:"kind"`
	OccurredAt    time.Time           `json:"occurred_at"`
	CustomerID    *int64              `json:"customer_id,omitempty"`
	SupplierID    *int64              `json:"supplier_id,omitempty"`
	UserID        int64               `json:"user_id"`
	Subtotal      decimal.Decimal     `json:"subtotal"`
	Discount      decimal.Decimal     `json:"discount"`
	Tax           decimal.Decimal     `json:"tax"`
	Total         decimal.Decimal     `json:"total"`
	PaymentMethod string              `json:"payment_method,omitempty"`
	State         string              `json:"state"`
	Notes         string              `json:"notes,omitempty"`
	Lines         []OrderLineResponse `json:"lines"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}
