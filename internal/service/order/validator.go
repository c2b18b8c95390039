package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/botica-labs/botica/internal/entity"
	"github.com/botica-labs/botica/internal/money"
	"github.com/botica-labs/botica/internal/repository/catalog"
	"github.com/botica-labs/botica/pkg/errorbank"
)

// Validator runs the pre-transaction business checks over a draft order.
// It performs reads only and opens no transaction; the first failing check
// wins. The per-line stock check here is a courtesy fast path: the
// authoritative check is the conditional stock update inside the unit of
// work, so a draft passing validation can still fail at commit under
// concurrency.
type Validator struct {
	catalog   Catalog
	directory Directory
}

// NewValidator wires a Validator over the catalog and party directories.
func NewValidator(catalog Catalog, directory Directory) *Validator {
	return &Validator{catalog: catalog, directory: directory}
}

// ValidateCreate checks a draft order and returns the products referenced
// by its lines, keyed by id, so the caller can reuse them for snapshots
// without a second round of reads.
func (v *Validator) ValidateCreate(ctx context.Context, draft *entity.Order) (map[int64]*entity.Product, error) {
	if !draft.Kind.Valid() {
		return nil, errorbank.BadRequest("unknown order kind", errorbank.WithDetail("kind", string(draft.Kind)))
	}

	if draft.Kind == entity.KindSale && draft.CustomerID != nil {
		if *draft.CustomerID <= 0 {
			return nil, errorbank.BadRequest("invalid customer id", errorbank.WithDetail("customer_id", *draft.CustomerID))
		}
		ok, err := v.directory.CustomerExists(ctx, *draft.CustomerID)
		if err != nil {
			return nil, errorbank.Internal("failed to look up customer", errorbank.WithCause(err))
		}
		if !ok {
			return nil, errorbank.NotFound("customer not found", errorbank.WithDetail("customer_id", *draft.CustomerID))
		}
	}

	if draft.UserID <= 0 {
		return nil, errorbank.BadRequest("operator id is required")
	}
	ok, err := v.directory.UserExists(ctx, draft.UserID)
	if err != nil {
		return nil, errorbank.Internal("failed to look up operator", errorbank.WithCause(err))
	}
	if !ok {
		return nil, errorbank.NotFound("operator not found", errorbank.WithDetail("user_id", draft.UserID))
	}

	if draft.Kind == entity.KindPurchase {
		if draft.SupplierID == nil || *draft.SupplierID <= 0 {
			return nil, errorbank.BadRequest("supplier id is required")
		}
		ok, err := v.directory.SupplierExists(ctx, *draft.SupplierID)
		if err != nil {
			return nil, errorbank.Internal("failed to look up supplier", errorbank.WithCause(err))
		}
		if !ok {
			return nil, errorbank.NotFound("supplier not found", errorbank.WithDetail("supplier_id", *draft.SupplierID))
		}
	}

	if len(draft.Lines) == 0 {
		return nil, errorbank.BadRequest("order has no lines")
	}

	products := make(map[int64]*entity.Product, len(draft.Lines))
	for i, line := range draft.Lines {
		if line.Quantity <= 0 {
			return nil, errorbank.BadRequest(fmt.Sprintf("line %d: quantity must be positive", i), errorbank.WithDetail("line", i))
		}
		if !line.UnitPrice.IsPositive() {
			return nil, errorbank.BadRequest(fmt.Sprintf("line %d: unit price must be positive", i), errorbank.WithDetail("line", i))
		}
		if _, seen := products[line.ProductID]; seen {
			continue
		}
		product, err := v.catalog.GetProduct(ctx, line.ProductID)
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, errorbank.NotFound(fmt.Sprintf("line %d: product not found", i),
				errorbank.WithDetail("line", i),
				errorbank.WithDetail("product_id", line.ProductID),
			)
		}
		if err != nil {
			return nil, errorbank.Internal("failed to look up product", errorbank.WithCause(err))
		}
		products[line.ProductID] = product
	}

	if draft.Kind == entity.KindSale {
		if !draft.PaymentMethod.Valid() {
			return nil, errorbank.BadRequest("unknown payment method", errorbank.WithDetail("payment_method", string(draft.PaymentMethod)))
		}
		requested := make(map[int64]int64, len(draft.Lines))
		for _, line := range draft.Lines {
			requested[line.ProductID] += line.Quantity
		}
		for i, line := range draft.Lines {
			product := products[line.ProductID]
			if requested[line.ProductID] > product.Stock {
				return nil, errorbank.InsufficientStock(fmt.Sprintf("line %d: insufficient stock for %s", i, product.Name),
					errorbank.WithDetail("product_id", product.ID),
					errorbank.WithDetail("requested", requested[line.ProductID]),
					errorbank.WithDetail("available", product.Stock),
				)
			}
		}
	}

	if draft.Kind == entity.KindPurchase && draft.State != "" {
		if !draft.State.ValidForPurchase() {
			return nil, errorbank.BadRequest("unknown purchase state", errorbank.WithDetail("state", string(draft.State)))
		}
		// A purchase born cancelled would increment stock with no way to
		// reverse it: Cancel refuses already-cancelled orders.
		if draft.State == entity.StateCancelled {
			return nil, errorbank.BadRequest("purchase cannot be created cancelled", errorbank.WithDetail("state", string(draft.State)))
		}
	}

	if draft.Kind == entity.KindSale {
		subtotal := decimal.Zero
		for _, line := range draft.Lines {
			subtotal = subtotal.Add(money.LineSubtotal(line.Quantity, line.UnitPrice))
		}
		if draft.Discount.IsNegative() || draft.Discount.GreaterThan(subtotal) {
			return nil, errorbank.Unprocessable("discount out of range",
				errorbank.WithDetail("discount", draft.Discount.StringFixed(2)),
				errorbank.WithDetail("subtotal", subtotal.StringFixed(2)),
			)
		}
	}

	return products, nil
}
