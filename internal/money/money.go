// Package money holds the pure financial arithmetic for orders. Everything
// is decimal fixed-point; binary floats never touch an amount.
package money

import (
	"github.com/shopspring/decimal"

	"github.com/botica-labs/botica/internal/entity"
)

// TaxRate is the statutory VAT applied to every taxable base.
var TaxRate = decimal.New(16, -2)

// Round normalizes an amount to 2 decimals, half up.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// LineSubtotal computes quantity x unit price rounded to cents.
func LineSubtotal(qty int64, unitPrice decimal.Decimal) decimal.Decimal {
	return Round(unitPrice.Mul(decimal.NewFromInt(qty)))
}

// OrderSubtotal sums line subtotals.
func OrderSubtotal(lines []*entity.OrderLine) decimal.Decimal {
	sum := decimal.Zero
	for _, line := range lines {
		sum = sum.Add(line.Subtotal)
	}
	return Round(sum)
}

// TaxableBase is the amount tax applies to: subtotal minus discount.
// Purchases carry a zero discount, so their base equals the subtotal.
func TaxableBase(subtotal, discount decimal.Decimal) decimal.Decimal {
	return subtotal.Sub(discount)
}

// Tax computes the VAT on a taxable base rounded to cents.
func Tax(base decimal.Decimal) decimal.Decimal {
	return Round(base.Mul(TaxRate))
}

// Total is the taxable base plus its tax.
func Total(base, tax decimal.Decimal) decimal.Decimal {
	return Round(base.Add(tax))
}
