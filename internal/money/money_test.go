package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/botica-labs/botica/internal/entity"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestLineSubtotal(t *testing.T) {
	tests := []struct {
		name  string
		qty   int64
		price string
		want  string
	}{
		{"whole units", 3, "15.50", "46.50"},
		{"two units", 2, "22.00", "44.00"},
		{"single", 1, "0.01", "0.01"},
		{"rounding", 3, "3.333", "10.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LineSubtotal(tt.qty, dec(tt.price))
			assert.True(t, got.Equal(dec(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestSaleTotals(t *testing.T) {
	// Sale with (qty 3 @ 15.50) and (qty 2 @ 19.50), discount 5.00.
	lines := []*entity.OrderLine{
		{Quantity: 3, UnitPrice: dec("15.50"), Subtotal: LineSubtotal(3, dec("15.50"))},
		{Quantity: 2, UnitPrice: dec("19.50"), Subtotal: LineSubtotal(2, dec("19.50"))},
	}

	subtotal := OrderSubtotal(lines)
	require.True(t, subtotal.Equal(dec("85.50")), "subtotal %s", subtotal)

	base := TaxableBase(subtotal, dec("5.00"))
	require.True(t, base.Equal(dec("80.50")), "base %s", base)

	tax := Tax(base)
	require.True(t, tax.Equal(dec("12.88")), "tax %s", tax)

	total := Total(base, tax)
	require.True(t, total.Equal(dec("93.38")), "total %s", total)
}

func TestPurchaseTotals(t *testing.T) {
	// Purchase with one line (qty 50 @ 10.00), no discount.
	lines := []*entity.OrderLine{
		{Quantity: 50, UnitPrice: dec("10.00"), Subtotal: LineSubtotal(50, dec("10.00"))},
	}

	subtotal := OrderSubtotal(lines)
	require.True(t, subtotal.Equal(dec("500.00")), "subtotal %s", subtotal)

	base := TaxableBase(subtotal, decimal.Zero)
	tax := Tax(base)
	require.True(t, tax.Equal(dec("80.00")), "tax %s", tax)

	total := Total(base, tax)
	require.True(t, total.Equal(dec("580.00")), "total %s", total)
}

func TestTaxRoundsHalfUp(t *testing.T) {
	// 0.16 * 0.40625 = 0.065 exactly; half-up lands on 0.07.
	got := Tax(dec("0.40625"))
	assert.True(t, got.Equal(dec("0.07")), "got %s", got)
}

func TestTotalInvariantHoldsForManyBases(t *testing.T) {
	for _, base := range []string{"0", "0.01", "1", "99.99", "1234.56", "80.50"} {
		b := dec(base)
		total := Total(b, Tax(b))
		diff := total.Sub(b.Add(Tax(b))).Abs()
		assert.True(t, diff.LessThanOrEqual(dec("0.01")), "base %s drifted by %s", base, diff)
	}
}
