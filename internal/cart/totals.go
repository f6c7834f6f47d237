package cart

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Totals are the values derived from the cart lines and the applied discount.
type Totals struct {
	Subtotal    Amount
	ShippingFee Amount
	Discount    Amount
	Total       Amount
}

// LineSubtotal is price × quantity.
func LineSubtotal(line Line) Amount {
	return line.Price * Amount(line.Quantity)
}

// Subtotal sums the line subtotals.
func Subtotal(items []Line) Amount {
	var sum Amount
	for _, line := range items {
		sum += LineSubtotal(line)
	}
	return sum
}

// ShippingFee is the flat fee for a non-empty cart and zero otherwise.
func ShippingFee(items []Line, flat Amount) Amount {
	if len(items) == 0 {
		return 0
	}
	return flat
}

// ClampDiscount bounds the applied discount to [0, subtotal].
func ClampDiscount(applied, subtotal Amount) Amount {
	if applied <= 0 {
		return 0
	}
	if applied > subtotal {
		return max(subtotal, 0)
	}
	return applied
}

// Total is subtotal - discount + shipping, floored at zero.
func Total(subtotal, discount, shipping Amount) Amount {
	return max(subtotal-discount+shipping, 0)
}

// Compute derives every total from the lines and the raw applied discount.
func Compute(items []Line, applied, flatFee Amount) Totals {
	subtotal := Subtotal(items)
	shipping := ShippingFee(items, flatFee)
	discount := ClampDiscount(applied, subtotal)
	return Totals{
		Subtotal:    subtotal,
		ShippingFee: shipping,
		Discount:    discount,
		Total:       Total(subtotal, discount, shipping),
	}
}

// Percent returns pct% of amount, rounded half-up to a whole unit.
func Percent(amount Amount, pct int64) Amount {
	v := decimal.NewFromInt(int64(amount)).
		Mul(decimal.NewFromInt(pct)).
		Div(decimal.NewFromInt(100)).
		Round(0)
	return Amount(v.IntPart())
}

var amountPrinter = message.NewPrinter(language.English)

// FormatAmount renders an amount with thousands separators, e.g. 200,000.
func FormatAmount(a Amount) string {
	return amountPrinter.Sprintf("%d", int64(a))
}
