// Package pricing contains the pure tax and shipping calculators used by the
// cart read surface and the order finalizer. No I/O, safe for concurrent use.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultTaxRate applies when the caller has no jurisdiction-specific rate.
const DefaultTaxRate = 0.08

// Orders at or above this subtotal ship for free, regardless of method.
var freeShippingThreshold = decimal.NewFromInt(100)

var shippingRates = map[string]decimal.Decimal{
	"standard":  decimal.RequireFromString("5.99"),
	"expedited": decimal.RequireFromString("12.99"),
	"overnight": decimal.RequireFromString("24.99"),
}

// Tax returns subtotal * rate rounded to 2 decimals.
func Tax(subtotal decimal.Decimal, rate float64) decimal.Decimal {
	return subtotal.Mul(decimal.NewFromFloat(rate)).Round(2)
}

// Shipping returns the flat rate for the given method, or zero once the
// subtotal reaches the free-shipping threshold. Unknown methods are a caller
// error; validate with ValidMethod before building an order.
func Shipping(subtotal decimal.Decimal, method string) (decimal.Decimal, error) {
	if subtotal.GreaterThanOrEqual(freeShippingThreshold) {
		return decimal.Zero, nil
	}
	rate, ok := shippingRates[method]
	if !ok {
		return decimal.Zero, fmt.Errorf("unknown shipping method %q", method)
	}
	return rate, nil
}

// ValidMethod reports whether method names a supported shipping method.
func ValidMethod(method string) bool {
	_, ok := shippingRates[method]
	return ok
}
