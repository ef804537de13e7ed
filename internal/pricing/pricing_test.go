package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTax(t *testing.T) {
	tests := []struct {
		name     string
		subtotal string
		rate     float64
		want     string
	}{
		{"default rate on 100", "100", DefaultTaxRate, "8.00"},
		{"custom rate on 100", "100", 0.1, "10.00"},
		{"zero subtotal", "0", DefaultTaxRate, "0.00"},
		{"rounds to 2 decimals", "29.99", DefaultTaxRate, "2.40"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tax(decimal.RequireFromString(tt.subtotal), tt.rate)
			assert.Equal(t, tt.want, got.StringFixed(2))
		})
	}
}

func TestShipping(t *testing.T) {
	tests := []struct {
		name     string
		subtotal string
		method   string
		want     string
	}{
		{"free above threshold", "150", "standard", "0.00"},
		{"free at exactly threshold", "100", "overnight", "0.00"},
		{"free at threshold with trailing zeros", "100.00", "standard", "0.00"},
		{"standard flat rate", "50", "standard", "5.99"},
		{"expedited flat rate", "50", "expedited", "12.99"},
		{"overnight flat rate", "50", "overnight", "24.99"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Shipping(decimal.RequireFromString(tt.subtotal), tt.method)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.StringFixed(2))
		})
	}
}

func TestShipping_UnknownMethod(t *testing.T) {
	_, err := Shipping(decimal.RequireFromString("50"), "teleport")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "teleport")
}

func TestValidMethod(t *testing.T) {
	assert.True(t, ValidMethod("standard"))
	assert.True(t, ValidMethod("expedited"))
	assert.True(t, ValidMethod("overnight"))
	assert.False(t, ValidMethod(""))
	assert.False(t, ValidMethod("pigeon"))
}
