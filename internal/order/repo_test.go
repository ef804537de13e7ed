package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rowStub feeds scanOrder a fixed row; values line up with orderColumns.
type rowStub []any

func (r rowStub) Scan(dest ...any) error {
	for i := range dest {
		switch d := dest[i].(type) {
		case *string:
			*d = r[i].(string)
		case *Status:
			*d = Status(r[i].(string))
		case *PaymentStatus:
			*d = PaymentStatus(r[i].(string))
		case *FulfillmentStatus:
			*d = FulfillmentStatus(r[i].(string))
		case *time.Time:
			*d = r[i].(time.Time)
		}
	}
	return nil
}

func orderRow() rowStub {
	now := time.Now()
	return rowStub{
		"o1", "ORD-abc123-XYZ789", "u1", "buyer@example.com",
		"29.99", "2.40", "5.99", "38.38",
		"pending", "pending", "unfulfilled",
		"addr1", "addr2",
		"standard", "card", "",
		now, now,
	}
}

func TestScanOrder(t *testing.T) {
	o, err := scanOrder(orderRow())
	require.NoError(t, err)
	assert.Equal(t, "38.38", o.Total.StringFixed(2))
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, PaymentPending, o.PaymentStatus)
}

func TestScanOrder_BadMoneyColumn(t *testing.T) {
	cases := []struct {
		field string
		index int
	}{
		{"subtotal", 4},
		{"tax", 5},
		{"shipping", 6},
		{"total", 7},
	}
	for _, tc := range cases {
		t.Run(tc.field, func(t *testing.T) {
			row := orderRow()
			row[tc.index] = "not-a-number"
			_, err := scanOrder(row)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "parse "+tc.field)
		})
	}
}
