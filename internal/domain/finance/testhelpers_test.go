package finance

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// newTestInvoice creates a pending invoice with one line of the given total
func newTestInvoice(t *testing.T, number string, studentID uuid.UUID, due time.Time, total string) *Invoice {
	t.Helper()
	inv, err := NewInvoice(number, studentID, due.AddDate(0, -1, 0), due, []InvoiceLine{
		{Description: "Tuition", Quantity: decimal.NewFromInt(1), UnitPrice: dec(total)},
	})
	require.NoError(t, err)
	return inv
}
