package finance

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerTotals is the money side of a recalculation
type LedgerTotals struct {
	Total   decimal.Decimal
	Paid    decimal.Decimal
	Balance decimal.Decimal
}

// SumLines adds up line amounts
func SumLines(lines []InvoiceLine) decimal.Decimal {
	total := decimal.Zero
	for i := range lines {
		total = total.Add(lines[i].Amount())
	}
	return total
}

// Recalculate derives an invoice's state and totals from its lines, its
// payments and the current date. It reads inv only for the cancelled flag
// and the due date, and never mutates its inputs.
//
// Priority: Cancelled, Paid (paid >= total), PartiallyPaid (paid > 0),
// Overdue (due date strictly before today), Pending.
func Recalculate(inv *Invoice, lines []InvoiceLine, payments []Payment, now time.Time) (InvoiceState, LedgerTotals) {
	total := SumLines(lines)
	paid := SumPayments(payments)
	totals := LedgerTotals{
		Total:   total,
		Paid:    paid,
		Balance: total.Sub(paid),
	}

	switch {
	case inv.IsCancelled():
		return InvoiceStateCancelled, totals
	case paid.GreaterThanOrEqual(total):
		return InvoiceStatePaid, totals
	case paid.IsPositive():
		return InvoiceStatePartiallyPaid, totals
	case dateOnly(inv.DueDate).Before(dateOnly(now)):
		return InvoiceStateOverdue, totals
	default:
		return InvoiceStatePending, totals
	}
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

