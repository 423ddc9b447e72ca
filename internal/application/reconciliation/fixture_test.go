package reconciliation

import (
	"context"
	"testing"
	"time"

	"github.com/erp/bankrecon/internal/domain/finance"
	"github.com/erp/bankrecon/internal/domain/shared"
	"github.com/erp/bankrecon/internal/infrastructure/event"
	"github.com/erp/bankrecon/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

var testNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc       *Service
	movements *persistence.GormBankMovementRepository
	invoices  *persistence.GormInvoiceRepository
	payments  *persistence.GormPaymentRepository
	outbox    *event.GormOutboxRepository
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	db, err := persistence.NewSQLiteDatabase(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return newFixtureOn(t, db.DB, opts...)
}

// newFixtureOn wires the service against an already migrated database
func newFixtureOn(t *testing.T, db *gorm.DB, opts ...Option) *fixture {
	t.Helper()
	serializer := event.NewEventSerializer()
	event.RegisterReconciliationEvents(serializer)
	uow := persistence.NewGormUnitOfWork(db, event.NewOutboxPublisher(serializer))

	opts = append([]Option{
		WithClock(func() time.Time { return testNow }),
		WithLogger(zaptest.NewLogger(t)),
	}, opts...)

	return &fixture{
		svc:       NewService(uow, opts...),
		movements: persistence.NewGormBankMovementRepository(db),
		invoices:  persistence.NewGormInvoiceRepository(db),
		payments:  persistence.NewGormPaymentRepository(db),
		outbox:    event.NewGormOutboxRepository(db),
	}
}

// invoice stores an invoice due dueInDays from testNow, with its state
// already derived from the clock
func (f *fixture) invoice(t *testing.T, number string, studentID uuid.UUID, dueInDays int, total string) *finance.Invoice {
	t.Helper()
	due := testNow.AddDate(0, 0, dueInDays)
	inv, err := finance.NewInvoice(number, studentID, due.AddDate(0, -1, 0), due, []finance.InvoiceLine{{
		Description: "Tuition " + number,
		Quantity:    decimal.NewFromInt(1),
		UnitPrice:   decimal.RequireFromString(total),
	}})
	require.NoError(t, err)
	inv.StudentReference = "ALU-" + number
	state, totals := finance.Recalculate(inv, inv.Lines, nil, testNow)
	inv.ApplyLedger(state, totals)
	require.NoError(t, f.invoices.Save(context.Background(), inv))
	return inv
}

func (f *fixture) movement(t *testing.T, amount string, date time.Time, description, reference string) *finance.BankMovement {
	t.Helper()
	mv, err := finance.NewBankMovement(decimal.RequireFromString(amount), date, description, reference, finance.MovementKindDeposit)
	require.NoError(t, err)
	require.NoError(t, f.movements.Save(context.Background(), mv))
	return mv
}

func (f *fixture) deposit(t *testing.T, amount string) *finance.BankMovement {
	t.Helper()
	return f.movement(t, amount, testNow.AddDate(0, 0, -1), "SPEI TRANSFERENCIA", "")
}

func (f *fixture) reload(t *testing.T, inv *finance.Invoice) *finance.Invoice {
	t.Helper()
	got, err := f.invoices.FindByID(context.Background(), inv.ID)
	require.NoError(t, err)
	return got
}

func (f *fixture) movementPayments(t *testing.T, mv *finance.BankMovement) []finance.Payment {
	t.Helper()
	got, err := f.payments.FindByKeyPrefix(context.Background(), mv.KeyPrefix())
	require.NoError(t, err)
	return got
}

func (f *fixture) outboxCount(t *testing.T) int64 {
	t.Helper()
	counts, err := f.outbox.CountByStatus(context.Background())
	require.NoError(t, err)
	return counts[shared.OutboxStatusPending]
}

func assertAmount(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got),
		append([]any{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, code, de.Code, de.Message)
}

func reconcileStudent(movementID, studentID uuid.UUID) ReconcileMovementCommand {
	return ReconcileMovementCommand{
		MovementID:    movementID,
		Target:        finance.StudentTarget(studentID),
		Note:          "bank feed match",
		CreatePayment: true,
	}
}

func reconcileInvoice(movementID, invoiceID uuid.UUID) ReconcileMovementCommand {
	return ReconcileMovementCommand{
		MovementID:    movementID,
		Target:        finance.InvoiceTarget(invoiceID),
		CreatePayment: true,
	}
}
