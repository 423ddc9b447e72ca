package telemetry

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ReconciliationMetrics counts reconciliation outcomes.
type ReconciliationMetrics struct {
	logger *zap.Logger

	movementsReconciled *Counter
	paymentsCreated     *Counter
	reversals           *Counter
	allocatedAmount     *Histogram
	duration            *Histogram
}

// ReconciliationMetricsConfig holds configuration for reconciliation metrics.
type ReconciliationMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// NewReconciliationMetrics registers the reconciliation instruments on the meter
func NewReconciliationMetrics(cfg ReconciliationMetricsConfig) (*ReconciliationMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &ReconciliationMetrics{logger: logger}
	var err error

	if m.movementsReconciled, err = NewCounter(cfg.Meter,
		"recon_movements_reconciled_total",
		"Total number of bank movements reconciled",
		"{movements}",
	); err != nil {
		return nil, err
	}
	if m.paymentsCreated, err = NewCounter(cfg.Meter,
		"recon_payments_created_total",
		"Total number of payments written by reconciliations",
		"{payments}",
	); err != nil {
		return nil, err
	}
	if m.reversals, err = NewCounter(cfg.Meter,
		"recon_reversals_total",
		"Total number of reconciliations reverted",
		"{movements}",
	); err != nil {
		return nil, err
	}
	if m.allocatedAmount, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "recon_allocated_amount",
		Description: "Amount applied per reconciled movement",
		Unit:        "{currency}",
		Boundaries:  AmountBuckets,
	}); err != nil {
		return nil, err
	}
	if m.duration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "recon_operation_duration_seconds",
		Description: "Duration of reconciliation operations",
		Unit:        "s",
		Boundaries:  DurationBuckets,
	}); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordReconciled records a committed reconciliation
func (m *ReconciliationMetrics) RecordReconciled(ctx context.Context, mode string, payments int, credit bool, amount decimal.Decimal) {
	if m == nil {
		return
	}
	m.movementsReconciled.Inc(ctx, AttrMode.String(mode))
	m.paymentsCreated.Add(ctx, int64(payments), AttrMode.String(mode), AttrCredit.Bool(credit))
	m.allocatedAmount.Record(ctx, amount.InexactFloat64(), AttrMode.String(mode))
}

// RecordReversal records a committed reversal
func (m *ReconciliationMetrics) RecordReversal(ctx context.Context, removedPayments int) {
	if m == nil {
		return
	}
	outcome := "reverted"
	if removedPayments == 0 {
		outcome = "noop"
	}
	m.reversals.Inc(ctx, AttrOutcome.String(outcome))
}

// RecordDuration records how long an operation took
func (m *ReconciliationMetrics) RecordDuration(ctx context.Context, operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.duration.RecordDuration(ctx, d, AttrOutcome.String(outcome), AttrOperation.String(operation))
}
