package reconciliation

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/bankrecon/internal/domain/finance"
	"github.com/erp/bankrecon/internal/infrastructure/logger"
	"github.com/erp/bankrecon/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RevertReconciliation deletes every payment the movement produced,
// recalculates the invoices they paid and resets the movement to
// unreconciled. A movement without payments is left alone.
func (s *Service) RevertReconciliation(ctx context.Context, movementID uuid.UUID) (*RevertResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "RevertReconciliation",
		telemetry.SpanAttrMovementID, movementID.String(),
	)
	defer span.End()

	log := logger.Enrich(ctx, s.logger).With(zap.String("movement_id", movementID.String()))

	start := time.Now()
	var (
		result *RevertResult
		opErr  error
	)
	telemetry.WithProfilingLabels(ctx, telemetry.ReconciliationLabels(telemetry.OperationRevert, ""), func(c context.Context) {
		result, opErr = s.revert(c, movementID)
	})
	s.metrics.RecordDuration(ctx, telemetry.OperationRevert, time.Since(start), opErr)

	if opErr != nil {
		telemetry.RecordError(span, opErr)
		log.Warn("revert failed", zap.Error(opErr))
		return nil, opErr
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrPaymentCount, result.RemovedPayments)
	telemetry.SetOK(span)
	s.metrics.RecordReversal(ctx, result.RemovedPayments)
	if result.RemovedPayments == 0 {
		log.Info("nothing to revert")
	} else {
		log.Info("reconciliation reverted",
			zap.Int("removed_payments", result.RemovedPayments),
			zap.String("removed_amount", result.RemovedAmount.String()),
		)
	}
	return result, nil
}

func (s *Service) revert(ctx context.Context, movementID uuid.UUID) (*RevertResult, error) {
	var result *RevertResult
	err := s.uow.Do(ctx, func(ctx context.Context, repos finance.Repositories) error {
		movement, err := repos.Movements.FindByIDForUpdate(ctx, movementID)
		if err != nil {
			return err
		}
		result = &RevertResult{
			MovementID:    movement.ID,
			RemovedAmount: decimal.Zero,
			Status:        movement.Status.String(),
		}

		prefix := movement.KeyPrefix()
		existing, err := repos.Payments.FindByKeyPrefix(ctx, prefix)
		if err != nil {
			return fmt.Errorf("load movement payments: %w", err)
		}
		if len(existing) == 0 && !movement.IsReconciled() {
			return nil
		}

		var invoices []*finance.Invoice
		if ids := paidInvoiceIDs(existing); len(ids) > 0 {
			if invoices, err = repos.Invoices.FindByIDsForUpdate(ctx, ids); err != nil {
				return fmt.Errorf("lock invoices: %w", err)
			}
		}

		removed, err := repos.Payments.DeleteByKeyPrefix(ctx, prefix)
		if err != nil {
			return fmt.Errorf("delete movement payments: %w", err)
		}
		result.RemovedPayments = len(removed)
		result.RemovedAmount = finance.SumPayments(removed)

		now := s.now()
		for _, inv := range invoices {
			if err := s.recalculate(ctx, repos, inv, now); err != nil {
				return err
			}
			result.Invoices = append(result.Invoices, toInvoiceStateView(inv))
		}

		movement.MarkUnreconciled(result.RemovedPayments, result.RemovedAmount)
		if err := repos.Movements.Save(ctx, movement); err != nil {
			return fmt.Errorf("save movement: %w", err)
		}
		if err := repos.Events.Record(ctx, movement.GetDomainEvents()...); err != nil {
			return fmt.Errorf("record events: %w", err)
		}
		movement.ClearDomainEvents()
		result.Status = movement.Status.String()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// paidInvoiceIDs returns the distinct invoices paid by payments, in first-seen order
func paidInvoiceIDs(payments []finance.Payment) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(payments))
	ids := make([]uuid.UUID, 0, len(payments))
	for _, p := range payments {
		if p.InvoiceID == nil || seen[*p.InvoiceID] {
			continue
		}
		seen[*p.InvoiceID] = true
		ids = append(ids, *p.InvoiceID)
	}
	return ids
}
