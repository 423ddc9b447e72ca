package reconciliation

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/bankrecon/internal/domain/finance"
	"github.com/erp/bankrecon/internal/domain/shared"
	"github.com/erp/bankrecon/internal/infrastructure/logger"
	"github.com/erp/bankrecon/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReconcileMovement allocates a movement's amount to its target.
//
// A student target walks the student's eligible invoices oldest due date
// first; an invoice target applies the amount to that invoice only. Any
// leftover is held as a single credit payment for the student. Calling it
// again with the same target returns the existing payments and writes nothing.
func (s *Service) ReconcileMovement(ctx context.Context, cmd ReconcileMovementCommand) (*ReconcileResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "ReconcileMovement",
		telemetry.SpanAttrMovementID, cmd.MovementID.String(),
		telemetry.SpanAttrTargetKind, cmd.Target.Kind().String(),
		telemetry.SpanAttrDryRun, !cmd.CreatePayment,
	)
	defer span.End()

	if err := s.validateCommand(cmd); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if cmd.Target.IsZero() {
		err := shared.NewDomainError(shared.CodeInvalidArguments, "A student or an invoice target is required")
		telemetry.RecordError(span, err)
		return nil, err
	}

	log := logger.Enrich(ctx, s.logger).With(
		zap.String("movement_id", cmd.MovementID.String()),
		zap.Stringer("target", cmd.Target),
	)

	start := time.Now()
	var (
		result *ReconcileResult
		opErr  error
	)
	telemetry.WithProfilingLabels(ctx, telemetry.ReconciliationLabels(telemetry.OperationReconcile, string(modeFor(cmd.Target))), func(c context.Context) {
		result, opErr = s.reconcile(c, cmd, log)
	})
	s.metrics.RecordDuration(ctx, telemetry.OperationReconcile, time.Since(start), opErr)

	if opErr != nil {
		telemetry.RecordError(span, opErr)
		log.Warn("reconciliation failed", zap.Error(opErr))
		return nil, opErr
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrPaymentCount, len(result.Payments),
		telemetry.SpanAttrReplayed, result.Replayed,
		telemetry.SpanAttrAmount, result.TotalAllocated.String(),
	)
	telemetry.SetOK(span)

	switch {
	case result.DryRun:
		log.Debug("reconciliation dry run", zap.Int("steps", len(result.Steps)))
	case result.Replayed:
		log.Info("reconciliation replayed, nothing written", zap.Int("payments", len(result.Payments)))
	default:
		s.metrics.RecordReconciled(ctx, result.Mode, len(result.Payments), result.CreditAmount.IsPositive(),
			result.TotalAllocated.Add(result.CreditAmount))
		log.Info("movement reconciled",
			zap.String("mode", result.Mode),
			zap.Int("payments", len(result.Payments)),
			zap.String("allocated", result.TotalAllocated.String()),
			zap.String("credit", result.CreditAmount.String()),
			zap.Int("skipped_invoices", len(result.Skipped)),
		)
	}
	return result, nil
}

func (s *Service) reconcile(ctx context.Context, cmd ReconcileMovementCommand, log *zap.Logger) (*ReconcileResult, error) {
	var result *ReconcileResult
	err := s.uow.Do(ctx, func(ctx context.Context, repos finance.Repositories) error {
		movement, err := repos.Movements.FindByIDForUpdate(ctx, cmd.MovementID)
		if err != nil {
			return err
		}
		if err := movement.CanReconcile(); err != nil {
			return err
		}

		result = &ReconcileResult{
			MovementID:     movement.ID,
			TargetKind:     cmd.Target.Kind().String(),
			TargetID:       cmd.Target.ID(),
			Mode:           string(modeFor(cmd.Target)),
			DryRun:         !cmd.CreatePayment,
			TotalAllocated: decimal.Zero,
			CreditAmount:   decimal.Zero,
			Status:         movement.Status.String(),
		}

		if movement.IsReconciled() {
			if !movement.IsReconciledAgainst(cmd.Target) {
				return shared.NewDomainError(shared.CodeAlreadyReconciled,
					fmt.Sprintf("Movement is already reconciled against %s", movement.ReconciledTarget))
			}
			return s.replay(ctx, repos, movement, result)
		}

		plan, invoices, err := s.plan(ctx, repos, movement, cmd.Target)
		if err != nil {
			return err
		}
		result.Steps = toStepViews(movement.ID, plan)
		result.Skipped = toSkippedViews(plan.Skipped)
		result.TotalAllocated = plan.TotalAllocated
		result.CreditAmount = plan.CreditAmount()
		for _, issue := range plan.Skipped {
			log.Warn("invoice skipped during allocation",
				zap.String("invoice_id", issue.InvoiceID.String()),
				zap.String("invoice_number", issue.InvoiceNumber),
				zap.String("reason", issue.Reason),
			)
		}
		if !cmd.CreatePayment {
			return nil
		}

		return s.apply(ctx, repos, movement, cmd, plan, invoices, result, log)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// plan loads and locks the candidate invoices and computes the allocation
func (s *Service) plan(ctx context.Context, repos finance.Repositories, movement *finance.BankMovement, target finance.AllocationTarget) (*finance.AllocationPlan, []*finance.Invoice, error) {
	switch target.Kind() {
	case finance.TargetKindStudent:
		invoices, err := repos.Invoices.FindPendingByStudent(ctx, target.ID())
		if err != nil {
			return nil, nil, fmt.Errorf("load pending invoices: %w", err)
		}
		plan, err := s.fifo.Allocate(movement.Amount, target.ID(), invoices)
		if err != nil {
			return nil, nil, err
		}
		if len(plan.Steps) == 0 {
			return nil, nil, shared.NewDomainError(shared.CodeNoPendingDebt,
				fmt.Sprintf("Student %s has no pending debt", target.ID()))
		}
		return plan, invoices, nil

	case finance.TargetKindInvoice:
		inv, err := repos.Invoices.FindByIDForUpdate(ctx, target.ID())
		if err != nil {
			return nil, nil, err
		}
		plan, err := s.direct.Allocate(movement.Amount, inv)
		if err != nil {
			return nil, nil, err
		}
		return plan, []*finance.Invoice{inv}, nil

	default:
		return nil, nil, shared.NewDomainError(shared.CodeInvalidArguments, "Unknown allocation target")
	}
}

// apply writes the plan's payments, recalculates the touched invoices and
// marks the movement reconciled
func (s *Service) apply(
	ctx context.Context,
	repos finance.Repositories,
	movement *finance.BankMovement,
	cmd ReconcileMovementCommand,
	plan *finance.AllocationPlan,
	invoices []*finance.Invoice,
	result *ReconcileResult,
	log *zap.Logger,
) error {
	now := s.now()
	events := make([]shared.DomainEvent, 0, len(plan.Steps)+2)
	existing := 0

	for _, step := range plan.AllSteps() {
		key := step.Key(movement.ID)
		payment, err := finance.NewAllocationPayment(key, step, plan.StudentID, movement.Date, s.method, cmd.Note)
		if err != nil {
			return err
		}
		created, err := repos.Payments.Save(ctx, payment)
		if err != nil {
			return fmt.Errorf("save payment %s: %w", key, err)
		}
		if !created {
			existing++
			log.Debug("payment already exists, skipped", zap.String("idempotency_key", key.String()))
			continue
		}
		result.Payments = append(result.Payments, toPaymentView(payment))
		events = append(events, finance.NewPaymentCreatedEvent(payment))
	}
	if existing > 0 {
		stored, err := repos.Payments.FindByKeyPrefix(ctx, movement.KeyPrefix())
		if err != nil {
			return fmt.Errorf("load movement payments: %w", err)
		}
		result.Payments = result.Payments[:0]
		for i := range stored {
			result.Payments = append(result.Payments, toPaymentView(&stored[i]))
		}
	}

	byID := make(map[uuid.UUID]*finance.Invoice, len(invoices))
	for _, inv := range invoices {
		byID[inv.ID] = inv
	}
	for _, id := range plan.TouchedInvoiceIDs() {
		inv := byID[id]
		if err := s.recalculate(ctx, repos, inv, now); err != nil {
			return err
		}
		result.Invoices = append(result.Invoices, toInvoiceStateView(inv))
	}

	movement.MarkReconciled(cmd.Target, cmd.Note, len(result.Payments), now)
	if err := repos.Movements.Save(ctx, movement); err != nil {
		return fmt.Errorf("save movement: %w", err)
	}
	events = append(events, movement.GetDomainEvents()...)
	if err := repos.Events.Record(ctx, events...); err != nil {
		return fmt.Errorf("record events: %w", err)
	}
	movement.ClearDomainEvents()
	result.Status = movement.Status.String()
	return nil
}

// replay reports the payments of a movement already reconciled against the
// requested target
func (s *Service) replay(ctx context.Context, repos finance.Repositories, movement *finance.BankMovement, result *ReconcileResult) error {
	payments, err := repos.Payments.FindByKeyPrefix(ctx, movement.KeyPrefix())
	if err != nil {
		return fmt.Errorf("load movement payments: %w", err)
	}
	result.Replayed = true
	for i := range payments {
		p := &payments[i]
		result.Payments = append(result.Payments, toPaymentView(p))
		if p.IsCredit() {
			result.CreditAmount = result.CreditAmount.Add(p.Amount)
		} else {
			result.TotalAllocated = result.TotalAllocated.Add(p.Amount)
		}
	}
	return nil
}

func modeFor(t finance.AllocationTarget) finance.AllocationMode {
	if t.IsInvoice() {
		return finance.AllocationModeDirect
	}
	return finance.AllocationModeFIFO
}
