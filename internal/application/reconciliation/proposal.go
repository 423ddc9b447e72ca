package reconciliation

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/bankrecon/internal/domain/finance"
	"github.com/erp/bankrecon/internal/domain/finance/scoring"
	"github.com/erp/bankrecon/internal/domain/shared"
	"github.com/erp/bankrecon/internal/infrastructure/logger"
	"github.com/erp/bankrecon/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EvaluateMovement scores a movement and ranks the open invoices it may be
// paying. It never writes.
func (s *Service) EvaluateMovement(ctx context.Context, movementID uuid.UUID) (*EvaluationResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "EvaluateMovement",
		telemetry.SpanAttrMovementID, movementID.String(),
	)
	defer span.End()

	start := time.Now()
	var (
		result *EvaluationResult
		opErr  error
	)
	telemetry.WithProfilingLabels(ctx, telemetry.ReconciliationLabels(telemetry.OperationEvaluate, ""), func(c context.Context) {
		opErr = s.uow.Do(c, func(ctx context.Context, repos finance.Repositories) error {
			movement, err := repos.Movements.FindByID(ctx, movementID)
			if err != nil {
				return err
			}
			result, err = s.evaluate(ctx, repos, movement)
			return err
		})
	})
	s.metrics.RecordDuration(ctx, telemetry.OperationEvaluate, time.Since(start), opErr)
	if opErr != nil {
		telemetry.RecordError(span, opErr)
		return nil, opErr
	}
	telemetry.SetOK(span)
	return result, nil
}

// ProposeMatch scores a movement and, when it classifies as a probable
// match, moves it from unreconciled to match proposed. A movement that
// already carries a proposal is reported as proposed without a write.
func (s *Service) ProposeMatch(ctx context.Context, movementID uuid.UUID) (*EvaluationResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "ProposeMatch",
		telemetry.SpanAttrMovementID, movementID.String(),
	)
	defer span.End()

	log := logger.Enrich(ctx, s.logger).With(zap.String("movement_id", movementID.String()))

	start := time.Now()
	var (
		result *EvaluationResult
		opErr  error
	)
	telemetry.WithProfilingLabels(ctx, telemetry.ReconciliationLabels(telemetry.OperationPropose, ""), func(c context.Context) {
		result, opErr = s.propose(c, movementID)
	})
	s.metrics.RecordDuration(ctx, telemetry.OperationPropose, time.Since(start), opErr)
	if opErr != nil {
		telemetry.RecordError(span, opErr)
		log.Warn("match proposal failed", zap.Error(opErr))
		return nil, opErr
	}

	telemetry.SetOK(span)
	log.Info("movement evaluated",
		zap.String("classification", result.Classification),
		zap.Int("confidence", result.Confidence),
		zap.Int("match_score", result.MatchScore),
		zap.Bool("proposed", result.Proposed),
		zap.Int("suggestions", len(result.Suggestions)),
	)
	return result, nil
}

func (s *Service) propose(ctx context.Context, movementID uuid.UUID) (*EvaluationResult, error) {
	var result *EvaluationResult
	err := s.uow.Do(ctx, func(ctx context.Context, repos finance.Repositories) error {
		movement, err := repos.Movements.FindByIDForUpdate(ctx, movementID)
		if err != nil {
			return err
		}
		if err := movement.CanReconcile(); err != nil {
			return err
		}
		if movement.IsReconciled() {
			return shared.NewDomainError(shared.CodeAlreadyReconciled, "Movement is already reconciled")
		}

		result, err = s.evaluate(ctx, repos, movement)
		if err != nil {
			return err
		}

		switch {
		case movement.Status == finance.ReconciliationStatusMatchProposed:
			result.Proposed = true
		case result.Classification == string(scoring.ClassificationProbableMatch):
			if err := movement.ProposeMatch(); err != nil {
				return err
			}
			if err := repos.Movements.Save(ctx, movement); err != nil {
				return fmt.Errorf("save movement: %w", err)
			}
			result.Proposed = true
		}
		result.Status = movement.Status.String()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// evaluate runs the rule set and ranks the open invoices against the movement
func (s *Service) evaluate(ctx context.Context, repos finance.Repositories, movement *finance.BankMovement) (*EvaluationResult, error) {
	candidate := candidateFor(movement)
	ev := s.rules.Evaluate(candidate, s.now())

	open, err := repos.Invoices.FindOpen(ctx, suggestionPool)
	if err != nil {
		return nil, fmt.Errorf("load open invoices: %w", err)
	}
	candidates := make([]scoring.InvoiceCandidate, 0, len(open))
	for _, inv := range open {
		if !inv.IsEligibleForPayment() {
			continue
		}
		candidates = append(candidates, scoring.InvoiceCandidate{
			InvoiceID:        inv.ID,
			StudentID:        inv.StudentID,
			Number:           inv.Number,
			StudentReference: inv.StudentReference,
			Outstanding:      inv.OutstandingAmount(),
			DueDate:          inv.DueDate,
		})
	}
	suggestions := scoring.RankInvoices(candidate, candidates, s.minSim, s.suggest)

	result := toEvaluationResult(movement.ID, ev, suggestions)
	result.Status = movement.Status.String()
	return result, nil
}

// IgnoreMovement excludes a movement from reconciliation. Reconciled
// movements have to be reverted first.
func (s *Service) IgnoreMovement(ctx context.Context, cmd IgnoreMovementCommand) (*MovementStatusResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reconciliation", "IgnoreMovement",
		telemetry.SpanAttrMovementID, cmd.MovementID.String(),
	)
	defer span.End()

	if err := s.validateCommand(cmd); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var result *MovementStatusResult
	err := s.uow.Do(ctx, func(ctx context.Context, repos finance.Repositories) error {
		movement, err := repos.Movements.FindByIDForUpdate(ctx, cmd.MovementID)
		if err != nil {
			return err
		}
		if err := movement.Ignore(cmd.Reason); err != nil {
			return err
		}
		if err := repos.Movements.Save(ctx, movement); err != nil {
			return fmt.Errorf("save movement: %w", err)
		}
		result = &MovementStatusResult{MovementID: movement.ID, Status: movement.Status.String()}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetOK(span)
	logger.Enrich(ctx, s.logger).Info("movement ignored",
		zap.String("movement_id", cmd.MovementID.String()),
		zap.String("reason", cmd.Reason),
	)
	return result, nil
}
