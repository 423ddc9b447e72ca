package reconciliation

import (
	"time"

	"github.com/erp/bankrecon/internal/domain/finance"
	"github.com/erp/bankrecon/internal/domain/finance/scoring"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReconcileMovementCommand applies a movement to a student's debt or to one invoice.
// CreatePayment=false runs the allocation without writing anything.
type ReconcileMovementCommand struct {
	MovementID    uuid.UUID `validate:"required"`
	Target        finance.AllocationTarget
	Note          string `validate:"max=500"`
	CreatePayment bool
}

// IgnoreMovementCommand excludes a movement from reconciliation
type IgnoreMovementCommand struct {
	MovementID uuid.UUID `validate:"required"`
	Reason     string    `validate:"required,max=500"`
}

// PaymentView is a payment written (or found) by a reconciliation
type PaymentView struct {
	ID             uuid.UUID       `json:"id"`
	InvoiceID      *uuid.UUID      `json:"invoice_id,omitempty"`
	StudentID      *uuid.UUID      `json:"student_id,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	PaymentDate    time.Time       `json:"payment_date"`
	Method         string          `json:"method"`
	IdempotencyKey string          `json:"idempotency_key"`
	IsCredit       bool            `json:"is_credit"`
}

// StepView is one line of an allocation plan
type StepView struct {
	Ordinal           int             `json:"ordinal"`
	InvoiceID         *uuid.UUID      `json:"invoice_id,omitempty"`
	InvoiceNumber     string          `json:"invoice_number,omitempty"`
	Amount            decimal.Decimal `json:"amount"`
	OutstandingBefore decimal.Decimal `json:"outstanding_before"`
	OutstandingAfter  decimal.Decimal `json:"outstanding_after"`
	IdempotencyKey    string          `json:"idempotency_key"`
	IsCredit          bool            `json:"is_credit"`
}

// SkippedInvoiceView is an invoice the FIFO walk passed over
type SkippedInvoiceView struct {
	InvoiceID     uuid.UUID `json:"invoice_id"`
	InvoiceNumber string    `json:"invoice_number"`
	State         string    `json:"state"`
	Reason        string    `json:"reason"`
}

// InvoiceStateView is the state of a touched invoice after the operation
type InvoiceStateView struct {
	InvoiceID   uuid.UUID       `json:"invoice_id"`
	Number      string          `json:"number"`
	State       string          `json:"state"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	PaidAmount  decimal.Decimal `json:"paid_amount"`
}

// ReconcileResult describes the outcome of ReconcileMovement.
// Replayed is set when the movement was already reconciled against the
// same target; Payments then holds the existing payments.
type ReconcileResult struct {
	MovementID     uuid.UUID            `json:"movement_id"`
	TargetKind     string               `json:"target_kind"`
	TargetID       uuid.UUID            `json:"target_id"`
	Mode           string               `json:"mode,omitempty"`
	DryRun         bool                 `json:"dry_run"`
	Replayed       bool                 `json:"replayed"`
	Steps          []StepView           `json:"steps,omitempty"`
	Skipped        []SkippedInvoiceView `json:"skipped,omitempty"`
	Payments       []PaymentView        `json:"payments,omitempty"`
	Invoices       []InvoiceStateView   `json:"invoices,omitempty"`
	TotalAllocated decimal.Decimal      `json:"total_allocated"`
	CreditAmount   decimal.Decimal      `json:"credit_amount"`
	Status         string               `json:"status"`
}

// RevertResult describes the outcome of RevertReconciliation
type RevertResult struct {
	MovementID      uuid.UUID          `json:"movement_id"`
	RemovedPayments int                `json:"removed_payments"`
	RemovedAmount   decimal.Decimal    `json:"removed_amount"`
	Invoices        []InvoiceStateView `json:"invoices,omitempty"`
	Status          string             `json:"status"`
}

// SuggestionView is a ranked invoice that the movement may be paying
type SuggestionView struct {
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	StudentID     uuid.UUID       `json:"student_id"`
	Number        string          `json:"number"`
	Outstanding   decimal.Decimal `json:"outstanding"`
	DueDate       time.Time       `json:"due_date"`
	Similarity    float64         `json:"similarity"`
	AmountMatches bool            `json:"amount_matches"`
}

// RuleResultView is the outcome of one scoring rule
type RuleResultView struct {
	Rule      string `json:"rule"`
	Qualified bool   `json:"qualified,omitempty"`
	Weight    int    `json:"weight,omitempty"`
	Score     int    `json:"score,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// EvaluationResult is the scoring report of a movement.
// Proposed is only set by ProposeMatch.
type EvaluationResult struct {
	MovementID     uuid.UUID        `json:"movement_id"`
	Confidence     int              `json:"confidence"`
	MatchScore     int              `json:"match_score"`
	Classification string           `json:"classification"`
	Reasons        []string         `json:"reasons"`
	Rules          []RuleResultView `json:"rules"`
	Suggestions    []SuggestionView `json:"suggestions"`
	Proposed       bool             `json:"proposed"`
	Status         string           `json:"status"`
}

// MovementStatusResult is returned by status-only operations
type MovementStatusResult struct {
	MovementID uuid.UUID `json:"movement_id"`
	Status     string    `json:"status"`
}

func toPaymentView(p *finance.Payment) PaymentView {
	return PaymentView{
		ID:             p.ID,
		InvoiceID:      p.InvoiceID,
		StudentID:      p.StudentID,
		Amount:         p.Amount,
		PaymentDate:    p.PaymentDate,
		Method:         p.Method.String(),
		IdempotencyKey: p.IdempotencyKey,
		IsCredit:       p.IsCredit(),
	}
}

func toStepViews(movementID uuid.UUID, plan *finance.AllocationPlan) []StepView {
	steps := plan.AllSteps()
	views := make([]StepView, 0, len(steps))
	for _, s := range steps {
		v := StepView{
			Ordinal:           s.Ordinal,
			InvoiceNumber:     s.InvoiceNumber,
			Amount:            s.Amount,
			OutstandingBefore: s.OutstandingBefore,
			OutstandingAfter:  s.OutstandingAfter,
			IdempotencyKey:    s.Key(movementID).String(),
			IsCredit:          s.IsCredit(),
		}
		if !s.IsCredit() {
			id := s.InvoiceID
			v.InvoiceID = &id
		}
		views = append(views, v)
	}
	return views
}

func toSkippedViews(issues []finance.AllocationIssue) []SkippedInvoiceView {
	if len(issues) == 0 {
		return nil
	}
	views := make([]SkippedInvoiceView, len(issues))
	for i, is := range issues {
		views[i] = SkippedInvoiceView{
			InvoiceID:     is.InvoiceID,
			InvoiceNumber: is.InvoiceNumber,
			State:         is.State.String(),
			Reason:        is.Reason,
		}
	}
	return views
}

func toInvoiceStateView(inv *finance.Invoice) InvoiceStateView {
	return InvoiceStateView{
		InvoiceID:   inv.ID,
		Number:      inv.Number,
		State:       inv.State.String(),
		TotalAmount: inv.TotalAmount,
		PaidAmount:  inv.PaidAmount,
	}
}

func toEvaluationResult(movementID uuid.UUID, ev scoring.Evaluation, suggestions []scoring.Suggestion) *EvaluationResult {
	res := &EvaluationResult{
		MovementID:     movementID,
		Confidence:     ev.Confidence,
		MatchScore:     ev.MatchScore,
		Classification: string(ev.Classification),
		Reasons:        ev.Reasons,
		Rules:          make([]RuleResultView, len(ev.Results)),
		Suggestions:    make([]SuggestionView, len(suggestions)),
	}
	if res.Reasons == nil {
		res.Reasons = []string{}
	}
	for i, r := range ev.Results {
		res.Rules[i] = RuleResultView{Rule: r.Rule, Qualified: r.Qualified, Weight: r.Weight, Score: r.Score, Reason: r.Reason}
	}
	for i, s := range suggestions {
		res.Suggestions[i] = SuggestionView{
			InvoiceID:     s.InvoiceID,
			StudentID:     s.StudentID,
			Number:        s.Number,
			Outstanding:   s.Outstanding,
			DueDate:       s.DueDate,
			Similarity:    s.Similarity,
			AmountMatches: s.AmountMatches,
		}
	}
	return res
}
