// Package reconciliation applies bank movements to student debt.
//
// Every write operation runs in one transaction obtained from a
// finance.UnitOfWork. The movement row is locked first, then the candidate
// invoice rows, so two calls for the same movement serialize and the second
// one observes the first one's payments.
package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erp/bankrecon/internal/domain/finance"
	"github.com/erp/bankrecon/internal/domain/finance/scoring"
	"github.com/erp/bankrecon/internal/domain/shared"
	"github.com/erp/bankrecon/internal/infrastructure/telemetry"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const (
	defaultSimilarityThreshold = 0.6
	defaultSuggestionLimit     = 5
	// suggestionPool bounds how many open invoices are ranked per proposal
	suggestionPool = 500
)

// Service is the reconciliation orchestrator
type Service struct {
	uow      finance.UnitOfWork
	fifo     *finance.FIFOAllocator
	direct   *finance.DirectAllocator
	rules    scoring.RuleSet
	method   finance.PaymentMethod
	minSim   float64
	suggest  int
	validate *validator.Validate
	metrics  *telemetry.ReconciliationMetrics
	logger   *zap.Logger
	now      func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithRuleSet replaces the default scoring rules
func WithRuleSet(rs scoring.RuleSet) Option {
	return func(s *Service) { s.rules = rs }
}

// WithPaymentMethod sets the method recorded on created payments
func WithPaymentMethod(m finance.PaymentMethod) Option {
	return func(s *Service) { s.method = m }
}

// WithSuggestions sets the similarity threshold and the number of ranked invoices returned
func WithSuggestions(minSimilarity float64, limit int) Option {
	return func(s *Service) {
		s.minSim = minSimilarity
		s.suggest = limit
	}
}

// WithMetrics records outcomes on m
func WithMetrics(m *telemetry.ReconciliationMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the service logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock overrides time.Now, used for payment dates and overdue checks
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithValidator shares a validator instance, e.g. the one gin binds with
func WithValidator(v *validator.Validate) Option {
	return func(s *Service) { s.validate = v }
}

// NewService creates the orchestrator
func NewService(uow finance.UnitOfWork, opts ...Option) *Service {
	s := &Service{
		uow:     uow,
		fifo:    finance.NewFIFOAllocator(),
		direct:  finance.NewDirectAllocator(),
		rules:   scoring.DefaultRuleSet(),
		method:  finance.PaymentMethodTransfer,
		minSim:  defaultSimilarityThreshold,
		suggest: defaultSuggestionLimit,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.validate == nil {
		s.validate = validator.New(validator.WithRequiredStructEnabled())
	}
	s.logger = s.logger.Named("reconciliation")
	return s
}

// validateCommand turns validator errors into INVALID_ARGUMENTS
func (s *Service) validateCommand(cmd any) error {
	err := s.validate.Struct(cmd)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate command: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
	}
	return shared.NewDomainError(shared.CodeInvalidArguments, strings.Join(msgs, "; "))
}

// recalculate derives the invoice's state from its stored payments and
// writes it back when it changed
func (s *Service) recalculate(ctx context.Context, repos finance.Repositories, inv *finance.Invoice, now time.Time) error {
	payments, err := repos.Payments.FindByInvoice(ctx, inv.ID)
	if err != nil {
		return fmt.Errorf("load payments of invoice %s: %w", inv.Number, err)
	}
	state, totals := finance.Recalculate(inv, inv.Lines, payments, now)
	if !inv.ApplyLedger(state, totals) {
		return nil
	}
	if err := repos.Invoices.UpdateState(ctx, inv); err != nil {
		return fmt.Errorf("update invoice %s: %w", inv.Number, err)
	}
	return nil
}

// candidateFor builds the scoring input of a movement
func candidateFor(m *finance.BankMovement) scoring.Candidate {
	return scoring.Candidate{
		Amount:      m.Amount,
		Date:        m.Date,
		Reference:   m.Reference,
		Description: m.Description,
	}
}
