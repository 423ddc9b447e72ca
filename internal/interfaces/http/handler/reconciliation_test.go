package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/erp/bankrecon/internal/application/reconciliation"
	"github.com/erp/bankrecon/internal/domain/finance"
	"github.com/erp/bankrecon/internal/domain/shared"
	"github.com/erp/bankrecon/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockReconciliationService struct {
	mock.Mock
}

func (m *mockReconciliationService) ReconcileMovement(ctx context.Context, cmd reconciliation.ReconcileMovementCommand) (*reconciliation.ReconcileResult, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconciliation.ReconcileResult), args.Error(1)
}

func (m *mockReconciliationService) RevertReconciliation(ctx context.Context, movementID uuid.UUID) (*reconciliation.RevertResult, error) {
	args := m.Called(ctx, movementID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconciliation.RevertResult), args.Error(1)
}

func (m *mockReconciliationService) EvaluateMovement(ctx context.Context, movementID uuid.UUID) (*reconciliation.EvaluationResult, error) {
	args := m.Called(ctx, movementID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconciliation.EvaluationResult), args.Error(1)
}

func (m *mockReconciliationService) ProposeMatch(ctx context.Context, movementID uuid.UUID) (*reconciliation.EvaluationResult, error) {
	args := m.Called(ctx, movementID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconciliation.EvaluationResult), args.Error(1)
}

func (m *mockReconciliationService) IgnoreMovement(ctx context.Context, cmd reconciliation.IgnoreMovementCommand) (*reconciliation.MovementStatusResult, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconciliation.MovementStatusResult), args.Error(1)
}

func setupReconciliationRouter(svc ReconciliationService) *gin.Engine {
	r := newTestEngine()
	NewReconciliationHandler(svc).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestReconciliationHandler_ReconcileStudent(t *testing.T) {
	svc := new(mockReconciliationService)
	movementID := uuid.New()
	studentID := uuid.New()

	svc.On("ReconcileMovement", mock.Anything, mock.MatchedBy(func(cmd reconciliation.ReconcileMovementCommand) bool {
		return cmd.MovementID == movementID &&
			cmd.Target.Kind() == finance.TargetKindStudent &&
			cmd.Target.ID() == studentID &&
			cmd.CreatePayment &&
			cmd.Note == "march tuition"
	})).Return(&reconciliation.ReconcileResult{
		MovementID:     movementID,
		TargetKind:     string(finance.TargetKindStudent),
		TargetID:       studentID,
		TotalAllocated: decimal.NewFromInt(1200),
		CreditAmount:   decimal.Zero,
		Status:         "RECONCILED",
	}, nil)

	w := doJSON(setupReconciliationRouter(svc), http.MethodPost,
		"/api/v1/bank-movements/"+movementID.String()+"/reconcile",
		`{"student_id": "`+studentID.String()+`", "note": "march tuition"}`)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	result := decodeData[reconciliation.ReconcileResult](t, resp)
	assert.Equal(t, movementID, result.MovementID)
	assert.True(t, decimal.NewFromInt(1200).Equal(result.TotalAllocated))
	svc.AssertExpectations(t)
}

func TestReconciliationHandler_ReconcileDryRun(t *testing.T) {
	svc := new(mockReconciliationService)
	movementID := uuid.New()
	invoiceID := uuid.New()

	svc.On("ReconcileMovement", mock.Anything, mock.MatchedBy(func(cmd reconciliation.ReconcileMovementCommand) bool {
		return cmd.Target.Kind() == finance.TargetKindInvoice && cmd.Target.ID() == invoiceID && !cmd.CreatePayment
	})).Return(&reconciliation.ReconcileResult{MovementID: movementID, DryRun: true}, nil)

	w := doJSON(setupReconciliationRouter(svc), http.MethodPost,
		"/api/v1/bank-movements/"+movementID.String()+"/reconcile",
		`{"invoice_id": "`+invoiceID.String()+`", "create_payment": false}`)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	svc.AssertExpectations(t)
}

func TestReconciliationHandler_ReconcileRejectsBadTargets(t *testing.T) {
	movementPath := "/api/v1/bank-movements/" + uuid.NewString() + "/reconcile"

	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"no target", movementPath, `{}`, http.StatusBadRequest, dto.ErrCodeInvalidArguments},
		{"both targets", movementPath, `{"student_id": "` + uuid.NewString() + `", "invoice_id": "` + uuid.NewString() + `"}`, http.StatusBadRequest, dto.ErrCodeInvalidArguments},
		{"note too long", movementPath, `{"student_id": "` + uuid.NewString() + `", "note": "` + strings.Repeat("n", 501) + `"}`, http.StatusBadRequest, dto.ErrCodeValidation},
		{"malformed uuid", movementPath, `{"student_id": "nope"}`, http.StatusBadRequest, dto.ErrCodeInvalidJSON},
		{"bad movement id", "/api/v1/bank-movements/abc/reconcile", `{}`, http.StatusBadRequest, dto.ErrCodeBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockReconciliationService)
			w := doJSON(setupReconciliationRouter(svc), http.MethodPost, tt.path, tt.body)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeResponse(t, w)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			svc.AssertNotCalled(t, "ReconcileMovement", mock.Anything, mock.Anything)
		})
	}
}

func TestReconciliationHandler_ReconcileDomainErrors(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{shared.ErrNoPendingDebt, http.StatusUnprocessableEntity, dto.ErrCodeNoPendingDebt},
		{shared.ErrAlreadyReconciled, http.StatusConflict, dto.ErrCodeAlreadyReconciled},
		{shared.ErrNotFound, http.StatusNotFound, dto.ErrCodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.wantCode, func(t *testing.T) {
			svc := new(mockReconciliationService)
			svc.On("ReconcileMovement", mock.Anything, mock.Anything).Return(nil, tt.err)

			w := doJSON(setupReconciliationRouter(svc), http.MethodPost,
				"/api/v1/bank-movements/"+uuid.NewString()+"/reconcile",
				`{"student_id": "`+uuid.NewString()+`"}`)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, decodeResponse(t, w).Error.Code)
		})
	}
}

func TestReconciliationHandler_Revert(t *testing.T) {
	svc := new(mockReconciliationService)
	movementID := uuid.New()
	svc.On("RevertReconciliation", mock.Anything, movementID).Return(&reconciliation.RevertResult{
		MovementID:      movementID,
		RemovedPayments: 2,
		RemovedAmount:   decimal.NewFromInt(1500),
		Status:          "PENDING",
	}, nil)

	w := doJSON(setupReconciliationRouter(svc), http.MethodPost, "/api/v1/bank-movements/"+movementID.String()+"/revert", "")

	require.Equal(t, http.StatusOK, w.Code)
	result := decodeData[reconciliation.RevertResult](t, decodeResponse(t, w))
	assert.Equal(t, 2, result.RemovedPayments)
	assert.Equal(t, "PENDING", result.Status)
}

func TestReconciliationHandler_EvaluateAndPropose(t *testing.T) {
	svc := new(mockReconciliationService)
	movementID := uuid.New()
	evaluation := &reconciliation.EvaluationResult{
		MovementID:     movementID,
		Confidence:     240,
		MatchScore:     50,
		Classification: "PROBABLE_MATCH",
	}
	svc.On("EvaluateMovement", mock.Anything, movementID).Return(evaluation, nil)
	proposed := *evaluation
	proposed.Proposed = true
	svc.On("ProposeMatch", mock.Anything, movementID).Return(&proposed, nil)

	r := setupReconciliationRouter(svc)

	w := doJSON(r, http.MethodGet, "/api/v1/bank-movements/"+movementID.String()+"/evaluation", "")
	require.Equal(t, http.StatusOK, w.Code)
	got := decodeData[reconciliation.EvaluationResult](t, decodeResponse(t, w))
	assert.Equal(t, 240, got.Confidence)
	assert.False(t, got.Proposed)

	w = doJSON(r, http.MethodPost, "/api/v1/bank-movements/"+movementID.String()+"/propose", "")
	require.Equal(t, http.StatusOK, w.Code)
	got = decodeData[reconciliation.EvaluationResult](t, decodeResponse(t, w))
	assert.True(t, got.Proposed)

	svc.AssertExpectations(t)
}

func TestReconciliationHandler_Ignore(t *testing.T) {
	svc := new(mockReconciliationService)
	movementID := uuid.New()
	svc.On("IgnoreMovement", mock.Anything, reconciliation.IgnoreMovementCommand{
		MovementID: movementID,
		Reason:     "bank fee reversal",
	}).Return(&reconciliation.MovementStatusResult{MovementID: movementID, Status: "IGNORED"}, nil)

	r := setupReconciliationRouter(svc)
	path := "/api/v1/bank-movements/" + movementID.String() + "/ignore"

	w := doJSON(r, http.MethodPost, path, `{"reason": "bank fee reversal"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "IGNORED", decodeData[reconciliation.MovementStatusResult](t, decodeResponse(t, w)).Status)

	w = doJSON(r, http.MethodPost, path, `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "reason", resp.Error.Details[0].Field)

	svc.AssertNumberOfCalls(t, "IgnoreMovement", 1)
}
