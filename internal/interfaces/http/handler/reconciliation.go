package handler

import (
	"context"

	"github.com/erp/bankrecon/internal/application/reconciliation"
	"github.com/erp/bankrecon/internal/domain/finance"
	"github.com/erp/bankrecon/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReconciliationService is the application API behind the bank movement routes
type ReconciliationService interface {
	ReconcileMovement(ctx context.Context, cmd reconciliation.ReconcileMovementCommand) (*reconciliation.ReconcileResult, error)
	RevertReconciliation(ctx context.Context, movementID uuid.UUID) (*reconciliation.RevertResult, error)
	EvaluateMovement(ctx context.Context, movementID uuid.UUID) (*reconciliation.EvaluationResult, error)
	ProposeMatch(ctx context.Context, movementID uuid.UUID) (*reconciliation.EvaluationResult, error)
	IgnoreMovement(ctx context.Context, cmd reconciliation.IgnoreMovementCommand) (*reconciliation.MovementStatusResult, error)
}

// ReconcileMovementRequest targets either a student's pending debt or a
// single invoice. create_payment=false previews the allocation.
type ReconcileMovementRequest struct {
	StudentID     *uuid.UUID `json:"student_id"`
	InvoiceID     *uuid.UUID `json:"invoice_id"`
	Note          string     `json:"note" binding:"max=500"`
	CreatePayment *bool      `json:"create_payment"`
}

// IgnoreMovementRequest is the body of the ignore route
type IgnoreMovementRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// ReconciliationHandler serves the bank movement reconciliation routes
type ReconciliationHandler struct {
	BaseHandler
	service ReconciliationService
}

// NewReconciliationHandler creates a new reconciliation handler
func NewReconciliationHandler(service ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{service: service}
}

// RegisterRoutes mounts the handler under /bank-movements
func (h *ReconciliationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	movements := rg.Group("/bank-movements")
	movements.POST("/:id/reconcile", h.Reconcile)
	movements.POST("/:id/revert", h.Revert)
	movements.POST("/:id/propose", h.Propose)
	movements.POST("/:id/ignore", h.Ignore)
	movements.GET("/:id/evaluation", h.Evaluate)
}

// Reconcile applies a deposit to a student or an invoice
// @Router /bank-movements/{id}/reconcile [post]
func (h *ReconciliationHandler) Reconcile(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	var req ReconcileMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	target, err := finance.NewAllocationTarget(req.StudentID, req.InvoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	createPayment := true
	if req.CreatePayment != nil {
		createPayment = *req.CreatePayment
	}

	result, err := h.service.ReconcileMovement(c.Request.Context(), reconciliation.ReconcileMovementCommand{
		MovementID:    id,
		Target:        target,
		Note:          req.Note,
		CreatePayment: createPayment,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Revert removes the payments of a reconciled movement
// @Router /bank-movements/{id}/revert [post]
func (h *ReconciliationHandler) Revert(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := h.service.RevertReconciliation(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Evaluate scores a movement without changing it
// @Router /bank-movements/{id}/evaluation [get]
func (h *ReconciliationHandler) Evaluate(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := h.service.EvaluateMovement(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Propose scores a movement and marks it proposed when it clears both thresholds
// @Router /bank-movements/{id}/propose [post]
func (h *ReconciliationHandler) Propose(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	result, err := h.service.ProposeMatch(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Ignore excludes a movement from reconciliation
// @Router /bank-movements/{id}/ignore [post]
func (h *ReconciliationHandler) Ignore(c *gin.Context) {
	id, ok := h.parseIDParam(c, "id")
	if !ok {
		return
	}

	var req IgnoreMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.service.IgnoreMovement(c.Request.Context(), reconciliation.IgnoreMovementCommand{
		MovementID: id,
		Reason:     req.Reason,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}
