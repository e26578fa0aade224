// Package approval implements the invoice approval workflow engine: workflow
// management, submission routing with auto-approval, approve/reject action
// processing, notification fan-out and approval queries.
package approval

import (
	"context"
	"database/sql"
	"time"

	"github.com/invopilot/invopilot/internal/models"
	"github.com/invopilot/invopilot/internal/notification"
	"go.uber.org/zap"
)

// Engine owns workflow selection, step advancement, authorization and
// terminal-state logic. All status writes go through conditional updates so
// the engine stays correct when run as multiple stateless replicas.
type Engine struct {
	db         TxRunner
	workflows  WorkflowStore
	approvals  ApprovalStore
	invoices   InvoiceStore
	dispatcher notification.Dispatcher
	logger     *zap.Logger
}

// NewEngine creates a new approval engine.
func NewEngine(
	db TxRunner,
	workflows WorkflowStore,
	approvals ApprovalStore,
	invoices InvoiceStore,
	dispatcher notification.Dispatcher,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		db:         db,
		workflows:  workflows,
		approvals:  approvals,
		invoices:   invoices,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// CreateWorkflow validates and persists a new workflow owned by userID.
// New workflows are always active.
func (e *Engine) CreateWorkflow(userID string, w *models.Workflow) (*models.Workflow, error) {
	w.UserID = userID
	w.IsActive = true

	if err := w.Validate(); err != nil {
		return nil, validationError("%s", err.Error())
	}

	if err := e.workflows.Create(nil, w); err != nil {
		return nil, err
	}

	e.logger.Info("Workflow created",
		zap.Int64("id", w.ID),
		zap.String("user_id", userID),
		zap.Int("steps", len(w.Steps)))
	return w, nil
}

// GetWorkflow retrieves a workflow by id, scoped to its owner.
func (e *Engine) GetWorkflow(id int64, userID string) (*models.Workflow, error) {
	w, err := e.workflows.GetByID(id, userID)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, notFoundError("workflow not found")
	}
	return w, nil
}

// ListWorkflows retrieves all workflows owned by userID.
func (e *Engine) ListWorkflows(userID string) ([]*models.Workflow, error) {
	return e.workflows.ListByUser(userID)
}

// UpdateWorkflow applies a partial update. Supplied steps are re-validated
// with the same rules as creation. Edits apply going forward only; in-flight
// approvals keep referencing the workflow row by id.
func (e *Engine) UpdateWorkflow(id int64, userID string, patch *models.WorkflowPatch) (*models.Workflow, error) {
	w, err := e.workflows.GetByID(id, userID)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, notFoundError("workflow not found")
	}

	if patch.Name != nil {
		w.Name = *patch.Name
	}
	if patch.Description != nil {
		w.Description = *patch.Description
	}
	if patch.Steps != nil {
		w.Steps = *patch.Steps
	}
	if patch.RequireAllApprovers != nil {
		w.RequireAllApprovers = *patch.RequireAllApprovers
	}
	if patch.AutoApproveThreshold != nil {
		w.AutoApproveThreshold = patch.AutoApproveThreshold
	}
	if patch.IsActive != nil {
		w.IsActive = *patch.IsActive
	}

	if err := w.Validate(); err != nil {
		return nil, validationError("%s", err.Error())
	}

	if err := e.workflows.Update(nil, w); err != nil {
		return nil, err
	}

	e.logger.Info("Workflow updated", zap.Int64("id", w.ID), zap.String("user_id", userID))
	return w, nil
}

// DeleteWorkflow hard-deletes a workflow unless approvals are still pending
// against it.
func (e *Engine) DeleteWorkflow(id int64, userID string) error {
	w, err := e.workflows.GetByID(id, userID)
	if err != nil {
		return err
	}
	if w == nil {
		return notFoundError("workflow not found")
	}

	pending, err := e.approvals.CountPendingByWorkflow(id)
	if err != nil {
		return err
	}
	if pending > 0 {
		return conflictError("workflow has %d pending approvals", pending)
	}

	rows, err := e.workflows.Delete(nil, id, userID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return notFoundError("workflow not found")
	}

	e.logger.Info("Workflow deleted", zap.Int64("id", id), zap.String("user_id", userID))
	return nil
}

// SubmitForApproval routes an invoice into a workflow. Invoices at or below
// the workflow's auto-approve threshold bypass routing entirely and come back
// already approved; everything else starts pending at step 0 and the step-0
// approvers are notified.
func (e *Engine) SubmitForApproval(ctx context.Context, invoiceID int64, userID string, workflowID int64, notes string) (*models.ApprovalRecord, error) {
	w, err := e.workflows.GetByID(workflowID, userID)
	if err != nil {
		return nil, err
	}
	if w == nil || !w.IsActive {
		return nil, notFoundError("workflow not found or inactive")
	}

	inv, err := e.invoices.GetByID(invoiceID, userID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, notFoundError("invoice not found")
	}

	now := time.Now().UTC()

	if w.AutoApproveThreshold != nil && inv.Amount <= *w.AutoApproveThreshold {
		record := &models.ApprovalRecord{
			InvoiceID:   invoiceID,
			WorkflowID:  workflowID,
			Status:      models.ApprovalStatusApproved,
			CurrentStep: models.AutoApprovedStep,
			SubmittedBy: userID,
			SubmittedAt: now,
			ApprovedAt:  &now,
			ApprovedBy:  models.SystemActor,
			Notes:       notes,
			Data: models.ApprovalData{
				History: []models.HistoryEntry{{
					Step:      models.AutoApprovedStep,
					Action:    models.ActionAutoApproved,
					Actor:     models.SystemActor,
					Timestamp: now,
					Comment:   "amount within auto-approve threshold",
				}},
			},
		}

		err := e.db.WithTransaction(func(tx *sql.Tx) error {
			if err := e.approvals.Create(tx, record); err != nil {
				return err
			}
			return e.invoices.UpdateStatus(tx, invoiceID, models.InvoiceStatusApproved)
		})
		if err != nil {
			return nil, err
		}

		e.logger.Info("Invoice auto-approved",
			zap.Int64("invoice_id", invoiceID),
			zap.Int64("workflow_id", workflowID),
			zap.Float64("amount", inv.Amount))
		return record, nil
	}

	record := &models.ApprovalRecord{
		InvoiceID:   invoiceID,
		WorkflowID:  workflowID,
		Status:      models.ApprovalStatusPending,
		CurrentStep: 0,
		SubmittedBy: userID,
		SubmittedAt: now,
		Notes:       notes,
		Data: models.ApprovalData{
			StepsCompleted: []int{},
			History:        []models.HistoryEntry{},
		},
	}

	err = e.db.WithTransaction(func(tx *sql.Tx) error {
		if err := e.approvals.Create(tx, record); err != nil {
			return err
		}
		return e.invoices.UpdateStatus(tx, invoiceID, models.InvoiceStatusPendingApproval)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Invoice submitted for approval",
		zap.Int64("invoice_id", invoiceID),
		zap.Int64("workflow_id", workflowID),
		zap.Int64("approval_id", record.ID))

	e.notifyStepApprovers(ctx, w, inv, record, 0)
	return record, nil
}

// ProcessApproval applies an approve or reject action by actorID to a pending
// approval record. The state transition commits through a conditional update;
// a concurrent transition surfaces as ErrConflict, never as a silent retry.
func (e *Engine) ProcessApproval(ctx context.Context, approvalID int64, actorID, action, comment string) (*models.ApprovalRecord, error) {
	if action != models.ActionApprove && action != models.ActionReject {
		return nil, validationError("invalid action: %s", action)
	}

	record, err := e.approvals.GetByID(approvalID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, notFoundError("approval not found")
	}
	if record.IsTerminal() {
		return nil, conflictError("approval is not pending")
	}

	w, err := e.workflows.GetAnyByID(record.WorkflowID)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, notFoundError("workflow not found")
	}
	if record.CurrentStep < 0 || record.CurrentStep >= len(w.Steps) {
		return nil, conflictError("workflow steps changed under pending approval")
	}

	step := w.Steps[record.CurrentStep]
	if !step.Approvers.Contains(actorID) {
		return nil, unauthorizedError("user %s is not an approver for step %q", actorID, step.Name)
	}

	now := time.Now().UTC()
	record.Data.AppendHistory(models.HistoryEntry{
		Step:      record.CurrentStep,
		Action:    action,
		Actor:     actorID,
		Timestamp: now,
		Comment:   comment,
	})

	var invoiceStatus string
	advanced := false

	if action == models.ActionReject {
		record.Status = models.ApprovalStatusRejected
		invoiceStatus = models.InvoiceStatusDraft
	} else {
		record.Data.CompleteStep(record.CurrentStep)

		complete := len(record.Data.StepsCompleted) >= 1
		if w.RequireAllApprovers {
			complete = len(record.Data.StepsCompleted) == len(w.Steps)
		}

		if complete {
			record.Status = models.ApprovalStatusApproved
			record.ApprovedAt = &now
			record.ApprovedBy = actorID
			invoiceStatus = models.InvoiceStatusApproved
		} else {
			record.CurrentStep++
			advanced = true
		}
	}

	err = e.db.WithTransaction(func(tx *sql.Tx) error {
		rows, err := e.approvals.UpdateWhereStatus(tx, record.ID, models.ApprovalStatusPending, record)
		if err != nil {
			return err
		}
		if rows == 0 {
			return conflictError("approval was actioned concurrently")
		}
		if invoiceStatus != "" {
			return e.invoices.UpdateStatus(tx, record.InvoiceID, invoiceStatus)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Approval action processed",
		zap.Int64("approval_id", record.ID),
		zap.String("actor", actorID),
		zap.String("action", action),
		zap.String("status", record.Status),
		zap.Int("current_step", record.CurrentStep))

	inv, invErr := e.invoices.GetAnyByID(record.InvoiceID)
	if invErr != nil || inv == nil {
		e.logger.Warn("Skipping notifications, invoice not loadable",
			zap.Int64("invoice_id", record.InvoiceID), zap.Error(invErr))
		return record, nil
	}

	if advanced {
		e.notifyStepApprovers(ctx, w, inv, record, record.CurrentStep)
	}
	e.notifySubmitter(ctx, w, inv, record, action)

	return record, nil
}

// GetPendingApprovals returns the pending records whose current step the user
// may action. Two-phase filter: workflows the user appears in at all, then
// current-step membership.
func (e *Engine) GetPendingApprovals(userID string) ([]*models.ApprovalRecord, error) {
	active, err := e.workflows.ListActive()
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*models.Workflow)
	var workflowIDs []int64
	for _, w := range active {
		if w.HasApprover(userID) {
			byID[w.ID] = w
			workflowIDs = append(workflowIDs, w.ID)
		}
	}
	if len(workflowIDs) == 0 {
		return nil, nil
	}

	records, err := e.approvals.ListPendingByWorkflows(workflowIDs)
	if err != nil {
		return nil, err
	}

	var actionable []*models.ApprovalRecord
	for _, record := range records {
		w := byID[record.WorkflowID]
		if w == nil || record.CurrentStep < 0 || record.CurrentStep >= len(w.Steps) {
			continue
		}
		if w.Steps[record.CurrentStep].Approvers.Contains(userID) {
			actionable = append(actionable, record)
		}
	}
	return actionable, nil
}

// GetApprovalHistory returns all approval records for an invoice, newest
// first. Ownership mismatches report not-found.
func (e *Engine) GetApprovalHistory(invoiceID int64, userID string) ([]*models.ApprovalRecord, error) {
	inv, err := e.invoices.GetByID(invoiceID, userID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, notFoundError("invoice not found")
	}
	return e.approvals.ListByInvoice(invoiceID)
}

// GetApprovalStats aggregates approval counts over a date range. When the
// aggregation source fails the engine degrades to a zero-valued result
// rather than propagating the error.
func (e *Engine) GetApprovalStats(userID string, start, end time.Time) *models.ApprovalStats {
	stats, err := e.approvals.Stats(userID, start, end)
	if err != nil {
		e.logger.Warn("Approval stats unavailable, returning zero values",
			zap.String("user_id", userID), zap.Error(err))
		return &models.ApprovalStats{}
	}
	return stats
}
