package approval

import (
	"context"
	"fmt"
	"sync"

	"github.com/invopilot/invopilot/internal/models"
	"github.com/invopilot/invopilot/internal/notification"
	"go.uber.org/zap"
)

// notifyStepApprovers fans a step notification out to every approver of the
// target step, one delivery attempt per recipient. Deliveries run
// concurrently and are awaited before returning; one recipient's failure
// never blocks another, and no failure propagates to the caller.
func (e *Engine) notifyStepApprovers(ctx context.Context, w *models.Workflow, inv *models.Invoice, record *models.ApprovalRecord, stepIndex int) {
	if stepIndex < 0 || stepIndex >= len(w.Steps) {
		return
	}
	step := w.Steps[stepIndex]

	msg := notification.Message{
		Subject: fmt.Sprintf("Invoice %s awaiting your approval", inv.InvoiceNumber),
		Body: fmt.Sprintf(
			"Invoice %s for %.2f %s was submitted by %s and has reached step %q of workflow %q. Please approve or reject it.",
			inv.InvoiceNumber, inv.Amount, inv.Currency, record.SubmittedBy, step.Name, w.Name),
	}

	var wg sync.WaitGroup
	for _, approver := range step.Approvers {
		wg.Add(1)
		go func(recipient string) {
			defer wg.Done()
			if err := e.dispatcher.Send(ctx, recipient, msg); err != nil {
				e.logger.Warn("Failed to deliver approver notification",
					zap.Int64("approval_id", record.ID),
					zap.String("recipient", recipient),
					zap.Error(err))
				return
			}
			e.logger.Debug("Approver notified",
				zap.Int64("approval_id", record.ID),
				zap.String("recipient", recipient))
		}(approver)
	}
	wg.Wait()
}

// notifySubmitter sends the original submitter a best-effort update after an
// action was processed.
func (e *Engine) notifySubmitter(ctx context.Context, w *models.Workflow, inv *models.Invoice, record *models.ApprovalRecord, action string) {
	var subject, body string
	switch record.Status {
	case models.ApprovalStatusApproved:
		subject = fmt.Sprintf("Invoice %s approved", inv.InvoiceNumber)
		body = fmt.Sprintf("Invoice %s completed workflow %q and is approved.", inv.InvoiceNumber, w.Name)
	case models.ApprovalStatusRejected:
		subject = fmt.Sprintf("Invoice %s rejected", inv.InvoiceNumber)
		body = fmt.Sprintf("Invoice %s was rejected in workflow %q and returned to draft.", inv.InvoiceNumber, w.Name)
	default:
		subject = fmt.Sprintf("Invoice %s moved forward", inv.InvoiceNumber)
		body = fmt.Sprintf("Invoice %s was approved at a step of workflow %q and advanced to step %d.",
			inv.InvoiceNumber, w.Name, record.CurrentStep)
	}

	if err := e.dispatcher.Send(ctx, record.SubmittedBy, notification.Message{Subject: subject, Body: body}); err != nil {
		e.logger.Warn("Failed to deliver submitter notification",
			zap.Int64("approval_id", record.ID),
			zap.String("recipient", record.SubmittedBy),
			zap.String("action", action),
			zap.Error(err))
	}
}
