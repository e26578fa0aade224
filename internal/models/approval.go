package models

import "time"

// Approval record statuses. Once a record leaves pending it is terminal.
const (
	ApprovalStatusPending  = "pending"
	ApprovalStatusApproved = "approved"
	ApprovalStatusRejected = "rejected"
)

// Approval actions accepted by the engine.
const (
	ActionApprove = "approve"
	ActionReject  = "reject"

	// ActionAutoApproved is recorded when a submission clears the workflow's
	// auto-approve threshold and never enters routing.
	ActionAutoApproved = "auto_approved"
)

// AutoApprovedStep is the currentStep sentinel for records that bypassed
// routing entirely.
const AutoApprovedStep = -1

// SystemActor is the history actor for engine-initiated transitions.
const SystemActor = "system"

// ApprovalRecord tracks one invoice's progress through a workflow.
type ApprovalRecord struct {
	ID          int64        `json:"id"`
	InvoiceID   int64        `json:"invoice_id"`
	WorkflowID  int64        `json:"workflow_id"`
	Status      string       `json:"status"`
	CurrentStep int          `json:"current_step"`
	SubmittedBy string       `json:"submitted_by"`
	SubmittedAt time.Time    `json:"submitted_at"`
	ApprovedAt  *time.Time   `json:"approved_at,omitempty"`
	ApprovedBy  string       `json:"approved_by,omitempty"`
	Notes       string       `json:"notes,omitempty"`
	Data        ApprovalData `json:"approval_data"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// ApprovalData is the JSON blob column holding per-record routing state.
type ApprovalData struct {
	StepsCompleted []int          `json:"steps_completed"`
	History        []HistoryEntry `json:"approval_history"`
}

// HistoryEntry is one append-only audit log line.
type HistoryEntry struct {
	Step      int       `json:"step"`
	Action    string    `json:"action"`
	Actor     string    `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Comment   string    `json:"comment,omitempty"`
}

// IsTerminal reports whether the record accepts no further actions.
func (r *ApprovalRecord) IsTerminal() bool {
	return r.Status != ApprovalStatusPending
}

// StepCompleted reports whether step index i has already been approved.
func (d *ApprovalData) StepCompleted(i int) bool {
	for _, s := range d.StepsCompleted {
		if s == i {
			return true
		}
	}
	return false
}

// CompleteStep records step index i as approved, ignoring duplicates.
func (d *ApprovalData) CompleteStep(i int) {
	if !d.StepCompleted(i) {
		d.StepsCompleted = append(d.StepsCompleted, i)
	}
}

// AppendHistory appends an audit entry.
func (d *ApprovalData) AppendHistory(e HistoryEntry) {
	d.History = append(d.History, e)
}

// ApprovalStats aggregates approval counts over a date range.
type ApprovalStats struct {
	Total            int     `json:"total"`
	Pending          int     `json:"pending"`
	Approved         int     `json:"approved"`
	Rejected         int     `json:"rejected"`
	AvgApprovalHours float64 `json:"avg_approval_hours"`
}
