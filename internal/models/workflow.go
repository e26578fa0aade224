package models

import (
	"fmt"
	"time"
)

// Workflow is a reusable, user-owned routing policy of ordered approval steps.
type Workflow struct {
	ID                   int64          `json:"id"`
	UserID               string         `json:"user_id"`
	Name                 string         `json:"name"`
	Description          string         `json:"description,omitempty"`
	Steps                []ApprovalStep `json:"approval_steps"`
	RequireAllApprovers  bool           `json:"require_all_approvers"`
	AutoApproveThreshold *float64       `json:"auto_approve_threshold,omitempty"`
	IsActive             bool           `json:"is_active"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}

// ApprovalStep is one stage of a workflow. Steps are embedded in the workflow
// row as JSON, never persisted standalone.
type ApprovalStep struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Approvers   ApproverSet     `json:"approvers"`
	Required    bool            `json:"required"`
	Conditions  *StepConditions `json:"conditions,omitempty"`
}

// StepConditions holds optional amount-based step conditions. MinAmount is
// stored for workflow templates but is not evaluated during routing; steps are
// visited unconditionally in array order.
type StepConditions struct {
	MinAmount *float64 `json:"min_amount,omitempty"`
}

// ApproverSet is the set of identities allowed to action a step.
type ApproverSet []string

// Contains reports whether userID is a member of the set.
func (s ApproverSet) Contains(userID string) bool {
	for _, a := range s {
		if a == userID {
			return true
		}
	}
	return false
}

// Validate checks workflow structural invariants: a non-empty name, at least
// one step, and every step named with a non-empty approver set.
func (w *Workflow) Validate() error {
	if w.Name == "" {
		return fmt.Errorf("workflow name is required")
	}
	if len(w.Steps) == 0 {
		return fmt.Errorf("workflow requires at least one approval step")
	}
	for i, step := range w.Steps {
		if step.Name == "" {
			return fmt.Errorf("approval step %d requires a name", i)
		}
		if len(step.Approvers) == 0 {
			return fmt.Errorf("approval step %q requires at least one approver", step.Name)
		}
	}
	return nil
}

// HasApprover reports whether userID appears in any step's approver set.
func (w *Workflow) HasApprover(userID string) bool {
	for _, step := range w.Steps {
		if step.Approvers.Contains(userID) {
			return true
		}
	}
	return false
}

// WorkflowPatch is a partial update; nil fields are left unchanged.
type WorkflowPatch struct {
	Name                 *string         `json:"name,omitempty"`
	Description          *string         `json:"description,omitempty"`
	Steps                *[]ApprovalStep `json:"approval_steps,omitempty"`
	RequireAllApprovers  *bool           `json:"require_all_approvers,omitempty"`
	AutoApproveThreshold *float64        `json:"auto_approve_threshold,omitempty"`
	IsActive             *bool           `json:"is_active,omitempty"`
}
