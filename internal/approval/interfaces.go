package approval

import (
	"database/sql"
	"time"

	"github.com/invopilot/invopilot/internal/models"
)

// TxRunner groups store writes into one atomic unit of work.
type TxRunner interface {
	WithTransaction(fn func(*sql.Tx) error) error
}

// WorkflowStore is the workflow persistence the engine depends on.
type WorkflowStore interface {
	Create(tx *sql.Tx, w *models.Workflow) error
	GetByID(id int64, userID string) (*models.Workflow, error)
	GetAnyByID(id int64) (*models.Workflow, error)
	ListByUser(userID string) ([]*models.Workflow, error)
	ListActive() ([]*models.Workflow, error)
	Update(tx *sql.Tx, w *models.Workflow) error
	Delete(tx *sql.Tx, id int64, userID string) (int64, error)
}

// ApprovalStore is the approval record persistence the engine depends on.
// UpdateWhereStatus is the conditional-update primitive: it must only apply
// the patch when the stored status still equals expectedStatus, and report
// the number of rows affected.
type ApprovalStore interface {
	Create(tx *sql.Tx, a *models.ApprovalRecord) error
	GetByID(id int64) (*models.ApprovalRecord, error)
	UpdateWhereStatus(tx *sql.Tx, id int64, expectedStatus string, a *models.ApprovalRecord) (int64, error)
	CountPendingByWorkflow(workflowID int64) (int, error)
	ListPendingByWorkflows(workflowIDs []int64) ([]*models.ApprovalRecord, error)
	ListByInvoice(invoiceID int64) ([]*models.ApprovalRecord, error)
	Stats(userID string, start, end time.Time) (*models.ApprovalStats, error)
}

// InvoiceStore is the slice of invoice persistence the engine touches.
type InvoiceStore interface {
	GetByID(id int64, userID string) (*models.Invoice, error)
	GetAnyByID(id int64) (*models.Invoice, error)
	UpdateStatus(tx *sql.Tx, id int64, status string) error
}
