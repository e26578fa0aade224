package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/invopilot/invopilot/internal/models"
	"go.uber.org/zap"
)

// ApprovalRepository handles approval record database operations. Records
// are never deleted; they are the audit trail.
type ApprovalRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewApprovalRepository creates a new approval repository
func NewApprovalRepository(db *sql.DB, logger *zap.Logger) *ApprovalRepository {
	return &ApprovalRepository{db: db, logger: logger}
}

const approvalColumns = `id, invoice_id, workflow_id, status, current_step,
	submitted_by, submitted_at, approved_at, approved_by, notes, approval_data,
	created_at, updated_at`

// Create persists a new approval record.
func (r *ApprovalRepository) Create(tx *sql.Tx, a *models.ApprovalRecord) error {
	dataJSON, err := json.Marshal(a.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal approval data: %w", err)
	}

	query := `
		INSERT INTO approvals (
			invoice_id, workflow_id, status, current_step, submitted_by,
			submitted_at, approved_at, approved_by, notes, approval_data
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := runner(tx, r.db).Exec(query,
		a.InvoiceID,
		a.WorkflowID,
		a.Status,
		a.CurrentStep,
		a.SubmittedBy,
		a.SubmittedAt,
		a.ApprovedAt,
		a.ApprovedBy,
		a.Notes,
		string(dataJSON),
	)
	if err != nil {
		r.logger.Error("Failed to create approval record", zap.Error(err))
		return fmt.Errorf("failed to create approval record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	a.ID = id
	return nil
}

// GetByID retrieves an approval record by id. Returns nil when missing.
func (r *ApprovalRepository) GetByID(id int64) (*models.ApprovalRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM approvals WHERE id = ?`, approvalColumns)
	return r.scanOne(r.db.QueryRow(query, id))
}

// UpdateWhereStatus conditionally updates the record's routing state. The
// WHERE clause on the expected status is the serialization point for
// concurrent actions: zero rows affected means another caller transitioned
// the record first, and the engine reports a conflict instead of retrying.
func (r *ApprovalRepository) UpdateWhereStatus(tx *sql.Tx, id int64, expectedStatus string, a *models.ApprovalRecord) (int64, error) {
	dataJSON, err := json.Marshal(a.Data)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal approval data: %w", err)
	}

	query := `
		UPDATE approvals
		SET status = ?, current_step = ?, approved_at = ?, approved_by = ?,
			approval_data = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?
	`
	result, err := runner(tx, r.db).Exec(query,
		a.Status,
		a.CurrentStep,
		a.ApprovedAt,
		a.ApprovedBy,
		string(dataJSON),
		id,
		expectedStatus,
	)
	if err != nil {
		r.logger.Error("Failed to update approval record", zap.Int64("id", id), zap.Error(err))
		return 0, fmt.Errorf("failed to update approval record: %w", err)
	}
	return result.RowsAffected()
}

// CountPendingByWorkflow counts pending records referencing a workflow.
func (r *ApprovalRepository) CountPendingByWorkflow(workflowID int64) (int, error) {
	var count int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM approvals WHERE workflow_id = ? AND status = ?`,
		workflowID, models.ApprovalStatusPending,
	).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to count pending approvals", zap.Int64("workflow_id", workflowID), zap.Error(err))
		return 0, fmt.Errorf("failed to count pending approvals: %w", err)
	}
	return count, nil
}

// ListPendingByWorkflows retrieves pending records for the given workflow ids.
func (r *ApprovalRepository) ListPendingByWorkflows(workflowIDs []int64) ([]*models.ApprovalRecord, error) {
	if len(workflowIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(workflowIDs)), ",")
	query := fmt.Sprintf(
		`SELECT %s FROM approvals WHERE status = ? AND workflow_id IN (%s) ORDER BY submitted_at ASC`,
		approvalColumns, placeholders)

	args := make([]any, 0, len(workflowIDs)+1)
	args = append(args, models.ApprovalStatusPending)
	for _, id := range workflowIDs {
		args = append(args, id)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		r.logger.Error("Failed to list pending approvals", zap.Error(err))
		return nil, fmt.Errorf("failed to list pending approvals: %w", err)
	}
	defer rows.Close()
	return r.scanMany(rows)
}

// ListByInvoice retrieves all approval records for an invoice, newest first.
func (r *ApprovalRepository) ListByInvoice(invoiceID int64) ([]*models.ApprovalRecord, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM approvals WHERE invoice_id = ? ORDER BY submitted_at DESC`,
		approvalColumns)
	rows, err := r.db.Query(query, invoiceID)
	if err != nil {
		r.logger.Error("Failed to list approvals for invoice", zap.Int64("invoice_id", invoiceID), zap.Error(err))
		return nil, fmt.Errorf("failed to list approvals: %w", err)
	}
	defer rows.Close()
	return r.scanMany(rows)
}

// Stats aggregates approval counts and average approval latency for invoices
// owned by the user over [start, end].
func (r *ApprovalRepository) Stats(userID string, start, end time.Time) (*models.ApprovalStats, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN a.status = 'pending' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN a.status = 'approved' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN a.status = 'rejected' THEN 1 ELSE 0 END), 0),
			COALESCE(AVG(CASE WHEN a.approved_at IS NOT NULL
				THEN (julianday(a.approved_at) - julianday(a.submitted_at)) * 24
				END), 0)
		FROM approvals a
		JOIN invoices i ON i.id = a.invoice_id
		WHERE i.user_id = ? AND a.submitted_at >= ? AND a.submitted_at <= ?
	`
	var stats models.ApprovalStats
	err := r.db.QueryRow(query, userID, start, end).Scan(
		&stats.Total,
		&stats.Pending,
		&stats.Approved,
		&stats.Rejected,
		&stats.AvgApprovalHours,
	)
	if err != nil {
		r.logger.Error("Failed to aggregate approval stats", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to aggregate approval stats: %w", err)
	}
	return &stats, nil
}

func (r *ApprovalRepository) scanOne(row *sql.Row) (*models.ApprovalRecord, error) {
	var a models.ApprovalRecord
	var approvedAt sql.NullTime
	var dataJSON string

	err := row.Scan(
		&a.ID,
		&a.InvoiceID,
		&a.WorkflowID,
		&a.Status,
		&a.CurrentStep,
		&a.SubmittedBy,
		&a.SubmittedAt,
		&approvedAt,
		&a.ApprovedBy,
		&a.Notes,
		&dataJSON,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to scan approval record", zap.Error(err))
		return nil, fmt.Errorf("failed to get approval record: %w", err)
	}

	if approvedAt.Valid {
		a.ApprovedAt = &approvedAt.Time
	}
	if err := json.Unmarshal([]byte(dataJSON), &a.Data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal approval data: %w", err)
	}
	return &a, nil
}

func (r *ApprovalRepository) scanMany(rows *sql.Rows) ([]*models.ApprovalRecord, error) {
	var records []*models.ApprovalRecord
	for rows.Next() {
		var a models.ApprovalRecord
		var approvedAt sql.NullTime
		var dataJSON string

		err := rows.Scan(
			&a.ID,
			&a.InvoiceID,
			&a.WorkflowID,
			&a.Status,
			&a.CurrentStep,
			&a.SubmittedBy,
			&a.SubmittedAt,
			&approvedAt,
			&a.ApprovedBy,
			&a.Notes,
			&dataJSON,
			&a.CreatedAt,
			&a.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval record: %w", err)
		}

		if approvedAt.Valid {
			a.ApprovedAt = &approvedAt.Time
		}
		if err := json.Unmarshal([]byte(dataJSON), &a.Data); err != nil {
			return nil, fmt.Errorf("failed to unmarshal approval data: %w", err)
		}
		records = append(records, &a)
	}
	return records, rows.Err()
}
