package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/invopilot/invopilot/internal/models"
	"go.uber.org/zap"
)

// WorkflowRepository handles workflow database operations
type WorkflowRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewWorkflowRepository creates a new workflow repository
func NewWorkflowRepository(db *sql.DB, logger *zap.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

const workflowColumns = `id, user_id, name, description, steps, require_all_approvers,
	auto_approve_threshold, is_active, created_at, updated_at`

// Create persists a new workflow. Steps are stored as a JSON column.
func (r *WorkflowRepository) Create(tx *sql.Tx, w *models.Workflow) error {
	stepsJSON, err := json.Marshal(w.Steps)
	if err != nil {
		return fmt.Errorf("failed to marshal steps: %w", err)
	}

	query := `
		INSERT INTO workflows (
			user_id, name, description, steps, require_all_approvers,
			auto_approve_threshold, is_active
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	result, err := runner(tx, r.db).Exec(query,
		w.UserID,
		w.Name,
		w.Description,
		string(stepsJSON),
		w.RequireAllApprovers,
		w.AutoApproveThreshold,
		w.IsActive,
	)
	if err != nil {
		r.logger.Error("Failed to create workflow", zap.Error(err))
		return fmt.Errorf("failed to create workflow: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	w.ID = id
	return nil
}

// GetByID retrieves a workflow by id, scoped to its owner. Returns nil when
// the row is missing or owned by someone else.
func (r *WorkflowRepository) GetByID(id int64, userID string) (*models.Workflow, error) {
	query := fmt.Sprintf(`SELECT %s FROM workflows WHERE id = ? AND user_id = ?`, workflowColumns)
	return r.scanOne(r.db.QueryRow(query, id, userID))
}

// GetAnyByID retrieves a workflow by id regardless of owner. Used when
// processing approvals, where the actor is an approver rather than the owner.
func (r *WorkflowRepository) GetAnyByID(id int64) (*models.Workflow, error) {
	query := fmt.Sprintf(`SELECT %s FROM workflows WHERE id = ?`, workflowColumns)
	return r.scanOne(r.db.QueryRow(query, id))
}

// ListByUser retrieves all workflows owned by a user, newest first.
func (r *WorkflowRepository) ListByUser(userID string) ([]*models.Workflow, error) {
	query := fmt.Sprintf(`SELECT %s FROM workflows WHERE user_id = ? ORDER BY created_at DESC`, workflowColumns)
	rows, err := r.db.Query(query, userID)
	if err != nil {
		r.logger.Error("Failed to list workflows", zap.Error(err))
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}
	defer rows.Close()
	return r.scanMany(rows)
}

// ListActive retrieves every active workflow. The pending-approvals query
// scans these for approver membership.
func (r *WorkflowRepository) ListActive() ([]*models.Workflow, error) {
	query := fmt.Sprintf(`SELECT %s FROM workflows WHERE is_active = 1`, workflowColumns)
	rows, err := r.db.Query(query)
	if err != nil {
		r.logger.Error("Failed to list active workflows", zap.Error(err))
		return nil, fmt.Errorf("failed to list active workflows: %w", err)
	}
	defer rows.Close()
	return r.scanMany(rows)
}

// Update rewrites all mutable workflow fields.
func (r *WorkflowRepository) Update(tx *sql.Tx, w *models.Workflow) error {
	stepsJSON, err := json.Marshal(w.Steps)
	if err != nil {
		return fmt.Errorf("failed to marshal steps: %w", err)
	}

	query := `
		UPDATE workflows
		SET name = ?, description = ?, steps = ?, require_all_approvers = ?,
			auto_approve_threshold = ?, is_active = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND user_id = ?
	`
	_, err = runner(tx, r.db).Exec(query,
		w.Name,
		w.Description,
		string(stepsJSON),
		w.RequireAllApprovers,
		w.AutoApproveThreshold,
		w.IsActive,
		w.ID,
		w.UserID,
	)
	if err != nil {
		r.logger.Error("Failed to update workflow", zap.Int64("id", w.ID), zap.Error(err))
		return fmt.Errorf("failed to update workflow: %w", err)
	}
	return nil
}

// Delete removes a workflow, returning the number of rows deleted.
func (r *WorkflowRepository) Delete(tx *sql.Tx, id int64, userID string) (int64, error) {
	result, err := runner(tx, r.db).Exec(
		`DELETE FROM workflows WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		r.logger.Error("Failed to delete workflow", zap.Int64("id", id), zap.Error(err))
		return 0, fmt.Errorf("failed to delete workflow: %w", err)
	}
	return result.RowsAffected()
}

func (r *WorkflowRepository) scanOne(row *sql.Row) (*models.Workflow, error) {
	var w models.Workflow
	var stepsJSON string
	var threshold sql.NullFloat64

	err := row.Scan(
		&w.ID,
		&w.UserID,
		&w.Name,
		&w.Description,
		&stepsJSON,
		&w.RequireAllApprovers,
		&threshold,
		&w.IsActive,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to scan workflow", zap.Error(err))
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}

	if threshold.Valid {
		w.AutoApproveThreshold = &threshold.Float64
	}
	if err := json.Unmarshal([]byte(stepsJSON), &w.Steps); err != nil {
		return nil, fmt.Errorf("failed to unmarshal steps: %w", err)
	}
	return &w, nil
}

func (r *WorkflowRepository) scanMany(rows *sql.Rows) ([]*models.Workflow, error) {
	var workflows []*models.Workflow
	for rows.Next() {
		var w models.Workflow
		var stepsJSON string
		var threshold sql.NullFloat64

		err := rows.Scan(
			&w.ID,
			&w.UserID,
			&w.Name,
			&w.Description,
			&stepsJSON,
			&w.RequireAllApprovers,
			&threshold,
			&w.IsActive,
			&w.CreatedAt,
			&w.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		if threshold.Valid {
			w.AutoApproveThreshold = &threshold.Float64
		}
		if err := json.Unmarshal([]byte(stepsJSON), &w.Steps); err != nil {
			return nil, fmt.Errorf("failed to unmarshal steps: %w", err)
		}
		workflows = append(workflows, &w)
	}
	return workflows, rows.Err()
}
