package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/invopilot/invopilot/internal/models"
	"go.uber.org/zap"
)

// InvoiceRepository handles invoice database operations
type InvoiceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *sql.DB, logger *zap.Logger) *InvoiceRepository {
	return &InvoiceRepository{db: db, logger: logger}
}

const invoiceColumns = `id, user_id, client_id, invoice_number, status, currency,
	amount, line_items, issue_date, due_date, notes, created_at, updated_at`

// Create persists a new invoice.
func (r *InvoiceRepository) Create(tx *sql.Tx, inv *models.Invoice) error {
	itemsJSON, err := json.Marshal(inv.LineItems)
	if err != nil {
		return fmt.Errorf("failed to marshal line items: %w", err)
	}

	query := `
		INSERT INTO invoices (
			user_id, client_id, invoice_number, status, currency, amount,
			line_items, issue_date, due_date, notes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := runner(tx, r.db).Exec(query,
		inv.UserID,
		inv.ClientID,
		inv.InvoiceNumber,
		inv.Status,
		inv.Currency,
		inv.Amount,
		string(itemsJSON),
		inv.IssueDate,
		inv.DueDate,
		inv.Notes,
	)
	if err != nil {
		r.logger.Error("Failed to create invoice", zap.Error(err))
		return fmt.Errorf("failed to create invoice: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	inv.ID = id
	return nil
}

// GetByID retrieves an invoice by id, scoped to its owner.
func (r *InvoiceRepository) GetByID(id int64, userID string) (*models.Invoice, error) {
	query := fmt.Sprintf(`SELECT %s FROM invoices WHERE id = ? AND user_id = ?`, invoiceColumns)
	return r.scanOne(r.db.QueryRow(query, id, userID))
}

// GetAnyByID retrieves an invoice by id regardless of owner. Used by the
// approval engine, where the actor is an approver rather than the owner.
func (r *InvoiceRepository) GetAnyByID(id int64) (*models.Invoice, error) {
	query := fmt.Sprintf(`SELECT %s FROM invoices WHERE id = ?`, invoiceColumns)
	return r.scanOne(r.db.QueryRow(query, id))
}

// ListByUser retrieves all invoices owned by a user, newest first.
func (r *InvoiceRepository) ListByUser(userID string) ([]*models.Invoice, error) {
	query := fmt.Sprintf(`SELECT %s FROM invoices WHERE user_id = ? ORDER BY created_at DESC`, invoiceColumns)
	rows, err := r.db.Query(query, userID)
	if err != nil {
		r.logger.Error("Failed to list invoices", zap.Error(err))
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()
	return r.scanMany(rows)
}

// Update rewrites all mutable invoice fields.
func (r *InvoiceRepository) Update(tx *sql.Tx, inv *models.Invoice) error {
	itemsJSON, err := json.Marshal(inv.LineItems)
	if err != nil {
		return fmt.Errorf("failed to marshal line items: %w", err)
	}

	query := `
		UPDATE invoices
		SET client_id = ?, status = ?, currency = ?, amount = ?, line_items = ?,
			issue_date = ?, due_date = ?, notes = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND user_id = ?
	`
	_, err = runner(tx, r.db).Exec(query,
		inv.ClientID,
		inv.Status,
		inv.Currency,
		inv.Amount,
		string(itemsJSON),
		inv.IssueDate,
		inv.DueDate,
		inv.Notes,
		inv.ID,
		inv.UserID,
	)
	if err != nil {
		r.logger.Error("Failed to update invoice", zap.Int64("id", inv.ID), zap.Error(err))
		return fmt.Errorf("failed to update invoice: %w", err)
	}
	return nil
}

// UpdateStatus sets an invoice's status. Only the approval engine and the
// invoice service's send/pay transitions call this.
func (r *InvoiceRepository) UpdateStatus(tx *sql.Tx, id int64, status string) error {
	_, err := runner(tx, r.db).Exec(
		`UPDATE invoices SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		status, id)
	if err != nil {
		r.logger.Error("Failed to update invoice status",
			zap.Int64("id", id), zap.String("status", status), zap.Error(err))
		return fmt.Errorf("failed to update invoice status: %w", err)
	}
	return nil
}

// Delete removes an invoice, returning the number of rows deleted.
func (r *InvoiceRepository) Delete(tx *sql.Tx, id int64, userID string) (int64, error) {
	result, err := runner(tx, r.db).Exec(
		`DELETE FROM invoices WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		r.logger.Error("Failed to delete invoice", zap.Int64("id", id), zap.Error(err))
		return 0, fmt.Errorf("failed to delete invoice: %w", err)
	}
	return result.RowsAffected()
}

// LastInvoiceNumber returns the lexically greatest invoice number with the
// given prefix for a user, or empty when none exist.
func (r *InvoiceRepository) LastInvoiceNumber(userID, prefix string) (string, error) {
	var number string
	err := r.db.QueryRow(`
		SELECT invoice_number FROM invoices
		WHERE user_id = ? AND invoice_number LIKE ?
		ORDER BY invoice_number DESC LIMIT 1
	`, userID, prefix+"%").Scan(&number)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get last invoice number: %w", err)
	}
	return number, nil
}

func (r *InvoiceRepository) scanOne(row *sql.Row) (*models.Invoice, error) {
	var inv models.Invoice
	var dueDate sql.NullTime
	var itemsJSON string

	err := row.Scan(
		&inv.ID,
		&inv.UserID,
		&inv.ClientID,
		&inv.InvoiceNumber,
		&inv.Status,
		&inv.Currency,
		&inv.Amount,
		&itemsJSON,
		&inv.IssueDate,
		&dueDate,
		&inv.Notes,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to scan invoice", zap.Error(err))
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	if dueDate.Valid {
		inv.DueDate = &dueDate.Time
	}
	if err := json.Unmarshal([]byte(itemsJSON), &inv.LineItems); err != nil {
		return nil, fmt.Errorf("failed to unmarshal line items: %w", err)
	}
	return &inv, nil
}

func (r *InvoiceRepository) scanMany(rows *sql.Rows) ([]*models.Invoice, error) {
	var invoices []*models.Invoice
	for rows.Next() {
		var inv models.Invoice
		var dueDate sql.NullTime
		var itemsJSON string

		err := rows.Scan(
			&inv.ID,
			&inv.UserID,
			&inv.ClientID,
			&inv.InvoiceNumber,
			&inv.Status,
			&inv.Currency,
			&inv.Amount,
			&itemsJSON,
			&inv.IssueDate,
			&dueDate,
			&inv.Notes,
			&inv.CreatedAt,
			&inv.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}

		if dueDate.Valid {
			inv.DueDate = &dueDate.Time
		}
		if err := json.Unmarshal([]byte(itemsJSON), &inv.LineItems); err != nil {
			return nil, fmt.Errorf("failed to unmarshal line items: %w", err)
		}
		invoices = append(invoices, &inv)
	}
	return invoices, rows.Err()
}
