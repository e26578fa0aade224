package repository

import (
	"database/sql"
	"fmt"

	"github.com/invopilot/invopilot/internal/models"
	"go.uber.org/zap"
)

// ClientRepository handles client database operations
type ClientRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewClientRepository creates a new client repository
func NewClientRepository(db *sql.DB, logger *zap.Logger) *ClientRepository {
	return &ClientRepository{db: db, logger: logger}
}

const clientColumns = `id, user_id, name, email, company, address, tax_id, created_at, updated_at`

// Create persists a new client.
func (r *ClientRepository) Create(tx *sql.Tx, c *models.Client) error {
	query := `
		INSERT INTO clients (user_id, name, email, company, address, tax_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := runner(tx, r.db).Exec(query,
		c.UserID, c.Name, c.Email, c.Company, c.Address, c.TaxID)
	if err != nil {
		r.logger.Error("Failed to create client", zap.Error(err))
		return fmt.Errorf("failed to create client: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	c.ID = id
	return nil
}

// GetByID retrieves a client by id, scoped to its owner.
func (r *ClientRepository) GetByID(id int64, userID string) (*models.Client, error) {
	query := fmt.Sprintf(`SELECT %s FROM clients WHERE id = ? AND user_id = ?`, clientColumns)

	var c models.Client
	err := r.db.QueryRow(query, id, userID).Scan(
		&c.ID, &c.UserID, &c.Name, &c.Email, &c.Company, &c.Address, &c.TaxID,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get client", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return &c, nil
}

// ListByUser retrieves all clients owned by a user, newest first.
func (r *ClientRepository) ListByUser(userID string) ([]*models.Client, error) {
	query := fmt.Sprintf(`SELECT %s FROM clients WHERE user_id = ? ORDER BY created_at DESC`, clientColumns)
	rows, err := r.db.Query(query, userID)
	if err != nil {
		r.logger.Error("Failed to list clients", zap.Error(err))
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	var clients []*models.Client
	for rows.Next() {
		var c models.Client
		err := rows.Scan(
			&c.ID, &c.UserID, &c.Name, &c.Email, &c.Company, &c.Address, &c.TaxID,
			&c.CreatedAt, &c.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, &c)
	}
	return clients, rows.Err()
}

// Update rewrites all mutable client fields.
func (r *ClientRepository) Update(tx *sql.Tx, c *models.Client) error {
	query := `
		UPDATE clients
		SET name = ?, email = ?, company = ?, address = ?, tax_id = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND user_id = ?
	`
	_, err := runner(tx, r.db).Exec(query,
		c.Name, c.Email, c.Company, c.Address, c.TaxID, c.ID, c.UserID)
	if err != nil {
		r.logger.Error("Failed to update client", zap.Int64("id", c.ID), zap.Error(err))
		return fmt.Errorf("failed to update client: %w", err)
	}
	return nil
}

// Delete removes a client, returning the number of rows deleted.
func (r *ClientRepository) Delete(tx *sql.Tx, id int64, userID string) (int64, error) {
	result, err := runner(tx, r.db).Exec(
		`DELETE FROM clients WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		r.logger.Error("Failed to delete client", zap.Int64("id", id), zap.Error(err))
		return 0, fmt.Errorf("failed to delete client: %w", err)
	}
	return result.RowsAffected()
}

// CountInvoices counts invoices referencing a client.
func (r *ClientRepository) CountInvoices(clientID int64) (int, error) {
	var count int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM invoices WHERE client_id = ?`, clientID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count client invoices: %w", err)
	}
	return count, nil
}
