// Package client implements billable-customer management.
package client

import (
	"database/sql"
	"fmt"

	"github.com/invopilot/invopilot/internal/approval"
	"github.com/invopilot/invopilot/internal/models"
	"github.com/invopilot/invopilot/pkg/utils"
	"go.uber.org/zap"
)

// Store is the client persistence the service depends on.
type Store interface {
	Create(tx *sql.Tx, c *models.Client) error
	GetByID(id int64, userID string) (*models.Client, error)
	ListByUser(userID string) ([]*models.Client, error)
	Update(tx *sql.Tx, c *models.Client) error
	Delete(tx *sql.Tx, id int64, userID string) (int64, error)
	CountInvoices(clientID int64) (int, error)
}

// Service implements client management.
type Service struct {
	clients Store
	logger  *zap.Logger
}

// NewService creates a new client service.
func NewService(clients Store, logger *zap.Logger) *Service {
	return &Service{clients: clients, logger: logger}
}

// Create validates and persists a new client.
func (s *Service) Create(userID string, c *models.Client) (*models.Client, error) {
	c.UserID = userID
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", approval.ErrValidation, err.Error())
	}
	if err := utils.ValidateEmail(c.Email); err != nil {
		return nil, fmt.Errorf("%w: %s", approval.ErrValidation, err.Error())
	}

	if err := s.clients.Create(nil, c); err != nil {
		return nil, err
	}

	s.logger.Info("Client created", zap.Int64("id", c.ID), zap.String("user_id", userID))
	return c, nil
}

// Get retrieves a client by id, scoped to its owner.
func (s *Service) Get(id int64, userID string) (*models.Client, error) {
	c, err := s.clients.GetByID(id, userID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("%w: client not found", approval.ErrNotFound)
	}
	return c, nil
}

// List retrieves all clients owned by userID.
func (s *Service) List(userID string) ([]*models.Client, error) {
	return s.clients.ListByUser(userID)
}

// Update rewrites a client's editable fields.
func (s *Service) Update(id int64, userID string, patch *models.Client) (*models.Client, error) {
	c, err := s.Get(id, userID)
	if err != nil {
		return nil, err
	}

	if patch.Name != "" {
		c.Name = patch.Name
	}
	if patch.Email != "" {
		if err := utils.ValidateEmail(patch.Email); err != nil {
			return nil, fmt.Errorf("%w: %s", approval.ErrValidation, err.Error())
		}
		c.Email = patch.Email
	}
	if patch.Company != "" {
		c.Company = patch.Company
	}
	if patch.Address != "" {
		c.Address = patch.Address
	}
	if patch.TaxID != "" {
		c.TaxID = patch.TaxID
	}

	if err := s.clients.Update(nil, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Delete removes a client with no invoices. Clients referenced by invoices
// are kept so historical invoices stay resolvable.
func (s *Service) Delete(id int64, userID string) error {
	if _, err := s.Get(id, userID); err != nil {
		return err
	}

	count, err := s.clients.CountInvoices(id)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: client has %d invoices", approval.ErrConflict, count)
	}

	rows, err := s.clients.Delete(nil, id, userID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: client not found", approval.ErrNotFound)
	}
	return nil
}
