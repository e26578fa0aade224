// Package invoice implements invoice and branding management: owner-scoped
// CRUD, invoice number sequencing and sending approved invoices to clients.
package invoice

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/invopilot/invopilot/internal/approval"
	"github.com/invopilot/invopilot/internal/models"
	"github.com/invopilot/invopilot/internal/notification"
	"github.com/invopilot/invopilot/pkg/utils"
	"go.uber.org/zap"
)

// InvoiceStore is the invoice persistence the service depends on.
type InvoiceStore interface {
	Create(tx *sql.Tx, inv *models.Invoice) error
	GetByID(id int64, userID string) (*models.Invoice, error)
	ListByUser(userID string) ([]*models.Invoice, error)
	Update(tx *sql.Tx, inv *models.Invoice) error
	UpdateStatus(tx *sql.Tx, id int64, status string) error
	Delete(tx *sql.Tx, id int64, userID string) (int64, error)
	LastInvoiceNumber(userID, prefix string) (string, error)
}

// ClientStore is the client persistence the service depends on.
type ClientStore interface {
	GetByID(id int64, userID string) (*models.Client, error)
}

// BrandingStore is the branding persistence the service depends on.
type BrandingStore interface {
	Get(userID string) (*models.Branding, error)
	Upsert(tx *sql.Tx, b *models.Branding) error
}

// Renderer turns an invoice into the document body sent to the client.
// Document generation itself (PDF, templating) lives behind this interface.
type Renderer interface {
	Render(inv *models.Invoice, client *models.Client, branding *models.Branding) (string, error)
}

// Service implements invoice management.
type Service struct {
	invoices   InvoiceStore
	clients    ClientStore
	branding   BrandingStore
	renderer   Renderer
	dispatcher notification.Dispatcher
	logger     *zap.Logger
}

// NewService creates a new invoice service.
func NewService(
	invoices InvoiceStore,
	clients ClientStore,
	branding BrandingStore,
	renderer Renderer,
	dispatcher notification.Dispatcher,
	logger *zap.Logger,
) *Service {
	return &Service{
		invoices:   invoices,
		clients:    clients,
		branding:   branding,
		renderer:   renderer,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Create validates and persists a new draft invoice. The invoice number is
// assigned from the owner's yearly sequence, and the amount is always derived
// from the line items.
func (s *Service) Create(userID string, inv *models.Invoice) (*models.Invoice, error) {
	inv.UserID = userID
	inv.Status = models.InvoiceStatusDraft
	if inv.Currency == "" {
		inv.Currency = "USD"
	}
	if inv.IssueDate.IsZero() {
		inv.IssueDate = time.Now().UTC()
	}

	if err := inv.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", approval.ErrValidation, err.Error())
	}
	if err := utils.ValidateCurrency(inv.Currency); err != nil {
		return nil, fmt.Errorf("%w: %s", approval.ErrValidation, err.Error())
	}

	client, err := s.clients.GetByID(inv.ClientID, userID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, fmt.Errorf("%w: client not found", approval.ErrNotFound)
	}

	number, err := s.nextInvoiceNumber(userID, inv.IssueDate.Year())
	if err != nil {
		return nil, err
	}
	inv.InvoiceNumber = number
	inv.Amount = inv.TotalAmount()

	if err := s.invoices.Create(nil, inv); err != nil {
		return nil, err
	}

	s.logger.Info("Invoice created",
		zap.Int64("id", inv.ID),
		zap.String("number", inv.InvoiceNumber),
		zap.Float64("amount", inv.Amount))
	return inv, nil
}

// Get retrieves an invoice by id, scoped to its owner.
func (s *Service) Get(id int64, userID string) (*models.Invoice, error) {
	inv, err := s.invoices.GetByID(id, userID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, fmt.Errorf("%w: invoice not found", approval.ErrNotFound)
	}
	return inv, nil
}

// List retrieves all invoices owned by userID.
func (s *Service) List(userID string) ([]*models.Invoice, error) {
	return s.invoices.ListByUser(userID)
}

// Update rewrites a draft invoice's editable fields. Invoices that entered
// the approval pipeline are frozen; only drafts may change.
func (s *Service) Update(id int64, userID string, patch *models.Invoice) (*models.Invoice, error) {
	inv, err := s.Get(id, userID)
	if err != nil {
		return nil, err
	}
	if inv.Status != models.InvoiceStatusDraft {
		return nil, fmt.Errorf("%w: only draft invoices can be edited", approval.ErrConflict)
	}

	if patch.ClientID != 0 {
		client, err := s.clients.GetByID(patch.ClientID, userID)
		if err != nil {
			return nil, err
		}
		if client == nil {
			return nil, fmt.Errorf("%w: client not found", approval.ErrNotFound)
		}
		inv.ClientID = patch.ClientID
	}
	if patch.Currency != "" {
		if err := utils.ValidateCurrency(patch.Currency); err != nil {
			return nil, fmt.Errorf("%w: %s", approval.ErrValidation, err.Error())
		}
		inv.Currency = patch.Currency
	}
	if patch.LineItems != nil {
		inv.LineItems = patch.LineItems
	}
	if !patch.IssueDate.IsZero() {
		inv.IssueDate = patch.IssueDate
	}
	if patch.DueDate != nil {
		inv.DueDate = patch.DueDate
	}
	if patch.Notes != "" {
		inv.Notes = patch.Notes
	}

	if err := inv.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", approval.ErrValidation, err.Error())
	}
	inv.Amount = inv.TotalAmount()

	if err := s.invoices.Update(nil, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// Delete removes a draft or cancelled invoice. Invoices with approval
// history stay for the audit trail.
func (s *Service) Delete(id int64, userID string) error {
	inv, err := s.Get(id, userID)
	if err != nil {
		return err
	}
	if inv.Status != models.InvoiceStatusDraft && inv.Status != models.InvoiceStatusCancelled {
		return fmt.Errorf("%w: only draft or cancelled invoices can be deleted", approval.ErrConflict)
	}

	rows, err := s.invoices.Delete(nil, id, userID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: invoice not found", approval.ErrNotFound)
	}
	return nil
}

// Send renders an approved invoice with the owner's branding and delivers it
// to the client contact, then marks the invoice sent.
func (s *Service) Send(ctx context.Context, id int64, userID string) (*models.Invoice, error) {
	inv, err := s.Get(id, userID)
	if err != nil {
		return nil, err
	}
	if inv.Status != models.InvoiceStatusApproved {
		return nil, fmt.Errorf("%w: invoice must be approved before sending", approval.ErrConflict)
	}

	client, err := s.clients.GetByID(inv.ClientID, userID)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, fmt.Errorf("%w: client not found", approval.ErrNotFound)
	}

	branding, err := s.branding.Get(userID)
	if err != nil {
		return nil, err
	}

	body, err := s.renderer.Render(inv, client, branding)
	if err != nil {
		return nil, fmt.Errorf("failed to render invoice: %w", err)
	}

	msg := notification.Message{
		Subject: fmt.Sprintf("Invoice %s", inv.InvoiceNumber),
		Body:    body,
	}
	if err := s.dispatcher.Send(ctx, client.Email, msg); err != nil {
		// Unlike approval pings, a failed customer delivery is surfaced:
		// the invoice stays approved and the caller can retry.
		return nil, fmt.Errorf("failed to deliver invoice: %w", err)
	}

	if err := s.invoices.UpdateStatus(nil, inv.ID, models.InvoiceStatusSent); err != nil {
		return nil, err
	}
	inv.Status = models.InvoiceStatusSent

	s.logger.Info("Invoice sent",
		zap.Int64("id", inv.ID),
		zap.String("number", inv.InvoiceNumber),
		zap.String("client_email", client.Email))
	return inv, nil
}

// Cancel voids an invoice that has not been sent. Cancelled invoices keep
// their number; the sequence never reuses it.
func (s *Service) Cancel(id int64, userID string) (*models.Invoice, error) {
	inv, err := s.Get(id, userID)
	if err != nil {
		return nil, err
	}
	switch inv.Status {
	case models.InvoiceStatusDraft, models.InvoiceStatusApproved:
	default:
		return nil, fmt.Errorf("%w: only draft or approved invoices can be cancelled", approval.ErrConflict)
	}
	if err := s.invoices.UpdateStatus(nil, inv.ID, models.InvoiceStatusCancelled); err != nil {
		return nil, err
	}
	inv.Status = models.InvoiceStatusCancelled

	s.logger.Info("Invoice cancelled",
		zap.Int64("id", inv.ID),
		zap.String("number", inv.InvoiceNumber))
	return inv, nil
}

// MarkPaid transitions a sent invoice to paid.
func (s *Service) MarkPaid(id int64, userID string) (*models.Invoice, error) {
	inv, err := s.Get(id, userID)
	if err != nil {
		return nil, err
	}
	if inv.Status != models.InvoiceStatusSent {
		return nil, fmt.Errorf("%w: only sent invoices can be marked paid", approval.ErrConflict)
	}
	if err := s.invoices.UpdateStatus(nil, inv.ID, models.InvoiceStatusPaid); err != nil {
		return nil, err
	}
	inv.Status = models.InvoiceStatusPaid
	return inv, nil
}

// GetBranding returns the user's branding, or an empty default.
func (s *Service) GetBranding(userID string) (*models.Branding, error) {
	b, err := s.branding.Get(userID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return &models.Branding{UserID: userID}, nil
	}
	return b, nil
}

// UpdateBranding upserts the user's branding row.
func (s *Service) UpdateBranding(userID string, b *models.Branding) (*models.Branding, error) {
	b.UserID = userID
	if err := s.branding.Upsert(nil, b); err != nil {
		return nil, err
	}
	return b, nil
}

// nextInvoiceNumber produces INV-YYYY-NNNN, continuing the owner's sequence
// for the year.
func (s *Service) nextInvoiceNumber(userID string, year int) (string, error) {
	prefix := fmt.Sprintf("INV-%d-", year)
	last, err := s.invoices.LastInvoiceNumber(userID, prefix)
	if err != nil {
		return "", err
	}

	seq := 1
	if last != "" {
		if _, err := fmt.Sscanf(last, prefix+"%d", &seq); err == nil {
			seq++
		}
	}
	return fmt.Sprintf("%s%04d", prefix, seq), nil
}
