package models

import (
	"fmt"
	"time"
)

// Invoice statuses. The approval engine owns the draft -> pending_approval ->
// approved transitions; sent/paid/cancelled are managed by the invoice service.
const (
	InvoiceStatusDraft           = "draft"
	InvoiceStatusPendingApproval = "pending_approval"
	InvoiceStatusApproved        = "approved"
	InvoiceStatusSent            = "sent"
	InvoiceStatusPaid            = "paid"
	InvoiceStatusCancelled       = "cancelled"
)

// Invoice is a customer-facing bill owned by a user.
type Invoice struct {
	ID            int64      `json:"id"`
	UserID        string     `json:"user_id"`
	ClientID      int64      `json:"client_id"`
	InvoiceNumber string     `json:"invoice_number"`
	Status        string     `json:"status"`
	Currency      string     `json:"currency"`
	Amount        float64    `json:"amount"`
	LineItems     []LineItem `json:"line_items"`
	IssueDate     time.Time  `json:"issue_date"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// LineItem is a single billed row.
type LineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

// Total returns the line total.
func (li LineItem) Total() float64 {
	return li.Quantity * li.UnitPrice
}

// TotalAmount sums all line items.
func (inv *Invoice) TotalAmount() float64 {
	var total float64
	for _, li := range inv.LineItems {
		total += li.Total()
	}
	return total
}

// Validate checks invoice structural invariants.
func (inv *Invoice) Validate() error {
	if inv.ClientID == 0 {
		return fmt.Errorf("invoice client is required")
	}
	if len(inv.LineItems) == 0 {
		return fmt.Errorf("invoice requires at least one line item")
	}
	for i, li := range inv.LineItems {
		if li.Description == "" {
			return fmt.Errorf("line item %d requires a description", i)
		}
		if li.Quantity <= 0 {
			return fmt.Errorf("line item %d requires a positive quantity", i)
		}
		if li.UnitPrice < 0 {
			return fmt.Errorf("line item %d has a negative unit price", i)
		}
	}
	return nil
}

// ExtractedInvoice holds fields pulled out of an uploaded invoice document.
type ExtractedInvoice struct {
	InvoiceNumber string     `json:"invoice_number"`
	VendorName    string     `json:"vendor_name"`
	Currency      string     `json:"currency"`
	Amount        float64    `json:"amount"`
	IssueDate     *time.Time `json:"issue_date,omitempty"`
	LineItems     []LineItem `json:"line_items,omitempty"`
	Confidence    float64    `json:"confidence"`
}
