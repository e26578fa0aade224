package models

import (
	"fmt"
	"time"
)

// Client is a billable customer owned by a user.
type Client struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Company   string    `json:"company,omitempty"`
	Address   string    `json:"address,omitempty"`
	TaxID     string    `json:"tax_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the fields required to bill a client.
func (c *Client) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("client name is required")
	}
	if c.Email == "" {
		return fmt.Errorf("client email is required")
	}
	return nil
}

// Branding is the owner-scoped look-and-feel applied when an invoice is
// rendered and sent. One row per user.
type Branding struct {
	UserID      string    `json:"user_id"`
	CompanyName string    `json:"company_name"`
	LogoPath    string    `json:"logo_path,omitempty"`
	AccentColor string    `json:"accent_color,omitempty"`
	FooterNote  string    `json:"footer_note,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}
