package repository

import (
	"database/sql"
	"fmt"

	"github.com/invopilot/invopilot/internal/models"
	"go.uber.org/zap"
)

// BrandingRepository handles the one-row-per-user branding settings.
type BrandingRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewBrandingRepository creates a new branding repository
func NewBrandingRepository(db *sql.DB, logger *zap.Logger) *BrandingRepository {
	return &BrandingRepository{db: db, logger: logger}
}

// Get retrieves a user's branding. Returns nil when the user has not
// configured any.
func (r *BrandingRepository) Get(userID string) (*models.Branding, error) {
	var b models.Branding
	err := r.db.QueryRow(`
		SELECT user_id, company_name, logo_path, accent_color, footer_note, updated_at
		FROM branding WHERE user_id = ?
	`, userID).Scan(
		&b.UserID, &b.CompanyName, &b.LogoPath, &b.AccentColor, &b.FooterNote, &b.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get branding", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to get branding: %w", err)
	}
	return &b, nil
}

// Upsert inserts or replaces a user's branding row.
func (r *BrandingRepository) Upsert(tx *sql.Tx, b *models.Branding) error {
	query := `
		INSERT INTO branding (user_id, company_name, logo_path, accent_color, footer_note, updated_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id) DO UPDATE SET
			company_name = excluded.company_name,
			logo_path = excluded.logo_path,
			accent_color = excluded.accent_color,
			footer_note = excluded.footer_note,
			updated_at = CURRENT_TIMESTAMP
	`
	_, err := runner(tx, r.db).Exec(query,
		b.UserID, b.CompanyName, b.LogoPath, b.AccentColor, b.FooterNote)
	if err != nil {
		r.logger.Error("Failed to upsert branding", zap.String("user_id", b.UserID), zap.Error(err))
		return fmt.Errorf("failed to upsert branding: %w", err)
	}
	return nil
}
