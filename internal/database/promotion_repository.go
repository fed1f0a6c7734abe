package database

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/engracedsmile/travel-backend/internal/models"
)

// PromotionRepository handles database operations for the promotions table
type PromotionRepository struct {
	db *sqlx.DB
}

// NewPromotionRepository creates a new PromotionRepository
func NewPromotionRepository(db *sqlx.DB) *PromotionRepository {
	return &PromotionRepository{db: db}
}

const promotionColumns = `
	id, title, description, code, type, value, min_amount, max_discount,
	start_date, end_date, usage_limit, used_count, is_active,
	created_at, updated_at
`

// Create inserts a new promotion
func (r *PromotionRepository) Create(promo *models.Promotion) error {
	if promo.ID == "" {
		promo.ID = uuid.New().String()
	}
	query := `
		INSERT INTO promotions (
			id, title, description, code, type, value, min_amount,
			max_discount, start_date, end_date, usage_limit, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING used_count, created_at, updated_at
	`
	err := r.db.QueryRowx(query,
		promo.ID, promo.Title, promo.Description, promo.Code, promo.Type,
		promo.Value, promo.MinAmount, promo.MaxDiscount, promo.StartDate,
		promo.EndDate, promo.UsageLimit, promo.IsActive,
	).Scan(&promo.UsedCount, &promo.CreatedAt, &promo.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create promotion: %w", err)
	}
	return nil
}

// GetByID retrieves a promotion by ID
func (r *PromotionRepository) GetByID(promotionID string) (*models.Promotion, error) {
	promo := &models.Promotion{}
	query := `SELECT ` + promotionColumns + ` FROM promotions WHERE id = $1`
	if err := r.db.Get(promo, query, promotionID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch promotion: %w", err)
	}
	return promo, nil
}

// GetByCode retrieves a promotion by its code
func (r *PromotionRepository) GetByCode(code string) (*models.Promotion, error) {
	promo := &models.Promotion{}
	query := `SELECT ` + promotionColumns + ` FROM promotions WHERE code = $1`
	if err := r.db.Get(promo, query, code); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch promotion: %w", err)
	}
	return promo, nil
}

// List retrieves all promotions, newest first
func (r *PromotionRepository) List() ([]models.Promotion, error) {
	promos := []models.Promotion{}
	query := `SELECT ` + promotionColumns + ` FROM promotions ORDER BY created_at DESC`
	if err := r.db.Select(&promos, query); err != nil {
		return nil, fmt.Errorf("failed to fetch promotions: %w", err)
	}
	return promos, nil
}

// IncrementUsage atomically consumes one usage slot. The guard keeps
// used_count from ever exceeding usage_limit under concurrent bookings;
// zero rows affected means the limit was hit between validation and apply.
func (r *PromotionRepository) IncrementUsage(promotionID string) (bool, error) {
	query := `
		UPDATE promotions
		SET used_count = used_count + 1, updated_at = NOW()
		WHERE id = $1
		  AND (usage_limit IS NULL OR used_count < usage_limit)
	`
	result, err := r.db.Exec(query, promotionID)
	if err != nil {
		return false, fmt.Errorf("failed to increment promotion usage: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// SetActive toggles the active flag
func (r *PromotionRepository) SetActive(promotionID string, active bool) error {
	result, err := r.db.Exec(`
		UPDATE promotions SET is_active = $2, updated_at = NOW() WHERE id = $1
	`, promotionID, active)
	if err != nil {
		return fmt.Errorf("failed to update promotion: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a promotion
func (r *PromotionRepository) Delete(promotionID string) error {
	result, err := r.db.Exec(`DELETE FROM promotions WHERE id = $1`, promotionID)
	if err != nil {
		return fmt.Errorf("failed to delete promotion: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
