package models

import (
	"errors"
	"time"
)

// PromotionType represents how a promotion discount is computed
type PromotionType string

const (
	PromotionTypePercentage  PromotionType = "percentage"
	PromotionTypeFixedAmount PromotionType = "fixed_amount"
	PromotionTypeFreeRide    PromotionType = "free_ride"
)

// Promotion represents a discount campaign. A promotion may be discoverable
// without a code, but only coded promotions can be applied at booking time.
type Promotion struct {
	ID          string        `json:"id" db:"id"`
	Title       string        `json:"title" db:"title"`
	Description string        `json:"description" db:"description"`
	Code        *string       `json:"code,omitempty" db:"code"`
	Type        PromotionType `json:"type" db:"type"`
	Value       float64       `json:"value" db:"value"`
	MinAmount   *float64      `json:"min_amount,omitempty" db:"min_amount"`
	MaxDiscount *float64      `json:"max_discount,omitempty" db:"max_discount"`
	StartDate   time.Time     `json:"start_date" db:"start_date"`
	EndDate     time.Time     `json:"end_date" db:"end_date"`
	UsageLimit  *int          `json:"usage_limit,omitempty" db:"usage_limit"`
	UsedCount   int           `json:"used_count" db:"used_count"`
	IsActive    bool          `json:"is_active" db:"is_active"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" db:"updated_at"`
}

// IsCurrentlyValid checks the active flag and the usage window
func (p *Promotion) IsCurrentlyValid(now time.Time) bool {
	return p.IsActive && !now.Before(p.StartDate) && !now.After(p.EndDate)
}

// IsExhausted checks whether the usage limit has been consumed
func (p *Promotion) IsExhausted() bool {
	return p.UsageLimit != nil && p.UsedCount >= *p.UsageLimit
}

// MeetsMinimum checks the minimum-amount rule against a base amount
func (p *Promotion) MeetsMinimum(amount float64) bool {
	return p.MinAmount == nil || amount >= *p.MinAmount
}

// CreatePromotionRequest represents the admin request to create a promotion
type CreatePromotionRequest struct {
	Title       string        `json:"title" binding:"required"`
	Description string        `json:"description"`
	Code        *string       `json:"code,omitempty"`
	Type        PromotionType `json:"type" binding:"required"`
	Value       float64       `json:"value" binding:"required,gte=0"`
	MinAmount   *float64      `json:"min_amount,omitempty"`
	MaxDiscount *float64      `json:"max_discount,omitempty"`
	StartDate   time.Time     `json:"start_date" binding:"required"`
	EndDate     time.Time     `json:"end_date" binding:"required"`
	UsageLimit  *int          `json:"usage_limit,omitempty"`
	IsActive    *bool         `json:"is_active,omitempty"`
}

// Validate validates the create promotion request
func (r *CreatePromotionRequest) Validate() error {
	switch r.Type {
	case PromotionTypePercentage, PromotionTypeFixedAmount, PromotionTypeFreeRide:
	default:
		return errors.New("invalid promotion type")
	}
	if r.Type == PromotionTypePercentage && r.Value > 100 {
		return errors.New("percentage value cannot exceed 100")
	}
	if !r.EndDate.After(r.StartDate) {
		return errors.New("end_date must be after start_date")
	}
	if r.UsageLimit != nil && *r.UsageLimit <= 0 {
		return errors.New("usage_limit must be positive when set")
	}
	return nil
}

// ValidatePromotionRequest represents the public code validation request
type ValidatePromotionRequest struct {
	Code    string  `json:"code" binding:"required"`
	Amount  float64 `json:"amount" binding:"required,gt=0"`
	UserID  *string `json:"user_id,omitempty"`
	RouteID *string `json:"route_id,omitempty"`
}

// DiscountResult is the computed discount for a base amount
type DiscountResult struct {
	DiscountAmount float64 `json:"discount_amount"`
	FinalAmount    float64 `json:"final_amount"`
}
