package services

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/engracedsmile/travel-backend/internal/database"
	"github.com/engracedsmile/travel-backend/internal/models"
)

// PromotionService validates promotion codes and computes discounts
type PromotionService struct {
	promotionRepo *database.PromotionRepository
	logger        *logrus.Logger
}

// NewPromotionService creates a new PromotionService
func NewPromotionService(promotionRepo *database.PromotionRepository, logger *logrus.Logger) *PromotionService {
	return &PromotionService{
		promotionRepo: promotionRepo,
		logger:        logger,
	}
}

// Validate checks a promotion code against the usage window, usage count and
// minimum-amount rules for a given base amount. userID and routeID are
// accepted for future per-user/per-route restrictions but not yet enforced.
func (s *PromotionService) Validate(code string, userID, routeID *string, amount float64) (*models.Promotion, error) {
	promo, err := s.promotionRepo.GetByCode(code)
	if err != nil {
		return nil, fmt.Errorf("failed to look up promotion: %w", err)
	}
	if promo == nil {
		return nil, fmt.Errorf("%w: promotion code not found", ErrNotFound)
	}

	if !promo.IsCurrentlyValid(time.Now()) {
		return nil, fmt.Errorf("%w: promotion is not currently active", ErrConflict)
	}
	if promo.IsExhausted() {
		return nil, fmt.Errorf("%w: promotion usage limit exceeded", ErrConflict)
	}
	if !promo.MeetsMinimum(amount) {
		return nil, fmt.Errorf("%w: minimum amount of %.2f not met", ErrConflict, *promo.MinAmount)
	}

	return promo, nil
}

// CalculateDiscount computes the discount for a base amount. Percentage
// discounts are capped at the promotion's max discount when set; the final
// amount never goes below zero.
func (s *PromotionService) CalculateDiscount(promo *models.Promotion, amount float64) models.DiscountResult {
	var discount float64

	switch promo.Type {
	case models.PromotionTypePercentage:
		discount = amount * promo.Value / 100
		if promo.MaxDiscount != nil && discount > *promo.MaxDiscount {
			discount = *promo.MaxDiscount
		}
	case models.PromotionTypeFixedAmount:
		discount = promo.Value
	case models.PromotionTypeFreeRide:
		discount = amount
	}

	final := amount - discount
	if final < 0 {
		final = 0
		discount = amount
	}

	return models.DiscountResult{
		DiscountAmount: discount,
		FinalAmount:    final,
	}
}

// Apply consumes one usage slot for a booking. Not idempotent; called once
// per successful booking creation. The atomic increment keeps used_count
// within usage_limit under concurrent bookings.
func (s *PromotionService) Apply(promotionID, bookingID string) error {
	applied, err := s.promotionRepo.IncrementUsage(promotionID)
	if err != nil {
		return fmt.Errorf("failed to apply promotion: %w", err)
	}
	if !applied {
		return fmt.Errorf("%w: promotion usage limit exceeded", ErrConflict)
	}

	s.logger.WithFields(logrus.Fields{
		"promotion_id": promotionID,
		"booking_id":   bookingID,
	}).Info("Promotion usage consumed")

	return nil
}

// Create stores a new promotion (admin)
func (s *PromotionService) Create(req *models.CreatePromotionRequest) (*models.Promotion, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrConflict, err.Error())
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	promo := &models.Promotion{
		Title:       req.Title,
		Description: req.Description,
		Code:        req.Code,
		Type:        req.Type,
		Value:       req.Value,
		MinAmount:   req.MinAmount,
		MaxDiscount: req.MaxDiscount,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		UsageLimit:  req.UsageLimit,
		IsActive:    active,
	}
	if err := s.promotionRepo.Create(promo); err != nil {
		return nil, err
	}
	return promo, nil
}

// List returns all promotions (admin)
func (s *PromotionService) List() ([]models.Promotion, error) {
	return s.promotionRepo.List()
}

// SetActive toggles a promotion on or off (admin)
func (s *PromotionService) SetActive(promotionID string, active bool) error {
	if err := s.promotionRepo.SetActive(promotionID, active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: promotion not found", ErrNotFound)
		}
		return err
	}
	return nil
}

// Delete removes a promotion (admin). Existing bookings keep their
// promotion_id reference; only future redemptions are affected.
func (s *PromotionService) Delete(promotionID string) error {
	if err := s.promotionRepo.Delete(promotionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: promotion not found", ErrNotFound)
		}
		return err
	}
	return nil
}
