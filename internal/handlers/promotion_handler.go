package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/engracedsmile/travel-backend/internal/models"
	"github.com/engracedsmile/travel-backend/internal/services"
)

// PromotionHandler handles promotion validation and admin management
type PromotionHandler struct {
	promotions *services.PromotionService
	logger     *logrus.Logger
}

// NewPromotionHandler creates a new PromotionHandler
func NewPromotionHandler(promotions *services.PromotionService, logger *logrus.Logger) *PromotionHandler {
	return &PromotionHandler{
		promotions: promotions,
		logger:     logger,
	}
}

// ValidatePromotion checks a code and returns the computed discount
// @Summary Validate a promotion code
// @Description Validate a promotion code against a base amount and return the discount
// @Tags Promotions
// @Accept json
// @Produce json
// @Param request body models.ValidatePromotionRequest true "Validation request"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{} "Code not found"
// @Failure 409 {object} map[string]interface{} "Code not valid for this amount"
// @Router /api/v1/promotions/validate [post]
func (h *PromotionHandler) ValidatePromotion(c *gin.Context) {
	var req models.ValidatePromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	promo, err := h.promotions.Validate(req.Code, req.UserID, req.RouteID, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}

	discount := h.promotions.CalculateDiscount(promo, req.Amount)

	c.JSON(http.StatusOK, gin.H{
		"promotion":       promo,
		"discount_amount": discount.DiscountAmount,
		"final_amount":    discount.FinalAmount,
	})
}

// CreatePromotion creates a new promotion (admin)
// @Summary Create a promotion
// @Tags Promotions
// @Accept json
// @Produce json
// @Param request body models.CreatePromotionRequest true "Promotion"
// @Success 201 {object} models.Promotion
// @Security BearerAuth
// @Router /api/v1/promotions [post]
func (h *PromotionHandler) CreatePromotion(c *gin.Context) {
	var req models.CreatePromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	promo, err := h.promotions.Create(&req)
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"promotion_id": promo.ID,
		"type":         promo.Type,
	}).Info("Promotion created")

	c.JSON(http.StatusCreated, promo)
}

// ListPromotions returns all promotions (admin)
// @Summary List promotions
// @Tags Promotions
// @Produce json
// @Success 200 {array} models.Promotion
// @Security BearerAuth
// @Router /api/v1/promotions [get]
func (h *PromotionHandler) ListPromotions(c *gin.Context) {
	promos, err := h.promotions.List()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"promotions": promos, "count": len(promos)})
}

// SetPromotionActive toggles a promotion on or off (admin)
// @Summary Activate or deactivate a promotion
// @Tags Promotions
// @Accept json
// @Produce json
// @Param id path string true "Promotion ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /api/v1/promotions/{id}/active [patch]
func (h *PromotionHandler) SetPromotionActive(c *gin.Context) {
	var req struct {
		IsActive *bool `json:"is_active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if err := h.promotions.SetActive(c.Param("id"), *req.IsActive); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Promotion updated", "is_active": *req.IsActive})
}

// DeletePromotion removes a promotion (admin)
// @Summary Delete a promotion
// @Tags Promotions
// @Produce json
// @Param id path string true "Promotion ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /api/v1/promotions/{id} [delete]
func (h *PromotionHandler) DeletePromotion(c *gin.Context) {
	if err := h.promotions.Delete(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Promotion deleted"})
}
