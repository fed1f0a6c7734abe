package handlers

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/engracedsmile/travel-backend/internal/database"
	"github.com/engracedsmile/travel-backend/internal/middleware"
)

// NotificationHandler serves the in-app notifications written on booking and
// payment transitions
type NotificationHandler struct {
	notifications *database.NotificationRepository
	logger        *logrus.Logger
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notifications *database.NotificationRepository, logger *logrus.Logger) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
		logger:        logger,
	}
}

// ListMyNotifications returns the authenticated user's notifications
// @Summary List my notifications
// @Tags Notifications
// @Produce json
// @Success 200 {array} models.Notification
// @Security BearerAuth
// @Router /api/v1/notifications [get]
func (h *NotificationHandler) ListMyNotifications(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	limit, offset := paginationParams(c)

	notifications, err := h.notifications.GetByUserID(userCtx.UserID.String(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"notifications": notifications, "count": len(notifications)})
}

// MarkNotificationRead marks one of the user's notifications as read
// @Summary Mark a notification as read
// @Tags Notifications
// @Produce json
// @Param id path string true "Notification ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{} "Notification not found"
// @Security BearerAuth
// @Router /api/v1/notifications/{id}/read [patch]
func (h *NotificationHandler) MarkNotificationRead(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := h.notifications.MarkRead(c.Param("id"), userCtx.UserID.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}
