package settings

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"trade-scout/expert-portal/expert-portal-backend/internal/auth"
)

// Handler handles HTTP requests for expert settings
type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	settings := rg.Group("/settings")
	{
		settings.GET("/notifications", h.getNotifications)
		settings.PUT("/notifications", h.updateNotifications)
	}
}

func (h *Handler) getNotifications(c *gin.Context) {
	expertID, ok := auth.ExpertID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	prefs, err := h.service.GetNotifications(c.Request.Context(), expertID)
	if err != nil {
		h.logger.Error("Failed to load notification preferences", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load preferences"})
		return
	}
	c.JSON(http.StatusOK, prefs)
}

type updateNotificationsRequest struct {
	StatusEmails   *bool `json:"status_emails"`
	ReminderEmails *bool `json:"reminder_emails"`
}

func (h *Handler) updateNotifications(c *gin.Context) {
	expertID, ok := auth.ExpertID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	var req updateNotificationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	prefs, err := h.service.GetNotifications(c.Request.Context(), expertID)
	if err != nil {
		h.logger.Error("Failed to load notification preferences", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load preferences"})
		return
	}
	if req.StatusEmails != nil {
		prefs.StatusEmails = *req.StatusEmails
	}
	if req.ReminderEmails != nil {
		prefs.ReminderEmails = *req.ReminderEmails
	}

	if err := h.service.UpdateNotifications(c.Request.Context(), prefs); err != nil {
		h.logger.Error("Failed to save notification preferences", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save preferences"})
		return
	}
	c.JSON(http.StatusOK, prefs)
}
