package reports

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"trade-scout/expert-portal/expert-portal-backend/internal/kyc"
)

// Handler serves admin exports of the verification queue.
type Handler struct {
	kycService *kyc.Service
	logger     *zap.Logger
}

func NewHandler(kycService *kyc.Service, logger *zap.Logger) *Handler {
	return &Handler{kycService: kycService, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/verifications/export", h.exportQueue)
}

func (h *Handler) exportQueue(c *gin.Context) {
	status := kyc.Status(c.DefaultQuery("status", string(kyc.StatusSubmitted)))

	records, err := h.kycService.ListByStatus(c.Request.Context(), status)
	if err != nil {
		h.logger.Error("Failed to load verification queue for export", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load verification queue"})
		return
	}

	exporter := NewQueueExporter()
	defer exporter.Close()

	var buf bytes.Buffer
	if err := exporter.Write(records); err != nil {
		h.logger.Error("Failed to build verification export", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not build export"})
		return
	}
	if err := exporter.WriteTo(&buf); err != nil {
		h.logger.Error("Failed to serialize verification export", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not build export"})
		return
	}

	filename := fmt.Sprintf("verifications_%s_%s.xlsx", status, time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}
