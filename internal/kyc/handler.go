package kyc

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"trade-scout/expert-portal/expert-portal-backend/internal/auth"
	"trade-scout/expert-portal/expert-portal-backend/pkg/vault"
)

// Handler handles HTTP requests for the verification flow
type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers the expert-facing verification routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	verification := rg.Group("/verification")
	{
		verification.GET("", h.getRecord)
		verification.PUT("/steps/:step", h.submitStep)
		verification.POST("/documents/:slot", h.uploadDocument)
		verification.GET("/documents/:slot/url", h.documentURL)
		verification.DELETE("/documents/:slot", h.removeDocument)
		verification.POST("/submit", h.submit)
	}
}

// RegisterAdminRoutes registers the review gateway. The group must already
// carry admin authorization middleware.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	admin := rg.Group("/verifications")
	{
		admin.GET("", h.listByStatus)
		admin.GET("/:expertId", h.adminGetRecord)
		admin.POST("/:expertId/claim", h.claimReview)
		admin.POST("/:expertId/approve", h.approve)
		admin.POST("/:expertId/reject", h.reject)
		admin.POST("/:expertId/resubmission", h.requestResubmission)
	}
}

func (h *Handler) getRecord(c *gin.Context) {
	expertID, ok := auth.ExpertID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	snap, err := h.service.GetRecord(c.Request.Context(), expertID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *Handler) submitStep(c *gin.Context) {
	expertID, ok := auth.ExpertID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	step, valid := stepParam(c)
	if !valid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "step must be between 1 and 6"})
		return
	}

	var payload StepPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome, err := h.service.SubmitStep(c.Request.Context(), expertID, step, payload)
	if err != nil {
		h.fail(c, err)
		return
	}
	status := http.StatusOK
	if len(outcome.Errors) > 0 {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, outcome)
}

func (h *Handler) uploadDocument(c *gin.Context) {
	expertID, ok := auth.ExpertID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	slot := DocumentSlot(c.Param("slot"))

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	contentType := file.Header.Get("Content-Type")
	snap, err := h.service.AttachDocument(c.Request.Context(), expertID, slot, DocumentUpload{
		FileName:    file.Filename,
		ContentType: contentType,
		Size:        file.Size,
		Content:     f,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, snap)
}

func (h *Handler) documentURL(c *gin.Context) {
	expertID, ok := auth.ExpertID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	slot := DocumentSlot(c.Param("slot"))
	url, err := h.service.DocumentURL(c.Request.Context(), expertID, slot)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (h *Handler) removeDocument(c *gin.Context) {
	expertID, ok := auth.ExpertID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	slot := DocumentSlot(c.Param("slot"))
	snap, err := h.service.RemoveDocument(c.Request.Context(), expertID, slot)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *Handler) submit(c *gin.Context) {
	expertID, ok := auth.ExpertID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	snap, err := h.service.Submit(c.Request.Context(), expertID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *Handler) listByStatus(c *gin.Context) {
	status := Status(c.DefaultQuery("status", string(StatusSubmitted)))
	snaps, err := h.service.ListByStatus(c.Request.Context(), status)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snaps)
}

func (h *Handler) adminGetRecord(c *gin.Context) {
	expertID, ok := expertParam(c)
	if !ok {
		return
	}
	snap, err := h.service.AdminGetRecord(c.Request.Context(), expertID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *Handler) claimReview(c *gin.Context) {
	expertID, ok := expertParam(c)
	if !ok {
		return
	}
	snap, err := h.service.ClaimReview(c.Request.Context(), expertID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

type reviewRequest struct {
	Reason string `json:"reason"`
	Notes  string `json:"notes"`
}

func (h *Handler) approve(c *gin.Context) {
	expertID, ok := expertParam(c)
	if !ok {
		return
	}
	var req reviewRequest
	_ = c.ShouldBindJSON(&req)

	snap, err := h.service.Approve(c.Request.Context(), expertID, req.Notes)
	if err != nil {
		var partial *PartialApprovalError
		if errors.As(err, &partial) {
			// The record is approved but the profile flag is not; the caller
			// must see this and reconcile rather than assume a clean approval.
			c.JSON(http.StatusBadGateway, gin.H{
				"error":  partial.Error(),
				"code":   "partial_approval",
				"record": snap,
			})
			return
		}
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *Handler) reject(c *gin.Context) {
	expertID, ok := expertParam(c)
	if !ok {
		return
	}
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	snap, err := h.service.Reject(c.Request.Context(), expertID, req.Reason, req.Notes)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *Handler) requestResubmission(c *gin.Context) {
	expertID, ok := expertParam(c)
	if !ok {
		return
	}
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	snap, err := h.service.RequestResubmission(c.Request.Context(), expertID, req.Reason, req.Notes)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// fail maps domain errors onto HTTP responses.
func (h *Handler) fail(c *gin.Context, err error) {
	var invalid *InvalidTransitionError
	var incomplete *IncompleteApplicationError
	var rejected *UploadRejectedError

	switch {
	case errors.As(err, &invalid):
		c.JSON(http.StatusConflict, gin.H{"error": invalid.Error(), "code": "invalid_transition"})
	case errors.As(err, &incomplete):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "application incomplete",
			"code":    "incomplete_application",
			"missing": incomplete.Missing,
		})
	case errors.As(err, &rejected):
		c.JSON(http.StatusBadRequest, gin.H{"error": rejected.Error(), "code": "upload_rejected"})
	case errors.Is(err, ErrStorageUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "document storage unavailable", "code": "storage_unavailable"})
	case errors.Is(err, ErrReasonRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "reason_required"})
	case errors.Is(err, vault.ErrEncryptionFailure):
		h.logger.Error("Encryption failure on sensitive field write", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not secure sensitive value", "code": "encryption_failure"})
	default:
		h.logger.Error("Verification request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func stepParam(c *gin.Context) (int, bool) {
	step, err := strconv.Atoi(c.Param("step"))
	if err != nil || step < 1 || step > StepCount {
		return 0, false
	}
	return step, true
}

func expertParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("expertId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid expert id"})
		return uuid.Nil, false
	}
	return id, true
}
