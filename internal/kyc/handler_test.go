package kyc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"trade-scout/expert-portal/expert-portal-backend/internal/auth"
)

func newTestRouter(t *testing.T, env *testEnv, expertID uuid.UUID) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	handler := NewHandler(env.service, env.service.logger)

	router := gin.New()
	api := router.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		if expertID != uuid.Nil {
			auth.SetExpertID(c, expertID)
		}
		c.Next()
	})
	handler.RegisterRoutes(api)
	handler.RegisterAdminRoutes(router.Group("/api/v1/admin"))
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func doUpload(t *testing.T, router *gin.Engine, slot, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreatePart(map[string][]string{
		"Content-Disposition": {`form-data; name="file"; filename="doc.pdf"`},
		"Content-Type":        {contentType},
	})
	require.NoError(t, err)
	_, err = part.Write([]byte("document bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/verification/documents/"+slot, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	code, _ := body["code"].(string)
	return code
}

func TestGetVerificationRequiresIdentity(t *testing.T) {
	env := newTestEnv(t)
	router := newTestRouter(t, env, uuid.Nil)

	w := doJSON(t, router, http.MethodGet, "/api/v1/verification", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetVerificationReturnsRecord(t *testing.T) {
	env := newTestEnv(t)
	expertID := uuid.New()
	router := newTestRouter(t, env, expertID)

	w := doJSON(t, router, http.MethodGet, "/api/v1/verification", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var snap Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, StatusNotStarted, snap.Status)
	assert.Equal(t, 1, snap.CurrentStep)
}

func TestSubmitStepValidationFailureIs422(t *testing.T) {
	env := newTestEnv(t)
	router := newTestRouter(t, env, uuid.New())

	w := doJSON(t, router, http.MethodPut, "/api/v1/verification/steps/1", gin.H{
		"license_number": "LIC-1",
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var outcome StepOutcome
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &outcome))
	assert.NotEmpty(t, outcome.Errors)
}

func TestSubmitStepRejectsStepOutOfRange(t *testing.T) {
	env := newTestEnv(t)
	router := newTestRouter(t, env, uuid.New())

	for _, step := range []string{"0", "7", "banking"} {
		w := doJSON(t, router, http.MethodPut, "/api/v1/verification/steps/"+step, gin.H{})
		assert.Equal(t, http.StatusBadRequest, w.Code, "step %q", step)
	}
}

func TestUploadDocument(t *testing.T) {
	env := newTestEnv(t)
	expertID := uuid.New()
	router := newTestRouter(t, env, expertID)

	w := doUpload(t, router, string(SlotBusinessLicense), "application/pdf")
	require.Equal(t, http.StatusCreated, w.Code)

	var snap Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, StatusInProgress, snap.Status)
	assert.Contains(t, snap.Documents, SlotBusinessLicense)
}

func TestUploadRejectionsMapTo400(t *testing.T) {
	env := newTestEnv(t)
	router := newTestRouter(t, env, uuid.New())

	w := doUpload(t, router, "tax_return", "application/pdf")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "upload_rejected", errorCode(t, w))

	w = doUpload(t, router, string(SlotBusinessLicense), "application/zip")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "upload_rejected", errorCode(t, w))
}

func TestStorageOutageMapsTo503(t *testing.T) {
	env := newTestEnv(t)
	env.store.FailUploads = true
	router := newTestRouter(t, env, uuid.New())

	w := doUpload(t, router, string(SlotBusinessLicense), "application/pdf")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "storage_unavailable", errorCode(t, w))
}

func TestIncompleteSubmitMapsTo422(t *testing.T) {
	env := newTestEnv(t)
	expertID := uuid.New()
	router := newTestRouter(t, env, expertID)

	env.upload(t, expertID, SlotBusinessLicense)
	w := doJSON(t, router, http.MethodPost, "/api/v1/verification/submit", nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var body struct {
		Code    string        `json:"code"`
		Missing []MissingItem `json:"missing"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "incomplete_application", body.Code)
	assert.NotEmpty(t, body.Missing)
}

func TestInvalidTransitionMapsTo409(t *testing.T) {
	env := newTestEnv(t)
	expertID := uuid.New()
	router := newTestRouter(t, env, expertID)
	env.submitted(t, expertID)

	w := doJSON(t, router, http.MethodPut, "/api/v1/verification/steps/1", gin.H{"license_number": "LIC-2"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "invalid_transition", errorCode(t, w))
}

func TestAdminReviewFlow(t *testing.T) {
	env := newTestEnv(t)
	expertID := uuid.New()
	router := newTestRouter(t, env, expertID)
	env.submitted(t, expertID)

	base := "/api/v1/admin/verifications/" + expertID.String()

	w := doJSON(t, router, http.MethodGet, "/api/v1/admin/verifications?status=submitted", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var queue []AdminSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &queue))
	require.Len(t, queue, 1)
	assert.Equal(t, expertID, queue[0].ExpertID)

	w = doJSON(t, router, http.MethodPost, base+"/claim", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, base+"/reject", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "reason_required", errorCode(t, w))

	env.notifier.On("NotifyStatusChange", mock.Anything, expertID, StatusUnderReview, StatusRejected, "document unreadable").Return(nil).Once()
	w = doJSON(t, router, http.MethodPost, base+"/reject", gin.H{"reason": "document unreadable"})
	require.Equal(t, http.StatusOK, w.Code)

	var snap AdminSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, StatusRejected, snap.Status)
	assert.Equal(t, "document unreadable", snap.RejectionReason)
}

func TestAdminRoutesValidateExpertID(t *testing.T) {
	env := newTestEnv(t)
	router := newTestRouter(t, env, uuid.New())

	w := doJSON(t, router, http.MethodGet, "/api/v1/admin/verifications/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPartialApprovalMapsTo502(t *testing.T) {
	env := newTestEnv(t)
	expertID := uuid.New()
	router := newTestRouter(t, env, expertID)
	env.submitted(t, expertID)

	_, err := env.service.ClaimReview(context.Background(), expertID)
	require.NoError(t, err)

	env.profiles.On("MarkVerificationApproved", mock.Anything, expertID, mock.AnythingOfType("time.Time")).
		Return(errors.New("profile service down")).Once()

	w := doJSON(t, router, http.MethodPost, "/api/v1/admin/verifications/"+expertID.String()+"/approve", gin.H{})
	require.Equal(t, http.StatusBadGateway, w.Code)

	var body struct {
		Code   string         `json:"code"`
		Record *AdminSnapshot `json:"record"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "partial_approval", body.Code)
	require.NotNil(t, body.Record)
	assert.Equal(t, StatusApproved, body.Record.Status)
}

func TestSensitiveValuesNeverLeaveTheAPI(t *testing.T) {
	env := newTestEnv(t)
	expertID := uuid.New()
	router := newTestRouter(t, env, expertID)

	_, err := env.service.SubmitStep(context.Background(), expertID, StepBanking, StepPayload{
		BankName:          strPtr("First National"),
		AccountHolderName: strPtr("Jordan Smith"),
		AccountNumber:     strPtr("123456789012"),
		RoutingNumber:     strPtr("021000021"),
		TaxID:             strPtr("12-3456789"),
	})
	require.NoError(t, err)

	w := doJSON(t, router, http.MethodGet, "/api/v1/verification", nil)
	require.Equal(t, http.StatusOK, w.Code)

	raw := w.Body.String()
	assert.NotContains(t, raw, "123456789012")
	assert.NotContains(t, raw, "12-3456789")
	assert.Contains(t, raw, "********9012")

	// The admin view is masked the same way.
	w = doJSON(t, router, http.MethodGet, "/api/v1/admin/verifications/"+expertID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "123456789012")
}
