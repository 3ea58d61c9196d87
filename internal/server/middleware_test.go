package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	scheduledomain "github.com/boxlane/boxlane/internal/schedule/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())
	return engine
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestAPIKeyRequired(t *testing.T) {
	engine := newTestEngine()
	engine.GET("/protected", APIKeyRequired("secret"), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeError(t, rec).Error.Type)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("X-API-Key", "wrong")
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("X-API-Key", "secret")
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIKeyRequired_OpenWhenUnconfigured(t *testing.T) {
	engine := newTestEngine()
	engine.GET("/protected", APIKeyRequired(""), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhookSecretRequired(t *testing.T) {
	engine := newTestEngine()
	engine.POST("/hook", WebhookSecretRequired("hush"), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/hook", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/hook", nil)
	req.Header.Set("X-Webhook-Secret", "hush")
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestErrorHandlingMiddleware_MapsDomainErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"validation", ValidationErrors{{Field: "origin", Message: "is required"}}, http.StatusBadRequest, "validation_error"},
		{"missing carrier", scheduledomain.ErrMissingCarrierName, http.StatusBadRequest, "invalid_request"},
		{"not found", ErrNotFound, http.StatusNotFound, "not_found"},
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{"unknown", assert.AnError, http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			engine := newTestEngine()
			engine.GET("/boom", func(c *gin.Context) {
				AbortWithError(c, tc.err)
			})

			rec := httptest.NewRecorder()
			engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, tc.wantType, decodeError(t, rec).Error.Type)
		})
	}
}

func TestErrorHandlingMiddleware_ValidationDetails(t *testing.T) {
	engine := newTestEngine()
	engine.GET("/boom", func(c *gin.Context) {
		AbortWithError(c, ValidationErrors{
			{Field: "origin", Message: "is required"},
			{Field: "limit", Message: "must be a non-negative integer"},
		})
	})

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	body := decodeError(t, rec)
	require.Len(t, body.Error.Errors, 2)
	assert.Equal(t, "origin", body.Error.Errors[0].Field)
}
