package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docverify/internal/verification/models"
)

func TestParseExtractionResponse(t *testing.T) {
	t.Run("parses valid response", func(t *testing.T) {
		body := []byte(`{
			"request_id": "req-77",
			"provider_version": "2025-09",
			"confidence": 0.92,
			"fields": {"account_holder": "Aoife Byrne", "signature_valid": true},
			"extracted_at": "2026-03-02T09:00:00Z"
		}`)

		ext, err := parseExtractionResponse("ocrolus", http.StatusOK, body)
		require.NoError(t, err)
		assert.Equal(t, "ocrolus", ext.ProviderID)
		assert.Equal(t, 0.92, ext.Confidence)
		assert.Equal(t, "Aoife Byrne", ext.Fields["account_holder"])
		assert.Equal(t, "req-77", ext.Metadata["request_id"])
		assert.Equal(t, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), ext.ExtractedAt)
	})

	t.Run("missing extracted_at leaves timestamp for the router", func(t *testing.T) {
		ext, err := parseExtractionResponse("ocrolus", http.StatusOK, []byte(`{"confidence": 0.5, "fields": {}}`))
		require.NoError(t, err)
		assert.True(t, ext.ExtractedAt.IsZero())
	})

	t.Run("malformed JSON is bad data", func(t *testing.T) {
		_, err := parseExtractionResponse("ocrolus", http.StatusOK, []byte(`{invalid json`))
		assert.Equal(t, ErrorBadData, GetCategory(err))
	})

	t.Run("contract violations are bad data", func(t *testing.T) {
		for name, body := range map[string]string{
			"missing confidence":  `{"fields": {}}`,
			"confidence too high": `{"confidence": 1.4, "fields": {}}`,
			"fields not object":   `{"confidence": 0.4, "fields": []}`,
		} {
			_, err := parseExtractionResponse("ocrolus", http.StatusOK, []byte(body))
			assert.Equal(t, ErrorBadData, GetCategory(err), name)
		}
	})

	t.Run("status codes map to categories", func(t *testing.T) {
		cases := map[int]ErrorCategory{
			http.StatusUnauthorized:        ErrorAuthentication,
			http.StatusForbidden:           ErrorAuthentication,
			http.StatusTooManyRequests:     ErrorRateLimited,
			http.StatusUnprocessableEntity: ErrorRejected,
			http.StatusGatewayTimeout:      ErrorTimeout,
			http.StatusBadGateway:          ErrorProviderOutage,
			http.StatusNotFound:            ErrorBadData,
		}
		for status, want := range cases {
			_, err := parseExtractionResponse("ocrolus", status, []byte(`{}`))
			assert.Equal(t, want, GetCategory(err), "status %d", status)
		}
	})
}

func TestHTTPProvider(t *testing.T) {
	t.Run("sends the sealed document", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/extractions", r.URL.Path)
			assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

			var body extractionRequestBody
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "doc-1", body.DocumentID)
			assert.Equal(t, "payslip", body.DocumentClass)
			assert.Equal(t, "key-1", body.KeyID)
			assert.Equal(t, []byte("sealed"), body.Document)

			_, _ = w.Write([]byte(`{"confidence": 0.88, "fields": {"employer": "Acme"}}`))
		}))
		defer srv.Close()

		p := NewHTTPProvider("ocrolus", srv.URL+"/", "secret", time.Second, WithClasses(models.ClassPayslip))
		ext, err := p.Extract(context.Background(), ExtractionRequest{
			DocumentID: "doc-1",
			Class:      models.ClassPayslip,
			Payload:    []byte("sealed"),
			KeyID:      "key-1",
		})
		require.NoError(t, err)
		assert.Equal(t, 0.88, ext.Confidence)
		assert.Equal(t, "Acme", ext.Fields["employer"])
		assert.Equal(t, []models.DocumentClass{models.ClassPayslip}, p.Capabilities().Classes)
	})

	t.Run("server error is an outage", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		_, err := NewHTTPProvider("ocrolus", srv.URL, "", time.Second).Extract(context.Background(), ExtractionRequest{})
		assert.Equal(t, ErrorProviderOutage, GetCategory(err))
		assert.True(t, IsRetryable(err))
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		defer srv.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := NewHTTPProvider("ocrolus", srv.URL, "", time.Second).Extract(ctx, ExtractionRequest{})
		assert.Equal(t, ErrorTimeout, GetCategory(err))
	})

	t.Run("health", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/health" {
				w.WriteHeader(http.StatusNotFound)
			}
		}))
		defer srv.Close()

		assert.NoError(t, NewHTTPProvider("ocrolus", srv.URL, "", time.Second).Health(context.Background()))
	})
}
