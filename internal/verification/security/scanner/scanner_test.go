package scanner

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignatureScanner(t *testing.T) {
	s := NewSignatureScanner()
	ctx := context.Background()

	t.Run("clean pdf", func(t *testing.T) {
		res, err := s.Scan(ctx, []byte("%PDF-1.7\n1 0 obj << /Type /Catalog >> endobj\n%%EOF"))
		require.NoError(t, err)
		assert.True(t, res.Clean)
	})

	t.Run("eicar test file", func(t *testing.T) {
		res, err := s.Scan(ctx, eicar)
		require.NoError(t, err)
		assert.False(t, res.Clean)
		assert.Contains(t, res.Detail, "EICAR")
	})

	t.Run("pdf with embedded javascript", func(t *testing.T) {
		res, err := s.Scan(ctx, []byte("%PDF-1.4\n<< /S /JavaScript /JS (app.alert(1)) >>"))
		require.NoError(t, err)
		assert.False(t, res.Clean)
	})
}

func TestHTTPScanner(t *testing.T) {
	t.Run("decodes verdict", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			assert.Equal(t, "payload", string(body))
			_, _ = w.Write([]byte(`{"clean":false,"detail":"Win.Trojan.Agent"}`))
		}))
		defer srv.Close()

		res, err := NewHTTPScanner(srv.URL, 0).Scan(context.Background(), []byte("payload"))
		require.NoError(t, err)
		assert.False(t, res.Clean)
		assert.Equal(t, "Win.Trojan.Agent", res.Detail)
	})

	t.Run("non-2xx is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		_, err := NewHTTPScanner(srv.URL, 0).Scan(context.Background(), []byte("payload"))
		assert.ErrorContains(t, err, "status 503")
	})

	t.Run("missing verdict is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"detail":"ok"}`))
		}))
		defer srv.Close()

		_, err := NewHTTPScanner(srv.URL, 0).Scan(context.Background(), []byte("payload"))
		assert.ErrorContains(t, err, "missing verdict")
	})
}
