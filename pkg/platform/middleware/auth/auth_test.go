package auth

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"docverify/pkg/requestcontext"
)

type stubValidator struct {
	claims *JWTClaims
	err    error
}

func (v stubValidator) ValidateToken(string) (*JWTClaims, error) {
	return v.claims, v.err
}

func TestRequireAuth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name       string
		header     string
		validator  stubValidator
		wantStatus int
	}{
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "invalid token", header: "Bearer abc", validator: stubValidator{err: errors.New("bad signature")}, wantStatus: http.StatusUnauthorized},
		{name: "no subject", header: "Bearer abc", validator: stubValidator{claims: &JWTClaims{}}, wantStatus: http.StatusUnauthorized},
		{name: "valid", header: "Bearer abc", validator: stubValidator{claims: &JWTClaims{SubmitterID: "sub-1", SessionID: "sess-1"}}, wantStatus: http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var submitter, session string
			h := RequireAuth(tt.validator, logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				submitter = requestcontext.SubmitterID(r.Context())
				session = requestcontext.SessionID(r.Context())
				w.WriteHeader(http.StatusNoContent)
			}))

			r := httptest.NewRequest(http.MethodPost, "/verifications", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, r)

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantStatus == http.StatusNoContent {
				assert.Equal(t, "sub-1", submitter)
				assert.Equal(t, "sess-1", session)
			} else {
				assert.Contains(t, rr.Body.String(), `"error":"unauthorized"`)
			}
		})
	}
}
