package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMiddleware(t *testing.T) {
	const secret = "test-secret"
	userID := uuid.New()
	valid, err := GenerateToken(userID, "crew@example.com", "", secret, time.Hour)
	require.NoError(t, err)
	expired := signClaims(t, secret, supabaseClaims(userID.String(), time.Now().Add(-time.Minute)))

	var seen *Claims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	handler := HTTPMiddleware(next, secret, DefaultAudience, "/api/billing/webhook")

	tests := []struct {
		name       string
		method     string
		path       string
		header     string
		wantStatus int
		wantClaims bool
	}{
		{name: "valid token", method: http.MethodGet, path: "/api/projects", header: "Bearer " + valid, wantStatus: http.StatusNoContent, wantClaims: true},
		{name: "missing header", method: http.MethodGet, path: "/api/projects", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", method: http.MethodGet, path: "/api/projects", header: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "expired token", method: http.MethodGet, path: "/api/projects", header: "Bearer " + expired, wantStatus: http.StatusUnauthorized},
		{name: "public webhook", method: http.MethodPost, path: "/api/billing/webhook", wantStatus: http.StatusNoContent},
		{name: "health outside api", method: http.MethodGet, path: "/healthz", wantStatus: http.StatusNoContent},
		{name: "cors preflight", method: http.MethodOptions, path: "/api/projects", wantStatus: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Contains(t, rec.Body.String(), `"unauthenticated"`)
			}
			if tt.wantClaims {
				require.NotNil(t, seen)
				assert.Equal(t, userID.String(), seen.Subject)
			}
		})
	}
}
