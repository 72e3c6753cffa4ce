package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aeroweather/aeroweather/internal/api/middleware"
)

// serveRequestID returns the ID the handler saw and the echoed header.
func serveRequestID(incoming string) (seen, echoed string) {
	handler := middleware.RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = middleware.GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	if incoming != "" {
		req.Header.Set(middleware.RequestIDHeader, incoming)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return seen, rec.Header().Get(middleware.RequestIDHeader)
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"absent", "", false},
		{"caller supplied", "existing_request_id", true},
		{"uuid from gateway", "5f0c6f1e-8a4b-4d7e-9b1a-2c3d4e5f6a7b", true},
		{"max length", strings.Repeat("x", 128), true},
		{"too long", strings.Repeat("a", 129), false},
		{"contains space", "abc def", false},
		{"contains newline", "abc\ndef", false},
		{"non ascii", "req_ñandú", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen, echoed := serveRequestID(tt.incoming)

			assert.Equal(t, seen, echoed, "context and header agree")
			if tt.keep {
				assert.Equal(t, tt.incoming, seen)
				return
			}
			assert.True(t, strings.HasPrefix(seen, "req_"), seen)
			assert.Len(t, seen, len("req_")+22)
		})
	}
}

func TestRequestID_Unique(t *testing.T) {
	ids := make(map[string]struct{}, 100)
	for range 100 {
		id, _ := serveRequestID("")
		require.NotContains(t, ids, id)
		ids[id] = struct{}{}
	}
}

func TestGetRequestID_OutsideMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	assert.Empty(t, middleware.GetRequestID(req.Context()))
}
