package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCounterValue(t *testing.T, counter prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, counter.Write(&m))
	return m.GetCounter().GetValue()
}

func TestCors(t *testing.T) {
	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := Cors()(nextHandler)

	testCases := []struct {
		name       string
		origin     string
		userAgent  string
		wantStatus int
	}{
		{
			name:       "allowed origin",
			origin:     "http://localhost:8080",
			wantStatus: http.StatusOK,
		},
		{
			name:       "mobile app user agent",
			userAgent:  "FitLog/1.2.0 (iOS)",
			wantStatus: http.StatusOK,
		},
		{
			name:       "curl",
			userAgent:  "curl/8.4.0",
			wantStatus: http.StatusOK,
		},
		{
			name:       "unknown origin",
			origin:     "https://evil.example.com",
			userAgent:  "Mozilla/5.0",
			wantStatus: http.StatusForbidden,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, "/api/pushups", nil)
			require.NoError(t, err)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			if tc.userAgent != "" {
				req.Header.Set("User-Agent", tc.userAgent)
			}

			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tc.wantStatus, rr.Code)
			if tc.wantStatus == http.StatusOK {
				assert.Equal(t, tc.origin, rr.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}
}
