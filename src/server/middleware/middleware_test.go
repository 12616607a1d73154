package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})

	tests := []struct {
		name   string
		header string
		value  string
	}{
		{"generated", "", ""},
		{"x-request-id", HeaderXRequestID, "abc-123"},
		{"correlation", HeaderXCorrelationID, "corr-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			got := w.Header().Get(HeaderXRequestID)
			if got == "" || got != w.Body.String() {
				t.Fatalf("header %q, body %q", got, w.Body.String())
			}
			if tt.value != "" && got != tt.value {
				t.Errorf("request id = %q, want %q", got, tt.value)
			}
			if tt.value == "" && len(got) != 36 {
				t.Errorf("generated id %q is not a UUID", got)
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	router := gin.New()
	router.GET("/search", RateLimit(2, time.Minute, nil), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/search", nil)
		req.RemoteAddr = "192.0.2.10:4000"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)

		if w.Code == http.StatusTooManyRequests && !strings.Contains(w.Body.String(), "RATE_LIMITED") {
			t.Errorf("429 body = %s", w.Body.String())
		}
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("status codes = %v, want [200 200 429]", codes)
	}

	// other clients have their own budget
	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	req.RemoteAddr = "192.0.2.11:4000"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("second client status = %d", w.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	router := gin.New()
	router.GET("/", SecurityHeaders(), func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/api", SecurityHeadersAPI(), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if !strings.Contains(w.Header().Get("Permissions-Policy"), "geolocation=(self)") {
		t.Errorf("Permissions-Policy = %q", w.Header().Get("Permissions-Policy"))
	}
	if w.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS set on plain HTTP")
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api", nil))
	if w.Header().Get("Cache-Control") != "no-store" {
		t.Errorf("Cache-Control = %q", w.Header().Get("Cache-Control"))
	}
}
