package rpc

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewRouterServesStatusRoundAndMetrics(t *testing.T) {
	newTestEnvironment(t)
	router := NewRouter()

	for _, path := range []string{"/status", "/round", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status code = %d, want 200", path, rec.Code)
		}
	}
}

func TestNewRouterRejectsUnknownMethodOnStatus(t *testing.T) {
	newTestEnvironment(t)
	router := NewRouter()

	req := httptest.NewRequest(http.MethodPost, "/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code == http.StatusOK {
		t.Fatalf("POST /status should not be routed to the GET-only status handler")
	}
}
