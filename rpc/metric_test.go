package rpc

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandleMetricsDefaultsToAllLabels(t *testing.T) {
	newTestEnvironment(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	handleMetrics(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"consensus"`) {
		t.Fatalf("body = %q, missing the consensus label", rec.Body.String())
	}
}

func TestHandleMetricsFiltersByLabel(t *testing.T) {
	newTestEnvironment(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics?label=consensus", nil)
	rec := httptest.NewRecorder()
	handleMetrics(rec, req)

	if !strings.Contains(rec.Body.String(), `"consensus"`) {
		t.Fatalf("body = %q, missing the requested label", rec.Body.String())
	}
}

func TestHandleMetricsUnknownLabelOmitted(t *testing.T) {
	newTestEnvironment(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics?label=nonexistent", nil)
	rec := httptest.NewRecorder()
	handleMetrics(rec, req)

	if strings.Contains(rec.Body.String(), "nonexistent") {
		t.Fatalf("body = %q, should not include an unregistered label", rec.Body.String())
	}
}
