package vaultmetrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func resetChecker() {
	checker = &healthChecker{
		components: make(map[string]componentState),
		startTime:  time.Now(),
	}
}

func TestHealthHandlerAllHealthy(t *testing.T) {
	resetChecker()
	RegisterComponent("vault", true, "")
	RegisterComponent("transport", true, "")

	rec := httptest.NewRecorder()
	HealthHandler()(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got Status
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Status != "healthy" {
		t.Errorf("status = %q, want healthy", got.Status)
	}
}

func TestHealthHandlerUnhealthyComponent(t *testing.T) {
	resetChecker()
	RegisterComponent("vault", false, "locked")

	rec := httptest.NewRecorder()
	HealthHandler()(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestReadyHandlerMissingComponent(t *testing.T) {
	resetChecker()
	RegisterComponent("vault", true, "")
	// transport never registered

	rec := httptest.NewRecorder()
	ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var got Status
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Status != "not_ready" {
		t.Errorf("status = %q, want not_ready", got.Status)
	}
}

func TestReadyHandlerAllReady(t *testing.T) {
	resetChecker()
	RegisterComponent("vault", true, "")
	RegisterComponent("transport", true, "")

	rec := httptest.NewRecorder()
	ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
