package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return NewLoggerTo(io.Discard, "error", "json")
}

func TestHealthChecker(t *testing.T) {
	hc := NewHealthChecker(testLogger())

	hc.RegisterComponent("store")
	hc.RegisterComponent("upstream")

	// Initially unknown
	health := hc.GetHealth()
	if health.Status != StatusUnhealthy {
		t.Errorf("expected unhealthy status with unknown components, got %v", health.Status)
	}

	hc.UpdateComponentHealth("store", StatusHealthy, "")
	hc.UpdateComponentHealth("upstream", StatusHealthy, "")

	health = hc.GetHealth()
	if health.Status != StatusHealthy {
		t.Errorf("expected healthy status, got %v", health.Status)
	}

	// Rate limited upstream degrades but does not fail
	hc.UpdateComponentHealth("upstream", StatusDegraded, "rate limited")
	health = hc.GetHealth()
	if health.Status != StatusDegraded {
		t.Errorf("expected degraded status, got %v", health.Status)
	}

	hc.UpdateComponentHealth("store", StatusUnhealthy, "connection failed")
	health = hc.GetHealth()
	if health.Status != StatusUnhealthy {
		t.Errorf("expected unhealthy status, got %v", health.Status)
	}
	if health.Components["store"].Message != "connection failed" {
		t.Errorf("expected error message, got %v", health.Components["store"].Message)
	}
}

func TestHealthHandler(t *testing.T) {
	hc := NewHealthChecker(testLogger())
	hc.RegisterComponent("test")
	hc.UpdateComponentHealth("test", StatusHealthy, "")

	handler := hc.HealthHandler()

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	hc.UpdateComponentHealth("test", StatusDegraded, "rate limited")
	w = httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200 while degraded, got %d", w.Code)
	}

	hc.UpdateComponentHealth("test", StatusUnhealthy, "error")
	w = httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", w.Code)
	}
}

func TestReadyHandler(t *testing.T) {
	hc := NewHealthChecker(testLogger())
	hc.RegisterComponent("test")

	w := httptest.NewRecorder()
	hc.ReadyHandler()(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 with unknown component, got %d", w.Code)
	}

	hc.UpdateComponentHealth("test", StatusHealthy, "")
	w = httptest.NewRecorder()
	hc.ReadyHandler()(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestCheckComponent(t *testing.T) {
	hc := NewHealthChecker(testLogger())
	hc.RegisterComponent("test")

	ctx := context.Background()
	hc.CheckComponent(ctx, "test", func(ctx context.Context) error {
		return nil
	})
	if got := hc.GetHealth().Components["test"].Status; got != StatusHealthy {
		t.Errorf("expected healthy status, got %v", got)
	}

	hc.CheckComponent(ctx, "test", func(ctx context.Context) error {
		return errors.New("check failed")
	})
	if got := hc.GetHealth().Components["test"].Status; got != StatusUnhealthy {
		t.Errorf("expected unhealthy status, got %v", got)
	}
}

func TestRunExecutesRegisteredChecks(t *testing.T) {
	hc := NewHealthChecker(testLogger())

	var calls atomic.Int32
	hc.RegisterCheck("store", func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	hc.Run(ctx, 20*time.Millisecond)

	if calls.Load() < 2 {
		t.Errorf("expected at least 2 checks, got %d", calls.Load())
	}
	if got := hc.GetHealth().Components["store"].Status; got != StatusHealthy {
		t.Errorf("expected healthy status, got %v", got)
	}
}

func TestCheckComponentDegraded(t *testing.T) {
	hc := NewHealthChecker(testLogger())
	hc.RegisterComponent("upstream")
	hc.RegisterComponent("store")
	hc.UpdateComponentHealth("store", StatusHealthy, "")

	hc.CheckComponent(context.Background(), "upstream", func(ctx context.Context) error {
		return fmt.Errorf("rate limited until reset: %w", ErrDegraded)
	})

	health := hc.GetHealth()
	if got := health.Components["upstream"].Status; got != StatusDegraded {
		t.Errorf("expected upstream degraded, got %s", got)
	}
	if health.Status != StatusDegraded {
		t.Errorf("expected overall degraded, got %s", health.Status)
	}

	w := httptest.NewRecorder()
	hc.ReadyHandler()(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if w.Code != http.StatusOK {
		t.Errorf("degraded service should stay ready, got %d", w.Code)
	}
}
