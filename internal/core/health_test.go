package core

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type mockHealthProbe struct {
	name     string
	checkErr error
	delay    time.Duration
	panics   bool
}

func (m *mockHealthProbe) Name() string { return m.name }

func (m *mockHealthProbe) Check(ctx context.Context) error {
	if m.panics {
		panic("probe exploded")
	}
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return m.checkErr
}

func runHealth(t *testing.T, probes ...HealthProbe) (int, healthResponse) {
	t.Helper()
	srv := newTestServer(t)
	srv.HealthProbes = probes

	rec := httptest.NewRecorder()
	srv.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var resp healthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return rec.Code, resp
}

func TestHandleHealth_NoProbes(t *testing.T) {
	code, resp := runHealth(t)
	if code != http.StatusOK || resp.Status != "healthy" {
		t.Errorf("got %d %q, want 200 healthy", code, resp.Status)
	}
}

func TestHandleHealth_AllHealthy(t *testing.T) {
	code, resp := runHealth(t,
		&mockHealthProbe{name: "database"},
		&mockHealthProbe{name: "catalog"},
	)
	if code != http.StatusOK {
		t.Errorf("expected status 200, got %d", code)
	}
	for _, name := range []string{"database", "catalog"} {
		if resp.Components[name].Status != "healthy" {
			t.Errorf("component %q: expected healthy, got %+v", name, resp.Components[name])
		}
	}
}

func TestHandleHealth_OneUnhealthy(t *testing.T) {
	code, resp := runHealth(t,
		&mockHealthProbe{name: "database", checkErr: errors.New("connection refused")},
		&mockHealthProbe{name: "catalog"},
	)
	if code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", code)
	}
	if resp.Status != "unhealthy" {
		t.Errorf("expected unhealthy, got %q", resp.Status)
	}
	if got := resp.Components["database"]; got.Message != "connection refused" {
		t.Errorf("database component = %+v", got)
	}
	if resp.Components["catalog"].Status != "healthy" {
		t.Errorf("catalog component = %+v", resp.Components["catalog"])
	}
}

func TestHandleHealth_ProbePanic(t *testing.T) {
	code, resp := runHealth(t, ProbeFunc{ProbeName: "ok", Fn: func(context.Context) error { return nil }},
		&mockHealthProbe{name: "boom", panics: true})
	if code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", code)
	}
	if resp.Components["boom"].Status != "unhealthy" {
		t.Errorf("boom component = %+v", resp.Components["boom"])
	}
}

func TestHandleHealth_Timeout(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the health check deadline")
	}
	code, resp := runHealth(t,
		&mockHealthProbe{name: "database"},
		&mockHealthProbe{name: "s3", delay: 5 * time.Second},
	)
	if code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", code)
	}
	if resp.Components["s3"].Status != "unhealthy" {
		t.Errorf("s3 component = %+v", resp.Components["s3"])
	}
}
