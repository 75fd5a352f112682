package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestServer_ExposesCapacityMetrics(t *testing.T) {
	CapacityChecksTotal.WithLabelValues("create", "accepted").Inc()
	SetBuildInfo("test", "abc123", "now")

	s := NewServer(":0")
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(w, req)

	body, _ := io.ReadAll(w.Body)
	for _, name := range []string{
		"staffplan_capacity_checks_total",
		"staffplan_build_info",
	} {
		if !strings.Contains(string(body), name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
	if s.Addr() != ":0" {
		t.Errorf("Addr() = %q", s.Addr())
	}
}

func TestServer_IndexListsStaffplanFamilies(t *testing.T) {
	CapacityChecksTotal.WithLabelValues("update", "rejected").Inc()

	s := NewServer(":0")
	w := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	body := w.Body.String()
	if !strings.Contains(body, "staffplan_capacity_checks_total") {
		t.Errorf("index missing capacity checks: %s", body)
	}
	if strings.Contains(body, "go_goroutines") {
		t.Errorf("index lists runtime metrics: %s", body)
	}

	w = httptest.NewRecorder()
	s.server.Handler.ServeHTTP(w, httptest.NewRequest("GET", "/unknown", nil))
	if w.Code != 404 {
		t.Errorf("unknown path = %d, want 404", w.Code)
	}
}
