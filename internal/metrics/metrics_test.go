package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nounverse/verbs/pkg/tool"
)

var _ tool.Recorder = (*Metrics)(nil)

func TestNewMetrics(t *testing.T) {
	m := NewMetrics()

	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}

	if m.registry == nil {
		t.Error("Registry is nil")
	}
	if m.InvocationsTotal == nil {
		t.Error("InvocationsTotal is nil")
	}
	if m.InvocationDuration == nil {
		t.Error("InvocationDuration is nil")
	}
	if m.InvocationErrorsTotal == nil {
		t.Error("InvocationErrorsTotal is nil")
	}
	if m.RegisteredTools == nil {
		t.Error("RegisteredTools is nil")
	}
	if m.PendingConfirmations == nil {
		t.Error("PendingConfirmations is nil")
	}
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics()

	// Record samples so the label vectors appear in output
	m.RecordInvocation("web.fetch", "success", 150*time.Millisecond)
	m.RecordInvocation("web.fetch", "failure", 10*time.Millisecond)
	m.RecordInvocationError("web.fetch", tool.ErrHandlerError)
	m.SetRegisteredTools(12)
	m.SetPendingConfirmations(2)

	handler := m.Handler()
	if handler == nil {
		t.Fatal("Handler returned nil")
	}

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	body := w.Body.String()

	expectedMetrics := []string{
		"verbs_invocations_total",
		"verbs_invocation_duration_seconds",
		"verbs_invocation_errors_total",
		"verbs_registered_tools",
		"verbs_pending_confirmations",
	}

	for _, metric := range expectedMetrics {
		if !strings.Contains(body, metric) {
			t.Errorf("Metrics output missing: %s", metric)
		}
	}
}

func TestMetricsRegistry(t *testing.T) {
	m := NewMetrics()

	registry := m.Registry()
	if registry == nil {
		t.Fatal("Registry returned nil")
	}

	m.RecordInvocation("data.filter", "success", time.Second)
	m.RecordInvocationError("data.filter", tool.ErrTypeMismatch)

	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}

	metricNames := make(map[string]bool)
	for _, mf := range metricFamilies {
		metricNames[*mf.Name] = true
	}

	expectedCount := 5
	if len(metricNames) != expectedCount {
		t.Errorf("Expected %d metrics, got %d", expectedCount, len(metricNames))
	}
}

func TestRecordInvocation(t *testing.T) {
	m := NewMetrics()

	m.RecordInvocation("web.read", "success", 250*time.Millisecond)
	m.RecordInvocation("web.read", "success", 350*time.Millisecond)

	metricFamilies, _ := m.registry.Gather()
	for _, mf := range metricFamilies {
		switch *mf.Name {
		case "verbs_invocations_total":
			if len(mf.Metric) == 0 {
				t.Fatal("No invocation samples recorded")
			}
			if *mf.Metric[0].Counter.Value != 2 {
				t.Errorf("Expected counter 2, got %f", *mf.Metric[0].Counter.Value)
			}
		case "verbs_invocation_duration_seconds":
			if len(mf.Metric) == 0 {
				t.Fatal("No duration samples recorded")
			}
			if *mf.Metric[0].Histogram.SampleCount != 2 {
				t.Errorf("Expected 2 observations, got %d", *mf.Metric[0].Histogram.SampleCount)
			}
		}
	}
}

func TestRecordInvocationError(t *testing.T) {
	m := NewMetrics()

	m.RecordInvocationError("communication.email.send", tool.ErrPermissionDenied)

	metricFamilies, _ := m.registry.Gather()
	found := false
	for _, mf := range metricFamilies {
		if *mf.Name != "verbs_invocation_errors_total" {
			continue
		}
		found = true
		if len(mf.Metric) == 0 {
			t.Fatal("No error samples recorded")
		}
		for _, label := range mf.Metric[0].Label {
			if *label.Name == "error_code" && *label.Value != "PERMISSION_DENIED" {
				t.Errorf("Expected error_code PERMISSION_DENIED, got %s", *label.Value)
			}
		}
	}
	if !found {
		t.Error("verbs_invocation_errors_total metric not found")
	}
}

func TestGauges(t *testing.T) {
	m := NewMetrics()

	m.SetRegisteredTools(7)
	m.SetPendingConfirmations(3)

	metricFamilies, _ := m.registry.Gather()
	for _, mf := range metricFamilies {
		switch *mf.Name {
		case "verbs_registered_tools":
			if len(mf.Metric) > 0 && *mf.Metric[0].Gauge.Value != 7 {
				t.Errorf("Expected value 7, got %f", *mf.Metric[0].Gauge.Value)
			}
		case "verbs_pending_confirmations":
			if len(mf.Metric) > 0 && *mf.Metric[0].Gauge.Value != 3 {
				t.Errorf("Expected value 3, got %f", *mf.Metric[0].Gauge.Value)
			}
		}
	}
}
