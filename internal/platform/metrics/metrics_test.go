package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/spbe-academy/devops-academy/internal/platform/metrics"
)

func TestPassLabel(t *testing.T) {
	if got := metrics.PassLabel(true); got != "pass" {
		t.Errorf("PassLabel(true) = %q, want pass", got)
	}
	if got := metrics.PassLabel(false); got != "fail" {
		t.Errorf("PassLabel(false) = %q, want fail", got)
	}
}

func TestCounters(t *testing.T) {
	c := metrics.CertificatesIssued.WithLabelValues("metrics-test", "basic")
	before := testutil.ToFloat64(c)
	c.Inc()
	if got := testutil.ToFloat64(c); got != before+1 {
		t.Errorf("certificates counter = %v, want %v", got, before+1)
	}
}

func TestHandler(t *testing.T) {
	metrics.QuizAttempts.WithLabelValues(metrics.PassLabel(true)).Inc()

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(string(body), `academy_quiz_attempts_total{result="pass"}`) {
		t.Errorf("exposition missing quiz attempts counter:\n%s", body)
	}
}
