package nistvalidator

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector(t *testing.T) {
	m := NewMetrics()
	m.RecordValidation()
	m.RecordValidated()
	m.RecordRemoteCall("IZ_VXU_Z22", 10*time.Millisecond, 2)
	m.RecordSeverity(SeverityWarn)
	m.RecordSeverity(SeverityWarn)

	c := NewCollector(m)

	// 1 validations + 3 outcomes + 1 remote calls + 3 timing + 2 cache
	// + 3 severities + 1 suppressed + 2 per resource
	if n := testutil.CollectAndCount(c); n != 16 {
		t.Errorf("CollectAndCount() = %d; want 16", n)
	}

	expected := `
# HELP nist_validator_records_total Surfaced records by severity.
# TYPE nist_validator_records_total counter
nist_validator_records_total{severity="ERROR"} 0
nist_validator_records_total{severity="INFO"} 0
nist_validator_records_total{severity="WARN"} 2
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(expected), "nist_validator_records_total"); err != nil {
		t.Errorf("CollectAndCompare() error = %v", err)
	}
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics()
	m.RecordValidation()
	m.RecordUnresolved()

	srv := httptest.NewServer(MetricsHandler(m))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("ReadAll error = %v", err)
	}

	for _, want := range []string{
		"nist_validator_validations_total 1",
		`nist_validator_outcomes_total{outcome="unresolved"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
