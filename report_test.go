package nistvalidator

import (
	"errors"
	"testing"
)

func TestReportCounts(t *testing.T) {
	r := &Report{
		Records: []Record{
			{Severity: SeverityWarn},
			{Severity: SeverityWarn},
			{Severity: SeverityError},
			{Severity: SeverityInfo},
		},
	}

	if got := r.WarnCount(); got != 2 {
		t.Errorf("WarnCount() = %d, want 2", got)
	}
	if got := r.ErrorCount(); got != 1 {
		t.Errorf("ErrorCount() = %d, want 1", got)
	}
	if got := r.Count(SeverityInfo); got != 1 {
		t.Errorf("Count(INFO) = %d, want 1", got)
	}
	if !r.HasFindings() {
		t.Error("HasFindings() = false")
	}
	if got := r.MaxSeverity(); got != SeverityError {
		t.Errorf("MaxSeverity() = %s, want ERROR", got)
	}
}

func TestReportEmpty(t *testing.T) {
	r := &Report{Validated: true}
	if r.HasFindings() {
		t.Error("HasFindings() = true for empty report")
	}
	if r.Failed() {
		t.Error("Failed() = true for empty report")
	}
	if got := r.MaxSeverity(); got != SeverityAccept {
		t.Errorf("MaxSeverity() = %s, want ACCEPT", got)
	}
	if r.Error() != "" {
		t.Errorf("Error() = %q, want empty", r.Error())
	}
}

func TestReportInfoOnly(t *testing.T) {
	r := &Report{Records: []Record{{Severity: SeverityInfo}}}
	if r.HasFindings() {
		t.Error("INFO records should not count as findings")
	}
}

func TestReportFailedOnError(t *testing.T) {
	r := &Report{Err: errors.New("boom")}
	if !r.Failed() {
		t.Error("Failed() = false with Err set")
	}
	if r.Error() != "boom" {
		t.Errorf("Error() = %q, want boom", r.Error())
	}
}
