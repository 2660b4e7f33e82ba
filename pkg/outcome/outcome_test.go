package outcome

import (
	"encoding/json"
	"errors"
	"testing"

	nv "github.com/gofhir/nistvalidator"
)

func TestFromRecord(t *testing.T) {
	issue := FromRecord(nv.NewRecord(nv.SeverityWarn, "Name missing", "Usage", "PID[1]-5[1].1"))

	if issue.Severity != SeverityWarning {
		t.Errorf("Severity = %q; want %q", issue.Severity, SeverityWarning)
	}
	if issue.Code != CodeInvalid {
		t.Errorf("Code = %q; want %q", issue.Code, CodeInvalid)
	}
	if issue.Diagnostics != "PID[1]-5[1].1" {
		t.Errorf("Diagnostics = %q", issue.Diagnostics)
	}
	if len(issue.Location) != 1 || issue.Location[0] != "PID[1]-5[1].1" {
		t.Errorf("Location = %v", issue.Location)
	}
	if issue.Details == nil || issue.Details.Text == nil || *issue.Details.Text != "Name missing" {
		t.Fatalf("Details = %+v", issue.Details)
	}
	if len(issue.Details.Coding) != 2 {
		t.Fatalf("len(Coding) = %d; want 2", len(issue.Details.Coding))
	}
	hl7 := issue.Details.Coding[0]
	if *hl7.System != SystemHL70357 || *hl7.Code != "0" {
		t.Errorf("HL7 coding = %s|%s", *hl7.System, *hl7.Code)
	}
	app := issue.Details.Coding[1]
	if app.System != nil || *app.Code != "Usage" || *app.Display != "Usage" {
		t.Errorf("application coding = %+v", app)
	}
}

func TestFromRecordSeverity(t *testing.T) {
	tests := []struct {
		severity nv.Severity
		want     string
	}{
		{nv.SeverityError, SeverityError},
		{nv.SeverityWarn, SeverityWarning},
		{nv.SeverityInfo, SeverityInformation},
		{nv.SeverityAccept, SeverityInformation},
	}
	for _, tt := range tests {
		t.Run(string(tt.severity), func(t *testing.T) {
			got := FromRecord(nv.NewRecord(tt.severity, "m", "T", "MSH-9")).Severity
			if got != tt.want {
				t.Errorf("severity(%s) = %q; want %q", tt.severity, got, tt.want)
			}
		})
	}
}

func TestFromRecordUnrecognized(t *testing.T) {
	issue := FromRecord(nv.UnrecognizedRecord())
	if issue.Code != CodeNotSupported {
		t.Errorf("Code = %q; want %q", issue.Code, CodeNotSupported)
	}
	if issue.Location != nil {
		t.Errorf("Location = %v; want nil", issue.Location)
	}
	if len(issue.Details.Coding) != 1 {
		t.Errorf("len(Coding) = %d; want 1", len(issue.Details.Coding))
	}
}

func TestFromRecordsEmpty(t *testing.T) {
	o := FromRecords(nil)
	if o.ResourceType != "OperationOutcome" {
		t.Errorf("ResourceType = %q", o.ResourceType)
	}
	if len(o.Issue) != 1 || o.Issue[0].Severity != SeverityInformation {
		t.Errorf("Issue = %+v; want one informational issue", o.Issue)
	}
	if o.HasErrors() {
		t.Error("HasErrors() = true")
	}
}

func TestFromReport(t *testing.T) {
	report := &nv.Report{
		JobID: "job-1",
		Records: []nv.Record{
			nv.NewRecord(nv.SeverityError, "bad", "Length", "OBX[2]-5"),
			nv.NewRecord(nv.SeverityWarn, "meh", "Usage", "PID-5"),
		},
	}
	o := FromReport(report)
	if o.ID != "job-1" {
		t.Errorf("ID = %q; want job-1", o.ID)
	}
	if len(o.Issue) != 2 {
		t.Fatalf("len(Issue) = %d; want 2", len(o.Issue))
	}
	if !o.HasErrors() {
		t.Error("HasErrors() = false")
	}

	faulted := FromReport(&nv.Report{JobID: "job-2", Err: errors.New("boom")})
	if len(faulted.Issue) != 1 || faulted.Issue[0].Severity != SeverityFatal || faulted.Issue[0].Code != CodeException {
		t.Errorf("faulted Issue = %+v", faulted.Issue)
	}
	if faulted.Issue[0].Diagnostics != "boom" {
		t.Errorf("Diagnostics = %q; want boom", faulted.Issue[0].Diagnostics)
	}

	if o := FromReport(nil); len(o.Issue) != 1 {
		t.Errorf("FromReport(nil) issues = %d; want 1", len(o.Issue))
	}
}

func TestJSON(t *testing.T) {
	data, err := FromRecords([]nv.Record{nv.NewRecord(nv.SeverityWarn, "m", "Usage", "PID-5")}).JSON()
	if err != nil {
		t.Fatalf("JSON() error = %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if doc["resourceType"] != "OperationOutcome" {
		t.Errorf("resourceType = %v", doc["resourceType"])
	}
	issues, ok := doc["issue"].([]any)
	if !ok || len(issues) != 1 {
		t.Fatalf("issue = %v", doc["issue"])
	}
	issue := issues[0].(map[string]any)
	if issue["severity"] != "warning" || issue["code"] != "invalid" {
		t.Errorf("issue = %v", issue)
	}
}
