// Package outcome converts reportable records into a FHIR R4
// OperationOutcome document.
package outcome

import (
	"encoding/json"

	"github.com/gofhir/fhir/r4"

	nv "github.com/gofhir/nistvalidator"
)

// Issue severities (OperationOutcome.issue.severity).
const (
	SeverityFatal       = "fatal"
	SeverityError       = "error"
	SeverityWarning     = "warning"
	SeverityInformation = "information"
)

// Issue types (OperationOutcome.issue.code).
const (
	CodeInvalid       = "invalid"
	CodeNotSupported  = "not-supported"
	CodeException     = "exception"
	CodeInformational = "informational"
)

// SystemHL70357 is the FHIR URI of the HL7 v2 error condition table.
const SystemHL70357 = "http://terminology.hl7.org/CodeSystem/v2-0357"

// OperationOutcome is the subset of the FHIR resource this package emits.
type OperationOutcome struct {
	ResourceType string  `json:"resourceType"`
	ID           string  `json:"id,omitempty"`
	Issue        []Issue `json:"issue"`
}

// Issue is one OperationOutcome.issue entry.
type Issue struct {
	Severity    string              `json:"severity"`
	Code        string              `json:"code"`
	Details     *r4.CodeableConcept `json:"details,omitempty"`
	Diagnostics string              `json:"diagnostics,omitempty"`
	Location    []string            `json:"location,omitempty"`
}

// IsError returns true for error and fatal issues.
func (i Issue) IsError() bool {
	return i.Severity == SeverityError || i.Severity == SeverityFatal
}

// New returns an empty OperationOutcome.
func New() *OperationOutcome {
	return &OperationOutcome{ResourceType: "OperationOutcome", Issue: []Issue{}}
}

// FromRecords converts records to an OperationOutcome, one issue per
// record in order. An empty list yields a single informational issue, as
// FHIR requires at least one.
func FromRecords(records []nv.Record) *OperationOutcome {
	o := New()
	for _, r := range records {
		o.Issue = append(o.Issue, FromRecord(r))
	}
	if len(o.Issue) == 0 {
		o.Issue = append(o.Issue, Issue{
			Severity:    SeverityInformation,
			Code:        CodeInformational,
			Diagnostics: "No issues detected",
		})
	}
	return o
}

// FromReport converts a report. The job ID becomes the resource id and a
// fault is reported as a fatal exception issue.
func FromReport(report *nv.Report) *OperationOutcome {
	if report == nil {
		return FromRecords(nil)
	}
	if report.Err != nil {
		o := New()
		o.ID = report.JobID
		o.Issue = append(o.Issue, Issue{
			Severity:    SeverityFatal,
			Code:        CodeException,
			Diagnostics: report.Err.Error(),
		})
		return o
	}
	o := FromRecords(report.Records)
	o.ID = report.JobID
	return o
}

// FromRecord converts one record.
func FromRecord(r nv.Record) Issue {
	issue := Issue{
		Severity:    severity(r.Severity),
		Code:        CodeInvalid,
		Diagnostics: r.DiagnosticMessage,
	}
	if r.ReportedMessage == nv.UnrecognizedMessage {
		issue.Code = CodeNotSupported
	}
	if r.Location != nil {
		issue.Location = []string{r.Location.String()}
	}

	details := &r4.CodeableConcept{}
	if r.ReportedMessage != "" {
		details.Text = ptr(r.ReportedMessage)
	}
	if code := r.HL7ErrorCode.Code(); code != "" {
		details.Coding = append(details.Coding, r4.Coding{
			System: ptr(SystemHL70357),
			Code:   ptr(code),
		})
	}
	if code := r.ApplicationErrorCode.Code(); code != "" {
		c := r4.Coding{Code: ptr(code)}
		if text := r.ApplicationErrorCode.AlternateText; text != "" {
			c.Display = ptr(text)
		}
		details.Coding = append(details.Coding, c)
	}
	if details.Text != nil || len(details.Coding) > 0 {
		issue.Details = details
	}
	return issue
}

func severity(s nv.Severity) string {
	switch s {
	case nv.SeverityError:
		return SeverityError
	case nv.SeverityWarn:
		return SeverityWarning
	default:
		return SeverityInformation
	}
}

// HasErrors returns true if any issue is an error or fatal.
func (o *OperationOutcome) HasErrors() bool {
	for _, i := range o.Issue {
		if i.IsError() {
			return true
		}
	}
	return false
}

// JSON returns the indented JSON document.
func (o *OperationOutcome) JSON() ([]byte, error) {
	return json.MarshalIndent(o, "", "  ")
}

func ptr(s string) *string {
	return &s
}
