package nistvalidator

import (
	"strings"

	"github.com/gofhir/nistvalidator/pkg/location"
)

// Severity is the level of a reportable record.
type Severity string

const (
	// SeverityAccept marks a finding that needs no action. Accepted findings
	// are never surfaced as records.
	SeverityAccept Severity = "ACCEPT"
	// SeverityInfo marks informational feedback.
	SeverityInfo Severity = "INFO"
	// SeverityWarn marks a finding that should be reviewed.
	SeverityWarn Severity = "WARN"
	// SeverityError marks a finding that makes the message invalid.
	SeverityError Severity = "ERROR"
)

// rank orders severities from least to most severe.
func (s Severity) rank() int {
	switch s {
	case SeverityInfo:
		return 1
	case SeverityWarn:
		return 2
	case SeverityError:
		return 3
	default:
		return 0
	}
}

// AtLeast reports whether s is as severe as other.
func (s Severity) AtLeast(other Severity) bool {
	return s.rank() >= other.rank()
}

// IsProblem returns true for WARN and ERROR.
func (s Severity) IsProblem() bool {
	return s.AtLeast(SeverityWarn)
}

// String returns the severity name.
func (s Severity) String() string {
	return string(s)
}

// ParseSeverity parses a severity name, case-insensitively.
// Unknown names yield SeverityAccept and false.
func ParseSeverity(s string) (Severity, bool) {
	switch Severity(strings.ToUpper(strings.TrimSpace(s))) {
	case SeverityAccept:
		return SeverityAccept, true
	case SeverityInfo:
		return SeverityInfo, true
	case SeverityWarn:
		return SeverityWarn, true
	case SeverityError:
		return SeverityError, true
	}
	return SeverityAccept, false
}

// SeverityFromResult maps an assertion result to a record severity.
// "error" (any case) becomes WARN; every other result is accepted.
func SeverityFromResult(result string) Severity {
	if strings.EqualFold(strings.TrimSpace(result), "error") {
		return SeverityWarn
	}
	return SeverityAccept
}

// Coding system tags used in coded values.
const (
	// CodingSystemLocal tags locally defined codes, such as assertion types.
	CodingSystemLocal = "L"
	// CodingSystemHL70357 is the HL7 message error condition table.
	CodingSystemHL70357 = "HL70357"
)

// RecordSource identifies records produced from the NIST service.
const RecordSource = "NIST"

// UnrecognizedMessage is the text of the record reported for a message
// that no validation profile applies to.
const UnrecognizedMessage = "Unable to validate with NIST, unrecognized message"

// CodedValue is an HL7 CWE-style coded element.
type CodedValue struct {
	Identifier                  string `json:"identifier,omitempty"`
	Text                        string `json:"text,omitempty"`
	NameOfCodingSystem          string `json:"nameOfCodingSystem,omitempty"`
	AlternateIdentifier         string `json:"alternateIdentifier,omitempty"`
	AlternateText               string `json:"alternateText,omitempty"`
	NameOfAlternateCodingSystem string `json:"nameOfAlternateCodingSystem,omitempty"`
}

// IsZero returns true if no part of the value is set.
func (c CodedValue) IsZero() bool {
	return c == CodedValue{}
}

// Code returns the primary identifier, falling back to the alternate one.
func (c CodedValue) Code() string {
	if c.Identifier != "" {
		return c.Identifier
	}
	return c.AlternateIdentifier
}

// Record is one reportable finding about a message.
// Records are created per validation and not modified after they are returned.
type Record struct {
	// Severity of the finding.
	Severity Severity `json:"severity"`

	// ReportedMessage is the human-readable description.
	ReportedMessage string `json:"reportedMessage"`

	// ApplicationErrorCode carries the rule that fired as a local code.
	ApplicationErrorCode CodedValue `json:"applicationErrorCode,omitzero"`

	// HL7ErrorCode is the HL7 error condition.
	HL7ErrorCode CodedValue `json:"hl7ErrorCode,omitzero"`

	// DiagnosticMessage holds the raw assertion path, verbatim.
	DiagnosticMessage string `json:"diagnosticMessage,omitempty"`

	// Location is the decoded path, or nil when the path did not yield one.
	Location *location.Location `json:"location,omitempty"`

	// Source names the producer of the record.
	Source string `json:"source,omitempty"`
}

// HasLocation returns true if the record carries a decoded location.
func (r Record) HasLocation() bool {
	return r.Location != nil
}

// String returns a one-line representation of the record.
func (r Record) String() string {
	var b strings.Builder
	b.WriteString(string(r.Severity))
	b.WriteString(": ")
	b.WriteString(r.ReportedMessage)
	if code := r.ApplicationErrorCode.Code(); code != "" {
		b.WriteString(" [")
		b.WriteString(code)
		b.WriteByte(']')
	}
	if r.Location != nil {
		b.WriteString(" at ")
		b.WriteString(r.Location.String())
	} else if r.DiagnosticMessage != "" {
		b.WriteString(" at ")
		b.WriteString(r.DiagnosticMessage)
	}
	return b.String()
}

// NewRecord builds the record for one surfaced assertion. The path is kept
// verbatim as the diagnostic message.
func NewRecord(severity Severity, description, assertionType, path string) Record {
	return Record{
		Severity:        severity,
		ReportedMessage: description,
		ApplicationErrorCode: CodedValue{
			AlternateIdentifier:         assertionType,
			AlternateText:               assertionType,
			NameOfAlternateCodingSystem: CodingSystemLocal,
		},
		HL7ErrorCode:      CodedValue{Identifier: "0"},
		DiagnosticMessage: path,
		Location:          location.Parse(strings.TrimSpace(path)),
		Source:            RecordSource,
	}
}

// UnrecognizedRecord returns the record reported for a message that cannot
// be validated because no profile applies.
func UnrecognizedRecord() Record {
	return Record{
		Severity:        SeverityWarn,
		ReportedMessage: UnrecognizedMessage,
		HL7ErrorCode:    CodedValue{Identifier: "0"},
		Source:          RecordSource,
	}
}
