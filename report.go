package nistvalidator

// Report aggregates the outcome of validating one message.
type Report struct {
	// JobID correlates batch results.
	JobID string `json:"jobId,omitempty"`

	// Source names the input, such as a file path.
	Source string `json:"source,omitempty"`

	// ControlID is MSH-10 of the message, when present.
	ControlID string `json:"controlId,omitempty"`

	// Resource is the symbolic name of the profile used.
	// Empty when the message was not validated.
	Resource string `json:"resource,omitempty"`

	// ResourceOID is the profile OID sent to the service.
	ResourceOID string `json:"resourceOid,omitempty"`

	// Validated is true if the message was checked by the service.
	// False means no profile applied or the validator is disabled.
	Validated bool `json:"validated"`

	// Records are the surfaced findings, in service order.
	Records []Record `json:"records"`

	// Suppressed counts records removed by suppression rules.
	Suppressed int `json:"suppressed,omitempty"`

	// Err is set when validation could not complete.
	Err error `json:"-"`
}

// Error returns the error message, or "" if validation completed.
func (r *Report) Error() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Count returns the number of records with the given severity.
func (r *Report) Count(severity Severity) int {
	n := 0
	for _, rec := range r.Records {
		if rec.Severity == severity {
			n++
		}
	}
	return n
}

// WarnCount returns the number of WARN records.
func (r *Report) WarnCount() int {
	return r.Count(SeverityWarn)
}

// ErrorCount returns the number of ERROR records.
func (r *Report) ErrorCount() int {
	return r.Count(SeverityError)
}

// HasFindings returns true if any record is WARN or worse.
func (r *Report) HasFindings() bool {
	for _, rec := range r.Records {
		if rec.Severity.IsProblem() {
			return true
		}
	}
	return false
}

// Failed returns true if validation faulted or produced findings.
func (r *Report) Failed() bool {
	return r.Err != nil || r.HasFindings()
}

// MaxSeverity returns the most severe record severity, or ACCEPT when
// there are no records.
func (r *Report) MaxSeverity() Severity {
	worst := SeverityAccept
	for _, rec := range r.Records {
		if rec.Severity.rank() > worst.rank() {
			worst = rec.Severity
		}
	}
	return worst
}
