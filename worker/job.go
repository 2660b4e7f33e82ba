package worker

import (
	"time"

	nv "github.com/gofhir/nistvalidator"
)

// Job is one message to validate.
type Job struct {
	// ID is a unique identifier for this job. A random one is assigned
	// when empty.
	ID string

	// Source names where the message came from, such as a file path.
	Source string

	// Message is the HL7 v2 message text.
	Message string
}

// JobResult is the outcome of one job.
type JobResult struct {
	// ID matches the Job.ID that produced this result.
	ID string

	// Source is copied from the job.
	Source string

	// Report is the validation report. It is set even when Err is.
	Report *nv.Report

	// Err is the service fault, if any.
	Err error

	// Duration is the time taken to validate.
	Duration time.Duration
}

// Failed returns true if the job faulted or its report has findings.
func (r *JobResult) Failed() bool {
	return r.Err != nil || (r.Report != nil && r.Report.HasFindings())
}

// BatchResult aggregates results from multiple jobs.
type BatchResult struct {
	// Results are in job order.
	Results []*JobResult

	// TotalJobs is the number of jobs submitted.
	TotalJobs int

	// CompletedJobs is the number of jobs completed (including faults).
	CompletedJobs int

	// FailedJobs is the number of jobs that faulted.
	FailedJobs int

	// TotalDuration is the sum of job durations.
	TotalDuration time.Duration
}

// HasFindings returns true if any report has a WARN or ERROR record.
func (br *BatchResult) HasFindings() bool {
	for _, r := range br.Results {
		if r.Report != nil && r.Report.HasFindings() {
			return true
		}
	}
	return false
}

// Failed returns true if any job faulted or has findings.
func (br *BatchResult) Failed() bool {
	for _, r := range br.Results {
		if r.Failed() {
			return true
		}
	}
	return false
}

// RecordCount returns the total number of records across all reports.
func (br *BatchResult) RecordCount() int {
	count := 0
	for _, r := range br.Results {
		if r.Report != nil {
			count += len(r.Report.Records)
		}
	}
	return count
}

// Reports returns the reports in job order.
func (br *BatchResult) Reports() []*nv.Report {
	reports := make([]*nv.Report, 0, len(br.Results))
	for _, r := range br.Results {
		if r.Report != nil {
			reports = append(reports, r.Report)
		}
	}
	return reports
}
