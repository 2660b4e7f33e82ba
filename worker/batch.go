package worker

import (
	"context"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	nv "github.com/gofhir/nistvalidator"
)

// ValidateFunc validates one message.
type ValidateFunc func(ctx context.Context, message string) (*nv.Report, error)

// BatchValidator validates jobs with a bounded number of goroutines.
type BatchValidator struct {
	validate ValidateFunc
	workers  int
}

// NewBatchValidator creates a new batch validator.
// If workers <= 0, it defaults to runtime.NumCPU().
func NewBatchValidator(validate ValidateFunc, workers int) *BatchValidator {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &BatchValidator{
		validate: validate,
		workers:  workers,
	}
}

// Workers returns the goroutine limit.
func (bv *BatchValidator) Workers() int {
	return bv.workers
}

// ValidateBatch validates jobs in parallel. Results keep the order of jobs.
// Jobs not started before ctx is done are reported with ctx's error.
func (bv *BatchValidator) ValidateBatch(ctx context.Context, jobs []Job) *BatchResult {
	if len(jobs) == 0 {
		return &BatchResult{Results: make([]*JobResult, 0)}
	}

	workers := bv.workers
	if workers > len(jobs) {
		workers = len(jobs)
	}

	p := pool.NewWithResults[indexedResult]().WithMaxGoroutines(workers)
	for i, job := range jobs {
		if job.ID == "" {
			job.ID = uuid.NewString()
		}
		p.Go(func() indexedResult {
			return indexedResult{index: i, result: bv.run(ctx, job)}
		})
	}
	indexed := p.Wait()

	sort.Slice(indexed, func(a, b int) bool {
		return indexed[a].index < indexed[b].index
	})

	br := &BatchResult{
		Results:   make([]*JobResult, len(indexed)),
		TotalJobs: len(jobs),
	}
	for i, ir := range indexed {
		br.Results[i] = ir.result
		br.CompletedJobs++
		br.TotalDuration += ir.result.Duration
		if ir.result.Err != nil {
			br.FailedJobs++
		}
	}
	return br
}

func (bv *BatchValidator) run(ctx context.Context, job Job) *JobResult {
	result := &JobResult{ID: job.ID, Source: job.Source}
	if err := ctx.Err(); err != nil {
		result.Err = err
		return result
	}

	start := time.Now()
	report, err := bv.validate(ctx, job.Message)
	result.Duration = time.Since(start)
	result.Err = err
	if report != nil {
		report.JobID = job.ID
		report.Source = job.Source
		result.Report = report
	}
	return result
}

type indexedResult struct {
	index  int
	result *JobResult
}

// ValidateMessages is a convenience function for batch validation of
// message texts with runtime.NumCPU() workers.
func ValidateMessages(ctx context.Context, validate ValidateFunc, messages []string) *BatchResult {
	jobs := make([]Job, len(messages))
	for i, m := range messages {
		jobs[i] = Job{Message: m}
	}
	return NewBatchValidator(validate, runtime.NumCPU()).ValidateBatch(ctx, jobs)
}
