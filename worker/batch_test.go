package worker

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nv "github.com/gofhir/nistvalidator"
)

// fakeValidate returns a report whose ControlID echoes the message.
// Messages starting with "fail" fault; messages starting with "warn"
// carry one WARN record.
func fakeValidate(delay time.Duration, calls *atomic.Int32) ValidateFunc {
	return func(ctx context.Context, message string) (*nv.Report, error) {
		if calls != nil {
			calls.Add(1)
		}
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		report := &nv.Report{ControlID: message, Records: []nv.Record{}}
		switch {
		case len(message) >= 4 && message[:4] == "fail":
			report.Err = nv.ErrServiceUnavailable
			return report, nv.ErrServiceUnavailable
		case len(message) >= 4 && message[:4] == "warn":
			report.Validated = true
			report.Records = append(report.Records, nv.NewRecord(nv.SeverityWarn, "x", "Usage", "PID-5"))
		default:
			report.Validated = true
		}
		return report, nil
	}
}

func TestNewBatchValidatorDefaultWorkers(t *testing.T) {
	bv := NewBatchValidator(fakeValidate(0, nil), 0)
	assert.Positive(t, bv.Workers())

	bv = NewBatchValidator(fakeValidate(0, nil), 3)
	assert.Equal(t, 3, bv.Workers())
}

func TestValidateBatchEmpty(t *testing.T) {
	br := NewBatchValidator(fakeValidate(0, nil), 2).ValidateBatch(context.Background(), nil)
	require.NotNil(t, br)
	assert.Empty(t, br.Results)
	assert.Equal(t, 0, br.TotalJobs)
	assert.False(t, br.Failed())
}

func TestValidateBatchKeepsOrder(t *testing.T) {
	var calls atomic.Int32
	jobs := make([]Job, 50)
	for i := range jobs {
		jobs[i] = Job{Source: "msg-" + strconv.Itoa(i), Message: strconv.Itoa(i)}
	}

	br := NewBatchValidator(fakeValidate(time.Millisecond, &calls), 8).ValidateBatch(context.Background(), jobs)

	require.Len(t, br.Results, len(jobs))
	assert.Equal(t, int32(len(jobs)), calls.Load())
	assert.Equal(t, len(jobs), br.TotalJobs)
	assert.Equal(t, len(jobs), br.CompletedJobs)
	assert.Equal(t, 0, br.FailedJobs)
	for i, r := range br.Results {
		assert.Equal(t, strconv.Itoa(i), r.Report.ControlID)
		assert.Equal(t, jobs[i].Source, r.Source)
		assert.Equal(t, jobs[i].Source, r.Report.Source)
		assert.NotEmpty(t, r.ID)
		assert.Equal(t, r.ID, r.Report.JobID)
	}
}

func TestValidateBatchAssignsIDs(t *testing.T) {
	jobs := []Job{{ID: "fixed", Message: "a"}, {Message: "b"}, {Message: "c"}}
	br := NewBatchValidator(fakeValidate(0, nil), 2).ValidateBatch(context.Background(), jobs)

	require.Len(t, br.Results, 3)
	assert.Equal(t, "fixed", br.Results[0].ID)
	assert.Len(t, br.Results[1].ID, 36)
	assert.NotEqual(t, br.Results[1].ID, br.Results[2].ID)
}

func TestValidateBatchFaultsAndFindings(t *testing.T) {
	jobs := []Job{{Message: "ok"}, {Message: "fail-1"}, {Message: "warn-1"}, {Message: "ok-2"}}
	br := NewBatchValidator(fakeValidate(0, nil), 4).ValidateBatch(context.Background(), jobs)

	require.Len(t, br.Results, 4)
	assert.Equal(t, 1, br.FailedJobs)
	assert.Equal(t, 4, br.CompletedJobs)
	assert.True(t, br.HasFindings())
	assert.True(t, br.Failed())
	assert.Equal(t, 1, br.RecordCount())
	assert.Len(t, br.Reports(), 4)

	assert.False(t, br.Results[0].Failed())
	assert.True(t, errors.Is(br.Results[1].Err, nv.ErrServiceUnavailable))
	assert.True(t, br.Results[1].Failed())
	assert.True(t, br.Results[2].Failed())
}

func TestValidateBatchCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	jobs := []Job{{Message: "a"}, {Message: "b"}, {Message: "c"}}
	br := NewBatchValidator(fakeValidate(0, &calls), 2).ValidateBatch(ctx, jobs)

	require.Len(t, br.Results, 3)
	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, 3, br.FailedJobs)
	for _, r := range br.Results {
		assert.ErrorIs(t, r.Err, context.Canceled)
		assert.Nil(t, r.Report)
	}
}

func TestValidateMessages(t *testing.T) {
	br := ValidateMessages(context.Background(), fakeValidate(0, nil), []string{"x", "y"})
	require.Len(t, br.Results, 2)
	assert.Equal(t, "x", br.Results[0].Report.ControlID)
	assert.Equal(t, "y", br.Results[1].Report.ControlID)
}
