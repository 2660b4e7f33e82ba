// Package engine provides the validation orchestrator: it resolves the
// profile of a message, calls the remote validation service and turns the
// returned assertions into reportable records.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	nv "github.com/gofhir/nistvalidator"
	"github.com/gofhir/nistvalidator/cache"
	"github.com/gofhir/nistvalidator/nist"
	"github.com/gofhir/nistvalidator/pkg/hl7"
	"github.com/gofhir/nistvalidator/pkg/logger"
	"github.com/gofhir/nistvalidator/pkg/profile"
	"github.com/gofhir/nistvalidator/pkg/suppress"
	"github.com/gofhir/nistvalidator/worker"
)

// Remote is the remote validation service.
// *nist.Client implements it.
type Remote interface {
	Validate(ctx context.Context, message, oid string) (*nist.Report, error)
}

// Validator is the validation orchestrator.
// It is safe for concurrent use once configured.
type Validator struct {
	// Configuration
	options  *nv.Options
	resolver *profile.Resolver
	filter   *suppress.Set

	// Remote service, created on first use unless set by the caller
	remote     Remote
	remoteOnce sync.Once

	// Reports by message and OID; nil when caching is off
	reports *cache.Cache[string, *nist.Report]

	metrics *nv.Metrics
	log     *logger.Logger

	// Batch validation
	batch     *worker.BatchValidator
	batchOnce sync.Once
}

// New creates a new Validator with the given options.
// It fails only when a suppression expression does not compile.
func New(ctx context.Context, opts ...nv.Option) (*Validator, error) {
	options := nv.DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	filter, err := suppress.Compile(options.Suppressions)
	if err != nil {
		return nil, fmt.Errorf("engine.New: %w", err)
	}

	v := &Validator{
		options:  options,
		resolver: profile.NewResolver(profile.WithOIDs(options.ProfileOIDs)),
		filter:   filter,
		metrics:  nv.NewMetrics(),
		log:      logger.Default().With("component", "engine"),
	}

	if options.CacheSize > 0 {
		v.reports = cache.New[string, *nist.Report](options.CacheSize, cache.WithTTL(options.CacheTTL))
	}

	return v, nil
}

// SetRemote sets the remote validation service.
// It must be called before the first validation.
func (v *Validator) SetRemote(remote Remote) {
	v.remote = remote
}

// SetLogger sets the logger used by the validator.
func (v *Validator) SetLogger(l *logger.Logger) {
	if l != nil {
		v.log = l
	}
}

// client returns the remote service, creating a SOAP client for
// Options.ServiceURL the first time if none was set.
func (v *Validator) client() Remote {
	v.remoteOnce.Do(func() {
		if v.remote == nil {
			v.remote = nist.NewClient(v.options.ServiceURL, nist.WithTimeout(v.options.Timeout))
			v.log.Debug("created service client for %s", v.options.ServiceURL)
		}
	})
	return v.remote
}

// Records maps assertions to reportable records, in order.
// Assertions whose result is not "error" are accepted and skipped.
func (v *Validator) Records(assertions []nist.Assertion) []nv.Record {
	records := make([]nv.Record, 0, len(assertions))
	for _, a := range assertions {
		severity := nv.SeverityFromResult(a.Result)
		if severity == nv.SeverityAccept {
			continue
		}
		records = append(records, nv.NewRecord(severity, a.Description, a.Type, a.Path))
	}
	return records
}

// Report builds the records for assertions returned for message. When no
// profile applies to message the result is the single unrecognized-message
// record.
func (v *Validator) Report(message string, assertions []nist.Assertion) []nv.Record {
	if _, ok := v.resolver.ResolveMessage(message); !ok {
		return []nv.Record{nv.UnrecognizedRecord()}
	}
	return v.Records(assertions)
}

// Validate resolves the profile of message and returns the raw report of
// the service. It returns ErrUnresolvedProfile when no profile applies.
func (v *Validator) Validate(ctx context.Context, message string) (*nist.Report, error) {
	if err := v.check(message); err != nil {
		return nil, err
	}

	resource, ok := v.resolver.ResolveMessage(message)
	if !ok {
		return nil, fmt.Errorf("engine.Validate: %w", nv.ErrUnresolvedProfile)
	}
	v.log.Debug("resolved profile %s", resource)

	return v.ValidateWith(ctx, message, resource)
}

// ValidateWith validates message against resource and returns the raw
// report of the service. Reports are served from the cache when enabled;
// every call returns its own copy.
func (v *Validator) ValidateWith(ctx context.Context, message string, resource profile.Resource) (*nist.Report, error) {
	if err := v.check(message); err != nil {
		return nil, err
	}
	if resource.OID == "" {
		return nil, fmt.Errorf("engine.ValidateWith: resource %q has no OID: %w", resource.Name, nv.ErrUnresolvedProfile)
	}

	var key string
	if v.reports != nil {
		key = cache.Key(message, resource.OID)
		if report, ok := v.reports.Get(key); ok {
			v.metrics.RecordCacheHit()
			return report.Clone(), nil
		}
		v.metrics.RecordCacheMiss()
	}

	start := time.Now()
	report, err := v.client().Validate(ctx, message, resource.OID)
	if err != nil {
		v.log.With("resource", resource.Name).Warn("remote validation failed: %v", err)
		return nil, fmt.Errorf("engine.ValidateWith: validate with %s: %w", resource.Name, err)
	}
	v.metrics.RecordRemoteCall(resource.Name, time.Since(start), report.Len())

	if v.reports != nil {
		v.reports.Set(key, report.Clone())
	}
	return report, nil
}

func (v *Validator) check(message string) error {
	if !v.options.Enabled {
		return nv.ErrDisabled
	}
	if strings.TrimSpace(message) == "" {
		return nv.ErrEmptyMessage
	}
	return nil
}

// Evaluate validates message and returns the aggregate report. A message no
// profile applies to yields the unrecognized-message record; a disabled
// validator yields a report with no records. When the service fails the
// error is returned and also set on the report.
func (v *Validator) Evaluate(ctx context.Context, message string) (*nv.Report, error) {
	v.metrics.RecordValidation()

	report := &nv.Report{Records: []nv.Record{}}
	if !v.options.Enabled {
		return report, nil
	}

	if header, ok := hl7.ReadHeader(message); ok {
		report.ControlID = header.ControlID
	}

	resource, ok := v.resolver.ResolveMessage(message)
	if !ok {
		v.log.Debug("no profile for message %q", report.ControlID)
		v.metrics.RecordUnresolved()
		v.metrics.RecordSeverity(nv.SeverityWarn)
		report.Records = []nv.Record{nv.UnrecognizedRecord()}
		return report, nil
	}
	v.log.Debug("resolved profile %s for message %q", resource, report.ControlID)

	report.Resource = resource.Name
	report.ResourceOID = resource.OID

	raw, err := v.ValidateWith(ctx, message, resource)
	if err != nil {
		v.metrics.RecordFault()
		report.Err = err
		return report, err
	}

	records := v.Records(raw.Assertions)
	kept, removed, err := v.filter.Filter(records)
	if err != nil {
		v.log.Warn("suppression failed: %v", err)
	}
	if removed > 0 {
		v.metrics.RecordSuppressed(removed)
	}
	for _, r := range kept {
		v.metrics.RecordSeverity(r.Severity)
	}
	v.metrics.RecordValidated()

	report.Validated = true
	report.Records = kept
	report.Suppressed = removed
	return report, nil
}

// ValidateAndReport validates message and returns its reportable records.
// A disabled validator returns an empty list. A service failure is returned
// as an error, never as an empty list.
func (v *Validator) ValidateAndReport(ctx context.Context, message string) ([]nv.Record, error) {
	report, err := v.Evaluate(ctx, message)
	if err != nil {
		return nil, err
	}
	return report.Records, nil
}

// ValidateBatch evaluates jobs in parallel using Options.WorkerCount
// workers. Results keep the order of jobs.
func (v *Validator) ValidateBatch(ctx context.Context, jobs []worker.Job) *worker.BatchResult {
	v.batchOnce.Do(func() {
		v.batch = worker.NewBatchValidator(v.Evaluate, v.options.WorkerCount)
	})
	return v.batch.ValidateBatch(ctx, jobs)
}

// Metrics returns the validator's metrics.
func (v *Validator) Metrics() *nv.Metrics {
	return v.metrics
}

// Options returns the validator's options.
func (v *Validator) Options() *nv.Options {
	return v.options
}

// Resolver returns the profile resolver, with configured OIDs applied.
func (v *Validator) Resolver() *profile.Resolver {
	return v.resolver
}

// Close releases resources held by the validator.
func (v *Validator) Close() error {
	if v.reports != nil {
		v.reports.Clear()
	}
	return nil
}
