package nistvalidator

import (
	"runtime"
	"time"
)

// DefaultServiceURL is the public NIST HL7 v2 message validation endpoint.
const DefaultServiceURL = "https://hl7v2.ws.nist.gov/hl7v2ws//services/soap/MessageValidationV2"

// Option configures the Validator.
type Option func(*Options)

// Options holds all configuration for the Validator.
type Options struct {
	// Enabled switches validation on. A disabled validator reports nothing.
	Enabled bool

	// Remote service
	ServiceURL string
	Timeout    time.Duration

	// Report cache; a size of 0 disables caching
	CacheSize int
	CacheTTL  time.Duration

	// Batch validation
	WorkerCount int

	// Suppressions are FHIRPath expressions evaluated against each record;
	// a record is dropped when any expression is true.
	Suppressions []string

	// ProfileOIDs overrides profile OIDs by resource name.
	ProfileOIDs map[string]string
}

// DefaultOptions returns the default configuration.
func DefaultOptions() *Options {
	return &Options{
		Enabled: true,

		ServiceURL: DefaultServiceURL,
		Timeout:    30 * time.Second,

		CacheSize: 256,
		CacheTTL:  10 * time.Minute,

		WorkerCount: runtime.NumCPU(),
	}
}

// WithEnabled switches validation on or off.
func WithEnabled(enable bool) Option {
	return func(o *Options) {
		o.Enabled = enable
	}
}

// WithServiceURL sets the SOAP endpoint of the validation service.
func WithServiceURL(url string) Option {
	return func(o *Options) {
		if url != "" {
			o.ServiceURL = url
		}
	}
}

// WithTimeout sets the timeout of one remote validation call.
// Use 0 for no timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		if timeout >= 0 {
			o.Timeout = timeout
		}
	}
}

// WithCacheSize sets the number of remote reports kept.
// Use 0 to disable the cache.
func WithCacheSize(size int) Option {
	return func(o *Options) {
		if size >= 0 {
			o.CacheSize = size
		}
	}
}

// WithCacheTTL sets how long a cached report stays valid.
// Use 0 for no expiry.
func WithCacheTTL(ttl time.Duration) Option {
	return func(o *Options) {
		if ttl >= 0 {
			o.CacheTTL = ttl
		}
	}
}

// WithWorkerCount sets the number of workers for batch validation.
// Defaults to runtime.NumCPU().
func WithWorkerCount(count int) Option {
	return func(o *Options) {
		if count > 0 {
			o.WorkerCount = count
		}
	}
}

// WithSuppressions adds record suppression expressions.
func WithSuppressions(exprs ...string) Option {
	return func(o *Options) {
		o.Suppressions = append(o.Suppressions, exprs...)
	}
}

// WithOIDs overrides profile OIDs by resource name.
func WithOIDs(oids map[string]string) Option {
	return func(o *Options) {
		if o.ProfileOIDs == nil {
			o.ProfileOIDs = make(map[string]string, len(oids))
		}
		for name, oid := range oids {
			o.ProfileOIDs[name] = oid
		}
	}
}

// --- Presets ---

// NoCacheOptions returns options that always call the service.
func NoCacheOptions() []Option {
	return []Option{
		WithCacheSize(0),
	}
}

// DisabledOptions returns options for a validator that reports nothing.
func DisabledOptions() []Option {
	return []Option{
		WithEnabled(false),
	}
}
