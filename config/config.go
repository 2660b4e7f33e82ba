// Package config loads validator settings from a YAML file.
//
//	enabled: true
//	service:
//	  url: https://hl7v2.ws.nist.gov/hl7v2ws//services/soap/MessageValidationV2
//	  timeout: 30s
//	cache:
//	  size: 256
//	  ttl: 10m
//	workers: 4
//	suppressions:
//	  - "segment = 'PID' and code = 'Usage'"
//	profiles:
//	  oids:
//	    IZ_VXU_Z22: 2.16.840.1.113883.3.72.2.3.99002
//	nats:
//	  url: nats://localhost:4222
//	  subject: nist.validation
//	log:
//	  level: info
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	nv "github.com/gofhir/nistvalidator"
	"github.com/gofhir/nistvalidator/pkg/logger"
	"github.com/gofhir/nistvalidator/pkg/profile"
)

// FileName is the config file looked up by Discover.
const FileName = ".nist-validator.yml"

// Config is the file form of the validator settings.
type Config struct {
	Enabled      bool           `yaml:"enabled"`
	Service      ServiceConfig  `yaml:"service"`
	Cache        CacheConfig    `yaml:"cache"`
	Workers      int            `yaml:"workers"`
	Suppressions []string       `yaml:"suppressions"`
	Profiles     ProfilesConfig `yaml:"profiles"`
	NATS         NATSConfig     `yaml:"nats"`
	Log          LogConfig      `yaml:"log"`
}

// ServiceConfig locates the remote validation service.
type ServiceConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// CacheConfig sizes the report cache. A size of 0 disables it.
type CacheConfig struct {
	Size int           `yaml:"size"`
	TTL  time.Duration `yaml:"ttl"`
}

// ProfilesConfig overrides profile OIDs by resource name.
type ProfilesConfig struct {
	OIDs map[string]string `yaml:"oids"`
}

// NATSConfig enables publishing of reports when URL is set.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// LogConfig sets the log level.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	opts := nv.DefaultOptions()
	return &Config{
		Enabled: opts.Enabled,
		Service: ServiceConfig{
			URL:     opts.ServiceURL,
			Timeout: opts.Timeout,
		},
		Cache: CacheConfig{
			Size: opts.CacheSize,
			TTL:  opts.CacheTTL,
		},
		Workers: opts.WorkerCount,
		NATS:    NATSConfig{Subject: "nist.validation"},
		Log:     LogConfig{Level: "info"},
	}
}

// Load reads and parses a config file at the given path. Keys missing
// from the file keep their defaults; unknown keys are an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse parses a YAML document over the defaults and validates it.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []error

	if u, err := url.Parse(c.Service.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("service.url: %q is not an http(s) URL", c.Service.URL))
	}
	if c.Service.Timeout < 0 {
		errs = append(errs, fmt.Errorf("service.timeout: must not be negative"))
	}
	if c.Cache.Size < 0 {
		errs = append(errs, fmt.Errorf("cache.size: must not be negative"))
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, fmt.Errorf("cache.ttl: must not be negative"))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers: must not be negative"))
	}
	for name, oid := range c.Profiles.OIDs {
		if _, ok := profile.LookupResource(name); !ok {
			errs = append(errs, fmt.Errorf("profiles.oids: unknown profile %q", name))
		} else if oid == "" {
			errs = append(errs, fmt.Errorf("profiles.oids: empty OID for %s", name))
		}
	}
	if c.NATS.URL != "" {
		if u, err := url.Parse(c.NATS.URL); err != nil || u.Host == "" {
			errs = append(errs, fmt.Errorf("nats.url: %q is not a server URL", c.NATS.URL))
		}
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	return errors.Join(errs...)
}

// Options converts the configuration to validator options.
func (c *Config) Options() []nv.Option {
	opts := []nv.Option{
		nv.WithEnabled(c.Enabled),
		nv.WithServiceURL(c.Service.URL),
		nv.WithTimeout(c.Service.Timeout),
		nv.WithCacheSize(c.Cache.Size),
		nv.WithCacheTTL(c.Cache.TTL),
		nv.WithWorkerCount(c.Workers),
	}
	if len(c.Suppressions) > 0 {
		opts = append(opts, nv.WithSuppressions(c.Suppressions...))
	}
	if len(c.Profiles.OIDs) > 0 {
		opts = append(opts, nv.WithOIDs(c.Profiles.OIDs))
	}
	return opts
}

// LogLevel returns the parsed log level.
func (c *Config) LogLevel() logger.Level {
	level, _ := logger.ParseLevel(c.Log.Level)
	return level
}

// Discover walks up the directory tree from startDir looking for a
// .nist-validator.yml config file. It stops at the repository root (a
// directory containing .git) or the filesystem root.
// Returns the path to the config file, or "" if none was found.
func Discover(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving absolute path: %w", err)
	}

	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}

		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return "", nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}
