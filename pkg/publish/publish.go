// Package publish sends validation reports to NATS.
//
// Each report is published as one JSON event on
// <subject>.<resource>, <subject>.unrecognized or <subject>.fault.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	nv "github.com/gofhir/nistvalidator"
)

// DefaultSubject is the subject prefix used when none is configured.
const DefaultSubject = "nist.validation"

// Conn is the part of *nats.Conn the publisher uses.
type Conn interface {
	Publish(subject string, data []byte) error
	Flush() error
	Drain() error
}

// Event is the published form of a report.
type Event struct {
	ID         string      `json:"id"`
	Time       time.Time   `json:"time"`
	JobID      string      `json:"jobId,omitempty"`
	Source     string      `json:"source,omitempty"`
	ControlID  string      `json:"controlId,omitempty"`
	Resource   string      `json:"resource,omitempty"`
	Validated  bool        `json:"validated"`
	Severity   nv.Severity `json:"severity"`
	Records    []nv.Record `json:"records"`
	Suppressed int         `json:"suppressed,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// Options configures a Publisher.
type Options struct {
	Subject       string
	ClientName    string
	Timeout       time.Duration
	MaxReconnects int
	ReconnectWait time.Duration
	now           func() time.Time
}

// Option configures a Publisher.
type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		Subject:       DefaultSubject,
		ClientName:    "nist-validator",
		Timeout:       5 * time.Second,
		MaxReconnects: 5,
		ReconnectWait: 2 * time.Second,
		now:           time.Now,
	}
}

// WithSubject sets the subject prefix.
func WithSubject(subject string) Option {
	return func(o *Options) {
		if subject = strings.Trim(subject, ". "); subject != "" {
			o.Subject = subject
		}
	}
}

// WithClientName sets the NATS connection name.
func WithClientName(name string) Option {
	return func(o *Options) {
		o.ClientName = name
	}
}

// WithTimeout sets the connect timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		if timeout > 0 {
			o.Timeout = timeout
		}
	}
}

// WithClock sets the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		o.now = now
	}
}

// Publisher publishes reports as events.
type Publisher struct {
	conn    Conn
	options *Options
}

// New creates a publisher on an existing connection.
func New(conn Conn, opts ...Option) *Publisher {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}
	return &Publisher{conn: conn, options: options}
}

// Connect connects to the NATS server at url and returns a publisher that
// owns the connection.
func Connect(url string, opts ...Option) (*Publisher, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	natsOpts := []nats.Option{
		nats.Timeout(options.Timeout),
		nats.MaxReconnects(options.MaxReconnects),
		nats.ReconnectWait(options.ReconnectWait),
	}
	if options.ClientName != "" {
		natsOpts = append(natsOpts, nats.Name(options.ClientName))
	}

	conn, err := nats.Connect(url, natsOpts...)
	if err != nil {
		return nil, fmt.Errorf("publish.Connect: connect to %s: %w", url, err)
	}
	return &Publisher{conn: conn, options: options}, nil
}

// Subject returns the subject a report is published on.
func (p *Publisher) Subject(report *nv.Report) string {
	switch {
	case report.Err != nil:
		return p.options.Subject + ".fault"
	case report.Resource == "":
		return p.options.Subject + ".unrecognized"
	default:
		return p.options.Subject + "." + report.Resource
	}
}

// Event builds the event for report with a fresh ID.
func (p *Publisher) Event(report *nv.Report) Event {
	records := report.Records
	if records == nil {
		records = []nv.Record{}
	}
	return Event{
		ID:         uuid.NewString(),
		Time:       p.options.now().UTC(),
		JobID:      report.JobID,
		Source:     report.Source,
		ControlID:  report.ControlID,
		Resource:   report.Resource,
		Validated:  report.Validated,
		Severity:   report.MaxSeverity(),
		Records:    records,
		Suppressed: report.Suppressed,
		Error:      report.Error(),
	}
}

// Publish publishes one report.
func (p *Publisher) Publish(ctx context.Context, report *nv.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(p.Event(report))
	if err != nil {
		return fmt.Errorf("publish.Publish: marshal event: %w", err)
	}

	subject := p.Subject(report)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish.Publish: publish to %s: %w", subject, err)
	}
	return nil
}

// PublishAll publishes reports in order and flushes the connection.
// It stops at the first failure.
func (p *Publisher) PublishAll(ctx context.Context, reports []*nv.Report) error {
	for _, r := range reports {
		if err := p.Publish(ctx, r); err != nil {
			return err
		}
	}
	if err := p.conn.Flush(); err != nil {
		return fmt.Errorf("publish.PublishAll: flush: %w", err)
	}
	return nil
}

// Close drains the connection.
func (p *Publisher) Close() error {
	return p.conn.Drain()
}
