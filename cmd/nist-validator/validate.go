package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	nv "github.com/gofhir/nistvalidator"
	"github.com/gofhir/nistvalidator/config"
	"github.com/gofhir/nistvalidator/engine"
	"github.com/gofhir/nistvalidator/pkg/logger"
	"github.com/gofhir/nistvalidator/pkg/outcome"
	"github.com/gofhir/nistvalidator/pkg/publish"
	"github.com/gofhir/nistvalidator/worker"
)

// OutputFormat specifies the output format.
type OutputFormat string

// Output format constants.
const (
	OutputText    OutputFormat = "text"
	OutputJSON    OutputFormat = "json"
	OutputOutcome OutputFormat = "outcome"
)

func parseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	case OutputOutcome:
		return OutputOutcome, nil
	}
	return "", fmt.Errorf("invalid output format %q: must be text, json or outcome", s)
}

type validateFlags struct {
	output      string
	workers     int
	url         string
	timeout     time.Duration
	publishURL  string
	subject     string
	metricsAddr string
	noCache     bool
}

func newValidateCmd(global *globalFlags) *cobra.Command {
	flags := &validateFlags{}

	cmd := &cobra.Command{
		Use:   "validate <file|pattern|->...",
		Short: "Validate messages and report findings",
		Long: `Validate one HL7 v2 message per file. Patterns may use ** to match
directories recursively; "-" reads a message from stdin.

Exits with status 1 if any message has a WARN or ERROR record or could not
be validated because the service failed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(global)
			if err != nil {
				return err
			}
			applyValidateFlags(cmd, cfg, flags)
			if global.logLevel == "" {
				logger.SetDefault(logger.New(cmd.ErrOrStderr(), cfg.LogLevel()))
			}
			return runValidate(cmd, cfg, flags, args)
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "text", "Output format: text, json, outcome")
	cmd.Flags().IntVarP(&flags.workers, "workers", "w", 0, "Parallel validations (default: config or CPU count)")
	cmd.Flags().StringVar(&flags.url, "url", "", "Validation service URL")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 0, "Timeout of one service call")
	cmd.Flags().StringVar(&flags.publishURL, "publish", "", "Publish reports to this NATS server")
	cmd.Flags().StringVar(&flags.subject, "subject", "", "NATS subject prefix")
	cmd.Flags().StringVar(&flags.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address until interrupted")
	cmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "Do not cache service reports")

	return cmd
}

// applyValidateFlags lets explicitly set flags override the config file.
func applyValidateFlags(cmd *cobra.Command, cfg *config.Config, flags *validateFlags) {
	f := cmd.Flags()
	if f.Changed("workers") && flags.workers > 0 {
		cfg.Workers = flags.workers
	}
	if f.Changed("url") {
		cfg.Service.URL = flags.url
	}
	if f.Changed("timeout") {
		cfg.Service.Timeout = flags.timeout
	}
	if f.Changed("publish") {
		cfg.NATS.URL = flags.publishURL
	}
	if f.Changed("subject") {
		cfg.NATS.Subject = flags.subject
	}
	if flags.noCache {
		cfg.Cache.Size = 0
	}
}

func runValidate(cmd *cobra.Command, cfg *config.Config, flags *validateFlags, args []string) error {
	format, err := parseOutputFormat(flags.output)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.Default()
	v, err := engine.New(ctx, cfg.Options()...)
	if err != nil {
		return err
	}
	defer v.Close()
	v.SetLogger(log.With("component", "engine"))

	var srv *http.Server
	if flags.metricsAddr != "" {
		srv, err = serveMetrics(flags.metricsAddr, v.Metrics(), log)
		if err != nil {
			return err
		}
		defer srv.Close()
	}

	names, err := expandArgs(args)
	if err != nil {
		return err
	}
	inputs := readInputs(names, cmd.InOrStdin())

	results := validateInputs(ctx, v, inputs)

	if err := writeResults(cmd.OutOrStdout(), format, results); err != nil {
		return err
	}

	if cfg.NATS.URL != "" {
		if err := publishResults(ctx, cfg, results); err != nil {
			return err
		}
		log.Info("published %d report(s) to %s", len(results), cfg.NATS.URL)
	}

	if srv != nil {
		log.Info("serving metrics on %s; interrupt to exit", flags.metricsAddr)
		<-ctx.Done()
	}

	for _, r := range results {
		if r.Failed() {
			return errFailed
		}
	}
	return nil
}

// validateInputs validates the readable inputs in parallel and returns one
// result per input, in input order.
func validateInputs(ctx context.Context, v *engine.Validator, inputs []input) []*worker.JobResult {
	jobs := make([]worker.Job, 0, len(inputs))
	for _, in := range inputs {
		if in.err == nil {
			jobs = append(jobs, worker.Job{Source: in.name, Message: in.message})
		}
	}
	batch := v.ValidateBatch(ctx, jobs)

	results := make([]*worker.JobResult, 0, len(inputs))
	next := 0
	for _, in := range inputs {
		if in.err != nil {
			err := fmt.Errorf("read %s: %w", in.name, in.err)
			results = append(results, &worker.JobResult{
				Source: in.name,
				Report: &nv.Report{Source: in.name, Records: []nv.Record{}, Err: err},
				Err:    err,
			})
			continue
		}
		results = append(results, batch.Results[next])
		next++
	}
	return results
}

// reportOutput is the JSON form of a report.
type reportOutput struct {
	*nv.Report
	Error    string `json:"error,omitempty"`
	Duration string `json:"duration,omitempty"`
}

func writeResults(w io.Writer, format OutputFormat, results []*worker.JobResult) error {
	switch format {
	case OutputJSON:
		out := make([]reportOutput, 0, len(results))
		for _, r := range results {
			out = append(out, reportOutput{
				Report:   r.Report,
				Error:    r.Report.Error(),
				Duration: r.Duration.Round(time.Millisecond).String(),
			})
		}
		return writeJSON(w, out)

	case OutputOutcome:
		outcomes := make([]*outcome.OperationOutcome, 0, len(results))
		for _, r := range results {
			outcomes = append(outcomes, outcome.FromReport(r.Report))
		}
		if len(outcomes) == 1 {
			return writeJSON(w, outcomes[0])
		}
		return writeJSON(w, outcomes)

	default:
		for _, r := range results {
			printTextResult(w, r)
		}
		return nil
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func status(r *nv.Report) string {
	switch {
	case r.Err != nil:
		return "FAULT"
	case r.HasFindings() && !r.Validated:
		return "UNRECOGNIZED"
	case r.HasFindings():
		return "FINDINGS"
	case !r.Validated:
		return "SKIPPED"
	default:
		return "OK"
	}
}

func printTextResult(w io.Writer, r *worker.JobResult) {
	report := r.Report

	fmt.Fprintf(w, "== %s ==\n", r.Source)
	fmt.Fprintf(w, "Status: %s\n", status(report))
	if report.Resource != "" {
		fmt.Fprintf(w, "Profile: %s (%s)\n", report.Resource, report.ResourceOID)
	}
	if report.ControlID != "" {
		fmt.Fprintf(w, "Control ID: %s\n", report.ControlID)
	}
	if report.Err != nil {
		fmt.Fprintf(w, "Error: %v\n", report.Err)
	}
	fmt.Fprintf(w, "Records: %d", len(report.Records))
	if report.Suppressed > 0 {
		fmt.Fprintf(w, " (%d suppressed)", report.Suppressed)
	}
	fmt.Fprintln(w)

	for _, rec := range report.Records {
		code := rec.ApplicationErrorCode.Code()
		if code != "" {
			code = "[" + code + "] "
		}
		location := ""
		if rec.Location != nil {
			location = " @ " + rec.Location.String()
		}
		fmt.Fprintf(w, "  %-5s %s%s%s\n", rec.Severity, code, rec.ReportedMessage, location)
	}
	fmt.Fprintln(w)
}

func publishResults(ctx context.Context, cfg *config.Config, results []*worker.JobResult) error {
	p, err := publish.Connect(cfg.NATS.URL, publish.WithSubject(cfg.NATS.Subject))
	if err != nil {
		return err
	}
	defer p.Close()

	reports := make([]*nv.Report, 0, len(results))
	for _, r := range results {
		reports = append(reports, r.Report)
	}
	return p.PublishAll(ctx, reports)
}

// serveMetrics starts an HTTP server exposing /metrics on addr.
func serveMetrics(addr string, m *nv.Metrics, log *logger.Logger) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", nv.MetricsHandler(m))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server: %v", err)
		}
	}()
	return srv, nil
}
