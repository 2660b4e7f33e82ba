package nistvalidator

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricNamespace = "nist_validator"

// Collector exposes Metrics to Prometheus.
// Values are read from a Snapshot at scrape time.
type Collector struct {
	metrics *Metrics

	validations  *prometheus.Desc
	outcomes     *prometheus.Desc
	remoteCalls  *prometheus.Desc
	remoteTime   *prometheus.Desc
	cache        *prometheus.Desc
	records      *prometheus.Desc
	suppressed   *prometheus.Desc
	resourceCall *prometheus.Desc
	resourceRecs *prometheus.Desc
}

// NewCollector creates a Collector over m.
func NewCollector(m *Metrics) *Collector {
	name := func(n string) string {
		return prometheus.BuildFQName(metricNamespace, "", n)
	}
	return &Collector{
		metrics: m,
		validations: prometheus.NewDesc(name("validations_total"),
			"Validation requests received.", nil, nil),
		outcomes: prometheus.NewDesc(name("outcomes_total"),
			"Validation requests by outcome.", []string{"outcome"}, nil),
		remoteCalls: prometheus.NewDesc(name("remote_calls_total"),
			"Completed calls to the validation service.", nil, nil),
		remoteTime: prometheus.NewDesc(name("remote_call_seconds"),
			"Remote call duration statistics.", []string{"stat"}, nil),
		cache: prometheus.NewDesc(name("report_cache_total"),
			"Report cache lookups by result.", []string{"result"}, nil),
		records: prometheus.NewDesc(name("records_total"),
			"Surfaced records by severity.", []string{"severity"}, nil),
		suppressed: prometheus.NewDesc(name("records_suppressed_total"),
			"Records removed by suppression rules.", nil, nil),
		resourceCall: prometheus.NewDesc(name("resource_calls_total"),
			"Remote calls by validation profile.", []string{"resource"}, nil),
		resourceRecs: prometheus.NewDesc(name("resource_records_total"),
			"Surfaced records by validation profile.", []string{"resource"}, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.validations
	ch <- c.outcomes
	ch <- c.remoteCalls
	ch <- c.remoteTime
	ch <- c.cache
	ch <- c.records
	ch <- c.suppressed
	ch <- c.resourceCall
	ch <- c.resourceRecs
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.metrics.Snapshot()

	counter := func(desc *prometheus.Desc, v uint64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(v), labels...)
	}
	gauge := func(desc *prometheus.Desc, ns uint64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, float64(ns)/1e9, labels...)
	}

	counter(c.validations, s.ValidationsTotal)
	counter(c.outcomes, s.Validated, "validated")
	counter(c.outcomes, s.Unresolved, "unresolved")
	counter(c.outcomes, s.Faults, "fault")
	counter(c.remoteCalls, s.RemoteCalls)
	gauge(c.remoteTime, s.AvgRemoteTimeNs, "avg")
	gauge(c.remoteTime, s.MinRemoteTimeNs, "min")
	gauge(c.remoteTime, s.MaxRemoteTimeNs, "max")
	counter(c.cache, s.CacheHits, "hit")
	counter(c.cache, s.CacheMisses, "miss")
	counter(c.records, s.InfoTotal, string(SeverityInfo))
	counter(c.records, s.WarnTotal, string(SeverityWarn))
	counter(c.records, s.ErrorTotal, string(SeverityError))
	counter(c.suppressed, s.Suppressed)

	for _, rs := range s.Resources {
		counter(c.resourceCall, rs.Calls, rs.Name)
		counter(c.resourceRecs, rs.Records, rs.Name)
	}
}

// NewRegistry returns a Prometheus registry holding a Collector for m and
// the standard Go runtime and process collectors.
func NewRegistry(m *Metrics) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		NewCollector(m),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// MetricsHandler serves m in the Prometheus exposition format.
func MetricsHandler(m *Metrics) http.Handler {
	return promhttp.HandlerFor(NewRegistry(m), promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}
