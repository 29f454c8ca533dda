// internal/monitoring/metrics.go
package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/valpere/FormScrapexter/internal/antidetect"
	"github.com/valpere/FormScrapexter/internal/scraper"
)

// DefaultNamespace prefixes every exported metric
const DefaultNamespace = "formscrapexter"

// Page status labels
const (
	StatusOK      = "ok"
	StatusError   = "error"
	StatusCaptcha = "captcha"
)

// Progress is a snapshot of the current run
type Progress struct {
	Running        bool      `json:"running"`
	Pending        int       `json:"pending"`
	Skipped        int       `json:"skipped"`
	Processed      int       `json:"processed"`
	Errors         int       `json:"errors"`
	Captchas       int       `json:"captchas"`
	WithAdditional int       `json:"with_additional_fields"`
	Batches        int       `json:"batches"`
	SessionResets  int       `json:"session_resets"`
	LastURL        string    `json:"last_url,omitempty"`
	StartedAt      time.Time `json:"started_at,omitempty"`
}

// Metrics exports crawl events to a private Prometheus registry and keeps
// a progress snapshot for the status endpoint. It implements
// crawl.Observer.
type Metrics struct {
	registry *prometheus.Registry

	pagesTotal       *prometheus.CounterVec
	pageDuration     prometheus.Histogram
	captchasTotal    *prometheus.CounterVec
	sessionResets    *prometheus.CounterVec
	fieldsFound      *prometheus.CounterVec
	additionalFields prometheus.Counter
	batchesTotal     prometheus.Counter
	pendingPages     prometheus.Gauge

	mu       sync.RWMutex
	progress Progress
}

// MetricsConfig configuration for metrics
type MetricsConfig struct {
	Namespace       string `json:"namespace"`
	EnableGoMetrics bool   `json:"enable_go_metrics"`
}

// NewMetrics creates and registers the crawl collectors
func NewMetrics(config MetricsConfig) *Metrics {
	if config.Namespace == "" {
		config.Namespace = DefaultNamespace
	}

	registry := prometheus.NewRegistry()
	if config.EnableGoMetrics {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		pagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Name:      "pages_processed_total",
				Help:      "Pages processed by outcome",
			},
			[]string{"status"},
		),
		pageDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: config.Namespace,
				Name:      "page_duration_seconds",
				Help:      "Time spent on a page including retries",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
			},
		),
		captchasTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Name:      "captchas_detected_total",
				Help:      "CAPTCHA challenges detected by type",
			},
			[]string{"kind"},
		),
		sessionResets: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Name:      "session_resets_total",
				Help:      "Browser session resets by reason",
			},
			[]string{"reason"},
		),
		fieldsFound: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Name:      "fields_found_total",
				Help:      "Canonical fields located by field name",
			},
			[]string{"field"},
		),
		additionalFields: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Name:      "additional_fields_total",
				Help:      "Interactive elements recorded outside the canonical fields",
			},
		),
		batchesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Name:      "batches_completed_total",
				Help:      "Completed URL batches",
			},
		),
		pendingPages: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: config.Namespace,
				Name:      "pages_pending",
				Help:      "Pages left in the current run",
			},
		),
	}
}

// Registry returns the registry holding the collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Progress returns a copy of the run progress
func (m *Metrics) Progress() Progress {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.progress
}

// RunStarted implements crawl.Observer
func (m *Metrics) RunStarted(pending, skipped int) {
	m.pendingPages.Set(float64(pending))

	m.mu.Lock()
	m.progress = Progress{
		Running:   true,
		Pending:   pending,
		Skipped:   skipped,
		StartedAt: time.Now(),
	}
	m.mu.Unlock()
}

// PageProcessed implements crawl.Observer
func (m *Metrics) PageProcessed(result *scraper.PageResult, duration time.Duration) {
	status := StatusOK
	switch {
	case result.Error != "":
		status = StatusError
	case result.HasCaptcha:
		status = StatusCaptcha
	}
	m.pagesTotal.WithLabelValues(status).Inc()
	m.pageDuration.Observe(duration.Seconds())
	m.pendingPages.Dec()

	for _, f := range scraper.Fields() {
		if result.Fields[f].Found {
			m.fieldsFound.WithLabelValues(f.String()).Inc()
		}
	}
	m.additionalFields.Add(float64(len(result.AdditionalFields)))

	m.mu.Lock()
	defer m.mu.Unlock()
	m.progress.Processed++
	if m.progress.Pending > 0 {
		m.progress.Pending--
	}
	if result.Error != "" {
		m.progress.Errors++
	}
	if result.HasCaptcha {
		m.progress.Captchas++
	}
	if result.HasAdditionalFields() {
		m.progress.WithAdditional++
	}
	m.progress.LastURL = result.URL
}

// CaptchaDetected implements crawl.Observer
func (m *Metrics) CaptchaDetected(kind antidetect.CaptchaType) {
	m.captchasTotal.WithLabelValues(kind.String()).Inc()
}

// SessionReset implements crawl.Observer
func (m *Metrics) SessionReset(reason string) {
	m.sessionResets.WithLabelValues(reason).Inc()

	m.mu.Lock()
	m.progress.SessionResets++
	m.mu.Unlock()
}

// BatchCompleted implements crawl.Observer
func (m *Metrics) BatchCompleted(size int) {
	m.batchesTotal.Inc()

	m.mu.Lock()
	m.progress.Batches++
	m.mu.Unlock()
}

// RunFinished marks the run as no longer active
func (m *Metrics) RunFinished() {
	m.mu.Lock()
	m.progress.Running = false
	m.mu.Unlock()
}
