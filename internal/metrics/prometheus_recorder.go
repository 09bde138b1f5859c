package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "resourcesync"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	runDuration     *prom.HistogramVec
	runOutcomes     *prom.CounterVec
	stageDuration   *prom.HistogramVec
	documentEntries *prom.GaugeVec
	changes         *prom.CounterVec
	dumpBytes       prom.Gauge
	lastSuccess     *prom.GaugeVec
}

// NewPrometheusRecorder constructs and registers the collectors on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		runDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of generator runs by mode",
			Buckets:   prom.DefBuckets,
		}, []string{"mode"}),
		runOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "run_outcomes_total",
			Help:      "Generator runs by mode and outcome",
		}, []string{"mode", "outcome"}),
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual document build stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		documentEntries: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "document_entries",
			Help:      "Entries in the last published document of each kind",
		}, []string{"document"}),
		changes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "changes_total",
			Help:      "Change list entries published by change kind",
		}, []string{"change"}),
		dumpBytes: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "resourcedump_bytes",
			Help:      "Size of the last published resource dump archive",
		}),
		lastSuccess: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run by mode",
		}, []string{"mode"}),
	}
	reg.MustRegister(pr.runDuration, pr.runOutcomes, pr.stageDuration, pr.documentEntries, pr.changes, pr.dumpBytes, pr.lastSuccess)
	return pr
}

func (p *PrometheusRecorder) ObserveRunDuration(mode string, d time.Duration) {
	if p == nil {
		return
	}
	p.runDuration.WithLabelValues(mode).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRunOutcome(mode string, outcome Outcome) {
	if p == nil {
		return
	}
	p.runOutcomes.WithLabelValues(mode, string(outcome)).Inc()
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) SetDocumentEntries(document string, n int) {
	if p == nil {
		return
	}
	p.documentEntries.WithLabelValues(document).Set(float64(n))
}

func (p *PrometheusRecorder) AddChanges(change string, n int) {
	if p == nil || n <= 0 {
		return
	}
	p.changes.WithLabelValues(change).Add(float64(n))
}

func (p *PrometheusRecorder) SetDumpBytes(n int64) {
	if p == nil {
		return
	}
	p.dumpBytes.Set(float64(n))
}

func (p *PrometheusRecorder) SetLastSuccess(mode string, t time.Time) {
	if p == nil {
		return
	}
	p.lastSuccess.WithLabelValues(mode).Set(float64(t.Unix()))
}
