package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once           sync.Once
	stageDuration  *prom.HistogramVec
	buildDuration  *prom.HistogramVec
	stageResults   *prom.CounterVec
	buildOutcome   *prom.CounterVec
	generatedPages *prom.CounterVec
	brokenLinks    prom.Counter
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "docforge",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual build stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"})
		pr.buildDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "docforge",
			Name:      "build_duration_seconds",
			Help:      "Total build duration by builder",
			Buckets:   prom.DefBuckets,
		}, []string{"builder"})
		pr.stageResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docforge",
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"stage", "result"})
		pr.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docforge",
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"})
		pr.generatedPages = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "docforge",
			Name:      "generated_pages_total",
			Help:      "Generated reStructuredText pages by kind",
		}, []string{"kind"})
		pr.brokenLinks = prom.NewCounter(prom.CounterOpts{
			Namespace: "docforge",
			Name:      "broken_links_total",
			Help:      "Broken internal links found during link verification",
		})
		reg.MustRegister(pr.stageDuration, pr.buildDuration, pr.stageResults,
			pr.buildOutcome, pr.generatedPages, pr.brokenLinks)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(builder string, d time.Duration) {
	p.buildDuration.WithLabelValues(builder).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome string) {
	p.buildOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) IncGeneratedPages(kind string, n int) {
	p.generatedPages.WithLabelValues(kind).Add(float64(n))
}

func (p *PrometheusRecorder) IncBrokenLinks(n int) {
	p.brokenLinks.Add(float64(n))
}
