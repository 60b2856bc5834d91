package metrics

import (
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopRecorderIsSafe(t *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveStageDuration("sphinx", time.Second)
	r.ObserveBuildDuration("html", time.Second)
	r.IncStageResult("sphinx", ResultSuccess)
	r.IncBuildOutcome("success")
	r.IncGeneratedPages("apidoc", 10)
	r.IncBrokenLinks(2)
}

func TestPrometheusRecorderRegistersAndCounts(t *testing.T) {
	reg := prom.NewRegistry()
	r := NewPrometheusRecorder(reg)

	r.ObserveStageDuration("sphinx", 2*time.Second)
	r.ObserveBuildDuration("html", 5*time.Second)
	r.IncStageResult("sphinx", ResultSuccess)
	r.IncStageResult("sphinx", ResultFatal)
	r.IncBuildOutcome("success")
	r.IncGeneratedPages("apidoc", 31)
	r.IncBrokenLinks(3)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"docforge_stage_duration_seconds",
		"docforge_build_duration_seconds",
		"docforge_stage_results_total",
		"docforge_build_outcomes_total",
		"docforge_generated_pages_total",
		"docforge_broken_links_total",
	} {
		assert.True(t, names[want], "missing metric family %s", want)
	}
}

func TestPrometheusRecorderStageResultLabels(t *testing.T) {
	reg := prom.NewRegistry()
	r := NewPrometheusRecorder(reg)
	r.IncStageResult("demos", ResultWarning)

	families, err := reg.Gather()
	require.NoError(t, err)

	found := false
	for _, f := range families {
		if !strings.HasSuffix(f.GetName(), "stage_results_total") {
			continue
		}
		for _, m := range f.GetMetric() {
			labels := make(map[string]string)
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["stage"] == "demos" && labels["result"] == "warning" {
				found = true
				assert.Equal(t, float64(1), m.GetCounter().GetValue())
			}
		}
	}
	assert.True(t, found)
}
