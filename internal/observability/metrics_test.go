package observability

import (
	"strings"
	"testing"
)

func TestEnabledParsesCommonTruthyValues(t *testing.T) {
	cases := map[string]bool{
		"":      false,
		"0":     false,
		"false": false,
		"1":     true,
		"true":  true,
		"TRUE":  true,
		"yes":   true,
	}
	for val, want := range cases {
		t.Setenv("METRICS_ENABLED", val)
		if got := Enabled(); got != want {
			t.Fatalf("Enabled() with %q = %v, want %v", val, got, want)
		}
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPIRequest("POST", "/api/storyboards/align", "200", 0.1)
	m.ObserveAlignment("ok", 3, 0.5)
	m.AlignmentEmptySelection()
	m.ObserveVectorOp("search", "ok", 0.01)
	m.EmbedCacheHit()
	m.JobRun("library_resync", "done")
	if err := m.WritePrometheus(&strings.Builder{}); err != nil {
		t.Fatalf("WritePrometheus on nil: %v", err)
	}
}

func TestWritePrometheusExposesCounters(t *testing.T) {
	m := &Metrics{
		apiRequests:      NewCounterVec("viq_api_requests_total", "api", []string{"method", "route", "status"}),
		apiLatency:       NewHistogramVec("viq_api_request_duration_seconds", "latency", []string{"method", "route", "status"}, nil),
		apiInflight:      NewGauge("viq_api_inflight_requests", "inflight"),
		alignRequests:    NewCounterVec("viq_alignment_requests_total", "align", []string{"status"}),
		alignScenes:      NewCounter("viq_alignment_scenes_total", "scenes"),
		alignLatency:     NewHistogramVec("viq_alignment_duration_seconds", "align latency", []string{"status"}, nil),
		alignEmptyTotal:  NewCounter("viq_alignment_empty_selections_total", "empty"),
		vectorOps:        NewCounterVec("viq_vector_store_ops_total", "vector ops", []string{"op", "status"}),
		vectorLatency:    NewHistogramVec("viq_vector_store_op_duration_seconds", "vector latency", []string{"op", "status"}, nil),
		embedCacheHits:   NewCounter("viq_embed_cache_hits_total", "hits"),
		embedCacheMisses: NewCounter("viq_embed_cache_misses_total", "misses"),
		jobRuns:          NewCounterVec("viq_job_runs_total", "jobs", []string{"job_type", "status"}),
		fallbackEnqueued: NewCounter("viq_resync_fallback_enqueued_total", "fallback"),
	}

	m.ObserveAlignment("ok", 4, 0.2)
	m.ObserveVectorOp("search", "ok", 0.015)
	m.EmbedCacheMiss()
	m.JobRun("library_resync", "done")
	m.FallbackEnqueued()

	var sb strings.Builder
	if err := m.WritePrometheus(&sb); err != nil {
		t.Fatalf("WritePrometheus: %v", err)
	}
	out := sb.String()

	for _, want := range []string{
		`viq_alignment_requests_total{status="ok"} 1`,
		"viq_alignment_scenes_total 4",
		`viq_vector_store_ops_total{op="search",status="ok"} 1`,
		"viq_embed_cache_misses_total 1",
		`viq_job_runs_total{job_type="library_resync",status="done"} 1`,
		"viq_resync_fallback_enqueued_total 1",
		`viq_alignment_duration_seconds_bucket{status="ok",le="0.25"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q\n%s", want, out)
		}
	}
}
