package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCounter_SameKeyReturnsSameInstance(t *testing.T) {
	c := NewMetricsCollector()
	a := c.Counter("x_total", "help", Labels("k", "v"))
	b := c.Counter("x_total", "help", Labels("k", "v"))
	if a != b {
		t.Fatal("expected identical counter for identical name and labels")
	}
	a.Inc()
	b.Add(2)
	if a.Value() != 3 {
		t.Errorf("expected 3, got %d", a.Value())
	}
}

func TestGauge(t *testing.T) {
	c := NewMetricsCollector()
	g := c.Gauge("g", "help", "")
	g.Set(5)
	g.Inc()
	g.Dec()
	g.Dec()
	if g.Value() != 4 {
		t.Errorf("expected 4, got %d", g.Value())
	}
}

func TestHistogram_Buckets(t *testing.T) {
	c := NewMetricsCollector()
	h := c.Histogram("lat_seconds", "help", "", []float64{10, 1, 5})
	h.Observe(0.5)
	h.ObserveDuration(3 * time.Second)
	h.Observe(100)

	if h.Count() != 3 {
		t.Fatalf("expected 3 observations, got %d", h.Count())
	}
	out := c.Render()
	for _, want := range []string{
		`lat_seconds_bucket{le="1"} 1`,
		`lat_seconds_bucket{le="5"} 2`,
		`lat_seconds_bucket{le="10"} 2`,
		`lat_seconds_bucket{le="+Inf"} 3`,
		`lat_seconds_count 3`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("render missing %q\n%s", want, out)
		}
	}
}

func TestLabels_Escapes(t *testing.T) {
	got := Labels("a", `x"y`, "b", "z")
	if got != `a="x\"y",b="z"` {
		t.Errorf("unexpected labels %s", got)
	}
}

func TestHandler(t *testing.T) {
	c := NewMetricsCollector()
	c.Counter("digestbot_runs_total", "runs", Labels("outcome", "ok")).Inc()
	c.Counter("digestbot_runs_total", "runs", Labels("outcome", "no_messages")).Add(2)

	rec := httptest.NewRecorder()
	c.Handler()(rec, httptest.NewRequest("GET", "/metrics", nil))

	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("unexpected content type %q", ct)
	}
	body := rec.Body.String()
	if strings.Count(body, "# TYPE digestbot_runs_total counter") != 1 {
		t.Errorf("expected one TYPE line per metric name\n%s", body)
	}
	if !strings.Contains(body, `digestbot_runs_total{outcome="no_messages"} 2`) {
		t.Errorf("missing labelled sample\n%s", body)
	}
	if !strings.Contains(body, "digestbot_uptime_seconds") {
		t.Error("missing uptime gauge")
	}
}

func TestRunsTotal_Shared(t *testing.T) {
	before := RunsTotal("ok").Value()
	RunsTotal("ok").Inc()
	if RunsTotal("ok").Value() != before+1 {
		t.Error("RunsTotal should return the shared counter")
	}
}
