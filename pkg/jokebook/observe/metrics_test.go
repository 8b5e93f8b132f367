package observe

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/metric/noop"
)

func newTestMetrics(t *testing.T) (*Metrics, *Provider) {
	t.Helper()
	p := NewProvider("jokebook-test")
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	m, err := NewMetrics(p)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, p
}

func snapshot(t *testing.T, p *Provider) map[string]int64 {
	t.Helper()
	samples, err := p.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	out := make(map[string]int64, len(samples))
	for _, s := range samples {
		out[s.Name+"|"+s.Attrs] = s.Value
	}
	return out
}

func TestNewMetricsNoop(t *testing.T) {
	m, err := NewMetrics(noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	m.RecordImport(context.Background(), 1, 1, 1, time.Millisecond)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordImport(context.Background(), 3, 0, 0, time.Second)
	m.RecordOrganize(context.Background(), 1, 1, 1, true, time.Second)
}

func TestRecordImport(t *testing.T) {
	m, p := newTestMetrics(t)
	ctx := context.Background()

	m.RecordImport(ctx, 2, 1, 0, 10*time.Millisecond)
	m.RecordImport(ctx, 1, 0, 3, 10*time.Millisecond)

	got := snapshot(t, p)
	if got[MetricCandidates+"|outcome=accepted"] != 3 {
		t.Errorf("accepted = %d", got[MetricCandidates+"|outcome=accepted"])
	}
	if got[MetricCandidates+"|outcome=review"] != 1 {
		t.Errorf("review = %d", got[MetricCandidates+"|outcome=review"])
	}
	if got[MetricCandidates+"|outcome=duplicate"] != 3 {
		t.Errorf("duplicate = %d", got[MetricCandidates+"|outcome=duplicate"])
	}
}

func TestRecordOrganize(t *testing.T) {
	m, p := newTestMetrics(t)
	ctx := context.Background()

	m.RecordOrganize(ctx, 4, 2, 3, false, time.Millisecond)
	m.RecordOrganize(ctx, 0, 1, 0, true, time.Millisecond)

	got := snapshot(t, p)
	cases := map[string]int64{
		MetricOrganized + "|assignment=solid":     4,
		MetricOrganized + "|assignment=suggested": 3,
		MetricFoldersCreated + "|":                3,
		MetricSaveFailures + "|":                  1,
	}
	for key, want := range cases {
		if got[key] != want {
			t.Errorf("%s = %d, want %d", key, got[key], want)
		}
	}
}

func TestSampleString(t *testing.T) {
	s := Sample{Name: MetricOrganized, Attrs: "assignment=solid", Value: 2}
	if got := s.String(); got != "jokebook.organize.jokes{assignment=solid} 2" {
		t.Errorf("String() = %q", got)
	}
	if got := (Sample{Name: "x", Value: 1}).String(); got != "x 1" {
		t.Errorf("String() = %q", got)
	}
}
