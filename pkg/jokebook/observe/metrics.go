// Package observe provides OpenTelemetry metric instruments for the import
// and organize paths.
//
// Library code records through a Metrics value built with NewMetrics; a nil
// *Metrics is valid and records nothing. Hosts that want the numbers wire a
// MeterProvider (see NewProvider) and pass it in.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all jokebook metrics.
const meterName = "github.com/cognicore/jokebook"

// Metric names.
const (
	MetricCandidates     = "jokebook.import.candidates"
	MetricImportDuration = "jokebook.import.duration"
	MetricOrganized      = "jokebook.organize.jokes"
	MetricFoldersCreated = "jokebook.organize.folders_created"
	MetricSaveFailures   = "jokebook.organize.save_failures"
	MetricOrganizeTime   = "jokebook.organize.duration"
)

// Metrics holds the instruments. Fields are safe for concurrent use.
type Metrics struct {
	// Candidates counts import fragments by outcome
	// (accepted, review, duplicate).
	Candidates metric.Int64Counter

	ImportDuration metric.Float64Histogram

	// Organized counts jokes placed by the organizer by assignment
	// (solid, suggested).
	Organized metric.Int64Counter

	FoldersCreated metric.Int64Counter
	SaveFailures   metric.Int64Counter
	OrganizeTime   metric.Float64Histogram
}

var durationBuckets = []float64{
	0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5,
}

// NewMetrics creates all instruments from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Candidates, err = m.Int64Counter(MetricCandidates,
		metric.WithDescription("Import fragments by outcome."),
	); err != nil {
		return nil, err
	}
	if met.ImportDuration, err = m.Float64Histogram(MetricImportDuration,
		metric.WithDescription("Time to segment, validate and store one raw text."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Organized, err = m.Int64Counter(MetricOrganized,
		metric.WithDescription("Jokes assigned to a folder by assignment kind."),
	); err != nil {
		return nil, err
	}
	if met.FoldersCreated, err = m.Int64Counter(MetricFoldersCreated,
		metric.WithDescription("Folders created by the organizer."),
	); err != nil {
		return nil, err
	}
	if met.SaveFailures, err = m.Int64Counter(MetricSaveFailures,
		metric.WithDescription("Organizer write-backs that failed to persist."),
	); err != nil {
		return nil, err
	}
	if met.OrganizeTime, err = m.Float64Histogram(MetricOrganizeTime,
		metric.WithDescription("Time to organize one batch."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, err
	}
	return met, nil
}

// RecordImport records the outcome counts and duration of one import.
func (m *Metrics) RecordImport(ctx context.Context, accepted, review, duplicates int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.addOutcome(ctx, "accepted", accepted)
	m.addOutcome(ctx, "review", review)
	m.addOutcome(ctx, "duplicate", duplicates)
	m.ImportDuration.Record(ctx, elapsed.Seconds())
}

func (m *Metrics) addOutcome(ctx context.Context, outcome string, n int) {
	if n == 0 {
		return
	}
	m.Candidates.Add(ctx, int64(n), metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordOrganize records one organizer run.
func (m *Metrics) RecordOrganize(ctx context.Context, solid, suggested, created int, saveFailed bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	if solid > 0 {
		m.Organized.Add(ctx, int64(solid), metric.WithAttributes(attribute.String("assignment", "solid")))
	}
	if suggested > 0 {
		m.Organized.Add(ctx, int64(suggested), metric.WithAttributes(attribute.String("assignment", "suggested")))
	}
	if created > 0 {
		m.FoldersCreated.Add(ctx, int64(created))
	}
	if saveFailed {
		m.SaveFailures.Add(ctx, 1)
	}
	m.OrganizeTime.Record(ctx, elapsed.Seconds())
}
