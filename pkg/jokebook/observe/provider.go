package observe

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Provider is an in-process MeterProvider whose counters can be read back
// with Snapshot. The CLI uses it to print run statistics.
type Provider struct {
	*metric.MeterProvider
	reader *metric.ManualReader
}

// NewProvider creates a Provider tagged with the given service name.
func NewProvider(serviceName string) *Provider {
	reader := metric.NewManualReader()
	res := resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(serviceName))
	return &Provider{
		MeterProvider: metric.NewMeterProvider(metric.WithReader(reader), metric.WithResource(res)),
		reader:        reader,
	}
}

// Sample is one counter data point.
type Sample struct {
	Name  string
	Attrs string // "key=value,..." in key order; empty when unlabelled
	Value int64
}

// String formats s as "name{attrs} value".
func (s Sample) String() string {
	if s.Attrs == "" {
		return fmt.Sprintf("%s %d", s.Name, s.Value)
	}
	return fmt.Sprintf("%s{%s} %d", s.Name, s.Attrs, s.Value)
}

// Snapshot collects the current value of every integer counter, sorted by
// name then attributes.
func (p *Provider) Snapshot(ctx context.Context) ([]Sample, error) {
	var rm metricdata.ResourceMetrics
	if err := p.reader.Collect(ctx, &rm); err != nil {
		return nil, fmt.Errorf("collect metrics: %w", err)
	}

	var out []Sample
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				out = append(out, Sample{Name: m.Name, Attrs: formatAttrs(dp.Attributes), Value: dp.Value})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Attrs < out[j].Attrs
	})
	return out, nil
}

func formatAttrs(set attribute.Set) string {
	var s string
	iter := set.Iter()
	for iter.Next() {
		kv := iter.Attribute()
		if s != "" {
			s += ","
		}
		s += string(kv.Key) + "=" + kv.Value.Emit()
	}
	return s
}
