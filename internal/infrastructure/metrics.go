package infrastructure

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTPMetrics instruments the HTTP server
type HTTPMetrics struct {
	RequestsTotal   metric.Int64Counter
	RequestDuration metric.Float64Histogram
	ActiveRequests  metric.Int64UpDownCounter
}

// NewHTTPMetrics registers the HTTP instruments on meter
func NewHTTPMetrics(meter metric.Meter) (*HTTPMetrics, error) {
	requests, err := meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	active, err := meter.Int64UpDownCounter(
		"http_active_requests",
		metric.WithDescription("Number of active HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	return &HTTPMetrics{
		RequestsTotal:   requests,
		RequestDuration: duration,
		ActiveRequests:  active,
	}, nil
}

// PipelineMetrics instruments workbook loads and aggregation queries
type PipelineMetrics struct {
	LoadsTotal    metric.Int64Counter
	LoadDuration  metric.Float64Histogram
	Records       metric.Int64Gauge
	QueriesTotal  metric.Int64Counter
	EmptyResults  metric.Int64Counter
	WatcherEvents metric.Int64Counter
}

// NewPipelineMetrics registers the pipeline instruments on meter
func NewPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	var m PipelineMetrics
	var err, e error

	m.LoadsTotal, e = meter.Int64Counter(
		"dataset_loads_total",
		metric.WithDescription("Workbook loads by trigger and result"),
	)
	err = errors.Join(err, e)

	m.LoadDuration, e = meter.Float64Histogram(
		"dataset_load_duration_seconds",
		metric.WithDescription("Time to read and normalize the workbook"),
		metric.WithUnit("s"),
	)
	err = errors.Join(err, e)

	m.Records, e = meter.Int64Gauge(
		"dataset_records",
		metric.WithDescription("Price records in the current dataset"),
	)
	err = errors.Join(err, e)

	m.QueriesTotal, e = meter.Int64Counter(
		"price_queries_total",
		metric.WithDescription("Aggregation queries by view"),
	)
	err = errors.Join(err, e)

	m.EmptyResults, e = meter.Int64Counter(
		"price_queries_empty_total",
		metric.WithDescription("Aggregation queries whose selection matched no records"),
	)
	err = errors.Join(err, e)

	m.WatcherEvents, e = meter.Int64Counter(
		"source_watch_events_total",
		metric.WithDescription("File system events seen on the workbook"),
	)
	err = errors.Join(err, e)

	if err != nil {
		return nil, err
	}
	return &m, nil
}

// RecordLoad records one load attempt. A nil receiver is a no-op.
func (m *PipelineMetrics) RecordLoad(ctx context.Context, trigger string, d time.Duration, records int, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	attrs := metric.WithAttributes(
		attribute.String("trigger", trigger),
		attribute.String("result", result),
	)
	m.LoadsTotal.Add(ctx, 1, attrs)
	m.LoadDuration.Record(ctx, d.Seconds(), attrs)
	if err == nil {
		m.Records.Record(ctx, int64(records))
	}
}

// RecordQuery counts one aggregation query
func (m *PipelineMetrics) RecordQuery(ctx context.Context, view string, empty bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("view", view))
	m.QueriesTotal.Add(ctx, 1, attrs)
	if empty {
		m.EmptyResults.Add(ctx, 1, attrs)
	}
}

// RecordWatchEvent counts one workbook file event
func (m *PipelineMetrics) RecordWatchEvent(ctx context.Context, op string) {
	if m == nil {
		return
	}
	m.WatcherEvents.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}
