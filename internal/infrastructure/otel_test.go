package infrastructure

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestInitializeOTel(t *testing.T) {
	tests := []struct {
		name       string
		cfg        *OTelConfig
		wantTraces bool
		wantProm   bool
	}{
		{"defaults", nil, false, true},
		{"stdout traces", &OTelConfig{ServiceName: "test", TraceExporter: "stdout", MetricExporter: "prometheus", SampleRatio: 1}, true, true},
		{"all disabled", &OTelConfig{ServiceName: "test", TraceExporter: "none", MetricExporter: "none"}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			providers, err := InitializeOTel(tt.cfg, quietLogger())
			require.NoError(t, err)

			assert.NotNil(t, providers.Tracer)
			assert.NotNil(t, providers.Meter)
			assert.Equal(t, tt.wantProm, providers.PrometheusHTTP != nil)
			assert.Equal(t, tt.wantTraces, providers.TracerProvider != nil)
			assert.Equal(t, tt.wantProm, providers.MeterProvider != nil)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			assert.NoError(t, providers.Shutdown(ctx))
		})
	}
}

func TestInitializeOTel_UnsupportedExporter(t *testing.T) {
	_, err := InitializeOTel(&OTelConfig{TraceExporter: "jaeger", MetricExporter: "none"}, quietLogger())
	assert.Error(t, err)

	_, err = InitializeOTel(&OTelConfig{TraceExporter: "none", MetricExporter: "otlp"}, quietLogger())
	assert.Error(t, err)
}

func TestTraceCorrelation(t *testing.T) {
	providers, err := InitializeOTel(&OTelConfig{TraceExporter: "stdout", MetricExporter: "none", SampleRatio: 1}, quietLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	ctx, span := providers.Tracer.Start(context.Background(), "load")
	defer span.End()

	assert.Equal(t, span.SpanContext().TraceID().String(), TraceIDFromContext(ctx))
	assert.Empty(t, TraceIDFromContext(context.Background()))

	AddSpanEvent(ctx, "sheet.normalized")
	RecordError(ctx, errors.New("boom"))
	assert.True(t, span.IsRecording())
}

func TestPipelineMetrics_Exported(t *testing.T) {
	providers, err := InitializeOTel(nil, quietLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	pm, err := NewPipelineMetrics(providers.Meter)
	require.NoError(t, err)
	hm, err := NewHTTPMetrics(providers.Meter)
	require.NoError(t, err)
	require.NotNil(t, hm)

	ctx := context.Background()
	pm.RecordLoad(ctx, "startup", 20*time.Millisecond, 110, nil)
	pm.RecordLoad(ctx, "watch", time.Millisecond, 0, errors.New("schema"))
	pm.RecordQuery(ctx, "overview", true)
	pm.RecordWatchEvent(ctx, "WRITE")

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "dataset_loads_total")
	assert.Contains(t, body, `result="failure"`)
	assert.Regexp(t, `dataset_records\{[^}]*\} 110`, body)
	assert.Contains(t, body, "price_queries_empty_total")
	assert.Contains(t, body, "go_goroutines")
}

func TestPipelineMetrics_NilSafe(t *testing.T) {
	var pm *PipelineMetrics
	assert.NotPanics(t, func() {
		pm.RecordLoad(context.Background(), "startup", time.Second, 1, nil)
		pm.RecordQuery(context.Background(), "trend", false)
		pm.RecordWatchEvent(context.Background(), "CREATE")
	})
}
