package undeletable

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/seb7887/gofw/sietch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func counterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := registry.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, m := range family.GetMetric() {
			if hasLabels(m, labels) {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func hasLabels(m *dto.Metric, labels map[string]string) bool {
	matched := 0
	for _, lp := range m.GetLabel() {
		if v, ok := labels[lp.GetName()]; ok && v == lp.GetValue() {
			matched++
		}
	}
	return matched == len(labels)
}

func TestMetrics(t *testing.T) {
	ctx := context.Background()
	registry := prometheus.NewRegistry()
	p := newAuthors(t, WithMetrics(NewMetrics(registry)))

	createAuthor(t, p, "a")
	createAuthor(t, p, "b")
	_, err := p.DefaultScope().AllRows().Delete(ctx)
	require.NoError(t, err)
	_, err = p.DefaultScope().Delete(ctx)
	require.ErrorIs(t, err, ErrUnscopedBulkDelete)

	assert.Equal(t, 2.0, counterValue(t, registry, "undeletable_operations_total",
		map[string]string{"entity": "author", "operation": "create", "outcome": "ok"}))
	assert.Equal(t, 2.0, counterValue(t, registry, "undeletable_rows_affected_total",
		map[string]string{"entity": "author", "operation": "bulk_delete"}))
	assert.Equal(t, 0.0, counterValue(t, registry, "undeletable_operations_total",
		map[string]string{"operation": "bulk_delete", "outcome": "error"}), "guards fail before the operation starts")
}

func TestTracing(t *testing.T) {
	ctx := context.Background()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(ctx) }()

	p := newAuthors(t, WithTracerProvider(tp))
	a := createAuthor(t, p, "a")
	a.ID = "ghost"
	require.Error(t, p.ForceDelete(ctx, a))

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "author.create", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Equal(t, "author.force_delete", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}

func TestLogging(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zapcore.DebugLevel)
	p := newAuthors(t, WithLogger(sietch.WrapZap(zap.New(core))), WithEntityName("Author"))

	a := createAuthor(t, p, "a")
	require.NoError(t, p.Delete(ctx, a))

	entries := logs.FilterField(zap.String("entity", "Author")).AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, "create", entries[0].ContextMap()["operation"])
	assert.Equal(t, "delete", entries[1].ContextMap()["operation"])
}
