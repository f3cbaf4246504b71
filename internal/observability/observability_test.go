package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitTracingDisabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), TracingConfig{ServiceName: "catalog-test"})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))

	span, ctx := NewSpan(context.Background(), "catalog.test")
	assert.NotNil(t, ctx)
	span.End(errors.New("boom"))
}

func TestInitTracingStdout(t *testing.T) {
	prev := Tracer
	t.Cleanup(func() { Tracer = prev })

	shutdown, err := InitTracing(context.Background(), TracingConfig{
		ServiceName:  "catalog-test",
		Enabled:      true,
		Exporter:     "stdout",
		SamplerRatio: 0.5,
	})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))

	_, err = InitTracing(context.Background(), TracingConfig{Enabled: true, Exporter: "zipkin"})
	assert.Error(t, err)
}

func TestObserveHelpers(t *testing.T) {
	before := testutil.ToFloat64(MediaUploads.WithLabelValues("stub", OutcomeTimeout))
	ObserveUpload("stub", OutcomeTimeout, time.Now())
	assert.Equal(t, before+1, testutil.ToFloat64(MediaUploads.WithLabelValues("stub", OutcomeTimeout)))

	before = testutil.ToFloat64(CatalogWrites.WithLabelValues("software", "create", OutcomeFailed))
	ObserveWrite("software", "create", errors.New("dup"))
	assert.Equal(t, before+1, testutil.ToFloat64(CatalogWrites.WithLabelValues("software", "create", OutcomeFailed)))

	before = testutil.ToFloat64(MediaDeletes.WithLabelValues("rollback", OutcomeOK))
	ObserveMediaDelete("rollback", OutcomeOK)
	assert.Equal(t, before+1, testutil.ToFloat64(MediaDeletes.WithLabelValues("rollback", OutcomeOK)))
}
