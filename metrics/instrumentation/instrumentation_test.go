package instrumentation

import (
	"errors"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func counterValue(t *testing.T, labels ...string) float64 {
	m := &dto.Metric{}
	require.NoError(t, PrimCounter.WithLabelValues(labels...).Write(m))
	return m.GetCounter().GetValue()
}

func TestRecord(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	i := New("test", zap.New(core))
	before := counterValue(t, "test", "imagick/flip", StatusError)

	timer := i.NewTimer("imagick/flip")
	timer.Observe(StatusError, errors.New("boom"))

	assert.Equal(t, before+1, counterValue(t, "test", "imagick/flip", StatusError))
	entries := logs.FilterMessage("prim").All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "imagick/flip", fields["prim"])
		assert.Equal(t, StatusError, fields["status"])
		assert.Equal(t, "boom", fields["error"])
	}

	var nilTimer *Timer
	nilTimer.Observe(StatusSuccess, nil)
	assert.NotNil(t, New("x", nil).Logger)
}
