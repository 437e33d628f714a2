package storage

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanDir(t *testing.T) {
	for dir, expected := range map[string]string{
		"":          "/",
		"/":         "/",
		"//":        "/",
		"foo":       "/foo/",
		"/foo/bar/": "/foo/bar/",
		"foo/bar":   "/foo/bar/",
	} {
		assert.Equal(t, expected, CleanDir(dir), dir)
	}
}

func TestTrack(t *testing.T) {
	Track("test", "put")(nil)
	Track("test", "put")(nil)
	Track("test", "put")(errors.New("boom"))
	for status, count := range map[string]uint64{"success": 2, "error": 1} {
		m := &dto.Metric{}
		o := OperationHistogram.WithLabelValues("test", "put", status)
		require.NoError(t, o.(prometheus.Metric).Write(m))
		assert.Equal(t, count, m.GetHistogram().GetSampleCount(), status)
	}
}
