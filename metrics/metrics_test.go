package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.MessageReceived("SERVER_INFO")
	m.MessageReceived("SERVER_INFO")
	m.MessageDropped(ReasonIntegrity)
	m.FileDeleted()
	m.FileWritten(10)
	m.FileWritten(5)
	m.SessionFinished("sync", ResultOK)
	m.SetConnectionState(2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.messagesTotal.WithLabelValues("SERVER_INFO")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.messagesDropped.WithLabelValues(ReasonIntegrity)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.filesDeleted))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.filesWritten))
	assert.Equal(t, 15.0, testutil.ToFloat64(m.bytesWritten))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionsTotal.WithLabelValues("sync", ResultOK)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.connectionState))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.MessageReceived("X")
		m.MessageDropped(ReasonParse)
		m.FileDeleted()
		m.FileWritten(1)
		m.SessionFinished("sync", ResultOK)
		m.SetConnectionState(0)
	})
	assert.Nil(t, m.Registry())
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.FileDeleted()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "patchsync_files_deleted_total 1"))
}
