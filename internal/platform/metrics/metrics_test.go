package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := NewWithRegisterer(prometheus.NewRegistry())

	m.IncPromotion("sleep", false)
	m.IncPromotion("sleep", true)
	m.IncPromotion("sleep", true)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Promotions.WithLabelValues("sleep", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Promotions.WithLabelValues("sleep", "false")))

	m.ObserveRelayBatch(5, nil)
	m.ObserveRelayBatch(0, errors.New("down"))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.OutboxPublished))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OutboxFailures))

	m.ObserveOperation("advance", time.Now())
	assert.Equal(t, 1, testutil.CollectAndCount(m.OperationDuration))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncPromotion("sleep", false)
		m.IncRollback("sleep")
		m.IncSuspension("sleep", "manual")
		m.IncResumption("sleep", true)
		m.IncGateOpened("f")
		m.IncGateFulfilled("a")
		m.IncFeatureCheck(true)
		m.IncCommitConflict("advance")
		m.ObserveOperation("advance", time.Now())
		m.ObserveRelayBatch(1, nil)
		m.IncMaintenanceUser("ok")
		m.ObserveHTTPRequest("GET", "/healthz", 200, time.Now())
	})
}
