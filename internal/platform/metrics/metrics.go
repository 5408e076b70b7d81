package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's Prometheus collectors. Every method is safe on a
// nil receiver so services can run without metrics wired.
type Metrics struct {
	Promotions        *prometheus.CounterVec
	Rollbacks         *prometheus.CounterVec
	Suspensions       *prometheus.CounterVec
	Resumptions       *prometheus.CounterVec
	GatesOpened       *prometheus.CounterVec
	GatesFulfilled    *prometheus.CounterVec
	FeatureChecks     *prometheus.CounterVec
	CommitConflicts   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	OutboxPublished   prometheus.Counter
	OutboxFailures    prometheus.Counter
	MaintenanceUsers  *prometheus.CounterVec
	HTTPRequests      *prometheus.HistogramVec
}

// New registers the collectors with the default registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the collectors with reg. Tests pass a fresh
// prometheus.NewRegistry() to avoid duplicate registration.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Promotions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ascent_promotions_total",
			Help: "Level promotions committed, by domain and whether a cascade triggered them",
		}, []string{"domain", "cascade"}),
		Rollbacks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ascent_rollbacks_total",
			Help: "Level rollbacks applied on external suspension",
		}, []string{"domain"}),
		Suspensions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ascent_suspensions_total",
			Help: "Domain suspensions, by cause",
		}, []string{"domain", "cause"}),
		Resumptions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ascent_resumptions_total",
			Help: "Domain resumptions, by whether a timer triggered them",
		}, []string{"domain", "timed"}),
		GatesOpened: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ascent_gates_opened_total",
			Help: "Compliance gates opened, by blocked feature",
		}, []string{"feature"}),
		GatesFulfilled: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ascent_gates_fulfilled_total",
			Help: "Compliance gates fulfilled, by action",
		}, []string{"action"}),
		FeatureChecks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ascent_feature_checks_total",
			Help: "Feature access checks, by outcome",
		}, []string{"allowed"}),
		CommitConflicts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ascent_commit_conflicts_total",
			Help: "Commits rejected because the state changed after it was read",
		}, []string{"operation"}),
		OperationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ascent_operation_duration_seconds",
			Help:    "Latency of engine operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		OutboxPublished: f.NewCounter(prometheus.CounterOpts{
			Name: "ascent_outbox_published_total",
			Help: "Event log entries published to the broker",
		}),
		OutboxFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "ascent_outbox_failures_total",
			Help: "Outbox batches that failed to publish",
		}),
		MaintenanceUsers: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ascent_maintenance_users_total",
			Help: "Users processed by the maintenance pass, by result",
		}, []string{"result"}),
		HTTPRequests: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ascent_http_request_duration_seconds",
			Help:    "HTTP request latency, by route pattern and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

func (m *Metrics) IncPromotion(domain string, cascade bool) {
	if m == nil {
		return
	}
	m.Promotions.WithLabelValues(domain, strconv.FormatBool(cascade)).Inc()
}

func (m *Metrics) IncRollback(domain string) {
	if m == nil {
		return
	}
	m.Rollbacks.WithLabelValues(domain).Inc()
}

func (m *Metrics) IncSuspension(domain, cause string) {
	if m == nil {
		return
	}
	m.Suspensions.WithLabelValues(domain, cause).Inc()
}

func (m *Metrics) IncResumption(domain string, timed bool) {
	if m == nil {
		return
	}
	m.Resumptions.WithLabelValues(domain, strconv.FormatBool(timed)).Inc()
}

func (m *Metrics) IncGateOpened(feature string) {
	if m == nil {
		return
	}
	m.GatesOpened.WithLabelValues(feature).Inc()
}

func (m *Metrics) IncGateFulfilled(action string) {
	if m == nil {
		return
	}
	m.GatesFulfilled.WithLabelValues(action).Inc()
}

func (m *Metrics) IncFeatureCheck(allowed bool) {
	if m == nil {
		return
	}
	m.FeatureChecks.WithLabelValues(strconv.FormatBool(allowed)).Inc()
}

func (m *Metrics) IncCommitConflict(operation string) {
	if m == nil {
		return
	}
	m.CommitConflicts.WithLabelValues(operation).Inc()
}

// ObserveOperation records the time since start.
func (m *Metrics) ObserveOperation(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// ObserveRelayBatch counts published entries and failed batches.
func (m *Metrics) ObserveRelayBatch(published int, err error) {
	if m == nil {
		return
	}
	m.OutboxPublished.Add(float64(published))
	if err != nil {
		m.OutboxFailures.Inc()
	}
}

func (m *Metrics) IncMaintenanceUser(result string) {
	if m == nil {
		return
	}
	m.MaintenanceUsers.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveHTTPRequest(method, route string, status int, start time.Time) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
}
