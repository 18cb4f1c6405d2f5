package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics набор prometheus-метрик сервиса.
// Все методы безопасны для nil-получателя: при выключенных метриках
// компоненты получают nil и ничего не пишут.
type Metrics struct {
	registry    *prometheus.Registry
	serviceName string

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	DBQueryDuration   *prometheus.HistogramVec
	DBConnections     *prometheus.GaugeVec
	DBTxRetriesTotal  *prometheus.CounterVec
	DBQueryErrorTotal *prometheus.CounterVec

	SlotComputationsTotal  *prometheus.CounterVec
	SlotFetchFailuresTotal *prometheus.CounterVec
	MalformedBookingsTotal *prometheus.CounterVec
	BookingConflictsTotal  *prometheus.CounterVec
}

// New создает и регистрирует метрики в собственном registry
func New(serviceName string) *Metrics {
	m := &Metrics{
		registry:    prometheus.NewRegistry(),
		serviceName: serviceName,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"service", "method", "path", "status"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"service", "method", "path"}),

		DBQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"service", "operation"}),

		DBConnections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "db_connections",
			Help: "Database connection pool state",
		}, []string{"service", "state"}),

		DBTxRetriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "db_tx_retries_total",
			Help: "Serializable transactions retried after a serialization failure",
		}, []string{"service"}),

		DBQueryErrorTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "db_query_errors_total",
			Help: "Failed database queries",
		}, []string{"service", "operation"}),

		SlotComputationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "slot_computations_total",
			Help: "Slot availability computations",
		}, []string{"service", "mode"}),

		SlotFetchFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "slot_fetch_failures_total",
			Help: "Booking reads that failed during slot computation",
		}, []string{"service", "source"}),

		MalformedBookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "slot_malformed_bookings_total",
			Help: "Bookings skipped because their time slot is not in the catalog",
		}, []string{"service", "source"}),

		BookingConflictsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "booking_conflicts_total",
			Help: "Booking writes rejected because the slot was already taken",
		}, []string{"service", "operation"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.DBQueryDuration,
		m.DBConnections,
		m.DBTxRetriesTotal,
		m.DBQueryErrorTotal,
		m.SlotComputationsTotal,
		m.SlotFetchFailuresTotal,
		m.MalformedBookingsTotal,
		m.BookingConflictsTotal,
	)

	return m
}

// Handler возвращает http.Handler для эндпоинта /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry нужен для тестов
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(m.serviceName, method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(m.serviceName, method, path).Observe(duration.Seconds())
}

func (m *Metrics) ObserveDBQuery(operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.DBQueryDuration.WithLabelValues(m.serviceName, operation).Observe(duration.Seconds())
	if err != nil {
		m.DBQueryErrorTotal.WithLabelValues(m.serviceName, operation).Inc()
	}
}

func (m *Metrics) SetDBConnections(state string, value float64) {
	if m == nil {
		return
	}
	m.DBConnections.WithLabelValues(m.serviceName, state).Set(value)
}

func (m *Metrics) IncTxRetry() {
	if m == nil {
		return
	}
	m.DBTxRetriesTotal.WithLabelValues(m.serviceName).Inc()
}

func (m *Metrics) IncSlotComputation(mode string) {
	if m == nil {
		return
	}
	m.SlotComputationsTotal.WithLabelValues(m.serviceName, mode).Inc()
}

func (m *Metrics) IncSlotFetchFailure(source string) {
	if m == nil {
		return
	}
	m.SlotFetchFailuresTotal.WithLabelValues(m.serviceName, source).Inc()
}

func (m *Metrics) IncMalformedBooking(source string) {
	if m == nil {
		return
	}
	m.MalformedBookingsTotal.WithLabelValues(m.serviceName, source).Inc()
}

func (m *Metrics) IncBookingConflict(operation string) {
	if m == nil {
		return
	}
	m.BookingConflictsTotal.WithLabelValues(m.serviceName, operation).Inc()
}
