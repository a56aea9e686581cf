package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ inventory.Metrics = (*Ledger)(nil)

// Ledger métricas del libro y de la API HTTP sobre un registry propio.
type Ledger struct {
	registry *prometheus.Registry

	MovementsTotal   *prometheus.CounterVec
	ErrorsTotal      *prometheus.CounterVec
	OperationSeconds *prometheus.HistogramVec

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New registra las métricas bajo el namespace dado ("ledger" si viene vacío).
func New(namespace string) *Ledger {
	if namespace == "" {
		namespace = "ledger"
	}
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Ledger{registry: registry}

	m.MovementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "movements_total",
			Help:      "Movimientos escritos por operación, dirección y estado resultante",
		},
		[]string{"operation", "direction", "status"},
	)

	m.ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Operaciones fallidas por tipo de error",
		},
		[]string{"operation", "kind"},
	)

	m.OperationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_seconds",
			Help:      "Duración de las operaciones del libro (incluye la espera por bloqueos)",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Peticiones HTTP por método, ruta y status",
		},
		[]string{"method", "path", "status"},
	)

	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duración de las peticiones HTTP",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	registry.MustRegister(
		m.MovementsTotal,
		m.ErrorsTotal,
		m.OperationSeconds,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)
	return m
}

// ObserveOperation duración de la operación y, si falló, su tipo de error.
func (m *Ledger) ObserveOperation(operation string, started time.Time, err error) {
	m.OperationSeconds.WithLabelValues(operation).Observe(time.Since(started).Seconds())
	if err != nil {
		m.ErrorsTotal.WithLabelValues(operation, inventory.ErrorKind(err)).Inc()
	}
}

// MovementRecorded cuenta el movimiento escrito o decidido.
func (m *Ledger) MovementRecorded(operation string, mov *entity.Movement) {
	m.MovementsTotal.WithLabelValues(operation, string(mov.Direction), string(mov.Status)).Inc()
}

// ObserveHTTP registra una petición terminada.
func (m *Ledger) ObserveHTTP(method, path string, status int, started time.Time) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(started).Seconds())
}

// Handler expone el registry en formato Prometheus.
func (m *Ledger) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry acceso directo (tests y collectors adicionales).
func (m *Ledger) Registry() *prometheus.Registry {
	return m.registry
}
