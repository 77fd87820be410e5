package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Métricas HTTP y de intercambio. Viven en un paquete aparte para evitar
// ciclos de import entre los controllers y el paquete HTTP.

var (
	initOnce sync.Once

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpInflight        *prometheus.GaugeVec

	exchangesTotal *prometheus.CounterVec
)

// Register inicializa las métricas sobre el registry dado (o el default si es
// nil) y devuelve el handler para /metrics.
func Register(reg prometheus.Registerer) (http.Handler, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	initOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Número total de requests procesadas",
		}, []string{"method", "path", "status"})

		httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latencia de los requests HTTP",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"})

		httpInflight = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Requests en vuelo por método y ruta",
		}, []string{"method", "path"})

		exchangesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "token_exchanges_total",
			Help: "Intercambios de token por provider y resultado",
		}, []string{"provider", "result"}) // result: ok|rejected|error
	})

	// Los collectors son globales pero se registran en cada registry que se
	// pase; registerCollector ignora duplicados en llamadas repetidas.
	for _, c := range []prometheus.Collector{
		httpRequestsTotal, httpRequestDuration, httpInflight, exchangesTotal,
	} {
		if err := registerCollector(reg, c); err != nil {
			return nil, err
		}
	}

	// El handler tiene que servir el registry sobre el que registramos, no el
	// gatherer default.
	if g, ok := reg.(prometheus.Gatherer); ok {
		return promhttp.HandlerFor(g, promhttp.HandlerOpts{}), nil
	}
	return promhttp.Handler(), nil
}

// registerCollector registra el collector ignorando duplicados.
func registerCollector(reg prometheus.Registerer, collector prometheus.Collector) error {
	if err := reg.Register(collector); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return nil
		}
		return err
	}
	return nil
}

// WithHTTP instrumenta requests HTTP con métricas Prometheus.
func WithHTTP(next http.Handler) http.Handler {
	if next == nil {
		return nil
	}
	if httpRequestsTotal == nil || httpRequestDuration == nil || httpInflight == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := strings.ToUpper(r.Method)
		pathLabel := normalizePath(r.URL.Path)

		httpInflight.WithLabelValues(method, pathLabel).Inc()
		start := time.Now()

		rec := &statusRecorder{ResponseWriter: w}
		defer func() {
			httpInflight.WithLabelValues(method, pathLabel).Dec()
			httpRequestDuration.WithLabelValues(method, pathLabel).Observe(time.Since(start).Seconds())

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			httpRequestsTotal.WithLabelValues(method, pathLabel, strconv.Itoa(status)).Inc()
		}()

		next.ServeHTTP(rec, r)
	})
}

// RecordExchange registra el resultado de un intercambio.
func RecordExchange(provider, result string) {
	if exchangesTotal != nil {
		exchangesTotal.WithLabelValues(provider, result).Inc()
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// normalizePath acota la cardinalidad de los labels: toda la superficie es
// estática salvo query params, que nunca forman parte del path.
func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	// Los paths acá son fijos; cualquier cosa demasiado larga es ruido.
	if len(p) > 64 {
		return "/:other"
	}
	return p
}
