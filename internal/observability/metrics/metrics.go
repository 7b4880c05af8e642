// Package metrics exposes the Prometheus counters and histograms the node
// and its HTTP transport record, mirroring the counter/histogram pairing
// the gateway's observability middleware uses for request accounting.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every metric this node emits.
type Registry struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	ProposalTransitions *prometheus.CounterVec
	BlocksCommitted      prometheus.Counter
	TransactionsExecuted prometheus.Counter
	BroadcastErrors      *prometheus.CounterVec
}

var (
	once     sync.Once
	instance *Registry
)

// New lazily builds and registers the node's metric set. Repeated calls
// return the same instance so multiple packages can share one registry.
func New() *Registry {
	once.Do(func() {
		reg := prometheus.NewRegistry()
		r := &Registry{
			registry: reg,
			HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "ledger",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total inbound HTTP requests by endpoint and status.",
			}, []string{"endpoint", "status"}),
			HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "ledger",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Inbound HTTP request latency by endpoint.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"endpoint"}),
			ProposalTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "ledger",
				Subsystem: "proposal",
				Name:      "transitions_total",
				Help:      "Proposal state machine transitions by resulting status.",
			}, []string{"status"}),
			BlocksCommitted: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "ledger",
				Subsystem: "chain",
				Name:      "blocks_committed_total",
				Help:      "Total blocks committed to the local chain.",
			}),
			TransactionsExecuted: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "ledger",
				Subsystem: "chain",
				Name:      "transactions_executed_total",
				Help:      "Total transactions executed against world state.",
			}),
			BroadcastErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "ledger",
				Subsystem: "transport",
				Name:      "broadcast_errors_total",
				Help:      "Outbound broadcast failures by endpoint.",
			}, []string{"endpoint"}),
		}
		reg.MustRegister(r.HTTPRequests, r.HTTPDuration, r.ProposalTransitions, r.BlocksCommitted, r.TransactionsExecuted, r.BroadcastErrors)
		instance = r
	})
	return instance
}

// Handler exposes the registry for Prometheus scraping.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Middleware records request counts and latency for the named endpoint.
func (r *Registry) Middleware(endpoint string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, req)
			r.HTTPRequests.WithLabelValues(endpoint, http.StatusText(rec.status)).Inc()
			r.HTTPDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		})
	}
}
