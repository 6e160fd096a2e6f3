// Package metrics defines the Prometheus collectors shared by the ledger
// node, the resolver gateway and the client SDK, and the HTTP handler that
// exposes them on the metrics listener.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var registry = prometheus.NewRegistry()

var (
	// HTTPRequests counts handled HTTP requests by route and status code.
	HTTPRequests = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Name: "identity_registry_http_requests_total",
		Help: "Handled HTTP requests by route and status code.",
	}, []string{"route", "code"})

	// TransactionsExecuted counts ledger transactions by contract, method
	// and outcome ("ok" or "reverted").
	TransactionsExecuted = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Name: "identity_registry_transactions_total",
		Help: "Executed ledger transactions by contract, method and outcome.",
	}, []string{"contract", "method", "outcome"})

	// QuorumReads counts quorum-verified reads by outcome ("ok",
	// "not_reached" or "error").
	QuorumReads = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Name: "identity_registry_quorum_reads_total",
		Help: "Quorum-verified read attempts by outcome.",
	}, []string{"outcome"})

	// CallDuration observes ledger call latency in seconds by contract.
	CallDuration = promauto.With(registry).NewHistogramVec(prometheus.HistogramOpts{
		Name:    "identity_registry_call_duration_seconds",
		Help:    "Ledger call latency in seconds by contract.",
		Buckets: prometheus.DefBuckets,
	}, []string{"contract"})
)

func init() {
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

// Handler returns the HTTP handler serving the package collectors, mounted
// by the servers on their metrics listen address.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
