package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Action outcomes.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
	OutcomeSkip   = "skipped"
)

var (
	// ActionsTotal counts UI actions by name and outcome.
	ActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vaultctl_actions_total",
			Help: "Total number of user actions handled",
		},
		[]string{"action", "outcome"},
	)

	// RPCCallsTotal counts JSON-RPC calls per method.
	RPCCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vaultctl_rpc_calls_total",
			Help: "Total number of JSON-RPC calls",
		},
		[]string{"method"},
	)

	// RPCErrorsTotal counts failed JSON-RPC calls per method.
	RPCErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vaultctl_rpc_errors_total",
			Help: "Total number of failed JSON-RPC calls",
		},
		[]string{"method"},
	)

	// RPCLatency tracks JSON-RPC round trip time.
	RPCLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vaultctl_rpc_latency_seconds",
			Help:    "JSON-RPC call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// TxConfirmSeconds tracks how long transactions take to be mined.
	TxConfirmSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vaultctl_tx_confirm_seconds",
			Help:    "Time from broadcast to receipt",
			Buckets: []float64{2, 5, 10, 15, 30, 60, 120, 300},
		},
	)

	// NetworkChanges counts chain-changed notifications delivered to the app.
	NetworkChanges = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vaultctl_network_changes_total",
			Help: "Total number of chain-changed notifications",
		},
	)
)

// Server exposes /metrics over HTTP.
type Server struct {
	server *http.Server
}

// NewServer creates a metrics server listening on addr (e.g. ":9464").
func NewServer(addr string) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start serves until Stop is called. http.ErrServerClosed is not an error.
func (s *Server) Start() error {
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
