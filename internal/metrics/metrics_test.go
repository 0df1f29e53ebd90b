package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionsTotalByOutcome(t *testing.T) {
	before := testutil.ToFloat64(ActionsTotal.WithLabelValues("connect", OutcomeOK))
	ActionsTotal.WithLabelValues("connect", OutcomeOK).Inc()
	ActionsTotal.WithLabelValues("connect", OutcomeFailed).Inc()

	assert.Equal(t, before+1, testutil.ToFloat64(ActionsTotal.WithLabelValues("connect", OutcomeOK)))
}

func TestNetworkChanges(t *testing.T) {
	before := testutil.ToFloat64(NetworkChanges)
	NetworkChanges.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(NetworkChanges))
}

func TestHandlerExposesCounters(t *testing.T) {
	RPCCallsTotal.WithLabelValues("eth_chainId").Inc()
	TxConfirmSeconds.Observe(3)

	srv := httptest.NewServer(NewServer(":0").server.Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `vaultctl_rpc_calls_total{method="eth_chainId"}`)
	assert.Contains(t, string(body), "vaultctl_tx_confirm_seconds_bucket")
}

func TestServerStop(t *testing.T) {
	s := NewServer("127.0.0.1:0")
	done := make(chan error, 1)
	go func() { done <- s.Start() }()

	// Give ListenAndServe a moment to bind.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after Stop")
	}
}
