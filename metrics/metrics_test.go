package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserveBroadcastCounts(t *testing.T) {
	before := testutil.ToFloat64(BroadcastCounter("local", "ok"))
	ObserveBroadcast("local", "ok", 0.2)
	require.Equal(t, before+1, testutil.ToFloat64(BroadcastCounter("local", "ok")))
}

func TestHandlerExposesCounters(t *testing.T) {
	ObserveDetect("hierarchical")

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(body), `hivewallet_detect_total{result="hierarchical"}`))
}
