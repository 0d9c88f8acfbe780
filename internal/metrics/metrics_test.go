package metrics_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ufc-indexer/internal/metrics"
)

func TestRegister_Idempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		metrics.Register()
		metrics.Register()
	})
}

func TestPush(t *testing.T) {
	var path, method string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		method = r.Method
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	before := testutil.ToFloat64(metrics.FightsWritten)
	metrics.FightsWritten.Add(3)
	assert.Equal(t, before+3, testutil.ToFloat64(metrics.FightsWritten))

	err := metrics.Push(context.Background(), server.URL, "ufc-indexer", "ingest")
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, method)
	assert.True(t, strings.HasPrefix(path, "/metrics/job/ufc-indexer/command/ingest"), path)
}

func TestPush_GatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	err := metrics.Push(context.Background(), server.URL, "ufc-indexer", "ingest")
	assert.Error(t, err)
}
