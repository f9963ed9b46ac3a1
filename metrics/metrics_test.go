package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sagarc03/privatemedia"
	"github.com/sagarc03/privatemedia/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeMethod(t *testing.T) {
	tests := []struct {
		method string
		want   string
	}{
		{method: "GET", want: "GET"},
		{method: "HEAD", want: "HEAD"},
		{method: "OPTIONS", want: "OPTIONS"},
		{method: "PROPFIND", want: "other"},
		{method: "get", want: "other"},
		{method: "", want: "other"},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			assert.Equal(t, tt.want, metrics.NormalizeMethod(tt.method))
		})
	}
}

func TestMetrics_ObserveResponse(t *testing.T) {
	m := metrics.New()

	m.ObserveResponse("ok", "direct")
	m.ObserveResponse("ok", "direct")
	m.ObserveResponse("not_found", "x-sendfile")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.Responses.WithLabelValues("ok", "direct")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Responses.WithLabelValues("not_found", "x-sendfile")))
}

func TestMetrics_ServedFileBytesIsSizeObserver(t *testing.T) {
	m := metrics.New()

	var observer privatemedia.SizeObserver = m.ServedFileBytes
	observer.Observe(2048)

	assert.Equal(t, 1, testutil.CollectAndCount(m.ServedFileBytes))
}

func TestMetrics_Handler(t *testing.T) {
	m := metrics.New()
	m.RequestsTotal.WithLabelValues("GET", "200").Inc()
	m.ObserveResponse("not_modified", "direct")
	m.ServedFileBytes.Observe(512)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	res, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(body), `privatemedia_http_requests_total{method="GET",status_code="200"} 1`)
	assert.Contains(t, string(body), `privatemedia_responses_total{backend="direct",status="not_modified"} 1`)
	assert.Contains(t, string(body), `privatemedia_served_file_bytes_count 1`)
	assert.Contains(t, string(body), `privatemedia_http_requests_in_flight 0`)
	assert.Contains(t, string(body), `go_goroutines`)
}
