package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestMiddlewareRecordsRoute(t *testing.T) {
	r := gin.New()
	r.Use(Middleware())
	r.GET("/games/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/games/:id", "404"))
	unmatched := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "unmatched", "404"))

	for _, path := range []string{"/games/1", "/games/2", "/nope"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, before+2, testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/games/:id", "404")))
	assert.Equal(t, unmatched+1, testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "unmatched", "404")))
	assert.Zero(t, testutil.ToFloat64(APIActiveRequests))
}

func TestRecordDBQuery(t *testing.T) {
	before := testutil.ToFloat64(DBQueryErrors.WithLabelValues("list"))
	RecordDBQuery("list", time.Millisecond, nil)
	RecordDBQuery("list", time.Millisecond, errors.New("boom"))
	assert.Equal(t, before+1, testutil.ToFloat64(DBQueryErrors.WithLabelValues("list")))
}

func TestClientInstruments(t *testing.T) {
	before := testutil.ToFloat64(ClientRequestsTotal.WithLabelValues("detail", "ok"))
	RecordClientRequest("detail", "ok")
	assert.Equal(t, before+1, testutil.ToFloat64(ClientRequestsTotal.WithLabelValues("detail", "ok")))

	SetBreakerState(2)
	assert.Equal(t, 2.0, testutil.ToFloat64(ClientBreakerState))
	SetBreakerState(0)
}

func TestHandlerServesMetrics(t *testing.T) {
	RecordClientRequest("list", "ok")
	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "gamedex_client_requests_total")
}

func TestMetricsLint(t *testing.T) {
	problems, err := testutil.GatherAndLint(prometheus.DefaultGatherer, "gamedex_api_requests_total", "gamedex_client_requests_total")
	require.NoError(t, err)
	assert.Empty(t, problems)
}
