package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/2beens/dailyfit/internal/telemetry/metrics"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestMetrics(t *testing.T) {
	metricsManager := metrics.NewTestManager()

	r := mux.NewRouter()
	r.HandleFunc("/workouts/{id}", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}).Methods("GET").Name("get-workout")
	r.HandleFunc("/workout", func(w http.ResponseWriter, r *http.Request) {}).Methods("GET")
	r.Use(RequestMetrics(metricsManager))

	for _, path := range []string{"/workouts/a", "/workouts/b", "/workout"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest("GET", path, nil))
	}

	assert.Equal(t, float64(2), testutil.ToFloat64(metricsManager.CounterRequests.WithLabelValues("GET", "404")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metricsManager.CounterRequests.WithLabelValues("GET", "200")))
	assert.Equal(t, 2, testutil.CollectAndCount(metricsManager.HistogramRequestDuration))
}

func TestLimitAndDrainRequest(t *testing.T) {
	body := &trackingBody{Reader: strings.NewReader("leftover body")}
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Body = body

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	LimitAndDrainRequest(1024)(next).ServeHTTP(httptest.NewRecorder(), req)

	require.True(t, body.closed)
	rest, _ := io.ReadAll(body.Reader)
	assert.Empty(t, rest)
}

func TestLimitAndDrainRequest_TooLarge(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/workout/sets", strings.NewReader(`{"reps":"10","weight":"60"}`))

	var readErr error
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	})
	LimitAndDrainRequest(8)(next).ServeHTTP(httptest.NewRecorder(), req)

	var maxBytesErr *http.MaxBytesError
	require.ErrorAs(t, readErr, &maxBytesErr)
	assert.Equal(t, int64(8), maxBytesErr.Limit)
}

type trackingBody struct {
	io.Reader
	closed bool
}

func (b *trackingBody) Close() error {
	b.closed = true
	return nil
}
