package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegisterTwice(t *testing.T) {
	assert.NotPanics(t, func() {
		Register()
		Register()
	})
}

func TestObserveScan(t *testing.T) {
	ObserveScan("ok", time.Now(), 3)
	assert.Equal(t, 3.0, testutil.ToFloat64(ActiveSignals))

	before := testutil.ToFloat64(ScansTotal.WithLabelValues("cancelled"))
	ObserveScan("cancelled", time.Now(), 0)
	assert.Equal(t, before+1, testutil.ToFloat64(ScansTotal.WithLabelValues("cancelled")))
	assert.Equal(t, 3.0, testutil.ToFloat64(ActiveSignals))
}

func TestHandler(t *testing.T) {
	ObserveTask(StateAccepted)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pairfinder_symbol_tasks_total")
}
