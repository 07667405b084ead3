package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorders(t *testing.T) {
	m := New()

	m.RecordUpload("success", 2048)
	m.RecordUpload("invalid", 0)
	m.RecordDelete("not_found")
	m.RecordOrphans(3)
	m.RecordHTTPRequest("GET", "/api/images", "200", 5*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.UploadsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UploadsTotal.WithLabelValues("invalid")))
	assert.Equal(t, 2048.0, testutil.ToFloat64(m.UploadedBytes))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DeletesTotal.WithLabelValues("not_found")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.OrphansSwept))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/images", "200")))
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.RecordUpload("success", 10)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `gallery_uploads_total{result="success"} 1`)
}

func TestInstancesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.RecordDelete("success")
	assert.Equal(t, 0.0, testutil.ToFloat64(b.DeletesTotal.WithLabelValues("success")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordUpload("success", 1)
		m.RecordDelete("success")
		m.RecordOrphans(1)
		m.RecordHTTPRequest("GET", "/", "200", time.Millisecond)
	})
}
