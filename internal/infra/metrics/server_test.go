package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeReadiness bool

func (f fakeReadiness) Ready() bool { return bool(f) }

func TestHandlerHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHandler(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestHandlerReadyz(t *testing.T) {
	tests := []struct {
		name  string
		ready bool
		code  int
	}{
		{"loading", false, http.StatusServiceUnavailable},
		{"loaded", true, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewHandler(fakeReadiness(tt.ready)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestHandlerExposesAffectMetrics(t *testing.T) {
	FramesAnalyzedTotal.WithLabelValues(OutcomeNoFace).Inc()

	rec := httptest.NewRecorder()
	NewHandler(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `affect_frames_analyzed_total{outcome="no_face"}`)
}

func TestHandlerModelLoadedFollowsReadiness(t *testing.T) {
	ModelLoaded.Set(1)

	rec := httptest.NewRecorder()
	NewHandler(fakeReadiness(false)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "affect_model_loaded 0")

	rec = httptest.NewRecorder()
	NewHandler(fakeReadiness(true)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "affect_model_loaded 1")
}
