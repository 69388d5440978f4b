package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/oenmin/affect-analyzer/internal/domain/port"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewHandler serves /metrics, /healthz and, when readiness is given, /readyz.
func NewHandler(readiness port.ModelReadiness) http.Handler {
	mux := http.NewServeMux()
	scrape := promhttp.Handler()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		// The worker can drop out after loading; report what it says now.
		if readiness != nil {
			ModelLoaded.Set(boolGauge(readiness.Ready()))
		}
		scrape.ServeHTTP(w, r)
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	if readiness != nil {
		mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
			if !readiness.Ready() {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte("model loading"))
				return
			}
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok"))
		})
	}
	return mux
}

// StartMetricsServer serves NewHandler on port until ctx is cancelled.
func StartMetricsServer(ctx context.Context, port int, readiness port.ModelReadiness, logger *zap.Logger) *http.Server {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           NewHandler(readiness),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("metrics server starting", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	return srv
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
