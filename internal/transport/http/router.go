package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	ledgerhandler "partnerd/internal/ledger/handler"
	"partnerd/internal/platform/middleware"
	registryhandler "partnerd/internal/registry/handler"
)

// NewRouter wires all public endpoints behind the common middleware chain.
// The transport layer stays thin: handlers delegate to domain services and
// translate errors, nothing more.
func NewRouter(
	registry *registryhandler.Handler,
	ledger *ledgerhandler.Handler,
	validator middleware.JWTValidator,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ContentTypeJSON)

	registry.Register(r, validator)
	ledger.Register(r, validator)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}
