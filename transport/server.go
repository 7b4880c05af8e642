// Package transport implements the node's inbound HTTP surface and
// outbound broadcast client, mirroring the chi-router-plus-middleware
// shape this codebase's API gateway uses for its own routes.
package transport

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ledgrid/internal/observability/metrics"
)

// Handler processes one inbound endpoint's decoded payload and returns the
// raw response body to write back (may be nil).
type Handler func(origin string, payload []byte) ([]byte, error)

// Config wires every inbound endpoint this node serves to its handler.
type Config struct {
	Handlers map[string]Handler
	Metrics  *metrics.Registry
	Logger   *slog.Logger
}

// NewServer builds the chi router serving every registered endpoint plus
// /healthz and /metrics.
func NewServer(cfg Config) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler())
	}

	for path, handler := range cfg.Handlers {
		r.Post(path, wrap(path, handler, cfg))
	}

	return r
}

type errorBody struct {
	Error string `json:"error"`
}

// wrap applies request accounting and the protocol's "always 200, errors
// in the body" response convention (§7): a failed handler still writes
// 200 so the peer distinguishes transport failures from protocol ones and
// retries the logical operation on its next tick rather than backing off
// on the connection.
func wrap(path string, handler Handler, cfg Config) http.HandlerFunc {
	base := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := ReadOrigin(r)
		payload, err := ReadPayload(r)
		if err != nil {
			writeError(w, cfg.Logger, path, err)
			return
		}

		resp, err := handler(origin, payload)
		if err != nil {
			writeError(w, cfg.Logger, path, err)
			return
		}

		w.WriteHeader(http.StatusOK)
		if resp != nil {
			_, _ = w.Write(resp)
		}
	})

	if cfg.Metrics != nil {
		return cfg.Metrics.Middleware(path)(base).ServeHTTP
	}
	return base.ServeHTTP
}

func writeError(w http.ResponseWriter, logger *slog.Logger, path string, err error) {
	if logger != nil {
		logger.Warn("inbound request failed", "endpoint", path, "error", err.Error())
	}
	body, _ := json.Marshal(errorBody{Error: err.Error()})
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
