package health

import (
	"context"
	"net/http"
	"time"

	"student-console/internal/httputil"

	"github.com/go-chi/chi/v5"
)

// Checker reports whether a dependency is usable.
type Checker func(ctx context.Context) error

type Handler struct {
	ready Checker
}

// NewHandler returns health endpoints. ready may be nil, in which case
// /ready always succeeds.
func NewHandler(ready Checker) *Handler {
	return &Handler{ready: ready}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
}

type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.RespondWithJSON(w, http.StatusOK, Response{Status: "ok"})
}

func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.ready(ctx); err != nil {
			httputil.RespondWithJSON(w, http.StatusServiceUnavailable, Response{Status: "unavailable", Error: err.Error()})
			return
		}
	}
	httputil.RespondWithJSON(w, http.StatusOK, Response{Status: "ready"})
}
