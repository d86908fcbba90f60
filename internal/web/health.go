package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// healthTimeout bounds the backend probe made by /healthz.
const healthTimeout = 5 * time.Second

type healthResponse struct {
	OK      bool   `json:"ok"`
	Service string `json:"service"`
	Time    string `json:"time"`
	Backend string `json:"backend"`
}

// Health handles GET /healthz. The console reports itself healthy even when
// the backend is not; the backend field carries the probe result.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := healthResponse{
		OK:      true,
		Service: "atlas-admin",
		Time:    time.Now().UTC().Format(time.RFC3339),
		Backend: "ok",
	}
	if err := s.Client.Health(ctx); err != nil {
		resp.Backend = err.Error()
	}

	jsonResponse(w, http.StatusOK, resp)
}

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("error encoding response", "error", err)
	}
}
