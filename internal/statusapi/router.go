// Package statusapi serves the local observability surface of the client:
// health, session and world snapshots, and expvar counters. It is meant for
// localhost tooling, not for exposure to the session server's network.
package statusapi

import (
	"context"
	"encoding/json"
	"expvar"
	"net/http"

	"plaza-client/internal/profile"
	"plaza-client/internal/session"
	"plaza-client/internal/state"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Source is the read-only view the running client exposes.
type Source interface {
	SessionView() session.View
	WorldView() map[string]state.Player
	ProfileStore() profile.Store
}

func NewRouter(src Source) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.With(LogMiddleware()).Get("/healthz", healthHandler(src))
	r.Route("/status", func(r chi.Router) {
		r.Use(LogMiddleware())
		r.Get("/session", sessionHandler(src))
		r.Get("/world", worldHandler(src))
	})
	r.With(LogMiddleware()).Get("/debug/vars", expvar.Handler().ServeHTTP)
	return r
}

func healthHandler(src Source) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()
		if err := src.ProfileStore().Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "error": "profile_store_unreachable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

func sessionHandler(src Source) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, src.SessionView())
	}
}

func worldHandler(src Source) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		world := src.WorldView()
		players := make([]state.Player, 0, len(world))
		for _, p := range world {
			players = append(players, p)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"player_count": len(players),
			"players":      players,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
