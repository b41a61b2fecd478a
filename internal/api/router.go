package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/csmplay/mapban/internal/api/middleware"
	"github.com/csmplay/mapban/internal/config"
	"github.com/csmplay/mapban/internal/veto"
	"github.com/csmplay/mapban/internal/ws"
)

func NewRouter(ctrl *veto.Controller, hub *ws.Hub, cfg *config.Config, log *logrus.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.Logging(log))
	r.Use(middleware.CORS)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	h := NewHandler(ctrl, cfg, log)

	r.Route("/api", func(r chi.Router) {
		r.Get("/cardColors", h.CardColors)
		r.Get("/lobbies", h.Lobbies)
		r.Get("/mapPool", h.MapPool)
		r.Get("/coinFlip", h.CoinFlip)
		r.Get("/runtime-env", h.RuntimeEnv)
	})

	// Event channel
	r.Get("/ws", hub.ServeWS)

	return r
}
