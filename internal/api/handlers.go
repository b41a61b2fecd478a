package api

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/csmplay/mapban/internal/config"
	"github.com/csmplay/mapban/internal/veto"
)

// Handler serves the read-only JSON endpoints. Everything it returns is a
// snapshot; the live state travels over the event channel.
type Handler struct {
	ctrl *veto.Controller
	cfg  *config.Config
	log  *logrus.Logger
}

func NewHandler(ctrl *veto.Controller, cfg *config.Config, log *logrus.Logger) *Handler {
	return &Handler{ctrl: ctrl, cfg: cfg, log: log}
}

func (h *Handler) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.WithError(err).Error("encode response")
	}
}

// CardColors returns the cosmetic palette.
func (h *Handler) CardColors(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.ctrl.Catalog().CardColors())
}

// Lobbies lists every lobby; team names keep their join order.
func (h *Handler) Lobbies(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.ctrl.LobbyList())
}

// MapPool returns the current FPS pool.
func (h *Handler) MapPool(w http.ResponseWriter, r *http.Request) {
	game := r.URL.Query().Get("game")
	if game == "" {
		game = "cs2"
	}
	pool, err := h.ctrl.Catalog().FPSMapPool(game)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	h.writeJSON(w, pool)
}

// CoinFlip returns the process-wide default for new lobbies.
func (h *Handler) CoinFlip(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string]bool{"coinFlip": h.ctrl.CoinFlip()})
}

// RuntimeEnv tells the UI which environment it talks to.
func (h *Handler) RuntimeEnv(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string]string{"environment": h.cfg.Environment})
}
