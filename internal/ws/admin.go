package ws

import "github.com/csmplay/mapban/internal/veto"

// dispatchAdmin handles the out-of-band admin surface. Connections
// without the admin flag are dropped silently, matching the trust model:
// the password screen in front of the admin UI is the only gate.
func (h *Hub) dispatchAdmin(c *Client, evt *Event) {
	if !c.admin {
		h.log.WithFields(map[string]interface{}{
			"conn":  c.id,
			"event": evt.Event,
		}).Debug("dropped admin event from non-admin")
		return
	}

	switch evt.Event {
	case InAdminStart:
		var p lobbyIDPayload
		if !decode(h, c, evt, &p) {
			return
		}
		h.ctrl.StartGame(p.LobbyID)

	case InAdminDelete:
		var p lobbyIDPayload
		if !decode(h, c, evt, &p) {
			return
		}
		h.ctrl.Delete(p.LobbyID)
		h.evictLobby(p.LobbyID)

	case InAdminCoinFlipUpdate:
		var p coinFlipPayload
		if !decode(h, c, evt, &p) {
			return
		}
		h.ctrl.SetCoinFlip(p.CoinFlip)

	case InAdminEditFPSMapPool:
		var p mapPoolPayload
		if !decode(h, c, evt, &p) {
			return
		}
		game := p.Game
		if game == "" {
			game = "cs2"
		}
		if err := h.ctrl.Catalog().SetFPSMapPool(game, p.MapPool); err != nil {
			h.log.WithError(err).Warn("map pool edit rejected")
			return
		}
		pool, _ := h.ctrl.Catalog().FPSMapPool(game)
		h.ToAll(veto.EvtMapNames, pool)

	case InAdminEditCardColors:
		var p cardColorsPayload
		if !decode(h, c, evt, &p) {
			return
		}
		h.ctrl.Catalog().SetCardColors(p.CardColors)
		h.ToAll(veto.EvtCardColorsUpdated, h.ctrl.Catalog().CardColors())

	case InAdminSetObsLobby:
		var p lobbyIDPayload
		if !decode(h, c, evt, &p) {
			return
		}
		h.setObsLobby(p.LobbyID)

	case InAdminPlayObs:
		var p lobbyIDPayload
		if !decode(h, c, evt, &p) {
			return
		}
		h.ctrl.PlayObs(p.LobbyID)

	case InAdminClearObs:
		var p lobbyIDPayload
		if !decode(h, c, evt, &p) {
			return
		}
		h.ctrl.ClearObs(p.LobbyID)
	}
}

// evictLobby tears the lobby room down. Runs after the lobbyDeleted
// broadcast so the room still exists when it is announced.
func (h *Hub) evictLobby(lobbyID string) {
	h.mu.Lock()
	for _, c := range h.clients {
		delete(c.lobbies, lobbyID)
	}
	h.mu.Unlock()
}
