package ws

import (
	"encoding/json"
	"strings"
	"unicode"

	"github.com/csmplay/mapban/internal/veto"
)

const maxTeamNameLen = 32

// sanitizeTeamName strips control characters, trims, and caps the length.
// The empty result means the event is dropped.
func sanitizeTeamName(name string) (string, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return "", false
	}
	runes := []rune(cleaned)
	if len(runes) > maxTeamNameLen {
		cleaned = string(runes[:maxTeamNameLen])
	}
	return cleaned, true
}

// dispatch routes one inbound event. Unknown names are ignored; so is
// every payload that fails validation, per the first-writer-wins model:
// clients resubmit after a state refresh.
func (h *Hub) dispatch(c *Client, evt *Event) {
	switch evt.Event {
	case InJoinLobby:
		var p joinLobbyPayload
		if !decode(h, c, evt, &p) || p.LobbyID == "" {
			return
		}
		role := p.Role
		if role != "member" {
			// Unknown roles read, never act.
			role = "observer"
		}
		// Track before joining so the join-time room broadcasts reach
		// this connection too.
		h.trackLobby(c, p.LobbyID)
		if err := h.ctrl.Join(c.id, p.LobbyID, role); err != nil {
			h.untrackLobby(c, p.LobbyID)
		}

	case InCreateFPSLobby:
		var p createFPSPayload
		if !decode(h, c, evt, &p) {
			return
		}
		h.ctrl.CreateFPS(c.id, veto.FPSSettings{
			LobbyID:      p.LobbyID,
			Game:         p.Game,
			GameType:     p.GameType,
			KnifeDecider: p.KnifeDecider,
			CoinFlip:     p.CoinFlip,
			Admin:        p.Admin && c.admin,
			PoolSize:     p.PoolSize,
		})

	case InCreateSplatoonLobby:
		var p createSplatoonPayload
		if !decode(h, c, evt, &p) {
			return
		}
		h.ctrl.CreateSplatoon(c.id, veto.SplatoonSettings{
			LobbyID:   p.LobbyID,
			ModesSize: p.ModesSize,
			CoinFlip:  p.CoinFlip,
			Admin:     p.Admin && c.admin,
		})

	case InTeamName:
		var p teamNamePayload
		if !decode(h, c, evt, &p) {
			return
		}
		name, ok := sanitizeTeamName(p.TeamName)
		if !ok {
			h.log.WithField("conn", c.id).Debug("dropped empty team name")
			return
		}
		h.ctrl.SetTeamName(c.id, p.LobbyID, name)

	case InBan:
		var p mapActionPayload
		if !decode(h, c, evt, &p) {
			return
		}
		h.ctrl.Ban(c.id, p.LobbyID, p.TeamName, p.Map)

	case InStartPick:
		var p mapActionPayload
		if !decode(h, c, evt, &p) {
			return
		}
		h.ctrl.StartPick(c.id, p.LobbyID, p.TeamName, p.Map)

	case InPick:
		var p mapActionPayload
		if !decode(h, c, evt, &p) {
			return
		}
		h.ctrl.Pick(c.id, p.LobbyID, p.TeamName, p.Map, p.Side)

	case InDecider:
		var p mapActionPayload
		if !decode(h, c, evt, &p) {
			return
		}
		h.ctrl.DeciderPick(c.id, p.LobbyID, p.Map)

	case InModeBan:
		var p modeActionPayload
		if !decode(h, c, evt, &p) {
			return
		}
		h.ctrl.ModeBan(c.id, p.LobbyID, p.TeamName, p.Mode)

	case InModePick:
		var p modeActionPayload
		if !decode(h, c, evt, &p) {
			return
		}
		h.ctrl.ModePick(c.id, p.LobbyID, p.TeamName, p.Mode)

	case InReportWinner, InProposeWinner:
		var p winnerPayload
		if !decode(h, c, evt, &p) {
			return
		}
		h.ctrl.ProposeWinner(c.id, p.LobbyID, p.Winner, p.TeamName)

	case InConfirmWinner:
		var p confirmWinnerPayload
		if !decode(h, c, evt, &p) {
			return
		}
		h.ctrl.ConfirmWinner(c.id, p.LobbyID, p.Confirmed)

	case InJoinObsView:
		h.joinObs(c)

	case InObsGetPatternList:
		h.ctrl.SendPatternList(c.id)

	case InObsGetCurrentPicked:
		var p lobbyIDPayload
		if !decode(h, c, evt, &p) {
			return
		}
		h.ctrl.SendCurrentPickedMode(c.id, p.LobbyID)

	case InGetLobbyGameCategory:
		var p lobbyIDPayload
		if !decode(h, c, evt, &p) {
			return
		}
		h.ctrl.GameCategory(c.id, p.LobbyID)

	case InAdminStart, InAdminDelete, InAdminCoinFlipUpdate, InAdminEditFPSMapPool,
		InAdminEditCardColors, InAdminSetObsLobby, InAdminPlayObs, InAdminClearObs:
		h.dispatchAdmin(c, evt)

	default:
		h.log.WithField("event", evt.Event).Debug("ignored unknown event")
	}
}

func decode(h *Hub, c *Client, evt *Event, out interface{}) bool {
	if len(evt.Data) == 0 {
		return false
	}
	if err := json.Unmarshal(evt.Data, out); err != nil {
		h.log.WithFields(map[string]interface{}{
			"conn":  c.id,
			"event": evt.Event,
		}).WithError(err).Debug("malformed payload")
		return false
	}
	return true
}
