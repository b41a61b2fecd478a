package veto

import (
	"fmt"

	"github.com/csmplay/mapban/internal/catalog"
	"github.com/csmplay/mapban/internal/lobby"
)

func (c *Controller) modePayload(mode string) map[string]interface{} {
	return map[string]interface{}{
		"mode":        mode,
		"translation": catalog.ModeTranslation(mode),
	}
}

// startRound resets the per-round state and hands the first capability of
// the round to the priority team. Round 1 priority comes from the coin
// flip (or join order); later rounds from the confirmed last winner.
func (c *Controller) startRound(l *lobby.Lobby) {
	if l.Rules.RoundNumber <= 1 {
		l.Rules.RoundNumber = 1
		if len(l.TeamNames) == 0 {
			return
		}
		first := l.TeamNames[0]
		if l.Rules.CoinFlip && len(l.TeamNames) == 2 {
			first = l.TeamNames[c.randBit()]
		}
		l.PriorityTeam = first.Name
	} else {
		l.PriorityTeam = l.Rules.LastWinner
	}

	l.BannedModes = nil
	l.PickedMode = ""
	l.Rules.MapNames = nil
	l.GameStep = 0
	modes, err := catalog.SplatoonModes(l.Rules.ModesSize)
	if err == nil {
		l.Rules.ActiveModes = modes
	}

	c.emit.ToLobby(l.ID, EvtModesUpdated, l.Rules.ActiveModes)
	c.state(l, fmt.Sprintf("Раунд %d", l.Rules.RoundNumber))
	c.grantSplatoonStep(l)
}

// splatoonStep resolves the current position inside the round pattern.
func (c *Controller) splatoonStep(l *lobby.Lobby) (step catalog.Step, phase string, ok bool) {
	modes, maps := catalog.SplatoonPattern(l.Rules.ModesSize, l.Rules.RoundNumber <= 1)
	if l.GameStep < len(modes) {
		return modes[l.GameStep], "mode", true
	}
	idx := l.GameStep - len(modes)
	if idx < len(maps) {
		return maps[idx], "map", true
	}
	return catalog.Step{}, "", false
}

// splatoonActor maps a pattern step to the member that acts on it.
func (c *Controller) splatoonActor(l *lobby.Lobby, step catalog.Step) (lobby.TeamEntry, bool) {
	for _, e := range l.TeamNames {
		if (e.Name == l.PriorityTeam) == step.ByPriority {
			return e, true
		}
	}
	// Admin lobby running with a single team: the same side takes the
	// opponent's steps too.
	if len(l.TeamNames) == 1 {
		return l.TeamNames[0], true
	}
	return lobby.TeamEntry{}, false
}

func (c *Controller) grantSplatoonStep(l *lobby.Lobby) {
	step, phase, ok := c.splatoonStep(l)
	if !ok {
		return
	}
	actor, ok := c.splatoonActor(l, step)
	if !ok {
		return
	}

	switch {
	case phase == "mode" && step.Action == catalog.ActionBan:
		c.grant(l, actor.Conn, func(caps *lobby.Capabilities) { caps.CanModeBan = true })
		c.state(l, fmt.Sprintf("Команда %s банит режим", actor.Name))
	case phase == "mode" && step.Action == catalog.ActionPick:
		c.grant(l, actor.Conn, func(caps *lobby.Capabilities) { caps.CanModePick = true })
		c.state(l, fmt.Sprintf("Команда %s выбирает режим", actor.Name))
	case phase == "map" && step.Action == catalog.ActionBan:
		c.grant(l, actor.Conn, func(caps *lobby.Capabilities) { caps.CanBan = true })
		c.state(l, fmt.Sprintf("Команда %s банит карту", actor.Name))
	case phase == "map" && step.Action == catalog.ActionPick:
		c.grant(l, actor.Conn, func(caps *lobby.Capabilities) { caps.CanPick = true })
		c.state(l, fmt.Sprintf("Команда %s выбирает карту", actor.Name))
	}
}

// ModeBan removes a mode from the round and advances the mode pattern.
func (c *Controller) ModeBan(conn, lobbyID, teamName, mode string) error {
	l, ok := c.store.Get(lobbyID)
	if !ok {
		c.emit.ToConn(conn, EvtLobbyUndefined, lobbyID)
		return ErrLobbyNotFound
	}

	l.Lock()
	defer l.Unlock()

	if !c.teamAction(l, conn, teamName, func(caps *lobby.Capabilities) bool { return caps.CanModeBan }) {
		return ErrNotPermitted
	}
	if !l.ModeActive(mode) {
		c.drop(l.ID, conn, "mode not active")
		return ErrInvalidAction
	}

	for i, m := range l.Rules.ActiveModes {
		if m == mode {
			l.Rules.ActiveModes = append(l.Rules.ActiveModes[:i], l.Rules.ActiveModes[i+1:]...)
			break
		}
	}
	l.BannedModes = append(l.BannedModes, mode)
	l.GameStep++

	c.emit.ToLobby(l.ID, EvtModesUpdated, l.Rules.ActiveModes)
	c.grantSplatoonStep(l)
	return nil
}

// ModePick fixes the round's mode and loads its map pool.
func (c *Controller) ModePick(conn, lobbyID, teamName, mode string) error {
	l, ok := c.store.Get(lobbyID)
	if !ok {
		c.emit.ToConn(conn, EvtLobbyUndefined, lobbyID)
		return ErrLobbyNotFound
	}

	l.Lock()
	defer l.Unlock()

	if !c.teamAction(l, conn, teamName, func(caps *lobby.Capabilities) bool { return caps.CanModePick }) {
		return ErrNotPermitted
	}
	if !l.ModeActive(mode) {
		c.drop(l.ID, conn, "mode not active")
		return ErrInvalidAction
	}
	pool, err := catalog.SplatoonMapPool(mode)
	if err != nil {
		c.drop(l.ID, conn, "unknown mode")
		return ErrInvalidAction
	}

	l.PickedMode = mode
	l.Rules.MapNames = pool
	l.GameStep++

	c.emit.ToLobby(l.ID, EvtModePicked, c.modePayload(mode))
	c.emit.ToLobby(l.ID, EvtMapNames, l.Rules.MapNames)
	c.emit.ToLobby(l.ID, EvtAvailableMaps, l.Rules.MapNames)
	c.grantSplatoonStep(l)
	return nil
}

// banSplatoon appends a per-round ban. Caller holds the lock and ran the
// preflight.
func (c *Controller) banSplatoon(l *lobby.Lobby, conn, teamName, mapName string) error {
	round := l.Rules.RoundNumber
	if !l.MapActive(mapName) || l.MapUsed(mapName, round) {
		c.drop(l.ID, conn, "map not available")
		return ErrInvalidAction
	}
	l.Banned = append(l.Banned, lobby.BannedMap{Map: mapName, TeamName: teamName, Round: round})
	l.GameStep++
	c.emit.ToLobby(l.ID, EvtBannedUpdated, l.Banned)
	c.grantSplatoonStep(l)
	return nil
}

// pickSplatoon closes the veto part of the round: the picked map is
// recorded and both members get the winner dialog.
func (c *Controller) pickSplatoon(l *lobby.Lobby, conn, teamName, mapName string) error {
	round := l.Rules.RoundNumber
	if !l.MapActive(mapName) || l.MapUsed(mapName, round) {
		c.drop(l.ID, conn, "map not available")
		return ErrInvalidAction
	}
	l.Picked = append(l.Picked, lobby.PickedMap{Map: mapName, TeamName: teamName, Round: round})
	l.GameStep++
	c.emit.ToLobby(l.ID, EvtPickedUpdated, l.Picked)

	conns := make([]string, 0, 2)
	for _, e := range l.TeamNames {
		conns = append(conns, e.Conn)
	}
	c.grantReportWinner(l, conns...)
	c.state(l, "Выберите победителя раунда")
	return nil
}

// ProposeWinner starts the two-phase winner commit: the proposal reaches
// the other member for confirmation.
func (c *Controller) ProposeWinner(conn, lobbyID, winner, reportingTeam string) error {
	l, ok := c.store.Get(lobbyID)
	if !ok {
		c.emit.ToConn(conn, EvtLobbyUndefined, lobbyID)
		return ErrLobbyNotFound
	}

	l.Lock()
	defer l.Unlock()

	if !l.Members[conn] {
		c.drop(l.ID, conn, "not a member")
		return ErrNotPermitted
	}
	bound, okName := l.TeamName(conn)
	if !okName || bound != reportingTeam {
		c.drop(l.ID, conn, "team name mismatch")
		return ErrNotPermitted
	}
	caps, okCaps := l.Caps[conn]
	if !okCaps || !caps.CanReportWinner {
		c.drop(l.ID, conn, "capability not held")
		return ErrNotPermitted
	}
	if _, okWinner := l.ConnByTeam(winner); !okWinner {
		c.drop(l.ID, conn, "unknown winner team")
		return ErrInvalidAction
	}

	l.PendingWinner = &lobby.WinnerProposal{Winner: winner, ReportedBy: reportingTeam}
	if other, okOther := l.OtherTeam(conn); okOther {
		c.emit.ToConn(other.Conn, EvtWinnerProposed, l.PendingWinner)
	}
	c.state(l, fmt.Sprintf("Команда %s сообщает: победила команда %s", reportingTeam, winner))
	return nil
}

// ConfirmWinner finishes the commit. Confirmation archives the round and
// starts the next one with the winner as priority; rejection re-arms the
// dialog for the rejecting team only.
func (c *Controller) ConfirmWinner(conn, lobbyID string, confirmed bool) error {
	l, ok := c.store.Get(lobbyID)
	if !ok {
		c.emit.ToConn(conn, EvtLobbyUndefined, lobbyID)
		return ErrLobbyNotFound
	}

	l.Lock()
	defer l.Unlock()

	if !l.Members[conn] {
		c.drop(l.ID, conn, "not a member")
		return ErrNotPermitted
	}
	// The right to answer follows from the pending proposal itself:
	// after a rejection only the rejector holds CanReportWinner, yet the
	// counterparty must still be able to close the next proposal.
	pending := l.PendingWinner
	if pending == nil {
		c.drop(l.ID, conn, "no winner proposed")
		return ErrInvalidAction
	}
	if bound, okName := l.TeamName(conn); !okName || bound == pending.ReportedBy {
		c.drop(l.ID, conn, "reporter cannot confirm own proposal")
		return ErrNotPermitted
	}

	if !confirmed {
		l.PendingWinner = nil
		c.grantReportWinner(l, conn)
		c.emit.ToLobby(l.ID, EvtWinnerRejected, pending)
		c.state(l, "Отклонено — выберите победителя заново")
		return nil
	}

	round := l.Rules.RoundNumber
	var roundMap string
	for i := len(l.Picked) - 1; i >= 0; i-- {
		if l.Picked[i].Round == round {
			roundMap = l.Picked[i].Map
			break
		}
	}
	l.RoundHistory = append(l.RoundHistory, lobby.RoundResult{
		Round:  round,
		Mode:   l.PickedMode,
		Map:    roundMap,
		Winner: pending.Winner,
	})
	l.Rules.LastWinner = pending.Winner
	l.PendingWinner = nil
	c.emit.ToLobby(l.ID, EvtWinnerConfirmed, map[string]interface{}{
		"winner": pending.Winner,
		"round":  round,
	})

	l.Rules.RoundNumber++
	c.startRound(l)
	return nil
}
