package veto

import (
	"fmt"
	"strings"

	"github.com/csmplay/mapban/internal/catalog"
	"github.com/csmplay/mapban/internal/lobby"
)

func sideDisplay(side string) string {
	switch strings.ToLower(side) {
	case lobby.SideT:
		return "Т"
	case lobby.SideCT:
		return "КТ"
	case lobby.SideKnife:
		return "Нож"
	default:
		return side
	}
}

func validSide(side string) bool {
	switch strings.ToLower(side) {
	case lobby.SideT, lobby.SideCT, lobby.SideKnife:
		return true
	}
	return false
}

func (c *Controller) fpsToken(l *lobby.Lobby) catalog.Action {
	pattern, err := catalog.FPSPattern(l.Rules.GameType)
	if err != nil || l.GameStep >= len(pattern) {
		return ""
	}
	return pattern[l.GameStep]
}

// startFPS picks the first actor and grants the opening capability. With
// the coin flip enabled the first actor is a uniform random member;
// otherwise the first-joined team goes first.
func (c *Controller) startFPS(l *lobby.Lobby) {
	if len(l.TeamNames) == 0 {
		return
	}
	first := l.TeamNames[0]
	if l.Rules.CoinFlip && len(l.TeamNames) == 2 {
		first = l.TeamNames[c.randBit()]
	}
	c.grantFPSStep(l, first.Conn)
}

// grantFPSStep grants the capability dictated by the current pattern token
// to the given member connection.
func (c *Controller) grantFPSStep(l *lobby.Lobby, conn string) {
	name, _ := l.TeamName(conn)
	switch c.fpsToken(l) {
	case catalog.ActionBan:
		c.grant(l, conn, func(caps *lobby.Capabilities) { caps.CanBan = true })
		c.state(l, fmt.Sprintf("Команда %s банит карту", name))
	case catalog.ActionPick:
		c.grant(l, conn, func(caps *lobby.Capabilities) { caps.CanPick = true })
		c.state(l, fmt.Sprintf("Команда %s выбирает карту", name))
	case catalog.ActionDecider:
		c.handleDecider(l, conn)
	default:
		c.endFPS(l)
	}
}

// nextFPS alternates the turn to the other member and continues the
// pattern, or terminates the ceremony when it is consumed.
func (c *Controller) nextFPS(l *lobby.Lobby, actedConn string) {
	if l.GameStep >= catalog.PatternLength {
		c.endFPS(l)
		return
	}
	next, ok := l.OtherTeam(actedConn)
	if !ok {
		// Admin lobby running with a single team: the same side keeps acting.
		next = lobby.TeamEntry{Conn: actedConn}
		if name, bound := l.TeamName(actedConn); bound {
			next.Name = name
		}
	}
	c.grantFPSStep(l, next.Conn)
}

// handleDecider resolves the final pattern token. With the knife decider
// the single remaining map is appended automatically; otherwise the team
// that did not pick last picks the decider map and its side.
func (c *Controller) handleDecider(l *lobby.Lobby, conn string) {
	if !l.Rules.KnifeDecider {
		name, _ := l.TeamName(conn)
		c.grant(l, conn, func(caps *lobby.Capabilities) { caps.CanPick = true })
		c.state(l, fmt.Sprintf("Команда %s выбирает десайдер", name))
		return
	}

	var remaining string
	for _, m := range l.Rules.MapNames {
		if !l.MapUsed(m, 0) {
			remaining = m
			break
		}
	}
	entry := lobby.PickedMap{Map: remaining, Side: lobby.SideDecider}
	l.Decider = &entry
	l.Picked = append(l.Picked, entry)
	l.GameStep++

	c.emit.ToLobby(l.ID, EvtDeciderUpdated, l.Decider)
	c.emit.ToLobby(l.ID, EvtPickedUpdated, l.Picked)
	c.state(l, fmt.Sprintf("Десайдер — %s", remaining))
	c.endFPS(l)
}

func (c *Controller) endFPS(l *lobby.Lobby) {
	l.Ended = true
	l.ClearCaps()
	c.emitCaps(l)
	c.emit.ToLobby(l.ID, EvtEndPick, nil)
	c.state(l, "Пики завершены")
}

// banFPS appends the ban and advances the pattern. Caller holds the lobby
// lock and has run the common preflight.
func (c *Controller) banFPS(l *lobby.Lobby, conn, teamName, mapName string) error {
	if !l.MapActive(mapName) || l.MapUsed(mapName, 0) {
		c.drop(l.ID, conn, "map not available")
		return ErrInvalidAction
	}
	l.Banned = append(l.Banned, lobby.BannedMap{Map: mapName, TeamName: teamName})
	l.GameStep++
	c.emit.ToLobby(l.ID, EvtBannedUpdated, l.Banned)
	c.nextFPS(l, conn)
	return nil
}

// StartPick opens side selection: in BO3/BO5 the picking team names the
// map and the opposing team chooses the side.
func (c *Controller) StartPick(conn, lobbyID, teamName, mapName string) error {
	l, ok := c.store.Get(lobbyID)
	if !ok {
		c.emit.ToConn(conn, EvtLobbyUndefined, lobbyID)
		return ErrLobbyNotFound
	}

	l.Lock()
	defer l.Unlock()

	if l.Family != lobby.FamilyFPS || l.Rules.GameType == "bo1" {
		c.drop(l.ID, conn, "startPick not applicable")
		return ErrInvalidAction
	}
	if c.fpsToken(l) != catalog.ActionPick {
		c.drop(l.ID, conn, "not a pick step")
		return ErrInvalidAction
	}
	if !c.teamAction(l, conn, teamName, func(caps *lobby.Capabilities) bool { return caps.CanPick }) {
		return ErrNotPermitted
	}
	if !l.MapActive(mapName) || l.MapUsed(mapName, 0) {
		c.drop(l.ID, conn, "map not available")
		return ErrInvalidAction
	}

	l.PendingPick = &lobby.PendingPick{Map: mapName, TeamName: teamName}
	other, ok := l.OtherTeam(conn)
	if !ok {
		l.PendingPick = nil
		return ErrInvalidAction
	}
	c.grant(l, other.Conn, func(caps *lobby.Capabilities) { caps.CanPick = true })
	c.emit.ToLobby(l.ID, EvtBackendStartPick, map[string]interface{}{
		"map":      mapName,
		"teamName": teamName,
	})
	c.state(l, fmt.Sprintf("Команда %s выбирает сторону", other.Name))
	return nil
}

// pickFPS completes a pick. Three shapes arrive here: the BO3/BO5 side
// choice for a pending pick, the BO1 direct pick, and the picked (non-
// knife) decider.
func (c *Controller) pickFPS(l *lobby.Lobby, conn, teamName, mapName, side string) error {
	if !validSide(side) {
		c.drop(l.ID, conn, "bad side")
		return ErrInvalidAction
	}
	side = strings.ToLower(side)

	if l.PendingPick != nil {
		pending := l.PendingPick
		if mapName != "" && mapName != pending.Map {
			c.drop(l.ID, conn, "pick does not match pending map")
			return ErrInvalidAction
		}
		pickerConn, _ := l.ConnByTeam(pending.TeamName)
		entry := lobby.PickedMap{
			Map:          pending.Map,
			TeamName:     pending.TeamName,
			Side:         side,
			SideTeamName: teamName,
		}
		l.Picked = append(l.Picked, entry)
		l.PendingPick = nil
		l.GameStep++
		c.emit.ToLobby(l.ID, EvtPickedUpdated, l.Picked)
		c.state(l, fmt.Sprintf("Команда %s выбрала карту %s (%s — %s)",
			pending.TeamName, pending.Map, teamName, sideDisplay(side)))
		c.nextFPS(l, pickerConn)
		return nil
	}

	if !l.MapActive(mapName) || l.MapUsed(mapName, 0) {
		c.drop(l.ID, conn, "map not available")
		return ErrInvalidAction
	}
	token := c.fpsToken(l)
	// In BO3/BO5 a pick opens with startPick so the other team chooses
	// the side; a direct pick here would let the picker take both.
	if token == catalog.ActionPick && l.Rules.GameType != "bo1" {
		c.drop(l.ID, conn, "side selection not opened")
		return ErrInvalidAction
	}
	entry := lobby.PickedMap{
		Map:          mapName,
		TeamName:     teamName,
		Side:         side,
		SideTeamName: teamName,
	}
	l.Picked = append(l.Picked, entry)
	if token == catalog.ActionDecider {
		decider := entry
		l.Decider = &decider
		c.emit.ToLobby(l.ID, EvtDeciderUpdated, l.Decider)
	}
	l.GameStep++
	c.emit.ToLobby(l.ID, EvtPickedUpdated, l.Picked)
	c.state(l, fmt.Sprintf("Команда %s выбрала карту %s (%s)",
		teamName, mapName, sideDisplay(side)))
	c.nextFPS(l, conn)
	return nil
}

// DeciderPick handles the bare decider event: the capability holder names
// the decider map and the match opens with a knife round on it.
func (c *Controller) DeciderPick(conn, lobbyID, mapName string) error {
	l, ok := c.store.Get(lobbyID)
	if !ok {
		c.emit.ToConn(conn, EvtLobbyUndefined, lobbyID)
		return ErrLobbyNotFound
	}

	l.Lock()
	defer l.Unlock()

	if l.Family != lobby.FamilyFPS || c.fpsToken(l) != catalog.ActionDecider {
		c.drop(l.ID, conn, "no decider pending")
		return ErrInvalidAction
	}
	teamName, bound := l.TeamName(conn)
	if !bound {
		c.drop(l.ID, conn, "no team bound")
		return ErrNotPermitted
	}
	if !c.teamAction(l, conn, teamName, func(caps *lobby.Capabilities) bool { return caps.CanPick }) {
		return ErrNotPermitted
	}
	return c.pickFPS(l, conn, teamName, mapName, lobby.SideKnife)
}
