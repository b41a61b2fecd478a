package veto

import (
	"github.com/csmplay/mapban/internal/catalog"
	"github.com/csmplay/mapban/internal/lobby"
)

// ResendObs replays the pinned lobby's domain state to the obs_views
// room. Called when the admin pins a lobby; the hub keeps the pin so that
// later updates of that lobby are mirrored automatically.
func (c *Controller) ResendObs(lobbyID string) {
	l, ok := c.store.Get(lobbyID)
	if !ok {
		c.emit.ToObs(EvtLobbyNotFound, lobbyID)
		return
	}

	l.Lock()
	defer l.Unlock()

	c.emit.ToObs(EvtAdminSetObsLobby, l.ID)
	c.emit.ToObs(EvtGameName, l.Rules.Game)
	c.emit.ToObs(EvtTeamNamesUpdated, l.TeamNameList())
	c.emit.ToObs(EvtMapNames, l.Rules.MapNames)
	c.emit.ToObs(EvtPickedUpdated, l.Picked)
	c.emit.ToObs(EvtBannedUpdated, l.Banned)
	if l.Family == lobby.FamilySplatoon {
		c.emit.ToObs(EvtModesUpdated, l.Rules.ActiveModes)
		if l.PickedMode != "" {
			c.emit.ToObs(EvtModePicked, c.modePayload(l.PickedMode))
		}
	}
	if l.Decider != nil {
		c.emit.ToObs(EvtDeciderUpdated, l.Decider)
	}
}

// PlayObs re-delivers the current state to every observer of the lobby.
func (c *Controller) PlayObs(lobbyID string) {
	l, ok := c.store.Get(lobbyID)
	if !ok {
		return
	}
	l.Lock()
	conns := make([]string, 0, len(l.Observers))
	for conn := range l.Observers {
		conns = append(conns, conn)
	}
	for _, conn := range conns {
		c.sendLobbyState(conn, l)
	}
	l.Unlock()
}

// ClearObs tells the lobby's observers and the obs room to blank their
// overlays.
func (c *Controller) ClearObs(lobbyID string) {
	c.store.ForEachObserver(lobbyID, func(conn string) {
		c.emit.ToConn(conn, EvtBackendClearObs, nil)
	})
	c.emit.ToObs(EvtBackendClearObs, nil)
}

// SendPatternList answers the obs.getPatternList query.
func (c *Controller) SendPatternList(conn string) {
	c.emit.ToConn(conn, EvtPatternList, catalog.PatternList())
}

// SendCurrentPickedMode answers the obs.getCurrentPickedMode query.
func (c *Controller) SendCurrentPickedMode(conn, lobbyID string) {
	l, ok := c.store.Get(lobbyID)
	if !ok {
		c.emit.ToConn(conn, EvtLobbyNotFound, lobbyID)
		return
	}
	l.Lock()
	mode := l.PickedMode
	l.Unlock()
	if mode == "" {
		c.emit.ToConn(conn, EvtCurrentPickedMode, nil)
		return
	}
	c.emit.ToConn(conn, EvtCurrentPickedMode, c.modePayload(mode))
}
