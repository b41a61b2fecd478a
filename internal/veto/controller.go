package veto

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/csmplay/mapban/internal/catalog"
	"github.com/csmplay/mapban/internal/lobby"
)

var (
	ErrLobbyNotFound = errors.New("lobby not found")
	ErrNotPermitted  = errors.New("action not permitted")
	ErrInvalidAction = errors.New("invalid action")
)

// Controller is the single writer to lobby state. Every inbound action is
// validated against the sender's capability record before any mutation, so
// a stray or malicious event never tears a ceremony.
type Controller struct {
	store   *lobby.Store
	catalog *catalog.Catalog
	emit    Emitter
	log     *logrus.Logger

	mu       sync.RWMutex
	coinFlip bool

	// bo1PoolSize is the pool size bo1 lobbies get when the create event
	// does not name one. Set once at boot.
	bo1PoolSize int

	// randBit is swapped out in tests for deterministic coin flips.
	randBit func() int
}

func NewController(store *lobby.Store, cat *catalog.Catalog, emit Emitter, log *logrus.Logger, coinFlip bool) *Controller {
	return &Controller{
		store:       store,
		catalog:     cat,
		emit:        emit,
		log:         log,
		coinFlip:    coinFlip,
		bo1PoolSize: catalog.PatternLength,
		randBit:     func() int { return rand.Intn(2) },
	}
}

// SetBO1PoolSize overrides the default bo1 pool size. Called at boot,
// before any connection is served.
func (c *Controller) SetBO1PoolSize(n int) {
	if n == 4 || n == catalog.PatternLength {
		c.bo1PoolSize = n
	}
}

// CoinFlip returns the process-wide default used for new lobbies.
func (c *Controller) CoinFlip() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.coinFlip
}

// SetCoinFlip flips the process-wide default and tells every client.
func (c *Controller) SetCoinFlip(v bool) {
	c.mu.Lock()
	c.coinFlip = v
	c.mu.Unlock()
	c.emit.ToAll(EvtCoinFlipUpdated, v)
}

// Store exposes the lobby store to the transport and API layers.
func (c *Controller) Store() *lobby.Store { return c.store }

// Catalog exposes the shared catalog.
func (c *Controller) Catalog() *catalog.Catalog { return c.catalog }

// FPSSettings are the create-time parameters of an FPS lobby.
type FPSSettings struct {
	LobbyID      string
	Game         string
	GameType     string // bo1, bo3, bo5
	KnifeDecider bool
	CoinFlip     *bool // nil uses the process default
	Admin        bool
	PoolSize     int // bo1 only: 4 or 7; 0 means full pool
}

// SplatoonSettings are the create-time parameters of a Splatoon lobby.
type SplatoonSettings struct {
	LobbyID   string
	ModesSize int // 2 or 4
	CoinFlip  *bool
	Admin     bool
}

// CreateFPS validates the settings and stores a new FPS lobby. Rule
// violations produce a single lobbyCreationError to the requester and no
// lobby. Replaying a create with an existing id returns the existing
// lobby untouched.
func (c *Controller) CreateFPS(conn string, s FPSSettings) (*lobby.Lobby, error) {
	if s.Game == "" {
		s.Game = "cs2"
	}
	if _, err := catalog.FPSPattern(s.GameType); err != nil {
		return nil, c.creationError(conn, err)
	}
	pool, err := c.catalog.FPSMapPool(s.Game)
	if err != nil {
		return nil, c.creationError(conn, err)
	}

	size := s.PoolSize
	if size == 0 {
		if s.GameType == "bo1" {
			size = c.bo1PoolSize
		} else {
			size = len(pool)
		}
	}
	switch s.GameType {
	case "bo1":
		if size != 4 && size != 7 {
			return nil, c.creationError(conn, fmt.Errorf("bo1 map pool must have 4 or 7 maps, got %d", size))
		}
	default:
		if size != catalog.PatternLength {
			return nil, c.creationError(conn, fmt.Errorf("%s requires a map pool of exactly %d maps", s.GameType, catalog.PatternLength))
		}
	}
	if size > len(pool) {
		return nil, c.creationError(conn, fmt.Errorf("map pool has only %d maps", len(pool)))
	}

	rules := lobby.Rules{
		Game:         s.Game,
		GameType:     s.GameType,
		CoinFlip:     c.resolveCoinFlip(s.CoinFlip),
		KnifeDecider: s.KnifeDecider,
		Admin:        s.Admin,
		MapNames:     pool[:size],
	}

	id := s.LobbyID
	if id == "" {
		id = uuid.NewString()
	}
	l := lobby.New(id, lobby.FamilyFPS, rules)
	l.GameStep = catalog.PatternLength - size

	stored, created := c.store.Create(l)
	if created {
		c.emit.ToAll(EvtLobbiesUpdated, c.lobbyList())
	}
	c.emit.ToConn(conn, EvtLobbyCreated, map[string]interface{}{"lobbyId": stored.ID})
	return stored, nil
}

// CreateSplatoon validates and stores a new Splatoon lobby.
func (c *Controller) CreateSplatoon(conn string, s SplatoonSettings) (*lobby.Lobby, error) {
	modes, err := catalog.SplatoonModes(s.ModesSize)
	if err != nil {
		return nil, c.creationError(conn, err)
	}

	rules := lobby.Rules{
		Game:        "splatoon",
		GameType:    "splatoon",
		CoinFlip:    c.resolveCoinFlip(s.CoinFlip),
		Admin:       s.Admin,
		ModesSize:   s.ModesSize,
		ActiveModes: modes,
		RoundNumber: 1,
	}

	id := s.LobbyID
	if id == "" {
		id = uuid.NewString()
	}
	l := lobby.New(id, lobby.FamilySplatoon, rules)

	stored, created := c.store.Create(l)
	if created {
		c.emit.ToAll(EvtLobbiesUpdated, c.lobbyList())
	}
	c.emit.ToConn(conn, EvtLobbyCreated, map[string]interface{}{"lobbyId": stored.ID})
	return stored, nil
}

func (c *Controller) resolveCoinFlip(v *bool) bool {
	if v != nil {
		return *v
	}
	return c.CoinFlip()
}

func (c *Controller) creationError(conn string, err error) error {
	c.emit.ToConn(conn, EvtLobbyCreationError, err.Error())
	return err
}

// Join attaches a connection to a lobby. Members beyond the second are
// demoted to observers; observers only ever read.
func (c *Controller) Join(conn, lobbyID, role string) error {
	l, ok := c.store.Get(lobbyID)
	if !ok {
		c.emit.ToConn(conn, EvtLobbyUndefined, lobbyID)
		return ErrLobbyNotFound
	}

	l.Lock()
	defer l.Unlock()

	asMember := role == "member"
	if asMember && len(l.Members) >= 2 && !l.Members[conn] {
		asMember = false
	}
	if asMember {
		l.Members[conn] = true
	} else {
		l.Observers[conn] = true
	}

	c.emit.ToConn(conn, EvtLobbyExists, l.SnapshotLocked())
	c.sendLobbyState(conn, l)
	c.emit.ToLobby(l.ID, EvtTeamNamesUpdated, l.TeamNameList())
	return nil
}

// sendLobbyState replays the current ceremony state to one connection.
// Caller holds the lobby lock.
func (c *Controller) sendLobbyState(conn string, l *lobby.Lobby) {
	c.emit.ToConn(conn, EvtGameName, l.Rules.Game)
	c.emit.ToConn(conn, EvtMapNames, l.Rules.MapNames)
	switch l.Family {
	case lobby.FamilyFPS:
		c.emit.ToConn(conn, EvtFPSLobbySettings, map[string]interface{}{
			"gameType":     l.Rules.GameType,
			"knifeDecider": l.Rules.KnifeDecider,
			"coinFlip":     l.Rules.CoinFlip,
		})
	case lobby.FamilySplatoon:
		c.emit.ToConn(conn, EvtModesSizeUpdated, l.Rules.ModesSize)
		c.emit.ToConn(conn, EvtModesUpdated, l.Rules.ActiveModes)
		if l.PickedMode != "" {
			c.emit.ToConn(conn, EvtModePicked, c.modePayload(l.PickedMode))
		}
	}
	if len(l.Picked) > 0 {
		c.emit.ToConn(conn, EvtPickedUpdated, l.Picked)
	}
	if len(l.Banned) > 0 {
		c.emit.ToConn(conn, EvtBannedUpdated, l.Banned)
	}
	if l.Decider != nil {
		c.emit.ToConn(conn, EvtDeciderUpdated, l.Decider)
	}
}

// SetTeamName binds a member to a team name. The name arrives already
// sanitized; an empty one was dropped at ingress.
func (c *Controller) SetTeamName(conn, lobbyID, name string) error {
	l, ok := c.store.Get(lobbyID)
	if !ok {
		c.emit.ToConn(conn, EvtLobbyUndefined, lobbyID)
		return ErrLobbyNotFound
	}

	l.Lock()
	defer l.Unlock()

	if !l.Members[conn] {
		c.drop(l.ID, conn, "teamName from non-member")
		return ErrNotPermitted
	}
	if len(l.TeamNames) >= 2 {
		if _, bound := l.TeamName(conn); !bound {
			c.drop(l.ID, conn, "both team slots taken")
			return ErrNotPermitted
		}
	}
	l.SetTeamName(conn, name)
	c.emit.ToLobby(l.ID, EvtTeamNamesUpdated, l.TeamNameList())

	// The ceremony begins on its own once the second team is bound.
	// Admin lobbies wait for an explicit admin.start instead.
	if !l.Started && !l.Rules.Admin && len(l.TeamNames) == 2 {
		c.startLocked(l)
	}
	return nil
}

// Delete evicts a lobby: members hear lobbyDeleted, the store forgets it,
// and the lobby lists refresh everywhere. The transport detaches the
// connections from the room afterwards.
func (c *Controller) Delete(lobbyID string) {
	if _, ok := c.store.Get(lobbyID); !ok {
		return
	}
	c.emit.ToLobby(lobbyID, EvtLobbyDeleted, lobbyID)
	c.store.Delete(lobbyID)
	c.emit.ToAll(EvtLobbiesUpdated, c.lobbyList())
}

// Leave removes a closed connection from the lobby. Empty non-admin
// lobbies are garbage-collected; admin lobbies survive until deleted.
func (c *Controller) Leave(conn, lobbyID string) {
	l, ok := c.store.Get(lobbyID)
	if !ok {
		return
	}

	l.Lock()
	removed := l.RemoveConn(conn)
	empty := len(l.Members) == 0
	admin := l.Rules.Admin
	names := l.TeamNameList()
	l.Unlock()

	if !removed {
		return
	}
	c.emit.ToLobby(lobbyID, EvtTeamNamesUpdated, names)
	if empty && !admin {
		c.store.Delete(lobbyID)
		c.emit.ToAll(EvtLobbiesUpdated, c.lobbyList())
	}
}

// StartGame begins the ceremony. Both team slots must be bound unless the
// lobby is admin-controlled.
func (c *Controller) StartGame(lobbyID string) error {
	l, ok := c.store.Get(lobbyID)
	if !ok {
		return ErrLobbyNotFound
	}

	l.Lock()
	defer l.Unlock()
	return c.startLocked(l)
}

func (c *Controller) startLocked(l *lobby.Lobby) error {
	if l.Started {
		return ErrInvalidAction
	}
	if len(l.TeamNames) < 2 && !l.Rules.Admin {
		return ErrInvalidAction
	}
	l.Started = true

	if !l.Rules.CoinFlip {
		c.emit.ToLobby(l.ID, EvtStartWithoutCoin, nil)
	}

	switch l.Family {
	case lobby.FamilyFPS:
		c.startFPS(l)
	case lobby.FamilySplatoon:
		c.startRound(l)
	}
	return nil
}

// Ban dispatches by game family.
func (c *Controller) Ban(conn, lobbyID, teamName, mapName string) error {
	l, ok := c.store.Get(lobbyID)
	if !ok {
		c.emit.ToConn(conn, EvtLobbyUndefined, lobbyID)
		return ErrLobbyNotFound
	}

	l.Lock()
	defer l.Unlock()

	if !c.teamAction(l, conn, teamName, func(caps *lobby.Capabilities) bool { return caps.CanBan }) {
		return ErrNotPermitted
	}
	switch l.Family {
	case lobby.FamilyFPS:
		return c.banFPS(l, conn, teamName, mapName)
	default:
		return c.banSplatoon(l, conn, teamName, mapName)
	}
}

// Pick dispatches by game family.
func (c *Controller) Pick(conn, lobbyID, teamName, mapName, side string) error {
	l, ok := c.store.Get(lobbyID)
	if !ok {
		c.emit.ToConn(conn, EvtLobbyUndefined, lobbyID)
		return ErrLobbyNotFound
	}

	l.Lock()
	defer l.Unlock()

	if !c.teamAction(l, conn, teamName, func(caps *lobby.Capabilities) bool { return caps.CanPick }) {
		return ErrNotPermitted
	}
	switch l.Family {
	case lobby.FamilyFPS:
		return c.pickFPS(l, conn, teamName, mapName, side)
	default:
		return c.pickSplatoon(l, conn, teamName, mapName)
	}
}

// teamAction is the common preflight. Failures are silent: no state
// change, no broadcast, a debug line only.
func (c *Controller) teamAction(l *lobby.Lobby, conn, teamName string, has func(*lobby.Capabilities) bool) bool {
	if !l.Members[conn] {
		c.drop(l.ID, conn, "not a member")
		return false
	}
	bound, ok := l.TeamName(conn)
	if !ok {
		c.drop(l.ID, conn, "no team bound")
		return false
	}
	if bound != teamName {
		c.drop(l.ID, conn, "team name mismatch")
		return false
	}
	caps, ok := l.Caps[conn]
	if !ok || !caps.CanWork || !has(caps) {
		c.drop(l.ID, conn, "capability not held")
		return false
	}
	return true
}

func (c *Controller) drop(lobbyID, conn, reason string) {
	c.log.WithFields(logrus.Fields{
		"lobby":  lobbyID,
		"conn":   conn,
		"reason": reason,
	}).Debug("dropped action")
}

// grant hands exactly one member a working capability and notifies both
// members. canWorkUpdated always precedes the subsidiary event.
func (c *Controller) grant(l *lobby.Lobby, conn string, set func(*lobby.Capabilities)) {
	l.ClearCaps()
	caps := l.CapsFor(conn)
	caps.CanWork = true
	set(caps)
	c.emitCaps(l)
}

// grantReportWinner arms the winner dialog for the given members without
// granting CanWork: reporting is not a turn. The capability gates proposing
// only; confirming is derived from the pending proposal.
func (c *Controller) grantReportWinner(l *lobby.Lobby, conns ...string) {
	l.ClearCaps()
	for _, conn := range conns {
		l.CapsFor(conn).CanReportWinner = true
	}
	c.emitCaps(l)
}

// emitCaps pushes the full capability record of every member, in a fixed
// event order per connection.
func (c *Controller) emitCaps(l *lobby.Lobby) {
	for conn := range l.Members {
		caps := l.CapsFor(conn)
		c.emit.ToConn(conn, EvtCanWorkUpdated, caps.CanWork)
		c.emit.ToConn(conn, EvtCanBan, caps.CanBan)
		c.emit.ToConn(conn, EvtCanPick, caps.CanPick)
		c.emit.ToConn(conn, EvtCanModeBan, caps.CanModeBan)
		c.emit.ToConn(conn, EvtCanModePick, caps.CanModePick)
		c.emit.ToConn(conn, EvtCanReportWinner, caps.CanReportWinner)
	}
}

func (c *Controller) state(l *lobby.Lobby, message string) {
	c.emit.ToLobby(l.ID, EvtGameStateUpdated, message)
}

func (c *Controller) lobbyList() []lobby.Snapshot {
	lobbies := c.store.List()
	out := make([]lobby.Snapshot, 0, len(lobbies))
	for _, l := range lobbies {
		out = append(out, l.Snapshot())
	}
	return out
}

// LobbyList is the read model behind /api/lobbies and lobbiesUpdated.
func (c *Controller) LobbyList() []lobby.Snapshot { return c.lobbyList() }

// GameCategory answers the getLobbyGameCategory query.
func (c *Controller) GameCategory(conn, lobbyID string) {
	l, ok := c.store.Get(lobbyID)
	if !ok {
		c.emit.ToConn(conn, EvtLobbyNotFound, lobbyID)
		return
	}
	c.emit.ToConn(conn, EvtLobbyGameCategory, string(l.Family))
}
