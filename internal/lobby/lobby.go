package lobby

import (
	"sync"
)

// GameFamily selects which veto rules a lobby runs.
type GameFamily string

const (
	FamilyFPS      GameFamily = "fps"
	FamilySplatoon GameFamily = "splatoon"
)

// Side literals carried on picked maps.
const (
	SideT       = "t"
	SideCT      = "ct"
	SideKnife   = "knife"
	SideDecider = "DECIDER"
)

// Capabilities is the per-connection permission record for the current
// step. CanWork gates the rest: a client with CanWork false ignores its
// action buttons entirely.
type Capabilities struct {
	CanWork         bool
	CanBan          bool
	CanPick         bool
	CanModeBan      bool
	CanModePick     bool
	CanReportWinner bool
}

// TeamEntry binds a connection to its team name. TeamNames is kept as a
// slice so that join order survives; the first-joined team is the default
// priority team.
type TeamEntry struct {
	Conn string `json:"-"`
	Name string `json:"name"`
}

// PickedMap is one entry of the picked sequence. For FPS, Side and
// SideTeamName are set; Splatoon entries carry the round number instead.
type PickedMap struct {
	Map          string `json:"map"`
	TeamName     string `json:"teamName"`
	Side         string `json:"side,omitempty"`
	SideTeamName string `json:"sideTeamName,omitempty"`
	Round        int    `json:"round,omitempty"`
}

type BannedMap struct {
	Map      string `json:"map"`
	TeamName string `json:"teamName"`
	Round    int    `json:"round,omitempty"`
}

// RoundResult is one completed Splatoon round.
type RoundResult struct {
	Round  int    `json:"round"`
	Mode   string `json:"mode"`
	Map    string `json:"map"`
	Winner string `json:"winner"`
}

// WinnerProposal is the first half of the two-phase winner commit.
type WinnerProposal struct {
	Winner     string `json:"winner"`
	ReportedBy string `json:"reportedBy"`
}

// PendingPick holds a BO3/BO5 map pick awaiting the opposing team's side
// choice.
type PendingPick struct {
	Map      string
	TeamName string
}

// Rules are sealed at creation except for the fields the ceremony itself
// advances (LastWinner, ActiveModes, MapNames, RoundNumber).
type Rules struct {
	Game         string   `json:"game"`
	GameType     string   `json:"gameType"`
	CoinFlip     bool     `json:"coinFlip"`
	KnifeDecider bool     `json:"knifeDecider"`
	Admin        bool     `json:"admin"`
	ModesSize    int      `json:"modesSize,omitempty"`
	MapNames     []string `json:"mapNames"`
	ActiveModes  []string `json:"activeModes,omitempty"`
	LastWinner   string   `json:"lastWinner,omitempty"`
	RoundNumber  int      `json:"roundNumber,omitempty"`
}

// Lobby is the veto ceremony state for one match. All mutation goes
// through the turn controller with the lobby's own mutex held, so
// invariants are never observed torn.
type Lobby struct {
	mu sync.Mutex

	ID     string
	Family GameFamily

	Members   map[string]bool
	Observers map[string]bool
	TeamNames []TeamEntry

	Rules   Rules
	Picked  []PickedMap
	Banned  []BannedMap
	Decider *PickedMap

	// GameStep is the cursor into the FPS pattern, or the progress inside
	// the current Splatoon round.
	GameStep int
	Started  bool
	Ended    bool

	// Splatoon only.
	BannedModes  []string
	PickedMode   string
	PriorityTeam string
	RoundHistory []RoundResult

	PendingWinner *WinnerProposal
	PendingPick   *PendingPick

	Caps map[string]*Capabilities
}

func New(id string, family GameFamily, rules Rules) *Lobby {
	return &Lobby{
		ID:        id,
		Family:    family,
		Members:   make(map[string]bool),
		Observers: make(map[string]bool),
		Rules:     rules,
		Caps:      make(map[string]*Capabilities),
	}
}

// Lock serializes all access to the lobby. The controller holds it for
// the whole of each inbound action.
func (l *Lobby) Lock()   { l.mu.Lock() }
func (l *Lobby) Unlock() { l.mu.Unlock() }

// SetTeamName binds a member connection to a team name, preserving the
// original position when the connection renames itself.
func (l *Lobby) SetTeamName(conn, name string) {
	for i := range l.TeamNames {
		if l.TeamNames[i].Conn == conn {
			l.TeamNames[i].Name = name
			return
		}
	}
	l.TeamNames = append(l.TeamNames, TeamEntry{Conn: conn, Name: name})
}

// TeamName returns the name bound to a connection, if any.
func (l *Lobby) TeamName(conn string) (string, bool) {
	for _, e := range l.TeamNames {
		if e.Conn == conn {
			return e.Name, true
		}
	}
	return "", false
}

// ConnByTeam resolves a team name back to its connection.
func (l *Lobby) ConnByTeam(name string) (string, bool) {
	for _, e := range l.TeamNames {
		if e.Name == name {
			return e.Conn, true
		}
	}
	return "", false
}

// OtherTeam returns the entry that is not the given connection. The
// ceremony only ever runs with two teams.
func (l *Lobby) OtherTeam(conn string) (TeamEntry, bool) {
	for _, e := range l.TeamNames {
		if e.Conn != conn {
			return e, true
		}
	}
	return TeamEntry{}, false
}

// RemoveConn strips the connection from members, observers and teams.
// Reports whether the connection was present anywhere.
func (l *Lobby) RemoveConn(conn string) bool {
	found := l.Members[conn] || l.Observers[conn]
	delete(l.Members, conn)
	delete(l.Observers, conn)
	delete(l.Caps, conn)
	for i, e := range l.TeamNames {
		if e.Conn == conn {
			l.TeamNames = append(l.TeamNames[:i], l.TeamNames[i+1:]...)
			found = true
			break
		}
	}
	return found
}

// CapsFor returns the capability record for a connection, creating an
// empty one on first use.
func (l *Lobby) CapsFor(conn string) *Capabilities {
	if c, ok := l.Caps[conn]; ok {
		return c
	}
	c := &Capabilities{}
	l.Caps[conn] = c
	return c
}

// ClearCaps turns every capability off for every connection.
func (l *Lobby) ClearCaps() {
	for _, c := range l.Caps {
		*c = Capabilities{}
	}
}

// MapActive reports whether the map is in the current pool.
func (l *Lobby) MapActive(name string) bool {
	for _, m := range l.Rules.MapNames {
		if m == name {
			return true
		}
	}
	return false
}

// ModeActive reports whether the mode is still contestable this round.
func (l *Lobby) ModeActive(mode string) bool {
	for _, m := range l.Rules.ActiveModes {
		if m == mode {
			return true
		}
	}
	return false
}

// MapUsed reports whether the map was already picked or banned. For
// Splatoon only entries of the given round count; FPS passes round 0 and
// matches everything.
func (l *Lobby) MapUsed(name string, round int) bool {
	for _, b := range l.Banned {
		if b.Map == name && b.Round == round {
			return true
		}
	}
	for _, p := range l.Picked {
		if p.Map == name && p.Round == round {
			return true
		}
	}
	return false
}

// BansInRound counts the bans recorded for the given Splatoon round.
func (l *Lobby) BansInRound(round int) int {
	n := 0
	for _, b := range l.Banned {
		if b.Round == round {
			n++
		}
	}
	return n
}

// TeamNameList returns the team names in join order.
func (l *Lobby) TeamNameList() []string {
	out := make([]string, 0, len(l.TeamNames))
	for _, e := range l.TeamNames {
		out = append(out, e.Name)
	}
	return out
}

// Snapshot is the read-model served by /api/lobbies and replayed to the
// OBS room. Sets become arrays; team names keep join order.
type Snapshot struct {
	ID           string        `json:"id"`
	GameFamily   GameFamily    `json:"gameFamily"`
	TeamNames    []string      `json:"teamNames"`
	MemberCount  int           `json:"memberCount"`
	Observers    int           `json:"observers"`
	Rules        Rules         `json:"rules"`
	Picked       []PickedMap   `json:"pickedMaps"`
	Banned       []BannedMap   `json:"bannedMaps"`
	Decider      *PickedMap    `json:"deciderMap,omitempty"`
	GameStep     int           `json:"gameStep"`
	Started      bool          `json:"started"`
	Ended        bool          `json:"ended"`
	BannedModes  []string      `json:"bannedModes,omitempty"`
	PickedMode   string        `json:"pickedMode,omitempty"`
	PriorityTeam string        `json:"priorityTeam,omitempty"`
	RoundHistory []RoundResult `json:"roundHistory,omitempty"`
}

// SnapshotLocked builds a snapshot. Caller holds the lobby lock.
func (l *Lobby) SnapshotLocked() Snapshot {
	s := Snapshot{
		ID:           l.ID,
		GameFamily:   l.Family,
		TeamNames:    l.TeamNameList(),
		MemberCount:  len(l.Members),
		Observers:    len(l.Observers),
		Rules:        l.Rules,
		GameStep:     l.GameStep,
		Started:      l.Started,
		Ended:        l.Ended,
		PickedMode:   l.PickedMode,
		PriorityTeam: l.PriorityTeam,
	}
	s.Picked = append(s.Picked, l.Picked...)
	s.Banned = append(s.Banned, l.Banned...)
	s.BannedModes = append(s.BannedModes, l.BannedModes...)
	s.RoundHistory = append(s.RoundHistory, l.RoundHistory...)
	if l.Decider != nil {
		d := *l.Decider
		s.Decider = &d
	}
	return s
}

// Snapshot takes the lobby lock and builds a snapshot.
func (l *Lobby) Snapshot() Snapshot {
	l.Lock()
	defer l.Unlock()
	return l.SnapshotLocked()
}
