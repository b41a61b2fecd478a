package catalog

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Action is a single token of a veto pattern.
type Action string

const (
	ActionBan     Action = "ban"
	ActionPick    Action = "pick"
	ActionDecider Action = "decider"
)

// Step is one entry of a Splatoon pattern: what happens and whether the
// priority team is the one acting.
type Step struct {
	Action     Action
	ByPriority bool
}

// PatternLength is the fixed token count of every FPS pattern. A smaller
// map pool consumes the leading tokens implicitly.
const PatternLength = 7

var defaultFPSPools = map[string][]string{
	"cs2": {"Ancient", "Anubis", "Dust 2", "Inferno", "Mirage", "Nuke", "Train"},
}

var fpsPatterns = map[string][]Action{
	"bo1": {ActionBan, ActionBan, ActionBan, ActionBan, ActionBan, ActionBan, ActionPick},
	"bo3": {ActionBan, ActionBan, ActionPick, ActionPick, ActionBan, ActionBan, ActionDecider},
	"bo5": {ActionBan, ActionBan, ActionPick, ActionPick, ActionPick, ActionPick, ActionDecider},
}

var splatoonModes = []string{"zones", "tower", "rainmaker", "clams"}

var splatoonTwoModes = []string{"tower", "zones"}

var modeNames = map[string]string{
	"zones":     "Бой за зоны",
	"tower":     "Бой за башню",
	"rainmaker": "Мегакарп",
	"clams":     "Устробол",
}

var splatoonPools = map[string][]string{
	"zones":     {"Scorch Gorge", "Eeltail Alley", "Hagglefish Market", "Undertow Spillway", "Mincemeat Metalworks", "Hammerhead Bridge", "Mahi-Mahi Resort", "Inkblot Art Academy"},
	"tower":     {"Scorch Gorge", "Eeltail Alley", "Undertow Spillway", "Mincemeat Metalworks", "Sturgeon Shipyard", "MakoMart", "Flounder Heights", "Brinewater Springs"},
	"rainmaker": {"Eeltail Alley", "Hagglefish Market", "Undertow Spillway", "Mahi-Mahi Resort", "Inkblot Art Academy", "Sturgeon Shipyard", "MakoMart", "Um'ami Ruins"},
	"clams":     {"Scorch Gorge", "Hagglefish Market", "Mincemeat Metalworks", "Hammerhead Bridge", "Inkblot Art Academy", "MakoMart", "Flounder Heights", "Manta Maria"},
}

// Catalog holds the process-wide game definitions. The FPS map pool and the
// cosmetic card colors are admin-editable; edits never reach lobbies that
// were created earlier because every read hands out a deep copy.
type Catalog struct {
	mu         sync.RWMutex
	fpsPools   map[string][]string
	cardColors []string
}

var defaultCardColors = []string{"#3498db", "#e74c3c"}

func New() *Catalog {
	return &Catalog{
		fpsPools:   clonePools(defaultFPSPools),
		cardColors: cloneStrings(defaultCardColors),
	}
}

// FPSMapPool returns a copy of the current pool for the given game.
func (c *Catalog) FPSMapPool(game string) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	pool, ok := c.fpsPools[game]
	if !ok {
		return nil, fmt.Errorf("unknown game %q", game)
	}
	return cloneStrings(pool), nil
}

// SetFPSMapPool replaces the pool for the given game. A nil pool resets it
// to the built-in default.
func (c *Catalog) SetFPSMapPool(game string, pool []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := defaultFPSPools[game]; !ok {
		return fmt.Errorf("unknown game %q", game)
	}
	if pool == nil {
		c.fpsPools[game] = cloneStrings(defaultFPSPools[game])
		return nil
	}
	if len(pool) != PatternLength {
		return fmt.Errorf("map pool must have %d maps, got %d", PatternLength, len(pool))
	}
	c.fpsPools[game] = cloneStrings(pool)
	return nil
}

// CardColors returns a copy of the cosmetic palette.
func (c *Catalog) CardColors() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneStrings(c.cardColors)
}

// SetCardColors replaces the palette; nil resets the default.
func (c *Catalog) SetCardColors(colors []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if colors == nil {
		c.cardColors = cloneStrings(defaultCardColors)
		return
	}
	c.cardColors = cloneStrings(colors)
}

// FPSPattern returns the veto pattern for a game type. The first
// PatternLength − poolSize tokens are consumed before any team acts.
func FPSPattern(gameType string) ([]Action, error) {
	pattern, ok := fpsPatterns[gameType]
	if !ok {
		return nil, fmt.Errorf("unknown game type %q", gameType)
	}
	out := make([]Action, len(pattern))
	copy(out, pattern)
	return out, nil
}

// SplatoonMapPool returns a copy of the pool contested in the given mode.
func SplatoonMapPool(mode string) ([]string, error) {
	pool, ok := splatoonPools[mode]
	if !ok {
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
	return cloneStrings(pool), nil
}

// SplatoonModes returns the mode list for a pool size of 2 or 4.
func SplatoonModes(modesSize int) ([]string, error) {
	switch modesSize {
	case 2:
		return cloneStrings(splatoonTwoModes), nil
	case 4:
		return cloneStrings(splatoonModes), nil
	default:
		return nil, fmt.Errorf("modes size must be 2 or 4, got %d", modesSize)
	}
}

// ModeTranslation returns the display name shown to players.
func ModeTranslation(mode string) string {
	if name, ok := modeNames[mode]; ok {
		return name
	}
	return mode
}

// SplatoonPattern returns the mode steps and map steps for one round.
// Round 1 uses the first-round patterns; later rounds the shorter ones.
func SplatoonPattern(modesSize int, firstRound bool) (modes, maps []Step) {
	if modesSize == 4 {
		if firstRound {
			modes = []Step{
				{ActionBan, true},
				{ActionBan, false},
				{ActionPick, true},
			}
		} else {
			modes = []Step{
				{ActionBan, true},
				{ActionPick, false},
			}
		}
	} else {
		// With two modes there is nothing to ban: the priority team picks.
		modes = []Step{{ActionPick, true}}
	}

	if firstRound || modesSize == 2 {
		maps = []Step{
			{ActionBan, true},
			{ActionBan, true},
			{ActionBan, false},
			{ActionBan, false},
			{ActionBan, false},
			{ActionPick, true},
		}
	} else {
		maps = []Step{
			{ActionBan, true},
			{ActionBan, true},
			{ActionBan, true},
			{ActionPick, false},
		}
	}
	return modes, maps
}

// PatternList exposes the FPS patterns for observer overlays.
func PatternList() map[string][]Action {
	out := make(map[string][]Action, len(fpsPatterns))
	for k, v := range fpsPatterns {
		p := make([]Action, len(v))
		copy(p, v)
		out[k] = p
	}
	return out
}

// cloneStrings deep-copies via a JSON round trip. Every catalog read hands
// out a clone, never the backing slice.
func cloneStrings(in []string) []string {
	data, _ := json.Marshal(in)
	var out []string
	_ = json.Unmarshal(data, &out)
	return out
}

func clonePools(in map[string][]string) map[string][]string {
	out := make(map[string][]string, len(in))
	for k, v := range in {
		out[k] = cloneStrings(v)
	}
	return out
}
