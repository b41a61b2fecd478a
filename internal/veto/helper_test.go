package veto

import (
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/csmplay/mapban/internal/catalog"
	"github.com/csmplay/mapban/internal/lobby"
)

// recorder collects emitted events instead of pushing them over a socket.
type recEvent struct {
	Target string // "conn:<id>", "lobby:<id>", "obs", "all"
	Event  string
	Data   interface{}
}

type recorder struct {
	mu     sync.Mutex
	events []recEvent
}

func (r *recorder) add(target, event string, data interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recEvent{Target: target, Event: event, Data: data})
}

func (r *recorder) ToConn(conn, event string, data interface{}) { r.add("conn:"+conn, event, data) }
func (r *recorder) ToLobby(id, event string, data interface{})  { r.add("lobby:"+id, event, data) }
func (r *recorder) ToObs(event string, data interface{})        { r.add("obs", event, data) }
func (r *recorder) ToAll(event string, data interface{})        { r.add("all", event, data) }

func (r *recorder) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// forTarget returns the events delivered to a target, in emission order.
func (r *recorder) forTarget(target string) []recEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []recEvent
	for _, e := range r.events {
		if e.Target == target {
			out = append(out, e)
		}
	}
	return out
}

// last returns the most recent event with the given name for the target,
// or nil.
func (r *recorder) last(target, event string) *recEvent {
	evts := r.forTarget(target)
	for i := len(evts) - 1; i >= 0; i-- {
		if evts[i].Event == event {
			return &evts[i]
		}
	}
	return nil
}

// capsState replays the capability event stream for a connection and
// returns the latest value of each capability event.
func (r *recorder) capsState(conn string) map[string]bool {
	out := make(map[string]bool)
	for _, e := range r.forTarget("conn:" + conn) {
		switch e.Event {
		case EvtCanWorkUpdated, EvtCanBan, EvtCanPick, EvtCanModeBan, EvtCanModePick, EvtCanReportWinner:
			if v, ok := e.Data.(bool); ok {
				out[e.Event] = v
			}
		}
	}
	return out
}

func newTestController(t *testing.T, coinFlip bool) (*Controller, *recorder) {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	rec := &recorder{}
	ctrl := NewController(lobby.NewStore(), catalog.New(), rec, log, coinFlip)
	ctrl.randBit = func() int { return 0 }
	return ctrl, rec
}

// setupFPSLobby creates an FPS lobby with two bound teams A and B and
// returns it started, A having joined first.
func setupFPSLobby(t *testing.T, ctrl *Controller, settings FPSSettings) *lobby.Lobby {
	t.Helper()
	settings.LobbyID = "test-lobby"
	if _, err := ctrl.CreateFPS("connA", settings); err != nil {
		t.Fatalf("CreateFPS: %v", err)
	}
	if err := ctrl.Join("connA", "test-lobby", "member"); err != nil {
		t.Fatalf("Join A: %v", err)
	}
	if err := ctrl.Join("connB", "test-lobby", "member"); err != nil {
		t.Fatalf("Join B: %v", err)
	}
	if err := ctrl.SetTeamName("connA", "test-lobby", "Alpha"); err != nil {
		t.Fatalf("SetTeamName A: %v", err)
	}
	if err := ctrl.SetTeamName("connB", "test-lobby", "Bravo"); err != nil {
		t.Fatalf("SetTeamName B: %v", err)
	}
	l, ok := ctrl.Store().Get("test-lobby")
	if !ok {
		t.Fatal("lobby missing after setup")
	}
	return l
}

// setupSplatoonLobby mirrors setupFPSLobby for the Splatoon family.
func setupSplatoonLobby(t *testing.T, ctrl *Controller, settings SplatoonSettings) *lobby.Lobby {
	t.Helper()
	settings.LobbyID = "test-lobby"
	if _, err := ctrl.CreateSplatoon("connA", settings); err != nil {
		t.Fatalf("CreateSplatoon: %v", err)
	}
	if err := ctrl.Join("connA", "test-lobby", "member"); err != nil {
		t.Fatalf("Join A: %v", err)
	}
	if err := ctrl.Join("connB", "test-lobby", "member"); err != nil {
		t.Fatalf("Join B: %v", err)
	}
	if err := ctrl.SetTeamName("connA", "test-lobby", "Alpha"); err != nil {
		t.Fatalf("SetTeamName A: %v", err)
	}
	if err := ctrl.SetTeamName("connB", "test-lobby", "Bravo"); err != nil {
		t.Fatalf("SetTeamName B: %v", err)
	}
	l, ok := ctrl.Store().Get("test-lobby")
	if !ok {
		t.Fatal("lobby missing after setup")
	}
	return l
}
