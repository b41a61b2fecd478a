package ws

import (
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/csmplay/mapban/internal/veto"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The UI is served from a CDN; origin checks stay open.
		return true
	},
}

// Hub owns the connections and is the controller's Emitter. Per-lobby
// serialization lives in the lobby mutex; the hub only guards its own
// connection maps.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	obs     map[string]bool
	// obsLobby is the lobby pinned to the obs_views room; its lobby-room
	// broadcasts are mirrored there.
	obsLobby string

	ctrl *veto.Controller
	log  *logrus.Logger
}

func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		obs:     make(map[string]bool),
		log:     log,
	}
}

// SetController wires the turn controller in after construction; the hub
// and the controller reference each other.
func (h *Hub) SetController(ctrl *veto.Controller) { h.ctrl = ctrl }

// ServeWS upgrades the request and starts the client pumps. A connection
// arriving on the admin path is trusted with the admin surface.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	admin := r.URL.Query().Get("role") == "admin"
	client := newClient(h, conn, uuid.NewString(), admin)

	h.mu.Lock()
	h.clients[client.id] = client
	h.mu.Unlock()

	h.log.WithFields(logrus.Fields{
		"conn":   client.id,
		"admin":  admin,
		"remote": r.RemoteAddr,
	}).Info("connection opened")

	go client.writePump()
	go client.readPump()
}

// unregister is the disconnect reaper: the connection leaves every lobby
// it joined, empty non-admin lobbies are collected, and the obs room
// forgets it.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.id)
	delete(h.obs, c.id)
	joined := make([]string, 0, len(c.lobbies))
	for lobbyID := range c.lobbies {
		joined = append(joined, lobbyID)
	}
	h.mu.Unlock()

	for _, lobbyID := range joined {
		h.ctrl.Leave(c.id, lobbyID)
	}
	close(c.send)

	h.log.WithField("conn", c.id).Info("connection closed")
}

// trackLobby records that the connection joined a lobby; the reaper uses
// the set on disconnect. Guarded by the hub lock because the admin delete
// path clears entries from another goroutine.
func (h *Hub) trackLobby(c *Client, lobbyID string) {
	h.mu.Lock()
	c.lobbies[lobbyID] = true
	h.mu.Unlock()
}

func (h *Hub) untrackLobby(c *Client, lobbyID string) {
	h.mu.Lock()
	delete(c.lobbies, lobbyID)
	h.mu.Unlock()
}

func (h *Hub) joinObs(c *Client) {
	h.mu.Lock()
	h.obs[c.id] = true
	pinned := h.obsLobby
	h.mu.Unlock()

	if pinned != "" {
		h.ctrl.ResendObs(pinned)
	}
}

func (h *Hub) setObsLobby(lobbyID string) {
	h.mu.Lock()
	h.obsLobby = lobbyID
	h.mu.Unlock()
	h.ctrl.ResendObs(lobbyID)
}

// --- veto.Emitter ---

// ToConn delivers one event to one connection. Frames queued here keep
// their order on the wire: the send channel is FIFO.
func (h *Hub) ToConn(conn, event string, data interface{}) {
	h.mu.RLock()
	c, ok := h.clients[conn]
	h.mu.RUnlock()
	if !ok {
		return
	}
	frame, err := encodeEvent(event, data)
	if err != nil {
		h.log.WithError(err).WithField("event", event).Error("encode event")
		return
	}
	c.trySend(frame)
}

// ToLobby fans an event out to the lobby room; when the lobby is pinned
// to the obs_views room the frame is mirrored there too. Room membership
// lives in the hub's own tracking: the controller emits while holding the
// lobby mutex, so the emitter must never take it.
func (h *Hub) ToLobby(lobbyID, event string, data interface{}) {
	frame, err := encodeEvent(event, data)
	if err != nil {
		h.log.WithError(err).WithField("event", event).Error("encode event")
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, 4)
	for _, c := range h.clients {
		if c.lobbies[lobbyID] {
			targets = append(targets, c)
		}
	}
	mirror := h.obsLobby == lobbyID
	h.mu.RUnlock()

	for _, c := range targets {
		c.trySend(frame)
	}
	if mirror {
		h.sendObs(frame)
	}
}

// ToObs delivers to the obs_views room only.
func (h *Hub) ToObs(event string, data interface{}) {
	frame, err := encodeEvent(event, data)
	if err != nil {
		h.log.WithError(err).WithField("event", event).Error("encode event")
		return
	}
	h.sendObs(frame)
}

func (h *Hub) sendObs(frame []byte) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.obs))
	for conn := range h.obs {
		if c, ok := h.clients[conn]; ok {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range targets {
		c.trySend(frame)
	}
}

// ToAll broadcasts to every open connection.
func (h *Hub) ToAll(event string, data interface{}) {
	frame, err := encodeEvent(event, data)
	if err != nil {
		h.log.WithError(err).WithField("event", event).Error("encode event")
		return
	}
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	for _, c := range targets {
		c.trySend(frame)
	}
}
