package ws

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"rednote/internal/observability"
)

// StartFunc activates a room's projection. It receives the emit function
// the projection publishes snapshots through and returns its teardown.
// Snapshots must be emitted asynchronously, never from inside StartFunc.
type StartFunc func(emit func(payload any)) (stop func())

// SnapshotEvent is what clients receive: a full replacement of the view,
// never a diff. A failed projection empties the view and flags the error.
type SnapshotEvent struct {
	Type  string `json:"type"`
	Data  any    `json:"data"`
	Error string `json:"error,omitempty"`
}

// Hub maintains websocket rooms keyed by projection. A room's projection
// runs only while the room has clients: the first join starts it, the last
// leave tears it down, so no subscription outlives its audience.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]*room
}

type room struct {
	conns    map[*websocket.Conn]ConnInfo
	stop     func()
	starting bool
	last     []byte

	// writeMu serializes writes to the room's connections. Gorilla
	// connections do not support concurrent writers, and a replay in Join
	// can otherwise race a broadcast to the same connection.
	writeMu sync.Mutex
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]*room)}
}

// Join registers conn in roomID, starting the room's projection if it is
// the first client. Late joiners immediately receive the room's last
// snapshot when one exists.
func (h *Hub) Join(roomID string, conn *websocket.Conn, info ConnInfo, start StartFunc) {
	h.mu.Lock()
	r, ok := h.rooms[roomID]
	if !ok {
		r = &room{conns: make(map[*websocket.Conn]ConnInfo)}
		h.rooms[roomID] = r
	}
	r.conns[conn] = info
	needStart := r.stop == nil && !r.starting
	if needStart {
		r.starting = true
	}
	h.mu.Unlock()

	observability.IncWSActive(roomKind(roomID))

	if needStart {
		stop := start(func(payload any) { h.broadcast(roomID, payload) })
		h.mu.Lock()
		r.starting = false
		if len(r.conns) == 0 {
			// Everyone left while the projection was starting.
			delete(h.rooms, roomID)
			h.mu.Unlock()
			stop()
			return
		}
		r.stop = stop
		h.mu.Unlock()
		return
	}

	if conn == nil {
		return
	}

	// Re-read last under writeMu so a broadcast that lands between the join
	// and the replay cannot be overwritten by a stale snapshot.
	r.writeMu.Lock()
	h.mu.Lock()
	last := r.last
	h.mu.Unlock()
	if last != nil {
		if err := conn.WriteMessage(websocket.TextMessage, last); err != nil {
			log.Warn().Err(err).Str("room", roomID).Msg("websocket replay write failed")
		}
	}
	r.writeMu.Unlock()
}

// Leave removes conn from roomID, stopping the projection when the room
// empties.
func (h *Hub) Leave(roomID string, conn *websocket.Conn) {
	h.mu.Lock()
	r, ok := h.rooms[roomID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, member := r.conns[conn]; !member {
		h.mu.Unlock()
		return
	}
	delete(r.conns, conn)

	var stop func()
	if len(r.conns) == 0 && !r.starting {
		stop = r.stop
		delete(h.rooms, roomID)
	}
	h.mu.Unlock()

	observability.DecWSActive(roomKind(roomID))
	if stop != nil {
		stop()
	}
}

func (h *Hub) broadcast(roomID string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("room", roomID).Msg("snapshot marshal failed")
		return
	}

	h.mu.Lock()
	r, ok := h.rooms[roomID]
	if !ok {
		h.mu.Unlock()
		return
	}
	r.last = body
	conns := make([]*websocket.Conn, 0, len(r.conns))
	for conn := range r.conns {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	r.writeMu.Lock()
	for _, conn := range conns {
		if conn == nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, body); err != nil {
			log.Warn().Err(err).Str("room", roomID).Msg("websocket write failed")
			conn.Close()
			h.Leave(roomID, conn)
			observability.IncWSEvent(roomKind(roomID), "ws_error")
		}
	}
	r.writeMu.Unlock()
}

// roomCount reports the number of live rooms, for tests.
func (h *Hub) roomCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}
