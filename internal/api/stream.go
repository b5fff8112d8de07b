package api

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aconic-ni/customsclass-r/internal/history"
)

// History event types.
const (
	EventSaved   = "saved"
	EventCleared = "cleared"
)

// HistoryEvent describes websocket payloads emitted when a user's history changes.
type HistoryEvent struct {
	Type      string        `json:"type"`
	Item      *history.Item `json:"item,omitempty"`
	Deleted   int64         `json:"deleted,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// Session is one open websocket of a user, with serialized writes.
type Session struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// HistoryNotifier keeps track of open websocket sessions per user and pushes
// history changes to the sessions of the affected user only.
type HistoryNotifier struct {
	mu      sync.Mutex
	clients map[string]map[*Session]struct{}
}

// NewHistoryNotifier constructs a notifier instance.
func NewHistoryNotifier() *HistoryNotifier {
	return &HistoryNotifier{clients: make(map[string]map[*Session]struct{})}
}

// Register attaches a websocket connection for userID and returns its session.
func (n *HistoryNotifier) Register(userID string, conn *websocket.Conn) *Session {
	client := &Session{conn: conn}
	n.mu.Lock()
	defer n.mu.Unlock()
	set, ok := n.clients[userID]
	if !ok {
		set = make(map[*Session]struct{})
		n.clients[userID] = set
	}
	set[client] = struct{}{}
	return client
}

// Unregister removes the websocket client from the notifier and closes the socket.
func (n *HistoryNotifier) Unregister(userID string, client *Session) {
	if client == nil {
		return
	}
	n.mu.Lock()
	n.remove(userID, client)
	n.mu.Unlock()
	_ = client.conn.Close()
}

// Publish sends the event to every session of userID. Sessions that cannot be
// written to are dropped.
func (n *HistoryNotifier) Publish(userID string, event HistoryEvent) {
	event.Timestamp = time.Now().UTC()

	n.mu.Lock()
	sessions := make([]*Session, 0, len(n.clients[userID]))
	for client := range n.clients[userID] {
		sessions = append(sessions, client)
	}
	n.mu.Unlock()

	for _, client := range sessions {
		if err := client.writeJSON(event); err != nil {
			n.mu.Lock()
			n.remove(userID, client)
			n.mu.Unlock()
			_ = client.conn.Close()
		}
	}
}

// Sessions returns the number of open sessions of userID.
func (n *HistoryNotifier) Sessions(userID string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.clients[userID])
}

func (n *HistoryNotifier) remove(userID string, client *Session) {
	set := n.clients[userID]
	delete(set, client)
	if len(set) == 0 {
		delete(n.clients, userID)
	}
}

func (c *Session) writeJSON(payload interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(payload)
}
