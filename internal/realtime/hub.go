// Copyright (c) 2025 Pagesmith Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package realtime relays file-content updates between connected editor
// sessions over websockets. Every inbound message is broadcast to all other
// connections and handed to a registered UpdateFunc so server-side state
// can follow; the hub itself stores nothing, and the sender never receives
// its own message back.
package realtime

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// MessageTypeCodeUpdate tags a file-content broadcast.
const MessageTypeCodeUpdate = "code-update"

// Message is the relay envelope.
type Message struct {
	Type    string `json:"type"`
	FileID  string `json:"fileId"`
	Content string `json:"content"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The UI is served same-origin; dev setups proxy through it.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// UpdateFunc observes a valid inbound update before it is relayed. The
// session id is the sender's, and may be empty for anonymous connections.
type UpdateFunc func(senderSession string, msg Message)

// Hub relays messages between connected clients.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*client]bool
	closed   bool
	onUpdate UpdateFunc
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*client]bool)}
}

// OnUpdate registers the inbound-update observer. Call before serving.
func (h *Hub) OnUpdate(fn UpdateFunc) {
	h.onUpdate = fn
}

func (h *Hub) notify(session string, msg Message) {
	if h.onUpdate != nil {
		h.onUpdate(session, msg)
	}
}

// ClientCount reports currently connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects all clients.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

// ServeHTTP upgrades the connection and runs the relay loops.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WS_UPGRADE_FAILED | addr=%s err=%v", r.RemoteAddr, err)
		return
	}

	c := &client{
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, 64),
		session: sessionID(r),
	}
	if !h.add(c) {
		conn.Close()
		return
	}
	log.Printf("WS_CONNECT | addr=%s session=%s clients=%d", r.RemoteAddr, c.session, h.ClientCount())

	go c.writeLoop()
	c.readLoop()
}

func (h *Hub) add(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = true
	return true
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// broadcast relays raw bytes to every client except the sender. Slow
// clients with a full send buffer are dropped rather than blocking the
// relay.
func (h *Hub) broadcast(sender *client, payload []byte) {
	h.mu.RLock()
	var stale []*client
	for c := range h.clients {
		if c == sender {
			continue
		}
		select {
		case c.send <- payload:
		default:
			stale = append(stale, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range stale {
		h.remove(c)
	}
}

// sessionID identifies the connecting session. Browser websockets cannot
// set request headers, so a query parameter stands in for X-Session-ID.
func sessionID(r *http.Request) string {
	if sid := r.Header.Get("X-Session-ID"); sid != "" {
		return sid
	}
	return r.URL.Query().Get("session")
}

// Broadcast relays a message originating server-side (no sender to skip).
func (h *Hub) Broadcast(msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	h.broadcast(nil, payload)
	return nil
}
