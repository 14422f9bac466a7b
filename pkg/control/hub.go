package control

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	// sendQueue is how many encoded commands a slow viewer may lag behind.
	sendQueue = 16
	writeWait = 5 * time.Second
)

type client struct {
	id   uuid.UUID
	conn *websocket.Conn
	send chan []byte
}

// Hub fans commands out to every connected viewer.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[uuid.UUID]*client
}

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			// Viewers are native clients and send no Origin header.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[uuid.UUID]*client),
	}
}

// Clients reports how many viewers are connected.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast queues cmd for every viewer. Viewers whose queue is full miss
// the command.
func (h *Hub) Broadcast(cmd Command) {
	msg, err := json.Marshal(cmd)
	if err != nil {
		log.Printf("[CONTROL] Failed to encode %s: %v", cmd.Type, err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			log.Printf("[CONTROL] Viewer %s is falling behind, dropping %s", id, cmd.Type)
		}
	}
}

// ServeHTTP upgrades the request and keeps the viewer registered until the
// connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[CONTROL] Upgrade failed: %v", err)
		return
	}
	c := &client{id: uuid.New(), conn: conn, send: make(chan []byte, sendQueue)}
	h.register(c, r.RemoteAddr)
	defer h.unregister(c)

	go c.writeLoop()
	// Viewers never send anything; reading only notices the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) register(c *client, addr string) {
	h.mu.Lock()
	h.clients[c.id] = c
	n := len(h.clients)
	h.mu.Unlock()
	log.Printf("[CONTROL] Viewer %s connected from %s (%d connected)", c.id, addr, n)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	_ = c.conn.Close()
	log.Printf("[CONTROL] Viewer %s disconnected (%d connected)", c.id, n)
}

func (c *client) writeLoop() {
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.Printf("[CONTROL] Write to %s failed: %v", c.id, err)
			_ = c.conn.Close()
			return
		}
	}
}

// Broadcaster is anything that can deliver a command to viewers.
type Broadcaster interface {
	Broadcast(Command)
}

// Sweep seeks every viewer from from to to in steps of stepMonths, one step
// per limiter token. It returns the number of seeks sent.
func Sweep(ctx context.Context, b Broadcaster, from, to time.Time, stepMonths int, limiter *rate.Limiter) (int, error) {
	if stepMonths <= 0 {
		return 0, fmt.Errorf("step must be positive, got %d months", stepMonths)
	}
	if to.Before(from) {
		return 0, fmt.Errorf("sweep ends %s before it starts %s", to.Format(time.DateOnly), from.Format(time.DateOnly))
	}
	sent := 0
	for t := from; !t.After(to); t = t.AddDate(0, stepMonths, 0) {
		if err := limiter.Wait(ctx); err != nil {
			return sent, err
		}
		b.Broadcast(Seek(t))
		sent++
	}
	return sent, nil
}
