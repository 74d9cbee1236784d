// Package hub fans chat messages out to every connected client except the
// sender.
package hub

import (
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
)

const DefaultQueueSize = 32

// Message is one websocket frame, forwarded untouched.
type Message struct {
	Binary bool
	Data   []byte
}

type Client struct {
	ID    uint64
	queue chan Message
}

// Messages yields frames addressed to the client. It is closed once the
// client is disconnected.
func (c *Client) Messages() <-chan Message {
	return c.queue
}

type Option func(*Hub)

func WithQueueSize(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.queueSize = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.log = l
		}
	}
}

type Hub struct {
	mu      sync.RWMutex
	clients map[uint64]*Client
	closed  bool

	nextID    atomic.Uint64
	queueSize int
	log       *slog.Logger
}

func New(opts ...Option) *Hub {
	h := &Hub{
		clients:   make(map[uint64]*Client),
		queueSize: DefaultQueueSize,
		log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Connect registers a new client. After Close the returned client is not
// registered and its queue is already closed.
func (h *Hub) Connect() *Client {
	c := &Client{
		ID:    h.nextID.Add(1),
		queue: make(chan Message, h.queueSize),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(c.queue)
		return c
	}
	h.clients[c.ID] = c
	return c
}

// Disconnect removes the client and closes its queue. Unknown ids are ignored.
func (h *Hub) Disconnect(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeLocked(id)
}

func (h *Hub) removeLocked(id uint64) bool {
	c, ok := h.clients[id]
	if !ok {
		return false
	}
	delete(h.clients, id)
	close(c.queue)
	return true
}

// Broadcast queues msg for every client other than from and returns how many
// accepted it. Clients whose queue is full are disconnected.
func (h *Hub) Broadcast(from uint64, msg Message) int {
	var (
		delivered int
		slow      []uint64
	)

	h.mu.RLock()
	for id, c := range h.clients {
		if id == from {
			continue
		}
		select {
		case c.queue <- msg:
			delivered++
		default:
			slow = append(slow, id)
		}
	}
	h.mu.RUnlock()

	for _, id := range slow {
		h.mu.Lock()
		removed := h.removeLocked(id)
		h.mu.Unlock()
		if removed {
			h.log.Warn("dropping slow client", "client_id", id, "queue_size", h.queueSize)
		}
	}
	return delivered
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id := range h.clients {
		h.removeLocked(id)
	}
}
