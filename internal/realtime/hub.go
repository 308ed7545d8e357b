package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/taakra/engine/internal/models"
	appErr "github.com/taakra/engine/pkg/errors"
	"github.com/taakra/engine/pkg/logger"
	"go.uber.org/zap"
)

const sendBuffer = 64

// Client is one authenticated connection. Frames queued on send are written by the connection's writer.
type Client struct {
	ID   string
	User *models.User

	send   chan []byte
	rooms  map[string]struct{}
	closed bool
}

func NewClient(u *models.User) *Client {
	return &Client{
		ID:    uuid.NewString(),
		User:  u,
		send:  make(chan []byte, sendBuffer),
		rooms: map[string]struct{}{},
	}
}

// Send returns the outbound frame queue.
func (c *Client) Send() <-chan []byte { return c.send }

// Hub tracks local connections by room and relays events through the broker.
type Hub struct {
	broker Broker

	mu      sync.RWMutex
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}
}

func NewHub(broker Broker) *Hub {
	return &Hub{
		broker:  broker,
		clients: map[*Client]struct{}{},
		rooms:   map[string]map[*Client]struct{}{},
	}
}

// Run delivers broker traffic to local connections until ctx is done.
func (h *Hub) Run(ctx context.Context) error {
	return h.broker.Subscribe(ctx, h.dispatch)
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister drops c from every room and closes its queue.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	for room := range c.rooms {
		if members := h.rooms[room]; members != nil {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	c.rooms = map[string]struct{}{}
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (h *Hub) Join(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	members := h.rooms[room]
	if members == nil {
		members = map[*Client]struct{}{}
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.rooms[room] = struct{}{}
}

func (h *Hub) Leave(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members := h.rooms[room]; members != nil {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(c.rooms, room)
}

// Members reports how many local connections are in room.
func (h *Hub) Members(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// EmitTo sends event to every connection in room on every instance.
func (h *Hub) EmitTo(ctx context.Context, room, event string, data any) error {
	return h.publish(ctx, Envelope{Room: room, Event: event}, data)
}

// EmitToOthers is EmitTo without the sending connection.
func (h *Hub) EmitToOthers(ctx context.Context, from *Client, room, event string, data any) error {
	return h.publish(ctx, Envelope{Room: room, Event: event, Except: from.ID}, data)
}

// Broadcast sends event to every connection on every instance.
func (h *Hub) Broadcast(ctx context.Context, event string, data any) error {
	return h.publish(ctx, Envelope{Event: event}, data)
}

func (h *Hub) publish(ctx context.Context, env Envelope, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "encode event failed")
	}
	env.Data = raw
	return h.broker.Publish(ctx, env)
}

// Direct sends a frame to one local connection only.
func (h *Hub) Direct(c *Client, event string, data any) {
	frame, err := encodeFrame(event, data)
	if err != nil {
		logger.L().Warn("encode frame failed", zap.String("event", event), zap.Error(err))
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.deliverLocked(c, frame)
}

func (h *Hub) dispatch(env Envelope) {
	frame, err := json.Marshal(Frame{Event: env.Event, Data: env.Data})
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	targets := h.clients
	if env.Room != "" {
		targets = h.rooms[env.Room]
	}
	for c := range targets {
		if env.Except != "" && c.ID == env.Except {
			continue
		}
		h.deliverLocked(c, frame)
	}
}

// deliverLocked drops a client whose queue is full rather than block the hub.
func (h *Hub) deliverLocked(c *Client, frame []byte) {
	if c.closed {
		return
	}
	select {
	case c.send <- frame:
	default:
		logger.L().Warn("realtime client too slow, disconnecting", zap.String("client_id", c.ID))
		h.removeLocked(c)
	}
}
