package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// FrameType identifies control frames exchanged with clients. Server-pushed
// events use the broadcast.Frame envelope instead.
type FrameType string

const (
	TypeSubscribe   FrameType = "subscribe"
	TypeUnsubscribe FrameType = "unsubscribe"
	TypePing        FrameType = "ping"
	TypePong        FrameType = "pong"
	TypeError       FrameType = "error"
	TypeSubscribed  FrameType = "subscribed"
)

type ControlFrame struct {
	Type      FrameType `json:"type"`
	Channel   string    `json:"channel,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Authorizer decides whether a user may subscribe to a channel. It is
// consulted on every subscribe attempt, never from a cache, so a user
// removed from a room loses the channel on their next (re)connect.
type Authorizer interface {
	Authorize(ctx context.Context, userID uuid.UUID, channel string) error
}

type Client struct {
	ID       uuid.UUID // socket id, echoed to clients for sender exclusion
	UserID   uuid.UUID
	Conn     *websocket.Conn
	Send     chan []byte
	Channels map[string]bool
	Hub      *Hub
	mu       sync.RWMutex
}

type Hub struct {
	clients map[uuid.UUID]*Client

	// One user may hold several connections (tabs, devices).
	userClients map[uuid.UUID]map[uuid.UUID]*Client

	// Subscribed clients per channel name.
	channels map[string]map[uuid.UUID]*Client

	register   chan *Client
	unregister chan *Client

	authorizer Authorizer
	logger     *slog.Logger

	mu sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(authorizer Authorizer, logger *slog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:     make(map[uuid.UUID]*Client),
		userClients: make(map[uuid.UUID]map[uuid.UUID]*Client),
		channels:    make(map[string]map[uuid.UUID]*Client),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		authorizer:  authorizer,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case <-h.ctx.Done():
			return
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		}
	}
}

func (h *Hub) Stop() {
	h.cancel()

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		close(client.Send)
		client.Conn.Close()
	}
}

// Register and Unregister hand the client to the Run loop. Once Stop has
// cancelled the hub, the loop is gone, so both bail out instead of blocking
// on a channel nobody drains.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client

	if _, ok := h.userClients[client.UserID]; !ok {
		h.userClients[client.UserID] = make(map[uuid.UUID]*Client)
	}
	h.userClients[client.UserID][client.ID] = client

	h.logger.Info("client registered", "socket_id", client.ID, "user_id", client.UserID)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client.ID]; !ok {
		return
	}

	client.mu.RLock()
	subscribed := make([]string, 0, len(client.Channels))
	for channel := range client.Channels {
		subscribed = append(subscribed, channel)
	}
	client.mu.RUnlock()

	for _, channel := range subscribed {
		h.removeFromChannelLocked(client, channel)
	}

	if userClients, ok := h.userClients[client.UserID]; ok {
		delete(userClients, client.ID)
		if len(userClients) == 0 {
			delete(h.userClients, client.UserID)
		}
	}

	delete(h.clients, client.ID)
	close(client.Send)

	h.logger.Info("client unregistered", "socket_id", client.ID, "user_id", client.UserID)
}

// Subscribe joins the client to a channel after a fresh authorization check.
func (h *Hub) Subscribe(ctx context.Context, client *Client, channel string) error {
	if h.authorizer != nil {
		if err := h.authorizer.Authorize(ctx, client.UserID, channel); err != nil {
			return err
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.channels[channel]; !ok {
		h.channels[channel] = make(map[uuid.UUID]*Client)
	}
	h.channels[channel][client.ID] = client

	client.mu.Lock()
	client.Channels[channel] = true
	client.mu.Unlock()

	return nil
}

func (h *Hub) Unsubscribe(client *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeFromChannelLocked(client, channel)
}

func (h *Hub) removeFromChannelLocked(client *Client, channel string) {
	if subscribers, ok := h.channels[channel]; ok {
		delete(subscribers, client.ID)
		if len(subscribers) == 0 {
			delete(h.channels, channel)
		}
	}

	client.mu.Lock()
	delete(client.Channels, channel)
	client.mu.Unlock()
}

// Deliver sends a marshaled frame to every client subscribed to the channel,
// skipping the excluded socket. Implements broadcast.LocalSink.
func (h *Hub) Deliver(channel string, message []byte, excludeSocket uuid.UUID) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.channels[channel] {
		if excludeSocket != uuid.Nil && client.ID == excludeSocket {
			continue
		}
		select {
		case client.Send <- message:
		default:
			h.logger.Warn("client send queue full, dropping frame",
				"socket_id", client.ID, "channel", channel)
		}
	}
}

// SubscriberCount reports how many sockets are on a channel.
func (h *Hub) SubscriberCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

// OnlineUsers lists user IDs with at least one open connection.
func (h *Hub) OnlineUsers() []uuid.UUID {
	h.mu.RLock()
	defer h.mu.RUnlock()

	users := make([]uuid.UUID, 0, len(h.userClients))
	for userID := range h.userClients {
		users = append(users, userID)
	}
	return users
}

// IsOnline reports whether a user has any open connection.
func (h *Hub) IsOnline(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.userClients[userID]
	return ok
}

func marshalControl(frame ControlFrame) []byte {
	if frame.Timestamp.IsZero() {
		frame.Timestamp = time.Now()
	}
	data, _ := json.Marshal(frame)
	return data
}
