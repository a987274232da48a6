package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/investly/investly-backend/internal/app/service"
	"github.com/investly/investly-backend/internal/observability/metrics"
	"github.com/investly/investly-backend/pkg/logger"
)

const (
	sendBufferSize      = 16
	broadcastBufferSize = 1024
)

// Client is one live funding-feed subscriber.
type Client struct {
	Hub        *Hub
	Conn       *Conn
	BusinessID string
	UserID     string
	Send       chan []byte
}

func NewClient(hub *Hub, conn *Conn, businessID, userID string) *Client {
	return &Client{
		Hub:        hub,
		Conn:       conn,
		BusinessID: businessID,
		UserID:     userID,
		Send:       make(chan []byte, sendBufferSize),
	}
}

type broadcastMessage struct {
	businessID string
	payload    []byte
}

// Hub fans committed funding updates out to the subscribers of each
// business. It implements service.FundingNotifier.
type Hub struct {
	// business id -> subscribers
	rooms map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcastMessage
	done       chan struct{}

	mu sync.RWMutex
}

var _ service.FundingNotifier = (*Hub)(nil)

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcastMessage, broadcastBufferSize),
		done:       make(chan struct{}),
	}
}

// Run serves registrations and broadcasts until ctx is cancelled, then
// disconnects every subscriber.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			room, ok := h.rooms[client.BusinessID]
			if !ok {
				room = make(map[*Client]struct{})
				h.rooms[client.BusinessID] = room
			}
			room[client] = struct{}{}
			count := len(room)
			h.mu.Unlock()

			metrics.AddFeedSubscribers(1)
			logger.Info("Funding feed subscriber registered", map[string]interface{}{
				"business_id": client.BusinessID,
				"user_id":     client.UserID,
				"subscribers": count,
			})

		case client := <-h.unregister:
			if h.remove(client) {
				logger.Info("Funding feed subscriber unregistered", map[string]interface{}{
					"business_id": client.BusinessID,
					"user_id":     client.UserID,
				})
			}

		case message := <-h.broadcast:
			h.deliver(message)
		}
	}
}

func (h *Hub) remove(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[client.BusinessID]
	if !ok {
		return false
	}
	if _, ok := room[client]; !ok {
		return false
	}
	delete(room, client)
	if len(room) == 0 {
		delete(h.rooms, client.BusinessID)
	}
	close(client.Send)
	metrics.AddFeedSubscribers(-1)
	return true
}

func (h *Hub) deliver(message broadcastMessage) {
	var slow []*Client

	h.mu.RLock()
	for client := range h.rooms[message.businessID] {
		select {
		case client.Send <- message.payload:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		logger.Warn("Subscriber send buffer full, disconnecting", map[string]interface{}{
			"business_id": client.BusinessID,
			"user_id":     client.UserID,
		})
		h.remove(client)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for businessID, room := range h.rooms {
		for client := range room {
			close(client.Send)
			metrics.AddFeedSubscribers(-1)
		}
		delete(h.rooms, businessID)
	}
}

// PublishFunding queues an update for the business's subscribers. It never
// blocks the ledger write path; a full queue drops the update.
func (h *Hub) PublishFunding(update service.FundingUpdate) {
	data, err := json.Marshal(update)
	if err != nil {
		logger.Error("Failed to marshal funding update", err, map[string]interface{}{
			"business_id": update.BusinessID,
		})
		return
	}

	select {
	case h.broadcast <- broadcastMessage{businessID: update.BusinessID, payload: data}:
	default:
		logger.Warn("Broadcast queue full, funding update dropped", map[string]interface{}{
			"business_id": update.BusinessID,
			"type":        update.Type,
		})
	}
}

// SendSnapshot delivers the current state to a single new subscriber.
func (h *Hub) SendSnapshot(client *Client, snapshot service.FundingUpdate) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		logger.Error("Failed to marshal funding snapshot", err, nil)
		return
	}
	select {
	case client.Send <- data:
	default:
	}
}

// Register adds the client to its business room. After shutdown the client
// is closed immediately.
func (h *Hub) Register(client *Client) {
	// register is unbuffered, so once done is closed nothing can be left
	// queued for a loop that has stopped.
	select {
	case <-h.done:
		close(client.Send)
		return
	default:
	}
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case <-h.done:
		return
	default:
	}
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Subscribers returns how many clients follow the business.
func (h *Hub) Subscribers(businessID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[businessID])
}
