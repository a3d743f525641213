// Package websocket pushes catalog and trip notifications to connected UI
// clients so their views refresh without polling.
package websocket

import (
	"sync"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Message types sent to clients.
const (
	TypeCatalogChanged = "CATALOG_CHANGED"
	TypeTripState      = "TRIP_STATE"
	TypeAck            = "ACK"
	TypeDeviceIdentify = "DEVICE_IDENTIFY"
)

// CatalogChanged tells clients which products to re-render.
type CatalogChanged struct {
	Type string   `json:"type"`
	IDs  []string `json:"ids"`
}

// TripStateChanged tells clients the trip cycle moved.
type TripStateChanged struct {
	Type      string `json:"type"`
	State     string `json:"state"`
	Operation string `json:"operation"`
	TripID    string `json:"tripId,omitempty"`
}

type identifyRequest struct {
	client   *Client
	deviceID string
	done     chan struct{}
}

// Hub maintains the set of active clients and broadcasts messages
type Hub struct {
	// Registered clients map: DeviceID -> Client
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client
	identify   chan identifyRequest
	broadcast  chan []byte
	quit       chan struct{}

	// Mutex for thread-safe access to clients map
	mu  sync.RWMutex
	log *zap.Logger
}

// NewHub creates a new Hub instance
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		identify:   make(chan identifyRequest),
		broadcast:  make(chan []byte, 64),
		quit:       make(chan struct{}),
		log:        logger.Named("ws"),
	}
}

// Run starts the hub's main loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.add(client)
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if current, ok := h.clients[client.DeviceID]; ok && current == client {
				delete(h.clients, client.DeviceID)
				close(client.send)
				h.log.Info("📴 client disconnected", zap.String("device", client.DeviceID))
			}
			h.mu.Unlock()

		case req := <-h.identify:
			h.mu.Lock()
			if current, ok := h.clients[req.client.DeviceID]; ok && current == req.client {
				delete(h.clients, req.client.DeviceID)
			}
			req.client.DeviceID = req.deviceID
			h.add(req.client)
			h.mu.Unlock()
			close(req.done)

		case msg := <-h.broadcast:
			h.mu.Lock()
			for id, client := range h.clients {
				select {
				case client.send <- msg:
				default:
					// buffer full, drop the client
					delete(h.clients, id)
					close(client.send)
					h.log.Warn("dropping slow client", zap.String("device", id))
				}
			}
			h.mu.Unlock()

		case <-h.quit:
			h.mu.Lock()
			for id, client := range h.clients {
				delete(h.clients, id)
				close(client.send)
			}
			h.mu.Unlock()
			return
		}
	}
}

// add registers client, closing an older connection of the same device.
// Caller holds mu.
func (h *Hub) add(client *Client) {
	if old, ok := h.clients[client.DeviceID]; ok && old != client {
		close(old.send)
	}
	h.clients[client.DeviceID] = client
	h.log.Info("📱 client connected", zap.String("device", client.DeviceID))
}

// Stop ends Run and disconnects every client.
func (h *Hub) Stop() {
	close(h.quit)
}

// Broadcast queues message for every connected client.
func (h *Hub) Broadcast(message interface{}) {
	jsonMsg, err := json.Marshal(message)
	if err != nil {
		h.log.Error("marshal broadcast", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- jsonMsg:
	default:
		h.log.Warn("broadcast queue full, message dropped")
	}
}

// NotifyCatalogChanged matches the catalog change handler signature.
func (h *Hub) NotifyCatalogChanged(ids []string) {
	h.Broadcast(CatalogChanged{Type: TypeCatalogChanged, IDs: ids})
}

// SendToDevice sends a message to a specific device
func (h *Hub) SendToDevice(deviceID string, message interface{}) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.clients[deviceID]
	if !ok {
		return false
	}

	jsonMsg, err := json.Marshal(message)
	if err != nil {
		h.log.Error("marshal message", zap.Error(err))
		return false
	}

	select {
	case client.send <- jsonMsg:
		return true
	default:
		return false
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
