package websocket

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/raaihank/pii-sentinel/internal/config"
	"github.com/raaihank/pii-sentinel/internal/job"
)

// Client is one connected WebSocket peer
type Client struct {
	ID           string
	Conn         *websocket.Conn
	Send         chan Event
	Subscription *SubscriptionRequest
	ConnectedAt  time.Time
	IP           string
}

// Hub maintains the set of active clients and fans pipeline events
// out to them. It implements the pipeline's Notifier contract.
type Hub struct {
	cfg        config.WebSocketConfig
	clients    map[*Client]bool
	broadcast  chan Event
	register   chan *Client
	unregister chan *Client
	subscribe  chan subscriptionUpdate
	upgrader   websocket.Upgrader
	logger     *zap.Logger
	mu         sync.RWMutex
	stop       chan struct{}

	stats HubStats
}

// subscriptionUpdate carries a client's filter change from its read
// loop to the hub goroutine, which owns all Subscription access.
type subscriptionUpdate struct {
	client *Client
	sub    *SubscriptionRequest
}

// HubStats tracks WebSocket hub statistics
type HubStats struct {
	TotalConnections  int64 `json:"total_connections"`
	ActiveConnections int64 `json:"active_connections"`
	TotalBroadcasts   int64 `json:"total_broadcasts"`
}

// NewHub creates a WebSocket hub
func NewHub(cfg config.WebSocketConfig, logger *zap.Logger) *Hub {
	h := &Hub{
		cfg:        cfg,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Event, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		subscribe:  make(chan subscriptionUpdate, 16),
		logger:     logger,
		stop:       make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	if len(h.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range h.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// Run processes registration and broadcast events until Stop is called
func (h *Hub) Run() {
	h.logger.Info("Starting WebSocket hub")
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)
		case client := <-h.unregister:
			h.unregisterClient(client)
		case u := <-h.subscribe:
			u.client.Subscription = u.sub
			h.logger.Info("Client subscription updated",
				zap.String("client_id", u.client.ID))
		case event := <-h.broadcast:
			h.broadcastEvent(event)
		case <-h.stop:
			h.closeAll()
			return
		}
	}
}

// Stop shuts the hub down and disconnects all clients
func (h *Hub) Stop() {
	close(h.stop)
}

// JobUpdated broadcasts a job status transition. Part of the
// pipeline's Notifier contract; never blocks.
func (h *Hub) JobUpdated(j *job.Job) {
	if !h.cfg.Events.BroadcastJobs {
		return
	}
	h.Broadcast(Event{
		Type:      EventTypeJobUpdate,
		Timestamp: time.Now(),
		Data: JobUpdateEvent{
			JobID:        j.ID,
			Kind:         j.Kind,
			Status:       string(j.Status),
			Strategy:     j.Strategy,
			EntityCount:  len(j.Entities),
			Error:        j.Error,
			ProcessingMS: j.ProcessingMS,
		},
	})
}

// DetectionsFound broadcasts a finalized entity set summary. Part of
// the pipeline's Notifier contract; never blocks.
func (h *Hub) DetectionsFound(id, kind string, count int, types []string) {
	if !h.cfg.Events.BroadcastDetections {
		return
	}
	h.Broadcast(Event{
		Type:      EventTypeDetection,
		Timestamp: time.Now(),
		Data: DetectionEvent{
			ID:          id,
			Kind:        kind,
			EntityCount: count,
			EntityTypes: types,
		},
	})
}

// Broadcast queues an event for delivery, dropping it if the hub is
// saturated.
func (h *Hub) Broadcast(event Event) {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("Broadcast channel full, dropping event",
			zap.String("event_type", string(event.Type)))
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	if h.cfg.MaxConnections > 0 && len(h.clients) >= h.cfg.MaxConnections {
		h.mu.Unlock()
		h.logger.Warn("Connection limit reached, rejecting client",
			zap.String("client_ip", client.IP))
		close(client.Send)
		client.Conn.Close()
		return
	}
	h.clients[client] = true
	h.stats.TotalConnections++
	h.stats.ActiveConnections = int64(len(h.clients))
	h.mu.Unlock()

	h.logger.Info("Client connected",
		zap.String("client_id", client.ID),
		zap.String("client_ip", client.IP))

	if h.cfg.Events.BroadcastSystem {
		h.Broadcast(Event{
			Type:      EventTypeConnection,
			Timestamp: time.Now(),
			Data:      ConnectionEvent{Action: "connected", ClientID: client.ID, ClientIP: client.IP},
		})
	}
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.Send)
		h.stats.ActiveConnections = int64(len(h.clients))
	}
	h.mu.Unlock()

	h.logger.Info("Client disconnected", zap.String("client_id", client.ID))
}

func (h *Hub) broadcastEvent(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.stats.TotalBroadcasts++
	for client := range h.clients {
		if !client.wants(event.Type) {
			continue
		}
		select {
		case client.Send <- event:
		default:
			// Slow consumer, disconnect it
			h.logger.Warn("Client send channel full, closing connection",
				zap.String("client_id", client.ID))
			delete(h.clients, client)
			close(client.Send)
			h.stats.ActiveConnections = int64(len(h.clients))
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		delete(h.clients, client)
		close(client.Send)
		client.Conn.Close()
	}
	h.stats.ActiveConnections = 0
}

// wants reports whether the client's subscription covers an event type
func (c *Client) wants(t EventType) bool {
	if c.Subscription == nil || len(c.Subscription.Events) == 0 {
		return true
	}
	for _, et := range c.Subscription.Events {
		if et == t {
			return true
		}
	}
	return false
}

// HandleWebSocket upgrades an HTTP request into a hub client
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}

	client := &Client{
		ID:          fmt.Sprintf("client_%d", time.Now().UnixNano()),
		Conn:        conn,
		Send:        make(chan Event, 256),
		ConnectedAt: time.Now(),
		IP:          clientIP(r),
	}

	h.register <- client
	go h.writeLoop(client)
	go h.readLoop(client)
}

func (h *Hub) writeLoop(client *Client) {
	pingInterval := h.cfg.PingInterval
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	writeTimeout := h.cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}

	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case event, ok := <-client.Send:
			client.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.Conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) readLoop(client *Client) {
	defer func() {
		h.unregister <- client
		client.Conn.Close()
	}()

	pongTimeout := h.cfg.PongTimeout
	if pongTimeout <= 0 {
		pongTimeout = 60 * time.Second
	}
	maxMessageSize := h.cfg.MaxMessageSize
	if maxMessageSize <= 0 {
		maxMessageSize = 512
	}

	client.Conn.SetReadLimit(maxMessageSize)
	client.Conn.SetReadDeadline(time.Now().Add(pongTimeout))
	client.Conn.SetPongHandler(func(string) error {
		client.Conn.SetReadDeadline(time.Now().Add(pongTimeout))
		return nil
	})

	for {
		var msg ClientMessage
		if err := client.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("WebSocket error",
					zap.String("client_id", client.ID),
					zap.Error(err))
			}
			return
		}
		h.handleClientMessage(client, msg)
	}
}

func (h *Hub) handleClientMessage(client *Client, msg ClientMessage) {
	switch msg.Type {
	case "subscribe":
		if data, ok := msg.Data.(map[string]interface{}); ok {
			jsonData, _ := json.Marshal(data)
			var sub SubscriptionRequest
			if err := json.Unmarshal(jsonData, &sub); err == nil {
				// Applied on the hub goroutine, which also reads the
				// filter during broadcasts
				select {
				case h.subscribe <- subscriptionUpdate{client: client, sub: &sub}:
				default:
					h.logger.Warn("Subscription channel full, dropping update",
						zap.String("client_id", client.ID))
				}
			}
		}
	case "ping":
		select {
		case client.Send <- Event{Type: "pong", Timestamp: time.Now(), Data: map[string]string{"message": "pong"}}:
		default:
		}
	}
}

// GetStats returns current hub statistics
func (h *Hub) GetStats() HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	stats := h.stats
	stats.ActiveConnections = int64(len(h.clients))
	return stats
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
