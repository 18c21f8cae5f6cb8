package websocket

import (
	"time"
)

// EventType represents the type of WebSocket event
type EventType string

const (
	// EventTypeDetection is emitted when a request's entity set is finalized
	EventTypeDetection EventType = "detection"
	// EventTypeJobUpdate is emitted on every job status transition
	EventTypeJobUpdate EventType = "job_update"
	// EventTypeSystemStatus carries periodic aggregate counters
	EventTypeSystemStatus EventType = "system_status"
	// EventTypeConnection represents connection events
	EventTypeConnection EventType = "connection"
)

// Event represents a WebSocket event sent to clients
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// DetectionEvent summarizes the finalized entity set of one request
// or job. Values never appear here; only types and counts.
type DetectionEvent struct {
	ID          string   `json:"id"`
	Kind        string   `json:"kind"`
	EntityCount int      `json:"entity_count"`
	EntityTypes []string `json:"entity_types"`
}

// JobUpdateEvent carries a job status transition
type JobUpdateEvent struct {
	JobID        string  `json:"job_id"`
	Kind         string  `json:"kind"`
	Status       string  `json:"status"`
	Strategy     string  `json:"strategy"`
	EntityCount  int     `json:"entity_count"`
	Error        string  `json:"error,omitempty"`
	ProcessingMS float64 `json:"processing_ms,omitempty"`
}

// SystemStatusEvent carries aggregate processing counters
type SystemStatusEvent struct {
	Status           string  `json:"status"`
	Uptime           string  `json:"uptime"`
	TotalRequests    int64   `json:"total_requests"`
	TotalEntities    int64   `json:"total_entities"`
	AvgProcessingMS  float64 `json:"avg_processing_ms"`
	ConnectedClients int     `json:"connected_clients"`
}

// ConnectionEvent represents WebSocket connection events
type ConnectionEvent struct {
	Action   string `json:"action"` // "connected", "disconnected"
	ClientID string `json:"client_id"`
	ClientIP string `json:"client_ip"`
}

// ClientMessage represents messages sent from clients to server
type ClientMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// SubscriptionRequest selects which event types a client receives.
// Without one, a client receives everything the hub broadcasts.
type SubscriptionRequest struct {
	Events []EventType `json:"events"`
}
