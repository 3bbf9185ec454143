package api

import (
	"time"

	"github.com/TheNaotagrey/Asgaria/typedef"
)

// WebSocket message types
type MessageType string

const (
	// Outgoing message types (server to client)
	MessageTypeAck           MessageType = "ack"
	MessageTypeError         MessageType = "error"
	MessageTypePing          MessageType = "ping"
	MessageTypeStatus        MessageType = "status"
	MessageTypePixelsSaved   MessageType = "pixels_saved"
	MessageTypeBaronyCreated MessageType = "barony_created"
	MessageTypeBaronyUpdated MessageType = "barony_updated"
	MessageTypeBaronyDeleted MessageType = "barony_deleted"

	// Incoming message types (client to server)
	MessageTypeGetStatus MessageType = "get_status"
)

// ClientHeader carries the editor instance id so it can ignore its own events.
const ClientHeader = "X-Asgaria-Client"

// RevisionHeader carries the pixel document revision on pixel responses.
const RevisionHeader = "X-Pixels-Revision"

// Base WebSocket message structure
type WSMessage struct {
	Type      MessageType `json:"type"`
	RequestID string      `json:"request_id,omitempty"`
	Data      any         `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// PixelsSavedData is broadcast after a successful PUT /api/barony_pixels.
type PixelsSavedData struct {
	Regions  int    `json:"regions"`
	Revision int64  `json:"revision"`
	Origin   string `json:"origin,omitempty"`
}

// BaronyEventData is broadcast when a barony record changes.
type BaronyEventData struct {
	ID     int64           `json:"id"`
	Barony *typedef.Barony `json:"barony,omitempty"`
	Origin string          `json:"origin,omitempty"`
}

// StatusData is returned by GET /api/status and the get_status message.
type StatusData struct {
	Uptime           string  `json:"uptime"`
	UptimeSeconds    float64 `json:"uptime_seconds"`
	Clients          int     `json:"clients"`
	Revision         int64   `json:"revision"`
	Goroutines       int     `json:"goroutines"`
	RSSBytes         uint64  `json:"rss_bytes"`
	CPUPercent       float64 `json:"cpu_percent"`
	SystemMemoryUsed float64 `json:"system_memory_used_percent"`
}
