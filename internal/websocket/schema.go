package websocket

import (
	"time"

	"github.com/google/uuid"
)

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventRegistered Event = "registered"
	EventStarted    Event = "started"
	EventSubmitted  Event = "submitted"
	EventError      Event = "error"
	EventPong       Event = "pong"
)

// MonitorEvent is broadcast on an exam's monitor channel whenever a taker's
// ledger entry changes, and relayed verbatim to the creator's stream.
type MonitorEvent struct {
	Event   Event     `json:"event"`
	Code    string    `json:"code"`
	TakerID uuid.UUID `json:"taker_id"`
	Score   *float64  `json:"score,omitempty"` // Submitted only
	At      time.Time `json:"at"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}
