package dto

import "time"

// EventMessage is the envelope session/propagation events travel in on the
// internal bus and out to websocket clients.
type EventMessage struct {
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurredAt"`
}
