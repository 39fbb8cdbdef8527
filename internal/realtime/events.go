// Package realtime broadcasts message state changes to connected dashboard
// sessions over WebSocket.
package realtime

import "github.com/inboxlab/inboxd/internal/models"

type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"

	// EventConnected is the acknowledgment frame sent to a client on connect.
	EventConnected EventType = "connected"
)

// Event is one fanout frame. Created and updated events carry the public
// projection; deleted events carry only the id.
type Event struct {
	Type    EventType           `json:"type"`
	Message *models.MessageView `json:"message,omitempty"`
	ID      string              `json:"id,omitempty"`
}

// Publisher is the message-passing surface the pipelines emit through.
// Delivery is best-effort: publishing must never fail or block a pipeline
// call, and clients joining later do not receive earlier events.
type Publisher interface {
	Publish(event Event)
}

// Created builds a creation event for a newly stored message.
func Created(msg *models.Message) Event {
	view := msg.View()
	return Event{Type: EventCreated, Message: &view}
}

// Updated builds an update event for a mutated message.
func Updated(msg *models.Message) Event {
	view := msg.View()
	return Event{Type: EventUpdated, Message: &view}
}

// Deleted builds a deletion event carrying only the id.
func Deleted(id string) Event {
	return Event{Type: EventDeleted, ID: id}
}
