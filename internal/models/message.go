// Package models defines data structures used throughout the application.
package models

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

type MessageStatus string

const (
	MessageStatusNew     MessageStatus = "new"
	MessageStatusReplied MessageStatus = "replied"
)

// ParseMessageStatus validates a status string from a query parameter.
func ParseMessageStatus(s string) (MessageStatus, bool) {
	switch MessageStatus(s) {
	case MessageStatusNew, MessageStatusReplied:
		return MessageStatus(s), true
	}
	return "", false
}

// Message represents a stored inbound message.
//
// DedupKey is the idempotency boundary for webhook redelivery: exactly one
// record exists per key. Raw holds the original provider payload for audit
// and is excluded from list projections.
type Message struct {
	ID                string          `db:"id" json:"id"`
	DedupKey          string          `db:"dedup_key" json:"-"`
	ProviderMessageID sql.NullString  `db:"provider_message_id" json:"-"`
	Sender            string          `db:"sender" json:"sender"`
	Text              string          `db:"text" json:"text"`
	ReceivedAt        time.Time       `db:"received_at" json:"received_at"`
	Status            MessageStatus   `db:"status" json:"status"`
	ReplyText         sql.NullString  `db:"reply_text" json:"-"`
	RepliedAt         sql.NullTime    `db:"replied_at" json:"-"`
	Raw               json.RawMessage `db:"raw" json:"-"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

// MessageView is the public projection of a Message, used for API responses
// and realtime events. Raw never appears here.
type MessageView struct {
	ID                string        `json:"id"`
	ProviderMessageID *string       `json:"provider_message_id,omitempty"`
	Sender            string        `json:"sender"`
	Text              string        `json:"text"`
	ReceivedAt        time.Time     `json:"received_at"`
	Status            MessageStatus `json:"status"`
	ReplyText         *string       `json:"reply_text,omitempty"`
	RepliedAt         *time.Time    `json:"replied_at,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// View returns the public projection of the message.
func (m *Message) View() MessageView {
	v := MessageView{
		ID:         m.ID,
		Sender:     m.Sender,
		Text:       m.Text,
		ReceivedAt: m.ReceivedAt,
		Status:     m.Status,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}

	if m.ProviderMessageID.Valid {
		id := m.ProviderMessageID.String
		v.ProviderMessageID = &id
	}

	if m.ReplyText.Valid {
		text := m.ReplyText.String
		v.ReplyText = &text
	}

	if m.RepliedAt.Valid {
		t := m.RepliedAt.Time
		v.RepliedAt = &t
	}

	return v
}

// WebhookPayload mirrors the provider's inbound webhook body. Provider
// deliveries batch multiple conversations per call, nested as
// entries -> changes -> messages. Every field is optional; absence is
// handled explicitly rather than treated as an error.
type WebhookPayload struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

type WebhookEntry struct {
	ID      string          `json:"id"`
	Changes []WebhookChange `json:"changes"`
}

type WebhookChange struct {
	Field string       `json:"field"`
	Value WebhookValue `json:"value"`
}

type WebhookValue struct {
	MessagingProduct string            `json:"messaging_product"`
	Messages         []IncomingMessage `json:"messages"`
}

// IncomingMessage is one inbound message envelope inside a webhook batch.
type IncomingMessage struct {
	From      string        `json:"from"`
	ID        string        `json:"id"`
	Timestamp string        `json:"timestamp"`
	Type      string        `json:"type"`
	Text      *IncomingText `json:"text"`
}

type IncomingText struct {
	Body string `json:"body"`
}

// Body returns the message text, or empty when the envelope carries none.
func (m *IncomingMessage) Body() string {
	if m.Text == nil {
		return ""
	}
	return m.Text.Body
}

// ReceivedAt resolves the provider timestamp (seconds since epoch) against
// the given fallback, used when the field is absent or malformed.
func (m *IncomingMessage) ReceivedAt(fallback time.Time) time.Time {
	if m.Timestamp == "" {
		return fallback
	}
	secs, err := strconv.ParseInt(m.Timestamp, 10, 64)
	if err != nil {
		return fallback
	}
	return time.Unix(secs, 0).UTC()
}

// DedupKey derives the stable identity used to collapse redelivered webhook
// payloads into one record. The provider message id wins when present;
// otherwise sender, receipt time and text are folded into a composite key.
func (m *IncomingMessage) DedupKey(receivedAt time.Time) string {
	if m.ID != "" {
		return m.ID
	}
	return fmt.Sprintf("%s:%s:%s", m.From, receivedAt.UTC().Format(time.RFC3339), m.Body())
}
