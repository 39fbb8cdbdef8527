package models_test

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inboxlab/inboxd/internal/models"
)

func TestIncomingMessage_DedupKey(t *testing.T) {
	receivedAt := time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)

	tests := []struct {
		name     string
		message  models.IncomingMessage
		expected string
	}{
		{
			name: "provider id wins when present",
			message: models.IncomingMessage{
				From: "2010000001",
				ID:   "wamid.ABC123",
				Text: &models.IncomingText{Body: "hi"},
			},
			expected: "wamid.ABC123",
		},
		{
			name: "composite key without provider id",
			message: models.IncomingMessage{
				From: "2010000001",
				Text: &models.IncomingText{Body: "hi"},
			},
			expected: "2010000001:2023-11-14T22:13:20Z:hi",
		},
		{
			name: "composite key with empty text",
			message: models.IncomingMessage{
				From: "2010000001",
			},
			expected: "2010000001:2023-11-14T22:13:20Z:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.message.DedupKey(receivedAt))
		})
	}
}

func TestIncomingMessage_DedupKey_DiffersByContent(t *testing.T) {
	receivedAt := time.Unix(1700000000, 0).UTC()

	first := models.IncomingMessage{From: "2010000001", Text: &models.IncomingText{Body: "hi"}}
	second := models.IncomingMessage{From: "2010000002", Text: &models.IncomingText{Body: "hello"}}
	sameAsFirst := models.IncomingMessage{From: "2010000001", Text: &models.IncomingText{Body: "hi"}}

	assert.NotEqual(t, first.DedupKey(receivedAt), second.DedupKey(receivedAt))
	assert.Equal(t, first.DedupKey(receivedAt), sameAsFirst.DedupKey(receivedAt))
}

func TestIncomingMessage_ReceivedAt(t *testing.T) {
	fallback := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	withTimestamp := models.IncomingMessage{Timestamp: "1700000000"}
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), withTimestamp.ReceivedAt(fallback))

	withoutTimestamp := models.IncomingMessage{}
	assert.Equal(t, fallback, withoutTimestamp.ReceivedAt(fallback))

	malformed := models.IncomingMessage{Timestamp: "not-a-number"}
	assert.Equal(t, fallback, malformed.ReceivedAt(fallback))
}

func TestMessage_View(t *testing.T) {
	now := time.Now().UTC()

	msg := &models.Message{
		ID:                "id-1",
		DedupKey:          "key-1",
		ProviderMessageID: sql.NullString{String: "wamid.X", Valid: true},
		Sender:            "2010000001",
		Text:              "hi",
		ReceivedAt:        now,
		Status:            models.MessageStatusReplied,
		ReplyText:         sql.NullString{String: "ack", Valid: true},
		RepliedAt:         sql.NullTime{Time: now, Valid: true},
		Raw:               []byte(`{"from":"2010000001"}`),
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	view := msg.View()

	require.NotNil(t, view.ProviderMessageID)
	assert.Equal(t, "wamid.X", *view.ProviderMessageID)
	require.NotNil(t, view.ReplyText)
	assert.Equal(t, "ack", *view.ReplyText)
	require.NotNil(t, view.RepliedAt)
	assert.Equal(t, models.MessageStatusReplied, view.Status)
}

func TestMessage_View_OmitsUnsetOptionals(t *testing.T) {
	msg := &models.Message{
		ID:     "id-2",
		Sender: "2010000001",
		Status: models.MessageStatusNew,
	}

	view := msg.View()

	assert.Nil(t, view.ProviderMessageID)
	assert.Nil(t, view.ReplyText)
	assert.Nil(t, view.RepliedAt)
}

func TestParseMessageStatus(t *testing.T) {
	status, ok := models.ParseMessageStatus("new")
	assert.True(t, ok)
	assert.Equal(t, models.MessageStatusNew, status)

	status, ok = models.ParseMessageStatus("replied")
	assert.True(t, ok)
	assert.Equal(t, models.MessageStatusReplied, status)

	_, ok = models.ParseMessageStatus("archived")
	assert.False(t, ok)
}
