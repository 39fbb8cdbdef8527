package service

import (
	"context"

	"github.com/inboxlab/inboxd/internal/models"
)

// MessageService covers the ingestion, list, reply and delete pipelines.
type MessageService interface {
	// Ingest processes one webhook delivery and returns how many records
	// were newly created. Malformed envelopes are skipped, never escalated.
	Ingest(ctx context.Context, payload *models.WebhookPayload) (int, error)

	// List returns the public projections of stored messages, optionally
	// filtered by status, newest-received first.
	List(ctx context.Context, status *models.MessageStatus) ([]models.MessageView, error)

	// Reply sends the text to every resolved message id sequentially and
	// marks each record replied. A send failure aborts the remaining batch;
	// records replied before the failure stay replied.
	Reply(ctx context.Context, messageIDs []string, text string) (*ReplyResult, error)

	// Delete removes a message and publishes a deletion event.
	Delete(ctx context.Context, id string) error
}

// HealthService reports storage mode and collaborator diagnostics.
type HealthService interface {
	GetHealth(ctx context.Context) *HealthStatus
}
