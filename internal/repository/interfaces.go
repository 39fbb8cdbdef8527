package repository

import (
	"context"

	"github.com/inboxlab/inboxd/internal/models"
)

// FindLimit caps list queries regardless of the requested limit.
const FindLimit = 300

// MessageFilter narrows Find results. A nil Status matches both statuses.
type MessageFilter struct {
	Status *models.MessageStatus
}

// MessageRepository is the uniform storage contract implemented by the
// durable (Postgres) and volatile (in-memory) backends.
type MessageRepository interface {
	// UpsertIfAbsent inserts the candidate under the given dedup key, or
	// returns the existing record untouched when the key is already present.
	// The created flag reports whether this call inserted the record.
	UpsertIfAbsent(ctx context.Context, key string, candidate *models.Message) (*models.Message, bool, error)

	// Find returns records matching the filter, newest-received first with
	// ties broken by newest-created, capped at FindLimit. Raw is excluded.
	Find(ctx context.Context, filter MessageFilter) ([]*models.Message, error)

	// FindByIDs returns the records found, in no guaranteed order. Unknown
	// ids are silently omitted.
	FindByIDs(ctx context.Context, ids []string) ([]*models.Message, error)

	// Update persists mutated fields of an existing record. Returns
	// ErrNotFound when the record no longer exists.
	Update(ctx context.Context, msg *models.Message) error

	// DeleteByID removes a record, returning what was deleted for fanout
	// purposes, or ErrNotFound.
	DeleteByID(ctx context.Context, id string) (*models.Message, error)

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error
}
