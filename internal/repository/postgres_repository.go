// Package repository provides storage backends for inbound messages and the
// controller that selects between them.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/inboxlab/inboxd/internal/models"
)

// postgresMessageRepository is the durable backend. Upsert atomicity relies
// on the unique constraint over dedup_key.
type postgresMessageRepository struct {
	db *sqlx.DB
}

// NewPostgresMessageRepository creates the durable message repository.
func NewPostgresMessageRepository(db *sqlx.DB) MessageRepository {
	return &postgresMessageRepository{db: db}
}

const messageColumns = `id, dedup_key, provider_message_id, sender, text, received_at, status, reply_text, replied_at, raw, created_at, updated_at`

// listColumns excludes raw from query projections.
const listColumns = `id, dedup_key, provider_message_id, sender, text, received_at, status, reply_text, replied_at, created_at, updated_at`

func (r *postgresMessageRepository) UpsertIfAbsent(ctx context.Context, key string, candidate *models.Message) (*models.Message, bool, error) {
	query := `
		INSERT INTO messages (` + messageColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (dedup_key) DO NOTHING
		RETURNING ` + messageColumns

	var inserted models.Message
	err := r.db.GetContext(ctx, &inserted, query,
		candidate.ID, key, candidate.ProviderMessageID, candidate.Sender,
		candidate.Text, candidate.ReceivedAt, candidate.Status,
		candidate.ReplyText, candidate.RepliedAt, candidate.Raw,
		candidate.CreatedAt, candidate.UpdatedAt,
	)
	if err == nil {
		return &inserted, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to upsert message: %w", err)
	}

	// Conflict: a record with this dedup key already exists. Return it
	// unchanged; concurrent inserts for the same key observe the winner.
	var existing models.Message
	query = `SELECT ` + messageColumns + ` FROM messages WHERE dedup_key = $1`
	if err := r.db.GetContext(ctx, &existing, query, key); err != nil {
		return nil, false, fmt.Errorf("failed to load existing message for key: %w", err)
	}

	return &existing, false, nil
}

func (r *postgresMessageRepository) Find(ctx context.Context, filter MessageFilter) ([]*models.Message, error) {
	query := `SELECT ` + listColumns + ` FROM messages`
	args := []interface{}{}

	if filter.Status != nil {
		query += ` WHERE status = $1`
		args = append(args, *filter.Status)
	}

	query += fmt.Sprintf(` ORDER BY received_at DESC, created_at DESC LIMIT %d`, FindLimit)

	messages := []*models.Message{}
	if err := r.db.SelectContext(ctx, &messages, query, args...); err != nil {
		return nil, fmt.Errorf("failed to find messages: %w", err)
	}

	return messages, nil
}

func (r *postgresMessageRepository) FindByIDs(ctx context.Context, ids []string) ([]*models.Message, error) {
	if len(ids) == 0 {
		return []*models.Message{}, nil
	}

	query, args, err := sqlx.In(`SELECT `+messageColumns+` FROM messages WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	messages := []*models.Message{}
	if err := r.db.SelectContext(ctx, &messages, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to find messages by ids: %w", err)
	}

	return messages, nil
}

func (r *postgresMessageRepository) Update(ctx context.Context, msg *models.Message) error {
	query := `
		UPDATE messages
		SET status = $2,
		    reply_text = $3,
		    replied_at = $4,
		    updated_at = $5
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		msg.ID, msg.Status, msg.ReplyText, msg.RepliedAt, msg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *postgresMessageRepository) DeleteByID(ctx context.Context, id string) (*models.Message, error) {
	query := `DELETE FROM messages WHERE id = $1 RETURNING ` + messageColumns

	var deleted models.Message
	err := r.db.GetContext(ctx, &deleted, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete message: %w", err)
	}

	return &deleted, nil
}

func (r *postgresMessageRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
