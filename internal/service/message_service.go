// Package service provides business logic implementation for the application.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/inboxlab/inboxd/internal/models"
	"github.com/inboxlab/inboxd/internal/provider"
	"github.com/inboxlab/inboxd/internal/realtime"
	"github.com/inboxlab/inboxd/internal/repository"
)

type messageService struct {
	modes       *repository.ModeController
	sender      provider.Sender
	publisher   realtime.Publisher
	redisClient *redis.Client // nil when redis is not configured
	logger      *zap.Logger
}

// NewMessageService wires the ingestion, reply and delete pipelines against
// the mode controller, the outbound sender and the realtime publisher.
func NewMessageService(
	modes *repository.ModeController,
	sender provider.Sender,
	publisher realtime.Publisher,
	redisClient *redis.Client,
	logger *zap.Logger,
) MessageService {
	return &messageService{
		modes:       modes,
		sender:      sender,
		publisher:   publisher,
		redisClient: redisClient,
		logger:      logger,
	}
}

// Ingest walks the nested webhook batch and upserts each envelope under its
// dedup key. The backend is captured once: a mode switch mid-call does not
// split the batch across backends. A bad envelope never aborts the batch —
// the provider retries the whole delivery otherwise.
func (s *messageService) Ingest(ctx context.Context, payload *models.WebhookPayload) (int, error) {
	repo := s.modes.Active()
	created := 0

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for i := range change.Value.Messages {
				msg := &change.Value.Messages[i]

				if msg.From == "" {
					// Malformed or irrelevant envelope, not an error.
					continue
				}

				record, isNew, err := s.ingestOne(ctx, repo, msg)
				if err != nil {
					s.logger.Error("Failed to store inbound message",
						zap.String("provider_message_id", msg.ID),
						zap.String("sender", msg.From),
						zap.Error(err))
					continue
				}

				if isNew {
					s.publisher.Publish(realtime.Created(record))
					created++
				}
			}
		}
	}

	return created, nil
}

func (s *messageService) ingestOne(ctx context.Context, repo repository.MessageRepository, msg *models.IncomingMessage) (*models.Message, bool, error) {
	now := time.Now().UTC()
	receivedAt := msg.ReceivedAt(now)
	key := msg.DedupKey(receivedAt)

	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, false, fmt.Errorf("failed to marshal raw envelope: %w", err)
	}

	candidate := &models.Message{
		ID:         uuid.New().String(),
		DedupKey:   key,
		Sender:     msg.From,
		Text:       msg.Body(),
		ReceivedAt: receivedAt,
		Status:     models.MessageStatusNew,
		Raw:        raw,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if msg.ID != "" {
		candidate.ProviderMessageID = sql.NullString{String: msg.ID, Valid: true}
	}

	return repo.UpsertIfAbsent(ctx, key, candidate)
}

func (s *messageService) List(ctx context.Context, status *models.MessageStatus) ([]models.MessageView, error) {
	repo := s.modes.Active()

	messages, err := repo.Find(ctx, repository.MessageFilter{Status: status})
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	views := make([]models.MessageView, 0, len(messages))
	for _, msg := range messages {
		views = append(views, msg.View())
	}

	return views, nil
}

// Reply sends sequentially, one record at a time. A send failure surfaces
// to the caller and aborts the rest of the batch; records already replied
// keep their replied state (no rollback).
func (s *messageService) Reply(ctx context.Context, messageIDs []string, text string) (*ReplyResult, error) {
	if len(messageIDs) == 0 || text == "" {
		return nil, fmt.Errorf("%w: message_ids and text are required", ErrInvalidRequest)
	}

	repo := s.modes.Active()

	messages, err := repo.FindByIDs(ctx, messageIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	if len(messages) == 0 {
		return nil, fmt.Errorf("no messages matched the given ids: %w", repository.ErrNotFound)
	}

	result := &ReplyResult{Results: make([]ReplyOutcome, 0, len(messages))}

	for _, msg := range messages {
		sendResult, err := s.sender.SendText(ctx, msg.Sender, text, msg.ProviderMessageID.String)
		if err != nil {
			s.logger.Error("Outbound send failed, aborting reply batch",
				zap.String("message_id", msg.ID),
				zap.String("sender", msg.Sender),
				zap.Int("replied_before_failure", result.Count),
				zap.Error(err))
			return result, err
		}

		now := time.Now().UTC()
		msg.Status = models.MessageStatusReplied
		msg.ReplyText = sql.NullString{String: text, Valid: true}
		msg.RepliedAt = sql.NullTime{Time: now, Valid: true}
		msg.UpdatedAt = now

		if err := repo.Update(ctx, msg); err != nil {
			return result, fmt.Errorf("failed to persist reply for message %s: %w", msg.ID, err)
		}

		s.publisher.Publish(realtime.Updated(msg))
		s.cacheSendResult(msg.ID, sendResult)

		result.Results = append(result.Results, ReplyOutcome{
			ID:                msg.ID,
			ProviderMessageID: sendResult.MessageID,
		})
		result.Count++
	}

	return result, nil
}

// cacheSendResult records the provider message id in redis, best-effort.
func (s *messageService) cacheSendResult(messageID string, sendResult *provider.SendResult) {
	if s.redisClient == nil || sendResult.MessageID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	cacheKey := fmt.Sprintf("reply:%s", sendResult.MessageID)
	if err := s.redisClient.Set(ctx, cacheKey, messageID, 24*time.Hour).Err(); err != nil {
		s.logger.Warn("Failed to cache provider message id",
			zap.String("provider_message_id", sendResult.MessageID),
			zap.Error(err))
	}
}

func (s *messageService) Delete(ctx context.Context, id string) error {
	repo := s.modes.Active()

	deleted, err := repo.DeleteByID(ctx, id)
	if err != nil {
		return err
	}

	s.publisher.Publish(realtime.Deleted(deleted.ID))
	return nil
}
