package handler

import (
	"time"

	"github.com/inboxlab/inboxd/internal/models"
	"github.com/inboxlab/inboxd/internal/service"
)

type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type WebhookResponse struct {
	OK         bool `json:"ok"`
	SavedCount int  `json:"saved_count"`
}

type MessageListResponse struct {
	OK       bool                 `json:"ok"`
	Messages []models.MessageView `json:"messages"`
}

type ReplyRequest struct {
	MessageIDs []string `json:"message_ids"`
	Text       string   `json:"text"`
}

type ReplyResponse struct {
	OK      bool                   `json:"ok"`
	Count   int                    `json:"count"`
	Results []service.ReplyOutcome `json:"results"`
}

type DeleteResponse struct {
	OK bool `json:"ok"`
}
