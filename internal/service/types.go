package service

import (
	"time"

	"github.com/inboxlab/inboxd/internal/provider"
	"github.com/inboxlab/inboxd/internal/repository"
)

// ReplyOutcome is the per-id result of a reply batch entry.
type ReplyOutcome struct {
	ID                string `json:"id"`
	ProviderMessageID string `json:"provider_message_id,omitempty"`
}

// ReplyResult reports a completed (or aborted) reply batch.
type ReplyResult struct {
	Count   int            `json:"count"`
	Results []ReplyOutcome `json:"results"`
}

// HealthStatus is the diagnostic snapshot served by the health endpoint.
// Volatile mode with a durable backend configured is degraded, not down:
// ingestion and replies keep working against the fallback store.
type HealthStatus struct {
	Mode             repository.Mode       `json:"mode"`
	WantDurable      bool                  `json:"want_durable"`
	LastError        string                `json:"last_error,omitempty"`
	RedisStatus      string                `json:"redis_status,omitempty"`
	BreakerState     provider.BreakerState `json:"circuit_breaker_state,omitempty"`
	BreakerCounts    string                `json:"circuit_breaker_counts,omitempty"`
	ConnectedClients int                   `json:"connected_clients"`
	Time             time.Time             `json:"time"`
}
