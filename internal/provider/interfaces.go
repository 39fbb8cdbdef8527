// Package provider integrates with the WhatsApp Cloud API for outbound
// message sends.
package provider

import "context"

// SendResult carries the provider's response to a successful send.
type SendResult struct {
	// MessageID is the provider-assigned id of the outbound message.
	MessageID string
}

// Sender performs an authenticated send call against the messaging
// provider. replyToMessageID, when non-empty, threads the reply onto the
// original inbound message.
type Sender interface {
	SendText(ctx context.Context, to, text, replyToMessageID string) (*SendResult, error)
}

// BreakerReporter is implemented by senders that guard sends with a circuit
// breaker and can report its state for diagnostics.
type BreakerReporter interface {
	BreakerState() (state BreakerState, requests uint32, failures uint32)
}
