package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/inboxlab/inboxd/internal/config"
)

type sendRequest struct {
	MessagingProduct string       `json:"messaging_product"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             sendText     `json:"text"`
	Context          *sendContext `json:"context,omitempty"`
}

type sendText struct {
	Body string `json:"body"`
}

type sendContext struct {
	MessageID string `json:"message_id"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *apiError `json:"error"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

// whatsappSender sends text messages through the WhatsApp Cloud API. Calls
// run through a circuit breaker and are bounded by the configured timeout.
type whatsappSender struct {
	cfg        *config.WhatsAppConfig
	httpClient *http.Client
	breaker    *CircuitBreaker
	logger     *zap.Logger
}

// NewWhatsAppSender creates the outbound send collaborator.
func NewWhatsAppSender(cfg *config.WhatsAppConfig, logger *zap.Logger) Sender {
	return &whatsappSender{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.SendTimeout) * time.Second,
		},
		breaker: NewCircuitBreaker(&cfg.CircuitBreaker, logger),
		logger:  logger,
	}
}

func (s *whatsappSender) SendText(ctx context.Context, to, text, replyToMessageID string) (*SendResult, error) {
	var result *SendResult

	err := s.breaker.Execute(ctx, func() error {
		var execErr error
		result, execErr = s.doSend(ctx, to, text, replyToMessageID)
		return execErr
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (s *whatsappSender) doSend(ctx context.Context, to, text, replyToMessageID string) (*SendResult, error) {
	reqBody := sendRequest{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             sendText{Body: text},
	}
	if replyToMessageID != "" {
		reqBody.Context = &sendContext{MessageID: replyToMessageID}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal send request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", s.cfg.APIBaseURL, s.cfg.PhoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create send request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.Token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call provider: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			s.logger.Warn("Failed to close provider response body", zap.Error(closeErr))
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read provider response: %w", err)
	}

	var apiResp sendResponse
	// A non-JSON body on an error status still produces a usable SendError.
	_ = json.Unmarshal(body, &apiResp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		sendErr := &SendError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("provider send failed (%d)", resp.StatusCode),
		}
		if apiResp.Error != nil {
			sendErr.Message = apiResp.Error.Message
			detail, _ := json.Marshal(apiResp.Error)
			sendErr.Detail = string(detail)
		}
		return nil, sendErr
	}

	result := &SendResult{}
	if len(apiResp.Messages) > 0 {
		result.MessageID = apiResp.Messages[0].ID
	}

	s.logger.Info("Outbound message sent",
		zap.String("to", to),
		zap.String("provider_message_id", result.MessageID))

	return result, nil
}

// BreakerState exposes the breaker state for the health surface.
func (s *whatsappSender) BreakerState() (BreakerState, uint32, uint32) {
	requests, failures := s.breaker.Counts()
	return s.breaker.State(), requests, failures
}
