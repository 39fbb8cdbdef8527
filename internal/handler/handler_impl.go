// Package handler provides HTTP request handlers for the application.
package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/inboxlab/inboxd/internal/config"
	"github.com/inboxlab/inboxd/internal/middleware"
	"github.com/inboxlab/inboxd/internal/models"
	"github.com/inboxlab/inboxd/internal/provider"
	"github.com/inboxlab/inboxd/internal/repository"
	"github.com/inboxlab/inboxd/internal/service"
)

const (
	errorCodeInvalidRequest = "INVALID_REQUEST"
	errorCodeUnauthorized   = "UNAUTHORIZED"
	errorCodeNotFound       = "NOT_FOUND"
	errorCodeUpstreamSend   = "UPSTREAM_SEND_FAILED"
)

const signatureHeader = "X-Hub-Signature-256"

// maxWebhookBody bounds inbound webhook payloads (2 MiB).
const maxWebhookBody = 2 << 20

type Handler struct {
	service *service.Service
	cfg     *config.WhatsAppConfig
	logger  *zap.Logger
}

// NewHandler creates the HTTP handler set.
func NewHandler(svc *service.Service, cfg *config.WhatsAppConfig, logger *zap.Logger) *Handler {
	return &Handler{
		service: svc,
		cfg:     cfg,
		logger:  logger,
	}
}

// VerifyWebhook answers the provider's verification handshake: echo the
// challenge when the mode and token match, reject otherwise.
func (h *Handler) VerifyWebhook(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "subscribe" && token != "" && secureEqual(token, h.cfg.VerifyToken) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(challenge))
		return
	}

	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write([]byte("Forbidden"))
}

// ReceiveWebhook ingests one inbound delivery. The signature check gates
// ingestion when an app secret is configured. The endpoint reports success
// even for partially malformed batches — the provider retries indefinitely
// otherwise.
func (h *Handler) ReceiveWebhook(w http.ResponseWriter, r *http.Request) {
	rawBody, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.sendError(w, r, http.StatusBadRequest, errorCodeInvalidRequest, "Failed to read request body")
		return
	}

	if !h.verifySignature(rawBody, r.Header.Get(signatureHeader)) {
		h.sendError(w, r, http.StatusUnauthorized, errorCodeUnauthorized, "Invalid signature")
		return
	}

	var payload models.WebhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		h.sendError(w, r, http.StatusBadRequest, errorCodeInvalidRequest, "Malformed JSON payload")
		return
	}

	saved, err := h.service.Message.Ingest(r.Context(), &payload)
	if err != nil {
		requestID := middleware.GetRequestID(r.Context())
		h.logger.Error("Webhook ingestion failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		h.sendError(w, r, http.StatusInternalServerError, middleware.ErrorCodeInternal, middleware.ErrorMessageInternal)
		return
	}

	render.JSON(w, r, WebhookResponse{OK: true, SavedCount: saved})
}

// ListMessages serves the dashboard list, optionally filtered by status.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	var status *models.MessageStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, ok := models.ParseMessageStatus(raw)
		if !ok {
			h.sendError(w, r, http.StatusBadRequest, errorCodeInvalidRequest, "status must be 'new' or 'replied'")
			return
		}
		status = &parsed
	}

	messages, err := h.service.Message.List(r.Context(), status)
	if err != nil {
		requestID := middleware.GetRequestID(r.Context())
		h.logger.Error("Failed to list messages",
			zap.String("request_id", requestID),
			zap.Error(err))
		h.sendError(w, r, http.StatusInternalServerError, middleware.ErrorCodeInternal, middleware.ErrorMessageInternal)
		return
	}

	render.JSON(w, r, MessageListResponse{OK: true, Messages: messages})
}

// Reply sends the given text to every listed message id.
func (h *Handler) Reply(w http.ResponseWriter, r *http.Request) {
	var req ReplyRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.sendError(w, r, http.StatusBadRequest, errorCodeInvalidRequest, "Required: { message_ids: string[], text: string }")
		return
	}

	result, err := h.service.Message.Reply(r.Context(), req.MessageIDs, req.Text)
	if err != nil {
		h.sendServiceError(w, r, err)
		return
	}

	render.JSON(w, r, ReplyResponse{OK: true, Count: result.Count, Results: result.Results})
}

// DeleteMessage removes one message by id.
func (h *Handler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.Message.Delete(r.Context(), id); err != nil {
		h.sendServiceError(w, r, err)
		return
	}

	render.JSON(w, r, DeleteResponse{OK: true})
}

// HealthCheck reports storage mode and collaborator diagnostics. Always
// 200: volatile mode is degradation data, not an outage.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := h.service.Health.GetHealth(r.Context())
	render.JSON(w, r, health)
}

// verifySignature checks the provider's HMAC-SHA256 signature over the raw
// body. No configured secret means the check is disabled.
func (h *Handler) verifySignature(rawBody []byte, header string) bool {
	if h.cfg.AppSecret == "" {
		return true
	}
	if header == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(h.cfg.AppSecret))
	mac.Write(rawBody)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(header))
}

func secureEqual(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}

func (h *Handler) sendServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var sendErr *provider.SendError

	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		h.sendError(w, r, http.StatusBadRequest, errorCodeInvalidRequest, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		h.sendError(w, r, http.StatusNotFound, errorCodeNotFound, err.Error())
	case errors.As(err, &sendErr):
		h.sendError(w, r, http.StatusBadGateway, errorCodeUpstreamSend, sendErr.Error())
	default:
		requestID := middleware.GetRequestID(r.Context())
		h.logger.Error("Request failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		h.sendError(w, r, http.StatusInternalServerError, middleware.ErrorCodeInternal, err.Error())
	}
}

func (h *Handler) sendError(w http.ResponseWriter, r *http.Request, statusCode int, errorCode, message string) {
	render.Status(r, statusCode)
	render.JSON(w, r, ErrorResponse{
		Error:     errorCode,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}
