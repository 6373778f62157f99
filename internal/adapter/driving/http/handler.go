package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ericfisherdev/mashtalsms/internal/application"
	"github.com/ericfisherdev/mashtalsms/internal/domain/model"
	"github.com/ericfisherdev/mashtalsms/internal/domain/port/driven"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 << 10

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	notifications *application.NotificationService
	credentials   *application.CredentialService
	provider      *application.GatewayProvider
	monitor       *application.BalanceMonitor
	logger        *slog.Logger
}

// NewHandler creates a Handler with all required dependencies. monitor may be
// nil when scheduled balance checks are disabled.
func NewHandler(
	notifications *application.NotificationService,
	credentials *application.CredentialService,
	provider *application.GatewayProvider,
	monitor *application.BalanceMonitor,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		notifications: notifications,
		credentials:   credentials,
		provider:      provider,
		monitor:       monitor,
		logger:        logger,
	}
}

// RegisterRoutes registers all API routes on mux.
func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("POST /api/v1/account/check", h.CheckAccount)
	mux.HandleFunc("POST /api/v1/account/balance", h.CheckBalance)
	mux.HandleFunc("GET /api/v1/account/balance/latest", h.LatestBalance)
	mux.HandleFunc("POST /api/v1/messages", h.SendMessage)
	mux.HandleFunc("GET /api/v1/messages", h.ListMessages)
	mux.HandleFunc("GET /api/v1/messages/{id}", h.GetMessage)
	mux.HandleFunc("PUT /api/v1/credentials", h.UpdateCredentials)
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	RegisterRoutes(mux, h)
	return Wrap(mux, logger)
}

// Wrap applies the request ID, logging and recovery middleware to next.
func Wrap(next http.Handler, logger *slog.Logger) http.Handler {
	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, next)
	wrapped = loggingMiddleware(logger, wrapped)
	wrapped = requestIDMiddleware(wrapped)

	return wrapped
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:       "ok",
		Time:         time.Now().UTC().Format(time.RFC3339),
		GatewayReady: h.provider != nil && h.provider.Ready(),
	})
}

// CheckAccount verifies the configured account against the gateway.
func (h *Handler) CheckAccount(w http.ResponseWriter, r *http.Request) {
	resp, err := h.notifications.CheckAccount(r.Context())
	if err != nil {
		h.writeServiceError(w, "check account", err)
		return
	}

	writeJSON(w, http.StatusOK, toGatewayReplyResponse(model.OperationCheckAccount, resp))
}

// CheckBalance queries the account balance.
func (h *Handler) CheckBalance(w http.ResponseWriter, r *http.Request) {
	resp, err := h.notifications.CheckBalance(r.Context())
	if err != nil {
		h.writeServiceError(w, "check balance", err)
		return
	}

	writeJSON(w, http.StatusOK, toGatewayReplyResponse(model.OperationCheckBalance, resp))
}

// LatestBalance returns the last snapshot taken by the balance monitor.
func (h *Handler) LatestBalance(w http.ResponseWriter, _ *http.Request) {
	if h.monitor == nil {
		writeError(w, http.StatusNotFound, "balance monitor disabled")
		return
	}

	snap, ok := h.monitor.Latest()
	if !ok {
		writeError(w, http.StatusNotFound, "no balance check has run yet")
		return
	}

	writeJSON(w, http.StatusOK, toBalanceSnapshotResponse(snap))
}

// SendMessage sends one SMS.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.notifications.Send(r.Context(), req.To, req.Message)
	if err != nil {
		h.writeServiceError(w, "send message", err)
		return
	}

	writeJSON(w, http.StatusOK, toGatewayReplyResponse(model.OperationSendMessage, resp))
}

// ListMessages returns recent dispatches, newest first.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	dispatches, err := h.notifications.History(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list dispatches", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]DispatchResponse, 0, len(dispatches))
	for _, d := range dispatches {
		resp = append(resp, toDispatchResponse(d))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetMessage returns a single dispatch by ID.
func (h *Handler) GetMessage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	d, err := h.notifications.Dispatch(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get dispatch", "dispatch_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if d == nil {
		writeError(w, http.StatusNotFound, "dispatch not found")
		return
	}

	writeJSON(w, http.StatusOK, toDispatchResponse(*d))
}

// UpdateCredentials stores a new gateway account and makes it current.
func (h *Handler) UpdateCredentials(w http.ResponseWriter, r *http.Request) {
	var req UpdateCredentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.credentials.Update(r.Context(), model.Credentials{
		Username:  req.Username,
		SecretKey: req.SecretKey,
		SenderID:  req.Sender,
	})
	if err != nil {
		h.writeServiceError(w, "update credentials", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// writeServiceError maps application and gateway errors to HTTP statuses.
func (h *Handler) writeServiceError(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, application.ErrMissingRecipient),
		errors.Is(err, application.ErrMissingBody),
		errors.Is(err, application.ErrInvalidCredentials):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, application.ErrNoCredentials),
		errors.Is(err, driven.ErrEncryptionKeyNotSet):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, driven.ErrGatewayUnreachable):
		writeError(w, http.StatusBadGateway, driven.ErrGatewayUnreachable.Error())
	default:
		h.logger.Error("request failed", "action", action, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
