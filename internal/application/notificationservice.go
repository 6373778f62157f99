// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/ericfisherdev/mashtalsms/internal/domain/model"
	"github.com/ericfisherdev/mashtalsms/internal/domain/port/driven"
)

var (
	// ErrNoCredentials is returned when no gateway account has been configured.
	ErrNoCredentials = errors.New("sms gateway credentials not configured")
	// ErrMissingRecipient is returned by Send when the recipient is empty.
	ErrMissingRecipient = errors.New("recipient is required")
	// ErrMissingBody is returned by Send when the message body is empty.
	ErrMissingBody = errors.New("message body is required")
)

// History limits.
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

// NotificationService runs gateway operations with the current account and
// records each call in the dispatch log.
type NotificationService struct {
	provider   *GatewayProvider
	dispatches driven.DispatchStore
	logger     *slog.Logger
	now        func() time.Time
}

// NewNotificationService creates a NotificationService. dispatches may be nil,
// in which case calls are not recorded.
func NewNotificationService(provider *GatewayProvider, dispatches driven.DispatchStore, logger *slog.Logger) *NotificationService {
	return &NotificationService{
		provider:   provider,
		dispatches: dispatches,
		logger:     logger,
		now:        time.Now,
	}
}

// CheckAccount verifies the configured account with the gateway.
func (s *NotificationService) CheckAccount(ctx context.Context) (model.NotificationResponse, error) {
	return s.do(ctx, model.NotificationRequest{Operation: model.OperationCheckAccount})
}

// CheckBalance asks the gateway for the account's remaining balance.
func (s *NotificationService) CheckBalance(ctx context.Context) (model.NotificationResponse, error) {
	return s.do(ctx, model.NotificationRequest{Operation: model.OperationCheckBalance})
}

// Send delivers body to recipient. Both must be non-blank; neither is
// otherwise validated or rewritten.
func (s *NotificationService) Send(ctx context.Context, recipient, body string) (model.NotificationResponse, error) {
	if strings.TrimSpace(recipient) == "" {
		return model.NotificationResponse{}, ErrMissingRecipient
	}
	if strings.TrimSpace(body) == "" {
		return model.NotificationResponse{}, ErrMissingBody
	}

	return s.do(ctx, model.NotificationRequest{
		Operation: model.OperationSendMessage,
		Recipient: recipient,
		Body:      body,
	})
}

// History returns recent dispatches, newest first. limit is clamped to
// [1, MaxHistoryLimit]; zero or negative selects DefaultHistoryLimit.
func (s *NotificationService) History(ctx context.Context, limit int) ([]model.Dispatch, error) {
	if s.dispatches == nil {
		return []model.Dispatch{}, nil
	}
	switch {
	case limit <= 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}
	return s.dispatches.ListRecent(ctx, limit)
}

// Dispatch returns the dispatch with id, or nil when it does not exist or no
// dispatch log is configured.
func (s *NotificationService) Dispatch(ctx context.Context, id string) (*model.Dispatch, error) {
	if s.dispatches == nil {
		return nil, nil
	}
	return s.dispatches.Get(ctx, id)
}

func (s *NotificationService) do(ctx context.Context, req model.NotificationRequest) (model.NotificationResponse, error) {
	gateway, creds := s.provider.Get()
	if gateway == nil || creds.IsZero() {
		return model.NotificationResponse{}, ErrNoCredentials
	}

	start := s.now()
	resp, err := gateway.Do(ctx, creds, req)
	elapsed := s.now().Sub(start)

	d := model.Dispatch{
		ID:         ulid.Make().String(),
		Operation:  req.Operation,
		Recipient:  req.Recipient,
		Body:       req.Body,
		StatusCode: resp.StatusCode,
		Response:   resp.Body,
		Duration:   elapsed,
		CreatedAt:  start.UTC(),
	}

	if err != nil {
		d.Error = err.Error()
		s.logger.Error("sms gateway call failed",
			"operation", req.Operation,
			"dispatch_id", d.ID,
			"duration", elapsed,
			"error", err,
		)
	} else {
		s.logger.Info("sms gateway call",
			"operation", req.Operation,
			"dispatch_id", d.ID,
			"status_code", resp.StatusCode,
			"duration", elapsed,
		)
	}

	s.record(ctx, d)

	return resp, err
}

// record persists d. The dispatch log is best effort: a failed write is
// logged and never replaces the gateway result.
func (s *NotificationService) record(ctx context.Context, d model.Dispatch) {
	if s.dispatches == nil {
		return
	}
	if err := s.dispatches.Insert(context.WithoutCancel(ctx), d); err != nil {
		s.logger.Error("failed to record dispatch", "dispatch_id", d.ID, "error", err)
	}
}
