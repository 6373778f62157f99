package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ericfisherdev/mashtalsms/internal/domain/model"
	"github.com/ericfisherdev/mashtalsms/internal/domain/port/driven"
)

// ErrInvalidCredentials is returned when a username or secret key is blank.
var ErrInvalidCredentials = errors.New("username and secret key are required")

// CredentialService persists the gateway account and hot-swaps it into the
// GatewayProvider.
type CredentialService struct {
	store    driven.CredentialStore
	provider *GatewayProvider
	logger   *slog.Logger
}

// NewCredentialService creates a CredentialService.
func NewCredentialService(store driven.CredentialStore, provider *GatewayProvider, logger *slog.Logger) *CredentialService {
	return &CredentialService{
		store:    store,
		provider: provider,
		logger:   logger,
	}
}

// Resolve returns the stored account when one exists, otherwise fallback.
// A store without an encryption key is treated as empty.
func (s *CredentialService) Resolve(ctx context.Context, fallback model.Credentials) (model.Credentials, error) {
	stored, err := s.store.GetAll(ctx, model.CredentialServiceSMS)
	if errors.Is(err, driven.ErrEncryptionKeyNotSet) {
		return fallback, nil
	}
	if err != nil {
		return model.Credentials{}, fmt.Errorf("load stored credentials: %w", err)
	}

	creds := model.Credentials{
		Username:  stored[model.CredentialKeyUsername],
		SecretKey: stored[model.CredentialKeySecret],
		SenderID:  stored[model.CredentialKeySender],
	}
	if creds.Username == "" || creds.SecretKey == "" {
		return fallback, nil
	}
	return creds, nil
}

// Update validates creds, stores them in one write and makes them current. An
// empty sender removes any stored sender.
func (s *CredentialService) Update(ctx context.Context, creds model.Credentials) error {
	creds.Username = strings.TrimSpace(creds.Username)
	creds.SecretKey = strings.TrimSpace(creds.SecretKey)
	creds.SenderID = strings.TrimSpace(creds.SenderID)

	if creds.Username == "" || creds.SecretKey == "" {
		return ErrInvalidCredentials
	}

	values := map[string]string{
		model.CredentialKeyUsername: creds.Username,
		model.CredentialKeySecret:   creds.SecretKey,
	}
	if creds.SenderID != "" {
		values[model.CredentialKeySender] = creds.SenderID
	}
	if err := s.store.SetAll(ctx, model.CredentialServiceSMS, values); err != nil {
		return fmt.Errorf("store credentials: %w", err)
	}

	s.provider.ReplaceCredentials(creds)
	s.logger.Info("sms gateway credentials updated", "username", creds.Username, "sender", creds.SenderID)

	return nil
}
