package application

import (
	"sync"

	"github.com/ericfisherdev/mashtalsms/internal/domain/model"
	"github.com/ericfisherdev/mashtalsms/internal/domain/port/driven"
)

// GatewayProvider holds the gateway and the account credentials used with it.
// Credentials can be replaced at runtime; callers take a consistent snapshot
// of both per call instead of sharing mutable fields.
type GatewayProvider struct {
	mu      sync.RWMutex
	gateway driven.NotificationGateway
	creds   model.Credentials
}

// NewGatewayProvider creates a provider. creds may be zero if no account is
// configured at startup.
func NewGatewayProvider(gateway driven.NotificationGateway, creds model.Credentials) *GatewayProvider {
	return &GatewayProvider{
		gateway: gateway,
		creds:   creds,
	}
}

// Get returns the current gateway and credentials together.
func (p *GatewayProvider) Get() (driven.NotificationGateway, model.Credentials) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.gateway, p.creds
}

// Credentials returns the current account credentials.
func (p *GatewayProvider) Credentials() model.Credentials {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.creds
}

// ReplaceCredentials swaps the account used for subsequent calls. Calls
// already in flight keep the snapshot they started with.
func (p *GatewayProvider) ReplaceCredentials(creds model.Credentials) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.creds = creds
}

// Ready reports whether both a gateway and an account are configured.
func (p *GatewayProvider) Ready() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.gateway != nil && !p.creds.IsZero()
}
