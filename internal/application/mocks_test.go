package application_test

import (
	"context"
	"sync"

	"github.com/ericfisherdev/mashtalsms/internal/domain/model"
	"github.com/ericfisherdev/mashtalsms/internal/domain/port/driven"
)

type gatewayCall struct {
	Creds model.Credentials
	Req   model.NotificationRequest
}

// mockGateway records every call and replies with resp/err, or with reply if set.
type mockGateway struct {
	mu    sync.Mutex
	calls []gatewayCall
	resp  model.NotificationResponse
	err   error
	reply func(creds model.Credentials, req model.NotificationRequest) (model.NotificationResponse, error)
}

func (m *mockGateway) Do(_ context.Context, creds model.Credentials, req model.NotificationRequest) (model.NotificationResponse, error) {
	m.mu.Lock()
	m.calls = append(m.calls, gatewayCall{Creds: creds, Req: req})
	m.mu.Unlock()

	if m.reply != nil {
		return m.reply(creds, req)
	}
	return m.resp, m.err
}

func (m *mockGateway) Calls() []gatewayCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]gatewayCall(nil), m.calls...)
}

type mockDispatchStore struct {
	mu        sync.Mutex
	inserted  []model.Dispatch
	insertErr error
	listed    []model.Dispatch
	lastLimit int
}

func (m *mockDispatchStore) Insert(_ context.Context, d model.Dispatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserted = append(m.inserted, d)
	return m.insertErr
}

func (m *mockDispatchStore) ListRecent(_ context.Context, limit int) ([]model.Dispatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLimit = limit
	return m.listed, nil
}

func (m *mockDispatchStore) Get(_ context.Context, id string) (*model.Dispatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.inserted {
		if d.ID == id {
			return &d, nil
		}
	}
	return nil, nil
}

func (m *mockDispatchStore) Inserted() []model.Dispatch {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Dispatch(nil), m.inserted...)
}

// mockCredentialStore is an in-memory CredentialStore keyed by service then key.
type mockCredentialStore struct {
	values map[string]map[string]string
	setErr error
	getErr error
}

var _ driven.CredentialStore = (*mockCredentialStore)(nil)

func newMockCredentialStore() *mockCredentialStore {
	return &mockCredentialStore{values: map[string]map[string]string{}}
}

func (m *mockCredentialStore) Set(_ context.Context, service, key, plaintext string) error {
	if m.setErr != nil {
		return m.setErr
	}
	if m.values[service] == nil {
		m.values[service] = map[string]string{}
	}
	m.values[service][key] = plaintext
	return nil
}

func (m *mockCredentialStore) SetAll(_ context.Context, service string, values map[string]string) error {
	if m.setErr != nil {
		return m.setErr
	}
	replaced := make(map[string]string, len(values))
	for k, v := range values {
		replaced[k] = v
	}
	m.values[service] = replaced
	return nil
}

func (m *mockCredentialStore) Get(_ context.Context, service, key string) (string, error) {
	if m.getErr != nil {
		return "", m.getErr
	}
	return m.values[service][key], nil
}

func (m *mockCredentialStore) GetAll(_ context.Context, service string) (map[string]string, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	out := map[string]string{}
	for k, v := range m.values[service] {
		out[k] = v
	}
	return out, nil
}

func (m *mockCredentialStore) Delete(_ context.Context, service, key string) error {
	delete(m.values[service], key)
	return nil
}
