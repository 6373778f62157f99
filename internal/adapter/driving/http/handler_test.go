package httphandler_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/mashtalsms/internal/adapter/driven/smsgateway"
	httphandler "github.com/ericfisherdev/mashtalsms/internal/adapter/driving/http"
	"github.com/ericfisherdev/mashtalsms/internal/application"
	"github.com/ericfisherdev/mashtalsms/internal/domain/model"
	"github.com/ericfisherdev/mashtalsms/internal/domain/port/driven"
)

// --- Mock implementations ---

type mockGateway struct {
	mu   sync.Mutex
	reqs []model.NotificationRequest
	resp model.NotificationResponse
	err  error
}

func (m *mockGateway) Do(_ context.Context, _ model.Credentials, req model.NotificationRequest) (model.NotificationResponse, error) {
	m.mu.Lock()
	m.reqs = append(m.reqs, req)
	m.mu.Unlock()
	return m.resp, m.err
}

type mockDispatchStore struct {
	dispatches []model.Dispatch
	err        error
}

func (m *mockDispatchStore) Insert(_ context.Context, d model.Dispatch) error {
	m.dispatches = append([]model.Dispatch{d}, m.dispatches...)
	return nil
}

func (m *mockDispatchStore) ListRecent(_ context.Context, limit int) ([]model.Dispatch, error) {
	if m.err != nil {
		return nil, m.err
	}
	if len(m.dispatches) > limit {
		return m.dispatches[:limit], nil
	}
	return m.dispatches, nil
}

func (m *mockDispatchStore) Get(_ context.Context, id string) (*model.Dispatch, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, d := range m.dispatches {
		if d.ID == id {
			return &d, nil
		}
	}
	return nil, nil
}

type mockCredentialStore struct {
	values map[string]string
	setErr error
}

func (m *mockCredentialStore) Set(_ context.Context, _, key, plaintext string) error {
	if m.setErr != nil {
		return m.setErr
	}
	if m.values == nil {
		m.values = map[string]string{}
	}
	m.values[key] = plaintext
	return nil
}

func (m *mockCredentialStore) SetAll(_ context.Context, _ string, values map[string]string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.values = make(map[string]string, len(values))
	for k, v := range values {
		m.values[k] = v
	}
	return nil
}

func (m *mockCredentialStore) Get(_ context.Context, _, key string) (string, error) {
	return m.values[key], nil
}

func (m *mockCredentialStore) GetAll(_ context.Context, _ string) (map[string]string, error) {
	return m.values, nil
}

func (m *mockCredentialStore) Delete(_ context.Context, _, key string) error {
	delete(m.values, key)
	return nil
}

// --- Test helpers ---

var testCreds = model.Credentials{Username: "Nwahtech", SecretKey: "abc123", SenderID: "Mashtal"}

type fixture struct {
	gateway     *mockGateway
	dispatches  *mockDispatchStore
	credentials *mockCredentialStore
	provider    *application.GatewayProvider
	service     *application.NotificationService
	monitor     *application.BalanceMonitor
}

func newFixture(creds model.Credentials) *fixture {
	f := &fixture{
		gateway:     &mockGateway{resp: model.NotificationResponse{StatusCode: http.StatusOK, Body: "1"}},
		dispatches:  &mockDispatchStore{},
		credentials: &mockCredentialStore{},
	}
	f.provider = application.NewGatewayProvider(f.gateway, creds)
	f.service = application.NewNotificationService(f.provider, f.dispatches, slog.Default())
	f.monitor = application.NewBalanceMonitor(f.service, "@every 1h", slog.Default())
	return f
}

func (f *fixture) mux() http.Handler {
	credSvc := application.NewCredentialService(f.credentials, f.provider, slog.Default())
	h := httphandler.NewHandler(f.service, credSvc, f.provider, f.monitor, slog.Default())
	return httphandler.NewServeMux(h, slog.Default())
}

func serve(t *testing.T, mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	err := json.NewDecoder(rec.Body).Decode(v)
	require.NoError(t, err)
}

// --- Tests ---

func TestHealth(t *testing.T) {
	tests := []struct {
		name      string
		creds     model.Credentials
		wantReady bool
	}{
		{"configured", testCreds, true},
		{"no credentials", model.Credentials{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, newFixture(tt.creds).mux(), http.MethodGet, "/api/v1/health", "")

			assert.Equal(t, http.StatusOK, rec.Code)

			var resp map[string]any
			decodeJSON(t, rec, &resp)
			assert.Equal(t, "ok", resp["status"])
			assert.NotEmpty(t, resp["time"])
			assert.Equal(t, tt.wantReady, resp["gateway_ready"])
		})
	}
}

func TestAccountOperations(t *testing.T) {
	tests := []struct {
		path   string
		wantOp model.Operation
	}{
		{"/api/v1/account/check", model.OperationCheckAccount},
		{"/api/v1/account/balance", model.OperationCheckBalance},
	}

	for _, tt := range tests {
		t.Run(string(tt.wantOp), func(t *testing.T) {
			f := newFixture(testCreds)
			f.gateway.resp = model.NotificationResponse{StatusCode: http.StatusOK, Body: `{"code":1,"balance":"125.50"}`}

			rec := serve(t, f.mux(), http.MethodPost, tt.path, "")

			assert.Equal(t, http.StatusOK, rec.Code)

			var resp map[string]any
			decodeJSON(t, rec, &resp)
			assert.Equal(t, string(tt.wantOp), resp["operation"])
			assert.Equal(t, float64(http.StatusOK), resp["status_code"])
			assert.Equal(t, `{"code":1,"balance":"125.50"}`, resp["response"])

			parsed, ok := resp["parsed"].(map[string]any)
			require.True(t, ok)
			assert.Equal(t, "json", parsed["format"])
			assert.Equal(t, "125.50", parsed["balance"])

			require.Len(t, f.gateway.reqs, 1)
			assert.Equal(t, tt.wantOp, f.gateway.reqs[0].Operation)
		})
	}
}

func TestAccountCheck_GatewayErrorStatusPassesThrough(t *testing.T) {
	f := newFixture(testCreds)
	f.gateway.resp = model.NotificationResponse{StatusCode: http.StatusForbidden, Body: "-2 invalid secret key"}

	rec := serve(t, f.mux(), http.MethodPost, "/api/v1/account/check", "")

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	decodeJSON(t, rec, &resp)
	assert.Equal(t, float64(http.StatusForbidden), resp["status_code"])
	assert.Equal(t, "-2 invalid secret key", resp["response"])
}

func TestSendMessage(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		creds      model.Credentials
		gatewayErr error
		wantStatus int
		wantError  string
	}{
		{
			name:       "valid",
			body:       `{"to": "0500600945", "message": "test"}`,
			creds:      testCreds,
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing recipient",
			body:       `{"message": "test"}`,
			creds:      testCreds,
			wantStatus: http.StatusBadRequest,
			wantError:  application.ErrMissingRecipient.Error(),
		},
		{
			name:       "missing message",
			body:       `{"to": "0500600945", "message": "  "}`,
			creds:      testCreds,
			wantStatus: http.StatusBadRequest,
			wantError:  application.ErrMissingBody.Error(),
		},
		{
			name:       "invalid JSON",
			body:       `not json`,
			creds:      testCreds,
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid request body",
		},
		{
			name:       "unknown field",
			body:       `{"to": "0500600945", "message": "test", "priority": 1}`,
			creds:      testCreds,
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid request body",
		},
		{
			name:       "no credentials",
			body:       `{"to": "0500600945", "message": "test"}`,
			creds:      model.Credentials{},
			wantStatus: http.StatusServiceUnavailable,
			wantError:  application.ErrNoCredentials.Error(),
		},
		{
			name:  "transport failure",
			body:  `{"to": "0500600945", "message": "test"}`,
			creds: testCreds,
			gatewayErr: &smsgateway.TransportError{
				Op:  model.OperationSendMessage,
				URL: "https://sms.example.com/api",
				Err: errors.New("connection refused"),
			},
			wantStatus: http.StatusBadGateway,
			wantError:  driven.ErrGatewayUnreachable.Error(),
		},
		{
			name:       "unexpected error",
			body:       `{"to": "0500600945", "message": "test"}`,
			creds:      testCreds,
			gatewayErr: errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantError:  "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(tt.creds)
			f.gateway.err = tt.gatewayErr

			rec := serve(t, f.mux(), http.MethodPost, "/api/v1/messages", tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)

			var resp map[string]any
			decodeJSON(t, rec, &resp)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, resp["error"])
				return
			}

			assert.Equal(t, string(model.OperationSendMessage), resp["operation"])
			assert.Equal(t, "1", resp["response"])
			require.Len(t, f.gateway.reqs, 1)
			assert.Equal(t, "0500600945", f.gateway.reqs[0].Recipient)
			assert.Equal(t, "test", f.gateway.reqs[0].Body)
		})
	}
}

func TestListMessages(t *testing.T) {
	f := newFixture(testCreds)
	f.dispatches.dispatches = []model.Dispatch{
		{
			ID:         "01HZY0000000000000000000B",
			Operation:  model.OperationSendMessage,
			Recipient:  "0500600945",
			Body:       "test",
			StatusCode: 200,
			Response:   "1",
			Duration:   1500 * time.Millisecond,
			CreatedAt:  time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC),
		},
		{
			ID:        "01HZY0000000000000000000A",
			Operation: model.OperationCheckAccount,
			Error:     "dial tcp: connection refused",
			CreatedAt: time.Date(2026, 2, 10, 11, 0, 0, 0, time.UTC),
		},
	}
	mux := f.mux()

	t.Run("all", func(t *testing.T) {
		rec := serve(t, mux, http.MethodGet, "/api/v1/messages", "")
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp []map[string]any
		decodeJSON(t, rec, &resp)
		require.Len(t, resp, 2)
		assert.Equal(t, "01HZY0000000000000000000B", resp[0]["id"])
		assert.Equal(t, "send_message", resp[0]["operation"])
		assert.Equal(t, "0500600945", resp[0]["recipient"])
		assert.Equal(t, float64(1500), resp[0]["duration_ms"])
		assert.Equal(t, "2026-02-10T12:00:00Z", resp[0]["created_at"])
		assert.Equal(t, "dial tcp: connection refused", resp[1]["error"])
	})

	t.Run("limit", func(t *testing.T) {
		rec := serve(t, mux, http.MethodGet, "/api/v1/messages?limit=1", "")
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp []map[string]any
		decodeJSON(t, rec, &resp)
		assert.Len(t, resp, 1)
	})

	t.Run("invalid limit", func(t *testing.T) {
		for _, q := range []string{"abc", "0", "-3"} {
			rec := serve(t, mux, http.MethodGet, "/api/v1/messages?limit="+q, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code, "limit=%s", q)
		}
	})
}

func TestListMessages_Empty(t *testing.T) {
	rec := serve(t, newFixture(testCreds).mux(), http.MethodGet, "/api/v1/messages", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestListMessages_StoreError(t *testing.T) {
	f := newFixture(testCreds)
	f.dispatches.err = errors.New("database is locked")

	rec := serve(t, f.mux(), http.MethodGet, "/api/v1/messages", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetMessage(t *testing.T) {
	f := newFixture(testCreds)
	mux := f.mux()

	rec := serve(t, mux, http.MethodPost, "/api/v1/messages", `{"to": "0500600945", "message": "test"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, f.dispatches.dispatches, 1)
	id := f.dispatches.dispatches[0].ID

	rec = serve(t, mux, http.MethodGet, "/api/v1/messages/"+id, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	decodeJSON(t, rec, &resp)
	assert.Equal(t, id, resp["id"])
	assert.Equal(t, "test", resp["body"])

	rec = serve(t, mux, http.MethodGet, "/api/v1/messages/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLatestBalance(t *testing.T) {
	f := newFixture(testCreds)
	f.gateway.resp = model.NotificationResponse{StatusCode: http.StatusOK, Body: "125.50"}
	mux := f.mux()

	rec := serve(t, mux, http.MethodGet, "/api/v1/account/balance/latest", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	f.monitor.RunOnce(context.Background())

	rec = serve(t, mux, http.MethodGet, "/api/v1/account/balance/latest", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "125.50", resp["response"])
	assert.NotEmpty(t, resp["checked_at"])
	parsed, ok := resp["parsed"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "code", parsed["format"])
}

func TestLatestBalance_MonitorDisabled(t *testing.T) {
	f := newFixture(testCreds)
	credSvc := application.NewCredentialService(f.credentials, f.provider, slog.Default())
	h := httphandler.NewHandler(f.service, credSvc, f.provider, nil, slog.Default())
	mux := httphandler.NewServeMux(h, slog.Default())

	rec := serve(t, mux, http.MethodGet, "/api/v1/account/balance/latest", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var resp map[string]any
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "balance monitor disabled", resp["error"])
}

func TestUpdateCredentials(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setErr     error
		wantStatus int
	}{
		{"valid", `{"username": "other", "secret_key": "xyz", "sender": "Shop"}`, nil, http.StatusNoContent},
		{"missing secret", `{"username": "other"}`, nil, http.StatusBadRequest},
		{"invalid JSON", `{`, nil, http.StatusBadRequest},
		{"no encryption key", `{"username": "other", "secret_key": "xyz"}`, driven.ErrEncryptionKeyNotSet, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(testCreds)
			f.credentials.setErr = tt.setErr

			rec := serve(t, f.mux(), http.MethodPut, "/api/v1/credentials", tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusNoContent {
				assert.Equal(t, model.Credentials{Username: "other", SecretKey: "xyz", SenderID: "Shop"}, f.provider.Credentials())
				assert.Equal(t, "xyz", f.credentials.values[model.CredentialKeySecret])
			} else {
				assert.Equal(t, testCreds, f.provider.Credentials())
			}
		})
	}
}

func TestRequestIDHeader(t *testing.T) {
	mux := newFixture(testCreds).mux()

	rec := serve(t, mux, http.MethodGet, "/api/v1/health", "")
	assert.Len(t, rec.Header().Get(httphandler.RequestIDHeader), 26)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set(httphandler.RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(httphandler.RequestIDHeader))
}

func TestRecoveryMiddleware(t *testing.T) {
	panicky := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })
	wrapped := httphandler.Wrap(panicky, slog.Default())

	rec := serve(t, wrapped, http.MethodGet, "/anything", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp map[string]any
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "internal server error", resp["error"])
}
