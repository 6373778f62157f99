package application_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/mashtalsms/internal/adapter/driven/smsgateway"
	"github.com/ericfisherdev/mashtalsms/internal/application"
	"github.com/ericfisherdev/mashtalsms/internal/domain/model"
)

var testCreds = model.Credentials{Username: "Nwahtech", SecretKey: "abc123", SenderID: "Mashtal"}

func newService(gw *mockGateway, store *mockDispatchStore) (*application.NotificationService, *application.GatewayProvider) {
	provider := application.NewGatewayProvider(gw, testCreds)
	// A typed nil would not compare equal to nil inside the service.
	if store == nil {
		return application.NewNotificationService(provider, nil, slog.Default()), provider
	}
	return application.NewNotificationService(provider, store, slog.Default()), provider
}

func TestNotificationService_Operations(t *testing.T) {
	type operation func(*application.NotificationService) (model.NotificationResponse, error)

	checkAccount := func(s *application.NotificationService) (model.NotificationResponse, error) {
		return s.CheckAccount(context.Background())
	}
	checkBalance := func(s *application.NotificationService) (model.NotificationResponse, error) {
		return s.CheckBalance(context.Background())
	}
	send := func(s *application.NotificationService) (model.NotificationResponse, error) {
		return s.Send(context.Background(), "0500600945", "test")
	}

	tests := []struct {
		name    string
		call    operation
		wantReq model.NotificationRequest
	}{
		{
			name:    "check account",
			call:    checkAccount,
			wantReq: model.NotificationRequest{Operation: model.OperationCheckAccount},
		},
		{
			name:    "check balance",
			call:    checkBalance,
			wantReq: model.NotificationRequest{Operation: model.OperationCheckBalance},
		},
		{
			name:    "send",
			call:    send,
			wantReq: model.NotificationRequest{Operation: model.OperationSendMessage, Recipient: "0500600945", Body: "test"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &mockGateway{resp: model.NotificationResponse{StatusCode: 200, Body: "1"}}
			store := &mockDispatchStore{}
			svc, _ := newService(gw, store)

			resp, err := tt.call(svc)

			require.NoError(t, err)
			assert.Equal(t, "1", resp.Body)

			calls := gw.Calls()
			require.Len(t, calls, 1)
			assert.Equal(t, testCreds, calls[0].Creds)
			assert.Equal(t, tt.wantReq, calls[0].Req)

			inserted := store.Inserted()
			require.Len(t, inserted, 1)
			d := inserted[0]
			assert.NotEmpty(t, d.ID)
			assert.Equal(t, tt.wantReq.Operation, d.Operation)
			assert.Equal(t, tt.wantReq.Recipient, d.Recipient)
			assert.Equal(t, tt.wantReq.Body, d.Body)
			assert.Equal(t, 200, d.StatusCode)
			assert.Equal(t, "1", d.Response)
			assert.Empty(t, d.Error)
			assert.False(t, d.CreatedAt.IsZero())
		})
	}
}

func TestNotificationService_SendPreconditions(t *testing.T) {
	tests := []struct {
		name      string
		recipient string
		body      string
		wantErr   error
	}{
		{"missing recipient", "", "hello", application.ErrMissingRecipient},
		{"blank recipient", "   ", "hello", application.ErrMissingRecipient},
		{"missing body", "0500600945", "", application.ErrMissingBody},
		{"blank body", "0500600945", "\t\n", application.ErrMissingBody},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &mockGateway{}
			store := &mockDispatchStore{}
			svc, _ := newService(gw, store)

			_, err := svc.Send(context.Background(), tt.recipient, tt.body)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, gw.Calls(), "gateway must not be called")
			assert.Empty(t, store.Inserted())
		})
	}
}

func TestNotificationService_SendForwardsValuesUnchanged(t *testing.T) {
	gw := &mockGateway{}
	svc, _ := newService(gw, nil)

	_, err := svc.Send(context.Background(), " +966 50 060 0945 ", "  مرحبا  ")
	require.NoError(t, err)

	calls := gw.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, " +966 50 060 0945 ", calls[0].Req.Recipient)
	assert.Equal(t, "  مرحبا  ", calls[0].Req.Body)
}

func TestNotificationService_NoCredentials(t *testing.T) {
	gw := &mockGateway{}
	provider := application.NewGatewayProvider(gw, model.Credentials{})
	svc := application.NewNotificationService(provider, &mockDispatchStore{}, slog.Default())

	_, err := svc.CheckAccount(context.Background())

	assert.ErrorIs(t, err, application.ErrNoCredentials)
	assert.Empty(t, gw.Calls())
}

func TestNotificationService_NilGateway(t *testing.T) {
	provider := application.NewGatewayProvider(nil, testCreds)
	svc := application.NewNotificationService(provider, nil, slog.Default())

	_, err := svc.CheckBalance(context.Background())

	assert.ErrorIs(t, err, application.ErrNoCredentials)
}

func TestNotificationService_TransportErrorPassesThrough(t *testing.T) {
	cause := errors.New("connection refused")
	gw := &mockGateway{err: &smsgateway.TransportError{Op: model.OperationCheckBalance, URL: "https://sms.example.com", Err: cause}}
	store := &mockDispatchStore{}
	svc, _ := newService(gw, store)

	resp, err := svc.CheckBalance(context.Background())

	var terr *smsgateway.TransportError
	require.ErrorAs(t, err, &terr)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, model.NotificationResponse{}, resp)

	inserted := store.Inserted()
	require.Len(t, inserted, 1)
	assert.True(t, inserted[0].Failed())
	assert.Contains(t, inserted[0].Error, "connection refused")
}

func TestNotificationService_StoreFailureDoesNotMaskResult(t *testing.T) {
	gw := &mockGateway{resp: model.NotificationResponse{StatusCode: 200, Body: "ok"}}
	store := &mockDispatchStore{insertErr: errors.New("disk full")}
	svc, _ := newService(gw, store)

	resp, err := svc.CheckAccount(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Body)
}

func TestNotificationService_RecordsAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gw := &mockGateway{reply: func(model.Credentials, model.NotificationRequest) (model.NotificationResponse, error) {
		cancel()
		return model.NotificationResponse{}, &smsgateway.TransportError{Op: model.OperationCheckAccount, Err: context.Canceled}
	}}
	store := &mockDispatchStore{}
	svc, _ := newService(gw, store)

	_, err := svc.CheckAccount(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, store.Inserted(), 1)
}

func TestNotificationService_History(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		wantLimit int
	}{
		{"default on zero", 0, application.DefaultHistoryLimit},
		{"default on negative", -5, application.DefaultHistoryLimit},
		{"within range", 10, 10},
		{"clamped", 10_000, application.MaxHistoryLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockDispatchStore{listed: []model.Dispatch{{ID: "x"}}}
			svc, _ := newService(&mockGateway{}, store)

			got, err := svc.History(context.Background(), tt.limit)

			require.NoError(t, err)
			assert.Len(t, got, 1)
			assert.Equal(t, tt.wantLimit, store.lastLimit)
		})
	}
}

func TestNotificationService_HistoryWithoutStore(t *testing.T) {
	svc, _ := newService(&mockGateway{}, nil)

	got, err := svc.History(context.Background(), 10)

	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestNotificationService_DispatchLookup(t *testing.T) {
	store := &mockDispatchStore{}
	svc, _ := newService(&mockGateway{resp: model.NotificationResponse{StatusCode: 200, Body: "1"}}, store)
	ctx := context.Background()

	_, err := svc.CheckAccount(ctx)
	require.NoError(t, err)
	require.Len(t, store.Inserted(), 1)
	id := store.Inserted()[0].ID

	got, err := svc.Dispatch(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.OperationCheckAccount, got.Operation)

	missing, err := svc.Dispatch(ctx, "01J0000000000000000000000")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

// TestNotificationService_ConcurrentSendsAreIsolated verifies that each call
// reaches the gateway with its own recipient and body while credentials are
// swapped underneath.
func TestNotificationService_ConcurrentSendsAreIsolated(t *testing.T) {
	gw := &mockGateway{reply: func(_ model.Credentials, req model.NotificationRequest) (model.NotificationResponse, error) {
		return model.NotificationResponse{StatusCode: 200, Body: req.Recipient + "|" + req.Body}, nil
	}}
	svc, provider := newService(gw, &mockDispatchStore{})

	const n = 64
	var wg sync.WaitGroup
	wg.Add(n + 1)
	go func() {
		defer wg.Done()
		for i := range n {
			provider.ReplaceCredentials(model.Credentials{Username: fmt.Sprintf("u%d", i), SecretKey: "k"})
		}
	}()
	for i := range n {
		go func() {
			defer wg.Done()
			to := fmt.Sprintf("05%08d", i)
			body := fmt.Sprintf("body-%d", i)
			resp, err := svc.Send(context.Background(), to, body)
			if assert.NoError(t, err) {
				assert.Equal(t, to+"|"+body, resp.Body)
			}
		}()
	}
	wg.Wait()

	assert.Len(t, gw.Calls(), n)
}
