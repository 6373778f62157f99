package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/mashtalsms/internal/domain/model"
)

// ErrGatewayUnreachable matches any error reporting that a gateway exchange
// could not be completed. Adapters return richer error types that satisfy
// errors.Is against it.
var ErrGatewayUnreachable = errors.New("sms gateway unreachable")

// NotificationGateway defines the driven port for the external SMS gateway.
// Each call is a single request/response exchange with no state carried
// between calls. The returned body is opaque; only transport failures are
// reported as errors.
type NotificationGateway interface {
	Do(ctx context.Context, creds model.Credentials, req model.NotificationRequest) (model.NotificationResponse, error)
}
