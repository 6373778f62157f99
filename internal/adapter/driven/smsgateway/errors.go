package smsgateway

import (
	"fmt"

	"github.com/ericfisherdev/mashtalsms/internal/domain/model"
	"github.com/ericfisherdev/mashtalsms/internal/domain/port/driven"
)

// TransportError reports a failure to complete the HTTPS exchange with the
// gateway: DNS, dial, TLS, reset, cancellation or a truncated body. Replies the
// gateway did deliver, whatever their status code, are never TransportErrors.
type TransportError struct {
	Op  model.Operation
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("sms gateway %s %s: %v", e.Op, e.URL, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is lets callers outside the adapter test for driven.ErrGatewayUnreachable.
func (e *TransportError) Is(target error) bool {
	return target == driven.ErrGatewayUnreachable
}
