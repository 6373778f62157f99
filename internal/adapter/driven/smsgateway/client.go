// Package smsgateway implements the NotificationGateway port against the
// form-encoded HTTPS API of the SMS provider.
package smsgateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ericfisherdev/mashtalsms/internal/domain/model"
	"github.com/ericfisherdev/mashtalsms/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.NotificationGateway = (*Client)(nil)

const tracerName = "github.com/ericfisherdev/mashtalsms/internal/adapter/driven/smsgateway"

// Paths optionally overrides the endpoint path per operation. An empty value
// keeps the path of the configured endpoint.
type Paths struct {
	Account string
	Balance string
	Send    string
}

// Client implements driven.NotificationGateway. It holds no per-call state, so
// a single Client is safe for concurrent use.
type Client struct {
	http     *http.Client
	endpoint *url.URL
	paths    Paths
	tracer   trace.Tracer
}

// NewClient creates a gateway client for endpoint. A zero timeout leaves calls
// bounded only by the caller's context.
func NewClient(endpoint string, paths Paths, timeout time.Duration) (*Client, error) {
	return NewClientWithHTTPClient(&http.Client{Timeout: timeout}, endpoint, paths)
}

// NewClientWithHTTPClient creates a Client with a custom http.Client. Tests use
// it to point the client at an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, endpoint string, paths Paths) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing gateway endpoint: %w", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return nil, fmt.Errorf("gateway endpoint %q: scheme must be http or https", endpoint)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("gateway endpoint %q: missing host", endpoint)
	}

	return &Client{
		http:     httpClient,
		endpoint: u,
		paths:    paths,
		tracer:   otel.Tracer(tracerName),
	}, nil
}

// Do performs one POST for req and returns the reply body verbatim. There is
// no retry. Any failure to complete the exchange is a *TransportError.
func (c *Client) Do(ctx context.Context, creds model.Credentials, req model.NotificationRequest) (model.NotificationResponse, error) {
	target, err := c.urlFor(req.Operation)
	if err != nil {
		return model.NotificationResponse{}, err
	}

	ctx, span := c.tracer.Start(ctx, "smsgateway."+string(req.Operation),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("sms.operation", string(req.Operation))),
	)
	defer span.End()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(EncodeForm(creds, req)))
	if err != nil {
		return model.NotificationResponse{}, c.fail(span, req.Operation, target, err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return model.NotificationResponse{}, c.fail(span, req.Operation, target, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.NotificationResponse{}, c.fail(span, req.Operation, target, fmt.Errorf("reading body: %w", err))
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	return model.NotificationResponse{
		StatusCode: resp.StatusCode,
		Body:       string(body),
	}, nil
}

func (c *Client) fail(span trace.Span, op model.Operation, target string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, "transport failure")
	return &TransportError{Op: op, URL: target, Err: err}
}

// urlFor resolves the request URL for op, applying any path override.
func (c *Client) urlFor(op model.Operation) (string, error) {
	var path string
	switch op {
	case model.OperationCheckAccount:
		path = c.paths.Account
	case model.OperationCheckBalance:
		path = c.paths.Balance
	case model.OperationSendMessage:
		path = c.paths.Send
	default:
		return "", fmt.Errorf("unsupported operation %q", op)
	}

	u := *c.endpoint
	if path != "" {
		u.Path = path
		u.RawPath = ""
	}
	return u.String(), nil
}
