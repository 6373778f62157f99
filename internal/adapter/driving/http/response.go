package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/mashtalsms/internal/domain/model"
	"github.com/ericfisherdev/mashtalsms/internal/domain/reply"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status       string `json:"status"`
	Time         string `json:"time"`
	GatewayReady bool   `json:"gateway_ready"`
}

// GatewayReplyResponse wraps a gateway reply. Response is the body exactly as
// the gateway sent it; Parsed is a best-effort reading for display.
type GatewayReplyResponse struct {
	Operation  string      `json:"operation"`
	StatusCode int         `json:"status_code"`
	Response   string      `json:"response"`
	Parsed     reply.Reply `json:"parsed"`
}

// BalanceSnapshotResponse is the latest balance observed by the monitor.
type BalanceSnapshotResponse struct {
	Response  string       `json:"response"`
	Error     string       `json:"error,omitempty"`
	CheckedAt string       `json:"checked_at"`
	Parsed    *reply.Reply `json:"parsed,omitempty"`
}

// DispatchResponse is the JSON representation of one dispatch log entry.
type DispatchResponse struct {
	ID         string `json:"id"`
	Operation  string `json:"operation"`
	Recipient  string `json:"recipient,omitempty"`
	Body       string `json:"body,omitempty"`
	StatusCode int    `json:"status_code"`
	Response   string `json:"response"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
	CreatedAt  string `json:"created_at"`
}

// SendMessageRequest is the JSON body for the send message endpoint.
type SendMessageRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// UpdateCredentialsRequest is the JSON body for the credentials endpoint.
type UpdateCredentialsRequest struct {
	Username  string `json:"username"`
	SecretKey string `json:"secret_key"`
	Sender    string `json:"sender"`
}

func toGatewayReplyResponse(op model.Operation, resp model.NotificationResponse) GatewayReplyResponse {
	return GatewayReplyResponse{
		Operation:  string(op),
		StatusCode: resp.StatusCode,
		Response:   resp.Body,
		Parsed:     reply.Parse(resp.Body),
	}
}

// toBalanceSnapshotResponse converts a monitor snapshot. Failed checks carry
// no parsed reply.
func toBalanceSnapshotResponse(snap model.BalanceSnapshot) BalanceSnapshotResponse {
	out := BalanceSnapshotResponse{
		Response:  snap.Response,
		Error:     snap.Error,
		CheckedAt: snap.CheckedAt.UTC().Format(time.RFC3339),
	}
	if snap.Error == "" {
		parsed := reply.Parse(snap.Response)
		out.Parsed = &parsed
	}
	return out
}

func toDispatchResponse(d model.Dispatch) DispatchResponse {
	return DispatchResponse{
		ID:         d.ID,
		Operation:  string(d.Operation),
		Recipient:  d.Recipient,
		Body:       d.Body,
		StatusCode: d.StatusCode,
		Response:   d.Response,
		Error:      d.Error,
		DurationMS: d.Duration.Milliseconds(),
		CreatedAt:  d.CreatedAt.UTC().Format(time.RFC3339),
	}
}
