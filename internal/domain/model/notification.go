package model

import (
	"fmt"
	"time"
)

// Operation identifies one of the logical operations the SMS gateway accepts.
type Operation string

const (
	OperationCheckAccount Operation = "check_account"
	OperationCheckBalance Operation = "check_balance"
	OperationSendMessage  Operation = "send_message"
)

// ParseOperation converts a stored or user-supplied string to an Operation.
func ParseOperation(s string) (Operation, error) {
	switch op := Operation(s); op {
	case OperationCheckAccount, OperationCheckBalance, OperationSendMessage:
		return op, nil
	default:
		return "", fmt.Errorf("unknown operation %q", s)
	}
}

// Credentials identify the account used against the SMS gateway. Values are
// passed explicitly to every gateway call and never mutated in place.
type Credentials struct {
	Username  string
	SecretKey string
	SenderID  string
}

// IsZero reports whether no account has been configured.
func (c Credentials) IsZero() bool {
	return c.Username == "" && c.SecretKey == ""
}

// NotificationRequest is a single call to the gateway. Recipient and Body are
// only meaningful for OperationSendMessage.
type NotificationRequest struct {
	Operation Operation
	Recipient string
	Body      string
}

// NotificationResponse holds the gateway reply. Body is opaque: nothing in the
// gateway layer parses or validates it. StatusCode is kept for auditing only.
type NotificationResponse struct {
	StatusCode int
	Body       string
}

// Dispatch is the audit record of one gateway call, successful or not.
type Dispatch struct {
	ID         string
	Operation  Operation
	Recipient  string
	Body       string
	StatusCode int
	Response   string
	Error      string
	Duration   time.Duration
	CreatedAt  time.Time
}

// Failed reports whether the call did not complete at the transport level.
func (d Dispatch) Failed() bool {
	return d.Error != ""
}

// BalanceSnapshot is the most recent balance reply observed by the monitor.
type BalanceSnapshot struct {
	Response  string
	Error     string
	CheckedAt time.Time
}
