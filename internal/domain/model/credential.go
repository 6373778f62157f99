package model

import "time"

// Credential is one stored key/value pair belonging to an external service.
// Service names the integration ("sms_gateway") and Key the field within it
// ("username", "secret_key", "sender").
type Credential struct {
	ID        int64
	Service   string
	Key       string
	Value     string
	UpdatedAt time.Time
}

// Credential keys persisted for the SMS gateway account.
const (
	CredentialServiceSMS  = "sms_gateway"
	CredentialKeyUsername = "username"
	CredentialKeySecret   = "secret_key"
	CredentialKeySender   = "sender"
)
