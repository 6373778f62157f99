package smsgateway

import (
	"net/url"
	"strings"

	"github.com/ericfisherdev/mashtalsms/internal/domain/model"
)

// Form field names understood by the gateway.
const (
	fieldUser      = "user"
	fieldSecretKey = "secret_key"
	fieldTo        = "to"
	fieldMessage   = "message"
	fieldSender    = "sender"
)

type field struct {
	key   string
	value string
}

// formFields returns the parameters for req in wire order. Credential fields
// always come first.
func formFields(creds model.Credentials, req model.NotificationRequest) []field {
	fields := []field{
		{fieldUser, creds.Username},
		{fieldSecretKey, creds.SecretKey},
	}
	if req.Operation == model.OperationSendMessage {
		fields = append(fields,
			field{fieldTo, req.Recipient},
			field{fieldMessage, req.Body},
			field{fieldSender, creds.SenderID},
		)
	}
	return fields
}

// EncodeForm serializes the request body for req as
// application/x-www-form-urlencoded. Unlike url.Values.Encode the field order
// is fixed rather than sorted.
func EncodeForm(creds model.Credentials, req model.NotificationRequest) string {
	fields := formFields(creds, req)

	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(f.key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(f.value))
	}
	return b.String()
}
