// Package viewmodel defines presentation-ready structs for templ components.
// View models decouple template rendering from domain model types.
package viewmodel

// DashboardViewModel holds everything the operator dashboard renders.
type DashboardViewModel struct {
	GatewayReady bool
	Username     string
	SenderID     string
	CSRFToken    string

	Balance    *BalanceViewModel
	Dispatches []DispatchViewModel

	// Result of the last POST /app/send, nil on a plain page load.
	SendResult *SendResultViewModel
	// Form values echoed back after a failed send.
	FormTo      string
	FormMessage string
}

// BalanceViewModel holds the latest balance snapshot for display.
type BalanceViewModel struct {
	Raw       string
	Balance   string // parsed balance, empty when the reply carried none
	Error     string
	CheckedAt string
}

// DispatchViewModel holds presentation-ready data for one dispatch log row.
type DispatchViewModel struct {
	ID         string
	Operation  string
	Recipient  string
	BodyHTML   string // markdown rendered and sanitized
	StatusCode int
	Response   string
	Error      string
	Duration   string
	CreatedAt  string
	Failed     bool
}

// SendResultViewModel reports the outcome of a dashboard send.
type SendResultViewModel struct {
	OK         bool
	StatusCode int
	Response   string
	Error      string
}
