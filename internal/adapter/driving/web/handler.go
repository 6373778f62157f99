// Package web implements the HTML GUI driving adapter using templ components.
package web

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"

	"github.com/ericfisherdev/mashtalsms/internal/adapter/driving/web/templates"
	"github.com/ericfisherdev/mashtalsms/internal/adapter/driving/web/templates/pages"
	vm "github.com/ericfisherdev/mashtalsms/internal/adapter/driving/web/viewmodel"
	"github.com/ericfisherdev/mashtalsms/internal/application"
	"github.com/ericfisherdev/mashtalsms/internal/domain/port/driven"
)

const (
	pageTitle        = "Mashtal SMS"
	dashboardHistory = 25
	maxFormBytes     = 16 << 10
)

// Handler is the web GUI driving adapter that serves HTML via templ components.
type Handler struct {
	notifications *application.NotificationService
	provider      *application.GatewayProvider
	monitor       *application.BalanceMonitor
	secureCookies bool
	logger        *slog.Logger
}

// NewHandler creates a Handler with all required dependencies. monitor may be
// nil when scheduled balance checks are disabled. secureCookies marks the CSRF
// cookie Secure and should be set when served over HTTPS.
func NewHandler(
	notifications *application.NotificationService,
	provider *application.GatewayProvider,
	monitor *application.BalanceMonitor,
	secureCookies bool,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		notifications: notifications,
		provider:      provider,
		monitor:       monitor,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

// Dashboard renders the main dashboard page with the full HTML layout.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	data := h.dashboardData(w, r)
	h.render(w, r, http.StatusOK, data)
}

// SendTest sends an SMS from the dashboard form and re-renders the page with
// the gateway's reply.
func (h *Handler) SendTest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	if !validateCSRF(r) {
		http.Error(w, "invalid CSRF token", http.StatusForbidden)
		return
	}

	to := r.PostFormValue("to")
	message := r.PostFormValue("message")

	resp, err := h.notifications.Send(r.Context(), to, message)
	status, result := sendOutcome(err)
	if err == nil {
		result.StatusCode = resp.StatusCode
		result.Response = resp.Body
	} else if status == http.StatusInternalServerError {
		h.logger.Error("dashboard send failed", "error", err)
	}

	data := h.dashboardData(w, r)
	data.SendResult = result
	if err != nil {
		data.FormTo = to
		data.FormMessage = message
	}
	h.render(w, r, status, data)
}

// sendOutcome maps a Send error to an HTTP status and a result banner.
func sendOutcome(err error) (int, *vm.SendResultViewModel) {
	switch {
	case err == nil:
		return http.StatusOK, &vm.SendResultViewModel{OK: true}
	case errors.Is(err, application.ErrMissingRecipient),
		errors.Is(err, application.ErrMissingBody):
		return http.StatusBadRequest, &vm.SendResultViewModel{Error: err.Error()}
	case errors.Is(err, application.ErrNoCredentials):
		return http.StatusServiceUnavailable, &vm.SendResultViewModel{Error: err.Error()}
	case errors.Is(err, driven.ErrGatewayUnreachable):
		return http.StatusBadGateway, &vm.SendResultViewModel{Error: err.Error()}
	default:
		return http.StatusInternalServerError, &vm.SendResultViewModel{Error: "internal server error"}
	}
}

func (h *Handler) dashboardData(w http.ResponseWriter, r *http.Request) vm.DashboardViewModel {
	creds := h.provider.Credentials()
	data := vm.DashboardViewModel{
		GatewayReady: h.provider.Ready(),
		Username:     creds.Username,
		SenderID:     creds.SenderID,
		CSRFToken:    csrfToken(w, r, h.secureCookies),
	}

	if h.monitor != nil {
		if snap, ok := h.monitor.Latest(); ok {
			data.Balance = toBalanceViewModel(snap)
		}
	}

	dispatches, err := h.notifications.History(r.Context(), dashboardHistory)
	if err != nil {
		h.logger.Error("failed to load dispatch history", "error", err)
	}
	data.Dispatches = toDispatchViewModels(dispatches)

	return data
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, data vm.DashboardViewModel) {
	layout := templates.Layout(pageTitle, pages.Dashboard(data))
	templ.Handler(layout,
		templ.WithStatus(status),
		templ.WithErrorHandler(func(_ *http.Request, err error) http.Handler {
			h.logger.Error("failed to render dashboard", "error", err)
			return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "internal server error", http.StatusInternalServerError)
			})
		}),
	).ServeHTTP(w, r)
}
