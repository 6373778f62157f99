package web

import (
	"time"

	vm "github.com/ericfisherdev/mashtalsms/internal/adapter/driving/web/viewmodel"
	"github.com/ericfisherdev/mashtalsms/internal/domain/model"
	"github.com/ericfisherdev/mashtalsms/internal/domain/reply"
)

const displayTimeFormat = "2006-01-02 15:04:05 MST"

// toDispatchViewModel converts a dispatch log entry for the history table.
// Message bodies are markdown rendered and sanitized.
func toDispatchViewModel(d model.Dispatch) vm.DispatchViewModel {
	return vm.DispatchViewModel{
		ID:         d.ID,
		Operation:  operationLabel(d.Operation),
		Recipient:  d.Recipient,
		BodyHTML:   RenderMarkdown(d.Body),
		StatusCode: d.StatusCode,
		Response:   d.Response,
		Error:      d.Error,
		Duration:   d.Duration.Round(time.Millisecond).String(),
		CreatedAt:  d.CreatedAt.UTC().Format(displayTimeFormat),
		Failed:     d.Failed(),
	}
}

func toDispatchViewModels(dispatches []model.Dispatch) []vm.DispatchViewModel {
	out := make([]vm.DispatchViewModel, 0, len(dispatches))
	for _, d := range dispatches {
		out = append(out, toDispatchViewModel(d))
	}
	return out
}

// toBalanceViewModel converts the monitor snapshot. The parsed balance is only
// looked up on successful checks.
func toBalanceViewModel(snap model.BalanceSnapshot) *vm.BalanceViewModel {
	b := &vm.BalanceViewModel{
		Raw:       snap.Response,
		Error:     snap.Error,
		CheckedAt: snap.CheckedAt.UTC().Format(displayTimeFormat),
	}
	if snap.Error == "" {
		parsed := reply.Parse(snap.Response)
		b.Balance = parsed.Balance
		if b.Balance == "" && parsed.Format == reply.FormatCode && parsed.Message == "" {
			// A bare number is the balance itself.
			b.Balance = parsed.Code
		}
	}
	return b
}

func operationLabel(op model.Operation) string {
	switch op {
	case model.OperationCheckAccount:
		return "Account check"
	case model.OperationCheckBalance:
		return "Balance check"
	case model.OperationSendMessage:
		return "Send"
	default:
		return string(op)
	}
}
