package driven

import (
	"context"

	"github.com/ericfisherdev/mashtalsms/internal/domain/model"
)

// DispatchStore defines the driven port for the gateway call audit log.
type DispatchStore interface {
	Insert(ctx context.Context, d model.Dispatch) error
	// ListRecent returns at most limit dispatches, newest first.
	ListRecent(ctx context.Context, limit int) ([]model.Dispatch, error)
	// Get returns the dispatch with the given ID, or nil if absent.
	Get(ctx context.Context, id string) (*model.Dispatch, error)
}
