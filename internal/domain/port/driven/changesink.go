package driven

import (
	"context"

	"github.com/ericfisherdev/prpoller/internal/domain/model"
)

// ChangeSink receives every change record the poller builds, once per new
// pull request revision.
type ChangeSink interface {
	AddChange(ctx context.Context, change model.ChangeRecord) error
}

// ChangeStore is a ChangeSink that also keeps a journal of recorded changes.
type ChangeStore interface {
	ChangeSink
	// ListRecent returns up to limit changes, newest first.
	ListRecent(ctx context.Context, limit int) ([]model.ChangeRecord, error)
}
