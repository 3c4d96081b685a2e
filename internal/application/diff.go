package application

import (
	"context"
	"fmt"

	"github.com/ericfisherdev/prpoller/internal/domain/model"
	"github.com/ericfisherdev/prpoller/internal/domain/port/driven"
)

// PollerClassName is the class under which the poller registers its state
// object. Together with "owner/repo" it identifies the marker namespace.
const PollerClassName = model.PollerName

// MarkerKey returns the state key holding the last seen head revision of
// pull request number.
func MarkerKey(number int) string {
	return fmt.Sprintf("pull_request%d", number)
}

// RevisionTracker decides whether a pull request carries a revision that has
// not been seen before, using the persisted revision markers.
type RevisionTracker struct {
	state driven.StateStore
}

// NewRevisionTracker creates a RevisionTracker on the given state store.
func NewRevisionTracker(state driven.StateStore) *RevisionTracker {
	return &RevisionTracker{state: state}
}

// ObjectID resolves the state object for the repository cfg watches.
func (t *RevisionTracker) ObjectID(ctx context.Context, cfg model.PollerConfig) (int64, error) {
	id, err := t.state.GetObjectID(ctx, cfg.FullName(), PollerClassName)
	if err != nil {
		return 0, fmt.Errorf("resolve state object for %s: %w", cfg.FullName(), err)
	}
	return id, nil
}

// Observe compares pr's head revision with the stored marker. When the
// revision is new the marker is overwritten before Observe returns true, so
// the caller builds the change only after the marker is durable. A change
// that then fails to build is not retried on later polls.
func (t *RevisionTracker) Observe(ctx context.Context, objectID int64, pr model.PullRequest) (bool, error) {
	key := MarkerKey(pr.Number)

	marker, err := t.state.GetState(ctx, objectID, key, "")
	if err != nil {
		return false, fmt.Errorf("read marker %s: %w", key, err)
	}

	if marker != "" && model.SameRevision(marker, pr.HeadSHA) {
		return false, nil
	}

	if err := t.state.SetState(ctx, objectID, key, pr.HeadSHA); err != nil {
		return false, fmt.Errorf("write marker %s: %w", key, err)
	}

	return true, nil
}
