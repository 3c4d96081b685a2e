package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/prpoller/internal/application"
)

func TestMarkerKey(t *testing.T) {
	assert.Equal(t, "pull_request4242", application.MarkerKey(4242))
	assert.Equal(t, "pull_request1", application.MarkerKey(1))
}

func TestRevisionTracker_ObjectIDUsesRepoNamespace(t *testing.T) {
	state := newMemStateStore()
	tracker := application.NewRevisionTracker(state)
	ctx := context.Background()

	id, err := tracker.ObjectID(ctx, testConfig())
	require.NoError(t, err)

	direct, err := state.GetObjectID(ctx, "defunkt/buildbot", application.PollerClassName)
	require.NoError(t, err)
	assert.Equal(t, direct, id)
}

func TestRevisionTracker_Observe(t *testing.T) {
	tests := []struct {
		name       string
		stored     string
		head       string
		wantNew    bool
		wantMarker string
	}{
		{
			name:       "first sighting",
			head:       sha4242,
			wantNew:    true,
			wantMarker: sha4242,
		},
		{
			name:       "same revision",
			stored:     sha4242,
			head:       sha4242,
			wantNew:    false,
			wantMarker: sha4242,
		},
		{
			name:       "same twelve character prefix",
			stored:     "4c9a7f03e04e",
			head:       sha4242,
			wantNew:    false,
			wantMarker: "4c9a7f03e04e",
		},
		{
			name:       "prefix matches but differs after twelve characters",
			stored:     "4c9a7f03e04effffffffffffffffffffffffffff",
			head:       sha4242,
			wantNew:    false,
			wantMarker: "4c9a7f03e04effffffffffffffffffffffffffff",
		},
		{
			name:       "new revision",
			stored:     "0000000000000000000000000000000000000000",
			head:       sha4242,
			wantNew:    true,
			wantMarker: sha4242,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := newMemStateStore()
			tracker := application.NewRevisionTracker(state)
			ctx := context.Background()

			objectID, err := tracker.ObjectID(ctx, testConfig())
			require.NoError(t, err)

			if tt.stored != "" {
				require.NoError(t, state.SetState(ctx, objectID, "pull_request4242", tt.stored))
			}

			pr := pr4242()
			pr.HeadSHA = tt.head

			isNew, err := tracker.Observe(ctx, objectID, pr)
			require.NoError(t, err)
			assert.Equal(t, tt.wantNew, isNew)

			marker, ok := state.marker("defunkt/buildbot", 4242)
			require.True(t, ok)
			assert.Equal(t, tt.wantMarker, marker)
		})
	}
}

func TestRevisionTracker_ObserveWriteFailure(t *testing.T) {
	state := newMemStateStore()
	state.setErr = errors.New("disk full")
	tracker := application.NewRevisionTracker(state)
	ctx := context.Background()

	objectID, err := tracker.ObjectID(ctx, testConfig())
	require.NoError(t, err)

	isNew, err := tracker.Observe(ctx, objectID, pr4242())
	require.Error(t, err)
	assert.False(t, isNew)
	assert.Contains(t, err.Error(), "write marker pull_request4242")
}
