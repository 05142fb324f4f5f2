package review_test

import (
	"context"
	"github.com/myrjola/chronicler/internal/review"
	"github.com/myrjola/chronicler/internal/testhelpers"
	"github.com/stretchr/testify/require"
	"io"
	"sync"
	"sync/atomic"
	"testing"
)

func TestTracker_lifecycle(t *testing.T) {
	ctx := context.Background()
	tracker := review.NewTracker(testhelpers.NewLogger(io.Discard))
	key := review.Key{ClientID: "client-a", CampaignID: "gilded"}

	require.Equal(t, review.StateIdle, tracker.Get(key).State)

	analysis, err := tracker.BeginAnalysis(ctx, key)
	require.NoError(t, err)
	require.Equal(t, review.StateAnalyzing, tracker.Get(key).State)

	_, err = tracker.BeginAnalysis(ctx, key)
	require.ErrorIs(t, err, review.ErrBusy)
	_, err = tracker.BeginApply(ctx, key)
	require.ErrorIs(t, err, review.ErrBusy)
	require.ErrorIs(t, tracker.Cancel(ctx, key), review.ErrBusy)

	analysis.Review(ctx, 3)
	analysis.Fail(ctx)
	snapshot := tracker.Get(key)
	require.Equal(t, review.StateReview, snapshot.State, "the first outcome wins")
	require.Equal(t, 3, snapshot.Pending)

	done, err := tracker.BeginApply(ctx, key)
	require.NoError(t, err)
	require.Equal(t, review.StateApplying, tracker.Get(key).State)
	done()
	require.Equal(t, review.StateIdle, tracker.Get(key).State)
}

func TestTracker_cancelAndFailure(t *testing.T) {
	ctx := context.Background()
	tracker := review.NewTracker(testhelpers.NewLogger(io.Discard))
	key := review.Key{ClientID: "client-a", CampaignID: "gilded"}

	require.ErrorIs(t, tracker.Cancel(ctx, key), review.ErrNotReviewing)

	analysis, err := tracker.BeginAnalysis(ctx, key)
	require.NoError(t, err)
	analysis.Fail(ctx)
	require.Equal(t, review.StateIdle, tracker.Get(key).State)

	analysis, err = tracker.BeginAnalysis(ctx, key)
	require.NoError(t, err)
	analysis.Review(ctx, 0)
	require.NoError(t, tracker.Cancel(ctx, key))
	require.Equal(t, review.StateIdle, tracker.Get(key).State)

	// Applying from idle is allowed for clients that kept the list.
	done, err := tracker.BeginApply(ctx, key)
	require.NoError(t, err)
	done()
}

func TestTracker_keysAreIndependent(t *testing.T) {
	ctx := context.Background()
	tracker := review.NewTracker(testhelpers.NewLogger(io.Discard))

	_, err := tracker.BeginAnalysis(ctx, review.Key{ClientID: "a", CampaignID: "gilded"})
	require.NoError(t, err)
	_, err = tracker.BeginAnalysis(ctx, review.Key{ClientID: "b", CampaignID: "gilded"})
	require.NoError(t, err, "another client may analyze the same campaign")
	_, err = tracker.BeginAnalysis(ctx, review.Key{ClientID: "a", CampaignID: "empty"})
	require.NoError(t, err, "the same client may analyze another campaign")
}

func TestTracker_concurrentTriggers(t *testing.T) {
	ctx := context.Background()
	tracker := review.NewTracker(testhelpers.NewLogger(io.Discard))
	key := review.Key{ClientID: "a", CampaignID: "gilded"}

	var (
		wg      sync.WaitGroup
		started atomic.Int32
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := tracker.BeginAnalysis(ctx, key); err == nil {
				started.Add(1)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), started.Load())
}
