package intelligence

import (
	"context"
	"time"
)

type campaignStore interface {
	Watermark(ctx context.Context, id string) (*time.Time, error)
	AdvanceWatermark(ctx context.Context, id string, t time.Time) error
	ResetWatermark(ctx context.Context, id string) error
}

// Watermarks tracks the last intelligence run per campaign. Sessions updated after it are considered new content.
type Watermarks struct {
	store campaignStore
	now   func() time.Time
}

func NewWatermarks(store campaignStore) *Watermarks {
	return &Watermarks{store: store, now: time.Now}
}

// Get returns nil when the campaign has never been analyzed.
func (w *Watermarks) Get(ctx context.Context, campaignID string) (*time.Time, error) {
	return w.store.Watermark(ctx, campaignID)
}

// Advance moves the watermark to t unless it is already later.
func (w *Watermarks) Advance(ctx context.Context, campaignID string, t time.Time) error {
	return w.store.AdvanceWatermark(ctx, campaignID, t)
}

// AdvanceToNow moves the watermark to the current time.
func (w *Watermarks) AdvanceToNow(ctx context.Context, campaignID string) error {
	return w.Advance(ctx, campaignID, w.now())
}

// Reset clears the watermark so that the next analysis covers every session.
func (w *Watermarks) Reset(ctx context.Context, campaignID string) error {
	return w.store.ResetWatermark(ctx, campaignID)
}
