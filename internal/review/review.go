// Package review tracks the analysis state machine of each client and campaign:
//
//	idle -> analyzing -> review -> (applying -> idle | idle)
//
// An analysis or apply that is already in flight for the same client and campaign rejects a second trigger.
package review

import (
	"context"
	"github.com/myrjola/chronicler/internal/errors"
	"log/slog"
	"sync"
	"time"
)

type State string

const (
	StateIdle      State = "idle"
	StateAnalyzing State = "analyzing"
	StateReview    State = "review"
	StateApplying  State = "applying"
)

var (
	// ErrBusy is returned when an analysis or apply is already in flight.
	ErrBusy = errors.NewSentinel("review busy")
	// ErrNotReviewing is returned when cancelling without a review in progress.
	ErrNotReviewing = errors.NewSentinel("no review in progress")
)

// Key identifies one analysis session.
type Key struct {
	ClientID   string
	CampaignID string
}

// Snapshot is the observable state of one analysis session.
type Snapshot struct {
	State State `json:"state"`
	// Pending is the number of suggestions awaiting review.
	Pending int       `json:"pending"`
	Since   time.Time `json:"since"`
}

// Tracker holds the state machine of every active analysis session. Idle sessions are not stored.
type Tracker struct {
	mu       sync.Mutex
	sessions map[Key]Snapshot
	now      func() time.Time
	logger   *slog.Logger
}

func NewTracker(logger *slog.Logger) *Tracker {
	return &Tracker{
		mu:       sync.Mutex{},
		sessions: make(map[Key]Snapshot),
		now:      time.Now,
		logger:   logger.With("source", "review.Tracker"),
	}
}

// Get returns the current state of key.
func (t *Tracker) Get(key Key) Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	if snapshot, ok := t.sessions[key]; ok {
		return snapshot
	}
	return Snapshot{State: StateIdle, Pending: 0, Since: time.Time{}}
}

func (t *Tracker) set(ctx context.Context, key Key, state State, pending int) {
	from := StateIdle
	if current, ok := t.sessions[key]; ok {
		from = current.State
	}
	if state == StateIdle {
		delete(t.sessions, key)
	} else {
		t.sessions[key] = Snapshot{State: state, Pending: pending, Since: t.now()}
	}
	t.logger.LogAttrs(ctx, slog.LevelDebug, "review state changed",
		slog.String("campaign_id", key.CampaignID),
		slog.String("from", string(from)),
		slog.String("to", string(state)))
}

// begin moves key to state unless an operation is already in flight.
func (t *Tracker) begin(ctx context.Context, key Key, state State) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	current := StateIdle
	if snapshot, ok := t.sessions[key]; ok {
		current = snapshot.State
	}
	if current == StateAnalyzing || current == StateApplying {
		return errors.Wrap(ErrBusy, "begin "+string(state),
			slog.String("campaign_id", key.CampaignID), slog.String("state", string(current)))
	}
	t.set(ctx, key, state, 0)
	return nil
}

// Analysis is an analysis in flight. Exactly one of Review or Fail must be called.
type Analysis struct {
	tracker *Tracker
	key     Key
	once    sync.Once
}

// BeginAnalysis moves key from idle or review to analyzing.
func (t *Tracker) BeginAnalysis(ctx context.Context, key Key) (*Analysis, error) {
	if err := t.begin(ctx, key, StateAnalyzing); err != nil {
		return nil, err
	}
	return &Analysis{tracker: t, key: key, once: sync.Once{}}, nil
}

// Review moves the analysis to review with pending suggestions. No new content and an empty suggestion list
// are reviews too so the client can show the outcome.
func (a *Analysis) Review(ctx context.Context, pending int) {
	a.once.Do(func() {
		a.tracker.mu.Lock()
		defer a.tracker.mu.Unlock()
		a.tracker.set(ctx, a.key, StateReview, pending)
	})
}

// Fail returns the analysis to idle.
func (a *Analysis) Fail(ctx context.Context) {
	a.once.Do(func() {
		a.tracker.mu.Lock()
		defer a.tracker.mu.Unlock()
		a.tracker.set(ctx, a.key, StateIdle, 0)
	})
}

// BeginApply moves key from review, or idle for clients applying a list they kept, to applying. The returned
// function moves it back to idle.
func (t *Tracker) BeginApply(ctx context.Context, key Key) (func(), error) {
	if err := t.begin(ctx, key, StateApplying); err != nil {
		return nil, err
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			t.set(ctx, key, StateIdle, 0)
		})
	}, nil
}

// Cancel discards the suggestions under review without touching the entity store.
func (t *Tracker) Cancel(ctx context.Context, key Key) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	snapshot, ok := t.sessions[key]
	if !ok {
		return errors.Wrap(ErrNotReviewing, "cancel review", slog.String("campaign_id", key.CampaignID))
	}
	if snapshot.State != StateReview {
		return errors.Wrap(ErrBusy, "cancel review",
			slog.String("campaign_id", key.CampaignID), slog.String("state", string(snapshot.State)))
	}
	t.set(ctx, key, StateIdle, 0)
	return nil
}
