package main

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/google/uuid"
	"github.com/myrjola/chronicler/internal/broker"
	"github.com/myrjola/chronicler/internal/contexthelpers"
	"github.com/myrjola/chronicler/internal/errors"
	"github.com/myrjola/chronicler/internal/intelligence"
	"github.com/myrjola/chronicler/internal/notes"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// expansionRetention is how long a finished expansion can be fetched by reconnecting clients.
const expansionRetention = 10 * time.Minute

type expansionOutcome struct {
	Expansion notes.Expansion
	Err       error
	Done      bool
}

// expansionStreams tracks notes expansions from the POST that starts them to the SSE stream that serves them.
type expansionStreams struct {
	broker   *broker.ChannelBroker[string, notes.SectionDelta]
	mu       sync.Mutex
	owners   map[string]string
	outcomes map[string]expansionOutcome
}

func newExpansionStreams(b *broker.ChannelBroker[string, notes.SectionDelta]) *expansionStreams {
	return &expansionStreams{
		broker:   b,
		mu:       sync.Mutex{},
		owners:   make(map[string]string),
		outcomes: make(map[string]expansionOutcome),
	}
}

func (s *expansionStreams) start(clientID string) (string, chan notes.SectionDelta) {
	id := uuid.NewString()
	channel := make(chan notes.SectionDelta)
	s.mu.Lock()
	s.owners[id] = clientID
	s.outcomes[id] = expansionOutcome{Expansion: notes.Expansion{}, Err: nil, Done: false}
	s.mu.Unlock()
	s.broker.Publish(id, channel)
	return id, channel
}

// finish stores the outcome before the live channel closes so that consumers always find it.
func (s *expansionStreams) finish(id string, channel chan notes.SectionDelta, expansion notes.Expansion, err error) {
	s.mu.Lock()
	s.outcomes[id] = expansionOutcome{Expansion: expansion, Err: err, Done: true}
	s.mu.Unlock()
	close(channel)
	s.broker.Unpublish(id)
	time.AfterFunc(expansionRetention, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.outcomes, id)
		delete(s.owners, id)
	})
}

func (s *expansionStreams) owned(id, clientID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	owner, ok := s.owners[id]
	return ok && owner == clientID
}

func (s *expansionStreams) outcome(id string) expansionOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcomes[id]
}

type expandNotesRequest struct {
	CampaignID string `json:"campaignId"`
	Notes      string `json:"notes"`
	AIProvider string `json:"aiProvider"`
}

type expandNotesResponse struct {
	ExpansionID string `json:"expansionId"`
	StreamURL   string `json:"streamUrl"`
}

// expandNotes starts a notes expansion in the background. The output is served by streamExpansion.
func (app *application) expandNotes(w http.ResponseWriter, r *http.Request) {
	var req expandNotesRequest
	if err := readJSON(w, r, &req); err != nil {
		app.handleError(w, r, err)
		return
	}
	if err := requireField("notes", req.Notes); err != nil {
		app.handleError(w, r, err)
		return
	}
	if req.CampaignID != "" {
		var ctx context.Context
		r, ctx = withCampaign(r, req.CampaignID)
		if _, err := app.intelligence.Watermark(ctx, req.CampaignID); err != nil {
			app.handleError(w, r, err)
			return
		}
	}

	id, channel := app.expansions.start(contexthelpers.ClientID(r.Context()))
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), app.requestTimeout())
	go func() {
		defer cancel()
		defer func() {
			if recovered := recover(); recovered != nil {
				err := errors.New(fmt.Sprintf("panic: %v", recovered))
				app.logger.LogAttrs(ctx, slog.LevelError, "notes expansion panicked", errors.SlogError(err))
				app.expansions.finish(id, channel, notes.Expansion{}, err) //nolint:exhaustruct // empty on failure.
			}
		}()
		expansion, err := app.intelligence.ExpandNotes(ctx, intelligence.ExpandNotesRequest{
			CampaignID: req.CampaignID,
			Notes:      req.Notes,
			Provider:   req.AIProvider,
		}, func(delta notes.SectionDelta) error {
			select {
			case channel <- delta:
				return nil
			case <-ctx.Done():
				return errors.Wrap(ctx.Err(), "no stream consumer")
			}
		})
		if err != nil {
			app.logger.LogAttrs(ctx, slog.LevelWarn, "notes expansion failed", errors.SlogError(err))
		}
		app.expansions.finish(id, channel, expansion, err)
	}()

	app.writeJSON(w, r, http.StatusAccepted, expandNotesResponse{
		ExpansionID: id,
		StreamURL:   "/expand-notes/" + id + "/stream",
	})
}

func writeEvent(w http.ResponseWriter, rc *http.ResponseController, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}
	if _, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return errors.Wrap(err, "write event")
	}
	return errors.Wrap(rc.Flush(), "flush event")
}

// streamExpansion serves the expansion as server-sent events: "delta" events while the model writes and a final
// "done" or "error" event. Reconnecting clients get the final event once the expansion has finished.
func (app *application) streamExpansion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("expansionID")
	if !app.expansions.owned(id, contexthelpers.ClientID(ctx)) {
		app.clientError(w, r, http.StatusNotFound, errors.New("unknown expansion"))
		return
	}

	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Now().Add(app.requestTimeout())); err != nil {
		app.logger.LogAttrs(ctx, slog.LevelDebug, "could not extend write deadline", errors.SlogError(err))
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	if live, ok := <-app.expansions.broker.Subscribe(id); ok {
	stream:
		for {
			select {
			case delta, open := <-live:
				if !open {
					break stream
				}
				if err := writeEvent(w, rc, "delta", delta); err != nil {
					app.logger.LogAttrs(ctx, slog.LevelDebug, "stream consumer gone", errors.SlogError(err))
					go drain(live)
					return
				}
			case <-ctx.Done():
				go drain(live)
				return
			}
		}
	}

	outcome := app.expansions.outcome(id)
	var err error
	switch {
	case !outcome.Done:
		err = writeEvent(w, rc, "error", errorResponse{Error: "expansion did not finish", Retryable: true})
	case outcome.Err != nil:
		err = writeEvent(w, rc, "error", errorResponse{
			Error:     "the language model failed, try again",
			Retryable: errors.Is(outcome.Err, intelligence.ErrGeneration),
		})
	default:
		err = writeEvent(w, rc, "done", outcome.Expansion)
	}
	if err != nil {
		app.logger.LogAttrs(ctx, slog.LevelDebug, "stream consumer gone", errors.SlogError(err))
	}
}

// drain unblocks the producer after the consumer has left.
func drain(live chan notes.SectionDelta) {
	for range live { //nolint:revive // discarding is the point.
	}
}
