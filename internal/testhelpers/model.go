package testhelpers

import (
	"context"
	"github.com/myrjola/chronicler/internal/ai"
	"sync"
)

// StaticModel is an ai.Model returning canned output. It records every request it receives.
type StaticModel struct {
	// Response is returned by Complete.
	Response string
	// Chunks are emitted by Stream in order.
	Chunks []string
	// Err fails every call when set.
	Err error

	mu       sync.Mutex
	requests []ai.Request
}

func (m *StaticModel) record(req ai.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
}

// Requests returns the requests received so far.
func (m *StaticModel) Requests() []ai.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ai.Request(nil), m.requests...)
}

func (m *StaticModel) Complete(ctx context.Context, req ai.Request) (string, error) {
	m.record(req)
	if m.Err != nil {
		return "", m.Err
	}
	if err := ctx.Err(); err != nil {
		return "", err //nolint:wrapcheck // test double.
	}
	return m.Response, nil
}

func (m *StaticModel) Stream(ctx context.Context, req ai.Request, onChunk func(chunk string) error) error {
	m.record(req)
	if m.Err != nil {
		return m.Err
	}
	for _, chunk := range m.Chunks {
		if err := ctx.Err(); err != nil {
			return err //nolint:wrapcheck // test double.
		}
		if err := onChunk(chunk); err != nil {
			return err
		}
	}
	return nil
}
