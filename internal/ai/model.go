package ai

import (
	"context"
	"github.com/myrjola/chronicler/internal/errors"
	"log/slog"
	"sort"
	"strings"
)

// ErrUnknownProvider is returned when a request names a provider that is not configured.
var ErrUnknownProvider = errors.NewSentinel("unknown model provider")

// Request is a single prompt to a language model.
type Request struct {
	// System is the system instruction.
	System string
	// Prompt is the user message.
	Prompt string
	// JSON asks the provider to constrain the response to a JSON object.
	JSON bool
	// MaxTokens limits the response length. Zero uses the provider default.
	MaxTokens int
}

// Model is a language model provider.
type Model interface {
	// Complete returns the whole response text.
	Complete(ctx context.Context, req Request) (string, error)
	// Stream calls onChunk with every text delta as it arrives. Returning an error from onChunk stops the stream.
	Stream(ctx context.Context, req Request, onChunk func(chunk string) error) error
}

// Providers maps provider names such as "openai" or "gemini" to configured models.
type Providers struct {
	models   map[string]Model
	fallback string
}

// NewProviders creates a registry where fallback is used when a caller does not name a provider.
func NewProviders(fallback string) *Providers {
	return &Providers{
		models:   make(map[string]Model),
		fallback: strings.ToLower(fallback),
	}
}

// Register adds model under name, replacing an earlier registration.
func (p *Providers) Register(name string, model Model) {
	p.models[strings.ToLower(name)] = model
}

// Get returns the model registered under name or the fallback when name is empty.
func (p *Providers) Get(name string) (Model, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = p.fallback
	}
	model, ok := p.models[name]
	if !ok {
		return nil, errors.Wrap(ErrUnknownProvider, "get model provider", slog.String("provider", name),
			slog.String("available", strings.Join(p.Names(), ",")))
	}
	return model, nil
}

// Names lists registered providers in alphabetical order.
func (p *Providers) Names() []string {
	names := make([]string, 0, len(p.models))
	for name := range p.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
