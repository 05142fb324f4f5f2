package ai

import (
	"context"
	"github.com/myrjola/chronicler/internal/errors"
	"google.golang.org/genai"
	"log/slog"
)

// DefaultGeminiModel is used when GEMINI_MODEL is not set.
const DefaultGeminiModel = "gemini-2.5-flash"

type Gemini struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// NewGemini creates a Gemini API provider.
func NewGemini(ctx context.Context, apiKey, model string, logger *slog.Logger) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{ //nolint:exhaustruct // defaults are fine.
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create genai client")
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &Gemini{
		client: client,
		model:  model,
		logger: logger.With("source", "Gemini"),
	}, nil
}

func (g *Gemini) config(req Request) *genai.GenerateContentConfig {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = MaxTokens
	}
	config := &genai.GenerateContentConfig{ //nolint:exhaustruct // this is better for readability
		MaxOutputTokens: int32(maxTokens), //nolint:gosec // bounded by callers.
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.JSON {
		config.ResponseMIMEType = "application/json"
	}
	return config
}

func (g *Gemini) Complete(ctx context.Context, req Request) (string, error) {
	response, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), g.config(req))
	if err != nil {
		return "", errors.Wrap(err, "generate content", slog.String("model", g.model))
	}
	if response.UsageMetadata != nil {
		g.logger.LogAttrs(ctx, slog.LevelDebug, "content generated",
			slog.Int("prompt_tokens", int(response.UsageMetadata.PromptTokenCount)),
			slog.Int("completion_tokens", int(response.UsageMetadata.CandidatesTokenCount)))
	}
	return response.Text(), nil
}

func (g *Gemini) Stream(ctx context.Context, req Request, onChunk func(chunk string) error) error {
	for response, err := range g.client.Models.GenerateContentStream(ctx, g.model, genai.Text(req.Prompt),
		g.config(req)) {
		if err != nil {
			return errors.Wrap(err, "generate content stream", slog.String("model", g.model))
		}
		if text := response.Text(); text != "" {
			if err = onChunk(text); err != nil {
				return err
			}
		}
	}
	return nil
}
