package ai

import (
	"context"
	"github.com/myrjola/chronicler/internal/errors"
	"github.com/sashabaranov/go-openai"
	"io"
	"log/slog"
)

// DefaultOpenAIModel is used when OPENAI_MODEL is not set.
const DefaultOpenAIModel = "gpt-4o-mini"

// MaxTokens is the response limit when a request does not set one.
const MaxTokens = 4096

type OpenAI struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

// NewOpenAI creates an OpenAI chat completion provider. An empty baseURL uses the public API.
func NewOpenAI(apiKey, baseURL, model string, logger *slog.Logger) *OpenAI {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(config),
		model:  model,
		logger: logger.With("source", "OpenAI"),
	}
}

func (o *OpenAI) request(req Request) openai.ChatCompletionRequest {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = MaxTokens
	}
	messages := make([]openai.ChatCompletionMessage, 0, 2) //nolint:mnd // system and user.
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{ //nolint:exhaustruct // this is better for readability
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{ //nolint:exhaustruct // this is better for readability
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})
	completionRequest := openai.ChatCompletionRequest{ //nolint:exhaustruct // this is better for readability
		Model:     o.model,
		MaxTokens: maxTokens,
		Messages:  messages,
	}
	if req.JSON {
		completionRequest.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	return completionRequest
}

func (o *OpenAI) Complete(ctx context.Context, req Request) (string, error) {
	completion, err := o.client.CreateChatCompletion(ctx, o.request(req))
	if err != nil {
		return "", errors.Wrap(err, "create chat completion", slog.String("model", o.model))
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("chat completion without choices", slog.String("model", o.model))
	}
	o.logger.LogAttrs(ctx, slog.LevelDebug, "chat completion finished",
		slog.Int("prompt_tokens", completion.Usage.PromptTokens),
		slog.Int("completion_tokens", completion.Usage.CompletionTokens),
		slog.String("finish_reason", string(completion.Choices[0].FinishReason)))
	return completion.Choices[0].Message.Content, nil
}

func (o *OpenAI) Stream(ctx context.Context, req Request, onChunk func(chunk string) error) error {
	stream, err := o.client.CreateChatCompletionStream(ctx, o.request(req))
	if err != nil {
		return errors.Wrap(err, "create chat completion stream", slog.String("model", o.model))
	}
	defer stream.Close()
	for {
		var response openai.ChatCompletionStreamResponse
		response, err = stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "receive chat completion chunk")
		}
		if len(response.Choices) == 0 || response.Choices[0].Delta.Content == "" {
			continue
		}
		if err = onChunk(response.Choices[0].Delta.Content); err != nil {
			return err
		}
	}
}
