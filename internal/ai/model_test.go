package ai_test

import (
	"context"
	"github.com/myrjola/chronicler/internal/ai"
	"github.com/stretchr/testify/require"
	"testing"
)

type namedModel string

func (m namedModel) Complete(context.Context, ai.Request) (string, error) {
	return string(m), nil
}

func (m namedModel) Stream(_ context.Context, _ ai.Request, onChunk func(string) error) error {
	return onChunk(string(m))
}

func TestProviders_Get(t *testing.T) {
	providers := ai.NewProviders("OpenAI")
	providers.Register("openai", namedModel("openai"))
	providers.Register("Gemini", namedModel("gemini"))

	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{name: "", want: "openai"},
		{name: "gemini", want: "gemini"},
		{name: " GEMINI ", want: "gemini"},
		{name: "anthropic", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model, err := providers.Get(tt.name)
			if tt.wantErr {
				require.ErrorIs(t, err, ai.ErrUnknownProvider)
				return
			}
			require.NoError(t, err)
			got, err := model.Complete(context.Background(), ai.Request{})
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
	require.Equal(t, []string{"gemini", "openai"}, providers.Names())
}
