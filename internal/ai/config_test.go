package ai_test

import (
	"context"
	"github.com/myrjola/chronicler/internal/ai"
	"github.com/myrjola/chronicler/internal/envstruct"
	"github.com/myrjola/chronicler/internal/testhelpers"
	"github.com/stretchr/testify/require"
	"io"
	"testing"
)

func TestNewProvidersFromConfig(t *testing.T) {
	env := map[string]string{"OPENAI_API_KEY": "key", "OPENAI_BASE_URL": "http://localhost:1/v1"}
	var cfg ai.Config
	require.NoError(t, envstruct.Populate(&cfg, func(key string) (string, bool) {
		value, ok := env[key]
		return value, ok
	}))
	require.Equal(t, "openai", cfg.Provider)

	providers, err := ai.NewProvidersFromConfig(context.Background(), cfg, testhelpers.NewLogger(io.Discard))
	require.NoError(t, err)
	require.Equal(t, []string{"openai"}, providers.Names())

	_, err = providers.Get("")
	require.NoError(t, err)
	_, err = providers.Get("gemini")
	require.ErrorIs(t, err, ai.ErrUnknownProvider)
}

func TestNewProvidersFromConfig_none(t *testing.T) {
	providers, err := ai.NewProvidersFromConfig(context.Background(), ai.Config{Provider: "openai"}, //nolint:exhaustruct // no keys.
		testhelpers.NewLogger(io.Discard))
	require.NoError(t, err)
	require.Empty(t, providers.Names())
	_, err = providers.Get("")
	require.ErrorIs(t, err, ai.ErrUnknownProvider)
}
