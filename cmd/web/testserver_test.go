package main

import (
	"context"
	"github.com/myrjola/chronicler/internal/e2etest"
	"github.com/myrjola/chronicler/internal/testhelpers"
	"github.com/stretchr/testify/require"
	"io"
	"testing"
)

type testServer struct {
	*e2etest.Server
	model *testhelpers.OpenAIServer
}

// startTestServer runs the application against an in-memory database and a fake OpenAI endpoint.
func startTestServer(t *testing.T) testServer {
	t.Helper()
	model := testhelpers.NewOpenAIServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	server, err := e2etest.StartServer(ctx, io.Discard, testLookupEnv(model), run)
	require.NoError(t, err)
	return testServer{Server: server, model: model}
}

func testLookupEnv(model *testhelpers.OpenAIServer) func(string) (string, bool) {
	return func(key string) (string, bool) {
		switch key {
		case "CHRONICLER_ADDR":
			return "localhost:0", true
		case "CHRONICLER_SQLITE_URL":
			return ":memory:", true
		case "CHRONICLER_PPROF_ADDR":
			return "", true
		case "CHRONICLER_MODEL_TIMEOUT":
			return "2s", true
		case "OPENAI_API_KEY":
			return "test-key", true
		case "OPENAI_BASE_URL":
			return model.URL, true
		default:
			return "", false
		}
	}
}
