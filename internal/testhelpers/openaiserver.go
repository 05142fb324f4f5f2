package testhelpers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// OpenAIServer imitates the chat completion endpoint of the OpenAI API.
//
// Non-streaming requests get Completion as the assistant message. Streaming requests get Chunks as content
// deltas. Status other than zero fails every request with that HTTP status.
type OpenAIServer struct {
	URL string

	mu         sync.Mutex
	completion string
	chunks     []string
	status     int
	requests   []map[string]any
}

// NewOpenAIServer starts a server that is closed when the test ends. Use URL as the client base URL.
func NewOpenAIServer(t *testing.T) *OpenAIServer {
	t.Helper()
	s := &OpenAIServer{} //nolint:exhaustruct // configured with setters.
	srv := httptest.NewServer(http.HandlerFunc(s.serveHTTP))
	t.Cleanup(srv.Close)
	s.URL = srv.URL + "/v1"
	return s
}

func (s *OpenAIServer) SetCompletion(completion string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completion = completion
}

func (s *OpenAIServer) SetChunks(chunks ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = chunks
}

func (s *OpenAIServer) SetStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// Requests returns the decoded request bodies received so far.
func (s *OpenAIServer) Requests() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]any(nil), s.requests...)
}

func (s *OpenAIServer) serveHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/chat/completions" {
		http.NotFound(w, r)
		return
	}
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.requests = append(s.requests, body)
	completion, chunks, status := s.completion, s.chunks, s.status
	s.mu.Unlock()

	if status != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = fmt.Fprintf(w, `{"error": {"message": "fake failure", "type": "server_error"}}`)
		return
	}

	if stream, _ := body["stream"].(bool); stream {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, chunk := range chunks {
			data, _ := json.Marshal(map[string]any{
				"id":      "chatcmpl-test",
				"object":  "chat.completion.chunk",
				"choices": []any{map[string]any{"index": 0, "delta": map[string]any{"content": chunk}}},
			})
			_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}
		_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":     "chatcmpl-test",
		"object": "chat.completion",
		"choices": []any{map[string]any{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": completion},
			"finish_reason": "stop",
		}},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	})
}
