package groq

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/koscakluka/talkingai/core/llms"
)

func newTestServer(t *testing.T, handler func(w http.ResponseWriter, body requestBody)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var body requestBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		handler(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestGenerateAccumulatesStreamedContent(t *testing.T) {
	var got requestBody
	server := newTestServer(t, func(w http.ResponseWriter, body requestBody) {
		got = body
		for _, content := range []string{"Hi", ", I'm", " Emma."} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", content)
		}
		fmt.Fprint(w, "data: not json\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	generator, err := NewGenerator("test-key", llms.WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reply, err := generator.Generate(t.Context(), "Hello there", llms.DefaultPersona())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "Hi, I'm Emma." {
		t.Fatalf("expected %q, got %q", "Hi, I'm Emma.", reply)
	}

	if got.Model != DefaultModel {
		t.Fatalf("expected model %q, got %q", DefaultModel, got.Model)
	}
	if got.Temperature != llms.DefaultTemperature {
		t.Fatalf("expected temperature %v, got %v", llms.DefaultTemperature, got.Temperature)
	}
	if !got.Stream {
		t.Fatalf("expected streaming request")
	}
	if len(got.Messages) != 2 {
		t.Fatalf("expected system and user messages, got %d", len(got.Messages))
	}
	if got.Messages[0].Role != messageRoleSystem || got.Messages[0].Content != llms.DefaultPersona().SystemPrompt() {
		t.Fatalf("expected persona system message, got %+v", got.Messages[0])
	}
	if got.Messages[1].Role != messageRoleUser || got.Messages[1].Content != "Hello there" {
		t.Fatalf("expected user utterance, got %+v", got.Messages[1])
	}
}

func TestGenerateFailures(t *testing.T) {
	testCases := []struct {
		name    string
		handler func(w http.ResponseWriter, body requestBody)
	}{
		{
			name: "non-OK status",
			handler: func(w http.ResponseWriter, _ requestBody) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
		},
		{
			name: "empty reply",
			handler: func(w http.ResponseWriter, _ requestBody) {
				fmt.Fprint(w, "data: [DONE]\n\n")
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := newTestServer(t, tc.handler)
			generator, err := NewGenerator("test-key", llms.WithBaseURL(server.URL))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if _, err := generator.Generate(t.Context(), "Hello", llms.DefaultPersona()); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestNewGeneratorRequiresAPIKey(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	if _, err := NewGenerator(""); err == nil {
		t.Fatalf("expected error without api key")
	}
}
