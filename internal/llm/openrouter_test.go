package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func TestChatCompletionOrdersMessages(t *testing.T) {
	var request struct {
		Model    string    `json:"model"`
		Messages []Message `json:"messages"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer key-1" {
			t.Errorf("expected bearer auth, got %q", got)
		}
		_ = json.NewDecoder(r.Body).Decode(&request)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "Sure thing."}},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "key-1", "test-model", "https://example.com", zerolog.Nop())
	reply, err := client.ChatCompletion(context.Background(), "be helpful", []Message{
		{Role: "user", Content: "earlier question"},
		{Role: "assistant", Content: "earlier answer"},
	}, "new question")
	if err != nil {
		t.Fatalf("chat completion: %v", err)
	}
	if reply != "Sure thing." {
		t.Fatalf("unexpected reply %q", reply)
	}

	if request.Model != "test-model" {
		t.Fatalf("expected model test-model, got %q", request.Model)
	}
	roles := make([]string, 0, len(request.Messages))
	for _, m := range request.Messages {
		roles = append(roles, m.Role)
	}
	want := []string{"system", "user", "assistant", "user"}
	if len(roles) != len(want) {
		t.Fatalf("expected %d messages, got %v", len(want), roles)
	}
	for i := range want {
		if roles[i] != want[i] {
			t.Fatalf("expected roles %v, got %v", want, roles)
		}
	}
	if request.Messages[len(request.Messages)-1].Content != "new question" {
		t.Fatalf("expected user message last, got %+v", request.Messages)
	}
}

func TestChatCompletionRejectsEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer server.Close()

	client := NewClient(server.URL, "key-1", "test-model", "", zerolog.Nop())
	if _, err := client.ChatCompletion(context.Background(), "sys", nil, "hi"); err == nil {
		t.Fatalf("expected error for empty choices")
	}
}

func TestConfigured(t *testing.T) {
	if NewClient("", "", "", "", zerolog.Nop()).Configured() {
		t.Fatalf("expected unconfigured without api key")
	}
	if !NewClient("", "key", "", "", zerolog.Nop()).Configured() {
		t.Fatalf("expected configured with api key")
	}
}
