package mistral

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nevindra/biblio"
)

func TestChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}

		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "mistral-small-latest" {
			t.Errorf("model = %q", req.Model)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("messages = %+v", req.Messages)
		}

		json.NewEncoder(w).Encode(ChatResponse{ //nolint:errcheck
			Choices: []Choice{{Message: Message{Role: "assistant", Content: "Bonjour !"}}},
		})
	}))
	defer server.Close()

	p := New("test-key", WithBaseURL(server.URL))
	text, err := p.Chat(t.Context(), []biblio.ChatMessage{
		biblio.SystemMessage("Tu es un assistant."),
		biblio.UserMessage("Bonjour"),
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if text != "Bonjour !" {
		t.Errorf("text = %q", text)
	}
}

func TestChatModelOverride(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		json.NewDecoder(r.Body).Decode(&req) //nolint:errcheck
		if req.Model != "mistral-large-latest" {
			t.Errorf("model = %q", req.Model)
		}
		json.NewEncoder(w).Encode(ChatResponse{ //nolint:errcheck
			Choices: []Choice{{Message: Message{Content: "ok"}}},
		})
	}))
	defer server.Close()

	p := New("key", WithBaseURL(server.URL), WithModel("mistral-large-latest"))
	if _, err := p.Chat(t.Context(), []biblio.ChatMessage{biblio.UserMessage("hi")}); err != nil {
		t.Fatalf("Chat: %v", err)
	}
}

func TestChatNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ChatResponse{}) //nolint:errcheck
	}))
	defer server.Close()

	p := New("key", WithBaseURL(server.URL))
	_, err := p.Chat(t.Context(), []biblio.ChatMessage{biblio.UserMessage("hi")})
	var llmErr *biblio.ErrLLM
	if !errors.As(err, &llmErr) {
		t.Errorf("err = %v, want *biblio.ErrLLM", err)
	}
}

func TestChatHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, "rate limited")
	}))
	defer server.Close()

	p := New("key", WithBaseURL(server.URL))
	_, err := p.Chat(t.Context(), []biblio.ChatMessage{biblio.UserMessage("hi")})

	var httpErr *biblio.ErrHTTP
	if !errors.As(err, &httpErr) {
		t.Fatalf("err = %v, want *biblio.ErrHTTP", err)
	}
	if httpErr.Status != http.StatusTooManyRequests {
		t.Errorf("Status = %d", httpErr.Status)
	}
	if httpErr.Body != "rate limited" {
		t.Errorf("Body = %q", httpErr.Body)
	}
	if httpErr.RetryAfter != 7*time.Second {
		t.Errorf("RetryAfter = %v, want 7s", httpErr.RetryAfter)
	}
}

func TestEmbedBatches(t *testing.T) {
	var batches [][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req EmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "mistral-embed" {
			t.Errorf("model = %q", req.Model)
		}
		batches = append(batches, req.Input)

		resp := EmbedResponse{Data: make([]EmbedData, len(req.Input))}
		for i := range req.Input {
			resp.Data[i] = EmbedData{Embedding: []float32{float32(len(batches)), float32(i)}}
		}
		json.NewEncoder(w).Encode(resp) //nolint:errcheck
	}))
	defer server.Close()

	texts := make([]string, 20)
	for i := range texts {
		texts[i] = fmt.Sprintf("texte %d", i)
	}

	e := NewEmbedding("key", WithBaseURL(server.URL))
	embs, err := e.Embed(t.Context(), texts)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	if len(batches) != 2 {
		t.Fatalf("got %d requests, want 2", len(batches))
	}
	if len(batches[0]) != 16 || len(batches[1]) != 4 {
		t.Errorf("batch sizes = %d, %d; want 16, 4", len(batches[0]), len(batches[1]))
	}
	if batches[0][0] != "texte 0" || batches[1][0] != "texte 16" {
		t.Errorf("batches out of order: %q, %q", batches[0][0], batches[1][0])
	}

	if len(embs) != 20 {
		t.Fatalf("got %d embeddings, want 20", len(embs))
	}
	// First vector of each batch carries the batch number.
	if embs[0][0] != 1 || embs[16][0] != 2 {
		t.Errorf("embeddings out of order: %v, %v", embs[0], embs[16])
	}
}

func TestEmbedCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(EmbedResponse{Data: []EmbedData{{Embedding: []float32{1}}}}) //nolint:errcheck
	}))
	defer server.Close()

	e := NewEmbedding("key", WithBaseURL(server.URL))
	_, err := e.Embed(t.Context(), []string{"a", "b"})
	var llmErr *biblio.ErrLLM
	if !errors.As(err, &llmErr) {
		t.Errorf("err = %v, want *biblio.ErrLLM", err)
	}
}

func TestEmbedEmptyInput(t *testing.T) {
	e := NewEmbedding("key", WithBaseURL("http://unreachable.invalid"))
	embs, err := e.Embed(t.Context(), nil)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(embs) != 0 {
		t.Errorf("got %d embeddings, want 0", len(embs))
	}
}

func TestDimensions(t *testing.T) {
	if d := NewEmbedding("key").Dimensions(); d != 1024 {
		t.Errorf("Dimensions = %d, want 1024", d)
	}
}
