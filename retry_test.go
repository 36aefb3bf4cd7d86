package biblio

import (
	"context"
	"errors"
	"testing"
	"time"
)

// flakyProvider fails with err until failures calls have happened, then succeeds.
type flakyProvider struct {
	err      error
	failures int
	calls    int
}

func (f *flakyProvider) Chat(ctx context.Context, messages []ChatMessage) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", f.err
	}
	return "ok", nil
}

func (f *flakyProvider) Name() string { return "flaky" }

func TestRetryTransientError(t *testing.T) {
	inner := &flakyProvider{err: &ErrHTTP{Status: 429, Body: "rate limited"}, failures: 2}
	p := WithRetry(inner, RetryBaseDelay(time.Millisecond))

	text, err := p.Chat(context.Background(), []ChatMessage{UserMessage("hi")})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if text != "ok" {
		t.Errorf("text = %q, want ok", text)
	}
	if inner.calls != 3 {
		t.Errorf("calls = %d, want 3", inner.calls)
	}
}

func TestRetryNonTransientError(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"client error", &ErrHTTP{Status: 400, Body: "bad request"}},
		{"auth error", &ErrHTTP{Status: 401, Body: "unauthorized"}},
		{"non-http error", errors.New("connection reset")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner := &flakyProvider{err: tt.err, failures: 10}
			p := WithRetry(inner, RetryBaseDelay(time.Millisecond))

			_, err := p.Chat(context.Background(), []ChatMessage{UserMessage("hi")})
			if !errors.Is(err, tt.err) {
				t.Errorf("err = %v, want %v", err, tt.err)
			}
			if inner.calls != 1 {
				t.Errorf("calls = %d, want 1 (no retry)", inner.calls)
			}
		})
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	inner := &flakyProvider{err: &ErrHTTP{Status: 503, Body: "unavailable"}, failures: 10}
	p := WithRetry(inner, RetryMaxAttempts(2), RetryBaseDelay(time.Millisecond))

	_, err := p.Chat(context.Background(), []ChatMessage{UserMessage("hi")})
	var httpErr *ErrHTTP
	if !errors.As(err, &httpErr) || httpErr.Status != 503 {
		t.Errorf("err = %v, want the last 503", err)
	}
	if inner.calls != 2 {
		t.Errorf("calls = %d, want 2", inner.calls)
	}
}

func TestRetryHonorsRetryAfter(t *testing.T) {
	retryAfter := 30 * time.Millisecond
	inner := &flakyProvider{
		err:      &ErrHTTP{Status: 429, Body: "rate limited", RetryAfter: retryAfter},
		failures: 1,
	}
	p := WithRetry(inner, RetryBaseDelay(time.Millisecond))

	start := time.Now()
	if _, err := p.Chat(context.Background(), []ChatMessage{UserMessage("hi")}); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if elapsed := time.Since(start); elapsed < retryAfter {
		t.Errorf("elapsed = %v, want at least %v (Retry-After)", elapsed, retryAfter)
	}
}

func TestRetryContextCancellation(t *testing.T) {
	inner := &flakyProvider{err: &ErrHTTP{Status: 429, Body: "rate limited"}, failures: 10}
	p := WithRetry(inner, RetryBaseDelay(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := p.Chat(ctx, []ChatMessage{UserMessage("hi")})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if inner.calls != 1 {
		t.Errorf("calls = %d, want 1", inner.calls)
	}
}

func TestRetryTimeout(t *testing.T) {
	inner := &flakyProvider{err: &ErrHTTP{Status: 503, Body: "unavailable"}, failures: 10}
	p := WithRetry(inner,
		RetryMaxAttempts(10),
		RetryBaseDelay(50*time.Millisecond),
		RetryTimeout(20*time.Millisecond))

	_, err := p.Chat(context.Background(), []ChatMessage{UserMessage("hi")})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want context.DeadlineExceeded", err)
	}
}

// flakyEmbedding fails with err until failures calls have happened.
type flakyEmbedding struct {
	err      error
	failures int
	calls    int
}

func (f *flakyEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return make([][]float32, len(texts)), nil
}

func (f *flakyEmbedding) Dimensions() int { return 4 }
func (f *flakyEmbedding) Name() string    { return "flaky-embed" }

func TestEmbeddingRetryTransientError(t *testing.T) {
	inner := &flakyEmbedding{err: &ErrHTTP{Status: 429, Body: "rate limited"}, failures: 1}
	p := WithEmbeddingRetry(inner, RetryBaseDelay(time.Millisecond))

	embs, err := p.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(embs) != 2 {
		t.Errorf("got %d embeddings, want 2", len(embs))
	}
	if inner.calls != 2 {
		t.Errorf("calls = %d, want 2", inner.calls)
	}
	if p.Dimensions() != 4 {
		t.Errorf("Dimensions = %d, want 4", p.Dimensions())
	}
}
