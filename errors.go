package biblio

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// ErrNoUserMessage is returned by Answerer.Answer when the conversation
// history contains no user message to answer.
var ErrNoUserMessage = errors.New("biblio: no user message in history")

// ErrEmbeddingUnavailable is returned when an operation requires an
// embedding provider and none is configured.
var ErrEmbeddingUnavailable = errors.New("biblio: no embedding provider configured")

type ErrLLM struct {
	Provider string
	Message  string
}

func (e *ErrLLM) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// ErrHTTP is a non-2xx response from a provider or index backend.
// RetryAfter is the parsed Retry-After header, zero when absent.
type ErrHTTP struct {
	Status     int
	Body       string
	RetryAfter time.Duration
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

// ParseRetryAfter parses the Retry-After header of resp as either a delay
// in seconds or an HTTP date. Returns zero if absent or malformed.
func ParseRetryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// Parse failure reasons for ingested documents.
const (
	ReasonMissingMetadata   = "missing-metadata"
	ReasonMalformedMetadata = "malformed-metadata"
)

// ParseError reports an unusable source document. Reason is one of the
// Reason* constants; Err holds the underlying cause when there is one.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("parse: %s", e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }
