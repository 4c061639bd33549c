// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enhance

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pdiddy/marksnips/internal/httputil"
)

// claudeServer returns a test server whose handler the caller supplies,
// with claudeAPIURL and the retry backoff pointed at it for the test's
// duration.
func claudeServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)

	oldURL := claudeAPIURL
	oldDelay := httputil.RetryBaseDelay
	claudeAPIURL = srv.URL
	httputil.RetryBaseDelay = time.Millisecond
	t.Cleanup(func() {
		claudeAPIURL = oldURL
		httputil.RetryBaseDelay = oldDelay
		srv.Close()
	})
	return srv
}

func textResponse(text string) []byte {
	resp := claudeResponse{Content: []claudeContent{{Type: "text", Text: text}}}
	data, _ := json.Marshal(resp)
	return data
}

func TestClaudeCompleterSuccess(t *testing.T) {
	var gotReq claudeRequest
	var gotKey, gotVersion string
	claudeServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Write(textResponse("enhanced text"))
	})

	c := &ClaudeCompleter{APIKey: "test-key", Model: "claude-test"}
	got, err := c.Complete(context.Background(), "rewrite this")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "enhanced text" {
		t.Errorf("got %q, want %q", got, "enhanced text")
	}
	if gotKey != "test-key" {
		t.Errorf("x-api-key = %q", gotKey)
	}
	if gotVersion != "2023-06-01" {
		t.Errorf("anthropic-version = %q", gotVersion)
	}
	if gotReq.Model != "claude-test" {
		t.Errorf("model = %q", gotReq.Model)
	}
	if len(gotReq.Messages) != 1 || gotReq.Messages[0].Content != "rewrite this" {
		t.Errorf("messages = %+v", gotReq.Messages)
	}
}

func TestClaudeCompleterConcatenatesTextBlocks(t *testing.T) {
	claudeServer(t, func(w http.ResponseWriter, r *http.Request) {
		resp := claudeResponse{Content: []claudeContent{
			{Type: "text", Text: "part one "},
			{Type: "tool_use", Text: "ignored"},
			{Type: "text", Text: "part two"},
		}}
		json.NewEncoder(w).Encode(resp)
	})

	c := &ClaudeCompleter{APIKey: "k", Model: "m"}
	got, err := c.Complete(context.Background(), "p")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "part one part two" {
		t.Errorf("got %q", got)
	}
}

func TestClaudeCompleterRetriesOverload(t *testing.T) {
	attempts := 0
	claudeServer(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(529)
			return
		}
		w.Write(textResponse("finally"))
	})

	c := &ClaudeCompleter{APIKey: "k", Model: "m", MaxRetries: 3}
	got, err := c.Complete(context.Background(), "p")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "finally" {
		t.Errorf("got %q", got)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestClaudeCompleterErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "authentication failure",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"error":"invalid api key"}`, http.StatusUnauthorized)
			},
		},
		{
			name: "empty content",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"content":[]}`))
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("not json"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claudeServer(t, tt.handler)

			c := &ClaudeCompleter{APIKey: "k", Model: "m"}
			_, err := c.Complete(context.Background(), "p")
			if err == nil {
				t.Fatal("expected error")
			}
			var se *ServiceError
			if !errors.As(err, &se) {
				t.Errorf("error %v is not a *ServiceError", err)
			}
		})
	}
}
