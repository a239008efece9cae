package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-report/internal/llm"
	"market-report/internal/types"
)

func TestComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o-mini", body["model"])
		assert.Len(t, body["messages"], 2)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"chatcmpl-1","object":"chat.completion","created":1709251200,"model":"gpt-4o-mini",
			"choices":[{"index":0,"message":{"role":"assistant","content":"Equities advanced."},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	p := New("sk-test", "gpt-4o-mini", option.WithBaseURL(srv.URL))
	assert.Equal(t, Name, p.Name())

	text, err := p.Complete(context.Background(), types.CompletionRequest{
		Prompt: "Summarise March", System: "analyst", MaxTokens: 100, Temperature: 0.7,
	})
	require.NoError(t, err)
	assert.Equal(t, "Equities advanced.", text)
}

func TestComplete_StatusClassification(t *testing.T) {
	tests := []struct {
		status    int
		transient bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusUnauthorized, false},
		{http.StatusBadRequest, false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var calls int
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"error"}}`))
			}))
			defer srv.Close()

			_, err := New("sk-test", "", option.WithBaseURL(srv.URL)).
				Complete(context.Background(), types.CompletionRequest{Prompt: "p"})
			var pe *llm.ProviderError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.status, pe.StatusCode)
			assert.Equal(t, tt.transient, pe.Transient)
			assert.Equal(t, 1, calls, "SDK retries are disabled")
		})
	}
}

func TestComplete_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`))
	}))
	defer srv.Close()

	_, err := New("sk-test", "", option.WithBaseURL(srv.URL)).
		Complete(context.Background(), types.CompletionRequest{Prompt: "p"})
	assert.ErrorIs(t, err, llm.ErrEmptyCompletion)
}

func TestComplete_NoKey(t *testing.T) {
	_, err := New("", "").Complete(context.Background(), types.CompletionRequest{Prompt: "p"})
	assert.ErrorIs(t, err, llm.ErrNoCredential)
}
