package claude

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-report/internal/llm"
	"market-report/internal/types"
)

func TestComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sk-ant", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))

		var body messagesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "claude-3-haiku-20240307", body.Model)
		assert.Equal(t, 500, body.MaxTokens)
		assert.Equal(t, "be brief", body.System)
		require.Len(t, body.Messages, 1)
		assert.Equal(t, "user", body.Messages[0].Role)

		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"Markets rose "},{"type":"text","text":"on rate hopes."}],"stop_reason":"end_turn"}`))
	}))
	defer srv.Close()

	p := New("sk-ant", "claude-3-haiku-20240307", WithEndpoint(srv.URL))
	assert.Equal(t, Name, p.Name())

	text, err := p.Complete(context.Background(), types.CompletionRequest{
		Prompt: "Summarise March", System: "be brief", MaxTokens: 500, Temperature: 0.2,
	})
	require.NoError(t, err)
	assert.Equal(t, "Markets rose on rate hopes.", text)
}

func TestComplete_LegacyCompletionField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"completion":"legacy text"}`))
	}))
	defer srv.Close()

	text, err := New("k", "", WithEndpoint(srv.URL)).Complete(context.Background(), types.CompletionRequest{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "legacy text", text)
}

func TestComplete_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		transient bool
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":{"type":"rate_limit_error"}}`, true},
		{"overloaded", 529, `{"error":{"type":"overloaded_error"}}`, true},
		{"bad key", http.StatusUnauthorized, `{"error":{"type":"authentication_error"}}`, false},
		{"empty", http.StatusOK, `{"content":[]}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := New("k", "", WithEndpoint(srv.URL)).Complete(context.Background(), types.CompletionRequest{Prompt: "p"})
			require.Error(t, err)
			var pe *llm.ProviderError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, Name, pe.Provider)
			assert.Equal(t, tt.transient, pe.Transient)
		})
	}
}

func TestComplete_NoKey(t *testing.T) {
	_, err := New("", "").Complete(context.Background(), types.CompletionRequest{Prompt: "p"})
	assert.ErrorIs(t, err, llm.ErrNoCredential)
	assert.False(t, llm.IsTransient(err))
}

func TestNew_EndpointFromEnv(t *testing.T) {
	t.Setenv("CLAUDE_API_ENDPOINT", "http://proxy.local/v1/messages")
	assert.Equal(t, "http://proxy.local/v1/messages", New("k", "").endpoint)
	assert.Equal(t, DefaultModel, New("k", "").model)
}
