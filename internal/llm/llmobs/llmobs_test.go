package llmobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-report/internal/types"
)

type stubProvider struct {
	text string
	err  error
	got  types.CompletionRequest
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Complete(_ context.Context, req types.CompletionRequest) (string, error) {
	s.got = req
	return s.text, s.err
}

func TestWrap_PassesThrough(t *testing.T) {
	inner := &stubProvider{text: "ok"}
	p := Wrap(inner)
	assert.Equal(t, "stub", p.Name())

	text, err := p.Complete(context.Background(), types.CompletionRequest{Prompt: "hello", MaxTokens: 10})
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, "hello", inner.got.Prompt)
}

func TestWrap_ReturnsErrorUnchanged(t *testing.T) {
	boom := errors.New("boom")
	_, err := Wrap(&stubProvider{err: boom}).Complete(context.Background(), types.CompletionRequest{Prompt: "x"})
	assert.Equal(t, boom, err)
}
