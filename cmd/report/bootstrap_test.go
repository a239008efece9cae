package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-report/internal/llm"
	"market-report/internal/store"
)

func TestResolveRange(t *testing.T) {
	now := time.Date(2024, 3, 31, 15, 4, 5, 0, time.UTC)

	s, e, err := resolveRange("", "", 7, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), e)
	assert.Equal(t, time.Date(2024, 3, 24, 0, 0, 0, 0, time.UTC), s)

	s, e, err = resolveRange("2024-03-01", "2024-03-31", 7, now)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", s.Format("2006-01-02"))
	assert.Equal(t, "2024-03-31", e.Format("2006-01-02"))

	_, _, err = resolveRange("03/01/2024", "", 7, now)
	assert.Error(t, err)
	_, _, err = resolveRange("", "tomorrow", 7, now)
	assert.Error(t, err)
}

func TestProviderRegistrations(t *testing.T) {
	cfg := store.Default()
	creds := store.Credentials{AnthropicKey: "sk-ant"}

	regs, err := providerRegistrations(context.Background(), cfg, creds, false)
	require.NoError(t, err)
	require.Len(t, regs, 3)

	byName := map[string]llm.Registration{}
	for _, r := range regs {
		byName[r.Config.Name] = r
	}
	assert.False(t, byName["openai"].Config.Credentialed)
	assert.Nil(t, byName["openai"].Provider)
	assert.True(t, byName["claude"].Config.Credentialed)
	assert.NotNil(t, byName["claude"].Provider)
	assert.False(t, byName["gemini"].Config.Credentialed)

	orch, err := llm.NewOrchestrator(regs)
	require.NoError(t, err)
	assert.Equal(t, []string{"claude"}, orch.Providers())
}

func TestProviderRegistrations_DryRun(t *testing.T) {
	regs, err := providerRegistrations(context.Background(), store.Default(), store.Credentials{}, true)
	require.NoError(t, err)
	require.Len(t, regs, 1)
	assert.Equal(t, "noop", regs[0].Config.Name)
	assert.True(t, regs[0].Config.Credentialed)
}

func TestInitializeOrchestrator_NoKeys(t *testing.T) {
	_, err := initializeOrchestrator(context.Background(), store.Default(), store.Credentials{}, "", false)
	assert.ErrorIs(t, err, llm.ErrNoProviders)
}

func TestInitializeOrchestrator_AgentWithoutKey(t *testing.T) {
	creds := store.Credentials{OpenAIKey: "sk"}
	_, err := initializeOrchestrator(context.Background(), store.Default(), creds, "Claude", false)
	assert.ErrorIs(t, err, llm.ErrNoCredential)

	orch, err := initializeOrchestrator(context.Background(), store.Default(), creds, "openai", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"openai"}, orch.Providers())
}

func TestPrintKeyStatus(t *testing.T) {
	var buf bytes.Buffer
	printKeyStatus(&buf, store.Default(), store.Credentials{GoogleKey: "g", NewsAPIKey: "n"})
	out := buf.String()

	assert.Contains(t, out, "1. openai   missing")
	assert.Contains(t, out, "3. gemini   configured")
	assert.Contains(t, out, "- newsapi  configured")
	assert.Contains(t, out, "- eodhd    missing")
	assert.Contains(t, out, "- yahoo    configured")
}
