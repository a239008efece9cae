package noop

import (
	"context"
	"testing"

	"market-report/internal/types"
)

func TestComplete(t *testing.T) {
	p := New()
	if p.Name() != Name {
		t.Errorf("Name() = %s, want %s", p.Name(), Name)
	}

	got, err := p.Complete(context.Background(), types.CompletionRequest{Prompt: "  Analyse the indices \nmore detail"})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	want := "_Dry run: no model was called._\n\n> Analyse the indices"
	if got != want {
		t.Errorf("Complete() = %q, want %q", got, want)
	}
}
