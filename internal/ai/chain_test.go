package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name    string
	enabled bool
	content string
	err     error
	calls   int
}

func (s *stubProvider) Name() string  { return s.name }
func (s *stubProvider) Enabled() bool { return s.enabled }

func (s *stubProvider) Generate(ctx context.Context, prompt Prompt) (string, error) {
	s.calls++
	return s.content, s.err
}

func TestWithFallback(t *testing.T) {
	t.Run("primary succeeds", func(t *testing.T) {
		primary := &stubProvider{name: "a", enabled: true, content: "A"}
		fallback := &stubProvider{name: "b", enabled: true, content: "B"}
		content, err := WithFallback(primary, fallback).Generate(context.Background(), testPrompt)
		require.NoError(t, err)
		assert.Equal(t, "A", content)
		assert.Zero(t, fallback.calls)
	})

	t.Run("primary fails", func(t *testing.T) {
		primary := &stubProvider{name: "a", enabled: true, err: errors.New("boom")}
		fallback := &stubProvider{name: "b", enabled: true, content: "B"}
		chain := WithFallback(primary, fallback)
		content, err := chain.Generate(context.Background(), testPrompt)
		require.NoError(t, err)
		assert.Equal(t, "B", content)
		assert.Equal(t, "a>b", chain.Name())
	})

	t.Run("primary disabled", func(t *testing.T) {
		primary := &stubProvider{name: "a"}
		fallback := &stubProvider{name: "b", enabled: true, content: "B"}
		content, err := WithFallback(primary, fallback).Generate(context.Background(), testPrompt)
		require.NoError(t, err)
		assert.Equal(t, "B", content)
		assert.Zero(t, primary.calls)
	})

	t.Run("cancelled context skips fallback", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		primary := &stubProvider{name: "a", enabled: true, err: context.Canceled}
		fallback := &stubProvider{name: "b", enabled: true, content: "B"}
		_, err := WithFallback(primary, fallback).Generate(ctx, testPrompt)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, fallback.calls)
	})

	t.Run("nil sides", func(t *testing.T) {
		only := &stubProvider{name: "a", enabled: true}
		assert.Same(t, Provider(only), WithFallback(nil, only))
		assert.Same(t, Provider(only), WithFallback(only, nil))
	})
}
