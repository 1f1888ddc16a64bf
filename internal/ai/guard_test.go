package ai

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGenerator struct {
	mu    sync.Mutex
	calls int
	err   error
	reply string
}

func (s *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func TestGuardOpensAfterFailures(t *testing.T) {
	var transitions []string
	guard := NewGuard(GuardSettings{
		Name:    "test",
		Timeout: time.Hour,
		OnStateChange: func(name, from, to string) {
			transitions = append(transitions, from+"->"+to)
		},
	})
	stub := &stubGenerator{err: errors.New("upstream 500")}
	g := NewGuardedGenerator(stub, guard)

	for i := 0; i < 3; i++ {
		_, err := g.Generate(context.Background(), "p")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrCircuitOpen)
	}

	_, err := g.Generate(context.Background(), "p")
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 3, stub.calls, "open breaker must not reach the provider")
	assert.Equal(t, "open", guard.State())
	assert.Equal(t, []string{"closed->open"}, transitions)
}

func TestGuardIgnoresCancellation(t *testing.T) {
	guard := NewGuard(GuardSettings{Name: "cancel", Timeout: time.Hour})
	stub := &stubGenerator{err: context.Canceled}
	g := NewGuardedGenerator(stub, guard)

	for i := 0; i < 5; i++ {
		_, err := g.Generate(context.Background(), "p")
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, "closed", guard.State())
}

func TestGuardRateLimiterRespectsContext(t *testing.T) {
	guard := NewGuard(GuardSettings{Name: "limited", RequestsPerMinute: 1})
	g := NewGuardedGenerator(&stubGenerator{reply: "ok"}, guard)

	out, err := g.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = g.Generate(ctx, "p")
	assert.Error(t, err, "second call within the same minute must wait past the deadline")
}

type stubEmbedder struct{ dim int }

func (s stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return make([]float32, s.dim), nil
}

func (s stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, s.dim)
	}
	return out, nil
}

func TestGuardedEmbedder(t *testing.T) {
	e := NewGuardedEmbedder(stubEmbedder{dim: 4}, NewGuard(GuardSettings{Name: "emb"}))

	vec, err := e.Embed(context.Background(), "x")
	require.NoError(t, err)
	assert.Len(t, vec, 4)

	batch, err := e.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, batch, 2)

	assert.Equal(t, stubEmbedder{dim: 4}, e.Unwrap())
	assert.NoError(t, Close(e))
}
