package services

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"

	"pdf-chat-backend/models"
)

const fakeDims = 16

// wordEmbedder hashes words into a small bag-of-words vector.
type wordEmbedder struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (e *wordEmbedder) vector(text string) []float32 {
	v := make([]float32, fakeDims)
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		h := fnv.New32a()
		h.Write([]byte(w))
		v[h.Sum32()%fakeDims]++
	}
	return v
}

func (e *wordEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return e.vector(text), nil
}

func (e *wordEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

// scriptedGenerator answers with reply, or blocks until released when gate is set.
type scriptedGenerator struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
	gate    chan struct{}
	started chan struct{}
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	gate, started := g.gate, g.started
	reply, err := g.reply, g.err
	g.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", err
	}
	if reply == "" {
		// echo the question so callers can pair turns
		if i := strings.LastIndex(prompt, "Question: "); i >= 0 {
			q := strings.TrimSuffix(prompt[i+len("Question: "):], "\n\nAnswer:")
			return "answer to " + q, nil
		}
	}
	return reply, nil
}

func (g *scriptedGenerator) lastPrompt() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.prompts) == 0 {
		return ""
	}
	return g.prompts[len(g.prompts)-1]
}

// staticExtractor returns fixed pages for any input.
type staticExtractor struct {
	pages []models.Page
	err   error
}

func (e *staticExtractor) ExtractPages(ctx context.Context, content []byte) ([]models.Page, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.pages, nil
}

type stubEnqueuer struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (q *stubEnqueuer) EnqueueIndexDocument(ctx context.Context, documentID string) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return "", q.err
	}
	q.ids = append(q.ids, documentID)
	return "task-" + documentID, nil
}

var errUpstream = errors.New("upstream unavailable")
