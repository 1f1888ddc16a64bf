package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-chat-backend/internal/session"
	"pdf-chat-backend/internal/vectorstore"
	"pdf-chat-backend/models"
)

type chatFixture struct {
	index     *Index
	embedder  *wordEmbedder
	sessions  *session.MemoryStore
	generator *scriptedGenerator
	chat      *ChatService
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	f := &chatFixture{
		embedder:  &wordEmbedder{},
		sessions:  session.NewMemoryStore(session.MemoryOptions{}),
		generator: &scriptedGenerator{},
	}
	f.index = NewIndex(vectorstore.NewMemoryStore(), f.embedder, nil)
	f.chat = NewChatService(f.index, f.sessions, f.generator, ChatOptions{})
	return f
}

func (f *chatFixture) turns(t *testing.T, doc string) []models.Turn {
	t.Helper()
	turns, err := f.chat.History(context.Background(), doc)
	require.NoError(t, err)
	return turns
}

func TestRespond_TwoPageScenario(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	chunks := NewChunker(DefaultChunkSize, DefaultChunkOverlap).Chunk([]models.Page{
		{Number: 1, Text: "Alpha Beta Gamma."},
		{Number: 2, Text: "Delta Epsilon."},
	})
	require.NoError(t, f.index.Add(ctx, "doc", chunks))

	result, err := f.chat.Respond(ctx, "What is on page 2?", "doc")
	require.NoError(t, err)

	pages := []int{}
	for _, s := range result.Sources {
		pages = append(pages, s.Page)
	}
	assert.Contains(t, pages, 2)
	assert.Equal(t, "answer to What is on page 2?", result.Message)

	prompt := f.generator.lastPrompt()
	assert.Contains(t, prompt, "Content from page 2:\nDelta Epsilon.")
	assert.Contains(t, prompt, "Content from page 1:\nAlpha Beta Gamma.")
	assert.True(t, strings.HasPrefix(prompt, "You are a helpful AI assistant that answers questions about PDF documents."))
	assert.True(t, strings.HasSuffix(prompt, "Question: What is on page 2?\n\nAnswer:"))

	turns := f.turns(t, "doc")
	require.Len(t, turns, 2)
	assert.Equal(t, models.RoleUser, turns[0].Role)
	assert.Equal(t, "What is on page 2?", turns[0].Content)
	assert.Equal(t, models.RoleAssistant, turns[1].Role)
	assert.Equal(t, result.Message, turns[1].Content)
}

func TestRespond_SourcesAreTruncated(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	long := strings.Repeat("é", 250)
	require.NoError(t, f.index.Add(ctx, "doc", []models.TextChunk{
		{Text: long, Page: 3},
		{Text: "short", Page: 4},
	}))

	result, err := f.chat.Respond(ctx, "question", "doc")
	require.NoError(t, err)
	require.Len(t, result.Sources, 2)

	bySrcPage := map[int]string{}
	for _, s := range result.Sources {
		bySrcPage[s.Page] = s.Text
	}
	assert.Equal(t, strings.Repeat("é", 200)+"...", bySrcPage[3])
	assert.Equal(t, 203, utf8.RuneCountInString(bySrcPage[3]))
	assert.Equal(t, "short...", bySrcPage[4])
}

func TestRespond_EmptyContextStillAnswers(t *testing.T) {
	f := newChatFixture(t)
	f.generator.reply = "I don't know."

	result, err := f.chat.Respond(context.Background(), "anything?", "never-indexed")
	require.NoError(t, err)
	assert.Equal(t, "I don't know.", result.Message)
	assert.NotNil(t, result.Sources)
	assert.Empty(t, result.Sources)
	assert.Contains(t, f.generator.lastPrompt(), "Context:\n\n\n")
	assert.Len(t, f.turns(t, "never-indexed"), 2)
}

func TestRespond_InvalidInput(t *testing.T) {
	f := newChatFixture(t)

	_, err := f.chat.Respond(context.Background(), "   ", "doc")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.chat.Respond(context.Background(), "hi", "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	assert.Empty(t, f.generator.prompts)
}

func TestRespond_GenerationFailureRecordsNothing(t *testing.T) {
	f := newChatFixture(t)
	f.generator.err = errUpstream

	_, err := f.chat.Respond(context.Background(), "hello", "doc")
	assert.ErrorIs(t, err, ErrGenerationUnavailable)
	assert.ErrorIs(t, err, errUpstream)
	assert.Empty(t, f.turns(t, "doc"))
}

func TestRespond_RetrievalFailureRecordsNothing(t *testing.T) {
	f := newChatFixture(t)
	f.embedder.err = errUpstream

	_, err := f.chat.Respond(context.Background(), "hello", "doc")
	assert.ErrorIs(t, err, ErrRetrievalUnavailable)
	assert.ErrorIs(t, err, ErrEmbeddingUnavailable)
	assert.Empty(t, f.generator.prompts)
	assert.Empty(t, f.turns(t, "doc"))
}

func TestRespond_CancelledTurnRecordsNothing(t *testing.T) {
	f := newChatFixture(t)
	f.generator.gate = make(chan struct{})
	f.generator.started = make(chan struct{}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := f.chat.Respond(ctx, "hello", "doc")
		errCh <- err
	}()

	<-f.generator.started
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Respond did not return after cancellation")
	}
	assert.Empty(t, f.turns(t, "doc"))
	assert.Equal(t, 0, f.chat.locks.size())
}

func TestRespond_HistoryIsInPrompt(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	_, err := f.chat.Respond(ctx, "first question", "doc")
	require.NoError(t, err)
	_, err = f.chat.Respond(ctx, "second question", "doc")
	require.NoError(t, err)

	prompt := f.generator.lastPrompt()
	assert.Contains(t, prompt, "Conversation so far:\nUser: first question\nAssistant: answer to first question\n")
	assert.Len(t, f.turns(t, "doc"), 4)
}

func TestRespond_HistoryWindow(t *testing.T) {
	f := newChatFixture(t)
	f.chat = NewChatService(f.index, f.sessions, f.generator, ChatOptions{HistoryTurns: 2})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.chat.Respond(ctx, fmt.Sprintf("q%d", i), "doc")
		require.NoError(t, err)
	}
	prompt := f.generator.lastPrompt()
	assert.NotContains(t, prompt, "User: q0")
	assert.Contains(t, prompt, "User: q1")

	f.chat = NewChatService(f.index, f.sessions, f.generator, ChatOptions{HistoryTurns: -1})
	_, err := f.chat.Respond(ctx, "q3", "doc")
	require.NoError(t, err)
	assert.NotContains(t, f.generator.lastPrompt(), "Conversation so far:")
}

func TestRespond_ConcurrentTurnsStayPaired(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	require.NoError(t, f.index.Add(ctx, "doc", chunksFor("doc", "some content")))

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.chat.Respond(ctx, fmt.Sprintf("question %d", i), "doc")
			assert.NoError(t, err)
		}(i)
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.chat.Respond(ctx, fmt.Sprintf("other %d", i), "other-doc")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	for _, doc := range []string{"doc", "other-doc"} {
		turns := f.turns(t, doc)
		require.Len(t, turns, 2*n)
		for i := 0; i < len(turns); i += 2 {
			assert.Equal(t, models.RoleUser, turns[i].Role)
			assert.Equal(t, models.RoleAssistant, turns[i+1].Role)
			assert.Equal(t, "answer to "+turns[i].Content, turns[i+1].Content)
		}
	}
	assert.Equal(t, 0, f.chat.locks.size())
}

func TestReset(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	_, err := f.chat.Respond(ctx, "hello", "doc")
	require.NoError(t, err)
	require.NoError(t, f.chat.Reset(ctx, "doc"))
	assert.Empty(t, f.turns(t, "doc"))

	require.NoError(t, f.chat.Reset(ctx, "unknown"))
	assert.ErrorIs(t, f.chat.Reset(ctx, ""), ErrInvalidInput)
}

func TestBuildContext(t *testing.T) {
	ctx := BuildContext([]models.IndexedEntry{
		{Chunk: models.TextChunk{Text: "first", Page: 2}},
		{Chunk: models.TextChunk{Text: "second", Page: 5}},
	})
	assert.Equal(t, "Content from page 2:\nfirst\n\nContent from page 5:\nsecond", ctx)
	assert.Equal(t, "", BuildContext(nil))
}

func TestKeyedMutex_RespectsContext(t *testing.T) {
	k := newKeyedMutex()
	unlock, err := k.Lock(context.Background(), "a")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = k.Lock(ctx, "a")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	other, err := k.Lock(context.Background(), "b")
	require.NoError(t, err)
	other()

	unlock()
	assert.Equal(t, 0, k.size())
}
