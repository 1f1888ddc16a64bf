package ai

import (
	"context"
	"os"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []genai.Part{genai.Text("Delta "), genai.Text("Epsilon.")}}},
		},
	}
	assert.Equal(t, "Delta Epsilon.", extractResponseText(resp))
	assert.Equal(t, 3, extractTokenUsage(resp))

	resp.UsageMetadata = &genai.UsageMetadata{TotalTokenCount: 17}
	assert.Equal(t, 17, extractTokenUsage(resp))

	assert.Empty(t, extractResponseText(&genai.GenerateContentResponse{}))
	assert.Empty(t, extractResponseText(nil))
}

func TestGeminiEmbedderLive(t *testing.T) {
	if os.Getenv("GEMINI_API_KEY") == "" {
		t.Skip("GEMINI_API_KEY not set")
	}
	e, err := NewGeminiEmbedder(context.Background(), os.Getenv("GEMINI_API_KEY"), "")
	require.NoError(t, err)
	defer e.Close()

	vecs, err := e.EmbedBatch(context.Background(), []string{"hello world", "page two"})
	if err != nil {
		t.Fatalf("embedding error: %v", err)
	}
	require.Len(t, vecs, 2)
	assert.NotEmpty(t, vecs[0])
}
