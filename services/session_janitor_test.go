package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-chat-backend/internal/session"
)

func TestSessionJanitor_SweepsIdleSessions(t *testing.T) {
	store := session.NewMemoryStore(session.MemoryOptions{IdleTTL: time.Millisecond})
	require.NoError(t, store.AppendExchange(context.Background(), "doc", "q", "a"))
	time.Sleep(5 * time.Millisecond)

	j := NewSessionJanitor(store, 20*time.Millisecond)
	require.NoError(t, j.Start())
	defer j.Stop()

	assert.Eventually(t, func() bool { return store.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}
