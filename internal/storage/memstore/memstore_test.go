package memstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"minichat/internal/storage"
	mytesting "minichat/internal/testing"
)

func TestStore(t *testing.T) {
	mytesting.RunStoreSuite(t, New())
}

func TestConcurrentCreateMessage(t *testing.T) {
	s := New()
	ctx := context.Background()

	u, err := s.CreateUser(ctx, mytesting.RandEmail(), "Alice", "hash")
	require.NoError(t, err)

	const n = 50
	var wg sync.WaitGroup
	ids := make(chan int64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, err := s.CreateMessage(ctx, storage.Message{SenderID: u.ID, ReceiverID: u.ID, Content: "x", Timestamp: time.Now()})
			require.NoError(t, err)
			ids <- m.ID
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool, n)
	for id := range ids {
		require.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	require.Len(t, seen, n)
}
