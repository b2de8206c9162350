package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedQueryIDGenerator(t *testing.T) {
	gen := NewFixedQueryIDGenerator("q-123")
	assert.Equal(t, "q-123", gen.Generate())
	assert.Equal(t, "q-123", gen.Generate())

	assert.Equal(t, "test-query-default", NewFixedQueryIDGenerator("").Generate())
}

func TestSequenceQueryIDGenerator(t *testing.T) {
	gen := NewSequenceQueryIDGenerator("q")
	assert.Equal(t, "q-1", gen.Generate())
	assert.Equal(t, "q-2", gen.Generate())

	gen.Reset()
	assert.Equal(t, "q-1", gen.Generate())
}

func TestSequenceQueryIDGenerator_ThreadSafe(t *testing.T) {
	gen := NewSequenceQueryIDGenerator("")
	const numGoroutines = 50
	const callsPerGoroutine = 20

	var mu sync.Mutex
	seen := make(map[string]bool)

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				id := gen.Generate()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, numGoroutines*callsPerGoroutine)
	assert.True(t, seen["query-1"])
	assert.True(t, seen["query-1000"])
}
