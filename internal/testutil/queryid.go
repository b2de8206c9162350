package testutil

import (
	"fmt"
	"sync"
)

// FixedQueryIDGenerator returns the same query ID every time.
//
// Golden snapshots that include query IDs in logs stay byte-identical
// across runs.
//
// Thread-safety: FixedQueryIDGenerator is stateless and safe for concurrent use.
type FixedQueryIDGenerator struct {
	id string
}

// NewFixedQueryIDGenerator creates a fixed generator. An empty id falls
// back to "test-query-default".
func NewFixedQueryIDGenerator(id string) *FixedQueryIDGenerator {
	if id == "" {
		id = "test-query-default"
	}
	return &FixedQueryIDGenerator{id: id}
}

// Generate returns the fixed ID.
func (g *FixedQueryIDGenerator) Generate() string {
	return g.id
}

// SequenceQueryIDGenerator returns "<prefix>-1", "<prefix>-2", ...
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequenceQueryIDGenerator struct {
	mu     sync.Mutex
	prefix string
	seq    int64
}

// NewSequenceQueryIDGenerator creates a sequence generator starting at 1.
func NewSequenceQueryIDGenerator(prefix string) *SequenceQueryIDGenerator {
	if prefix == "" {
		prefix = "query"
	}
	return &SequenceQueryIDGenerator{prefix: prefix}
}

// Generate returns the next ID in the sequence.
func (g *SequenceQueryIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("%s-%d", g.prefix, g.seq)
}

// Reset restarts the sequence. After Reset, Generate returns "<prefix>-1".
func (g *SequenceQueryIDGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}
