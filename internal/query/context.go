package query

import (
	"maps"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// StateManager is the entity-tracking collaborator. The pipeline
// initializes it after the driver accepts the query and before the first
// document is shaped.
type StateManager interface {
	Initialize(standalone bool)
}

// QueryIDGenerator produces the per-enumeration query ID used in logs and
// spans.
type QueryIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 query IDs.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Context carries the runtime state shared by the enumerations of one
// logical session: the parameter table, the state manager and the
// reentrancy detector.
type Context struct {
	mu           sync.RWMutex
	params       map[string]any
	stateManager StateManager
	detector     ConcurrencyDetector
}

// NewContext creates an empty query context.
func NewContext() *Context {
	return &Context{params: make(map[string]any)}
}

// SetParameter binds a runtime parameter value. Enumerations already past
// generation keep the snapshot they generated with.
func (c *Context) SetParameter(name string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.params[name] = value
}

// Parameters returns a snapshot of the parameter table.
func (c *Context) Parameters() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.params)
}

// SetStateManager installs the entity-tracking collaborator.
func (c *Context) SetStateManager(sm StateManager) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stateManager = sm
}

// InitializeStateManager initializes the state manager, if any.
func (c *Context) InitializeStateManager(standalone bool) {
	c.mu.RLock()
	sm := c.stateManager
	c.mu.RUnlock()
	if sm != nil {
		sm.Initialize(standalone)
	}
}

// ConcurrencyDetector returns the context's reentrancy guard.
func (c *Context) ConcurrencyDetector() *ConcurrencyDetector {
	return &c.detector
}

// ConcurrencyDetector rejects overlapping critical sections. It detects
// misuse; it does not serialize callers.
type ConcurrencyDetector struct {
	inUse atomic.Bool
}

// Enter claims the critical section or fails with *ReentrancyError.
func (d *ConcurrencyDetector) Enter() error {
	if !d.inUse.CompareAndSwap(false, true) {
		return &ReentrancyError{}
	}
	return nil
}

// Exit releases the critical section.
func (d *ConcurrencyDetector) Exit() {
	d.inUse.Store(false)
}
