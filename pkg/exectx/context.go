package exectx

import (
	"sync"
	"sync/atomic"

	"github.com/relaygo/exectx/pkg/uid"
)

// Relation describes how a context relates to its parent. It is the only
// distinction this substrate draws between parent/child links.
type Relation int

const (
	// ChildOf marks a context as a strict sub-operation of its parent: the
	// parent is logically waiting on the child.
	ChildOf Relation = iota
	// FollowsFrom marks a context as causally related to its parent without
	// the parent waiting on it (e.g. a fire-and-forget side effect).
	FollowsFrom
)

func (r Relation) String() string {
	switch r {
	case ChildOf:
		return "CHILD_OF"
	case FollowsFrom:
		return "FOLLOWS_FROM"
	default:
		return "UNKNOWN"
	}
}

var idGen = uid.New("X")

// GenID returns a freshly minted context id from the same generator ID
// draws from when a context was constructed with an empty id. It exists so a caller that wants
// an id up front, before a context exists, does not have to build a
// throwaway context just to read its ID().
func GenID() string {
	return idGen.Next()
}

// ExecutionContext is a per-operation record carrying a name, an id, a
// start time, a deadline, an optional parent, and a set of diagnostic
// attachments. It does not itself know whether it is attached to any
// goroutine's ambient stack; see Attach and Current for that.
type ExecutionContext struct {
	name   string
	idOnce sync.Once
	id     string

	parent   *ExecutionContext
	relation Relation

	startNanos    int64
	deadlineNanos int64

	closed atomic.Bool

	attMu       sync.RWMutex
	attachments map[any]struct{}

	childMu  sync.Mutex
	children map[*ExecutionContext]struct{}
}

// New constructs an ExecutionContext. If id is empty, the id is generated
// lazily on first call to ID. If parent is non-nil, deadlineNanos is
// clamped to at most parent's deadline (invariant 1 of the context model:
// a child's deadline never exceeds its parent's, at construction time and
// forever after; the substrate never relaxes a deadline once set).
func New(name, id string, parent *ExecutionContext, relation Relation, startNanos, deadlineNanos int64) *ExecutionContext {
	if parent != nil && deadlineNanos > parent.deadlineNanos {
		deadlineNanos = parent.deadlineNanos
	}
	ctx := &ExecutionContext{
		name:          name,
		id:            id,
		parent:        parent,
		relation:      relation,
		startNanos:    startNanos,
		deadlineNanos: deadlineNanos,
		attachments:   make(map[any]struct{}),
	}
	if parent != nil {
		parent.addChild(ctx)
	}
	return ctx
}

// Name returns the context's human label.
func (c *ExecutionContext) Name() string { return c.name }

// ID returns the context's identifier, generating one from the
// process-wide uid.Generator on first access if none was supplied at
// construction.
func (c *ExecutionContext) ID() string {
	c.idOnce.Do(func() {
		if c.id == "" {
			c.id = idGen.Next()
		}
	})
	return c.id
}

// Parent returns the context's parent, or nil for a root context.
func (c *ExecutionContext) Parent() *ExecutionContext { return c.parent }

// Relation returns how this context relates to its parent. Meaningless on
// a root context.
func (c *ExecutionContext) Relation() Relation { return c.relation }

// StartNanos returns the monotonic creation timestamp.
func (c *ExecutionContext) StartNanos() int64 { return c.startNanos }

// DeadlineNanos returns the absolute monotonic deadline.
func (c *ExecutionContext) DeadlineNanos() int64 { return c.deadlineNanos }

// Closed reports whether Close has been called.
func (c *ExecutionContext) Closed() bool { return c.closed.Load() }

// Attach records tag as present in this context's attachment set. Safe for
// concurrent use; writes are expected to be rare relative to reads.
func (c *ExecutionContext) Attach(tag any) {
	c.attMu.Lock()
	c.attachments[tag] = struct{}{}
	c.attMu.Unlock()
}

// Has reports whether tag is present in this context's attachment set.
func (c *ExecutionContext) Has(tag any) bool {
	c.attMu.RLock()
	_, ok := c.attachments[tag]
	c.attMu.RUnlock()
	return ok
}

func (c *ExecutionContext) addChild(child *ExecutionContext) {
	c.childMu.Lock()
	if c.children == nil {
		c.children = make(map[*ExecutionContext]struct{})
	}
	c.children[child] = struct{}{}
	c.childMu.Unlock()
}

func (c *ExecutionContext) removeChild(child *ExecutionContext) {
	c.childMu.Lock()
	delete(c.children, child)
	c.childMu.Unlock()
}

// Close marks the context closed. A second call is a no-op, per invariant
// 4. Closing cascades: every still-open child is closed first, depth
// first, before this context marks itself closed, so a parent never
// outlives its children's open state.
func (c *ExecutionContext) Close() error {
	if c.closed.Load() {
		return nil
	}
	c.childMu.Lock()
	kids := make([]*ExecutionContext, 0, len(c.children))
	for k := range c.children {
		kids = append(kids, k)
	}
	c.childMu.Unlock()
	for _, k := range kids {
		_ = k.Close()
	}
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	if c.parent != nil {
		c.parent.removeChild(c)
	}
	return nil
}
