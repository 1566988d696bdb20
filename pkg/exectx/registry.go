package exectx

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
)

// goroutineID extracts the calling goroutine's id from its stack trace
// header ("goroutine 123 [running]: ..."). Go deliberately does not expose
// a goroutine id API; this is the standard workaround used by every
// goroutine-local-storage package in the ecosystem. It is only called from
// Attach, Current and Handle.Detach, not per-line of application code, so
// the small allocation is acceptable.
func goroutineID() int64 {
	buf := make([]byte, 64)
	n := runtime.Stack(buf, false)
	buf = buf[:n]
	const prefix = "goroutine "
	if !bytes.HasPrefix(buf, []byte(prefix)) {
		return 0
	}
	buf = buf[len(prefix):]
	end := bytes.IndexByte(buf, ' ')
	if end < 0 {
		return 0
	}
	id, err := strconv.ParseInt(string(buf[:end]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// Handle is returned by Attach; its sole operation is Detach. A Handle
// records which goroutine and which stack position it was attached at, so
// Detach can catch both cross-goroutine misuse and leaked-sibling misuse.
type Handle struct {
	goroutine int64
	ctx       *ExecutionContext
	depth     int
}

// Detach pops the attached context off the current goroutine's stack. It
// fails loudly, per invariant 2, if called from a different goroutine
// than Attach was, or if the top of the stack is not the context this
// handle attached (meaning some sibling handle leaked without detaching).
func (h *Handle) Detach() error {
	if got := goroutineID(); got != h.goroutine {
		return &MisuseError{Op: "Detach", Msg: "detach called from a different goroutine than attach"}
	}
	stk := registryFor(h.goroutine)
	stk.mu.Lock()
	defer stk.mu.Unlock()
	if len(stk.frames) != h.depth+1 || stk.frames[h.depth] != h.ctx {
		return &MisuseError{Op: "Detach", Msg: "top of stack is not the expected context; a sibling handle leaked"}
	}
	stk.frames = stk.frames[:h.depth]
	if len(stk.frames) == 0 {
		removeRegistry(h.goroutine)
	}
	return nil
}

type goroutineStack struct {
	mu     sync.Mutex
	frames []*ExecutionContext
}

var (
	registriesMu sync.Mutex
	registries   = make(map[int64]*goroutineStack)
)

func registryFor(gid int64) *goroutineStack {
	registriesMu.Lock()
	defer registriesMu.Unlock()
	stk, ok := registries[gid]
	if !ok {
		stk = &goroutineStack{}
		registries[gid] = stk
	}
	return stk
}

func removeRegistry(gid int64) {
	registriesMu.Lock()
	delete(registries, gid)
	registriesMu.Unlock()
}

// Attach pushes ctx onto the current goroutine's ambient context stack,
// via the configured Attacher (EXECCTX_ATTACHER), and returns a Handle used
// to pop it again. Attach/detach must be perfectly nested on a single
// goroutine; there is no cross-goroutine happens-before implied by
// attaching.
func Attach(ctx *ExecutionContext) *Handle {
	return currentAttacher().Attach(ctx)
}

// Current returns the context at the top of the calling goroutine's
// ambient stack, via the configured Attacher, or nil if the stack is
// empty. An empty stack is not an error; per invariant 3, it means "no
// current context".
func Current() *ExecutionContext {
	return currentAttacher().Current()
}

// attachDefault is the per-goroutine-stack scheme defaultAttacher uses.
func attachDefault(ctx *ExecutionContext) *Handle {
	gid := goroutineID()
	stk := registryFor(gid)
	stk.mu.Lock()
	depth := len(stk.frames)
	stk.frames = append(stk.frames, ctx)
	stk.mu.Unlock()
	return &Handle{goroutine: gid, ctx: ctx, depth: depth}
}

// currentDefault is the per-goroutine-stack scheme defaultAttacher uses.
func currentDefault() *ExecutionContext {
	gid := goroutineID()
	registriesMu.Lock()
	stk, ok := registries[gid]
	registriesMu.Unlock()
	if !ok {
		return nil
	}
	stk.mu.Lock()
	defer stk.mu.Unlock()
	if len(stk.frames) == 0 {
		return nil
	}
	return stk.frames[len(stk.frames)-1]
}

// Attacher abstracts the attach/current/detach scheme used by the package
// level Attach/Current functions, so an alternate scheme (for example one
// that also writes the context id into a diagnostic slot consumed by a
// logging collaborator) can be swapped in via configuration.
type Attacher interface {
	Attach(ctx *ExecutionContext) *Handle
	Current() *ExecutionContext
}

// defaultAttacher is the per-goroutine-stack scheme implemented above.
type defaultAttacher struct{}

func (defaultAttacher) Attach(ctx *ExecutionContext) *Handle { return attachDefault(ctx) }
func (defaultAttacher) Current() *ExecutionContext           { return currentDefault() }

var attacherRegistry = map[string]func() Attacher{
	"default": func() Attacher { return defaultAttacher{} },
}

// RegisterAttacher adds name to the set of Attacher constructors resolvable
// from the EXECCTX_ATTACHER configuration key.
func RegisterAttacher(name string, ctor func() Attacher) {
	attacherRegistry[name] = ctor
}

func resolveAttacher(name string) (Attacher, error) {
	ctor, ok := attacherRegistry[name]
	if !ok {
		return nil, &ConfigError{Key: "EXECCTX_ATTACHER", Msg: "unknown attacher " + strconv.Quote(name)}
	}
	return ctor(), nil
}
