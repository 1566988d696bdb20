// Package uid generates short, sortable, low-contention unique identifiers
// for execution contexts.
//
// An id has the shape PREFIX + base36(millis-since-epoch-delta) + "-" +
// base36(sequence), where the delta is measured from a fixed epoch close to
// when this package was written. Keeping the delta small keeps the encoded
// id short; the sequence disambiguates ids minted within the same
// millisecond.
package uid

import (
	"strconv"
	"sync/atomic"
	"time"
)

// epoch anchors the millisecond delta encoded into every id. It has no
// significance beyond being recent, so the encoded delta stays small.
var epoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

const base = 36

// Generator mints ids of the form prefix+base36(delta)+sep+base36(seq).
// The zero value is not usable; construct with New.
type Generator struct {
	prefix string
	sep    string
	seq    atomic.Uint64
}

// New returns a Generator that prefixes every id with prefix.
func New(prefix string) *Generator {
	return &Generator{prefix: prefix, sep: "-"}
}

// Next returns the next id. It is safe to call concurrently; contention is
// limited to a single atomic increment regardless of how many goroutines
// call it simultaneously, so throughput does not degrade under load the way
// a mutex-guarded counter would.
func (g *Generator) Next() string {
	seq := g.seq.Add(1)
	delta := time.Since(epoch).Milliseconds()
	if delta < 0 {
		delta = 0
	}
	return g.prefix + strconv.FormatInt(delta, base) + g.sep + strconv.FormatUint(seq, base)
}

// BatchGenerator behaves like Generator but reserves a block of sequence
// values per goroutine-local batch, matching the low-contention counter
// pattern used by high-throughput id generators: most calls only touch an
// unshared local counter, and the shared atomic is only hit once per batch.
type BatchGenerator struct {
	gen       *Generator
	batchSize uint64
}

// NewBatch returns a BatchGenerator backed by a fresh Generator with the
// given prefix, reserving batchSize sequence values per Batch.
func NewBatch(prefix string, batchSize uint64) *BatchGenerator {
	if batchSize == 0 {
		batchSize = 1
	}
	return &BatchGenerator{gen: New(prefix), batchSize: batchSize}
}

// Batch is a goroutine-local reservation of sequence values. Callers that
// mint many ids from a single goroutine should keep a Batch around instead
// of calling BatchGenerator.Next repeatedly, to avoid cross-goroutine
// contention on the shared counter.
type Batch struct {
	g      *BatchGenerator
	next   uint64
	remain uint64
}

// NewBatch reserves a new block of sequence values for exclusive use by the
// caller's goroutine.
func (bg *BatchGenerator) NewBatch() *Batch {
	start := bg.gen.seq.Add(bg.batchSize) - bg.batchSize + 1
	return &Batch{g: bg, next: start, remain: bg.batchSize}
}

// Next returns the next id from the batch, transparently reserving a new
// block once the current one is exhausted.
func (b *Batch) Next() string {
	if b.remain == 0 {
		*b = *b.g.NewBatch()
	}
	seq := b.next
	b.next++
	b.remain--

	delta := time.Since(epoch).Milliseconds()
	if delta < 0 {
		delta = 0
	}
	return b.g.gen.prefix + strconv.FormatInt(delta, base) + b.g.gen.sep + strconv.FormatUint(seq, base)
}
