package dataset

import (
	"context"
	"iter"
	"sync"

	"github.com/samber/lo"
	"github.com/sourcegraph/conc/stream"

	"github.com/djeday123/goml-sentiment/core"
	"github.com/djeday123/goml-sentiment/tokenizer"
)

// Batch is one encoded mini-batch. IDs is row-major with Shape
// [rows, sequenceLength]; Labels has one 0/1 value per row.
// Batches may be shared through the cache, so treat them as read-only.
type Batch struct {
	IDs    []int64
	Labels []float64
	Shape  core.Shape
}

func (b *Batch) Rows() int { return b.Shape[0] }

// Option configures a Dataset.
type Option func(*Dataset)

// WithBatchSize sets the number of examples per batch. Default 32.
func WithBatchSize(n int) Option {
	return func(d *Dataset) { d.batchSize = n }
}

// WithShuffle permutes the examples once, deterministically for a seed.
func WithShuffle(seed int64) Option {
	return func(d *Dataset) {
		d.shuffle = true
		d.seed = seed
	}
}

// WithCache keeps the encoded batches after the first complete pass.
func WithCache() Option {
	return func(d *Dataset) { d.cache = true }
}

// WithPrefetch encodes up to n batches ahead of the consumer on worker
// goroutines. 0 disables prefetching.
func WithPrefetch(n int) Option {
	return func(d *Dataset) { d.prefetch = n }
}

// Dataset turns labeled raw text into batches through a frozen vectorizer.
// Caching and prefetching only change throughput: every configuration yields
// the same batches in the same order.
type Dataset struct {
	examples  []Example
	vec       *tokenizer.Vectorizer
	batchSize int
	shuffle   bool
	seed      int64
	cache     bool
	prefetch  int

	chunks [][]Example

	mu     sync.Mutex
	cached []*Batch
}

// New validates the examples and options. Label and config errors surface
// here, before any batch is encoded.
func New(examples []Example, vec *tokenizer.Vectorizer, opts ...Option) (*Dataset, error) {
	d := &Dataset{vec: vec, batchSize: 32}
	for _, opt := range opts {
		opt(d)
	}
	if vec == nil {
		return nil, core.NewConfigError("vectorizer", "is nil")
	}
	if d.batchSize <= 0 {
		return nil, core.NewConfigError("batch_size", "must be > 0, got %d", d.batchSize)
	}
	if d.prefetch < 0 {
		return nil, core.NewConfigError("prefetch", "must be >= 0, got %d", d.prefetch)
	}
	if err := ValidateExamples(examples); err != nil {
		return nil, err
	}

	d.examples = make([]Example, len(examples))
	if d.shuffle {
		for i, src := range Permutation(len(examples), d.seed) {
			d.examples[i] = examples[src]
		}
	} else {
		copy(d.examples, examples)
	}
	d.chunks = lo.Chunk(d.examples, d.batchSize)
	return d, nil
}

func (d *Dataset) Len() int        { return len(d.examples) }
func (d *Dataset) NumBatches() int { return len(d.chunks) }
func (d *Dataset) BatchSize() int  { return d.batchSize }

// Examples returns the examples in batch order.
func (d *Dataset) Examples() []Example {
	out := make([]Example, len(d.examples))
	copy(out, d.examples)
	return out
}

// Batches yields every batch once per iteration. It can be ranged over
// repeatedly; with caching enabled later passes reuse the first pass.
func (d *Dataset) Batches(ctx context.Context) iter.Seq2[*Batch, error] {
	return func(yield func(*Batch, error) bool) {
		if cached := d.cachedBatches(); cached != nil {
			for _, b := range cached {
				if err := ctx.Err(); err != nil {
					yield(nil, err)
					return
				}
				if !yield(b, nil) {
					return
				}
			}
			return
		}

		source := d.sequential(ctx)
		if d.prefetch > 0 {
			source = d.prefetched(ctx)
		}

		var collected []*Batch
		for b, err := range source {
			if err != nil {
				yield(nil, err)
				return
			}
			if d.cache {
				collected = append(collected, b)
			}
			if !yield(b, nil) {
				return
			}
		}
		if d.cache {
			d.storeCache(collected)
		}
	}
}

func (d *Dataset) sequential(ctx context.Context) iter.Seq2[*Batch, error] {
	return func(yield func(*Batch, error) bool) {
		for _, chunk := range d.chunks {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if !yield(d.encode(chunk), nil) {
				return
			}
		}
	}
}

// prefetched encodes batches on a bounded stream. Callbacks run in submission
// order, so batches come out in the same order as sequential.
func (d *Dataset) prefetched(parent context.Context) iter.Seq2[*Batch, error] {
	return func(yield func(*Batch, error) bool) {
		ctx, cancel := context.WithCancel(parent)
		defer cancel()

		out := make(chan *Batch, d.prefetch)
		go func() {
			defer close(out)
			s := stream.New().WithMaxGoroutines(d.prefetch)
			for _, chunk := range d.chunks {
				if ctx.Err() != nil {
					break
				}
				s.Go(func() stream.Callback {
					b := d.encode(chunk)
					return func() {
						select {
						case out <- b:
						case <-ctx.Done():
						}
					}
				})
			}
			s.Wait()
		}()

		delivered := 0
		for b := range out {
			if !yield(b, nil) {
				cancel()
				for range out {
				}
				return
			}
			delivered++
		}
		if delivered < len(d.chunks) {
			err := parent.Err()
			if err == nil {
				err = context.Canceled
			}
			yield(nil, err)
		}
	}
}

func (d *Dataset) encode(chunk []Example) *Batch {
	seqLen := d.vec.SequenceLength()
	b := &Batch{
		IDs:    make([]int64, len(chunk)*seqLen),
		Labels: make([]float64, len(chunk)),
		Shape:  core.Shape{len(chunk), seqLen},
	}
	for i, ex := range chunk {
		d.vec.EncodeInto(b.IDs[i*seqLen:(i+1)*seqLen], ex.Text)
		b.Labels[i] = float64(ex.Label)
	}
	return b
}

func (d *Dataset) cachedBatches() []*Batch {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cached
}

func (d *Dataset) storeCache(batches []*Batch) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cached == nil {
		d.cached = batches
	}
}
