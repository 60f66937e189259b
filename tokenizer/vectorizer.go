package tokenizer

import (
	"iter"
	"runtime"
	"strings"

	"github.com/sourcegraph/conc/pool"

	"github.com/djeday123/goml-sentiment/core"
)

// VectorizerConfig holds the two knobs that define the text-to-ids contract.
type VectorizerConfig struct {
	MaxTokens      int
	SequenceLength int
}

func DefaultVectorizerConfig() VectorizerConfig {
	return VectorizerConfig{MaxTokens: 10000, SequenceLength: 250}
}

func (c VectorizerConfig) validate() error {
	if c.MaxTokens < reserved {
		return core.NewConfigError("max_tokens", "must be >= %d, got %d", reserved, c.MaxTokens)
	}
	if c.SequenceLength <= 0 {
		return core.NewConfigError("sequence_length", "must be > 0, got %d", c.SequenceLength)
	}
	return nil
}

// Option customizes a Vectorizer.
type Option func(*Vectorizer)

// WithStandardize replaces Standardize.
func WithStandardize(fn StandardizeFunc) Option {
	return func(v *Vectorizer) {
		if fn != nil {
			v.standardize = fn
		}
	}
}

// WithSplit replaces SplitWhitespace.
func WithSplit(fn SplitFunc) Option {
	return func(v *Vectorizer) {
		if fn != nil {
			v.split = fn
		}
	}
}

// WithWorkers bounds the goroutines used by EncodeBatch.
func WithWorkers(n int) Option {
	return func(v *Vectorizer) {
		if n > 0 {
			v.workers = n
		}
	}
}

// Vectorizer maps raw text to fixed-length id sequences using a frozen
// vocabulary. It holds no mutable state and is safe for concurrent use.
type Vectorizer struct {
	vocab       *Vocabulary
	seqLen      int
	standardize StandardizeFunc
	split       SplitFunc
	workers     int
}

// Adapt learns a vocabulary from raw training text and returns the frozen
// vectorizer. The corpus is standardized lazily and read in a single pass.
// Adaptation happens exactly once per Vectorizer: there is no way to re-adapt.
func Adapt(corpus iter.Seq[string], cfg VectorizerConfig, opts ...Option) (*Vectorizer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	v := newVectorizer(cfg.SequenceLength, opts)
	if corpus == nil {
		return nil, core.NewDataError("corpus is nil")
	}

	standardized := func(yield func(string) bool) {
		for text := range corpus {
			if !yield(v.standardize(text)) {
				return
			}
		}
	}
	vocab, err := BuildVocabulary(standardized, cfg.MaxTokens, v.split)
	if err != nil {
		return nil, err
	}
	v.vocab = vocab
	return v, nil
}

// FromVocabulary wraps an existing vocabulary, e.g. one restored from disk.
func FromVocabulary(vocab *Vocabulary, seqLen int, opts ...Option) (*Vectorizer, error) {
	if vocab == nil {
		return nil, core.NewDataError("vocabulary is nil")
	}
	if seqLen <= 0 {
		return nil, core.NewConfigError("sequence_length", "must be > 0, got %d", seqLen)
	}
	v := newVectorizer(seqLen, opts)
	v.vocab = vocab
	return v, nil
}

func newVectorizer(seqLen int, opts []Option) *Vectorizer {
	v := &Vectorizer{
		seqLen:      seqLen,
		standardize: Standardize,
		split:       SplitWhitespace,
		workers:     runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Encode standardizes, splits and maps text to exactly SequenceLength ids:
// unknown tokens become OOVID, long inputs are truncated, short ones are
// right-padded with PadID.
func (v *Vectorizer) Encode(text string) []int64 {
	out := make([]int64, v.seqLen)
	v.EncodeInto(out, text)
	return out
}

// EncodeInto writes the encoding of text into dst[:SequenceLength].
func (v *Vectorizer) EncodeInto(dst []int64, text string) {
	v.encodeStandardized(dst, v.standardize(text))
}

func (v *Vectorizer) encodeStandardized(dst []int64, text string) {
	dst = dst[:v.seqLen]
	n := 0
	for _, tok := range v.split(text) {
		if n == v.seqLen {
			break
		}
		dst[n] = v.vocab.Lookup(tok)
		n++
	}
	clear(dst[n:])
}

// EncodeBatch encodes texts in parallel, preserving order.
func (v *Vectorizer) EncodeBatch(texts []string) [][]int64 {
	out := make([][]int64, len(texts))
	p := pool.New().WithMaxGoroutines(v.workers)
	for i, text := range texts {
		p.Go(func() {
			out[i] = v.Encode(text)
		})
	}
	p.Wait()
	return out
}

// Decode renders ids back to space-separated tokens. Padding is dropped.
func (v *Vectorizer) Decode(ids []int64) string {
	toks := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == PadID {
			continue
		}
		toks = append(toks, v.vocab.Token(id))
	}
	return strings.Join(toks, " ")
}

// Standardize applies the configured standardization.
func (v *Vectorizer) Standardize(text string) string { return v.standardize(text) }

func (v *Vectorizer) Vocabulary() *Vocabulary { return v.vocab }
func (v *Vectorizer) VocabSize() int          { return v.vocab.Size() }
func (v *Vectorizer) SequenceLength() int     { return v.seqLen }
