package tokenizer

// Tokenizer is the common interface for text encoders in this module.
// Vectorizer implements it.
type Tokenizer interface {
	Encode(text string) []int64
	Decode(tokens []int64) string
	VocabSize() int
}

var _ Tokenizer = (*Vectorizer)(nil)
