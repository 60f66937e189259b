package tokenizer

import (
	"bufio"
	"cmp"
	"fmt"
	"iter"
	"os"
	"slices"
	"strings"

	"github.com/djeday123/goml-sentiment/core"
)

// ============================================================================
// Token ID layout:
//
//   0:   ""       padding
//   1:   [UNK]    out-of-vocabulary
//   2+:  learned tokens, most frequent first
//
// Padding and OOV are always present, so a vocabulary built with maxTokens
// holds at most maxTokens-2 learned tokens.
// ============================================================================

const (
	PadID     = int64(0)
	OOVID     = int64(1)
	FirstID   = int64(2)
	PadToken  = ""
	OOVToken  = "[UNK]"
	reserved  = 2
	fileMagic = "# goml-sentiment vocabulary v1"
)

// Vocabulary is an immutable token <-> id mapping. Build it once with
// BuildVocabulary and share the pointer; nothing mutates it afterwards, so
// concurrent reads are safe.
type Vocabulary struct {
	tokens []string         // id -> token, including the two reserved entries
	ids    map[string]int64 // token -> id, learned tokens only
}

type tokenCount struct {
	token string
	count int
	first int
}

// BuildVocabulary scans the corpus once and keeps the maxTokens-2 most frequent
// tokens by term frequency. Ties keep first-seen order. Corpus items must
// already be standardized; split defaults to SplitWhitespace.
func BuildVocabulary(corpus iter.Seq[string], maxTokens int, split SplitFunc) (*Vocabulary, error) {
	if maxTokens < reserved {
		return nil, core.NewConfigError("max_tokens", "must be >= %d, got %d", reserved, maxTokens)
	}
	if corpus == nil {
		return nil, core.NewDataError("corpus is nil")
	}
	if split == nil {
		split = SplitWhitespace
	}

	counts := make(map[string]*tokenCount)
	docs := 0
	for doc := range corpus {
		docs++
		for _, tok := range split(doc) {
			if tok == PadToken || tok == OOVToken {
				continue
			}
			c, ok := counts[tok]
			if !ok {
				c = &tokenCount{token: tok, first: len(counts)}
				counts[tok] = c
			}
			c.count++
		}
	}
	if docs == 0 {
		return nil, core.NewDataError("corpus is empty")
	}
	if len(counts) == 0 {
		return nil, core.NewDataError("corpus of %d documents yields no tokens", docs)
	}

	ranked := make([]*tokenCount, 0, len(counts))
	for _, c := range counts {
		ranked = append(ranked, c)
	}
	slices.SortFunc(ranked, func(a, b *tokenCount) int {
		if a.count != b.count {
			return cmp.Compare(b.count, a.count)
		}
		return cmp.Compare(a.first, b.first)
	})

	keep := min(len(ranked), maxTokens-reserved)
	learned := make([]string, keep)
	for i := range keep {
		learned[i] = ranked[i].token
	}
	return NewVocabulary(learned)
}

// NewVocabulary rebuilds a vocabulary from learned tokens in id order
// (the reserved entries are added). Used when restoring a saved run.
func NewVocabulary(learned []string) (*Vocabulary, error) {
	v := &Vocabulary{
		tokens: make([]string, 0, len(learned)+reserved),
		ids:    make(map[string]int64, len(learned)),
	}
	v.tokens = append(v.tokens, PadToken, OOVToken)
	for _, tok := range learned {
		if tok == PadToken || tok == OOVToken {
			return nil, core.NewDataError("vocabulary token %q is reserved", tok)
		}
		if _, dup := v.ids[tok]; dup {
			return nil, core.NewDataError("duplicate vocabulary token %q", tok)
		}
		v.ids[tok] = int64(len(v.tokens))
		v.tokens = append(v.tokens, tok)
	}
	return v, nil
}

// Lookup returns the id of a token, or OOVID.
func (v *Vocabulary) Lookup(token string) int64 {
	if id, ok := v.ids[token]; ok {
		return id
	}
	return OOVID
}

// Contains reports whether token was learned.
func (v *Vocabulary) Contains(token string) bool {
	_, ok := v.ids[token]
	return ok
}

// Token returns the token for an id; unknown ids map to OOVToken.
func (v *Vocabulary) Token(id int64) string {
	if id < 0 || id >= int64(len(v.tokens)) {
		return OOVToken
	}
	return v.tokens[id]
}

// Size includes the padding and OOV entries.
func (v *Vocabulary) Size() int { return len(v.tokens) }

// Tokens returns a copy of the id-ordered token list, reserved entries first.
func (v *Vocabulary) Tokens() []string { return slices.Clone(v.tokens) }

// Learned returns a copy of the learned tokens only.
func (v *Vocabulary) Learned() []string { return slices.Clone(v.tokens[reserved:]) }

// Equal reports whether both vocabularies map the same tokens to the same ids.
func (v *Vocabulary) Equal(other *Vocabulary) bool {
	if v == nil || other == nil {
		return v == other
	}
	return slices.Equal(v.tokens, other.tokens)
}

// ============================================================================
// Save / Load
// ============================================================================

// Save writes the learned tokens, one per line, in id order.
//
// Format:
//
//	# goml-sentiment vocabulary v1
//	# size 6
//	movie
//	good
//	...
//
// Line i (0-based, after the headers) holds the token with id FirstID+i.
// Tokens never contain whitespace, since they come from a whitespace split.
func (v *Vocabulary) Save(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, fileMagic)
	fmt.Fprintf(w, "# size %d\n", v.Size())
	for _, tok := range v.tokens[reserved:] {
		fmt.Fprintln(w, tok)
	}
	return w.Flush()
}

// LoadVocabulary reads a file written by Save.
func LoadVocabulary(path string) (*Vocabulary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var learned []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || (len(learned) == 0 && strings.HasPrefix(line, "# ")) {
			continue
		}
		learned = append(learned, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return NewVocabulary(learned)
}
