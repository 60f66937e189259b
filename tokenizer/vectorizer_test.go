package tokenizer

import (
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djeday123/goml-sentiment/core"
)

func adaptScenario(t *testing.T, seqLen int) *Vectorizer {
	t.Helper()
	v, err := Adapt(slices.Values([]string{"good movie", "bad movie", "good film"}),
		VectorizerConfig{MaxTokens: 10, SequenceLength: seqLen})
	require.NoError(t, err)
	return v
}

func TestEncodeScenario(t *testing.T) {
	v := adaptScenario(t, 4)
	vocab := v.Vocabulary()

	got := v.Encode("good movie")
	assert.Equal(t, []int64{vocab.Lookup("good"), vocab.Lookup("movie"), 0, 0}, got)
	assert.Equal(t, []int64{2, 3, 0, 0}, got)
}

func TestEncodeEmpty(t *testing.T) {
	v := adaptScenario(t, 5)
	assert.Equal(t, []int64{0, 0, 0, 0, 0}, v.Encode(""))
	assert.Equal(t, []int64{0, 0, 0, 0, 0}, v.Encode("?!... <br />"))
}

func TestEncodeFixedLength(t *testing.T) {
	v := adaptScenario(t, 7)
	inputs := []string{
		"",
		"good",
		"Good movie, GOOD film!",
		strings.Repeat("bad movie ", 100),
		strings.Repeat("x", 10000),
	}
	for _, in := range inputs {
		assert.Len(t, v.Encode(in), 7)
	}
}

func TestEncodeTruncatesKeepingPrefix(t *testing.T) {
	v := adaptScenario(t, 3)
	assert.Equal(t, []int64{4, 5, 2}, v.Encode("bad film good movie movie"))
}

func TestEncodeOOV(t *testing.T) {
	v := adaptScenario(t, 4)
	got := v.Encode("terrible movie plot")
	assert.Equal(t, []int64{OOVID, 3, OOVID, PadID}, got)
	for _, id := range got[:3] {
		assert.NotEqual(t, PadID, id)
	}
}

func TestEncodeAppliesStandardization(t *testing.T) {
	v := adaptScenario(t, 4)
	assert.Equal(t, v.Encode("good movie"), v.Encode("GOOD<br />Movie!!!"))
}

func TestEncodeDeterministic(t *testing.T) {
	v := adaptScenario(t, 6)
	text := "The good, the bad and the film."
	first := v.Encode(text)
	for range 20 {
		assert.Equal(t, first, v.Encode(text))
	}
}

func TestEncodeBatchPreservesOrder(t *testing.T) {
	v := adaptScenario(t, 3)
	texts := make([]string, 0, 200)
	for i := range 200 {
		texts = append(texts, []string{"good", "bad movie", "film film", "nothing"}[i%4])
	}

	batch := v.EncodeBatch(texts)
	require.Len(t, batch, len(texts))
	for i, text := range texts {
		assert.Equal(t, v.Encode(text), batch[i])
	}
}

func TestEncodingDoesNotChangeVocabulary(t *testing.T) {
	v := adaptScenario(t, 8)
	before := v.Vocabulary().Tokens()

	v.EncodeBatch([]string{"unseen validation words", "brand new test tokens", "good movie"})
	v.Encode("more unseen text at inference")

	assert.Equal(t, before, v.Vocabulary().Tokens())
}

func TestDecode(t *testing.T) {
	v := adaptScenario(t, 5)
	assert.Equal(t, "good [UNK] film", v.Decode(v.Encode("good awful film")))
	assert.Equal(t, "", v.Decode(v.Encode("")))
}

func TestAdaptValidation(t *testing.T) {
	corpus := slices.Values([]string{"a b"})

	_, err := Adapt(corpus, VectorizerConfig{MaxTokens: 1, SequenceLength: 4})
	assert.ErrorIs(t, err, core.ErrConfig)

	_, err = Adapt(corpus, VectorizerConfig{MaxTokens: 10, SequenceLength: 0})
	assert.ErrorIs(t, err, core.ErrConfig)

	_, err = Adapt(slices.Values([]string{"!!!", "..."}), VectorizerConfig{MaxTokens: 10, SequenceLength: 4})
	assert.ErrorIs(t, err, core.ErrData)
}

func TestAdaptCustomStandardizeAndSplit(t *testing.T) {
	upper := func(s string) string { return strings.ToUpper(s) }
	comma := func(s string) []string { return strings.Split(s, ",") }

	v, err := Adapt(slices.Values([]string{"a,b", "b,c"}),
		VectorizerConfig{MaxTokens: 10, SequenceLength: 3},
		WithStandardize(upper), WithSplit(comma), WithWorkers(2))
	require.NoError(t, err)

	assert.Equal(t, []string{"B", "A", "C"}, v.Vocabulary().Learned())
	assert.Equal(t, []int64{3, 2, 0}, v.Encode("a,b"))
	assert.Equal(t, "X", v.Standardize("x"))
}

func TestFromVocabulary(t *testing.T) {
	vocab, err := NewVocabulary([]string{"good", "movie"})
	require.NoError(t, err)

	v, err := FromVocabulary(vocab, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3, 0}, v.Encode("Good movie!"))
	assert.Equal(t, 4, v.VocabSize())
	assert.Equal(t, 3, v.SequenceLength())

	_, err = FromVocabulary(vocab, 0)
	assert.ErrorIs(t, err, core.ErrConfig)
	_, err = FromVocabulary(nil, 3)
	assert.ErrorIs(t, err, core.ErrData)
}
