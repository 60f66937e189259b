package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStandardize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"The movie was GREAT!", "the movie was great"},
		{"Loved it.<br /><br />Would watch again", "loved it  would watch again"},
		{"<BR />shouting break", " shouting break"},
		{"don't stop-believing (1986)", "dont stopbelieving 1986"},
		{"a[b]c\\d`e{f}g|h~i", "abcdefghi"},
		{"Café Ünïcode — ok", "café ünïcode — ok"},
		{Punctuation, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Standardize(tt.in), "input %q", tt.in)
	}
}

func TestStandardizeIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"The movie was great!",
		"<br /><br />",
		"<<br />br />",
		"Tabs\tand\nnewlines... <br/> not a break",
		"ÀÉÎÕÜ and ǅ titlecase",
		"I'd give it 10/10 -- really @#$%!",
		"mixed <BR /> CASE <br />",
	}
	for _, s := range inputs {
		once := Standardize(s)
		assert.Equal(t, once, Standardize(once), "input %q", s)
	}
}

func TestStandardizeRemovesOnlyASCIIPunctuation(t *testing.T) {
	out := Standardize("«quoted» ¡hola!")
	assert.Equal(t, "«quoted» ¡hola", out)
}

func TestSplitWhitespace(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SplitWhitespace("  a\tb\n c  "))
	assert.Empty(t, SplitWhitespace("   "))
}
