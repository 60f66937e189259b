package tokenizer

import (
	"strings"
)

// StandardizeFunc normalizes raw text before it is split into tokens.
// The same function must be used to adapt, encode and serve.
type StandardizeFunc func(text string) string

// SplitFunc splits standardized text into tokens.
type SplitFunc func(text string) []string

// Punctuation is the ASCII punctuation set removed by Standardize.
const Punctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

const htmlBreak = "<br />"

var punctuationSet = func() [128]bool {
	var set [128]bool
	for i := 0; i < len(Punctuation); i++ {
		set[Punctuation[i]] = true
	}
	return set
}()

// Standardize lowercases text, turns "<br />" into a space and strips ASCII
// punctuation. Standardize(Standardize(s)) == Standardize(s).
func Standardize(text string) string {
	if text == "" {
		return ""
	}
	lower := strings.ToLower(text)
	lower = strings.ReplaceAll(lower, htmlBreak, " ")
	return strings.Map(func(r rune) rune {
		if r < 128 && punctuationSet[r] {
			return -1
		}
		return r
	}, lower)
}

// SplitWhitespace is the default SplitFunc.
func SplitWhitespace(text string) []string {
	return strings.Fields(text)
}
