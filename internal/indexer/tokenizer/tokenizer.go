// Package tokenizer provides text tokenisation for the search engine.
// It lower-cases input and splits on non-alphanumeric boundaries. The same
// normalisation runs when shards are built and when exact query terms are
// extracted, so both sides agree on term spelling.
package tokenizer

import (
	"strings"
	"unicode"
)

// Token represents a single normalised term and its position in the
// original text.
type Token struct {
	Term     string
	Position int
}

// Tokenize breaks text into a slice of lowercased Tokens. Empty input yields
// an empty slice.
func Tokenize(text string) []Token {
	if text == "" {
		return []Token{}
	}
	text = strings.ToLower(text)
	words := strings.FieldsFunc(text, isSeparator)
	tokens := make([]Token, 0, len(words))
	for pos, word := range words {
		if word == "" {
			continue
		}
		tokens = append(tokens, Token{
			Term:     word,
			Position: pos,
		})
	}
	return tokens
}

// Terms returns only the term strings of Tokenize(text), in order.
func Terms(text string) []string {
	tokens := Tokenize(text)
	terms := make([]string, len(tokens))
	for i, tok := range tokens {
		terms[i] = tok.Term
	}
	return terms
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
