package session

import "fluent/apperr"

// Catalog is the fixed list of practice sentences. The first is the default.
var Catalog = []string{
	"The quick brown fox jumps over the lazy dog",
	"How much wood would a woodchuck chuck if a woodchuck could chuck wood",
	"She sells seashells by the seashore",
	"Peter Piper picked a peck of pickled peppers",
	"I scream, you scream, we all scream for ice cream",
}

func DefaultSentence() string { return Catalog[0] }

// Index returns the position of s in Catalog, or -1.
func Index(s string) int {
	for i, c := range Catalog {
		if c == s {
			return i
		}
	}
	return -1
}

// Sentence returns the catalog entry at i (0-based).
func Sentence(i int) (string, error) {
	if i < 0 || i >= len(Catalog) {
		return "", apperr.Invalid("no sentence at that position")
	}
	return Catalog[i], nil
}
