// Package puzzle keeps the masked state of a secret word.
package puzzle

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Placeholder marks a position that has not been revealed yet.
const Placeholder = '*'

var ErrMaskLength = errors.New("mask length does not match word")

type Outcome int

const (
	Miss Outcome = iota
	Hit
	// AlreadyOpen means the letter occurs in the word but every occurrence is revealed.
	AlreadyOpen
)

func NewMask(word string) []rune {
	mask := make([]rune, utf8.RuneCountInString(word))
	for i := range mask {
		mask[i] = Placeholder
	}
	return mask
}

// GuessLetter reveals every occurrence of letter in word. The returned mask
// is a copy; the input mask is never modified.
func GuessLetter(word string, mask []rune, letter rune) ([]rune, Outcome, error) {
	secret := []rune(strings.ToLower(word))
	if len(secret) != len(mask) {
		return nil, Miss, ErrMaskLength
	}

	letter = unicode.ToLower(letter)
	next := make([]rune, len(mask))
	copy(next, mask)

	found, revealed := false, 0
	for i, r := range secret {
		if r != letter {
			continue
		}
		found = true
		if next[i] == Placeholder {
			next[i] = r
			revealed++
		}
	}

	switch {
	case !found:
		return next, Miss, nil
	case revealed == 0:
		return next, AlreadyOpen, nil
	default:
		return next, Hit, nil
	}
}

func GuessWord(word, candidate string) bool {
	return strings.ToLower(strings.TrimSpace(candidate)) == strings.ToLower(word)
}

// Reveal returns the fully opened mask of word.
func Reveal(word string) []rune {
	return []rune(strings.ToLower(word))
}

func Solved(mask []rune) bool {
	for _, r := range mask {
		if r == Placeholder {
			return false
		}
	}
	return true
}
