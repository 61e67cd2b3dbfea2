package urlintel

import (
	"math"
	"unicode/utf8"
)

// Entropy returns the Shannon entropy of s in bits per character.
// The empty string has entropy 0.
func Entropy(s string) float64 {
	n := utf8.RuneCountInString(s)
	if n == 0 {
		return 0
	}

	freq := make(map[rune]int)
	for _, r := range s {
		freq[r]++
	}

	var h float64
	for _, c := range freq {
		p := float64(c) / float64(n)
		h -= p * math.Log2(p)
	}
	return h
}
