package game

import (
	"math/rand"
	"strings"
)

const maxScrambleAttempts = 16

// Sample returns up to limit distinct words of pool in uniformly random order.
// A limit of zero or less keeps the whole pool.
func Sample(pool []Word, limit int, rng *rand.Rand) []Word {
	seen := make(map[int64]bool, len(pool))
	words := make([]Word, 0, len(pool))
	for _, w := range pool {
		if seen[w.ID] {
			continue
		}
		seen[w.ID] = true
		words = append(words, w)
	}

	Shuffle(words, rng)
	if limit > 0 && len(words) > limit {
		words = words[:limit]
	}
	return words
}

// Shuffle is an in-place Fisher–Yates shuffle.
func Shuffle(words []Word, rng *rand.Rand) {
	for i := len(words) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		words[i], words[j] = words[j], words[i]
	}
}

// ScrambleWord permutes the letters of word so the result differs from the
// input whenever that is possible.
func ScrambleWord(word string, rng *rand.Rand) string {
	runes := []rune(word)
	if len(runes) < 2 || allSame(runes) {
		return word
	}

	for attempt := 0; attempt < maxScrambleAttempts; attempt++ {
		shuffled := append([]rune(nil), runes...)
		for i := len(shuffled) - 1; i > 0; i-- {
			j := rng.Intn(i + 1)
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		}
		if s := string(shuffled); s != word {
			return s
		}
	}

	rotated := append(append([]rune(nil), runes[1:]...), runes[0])
	return string(rotated)
}

func allSame(runes []rune) bool {
	for _, r := range runes[1:] {
		if r != runes[0] {
			return false
		}
	}
	return true
}

// CheckGuess compares a typed answer with the expected romaji, ignoring case
// and surrounding whitespace.
func CheckGuess(guess, romaji string) bool {
	return strings.ToLower(strings.TrimSpace(guess)) == strings.ToLower(strings.TrimSpace(romaji))
}
