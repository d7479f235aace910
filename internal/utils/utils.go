package utils

import (
	"math/rand/v2"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

const (
	MaskGlyph         = "_"
	RoomCodeAlphabet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	defaultCodeLength = 6
)

// MaskWord renders the word as guessers see it. Each whitespace-separated
// token keeps its first and last letter, every other letter becomes "_",
// and all glyphs are joined with single spaces. Source spaces pass through,
// so "ICE CREAM" renders as "I _ E   C _ _ _ M".
func MaskWord(word string, revealAll bool) string {
	if revealAll || word == "" {
		return word
	}

	runes := []rune(word)
	glyphs := make([]string, len(runes))
	for i, r := range runes {
		switch {
		case unicode.IsSpace(r):
			glyphs[i] = string(r)
		case i == 0 || unicode.IsSpace(runes[i-1]):
			glyphs[i] = string(r)
		case i == len(runes)-1 || unicode.IsSpace(runes[i+1]):
			glyphs[i] = string(r)
		default:
			glyphs[i] = MaskGlyph
		}
	}
	return strings.Join(glyphs, " ")
}

// GenerateRoomCode draws codes from RoomCodeAlphabet until taken reports one
// is free. intn must return a value in [0, n).
func GenerateRoomCode(length int, intn func(n int) int, taken func(code string) bool) string {
	if length <= 0 {
		length = defaultCodeLength
	}
	if intn == nil {
		intn = rand.IntN
	}

	buf := make([]byte, length)
	for {
		for i := range buf {
			buf[i] = RoomCodeAlphabet[intn(len(RoomCodeAlphabet))]
		}
		code := string(buf)
		if taken == nil || !taken(code) {
			return code
		}
	}
}

// NewID returns a fresh random identifier for players and chat messages.
func NewID() string {
	return uuid.NewString()
}
