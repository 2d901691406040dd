package textutil

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode/utf8"

	"github.com/abadojack/whatlanggo"
)

// Hash computes a SHA-256 hex hash of a string, used to identify inputs in the run history.
func Hash(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// Truncate shortens a string to maxLen runes, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	r := []rune(s)
	return string(r[:maxLen]) + "..."
}

// Detection is the result of guessing the language of lyric text.
type Detection struct {
	Language   string
	Script     string
	Confidence float64
	Reliable   bool
}

// DetectLanguage guesses the language of the given text. Empty input yields
// an unreliable detection with an empty language.
func DetectLanguage(text string) Detection {
	if strings.TrimSpace(text) == "" {
		return Detection{}
	}
	info := whatlanggo.Detect(text)
	return Detection{
		Language:   info.Lang.String(),
		Script:     whatlanggo.Scripts[info.Script],
		Confidence: info.Confidence,
		Reliable:   info.IsReliable(),
	}
}
