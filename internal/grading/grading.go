// Package grading compares learner answers against canonical translations.
// Comparison is normalized per target language: scripts written without
// spaces (Japanese, Chinese, Thai) are graded with whitespace removed,
// everything else collapses runs of whitespace and ignores case and
// edge punctuation.
package grading

import (
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

// Result is the outcome of grading a single answer.
type Result struct {
	Correct  bool
	Feedback string
}

// Normalizer canonicalizes text before comparison.
type Normalizer interface {
	Normalize(text string) string
}

// spaceInsensitive strips all whitespace. Used for languages whose scripts
// do not separate words with spaces, where learners assembling tokens
// should not be penalized for spacing.
type spaceInsensitive struct{}

func (spaceInsensitive) Normalize(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsSpace(r) || isEdgePunct(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// spaceSensitive collapses whitespace runs to single spaces and strips
// punctuation, keeping word boundaries significant.
type spaceSensitive struct{}

func (spaceSensitive) Normalize(text string) string {
	fields := strings.Fields(strings.ToLower(text))
	cleaned := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimFunc(f, isEdgePunct)
		if f != "" {
			cleaned = append(cleaned, f)
		}
	}
	return strings.Join(cleaned, " ")
}

func isEdgePunct(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}

var spaceInsensitiveLanguages = map[string]bool{
	"japanese": true,
	"chinese":  true,
	"thai":     true,
}

// ForLanguage returns the normalizer for the given target language.
// Unknown languages get the space-sensitive default.
func ForLanguage(language string) Normalizer {
	if spaceInsensitiveLanguages[strings.ToLower(strings.TrimSpace(language))] {
		return spaceInsensitive{}
	}
	return spaceSensitive{}
}

// nearMissThreshold is the maximum edit distance between normalized answer
// and canonical text for which feedback calls the answer "close".
const nearMissThreshold = 2

// Grade compares a learner answer against the canonical translation for
// the given target language. Feedback always includes the canonical text
// on a miss so the learner sees the expected sentence.
func Grade(canonical, answer, language string) Result {
	n := ForLanguage(language)
	want := n.Normalize(canonical)
	got := n.Normalize(answer)

	if want == got {
		return Result{Correct: true, Feedback: "Correct!"}
	}

	if got != "" && matchr.Levenshtein(got, want) <= nearMissThreshold {
		return Result{
			Correct:  false,
			Feedback: "So close! The expected answer was: " + canonical,
		}
	}

	return Result{
		Correct:  false,
		Feedback: "Not quite. The expected answer was: " + canonical,
	}
}
