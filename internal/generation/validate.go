package generation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/lingualab/lingua-api/internal/domain"
)

// MinSentenceTokens is the minimum token count for sentence-type content.
const MinSentenceTokens = 2

// NoExplanation is the fixed fallback for the one field allowed to default.
// Word and translation fields are never defaulted.
const NoExplanation = "No explanation available."

// greetingOnly is the fixed set of tokens that, when they make up an entire
// sentence, mark it as a degenerate greeting-only output.
var greetingOnly = map[string]struct{}{
	"hello":   {},
	"hi":      {},
	"hey":     {},
	"howdy":   {},
	"goodbye": {},
	"bye":     {},
	"thanks":  {},
	"thank":   {},
	"you":     {},
	"hola":    {},
}

// punctuationMentions flags hint texts that talk about punctuation rather
// than word arrangement; those are discarded.
var punctuationMentions = []string{
	"punctuation",
	"comma",
	"period",
	"full stop",
	"question mark",
	"exclamation",
	"apostrophe",
	"semicolon",
}

// CleanToken strips leading and trailing punctuation, including
// locale-specific commas and quote marks, and trims whitespace.
func CleanToken(token string) string {
	trimmed := strings.TrimSpace(token)
	return strings.TrimFunc(trimmed, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
}

// CleanTokens applies CleanToken to every token, dropping those that were
// punctuation-only.
func CleanTokens(tokens []string) []string {
	cleaned := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if c := CleanToken(t); c != "" {
			cleaned = append(cleaned, c)
		}
	}
	return cleaned
}

// FilterHints drops hint entries whose text references punctuation; those
// are not useful arrangement hints.
func FilterHints(hints []Hint) []Hint {
	kept := make([]Hint, 0, len(hints))
	for _, h := range hints {
		lower := strings.ToLower(h.Text)
		mentions := false
		for _, word := range punctuationMentions {
			if strings.Contains(lower, word) {
				mentions = true
				break
			}
		}
		if !mentions && strings.TrimSpace(h.Text) != "" {
			kept = append(kept, h)
		}
	}
	return kept
}

// isGreetingOnly reports whether every token belongs to the greeting set.
func isGreetingOnly(tokens []string) bool {
	if len(tokens) == 0 {
		return false
	}
	for _, t := range tokens {
		if _, ok := greetingOnly[strings.ToLower(t)]; !ok {
			return false
		}
	}
	return true
}

// ValidateFlashcard normalizes and validates a flashcard payload in place.
// Parse-or-reject: missing word or translation fails, never gets defaulted.
func ValidateFlashcard(p *FlashcardPayload) error {
	if p == nil {
		return fmt.Errorf("%w: nil payload", ErrValidationFailed)
	}

	p.Word = CleanToken(p.Word)
	p.Translation = strings.TrimSpace(p.Translation)

	if p.Word == "" {
		return fmt.Errorf("%w: missing word", ErrValidationFailed)
	}
	if p.Translation == "" {
		return fmt.Errorf("%w: missing translation", ErrValidationFailed)
	}
	if _, ok := greetingOnly[strings.ToLower(p.Word)]; ok {
		return fmt.Errorf("%w: greeting-only word %q", ErrValidationFailed, p.Word)
	}
	if p.Explanation == "" {
		p.Explanation = NoExplanation
	}
	return nil
}

// ValidateSentence normalizes and validates a sentence payload in place:
// token cleaning, minimum length, greeting-only rejection, hint filtering.
func ValidateSentence(p *SentencePayload) error {
	if p == nil {
		return fmt.Errorf("%w: nil payload", ErrValidationFailed)
	}

	p.Sentence = strings.TrimSpace(p.Sentence)
	p.Translation = strings.TrimSpace(p.Translation)

	if p.Sentence == "" {
		return fmt.Errorf("%w: missing sentence", ErrValidationFailed)
	}
	if p.Translation == "" {
		return fmt.Errorf("%w: missing translation", ErrValidationFailed)
	}

	p.Tokens = CleanTokens(p.Tokens)
	if len(p.Tokens) < MinSentenceTokens {
		return fmt.Errorf("%w: %d tokens, need at least %d",
			ErrValidationFailed, len(p.Tokens), MinSentenceTokens)
	}
	if isGreetingOnly(p.Tokens) {
		return fmt.Errorf("%w: greeting-only sentence", ErrValidationFailed)
	}

	p.Hints = FilterHints(p.Hints)
	if p.Explanation == "" {
		p.Explanation = NoExplanation
	}
	return nil
}

// ValidateTranslation normalizes and validates a translation payload in
// place. Sentence-kind translations must keep the minimum token count; a
// word translation may be a single token.
func ValidateTranslation(p *TranslationPayload, kind domain.ContentKind) error {
	if p == nil {
		return fmt.Errorf("%w: nil payload", ErrValidationFailed)
	}

	p.Text = strings.TrimSpace(p.Text)
	if p.Text == "" {
		return fmt.Errorf("%w: missing translated text", ErrValidationFailed)
	}

	p.Tokens = CleanTokens(p.Tokens)
	minTokens := 1
	if kind == domain.ContentKindSentence {
		minTokens = MinSentenceTokens
	}
	if len(p.Tokens) < minTokens {
		return fmt.Errorf("%w: %d tokens, need at least %d",
			ErrValidationFailed, len(p.Tokens), minTokens)
	}

	p.Hints = FilterHints(p.Hints)
	if p.Explanation == "" {
		p.Explanation = NoExplanation
	}
	return nil
}

// ValidateSituation normalizes and validates a situation payload in place.
func ValidateSituation(p *SituationPayload) error {
	if p == nil {
		return fmt.Errorf("%w: nil payload", ErrValidationFailed)
	}

	p.Title = strings.TrimSpace(p.Title)
	p.Description = strings.TrimSpace(p.Description)

	if p.Title == "" {
		return fmt.Errorf("%w: missing title", ErrValidationFailed)
	}
	if p.Description == "" {
		return fmt.Errorf("%w: missing description", ErrValidationFailed)
	}
	if p.MaxMessages <= 0 {
		p.MaxMessages = 10
	}
	return nil
}
