package generation

import (
	"context"

	"github.com/lingualab/lingua-api/internal/domain"
)

// Generator is the boundary between the content engine and the external
// generative service. Implementations own prompt construction, response
// parsing, validation and retry; they are side-effect-free apart from the
// outbound call. Persistence of successful payloads belongs to the caller.
type Generator interface {
	// GenerateFlashcard produces a validated flashcard word for the request.
	// Returns ErrExcludedWord wrapped in ErrGenerationFailed when every
	// bounded attempt produced a word from the exclusion set.
	GenerateFlashcard(ctx context.Context, req Request) (*FlashcardPayload, error)

	// GenerateSentence produces a validated source sentence with its
	// translation material for the request's language.
	GenerateSentence(ctx context.Context, req Request) (*SentencePayload, error)

	// GenerateSituation produces a validated dialogue scenario.
	GenerateSituation(ctx context.Context, req Request) (*SituationPayload, error)

	// Translate renders an existing canonical text into the request's
	// language, with tokens, ordered hints and an explanation.
	Translate(ctx context.Context, text string, language string) (*TranslationPayload, error)
}

// Request carries the prompt ingredients for a generation call.
type Request struct {
	// Category names the topical pool, e.g. "Greetings".
	Category string

	// Lesson optionally names the lesson for narrower prompts.
	Lesson string

	// Language is the learner's target language, passed through verbatim
	// from the learner profile.
	Language string

	// ExcludeWords lists vocabulary the result must avoid.
	ExcludeWords []string

	// RequiredWord optionally constrains the result to contain a word.
	RequiredWord string

	// Difficulty biases prompts toward lower-frequency vocabulary when set
	// to harder.
	Difficulty domain.Difficulty
}
