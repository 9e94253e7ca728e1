package generation

// Hint is one arrangement hint with the usefulness score the provider
// assigned it. Hints are served to learners ordered by descending score.
type Hint struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// FlashcardPayload is the validated result of a flashcard generation call.
type FlashcardPayload struct {
	// Word is the target-language word. Never defaulted.
	Word string `json:"word"`

	// Translation is the English rendering of the word. Never defaulted.
	Translation string `json:"translation"`

	// Definition is a target-language definition of the word.
	Definition string `json:"definition"`

	// Example is a target-language sentence using the word.
	Example string `json:"example_sentence"`

	// Explanation is optional; validation fills in a fixed fallback.
	Explanation string `json:"explanation"`
}

// SentencePayload is the validated result of a sentence generation call.
type SentencePayload struct {
	// Sentence is the canonical English source sentence. Never defaulted.
	Sentence string `json:"sentence"`

	// Translation is the target-language rendering. Never defaulted.
	Translation string `json:"translation"`

	// Tokens is the ordered target-language word list used for scrambling.
	Tokens []string `json:"tokens"`

	// Hints carry arrangement hints with usefulness scores.
	Hints []Hint `json:"hints"`

	// Explanation is optional; validation fills in a fixed fallback.
	Explanation string `json:"explanation"`
}

// TranslationPayload is the validated result of translating an existing
// canonical text into a learner language.
type TranslationPayload struct {
	Text        string   `json:"text"`
	Tokens      []string `json:"tokens"`
	Hints       []Hint   `json:"hints"`
	Explanation string   `json:"explanation"`
}

// SituationPayload is the validated result of a situation generation call.
type SituationPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Difficulty  string `json:"difficulty"`
	MaxMessages int    `json:"max_messages"`
}

// HintTexts returns the hint texts ordered by descending usefulness score.
// Ties keep the provider's original order.
func HintTexts(hints []Hint) []string {
	ordered := make([]Hint, len(hints))
	copy(ordered, hints)

	// Insertion sort keeps equal-score hints stable without pulling in sort
	// for a list that is rarely longer than five entries.
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && ordered[j].Score > ordered[j-1].Score; j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}

	texts := make([]string, 0, len(ordered))
	for _, h := range ordered {
		texts = append(texts, h.Text)
	}
	return texts
}
