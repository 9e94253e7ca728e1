package gemini

import "github.com/lingualab/lingua-api/internal/generation"

// promptData is the data passed to the prompt templates.
type promptData struct {
	Category     string
	Lesson       string
	Language     string
	Difficulty   string
	ExcludeWords []string
	RequiredWord string
	Text         string
}

// hintSchema mirrors one hint entry in the model's JSON output.
type hintSchema struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// flashcardSchema is the expected JSON shape for flashcard generation.
type flashcardSchema struct {
	Word        string `json:"word"`
	Translation string `json:"translation"`
	Definition  string `json:"definition"`
	Example     string `json:"example_sentence"`
	Explanation string `json:"explanation"`
}

// sentenceSchema is the expected JSON shape for sentence generation.
type sentenceSchema struct {
	Sentence    string       `json:"sentence"`
	Translation string       `json:"translation"`
	Tokens      []string     `json:"tokens"`
	Hints       []hintSchema `json:"hints"`
	Explanation string       `json:"explanation"`
}

// translationSchema is the expected JSON shape for translating canonical text.
type translationSchema struct {
	Text        string       `json:"text"`
	Tokens      []string     `json:"tokens"`
	Hints       []hintSchema `json:"hints"`
	Explanation string       `json:"explanation"`
}

// situationSchema is the expected JSON shape for situation generation.
type situationSchema struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Difficulty  string `json:"difficulty"`
	MaxMessages int    `json:"max_messages"`
}

func toHints(in []hintSchema) []generation.Hint {
	hints := make([]generation.Hint, 0, len(in))
	for _, h := range in {
		hints = append(hints, generation.Hint{Text: h.Text, Score: h.Score})
	}
	return hints
}
