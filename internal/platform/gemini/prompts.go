package gemini

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// Prompt templates embed the category, lesson, target language, exclusion
// and required-word constraints, and a strict output-schema instruction.
// The model is told to answer with a single JSON object and nothing else;
// anything that fails to parse is rejected rather than patched up.

const flashcardPromptText = `You are generating vocabulary for a language-learning app.
Produce one {{.Language}} word for the category "{{.Category}}"{{if .Lesson}} in the lesson "{{.Lesson}}"{{end}}.
{{- if eq .Difficulty "harder"}}
Prefer lower-frequency vocabulary an intermediate learner is unlikely to know.
{{- end}}
{{- if .ExcludeWords}}
Do not use any of these words: {{join .ExcludeWords ", "}}.
{{- end}}
Respond with a single JSON object and no other text, using exactly these fields:
{"word": "...", "translation": "...", "definition": "...", "example_sentence": "...", "explanation": "..."}
"translation" is the English meaning. "definition" and "example_sentence" are in {{.Language}}.`

const sentencePromptText = `You are generating a sentence exercise for a language-learning app.
Write one simple English sentence for the category "{{.Category}}"{{if .Lesson}} in the lesson "{{.Lesson}}"{{end}}, then translate it into {{.Language}}.
{{- if eq .Difficulty "harder"}}
Use lower-frequency vocabulary an intermediate learner is unlikely to know.
{{- end}}
{{- if .RequiredWord}}
The sentence must use the word "{{.RequiredWord}}".
{{- end}}
{{- if .ExcludeWords}}
Do not use any of these words: {{join .ExcludeWords ", "}}.
{{- end}}
Respond with a single JSON object and no other text, using exactly these fields:
{"sentence": "...", "translation": "...", "tokens": ["..."], "hints": [{"text": "...", "score": 0.0}], "explanation": "..."}
"tokens" is the {{.Language}} translation split into words in their correct order.
"hints" are word-arrangement hints with a usefulness score between 0 and 1.`

const translatePromptText = `Translate the following text into {{.Language}} for a language-learning app:
"{{.Text}}"
Respond with a single JSON object and no other text, using exactly these fields:
{"text": "...", "tokens": ["..."], "hints": [{"text": "...", "score": 0.0}], "explanation": "..."}
"tokens" is the translation split into words in their correct order.
"hints" are word-arrangement hints with a usefulness score between 0 and 1.
"explanation" briefly explains the grammar of the translation in English.`

const situationPromptText = `You are generating a roleplay scenario for a language-learning app.
Invent a conversational situation for the category "{{.Category}}" suitable for practising {{.Language}}.
{{- if eq .Difficulty "harder"}}
Make the scenario suitable for an advanced learner.
{{- end}}
Respond with a single JSON object and no other text, using exactly these fields:
{"title": "...", "description": "...", "difficulty": "...", "max_messages": 10}`

var promptFuncs = template.FuncMap{
	"join": strings.Join,
}

func parsePrompt(name, text string) *template.Template {
	return template.Must(template.New(name).Funcs(promptFuncs).Parse(text))
}

var (
	flashcardPrompt = parsePrompt("flashcard", flashcardPromptText)
	sentencePrompt  = parsePrompt("sentence", sentencePromptText)
	translatePrompt = parsePrompt("translate", translatePromptText)
	situationPrompt = parsePrompt("situation", situationPromptText)
)

func renderPrompt(tmpl *template.Template, data promptData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template %s: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}
