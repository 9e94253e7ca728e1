package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/lingualab/lingua-api/internal/config"
	"github.com/lingualab/lingua-api/internal/domain"
	"github.com/lingualab/lingua-api/internal/generation"
	"google.golang.org/genai"
)

// Generator implements generation.Generator using Google's Gemini API.
type Generator struct {
	logger *slog.Logger
	cfg    config.LLMConfig
	client *genai.Client
	model  string

	// call performs one outbound model invocation. Kept as a field so tests
	// can substitute a fake without a network client.
	call func(ctx context.Context, prompt string) (string, error)
}

// Ensure Generator implements generation.Generator.
var _ generation.Generator = (*Generator)(nil)

// NewGenerator creates a Gemini-backed Generator.
func NewGenerator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}

	g := &Generator{
		logger: logger.With(slog.String("component", "gemini_generator")),
		cfg:    cfg,
		client: client,
		model:  cfg.ModelName,
	}
	g.call = g.callModel

	return g, nil
}

// callModel performs a single Gemini call and returns the raw response text.
func (g *Generator) callModel(ctx context.Context, prompt string) (string, error) {
	timeout := time.Duration(g.cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no content generated", generation.ErrValidationFailed)
	}
	if resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: safety filter", generation.ErrContentBlocked)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("%w: empty response text", generation.ErrValidationFailed)
	}
	return text, nil
}

// generateJSON calls the model, retrying transient failures with exponential
// backoff and jitter, and unmarshals the response into out. Parse failures
// and safety blocks are permanent and returned without retry.
func (g *Generator) generateJSON(ctx context.Context, prompt string, out any) error {
	maxAttempts := g.cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	baseDelay := g.cfg.RetryDelaySeconds
	if baseDelay < 1 {
		baseDelay = 2
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		g.logger.DebugContext(ctx, "calling generative model",
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"prompt_length", len(prompt))

		text, err := g.call(ctx, prompt)
		if err == nil {
			if parseErr := json.Unmarshal([]byte(extractJSON(text)), out); parseErr != nil {
				return fmt.Errorf("%w: malformed JSON response: %v", generation.ErrValidationFailed, parseErr)
			}
			return nil
		}

		if errors.Is(err, generation.ErrContentBlocked) || errors.Is(err, generation.ErrValidationFailed) {
			return err
		}

		lastErr = err
		g.logger.WarnContext(ctx, "model call failed",
			"attempt", attempt,
			"error", err)

		if attempt == maxAttempts {
			break
		}

		// delay = base * 2^(attempt-1) * jitter in [0.5, 1.0)
		backoff := float64(baseDelay) * math.Pow(2, float64(attempt-1))
		delay := time.Duration(backoff * (0.5 + rng.Float64()*0.5) * float64(time.Second))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", generation.ErrTransientFailure, ctx.Err())
		}
	}

	return fmt.Errorf("%w: exhausted %d attempts: %v", generation.ErrTransientFailure, maxAttempts, lastErr)
}

// extractJSON trims anything surrounding the outermost JSON object, such as
// markdown fences some models wrap around their output.
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return text
	}
	return text[start : end+1]
}

// excluded reports whether word matches any entry of the exclusion set,
// case-insensitively.
func excluded(word string, excludeWords []string) bool {
	for _, ex := range excludeWords {
		if strings.EqualFold(word, ex) {
			return true
		}
	}
	return false
}

// GenerateFlashcard implements generation.Generator. A fresh prompt is built
// for every attempt; producing an excluded word or an invalid payload uses up
// one of the bounded attempts.
func (g *Generator) GenerateFlashcard(ctx context.Context, req generation.Request) (*generation.FlashcardPayload, error) {
	maxAttempts := g.maxAttempts()
	exclude := append([]string(nil), req.ExcludeWords...)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		prompt, err := renderPrompt(flashcardPrompt, promptData{
			Category:     req.Category,
			Lesson:       req.Lesson,
			Language:     req.Language,
			Difficulty:   string(req.Difficulty),
			ExcludeWords: exclude,
		})
		if err != nil {
			return nil, err
		}

		var schema flashcardSchema
		if err := g.generateJSON(ctx, prompt, &schema); err != nil {
			if errors.Is(err, generation.ErrContentBlocked) || errors.Is(err, generation.ErrTransientFailure) {
				return nil, err
			}
			lastErr = err
			continue
		}

		payload := &generation.FlashcardPayload{
			Word:        schema.Word,
			Translation: schema.Translation,
			Definition:  schema.Definition,
			Example:     schema.Example,
			Explanation: schema.Explanation,
		}
		if err := generation.ValidateFlashcard(payload); err != nil {
			lastErr = err
			g.logger.WarnContext(ctx, "generated flashcard failed validation",
				"attempt", attempt, "error", err)
			continue
		}

		if excluded(payload.Word, req.ExcludeWords) {
			lastErr = fmt.Errorf("%w: %q", generation.ErrExcludedWord, payload.Word)
			g.logger.DebugContext(ctx, "generated word is excluded, regenerating",
				"attempt", attempt, "word", payload.Word)
			// Feed the rejected word back into the next prompt.
			exclude = append(exclude, payload.Word)
			continue
		}

		return payload, nil
	}

	return nil, fmt.Errorf("%w: flashcard after %d attempts: %v", generation.ErrGenerationFailed, maxAttempts, lastErr)
}

// GenerateSentence implements generation.Generator.
func (g *Generator) GenerateSentence(ctx context.Context, req generation.Request) (*generation.SentencePayload, error) {
	maxAttempts := g.maxAttempts()
	exclude := append([]string(nil), req.ExcludeWords...)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		prompt, err := renderPrompt(sentencePrompt, promptData{
			Category:     req.Category,
			Lesson:       req.Lesson,
			Language:     req.Language,
			Difficulty:   string(req.Difficulty),
			ExcludeWords: exclude,
			RequiredWord: req.RequiredWord,
		})
		if err != nil {
			return nil, err
		}

		var schema sentenceSchema
		if err := g.generateJSON(ctx, prompt, &schema); err != nil {
			if errors.Is(err, generation.ErrContentBlocked) || errors.Is(err, generation.ErrTransientFailure) {
				return nil, err
			}
			lastErr = err
			continue
		}

		payload := &generation.SentencePayload{
			Sentence:    schema.Sentence,
			Translation: schema.Translation,
			Tokens:      schema.Tokens,
			Hints:       toHints(schema.Hints),
			Explanation: schema.Explanation,
		}
		if err := generation.ValidateSentence(payload); err != nil {
			lastErr = err
			g.logger.WarnContext(ctx, "generated sentence failed validation",
				"attempt", attempt, "error", err)
			continue
		}

		if conflict := firstExcludedToken(payload.Tokens, req.ExcludeWords); conflict != "" {
			lastErr = fmt.Errorf("%w: %q", generation.ErrExcludedWord, conflict)
			exclude = append(exclude, conflict)
			continue
		}

		return payload, nil
	}

	return nil, fmt.Errorf("%w: sentence after %d attempts: %v", generation.ErrGenerationFailed, maxAttempts, lastErr)
}

// GenerateSituation implements generation.Generator.
func (g *Generator) GenerateSituation(ctx context.Context, req generation.Request) (*generation.SituationPayload, error) {
	maxAttempts := g.maxAttempts()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		prompt, err := renderPrompt(situationPrompt, promptData{
			Category:   req.Category,
			Language:   req.Language,
			Difficulty: string(req.Difficulty),
		})
		if err != nil {
			return nil, err
		}

		var schema situationSchema
		if err := g.generateJSON(ctx, prompt, &schema); err != nil {
			if errors.Is(err, generation.ErrContentBlocked) || errors.Is(err, generation.ErrTransientFailure) {
				return nil, err
			}
			lastErr = err
			continue
		}

		payload := &generation.SituationPayload{
			Title:       schema.Title,
			Description: schema.Description,
			Difficulty:  schema.Difficulty,
			MaxMessages: schema.MaxMessages,
		}
		if err := generation.ValidateSituation(payload); err != nil {
			lastErr = err
			continue
		}

		return payload, nil
	}

	return nil, fmt.Errorf("%w: situation after %d attempts: %v", generation.ErrGenerationFailed, maxAttempts, lastErr)
}

// Translate implements generation.Generator. Canonical text is re-rendered
// into the learner language; the caller persists the result so later
// requests re-fetch instead of re-generating.
func (g *Generator) Translate(ctx context.Context, text string, language string) (*generation.TranslationPayload, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty source text", generation.ErrValidationFailed)
	}

	maxAttempts := g.maxAttempts()
	kind := domain.ContentKindWord
	if len(strings.Fields(text)) >= generation.MinSentenceTokens {
		kind = domain.ContentKindSentence
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		prompt, err := renderPrompt(translatePrompt, promptData{
			Language: language,
			Text:     text,
		})
		if err != nil {
			return nil, err
		}

		var schema translationSchema
		if err := g.generateJSON(ctx, prompt, &schema); err != nil {
			if errors.Is(err, generation.ErrContentBlocked) || errors.Is(err, generation.ErrTransientFailure) {
				return nil, err
			}
			lastErr = err
			continue
		}

		payload := &generation.TranslationPayload{
			Text:        schema.Text,
			Tokens:      schema.Tokens,
			Hints:       toHints(schema.Hints),
			Explanation: schema.Explanation,
		}
		if err := generation.ValidateTranslation(payload, kind); err != nil {
			lastErr = err
			continue
		}

		return payload, nil
	}

	return nil, fmt.Errorf("%w: translation after %d attempts: %v", generation.ErrGenerationFailed, maxAttempts, lastErr)
}

func (g *Generator) maxAttempts() int {
	if g.cfg.MaxAttempts >= 1 {
		return g.cfg.MaxAttempts
	}
	return 3
}

func firstExcludedToken(tokens, excludeWords []string) string {
	for _, t := range tokens {
		if excluded(t, excludeWords) {
			return t
		}
	}
	return ""
}
