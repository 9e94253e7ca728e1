package domain

import (
	"errors"
	"fmt"
	"time"
)

// ContentKind distinguishes the two shapes of learning item.
type ContentKind string

// Possible content kinds.
const (
	ContentKindWord     ContentKind = "word"
	ContentKindSentence ContentKind = "sentence"
)

// Difficulty is a generation hint. It biases prompt construction toward
// lower-frequency vocabulary; it never changes pool filtering.
type Difficulty string

// Recognised difficulty hints.
const (
	DifficultyNormal Difficulty = "normal"
	DifficultyHarder Difficulty = "harder"
)

// Content item validation errors.
var (
	ErrContentTextEmpty     = errors.New("content item text cannot be empty")
	ErrContentKindInvalid   = errors.New("content item kind must be word or sentence")
	ErrContentCategoryZero  = errors.New("content item category ID cannot be zero")
	ErrContentUsageNegative = errors.New("content item used count cannot be negative")
	ErrContentUsageStamp    = errors.New("content item last_used_at must be set iff used_count > 0")
)

// ContentItem is a flashcard word or a source sentence eligible for practice.
// Text holds the canonical string: the target-language word for flashcards,
// or the English source sentence that gets translated per learner language.
type ContentItem struct {
	ID         int64       `json:"id"`
	CategoryID int64       `json:"category_id"`
	LessonID   *int64      `json:"lesson_id,omitempty"`
	Kind       ContentKind `json:"kind"`
	Text       string      `json:"text"`
	ImageURL   string      `json:"image_url,omitempty"`
	UsedCount  int         `json:"used_count"`
	LastUsedAt *time.Time  `json:"last_used_at,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

// NewContentItem creates an unused ContentItem for the given pool.
// Returns an error if validation fails.
func NewContentItem(categoryID int64, lessonID *int64, kind ContentKind, text string) (*ContentItem, error) {
	item := &ContentItem{
		CategoryID: categoryID,
		LessonID:   lessonID,
		Kind:       kind,
		Text:       text,
		CreatedAt:  time.Now().UTC(),
	}

	if err := item.Validate(); err != nil {
		return nil, err
	}

	return item, nil
}

// Validate checks the ContentItem fields, including the usage-stamp
// coupling: last_used_at is set if and only if used_count > 0.
func (i *ContentItem) Validate() error {
	if i.CategoryID == 0 {
		return ErrContentCategoryZero
	}
	if i.Kind != ContentKindWord && i.Kind != ContentKindSentence {
		return ErrContentKindInvalid
	}
	if i.Text == "" {
		return ErrContentTextEmpty
	}
	if i.UsedCount < 0 {
		return ErrContentUsageNegative
	}
	if (i.UsedCount > 0) != (i.LastUsedAt != nil) {
		return ErrContentUsageStamp
	}
	return nil
}

// TrackID implements rotation tracking for ContentItem.
func (i *ContentItem) TrackID() int64 { return i.ID }

// UseCount implements rotation tracking for ContentItem.
func (i *ContentItem) UseCount() int { return i.UsedCount }

// LastUsed implements rotation tracking for ContentItem.
func (i *ContentItem) LastUsed() *time.Time { return i.LastUsedAt }

// Translation validation errors.
var (
	ErrTranslationItemZero      = errors.New("translation item ID cannot be zero")
	ErrTranslationLanguageEmpty = errors.New("translation language cannot be empty")
	ErrTranslationTextEmpty     = errors.New("translation text cannot be empty")
	ErrTranslationTokensEmpty   = errors.New("translation token list cannot be empty")
)

// Translation is the per-language rendering of a ContentItem. It is created
// lazily on the first request in a language and is immutable once written, so
// grading stays stable across attempts.
type Translation struct {
	ID          int64     `json:"id"`
	ItemID      int64     `json:"item_id"`
	Language    string    `json:"language"`
	Text        string    `json:"text"`
	Tokens      []string  `json:"tokens"`
	Hints       []string  `json:"hints,omitempty"`
	Explanation string    `json:"explanation,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewTranslation creates a Translation for the given item and language.
// Hints arrive already ordered by descending usefulness.
func NewTranslation(itemID int64, language, text string, tokens, hints []string, explanation string) (*Translation, error) {
	tr := &Translation{
		ItemID:      itemID,
		Language:    language,
		Text:        text,
		Tokens:      tokens,
		Hints:       hints,
		Explanation: explanation,
		CreatedAt:   time.Now().UTC(),
	}

	if err := tr.Validate(); err != nil {
		return nil, err
	}

	return tr, nil
}

// Validate checks that the Translation carries the fields grading depends on.
func (t *Translation) Validate() error {
	if t.ItemID == 0 {
		return ErrTranslationItemZero
	}
	if t.Language == "" {
		return ErrTranslationLanguageEmpty
	}
	if t.Text == "" {
		return ErrTranslationTextEmpty
	}
	if len(t.Tokens) == 0 {
		return ErrTranslationTokensEmpty
	}
	return nil
}

// ParseDifficulty maps a request string onto a Difficulty hint. An empty
// string defaults to normal.
func ParseDifficulty(s string) (Difficulty, error) {
	switch Difficulty(s) {
	case "", DifficultyNormal:
		return DifficultyNormal, nil
	case DifficultyHarder:
		return DifficultyHarder, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDifficulty, s)
	}
}
