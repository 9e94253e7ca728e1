package domain

import (
	"errors"
	"time"
)

// Situation validation errors.
var (
	ErrSituationTitleEmpty       = errors.New("situation title cannot be empty")
	ErrSituationDescriptionEmpty = errors.New("situation description cannot be empty")
	ErrSituationMaxMessages      = errors.New("situation max messages must be positive unless free chat")
)

// Situation is a conversational scenario served to start a simulated
// dialogue. Situations rotate through the same usage ledger as content items.
type Situation struct {
	ID          int64      `json:"id"`
	CategoryID  *int64     `json:"category_id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Difficulty  Difficulty `json:"difficulty"`
	FreeChat    bool       `json:"free_chat"`
	MaxMessages int        `json:"max_messages"`
	UsedCount   int        `json:"used_count"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// NewSituation creates an unused Situation.
func NewSituation(categoryID *int64, title, description string, difficulty Difficulty, freeChat bool, maxMessages int) (*Situation, error) {
	s := &Situation{
		CategoryID:  categoryID,
		Title:       title,
		Description: description,
		Difficulty:  difficulty,
		FreeChat:    freeChat,
		MaxMessages: maxMessages,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return s, nil
}

// Validate checks the Situation fields.
func (s *Situation) Validate() error {
	if s.Title == "" {
		return ErrSituationTitleEmpty
	}
	if s.Description == "" {
		return ErrSituationDescriptionEmpty
	}
	if !s.FreeChat && s.MaxMessages <= 0 {
		return ErrSituationMaxMessages
	}
	if s.UsedCount < 0 {
		return ErrContentUsageNegative
	}
	return nil
}

// TrackID implements rotation tracking for Situation.
func (s *Situation) TrackID() int64 { return s.ID }

// UseCount implements rotation tracking for Situation.
func (s *Situation) UseCount() int { return s.UsedCount }

// LastUsed implements rotation tracking for Situation.
func (s *Situation) LastUsed() *time.Time { return s.LastUsedAt }
