package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// MaxAttemptsPerPool caps retained attempt results per (learner, category).
// Once exceeded, the oldest unpinned results are evicted; pinned results are
// never auto-evicted.
const MaxAttemptsPerPool = 200

// Attempt result validation errors.
var (
	ErrAttemptLearnerEmpty = errors.New("attempt learner ID cannot be empty")
	ErrAttemptItemZero     = errors.New("attempt item ID cannot be zero")
	ErrAttemptAnswerEmpty  = errors.New("attempt answer cannot be empty")
)

// AttemptResult records one graded answer for a learning item. A learner can
// pin a result to keep it; at most one result per (learner, item) is pinned
// at any time.
type AttemptResult struct {
	ID         int64     `json:"id"`
	LearnerID  uuid.UUID `json:"learner_id"`
	ItemID     int64     `json:"item_id"`
	CategoryID int64     `json:"category_id"`
	Answer     string    `json:"answer"`
	Correct    bool      `json:"correct"`
	Feedback   string    `json:"feedback"`
	Pinned     bool      `json:"pinned"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewAttemptResult creates a graded, unpinned AttemptResult.
func NewAttemptResult(learnerID uuid.UUID, itemID, categoryID int64, answer string, correct bool, feedback string) (*AttemptResult, error) {
	r := &AttemptResult{
		LearnerID:  learnerID,
		ItemID:     itemID,
		CategoryID: categoryID,
		Answer:     answer,
		Correct:    correct,
		Feedback:   feedback,
		CreatedAt:  time.Now().UTC(),
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}

	return r, nil
}

// Validate checks the AttemptResult fields.
func (r *AttemptResult) Validate() error {
	if r.LearnerID == uuid.Nil {
		return ErrAttemptLearnerEmpty
	}
	if r.ItemID == 0 {
		return ErrAttemptItemZero
	}
	if r.Answer == "" {
		return ErrAttemptAnswerEmpty
	}
	return nil
}
