package api

import (
	"time"

	"github.com/lingualab/lingua-api/internal/domain"
	"github.com/lingualab/lingua-api/internal/service"
)

// NextItemRequest is the request body for selecting the next learning item.
type NextItemRequest struct {
	CategoryID   int64    `json:"category_id"`
	LessonID     *int64   `json:"lesson_id,omitempty"`
	Kind         string   `json:"kind"`
	Language     string   `json:"language"`
	ExcludeWords []string `json:"exclude_words,omitempty"`
	Difficulty   string   `json:"difficulty,omitempty"`
}

// NextItemResponse is the served learning item payload.
type NextItemResponse struct {
	ItemID          int64    `json:"item_id"`
	Kind            string   `json:"kind"`
	Text            string   `json:"text"`
	ImageURL        string   `json:"image_url,omitempty"`
	Translation     string   `json:"translation"`
	ScrambledTokens []string `json:"scrambled_tokens"`
	Hints           []string `json:"hints,omitempty"`
	Explanation     string   `json:"explanation,omitempty"`
}

func toNextItemResponse(res *service.NextItemResponse) NextItemResponse {
	return NextItemResponse{
		ItemID:          res.Item.ID,
		Kind:            string(res.Item.Kind),
		Text:            res.Item.Text,
		ImageURL:        res.Item.ImageURL,
		Translation:     res.Translation.Text,
		ScrambledTokens: res.ScrambledTokens,
		Hints:           res.Translation.Hints,
		Explanation:     res.Translation.Explanation,
	}
}

// NextSituationRequest is the request body for starting a dialogue scenario.
type NextSituationRequest struct {
	CategoryID *int64 `json:"category_id,omitempty"`
	Language   string `json:"language"`
	Difficulty string `json:"difficulty,omitempty"`
}

// SituationResponse is the served dialogue scenario payload.
type SituationResponse struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Difficulty  string `json:"difficulty"`
	FreeChat    bool   `json:"free_chat"`
	MaxMessages int    `json:"max_messages"`
}

func toSituationResponse(sit *domain.Situation) SituationResponse {
	return SituationResponse{
		ID:          sit.ID,
		Title:       sit.Title,
		Description: sit.Description,
		Difficulty:  string(sit.Difficulty),
		FreeChat:    sit.FreeChat,
		MaxMessages: sit.MaxMessages,
	}
}

// SubmitAnswerRequest is the request body for grading a learner's answer.
type SubmitAnswerRequest struct {
	ItemID   int64  `json:"item_id"`
	Language string `json:"language"`
	Answer   string `json:"answer"`
}

// AttemptResponse is a graded attempt result.
type AttemptResponse struct {
	ID        int64     `json:"id"`
	ItemID    int64     `json:"item_id"`
	Answer    string    `json:"answer"`
	Correct   bool      `json:"correct"`
	Feedback  string    `json:"feedback"`
	Pinned    bool      `json:"pinned"`
	CreatedAt time.Time `json:"created_at"`
}

func toAttemptResponse(r *domain.AttemptResult) AttemptResponse {
	return AttemptResponse{
		ID:        r.ID,
		ItemID:    r.ItemID,
		Answer:    r.Answer,
		Correct:   r.Correct,
		Feedback:  r.Feedback,
		Pinned:    r.Pinned,
		CreatedAt: r.CreatedAt,
	}
}

// MistakesResponse is the review queue for a category.
type MistakesResponse struct {
	Mistakes []AttemptResponse `json:"mistakes"`
}
