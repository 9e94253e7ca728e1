package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/lingualab/lingua-api/internal/domain"
	"github.com/lingualab/lingua-api/internal/platform/logger"
	"github.com/lingualab/lingua-api/internal/service"
)

// ContentHandler handles content selection HTTP requests.
type ContentHandler struct {
	content *service.ContentService
	logger  *slog.Logger
}

// NewContentHandler creates a new ContentHandler.
func NewContentHandler(content *service.ContentService, logger *slog.Logger) *ContentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContentHandler{
		content: content,
		logger:  logger.With(slog.String("component", "content_handler")),
	}
}

// NextItem handles POST /content/next requests.
func (h *ContentHandler) NextItem(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	learner, ok := learnerID(r)
	if !ok {
		RespondWithError(w, http.StatusUnauthorized, "Missing or invalid learner identity")
		return
	}

	var req NextItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.CategoryID == 0 || req.Language == "" {
		RespondWithError(w, http.StatusBadRequest, "category_id and language are required")
		return
	}

	kind := domain.ContentKind(req.Kind)
	if kind != domain.ContentKindWord && kind != domain.ContentKindSentence {
		RespondWithError(w, http.StatusBadRequest, "kind must be word or sentence")
		return
	}

	difficulty, err := domain.ParseDifficulty(req.Difficulty)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "difficulty must be normal or harder")
		return
	}

	res, err := h.content.NextItem(r.Context(), service.NextItemRequest{
		LearnerID:    learner,
		CategoryID:   req.CategoryID,
		LessonID:     req.LessonID,
		Kind:         kind,
		Language:     req.Language,
		ExcludeWords: req.ExcludeWords,
		Difficulty:   difficulty,
	})
	if err != nil {
		log.Error("failed to select next item",
			slog.String("error", err.Error()),
			slog.Int64("category_id", req.CategoryID))
		RespondWithError(w, MapErrorToStatusCode(err), GetSafeErrorMessage(err))
		return
	}

	RespondWithJSON(w, http.StatusOK, toNextItemResponse(res))
}

// NextSituation handles POST /situations/next requests.
func (h *ContentHandler) NextSituation(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	if _, ok := learnerID(r); !ok {
		RespondWithError(w, http.StatusUnauthorized, "Missing or invalid learner identity")
		return
	}

	var req NextSituationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Language == "" {
		RespondWithError(w, http.StatusBadRequest, "language is required")
		return
	}

	difficulty, err := domain.ParseDifficulty(req.Difficulty)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "difficulty must be normal or harder")
		return
	}

	sit, err := h.content.NextSituation(r.Context(), service.NextSituationRequest{
		CategoryID: req.CategoryID,
		Language:   req.Language,
		Difficulty: difficulty,
	})
	if err != nil {
		log.Error("failed to select next situation", slog.String("error", err.Error()))
		RespondWithError(w, MapErrorToStatusCode(err), GetSafeErrorMessage(err))
		return
	}

	RespondWithJSON(w, http.StatusOK, toSituationResponse(sit))
}

// StartAttempt handles POST /lessons/{lessonID}/attempt requests. It opens
// a fresh dedup scope for the learner's lesson attempt.
func (h *ContentHandler) StartAttempt(w http.ResponseWriter, r *http.Request) {
	learner, ok := learnerID(r)
	if !ok {
		RespondWithError(w, http.StatusUnauthorized, "Missing or invalid learner identity")
		return
	}

	lessonID, err := strconv.ParseInt(chi.URLParam(r, "lessonID"), 10, 64)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid lesson ID")
		return
	}

	h.content.StartAttempt(learner, lessonID)
	w.WriteHeader(http.StatusNoContent)
}

// EndAttempt handles DELETE /lessons/{lessonID}/attempt requests. It ends
// the dedup scope and clears the lesson's served history.
func (h *ContentHandler) EndAttempt(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	learner, ok := learnerID(r)
	if !ok {
		RespondWithError(w, http.StatusUnauthorized, "Missing or invalid learner identity")
		return
	}

	lessonID, err := strconv.ParseInt(chi.URLParam(r, "lessonID"), 10, 64)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid lesson ID")
		return
	}

	if err := h.content.EndAttempt(r.Context(), learner, lessonID); err != nil {
		log.Error("failed to end lesson attempt",
			slog.String("error", err.Error()),
			slog.Int64("lesson_id", lessonID))
		RespondWithError(w, MapErrorToStatusCode(err), GetSafeErrorMessage(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
