package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/lingualab/lingua-api/internal/platform/logger"
	"github.com/lingualab/lingua-api/internal/service"
)

// ProgressHandler handles attempt recording and review HTTP requests.
type ProgressHandler struct {
	progress *service.ProgressService
	logger   *slog.Logger
}

// NewProgressHandler creates a new ProgressHandler.
func NewProgressHandler(progress *service.ProgressService, logger *slog.Logger) *ProgressHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProgressHandler{
		progress: progress,
		logger:   logger.With(slog.String("component", "progress_handler")),
	}
}

// SubmitAnswer handles POST /attempts requests.
func (h *ProgressHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	learner, ok := learnerID(r)
	if !ok {
		RespondWithError(w, http.StatusUnauthorized, "Missing or invalid learner identity")
		return
	}

	var req SubmitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ItemID == 0 || req.Language == "" || req.Answer == "" {
		RespondWithError(w, http.StatusBadRequest, "item_id, language and answer are required")
		return
	}

	result, err := h.progress.RecordAttempt(r.Context(), service.RecordAttemptRequest{
		LearnerID: learner,
		ItemID:    req.ItemID,
		Language:  req.Language,
		Answer:    req.Answer,
	})
	if err != nil {
		log.Error("failed to record attempt",
			slog.String("error", err.Error()),
			slog.Int64("item_id", req.ItemID))
		RespondWithError(w, MapErrorToStatusCode(err), GetSafeErrorMessage(err))
		return
	}

	RespondWithJSON(w, http.StatusCreated, toAttemptResponse(result))
}

// PinResult handles POST /attempts/{attemptID}/pin requests.
func (h *ProgressHandler) PinResult(w http.ResponseWriter, r *http.Request) {
	h.setPin(w, r, true)
}

// UnpinResult handles DELETE /attempts/{attemptID}/pin requests.
func (h *ProgressHandler) UnpinResult(w http.ResponseWriter, r *http.Request) {
	h.setPin(w, r, false)
}

func (h *ProgressHandler) setPin(w http.ResponseWriter, r *http.Request, pin bool) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	learner, ok := learnerID(r)
	if !ok {
		RespondWithError(w, http.StatusUnauthorized, "Missing or invalid learner identity")
		return
	}

	attemptID, err := strconv.ParseInt(chi.URLParam(r, "attemptID"), 10, 64)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid attempt ID")
		return
	}

	if pin {
		err = h.progress.PinResult(r.Context(), learner, attemptID)
	} else {
		err = h.progress.UnpinResult(r.Context(), learner, attemptID)
	}
	if err != nil {
		log.Error("failed to update pin",
			slog.String("error", err.Error()),
			slog.Int64("attempt_id", attemptID),
			slog.Bool("pin", pin))
		RespondWithError(w, MapErrorToStatusCode(err), GetSafeErrorMessage(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Mistakes handles GET /categories/{categoryID}/mistakes requests.
func (h *ProgressHandler) Mistakes(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	learner, ok := learnerID(r)
	if !ok {
		RespondWithError(w, http.StatusUnauthorized, "Missing or invalid learner identity")
		return
	}

	categoryID, err := strconv.ParseInt(chi.URLParam(r, "categoryID"), 10, 64)
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid category ID")
		return
	}

	mistakes, err := h.progress.MistakesFor(r.Context(), learner, categoryID)
	if err != nil {
		log.Error("failed to list mistakes",
			slog.String("error", err.Error()),
			slog.Int64("category_id", categoryID))
		RespondWithError(w, MapErrorToStatusCode(err), GetSafeErrorMessage(err))
		return
	}

	out := MistakesResponse{Mistakes: make([]AttemptResponse, 0, len(mistakes))}
	for _, m := range mistakes {
		out.Mistakes = append(out.Mistakes, toAttemptResponse(m))
	}
	RespondWithJSON(w, http.StatusOK, out)
}
