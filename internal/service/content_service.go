package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"

	"github.com/google/uuid"
	"github.com/lingualab/lingua-api/internal/domain"
	"github.com/lingualab/lingua-api/internal/domain/rotation"
	"github.com/lingualab/lingua-api/internal/events"
	"github.com/lingualab/lingua-api/internal/generation"
	"github.com/lingualab/lingua-api/internal/platform/logger"
	"github.com/lingualab/lingua-api/internal/session"
	"github.com/lingualab/lingua-api/internal/store"
	"github.com/lingualab/lingua-api/internal/task"
)

// ImageLookup resolves an illustrative image URL for generated vocabulary.
// Lookups never fail; a placeholder is substituted on any error.
type ImageLookup interface {
	LookupImage(ctx context.Context, query string) string
}

// NextItemRequest asks the selector for the next learning item to serve.
type NextItemRequest struct {
	LearnerID    uuid.UUID
	CategoryID   int64
	LessonID     *int64
	Kind         domain.ContentKind
	Language     string
	ExcludeWords []string
	Difficulty   domain.Difficulty
}

// NextItemResponse is the assembled payload for a served item.
type NextItemResponse struct {
	Item *domain.ContentItem

	// Translation is the learner-language rendering of the item.
	Translation *domain.Translation

	// ScrambledTokens is the translation's token list in shuffled order.
	// The shuffle is not seeded and carries no reproducibility guarantee.
	ScrambledTokens []string
}

// NextSituationRequest asks the selector for the next dialogue scenario.
type NextSituationRequest struct {
	CategoryID *int64
	Language   string
	Difficulty domain.Difficulty
}

// ContentService is the selector: it decides, per request, whether to serve
// a cached item or synthesize a new one, and keeps the usage ledger and
// dedup scope consistent while doing so.
type ContentService struct {
	db         *sql.DB
	content    store.ContentStore
	situations store.SituationStore
	history    store.UsageHistoryStore
	generator  generation.Generator
	images     ImageLookup
	emitter    events.EventEmitter
	scopes     *session.Registry

	// minPoolSize triggers a background refill event when a pool shrinks
	// below it; refillBatch is how many items one refill generates.
	minPoolSize int
	refillBatch int

	logger *slog.Logger
}

// NewContentService creates a ContentService.
// Returns an error if any required dependency is nil.
func NewContentService(
	db *sql.DB,
	content store.ContentStore,
	situations store.SituationStore,
	history store.UsageHistoryStore,
	generator generation.Generator,
	images ImageLookup,
	emitter events.EventEmitter,
	scopes *session.Registry,
	minPoolSize, refillBatch int,
	logger *slog.Logger,
) (*ContentService, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	if content == nil {
		return nil, errors.New("content store cannot be nil")
	}
	if situations == nil {
		return nil, errors.New("situation store cannot be nil")
	}
	if history == nil {
		return nil, errors.New("usage history store cannot be nil")
	}
	if generator == nil {
		return nil, errors.New("generator cannot be nil")
	}
	if images == nil {
		return nil, errors.New("image lookup cannot be nil")
	}
	if scopes == nil {
		return nil, errors.New("scope registry cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &ContentService{
		db:          db,
		content:     content,
		situations:  situations,
		history:     history,
		generator:   generator,
		images:      images,
		emitter:     emitter,
		scopes:      scopes,
		minPoolSize: minPoolSize,
		refillBatch: refillBatch,
		logger:      logger.With(slog.String("component", "content_service")),
	}, nil
}

// Ensure ContentService satisfies the refill contract of the task package.
var _ task.PoolRefiller = (*ContentService)(nil)

// NextItem selects the next learning item for the request: it filters the
// cached pool through the dedup scope and exclusion words, generates a new
// item when nothing usable is cached, and otherwise serves the least-used
// candidate. Exclusions are relaxed before delivery is ever blocked.
func (s *ContentService) NextItem(ctx context.Context, req NextItemRequest) (*NextItemResponse, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	pool, err := s.content.FindItems(ctx, req.CategoryID, req.LessonID)
	if err != nil {
		return nil, s.wrapStoreErr("next_item", "failed to load content pool", err)
	}

	kindPool := filterByKind(pool, req.Kind)
	scope, err := s.attemptScope(ctx, req.LearnerID, req.LessonID)
	if err != nil {
		return nil, err
	}
	candidates := filterCandidates(kindPool, scope, req.ExcludeWords)

	var item *domain.ContentItem
	switch {
	case len(candidates) > 0:
		selected, _ := rotation.LeastUsed(candidates)
		item = selected

	default:
		// Nothing usable is cached. Generating a fresh item beats repeating
		// one mid-lesson; the cached pool remains the fallback.
		generated, genErr := s.generateItem(ctx, req)
		if genErr == nil {
			item = generated
			break
		}
		if len(kindPool) == 0 {
			log.Warn("generation failed with empty pool",
				slog.Int64("category_id", req.CategoryID),
				slog.String("error", genErr.Error()))
			return nil, genErr
		}
		// Relax exclusions rather than block delivery: first re-admit
		// excluded vocabulary, then re-admit already-served items.
		log.Info("generation failed, falling back to cached pool",
			slog.Int64("category_id", req.CategoryID),
			slog.String("error", genErr.Error()))
		relaxed := filterCandidates(kindPool, scope, nil)
		if len(relaxed) == 0 {
			relaxed = kindPool
		}
		selected, _ := rotation.LeastUsed(relaxed)
		item = selected
	}

	if err := s.touchPool(ctx, req, item, kindPool); err != nil {
		return nil, err
	}

	tr, err := s.getOrCreateTranslation(ctx, item, req.Language)
	if err != nil {
		return nil, err
	}

	scope.MarkUsed(item.ID)
	if req.LessonID != nil {
		if err := s.history.RecordServed(ctx, req.LearnerID, *req.LessonID, item.ID); err != nil {
			return nil, s.wrapStoreErr("next_item", "failed to record served item", err)
		}
	}

	s.maybeRequestRefill(ctx, req, len(kindPool))

	return &NextItemResponse{
		Item:            item,
		Translation:     tr,
		ScrambledTokens: shuffleTokens(tr.Tokens),
	}, nil
}

// attemptScope returns the dedup scope for the request. When the in-memory
// registry has no scope for the (learner, lesson) pair, the scope is rebuilt
// from the durable lesson history, so a restart mid-attempt does not reopen
// items the learner has already seen.
func (s *ContentService) attemptScope(
	ctx context.Context,
	learnerID uuid.UUID,
	lessonID *int64,
) (*session.Scope, error) {
	key := scopeLessonID(lessonID)
	if scope, ok := s.scopes.Lookup(learnerID, key); ok {
		return scope, nil
	}
	if lessonID == nil {
		// Unscoped requests have no durable history to rebuild from.
		return s.scopes.Get(learnerID, key), nil
	}

	served, err := s.history.ListServed(ctx, learnerID, *lessonID)
	if err != nil {
		return nil, s.wrapStoreErr("next_item", "failed to load lesson history", err)
	}
	return s.scopes.Restore(learnerID, key, served), nil
}

// touchPool records the selection on the usage ledger: reset-if-exhausted as
// a post-check, then the use increment for the served item.
func (s *ContentService) touchPool(
	ctx context.Context,
	req NextItemRequest,
	item *domain.ContentItem,
	kindPool []*domain.ContentItem,
) error {
	if rotation.Exhausted(kindPool, rotation.DefaultResetThreshold) {
		if _, err := s.content.ResetPoolIfExhausted(
			ctx, req.CategoryID, req.LessonID, rotation.DefaultResetThreshold,
		); err != nil {
			return s.wrapStoreErr("next_item", "failed to reset exhausted pool", err)
		}
	}

	if err := s.content.RecordUse(ctx, item.ID); err != nil {
		return s.wrapStoreErr("next_item", "failed to record item use", err)
	}
	return nil
}

// generateItem synthesizes a new content item for the request and persists
// it together with its translation in one transaction, so a generation that
// cannot be committed leaves no orphaned record.
func (s *ContentService) generateItem(ctx context.Context, req NextItemRequest) (*domain.ContentItem, error) {
	category, err := s.content.GetCategory(ctx, req.CategoryID)
	if err != nil {
		return nil, s.wrapStoreErr("generate_item", "failed to load category", err)
	}

	genReq := generation.Request{
		Category:     category.Name,
		Language:     req.Language,
		ExcludeWords: req.ExcludeWords,
		Difficulty:   req.Difficulty,
	}
	if req.LessonID != nil {
		lesson, err := s.content.GetLesson(ctx, *req.LessonID)
		if err != nil {
			return nil, s.wrapStoreErr("generate_item", "failed to load lesson", err)
		}
		genReq.Lesson = lesson.Name

		// Vocabulary already served in the attempt must not come back as a
		// freshly generated item.
		served, err := s.history.ServedWords(ctx, req.LearnerID, *req.LessonID)
		if err != nil {
			return nil, s.wrapStoreErr("generate_item", "failed to load served words", err)
		}
		if len(served) > 0 {
			genReq.ExcludeWords = append(append([]string(nil), req.ExcludeWords...), served...)
		}
	}

	var item *domain.ContentItem
	var trText, trExplanation string
	var trTokens, trHints []string

	switch req.Kind {
	case domain.ContentKindWord:
		payload, err := s.generator.GenerateFlashcard(ctx, genReq)
		if err != nil {
			return nil, err
		}
		item, err = domain.NewContentItem(req.CategoryID, req.LessonID, req.Kind, payload.Word)
		if err != nil {
			return nil, NewServiceError("content", "generate_item", "invalid generated item", err)
		}
		item.ImageURL = s.images.LookupImage(ctx, payload.Translation)
		trText = payload.Translation
		trExplanation = payload.Explanation
		trTokens = strings.Fields(payload.Translation)
		if len(trTokens) == 0 {
			trTokens = []string{payload.Translation}
		}

	case domain.ContentKindSentence:
		payload, err := s.generator.GenerateSentence(ctx, genReq)
		if err != nil {
			return nil, err
		}
		item, err = domain.NewContentItem(req.CategoryID, req.LessonID, req.Kind, payload.Sentence)
		if err != nil {
			return nil, NewServiceError("content", "generate_item", "invalid generated item", err)
		}
		trText = payload.Translation
		trExplanation = payload.Explanation
		trTokens = payload.Tokens
		trHints = generation.HintTexts(payload.Hints)

	default:
		return nil, NewServiceError("content", "generate_item",
			fmt.Sprintf("unsupported content kind %q", req.Kind), domain.ErrValidation)
	}

	// Item and translation commit together; a failed persistence step must
	// not leave an orphaned item behind.
	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txContent := s.content.WithTx(tx)
		if err := txContent.CreateItem(ctx, item); err != nil {
			return err
		}
		tr, err := domain.NewTranslation(item.ID, req.Language, trText, trTokens, trHints, trExplanation)
		if err != nil {
			return err
		}
		return txContent.CreateTranslation(ctx, tr)
	})
	if err != nil {
		return nil, s.wrapStoreErr("generate_item", "failed to persist generated item", err)
	}

	return item, nil
}

// getOrCreateTranslation resolves the item's translation for the language,
// generating one lazily when absent. Two concurrent callers may both find
// no translation and both generate; the unique (item, language) constraint
// lets exactly one insert win, and the loser re-fetches the winner's row and
// discards its own payload. Translations are immutable once written so
// grading stays stable.
func (s *ContentService) getOrCreateTranslation(
	ctx context.Context,
	item *domain.ContentItem,
	language string,
) (*domain.Translation, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	tr, err := s.content.GetTranslation(ctx, item.ID, language)
	if err == nil {
		return tr, nil
	}
	if !errors.Is(err, store.ErrTranslationNotFound) {
		return nil, s.wrapStoreErr("get_or_create_translation", "failed to load translation", err)
	}

	payload, err := s.generator.Translate(ctx, item.Text, language)
	if err != nil {
		return nil, err
	}

	fresh, err := domain.NewTranslation(
		item.ID, language, payload.Text, payload.Tokens,
		generation.HintTexts(payload.Hints), payload.Explanation,
	)
	if err != nil {
		return nil, NewServiceError("content", "get_or_create_translation",
			"invalid generated translation", err)
	}

	if err := s.content.CreateTranslation(ctx, fresh); err != nil {
		if errors.Is(err, store.ErrTranslationExists) {
			// A concurrent writer committed first; serve its record.
			log.Debug("lost translation race, fetching winner",
				slog.Int64("item_id", item.ID),
				slog.String("language", language))
			return s.content.GetTranslation(ctx, item.ID, language)
		}
		return nil, s.wrapStoreErr("get_or_create_translation", "failed to persist translation", err)
	}

	return fresh, nil
}

// NextSituation selects the next dialogue scenario, rotating through the
// situation pool with the same least-used policy as content items and
// generating a new scenario when the pool is empty.
func (s *ContentService) NextSituation(ctx context.Context, req NextSituationRequest) (*domain.Situation, error) {
	pool, err := s.situations.FindSituations(ctx, req.CategoryID)
	if err != nil {
		return nil, s.wrapStoreErr("next_situation", "failed to load situation pool", err)
	}

	var sit *domain.Situation
	if len(pool) == 0 {
		sit, err = s.generateSituation(ctx, req)
		if err != nil {
			return nil, err
		}
	} else {
		selected, _ := rotation.LeastUsed(pool)
		sit = selected
		if rotation.Exhausted(pool, rotation.DefaultResetThreshold) {
			if _, err := s.situations.ResetPoolIfExhausted(
				ctx, req.CategoryID, rotation.DefaultResetThreshold,
			); err != nil {
				return nil, s.wrapStoreErr("next_situation", "failed to reset situation pool", err)
			}
		}
	}

	if err := s.situations.RecordUse(ctx, sit.ID); err != nil {
		return nil, s.wrapStoreErr("next_situation", "failed to record situation use", err)
	}

	return sit, nil
}

func (s *ContentService) generateSituation(ctx context.Context, req NextSituationRequest) (*domain.Situation, error) {
	genReq := generation.Request{
		Language:   req.Language,
		Difficulty: req.Difficulty,
	}
	if req.CategoryID != nil {
		category, err := s.content.GetCategory(ctx, *req.CategoryID)
		if err != nil {
			return nil, s.wrapStoreErr("next_situation", "failed to load category", err)
		}
		genReq.Category = category.Name
	}

	payload, err := s.generator.GenerateSituation(ctx, genReq)
	if err != nil {
		return nil, err
	}

	difficulty, err := domain.ParseDifficulty(payload.Difficulty)
	if err != nil {
		difficulty = domain.DifficultyNormal
	}

	sit, err := domain.NewSituation(
		req.CategoryID, payload.Title, payload.Description,
		difficulty, false, payload.MaxMessages,
	)
	if err != nil {
		return nil, NewServiceError("content", "next_situation", "invalid generated situation", err)
	}

	if err := s.situations.CreateSituation(ctx, sit); err != nil {
		return nil, s.wrapStoreErr("next_situation", "failed to persist situation", err)
	}

	return sit, nil
}

// RefillPool generates up to count new items for the pool, excluding the
// vocabulary already cached there. Used by the background refill task; a
// partial batch is reported alongside the error that stopped it.
func (s *ContentService) RefillPool(
	ctx context.Context,
	categoryID int64,
	lessonID *int64,
	kind domain.ContentKind,
	count int,
) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	pool, err := s.content.FindItems(ctx, categoryID, lessonID)
	if err != nil {
		return 0, s.wrapStoreErr("refill_pool", "failed to load content pool", err)
	}

	exclude := make([]string, 0, len(pool))
	for _, item := range pool {
		exclude = append(exclude, item.Text)
	}

	created := 0
	for i := 0; i < count; i++ {
		req := NextItemRequest{
			CategoryID:   categoryID,
			LessonID:     lessonID,
			Kind:         kind,
			Language:     "English",
			ExcludeWords: exclude,
			Difficulty:   domain.DifficultyNormal,
		}
		item, err := s.generateItem(ctx, req)
		if err != nil {
			log.Warn("refill generation failed",
				slog.Int64("category_id", categoryID),
				slog.Int("created", created),
				slog.String("error", err.Error()))
			return created, err
		}
		created++
		exclude = append(exclude, item.Text)
	}

	log.Info("pool refilled",
		slog.Int64("category_id", categoryID),
		slog.Int("created", created))
	return created, nil
}

// StartAttempt begins a fresh dedup scope for the learner's lesson attempt.
func (s *ContentService) StartAttempt(learnerID uuid.UUID, lessonID int64) {
	s.scopes.Begin(learnerID, lessonID)
}

// EndAttempt discards the dedup scope and the persisted lesson history,
// ending the exclusion window for the attempt.
func (s *ContentService) EndAttempt(ctx context.Context, learnerID uuid.UUID, lessonID int64) error {
	s.scopes.End(learnerID, lessonID)
	if err := s.history.ClearLesson(ctx, learnerID, lessonID); err != nil {
		return s.wrapStoreErr("end_attempt", "failed to clear lesson history", err)
	}
	return nil
}

// maybeRequestRefill emits a background refill event when the pool has
// shrunk below the configured minimum. Emission failures are logged, never
// surfaced; refill is an optimization, not part of the request contract.
func (s *ContentService) maybeRequestRefill(ctx context.Context, req NextItemRequest, poolSize int) {
	if s.emitter == nil || s.minPoolSize <= 0 || poolSize >= s.minPoolSize {
		return
	}

	log := logger.FromContextOrDefault(ctx, s.logger)

	event, err := events.NewTaskRequestEvent(task.TaskTypePoolRefill, task.PoolRefillPayload{
		CategoryID: req.CategoryID,
		LessonID:   req.LessonID,
		Kind:       string(req.Kind),
		Count:      s.refillBatch,
	})
	if err != nil {
		log.Error("failed to build refill event", slog.String("error", err.Error()))
		return
	}

	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		log.Error("failed to emit refill event",
			slog.String("error", err.Error()),
			slog.Int64("category_id", req.CategoryID))
	}
}

// wrapStoreErr maps store failures onto the service error taxonomy: not
// found and duplicate conditions pass through for callers to match, and
// everything else becomes a persistence failure.
func (s *ContentService) wrapStoreErr(operation, message string, err error) error {
	if store.IsNotFoundError(err) || store.IsDuplicateError(err) || errors.Is(err, domain.ErrValidation) {
		return err
	}
	return NewServiceError("content", operation, message,
		fmt.Errorf("%w: %v", ErrPersistenceFailed, err))
}

func scopeLessonID(lessonID *int64) int64 {
	if lessonID != nil {
		return *lessonID
	}
	return 0
}

func filterByKind(pool []*domain.ContentItem, kind domain.ContentKind) []*domain.ContentItem {
	out := make([]*domain.ContentItem, 0, len(pool))
	for _, item := range pool {
		if item.Kind == kind {
			out = append(out, item)
		}
	}
	return out
}

// filterCandidates removes items already served in the attempt scope and
// items whose canonical text matches an exclusion word.
func filterCandidates(
	pool []*domain.ContentItem,
	scope *session.Scope,
	excludeWords []string,
) []*domain.ContentItem {
	excluded := make(map[string]bool, len(excludeWords))
	for _, w := range excludeWords {
		excluded[strings.ToLower(strings.TrimSpace(w))] = true
	}

	out := make([]*domain.ContentItem, 0, len(pool))
	for _, item := range pool {
		if scope.IsUsed(item.ID) {
			continue
		}
		if excluded[strings.ToLower(item.Text)] {
			continue
		}
		out = append(out, item)
	}
	return out
}

// shuffleTokens returns the tokens in random order. For inputs with at
// least two distinct tokens the result almost always differs from the
// input order; identical shuffles are re-drawn a few times to keep that
// property without promising determinism.
func shuffleTokens(tokens []string) []string {
	out := make([]string, len(tokens))
	copy(out, tokens)

	if !hasDistinctTokens(tokens) {
		return out
	}

	for attempt := 0; attempt < 8; attempt++ {
		rand.Shuffle(len(out), func(i, j int) {
			out[i], out[j] = out[j], out[i]
		})
		if !equalTokens(out, tokens) {
			break
		}
	}
	return out
}

func hasDistinctTokens(tokens []string) bool {
	for i := 1; i < len(tokens); i++ {
		if tokens[i] != tokens[0] {
			return true
		}
	}
	return false
}

func equalTokens(a, b []string) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
