package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lingualab/lingua-api/internal/domain"
	"github.com/lingualab/lingua-api/internal/generation"
	"github.com/lingualab/lingua-api/internal/session"
	"github.com/lingualab/lingua-api/internal/store"
	"github.com/lingualab/lingua-api/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type contentFixture struct {
	svc        *ContentService
	content    *fakeContentStore
	situations *fakeSituationStore
	history    *fakeHistoryStore
	generator  *fakeGenerator
	images     *fakeImageLookup
	emitter    *recordingEmitter
	scopes     *session.Registry
}

func newContentFixture(t *testing.T) *contentFixture {
	t.Helper()

	f := &contentFixture{
		content:    newFakeContentStore(),
		situations: newFakeSituationStore(),
		history:    newFakeHistoryStore(),
		generator:  &fakeGenerator{},
		images:     &fakeImageLookup{},
		emitter:    &recordingEmitter{},
		scopes:     session.NewRegistry(),
	}
	f.history.content = f.content

	svc, err := NewContentService(
		testDB(t),
		f.content,
		f.situations,
		f.history,
		f.generator,
		f.images,
		f.emitter,
		f.scopes,
		0, // refill disabled unless a test opts in
		5,
		nil,
	)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func usedAt(s string) *time.Time {
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &ts
}

func wordItem(id, categoryID int64, text string, usedCount int, lastUsed *time.Time) *domain.ContentItem {
	return &domain.ContentItem{
		ID:         id,
		CategoryID: categoryID,
		Kind:       domain.ContentKindWord,
		Text:       text,
		UsedCount:  usedCount,
		LastUsedAt: lastUsed,
		CreatedAt:  time.Now().UTC(),
	}
}

func seedTranslation(t *testing.T, f *contentFixture, itemID int64, language, text string, tokens []string) {
	t.Helper()
	tr, err := domain.NewTranslation(itemID, language, text, tokens, nil, "")
	require.NoError(t, err)
	f.content.addTranslation(tr)
}

func baseRequest(learner uuid.UUID) NextItemRequest {
	return NextItemRequest{
		LearnerID:  learner,
		CategoryID: 1,
		Kind:       domain.ContentKindWord,
		Language:   "Spanish",
		Difficulty: domain.DifficultyNormal,
	}
}

func TestNextItemServesLeastUsedCachedItem(t *testing.T) {
	t.Parallel()

	f := newContentFixture(t)
	f.content.addCategory(1, "Animals")
	f.content.addItem(wordItem(1, 1, "dog", 4, usedAt("2026-01-04T10:00:00Z")))
	f.content.addItem(wordItem(2, 1, "cat", 1, usedAt("2026-01-02T10:00:00Z")))
	f.content.addItem(wordItem(3, 1, "bird", 2, usedAt("2026-01-03T10:00:00Z")))
	seedTranslation(t, f, 2, "Spanish", "gato", []string{"gato"})

	res, err := f.svc.NextItem(context.Background(), baseRequest(uuid.New()))
	require.NoError(t, err)

	assert.Equal(t, int64(2), res.Item.ID)
	assert.Equal(t, "gato", res.Translation.Text)

	// The serve is recorded on the ledger.
	assert.Equal(t, 2, f.content.items[2].UsedCount)
	require.NotNil(t, f.content.items[2].LastUsedAt)

	// A cached translation means no generator call at all.
	assert.Empty(t, f.generator.translateReqs)
}

func TestNextItemDoesNotRepeatWithinAttemptScope(t *testing.T) {
	t.Parallel()

	f := newContentFixture(t)
	f.content.addCategory(1, "Animals")
	f.content.addItem(wordItem(1, 1, "dog", 0, nil))
	f.content.addItem(wordItem(2, 1, "cat", 0, nil))
	seedTranslation(t, f, 1, "Spanish", "perro", []string{"perro"})
	seedTranslation(t, f, 2, "Spanish", "gato", []string{"gato"})

	learner := uuid.New()
	req := baseRequest(learner)

	first, err := f.svc.NextItem(context.Background(), req)
	require.NoError(t, err)
	second, err := f.svc.NextItem(context.Background(), req)
	require.NoError(t, err)

	assert.NotEqual(t, first.Item.ID, second.Item.ID)
}

func TestNextItemSkipsExcludedWords(t *testing.T) {
	t.Parallel()

	f := newContentFixture(t)
	f.content.addCategory(1, "Animals")
	f.content.addItem(wordItem(1, 1, "dog", 0, nil))
	f.content.addItem(wordItem(2, 1, "cat", 5, usedAt("2026-01-02T10:00:00Z")))
	seedTranslation(t, f, 2, "Spanish", "gato", []string{"gato"})

	req := baseRequest(uuid.New())
	req.ExcludeWords = []string{"Dog"}

	res, err := f.svc.NextItem(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Item.ID)
}

func TestNextItemScopeRebuiltFromHistoryAfterRestart(t *testing.T) {
	t.Parallel()

	f := newContentFixture(t)
	f.content.addCategory(1, "Animals")
	f.content.addLesson(7, 1, "Pets")
	lessonID := int64(7)

	words := []struct{ text, translation string }{
		{"dog", "perro"},
		{"cat", "gato"},
		{"bird", "pajaro"},
	}
	for i, w := range words {
		item := wordItem(int64(i+1), 1, w.text, 0, nil)
		item.LessonID = &lessonID
		f.content.addItem(item)
		seedTranslation(t, f, item.ID, "Spanish", w.translation, []string{w.translation})
	}
	// Make the unseen item the least attractive rotation pick, so only a
	// rebuilt scope routes around the already-served ones.
	f.content.items[3].UsedCount = 5
	f.content.items[3].LastUsedAt = usedAt("2026-01-03T10:00:00Z")

	learner := uuid.New()
	req := baseRequest(learner)
	req.LessonID = &lessonID

	first, err := f.svc.NextItem(context.Background(), req)
	require.NoError(t, err)
	second, err := f.svc.NextItem(context.Background(), req)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 2}, []int64{first.Item.ID, second.Item.ID})

	// A restart loses the in-memory registry but not the stores.
	restarted, err := NewContentService(
		testDB(t), f.content, f.situations, f.history, f.generator,
		f.images, f.emitter, session.NewRegistry(), 0, 5, nil,
	)
	require.NoError(t, err)

	third, err := restarted.NextItem(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(3), third.Item.ID)
}

func TestNextItemHistoryLoadFailure(t *testing.T) {
	t.Parallel()

	f := newContentFixture(t)
	f.content.addCategory(1, "Animals")
	f.content.addItem(wordItem(1, 1, "dog", 0, nil))
	f.history.listErr = errors.New("connection reset")

	lessonID := int64(7)
	req := baseRequest(uuid.New())
	req.LessonID = &lessonID

	_, err := f.svc.NextItem(context.Background(), req)
	assert.ErrorIs(t, err, ErrPersistenceFailed)
}

func TestNextItemGenerationExcludesServedWords(t *testing.T) {
	t.Parallel()

	f := newContentFixture(t)
	f.content.addCategory(1, "Animals")
	f.content.addLesson(7, 1, "Pets")
	lessonID := int64(7)

	item := wordItem(1, 1, "perro", 0, nil)
	item.LessonID = &lessonID
	f.content.addItem(item)
	seedTranslation(t, f, 1, "Spanish", "dog", []string{"dog"})

	f.generator.flashcardFn = func(generation.Request) (*generation.FlashcardPayload, error) {
		return &generation.FlashcardPayload{
			Word:        "gato",
			Translation: "cat",
			Explanation: "A pet.",
		}, nil
	}

	learner := uuid.New()
	req := baseRequest(learner)
	req.LessonID = &lessonID

	_, err := f.svc.NextItem(context.Background(), req)
	require.NoError(t, err)

	// The only cached item is now in scope, so the next request generates,
	// and the prompt exclusions carry the served vocabulary.
	_, err = f.svc.NextItem(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, f.generator.flashcardReqs, 1)
	assert.Contains(t, f.generator.flashcardReqs[0].ExcludeWords, "perro")
}

func TestNextItemUnknownCategory(t *testing.T) {
	t.Parallel()

	f := newContentFixture(t)

	_, err := f.svc.NextItem(context.Background(), baseRequest(uuid.New()))
	assert.ErrorIs(t, err, store.ErrCategoryNotFound)
}

func TestNextItemGeneratesWhenPoolEmpty(t *testing.T) {
	t.Parallel()

	f := newContentFixture(t)
	f.content.addCategory(1, "Animals")
	f.images.url = "https://img.example/dog.jpg"
	f.generator.flashcardFn = func(generation.Request) (*generation.FlashcardPayload, error) {
		return &generation.FlashcardPayload{
			Word:        "perro",
			Translation: "dog",
			Explanation: "A common pet.",
		}, nil
	}

	res, err := f.svc.NextItem(context.Background(), baseRequest(uuid.New()))
	require.NoError(t, err)

	assert.Equal(t, "perro", res.Item.Text)
	assert.Equal(t, "https://img.example/dog.jpg", res.Item.ImageURL)
	assert.NotZero(t, res.Item.ID)

	// Item and translation are both persisted.
	assert.Contains(t, f.content.items, res.Item.ID)
	stored, err := f.content.GetTranslation(context.Background(), res.Item.ID, "Spanish")
	require.NoError(t, err)
	assert.Equal(t, "dog", stored.Text)

	// The generated item counts as served immediately.
	assert.Equal(t, 1, f.content.items[res.Item.ID].UsedCount)
	assert.Equal(t, []string{"dog"}, f.images.queries)
}

func TestNextItemGeneratesWhenAllCandidatesFiltered(t *testing.T) {
	t.Parallel()

	f := newContentFixture(t)
	f.content.addCategory(1, "Animals")
	f.content.addItem(wordItem(1, 1, "dog", 3, usedAt("2026-01-02T10:00:00Z")))
	f.generator.flashcardFn = func(generation.Request) (*generation.FlashcardPayload, error) {
		return &generation.FlashcardPayload{Word: "gato", Translation: "cat"}, nil
	}

	req := baseRequest(uuid.New())
	req.ExcludeWords = []string{"dog"}

	res, err := f.svc.NextItem(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "gato", res.Item.Text)

	// The exclusion set reaches the generator.
	require.Len(t, f.generator.flashcardReqs, 1)
	assert.Equal(t, []string{"dog"}, f.generator.flashcardReqs[0].ExcludeWords)
}

func TestNextItemFallsBackToCacheWhenGenerationFails(t *testing.T) {
	t.Parallel()

	f := newContentFixture(t)
	f.content.addCategory(1, "Animals")
	f.content.addItem(wordItem(1, 1, "dog", 3, usedAt("2026-01-02T10:00:00Z")))
	seedTranslation(t, f, 1, "Spanish", "perro", []string{"perro"})
	f.generator.flashcardFn = func(generation.Request) (*generation.FlashcardPayload, error) {
		return nil, generation.ErrGenerationFailed
	}

	// Everything cached is excluded, generation is down; exclusions must be
	// relaxed rather than blocking delivery.
	req := baseRequest(uuid.New())
	req.ExcludeWords = []string{"dog"}

	res, err := f.svc.NextItem(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Item.ID)
}

func TestNextItemRelaxesAttemptScopeAsLastResort(t *testing.T) {
	t.Parallel()

	f := newContentFixture(t)
	f.content.addCategory(1, "Animals")
	f.content.addItem(wordItem(1, 1, "dog", 3, usedAt("2026-01-02T10:00:00Z")))
	seedTranslation(t, f, 1, "Spanish", "perro", []string{"perro"})
	f.generator.flashcardFn = func(generation.Request) (*generation.FlashcardPayload, error) {
		return nil, generation.ErrGenerationFailed
	}

	learner := uuid.New()
	req := baseRequest(learner)

	first, err := f.svc.NextItem(context.Background(), req)
	require.NoError(t, err)

	// The only item was already served in this attempt; repeating it beats
	// failing the request.
	second, err := f.svc.NextItem(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.Item.ID, second.Item.ID)
}

func TestNextItemGenerationFailureWithEmptyPool(t *testing.T) {
	t.Parallel()

	f := newContentFixture(t)
	f.content.addCategory(1, "Animals")
	f.generator.flashcardFn = func(generation.Request) (*generation.FlashcardPayload, error) {
		return nil, generation.ErrGenerationFailed
	}

	_, err := f.svc.NextItem(context.Background(), baseRequest(uuid.New()))
	assert.ErrorIs(t, err, generation.ErrGenerationFailed)
}

func TestNextItemResetsExhaustedPool(t *testing.T) {
	t.Parallel()

	f := newContentFixture(t)
	f.content.addCategory(1, "Animals")
	f.content.addItem(wordItem(1, 1, "dog", 11, usedAt("2026-01-01T10:00:00Z")))
	f.content.addItem(wordItem(2, 1, "cat", 12, usedAt("2026-01-02T10:00:00Z")))
	seedTranslation(t, f, 1, "Spanish", "perro", []string{"perro"})

	res, err := f.svc.NextItem(context.Background(), baseRequest(uuid.New()))
	require.NoError(t, err)

	// Whole pool was reset, then the served item got its fresh increment.
	assert.Equal(t, int64(1), res.Item.ID)
	assert.Equal(t, 1, f.content.items[1].UsedCount)
	assert.Equal(t, 0, f.content.items[2].UsedCount)
	assert.Nil(t, f.content.items[2].LastUsedAt)
}

func TestNextItemDoesNotResetLivePool(t *testing.T) {
	t.Parallel()

	f := newContentFixture(t)
	f.content.addCategory(1, "Animals")
	f.content.addItem(wordItem(1, 1, "dog", 11, usedAt("2026-01-01T10:00:00Z")))
	f.content.addItem(wordItem(2, 1, "cat", 10, usedAt("2026-01-02T10:00:00Z")))
	seedTranslation(t, f, 2, "Spanish", "gato", []string{"gato"})

	res, err := f.svc.NextItem(context.Background(), baseRequest(uuid.New()))
	require.NoError(t, err)

	// Item 2 sits exactly at the threshold, so no reset happens.
	assert.Equal(t, int64(2), res.Item.ID)
	assert.Equal(t, 11, f.content.items[1].UsedCount)
	assert.Equal(t, 0, f.content.resetCalls)
}

func TestNextItemCreatesTranslationLazily(t *testing.T) {
	t.Parallel()

	f := newContentFixture(t)
	f.content.addCategory(1, "Animals")
	f.content.addItem(wordItem(1, 1, "dog", 0, nil))
	f.generator.translateFn = func(text, language string) (*generation.TranslationPayload, error) {
		return &generation.TranslationPayload{
			Text:        "perro",
			Tokens:      []string{"perro"},
			Explanation: "Common noun.",
		}, nil
	}

	res, err := f.svc.NextItem(context.Background(), baseRequest(uuid.New()))
	require.NoError(t, err)

	assert.Equal(t, "perro", res.Translation.Text)
	assert.Equal(t, []string{"dog"}, f.generator.translateReqs)

	// The translation is persisted; the next request reuses it.
	f.generator.translateFn = func(string, string) (*generation.TranslationPayload, error) {
		return nil, errors.New("should not be called again")
	}
	res2, err := f.svc.NextItem(context.Background(), baseRequest(uuid.New()))
	require.NoError(t, err)
	assert.Equal(t, "perro", res2.Translation.Text)
}

func TestNextItemTranslationRaceServesWinner(t *testing.T) {
	t.Parallel()

	f := newContentFixture(t)
	f.content.addCategory(1, "Animals")
	f.content.addItem(wordItem(1, 1, "dog", 0, nil))

	winner, err := domain.NewTranslation(1, "Spanish", "perro", []string{"perro"}, nil, "")
	require.NoError(t, err)
	f.content.raceOnCreateTranslation = winner

	f.generator.translateFn = func(string, string) (*generation.TranslationPayload, error) {
		return &generation.TranslationPayload{Text: "can", Tokens: []string{"can"}}, nil
	}

	res, err := f.svc.NextItem(context.Background(), baseRequest(uuid.New()))
	require.NoError(t, err)

	// The concurrent writer's row wins; the loser's payload is discarded.
	assert.Equal(t, "perro", res.Translation.Text)
}

func TestNextItemScramblesTranslationTokens(t *testing.T) {
	t.Parallel()

	f := newContentFixture(t)
	f.content.addCategory(1, "Sentences")
	item := wordItem(1, 1, "I live in a big house", 0, nil)
	item.Kind = domain.ContentKindSentence
	f.content.addItem(item)

	tokens := []string{"Vivo", "en", "una", "casa", "grande"}
	seedTranslation(t, f, 1, "Spanish", "Vivo en una casa grande", tokens)

	req := baseRequest(uuid.New())
	req.Kind = domain.ContentKindSentence

	res, err := f.svc.NextItem(context.Background(), req)
	require.NoError(t, err)

	assert.ElementsMatch(t, tokens, res.ScrambledTokens)
	assert.NotEqual(t, tokens, res.ScrambledTokens)

	// The stored translation keeps its canonical order.
	assert.Equal(t, tokens, res.Translation.Tokens)
}

func TestNextItemRecordsLessonHistory(t *testing.T) {
	t.Parallel()

	f := newContentFixture(t)
	f.content.addCategory(1, "Animals")
	f.content.addLesson(7, 1, "Pets")
	lessonID := int64(7)
	item := wordItem(1, 1, "dog", 0, nil)
	item.LessonID = &lessonID
	f.content.addItem(item)
	seedTranslation(t, f, 1, "Spanish", "perro", []string{"perro"})

	learner := uuid.New()
	req := baseRequest(learner)
	req.LessonID = &lessonID

	_, err := f.svc.NextItem(context.Background(), req)
	require.NoError(t, err)

	served, err := f.history.ListServed(context.Background(), learner, lessonID)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, served)
}

func TestNextItemEmitsRefillEventWhenPoolLow(t *testing.T) {
	t.Parallel()

	f := newContentFixture(t)
	f.content.addCategory(1, "Animals")
	f.content.addItem(wordItem(1, 1, "dog", 0, nil))
	seedTranslation(t, f, 1, "Spanish", "perro", []string{"perro"})

	// Rebuild the service with refill enabled.
	svc, err := NewContentService(
		testDB(t), f.content, f.situations, f.history, f.generator,
		f.images, f.emitter, f.scopes, 3, 5, nil,
	)
	require.NoError(t, err)

	_, err = svc.NextItem(context.Background(), baseRequest(uuid.New()))
	require.NoError(t, err)

	require.Len(t, f.emitter.events, 1)
	event := f.emitter.events[0]
	assert.Equal(t, task.TaskTypePoolRefill, event.Type)

	var payload task.PoolRefillPayload
	require.NoError(t, event.UnmarshalPayload(&payload))
	assert.Equal(t, int64(1), payload.CategoryID)
	assert.Equal(t, 5, payload.Count)
	assert.Equal(t, "word", payload.Kind)
}

func TestNextItemNoRefillEventWhenPoolHealthy(t *testing.T) {
	t.Parallel()

	f := newContentFixture(t)
	f.content.addCategory(1, "Animals")
	for i := int64(1); i <= 4; i++ {
		f.content.addItem(wordItem(i, 1, "word"+string(rune('a'+i)), 0, nil))
	}
	seedTranslation(t, f, 1, "Spanish", "uno", []string{"uno"})

	svc, err := NewContentService(
		testDB(t), f.content, f.situations, f.history, f.generator,
		f.images, f.emitter, f.scopes, 3, 5, nil,
	)
	require.NoError(t, err)

	_, err = svc.NextItem(context.Background(), baseRequest(uuid.New()))
	require.NoError(t, err)
	assert.Empty(t, f.emitter.events)
}

func TestNextSituationRotatesPool(t *testing.T) {
	t.Parallel()

	f := newContentFixture(t)

	mk := func(id int64, title string, used int, last *time.Time) {
		f.situations.addSituation(&domain.Situation{
			ID: id, Title: title, Description: "desc",
			Difficulty: domain.DifficultyNormal, MaxMessages: 10,
			UsedCount: used, LastUsedAt: last, CreatedAt: time.Now().UTC(),
		})
	}
	mk(1, "Bakery", 2, usedAt("2026-01-02T10:00:00Z"))
	mk(2, "Airport", 0, nil)

	sit, err := f.svc.NextSituation(context.Background(), NextSituationRequest{
		Language:   "Spanish",
		Difficulty: domain.DifficultyNormal,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(2), sit.ID)
	assert.Equal(t, 1, f.situations.situations[2].UsedCount)
}

func TestNextSituationGeneratesWhenPoolEmpty(t *testing.T) {
	t.Parallel()

	f := newContentFixture(t)
	f.generator.situationFn = func(generation.Request) (*generation.SituationPayload, error) {
		return &generation.SituationPayload{
			Title:       "At the bakery",
			Description: "Order some bread.",
			Difficulty:  "normal",
			MaxMessages: 8,
		}, nil
	}

	sit, err := f.svc.NextSituation(context.Background(), NextSituationRequest{
		Language:   "Spanish",
		Difficulty: domain.DifficultyNormal,
	})
	require.NoError(t, err)

	assert.Equal(t, "At the bakery", sit.Title)
	assert.NotZero(t, sit.ID)
	assert.Equal(t, 1, f.situations.situations[sit.ID].UsedCount)
}

func TestNextSituationGenerationFailurePropagates(t *testing.T) {
	t.Parallel()

	f := newContentFixture(t)

	_, err := f.svc.NextSituation(context.Background(), NextSituationRequest{
		Language:   "Spanish",
		Difficulty: domain.DifficultyNormal,
	})
	assert.ErrorIs(t, err, generation.ErrGenerationFailed)
}

func TestRefillPoolExcludesCachedVocabulary(t *testing.T) {
	t.Parallel()

	f := newContentFixture(t)
	f.content.addCategory(1, "Animals")
	f.content.addItem(wordItem(1, 1, "dog", 0, nil))

	words := []string{"gato", "pájaro", "pez"}
	f.generator.flashcardFn = func(req generation.Request) (*generation.FlashcardPayload, error) {
		word := words[len(f.generator.flashcardReqs)-1]
		return &generation.FlashcardPayload{Word: word, Translation: word + " (en)"}, nil
	}

	created, err := f.svc.RefillPool(context.Background(), 1, nil, domain.ContentKindWord, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, created)

	// Every generation call excludes the cached pool plus earlier results.
	require.Len(t, f.generator.flashcardReqs, 3)
	assert.Equal(t, []string{"dog"}, f.generator.flashcardReqs[0].ExcludeWords)
	assert.Equal(t, []string{"dog", "gato"}, f.generator.flashcardReqs[1].ExcludeWords)
	assert.Equal(t, []string{"dog", "gato", "pájaro"}, f.generator.flashcardReqs[2].ExcludeWords)
}

func TestRefillPoolReportsPartialBatch(t *testing.T) {
	t.Parallel()

	f := newContentFixture(t)
	f.content.addCategory(1, "Animals")

	f.generator.flashcardFn = func(generation.Request) (*generation.FlashcardPayload, error) {
		if len(f.generator.flashcardReqs) > 2 {
			return nil, generation.ErrGenerationFailed
		}
		word := []string{"gato", "perro"}[len(f.generator.flashcardReqs)-1]
		return &generation.FlashcardPayload{Word: word, Translation: word}, nil
	}

	created, err := f.svc.RefillPool(context.Background(), 1, nil, domain.ContentKindWord, 5)
	assert.Equal(t, 2, created)
	assert.ErrorIs(t, err, generation.ErrGenerationFailed)
}

func TestStartAndEndAttempt(t *testing.T) {
	t.Parallel()

	f := newContentFixture(t)
	learner := uuid.New()

	f.svc.StartAttempt(learner, 7)
	f.scopes.Get(learner, 7).MarkUsed(42)
	require.NoError(t, f.history.RecordServed(context.Background(), learner, 7, 42))

	require.NoError(t, f.svc.EndAttempt(context.Background(), learner, 7))

	assert.False(t, f.scopes.Get(learner, 7).IsUsed(42))
	served, err := f.history.ListServed(context.Background(), learner, 7)
	require.NoError(t, err)
	assert.Empty(t, served)
}

func TestNextItemWrapsStoreFailures(t *testing.T) {
	t.Parallel()

	f := newContentFixture(t)
	f.content.findErr = errors.New("connection refused")

	_, err := f.svc.NextItem(context.Background(), baseRequest(uuid.New()))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistenceFailed)

	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "content", svcErr.Service)
}
