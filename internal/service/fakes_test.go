package service

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lingualab/lingua-api/internal/domain"
	"github.com/lingualab/lingua-api/internal/events"
	"github.com/lingualab/lingua-api/internal/generation"
	"github.com/lingualab/lingua-api/internal/store"
	"github.com/stretchr/testify/require"
)

// The services only use *sql.DB to open and commit transactions; all reads
// and writes go through the store fakes, which ignore the *sql.Tx they are
// handed. A stub driver whose transactions are no-ops is enough.

type stubDriver struct{}

func (stubDriver) Open(string) (driver.Conn, error) { return stubConn{}, nil }

type stubConn struct{}

func (stubConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not supported") }
func (stubConn) Close() error                        { return nil }
func (stubConn) Begin() (driver.Tx, error)           { return stubTx{}, nil }

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

func init() {
	sql.Register("servicetest", stubDriver{})
}

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("servicetest", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// fakeContentStore is an in-memory store.ContentStore with real uniqueness
// and rotation semantics, so service tests exercise the same contracts the
// Postgres implementation provides.
type fakeContentStore struct {
	mu sync.Mutex

	nextItemID int64
	nextTrID   int64

	categories   map[int64]*domain.Category
	lessons      map[int64]*domain.Lesson
	items        map[int64]*domain.ContentItem
	translations map[string]*domain.Translation

	findErr       error
	createItemErr error
	recordUseErr  error

	// raceOnCreateTranslation simulates a concurrent writer committing a
	// translation between the service's miss and its insert.
	raceOnCreateTranslation *domain.Translation

	resetCalls int
}

func newFakeContentStore() *fakeContentStore {
	return &fakeContentStore{
		categories:   make(map[int64]*domain.Category),
		lessons:      make(map[int64]*domain.Lesson),
		items:        make(map[int64]*domain.ContentItem),
		translations: make(map[string]*domain.Translation),
	}
}

func trKey(itemID int64, language string) string {
	return fmt.Sprintf("%d|%s", itemID, language)
}

func (f *fakeContentStore) addCategory(id int64, name string) {
	f.categories[id] = &domain.Category{ID: id, Name: name, CreatedAt: time.Now().UTC()}
}

func (f *fakeContentStore) addLesson(id, categoryID int64, name string) {
	f.lessons[id] = &domain.Lesson{ID: id, CategoryID: categoryID, Name: name, CreatedAt: time.Now().UTC()}
}

func (f *fakeContentStore) addItem(item *domain.ContentItem) *domain.ContentItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	if item.ID == 0 {
		f.nextItemID++
		item.ID = f.nextItemID
	} else if item.ID > f.nextItemID {
		f.nextItemID = item.ID
	}
	f.items[item.ID] = item
	return item
}

func (f *fakeContentStore) addTranslation(tr *domain.Translation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextTrID++
	tr.ID = f.nextTrID
	f.translations[trKey(tr.ItemID, tr.Language)] = tr
}

func (f *fakeContentStore) FindItems(_ context.Context, categoryID int64, lessonID *int64) ([]*domain.ContentItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	if _, ok := f.categories[categoryID]; !ok {
		return nil, store.ErrCategoryNotFound
	}

	var out []*domain.ContentItem
	for _, item := range f.items {
		if item.CategoryID != categoryID {
			continue
		}
		if lessonID != nil && (item.LessonID == nil || *item.LessonID != *lessonID) {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeContentStore) GetItem(_ context.Context, id int64) (*domain.ContentItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return nil, store.ErrItemNotFound
	}
	return item, nil
}

func (f *fakeContentStore) CreateItem(_ context.Context, item *domain.ContentItem) error {
	if f.createItemErr != nil {
		return f.createItemErr
	}
	f.addItem(item)
	return nil
}

func (f *fakeContentStore) RecordUse(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordUseErr != nil {
		return f.recordUseErr
	}
	item, ok := f.items[id]
	if !ok {
		return store.ErrItemNotFound
	}
	now := time.Now().UTC()
	item.UsedCount++
	item.LastUsedAt = &now
	return nil
}

func (f *fakeContentStore) ResetPoolIfExhausted(_ context.Context, categoryID int64, lessonID *int64, threshold int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetCalls++

	var pool []*domain.ContentItem
	for _, item := range f.items {
		if item.CategoryID != categoryID {
			continue
		}
		if lessonID != nil && (item.LessonID == nil || *item.LessonID != *lessonID) {
			continue
		}
		pool = append(pool, item)
	}
	if len(pool) == 0 {
		return false, nil
	}
	for _, item := range pool {
		if item.UsedCount <= threshold {
			return false, nil
		}
	}
	for _, item := range pool {
		item.UsedCount = 0
		item.LastUsedAt = nil
	}
	return true, nil
}

func (f *fakeContentStore) GetTranslation(_ context.Context, itemID int64, language string) (*domain.Translation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tr, ok := f.translations[trKey(itemID, language)]
	if !ok {
		return nil, store.ErrTranslationNotFound
	}
	return tr, nil
}

func (f *fakeContentStore) CreateTranslation(_ context.Context, tr *domain.Translation) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := trKey(tr.ItemID, tr.Language)
	if f.raceOnCreateTranslation != nil {
		f.translations[key] = f.raceOnCreateTranslation
		f.raceOnCreateTranslation = nil
		return store.ErrTranslationExists
	}
	if _, ok := f.translations[key]; ok {
		return store.ErrTranslationExists
	}
	f.nextTrID++
	tr.ID = f.nextTrID
	f.translations[key] = tr
	return nil
}

func (f *fakeContentStore) GetCategory(_ context.Context, id int64) (*domain.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.categories[id]
	if !ok {
		return nil, store.ErrCategoryNotFound
	}
	return c, nil
}

func (f *fakeContentStore) GetLesson(_ context.Context, id int64) (*domain.Lesson, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.lessons[id]
	if !ok {
		return nil, store.ErrLessonNotFound
	}
	return l, nil
}

func (f *fakeContentStore) WithTx(_ *sql.Tx) store.ContentStore { return f }

// fakeSituationStore is an in-memory store.SituationStore.
type fakeSituationStore struct {
	mu         sync.Mutex
	nextID     int64
	situations map[int64]*domain.Situation
	resetCalls int
}

func newFakeSituationStore() *fakeSituationStore {
	return &fakeSituationStore{situations: make(map[int64]*domain.Situation)}
}

func (f *fakeSituationStore) addSituation(s *domain.Situation) *domain.Situation {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s.ID == 0 {
		f.nextID++
		s.ID = f.nextID
	}
	f.situations[s.ID] = s
	return s
}

func (f *fakeSituationStore) FindSituations(_ context.Context, categoryID *int64) ([]*domain.Situation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Situation
	for _, s := range f.situations {
		if categoryID != nil && (s.CategoryID == nil || *s.CategoryID != *categoryID) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeSituationStore) GetSituation(_ context.Context, id int64) (*domain.Situation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.situations[id]
	if !ok {
		return nil, store.ErrSituationNotFound
	}
	return s, nil
}

func (f *fakeSituationStore) CreateSituation(_ context.Context, s *domain.Situation) error {
	f.addSituation(s)
	return nil
}

func (f *fakeSituationStore) RecordUse(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.situations[id]
	if !ok {
		return store.ErrSituationNotFound
	}
	now := time.Now().UTC()
	s.UsedCount++
	s.LastUsedAt = &now
	return nil
}

func (f *fakeSituationStore) ResetPoolIfExhausted(_ context.Context, categoryID *int64, threshold int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetCalls++
	var pool []*domain.Situation
	for _, s := range f.situations {
		if categoryID != nil && (s.CategoryID == nil || *s.CategoryID != *categoryID) {
			continue
		}
		pool = append(pool, s)
	}
	if len(pool) == 0 {
		return false, nil
	}
	for _, s := range pool {
		if s.UsedCount <= threshold {
			return false, nil
		}
	}
	for _, s := range pool {
		s.UsedCount = 0
		s.LastUsedAt = nil
	}
	return true, nil
}

func (f *fakeSituationStore) WithTx(_ *sql.Tx) store.SituationStore { return f }

// fakeHistoryStore is an in-memory store.UsageHistoryStore. When linked to a
// content store it resolves served item texts the way the Postgres join does.
type fakeHistoryStore struct {
	mu     sync.Mutex
	served map[string][]int64

	content *fakeContentStore
	listErr error
}

func newFakeHistoryStore() *fakeHistoryStore {
	return &fakeHistoryStore{served: make(map[string][]int64)}
}

func historyKey(learnerID uuid.UUID, lessonID int64) string {
	return fmt.Sprintf("%s|%d", learnerID, lessonID)
}

func (f *fakeHistoryStore) RecordServed(_ context.Context, learnerID uuid.UUID, lessonID, itemID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := historyKey(learnerID, lessonID)
	for _, id := range f.served[key] {
		if id == itemID {
			return nil
		}
	}
	f.served[key] = append(f.served[key], itemID)
	return nil
}

func (f *fakeHistoryStore) ListServed(_ context.Context, learnerID uuid.UUID, lessonID int64) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]int64, len(f.served[historyKey(learnerID, lessonID)]))
	copy(out, f.served[historyKey(learnerID, lessonID)])
	return out, nil
}

func (f *fakeHistoryStore) ServedWords(ctx context.Context, learnerID uuid.UUID, lessonID int64) ([]string, error) {
	ids, err := f.ListServed(ctx, learnerID, lessonID)
	if err != nil || f.content == nil {
		return nil, err
	}
	words := make([]string, 0, len(ids))
	for _, id := range ids {
		if item, err := f.content.GetItem(ctx, id); err == nil {
			words = append(words, item.Text)
		}
	}
	return words, nil
}

func (f *fakeHistoryStore) ClearLesson(_ context.Context, learnerID uuid.UUID, lessonID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.served, historyKey(learnerID, lessonID))
	return nil
}

func (f *fakeHistoryStore) WithTx(_ *sql.Tx) store.UsageHistoryStore { return f }

// fakeAttemptStore is an in-memory store.AttemptStore with real eviction and
// pin semantics.
type fakeAttemptStore struct {
	mu       sync.Mutex
	nextID   int64
	attempts map[int64]*domain.AttemptResult

	evictCalls []int // keep argument of each EvictOldestUnpinned call
}

func newFakeAttemptStore() *fakeAttemptStore {
	return &fakeAttemptStore{attempts: make(map[int64]*domain.AttemptResult)}
}

func (f *fakeAttemptStore) addAttempt(r *domain.AttemptResult) *domain.AttemptResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	r.ID = f.nextID
	f.attempts[r.ID] = r
	return r
}

func (f *fakeAttemptStore) CreateAttempt(_ context.Context, r *domain.AttemptResult) error {
	f.addAttempt(r)
	return nil
}

func (f *fakeAttemptStore) GetAttempt(_ context.Context, id int64) (*domain.AttemptResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.attempts[id]
	if !ok {
		return nil, store.ErrAttemptNotFound
	}
	return r, nil
}

func (f *fakeAttemptStore) EvictOldestUnpinned(_ context.Context, learnerID uuid.UUID, categoryID int64, keep int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evictCalls = append(f.evictCalls, keep)

	var pool []*domain.AttemptResult
	for _, r := range f.attempts {
		if r.LearnerID == learnerID && r.CategoryID == categoryID {
			pool = append(pool, r)
		}
	}
	if len(pool) <= keep {
		return 0, nil
	}
	sort.Slice(pool, func(i, j int) bool { return pool[i].ID > pool[j].ID })

	var deleted int64
	for _, r := range pool[keep:] {
		if r.Pinned {
			continue
		}
		delete(f.attempts, r.ID)
		deleted++
	}
	return deleted, nil
}

func (f *fakeAttemptStore) UnpinAllForItem(_ context.Context, learnerID uuid.UUID, itemID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.attempts {
		if r.LearnerID == learnerID && r.ItemID == itemID {
			r.Pinned = false
		}
	}
	return nil
}

func (f *fakeAttemptStore) SetPinned(_ context.Context, id int64, pinned bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.attempts[id]
	if !ok {
		return store.ErrAttemptNotFound
	}
	r.Pinned = pinned
	return nil
}

func (f *fakeAttemptStore) ListMistakes(_ context.Context, learnerID uuid.UUID, categoryID int64) ([]*domain.AttemptResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.AttemptResult
	for _, r := range f.attempts {
		if r.LearnerID == learnerID && r.CategoryID == categoryID && !r.Correct {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeAttemptStore) WithTx(_ *sql.Tx) store.AttemptStore { return f }

// fakeGenerator scripts generation results per method.
type fakeGenerator struct {
	mu sync.Mutex

	flashcardFn func(req generation.Request) (*generation.FlashcardPayload, error)
	sentenceFn  func(req generation.Request) (*generation.SentencePayload, error)
	situationFn func(req generation.Request) (*generation.SituationPayload, error)
	translateFn func(text, language string) (*generation.TranslationPayload, error)

	flashcardReqs []generation.Request
	translateReqs []string
}

func (g *fakeGenerator) GenerateFlashcard(_ context.Context, req generation.Request) (*generation.FlashcardPayload, error) {
	g.mu.Lock()
	g.flashcardReqs = append(g.flashcardReqs, req)
	fn := g.flashcardFn
	g.mu.Unlock()
	if fn == nil {
		return nil, generation.ErrGenerationFailed
	}
	return fn(req)
}

func (g *fakeGenerator) GenerateSentence(_ context.Context, req generation.Request) (*generation.SentencePayload, error) {
	if g.sentenceFn == nil {
		return nil, generation.ErrGenerationFailed
	}
	return g.sentenceFn(req)
}

func (g *fakeGenerator) GenerateSituation(_ context.Context, req generation.Request) (*generation.SituationPayload, error) {
	if g.situationFn == nil {
		return nil, generation.ErrGenerationFailed
	}
	return g.situationFn(req)
}

func (g *fakeGenerator) Translate(_ context.Context, text, language string) (*generation.TranslationPayload, error) {
	g.mu.Lock()
	g.translateReqs = append(g.translateReqs, text)
	fn := g.translateFn
	g.mu.Unlock()
	if fn == nil {
		return &generation.TranslationPayload{
			Text:   "translated " + text,
			Tokens: []string{"translated", text},
		}, nil
	}
	return fn(text, language)
}

// fakeImageLookup returns a fixed URL for every query.
type fakeImageLookup struct {
	url     string
	queries []string
}

func (f *fakeImageLookup) LookupImage(_ context.Context, query string) string {
	f.queries = append(f.queries, query)
	if f.url == "" {
		return "https://placehold.co/600x400"
	}
	return f.url
}

// recordingEmitter captures emitted events.
type recordingEmitter struct {
	mu     sync.Mutex
	events []*events.TaskRequestEvent
}

func (e *recordingEmitter) EmitEvent(_ context.Context, event *events.TaskRequestEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return nil
}
