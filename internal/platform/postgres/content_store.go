package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lingualab/lingua-api/internal/domain"
	"github.com/lingualab/lingua-api/internal/platform/logger"
	"github.com/lingualab/lingua-api/internal/store"
)

// PostgresContentStore implements the store.ContentStore interface
// using a PostgreSQL database as the storage backend.
type PostgresContentStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresContentStore creates a new PostgreSQL implementation of the
// ContentStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresContentStore(db store.DBTX, logger *slog.Logger) *PostgresContentStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresContentStore{
		db:     db,
		logger: logger.With(slog.String("component", "content_store")),
	}
}

// Ensure PostgresContentStore implements store.ContentStore interface
var _ store.ContentStore = (*PostgresContentStore)(nil)

// WithTx implements store.ContentStore.WithTx
func (s *PostgresContentStore) WithTx(tx *sql.Tx) store.ContentStore {
	return &PostgresContentStore{
		db:     tx,
		logger: s.logger,
	}
}

const contentItemColumns = `id, category_id, lesson_id, kind, text, image_url, used_count, last_used_at, created_at`

func scanContentItem(row interface{ Scan(...any) error }) (*domain.ContentItem, error) {
	var item domain.ContentItem
	var kind string
	err := row.Scan(
		&item.ID,
		&item.CategoryID,
		&item.LessonID,
		&kind,
		&item.Text,
		&item.ImageURL,
		&item.UsedCount,
		&item.LastUsedAt,
		&item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	item.Kind = domain.ContentKind(kind)
	return &item, nil
}

// FindItems implements store.ContentStore.FindItems
// It returns the candidate pool for a category, optionally scoped to a
// lesson. Returns store.ErrCategoryNotFound if the category does not exist;
// an empty pool is a valid non-error result.
func (s *PostgresContentStore) FindItems(
	ctx context.Context,
	categoryID int64,
	lessonID *int64,
) ([]*domain.ContentItem, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	// The category must exist before an empty pool means "generate".
	if _, err := s.GetCategory(ctx, categoryID); err != nil {
		return nil, err
	}

	query := `
		SELECT ` + contentItemColumns + `
		FROM content_items
		WHERE category_id = $1
		  AND ($2::bigint IS NULL OR lesson_id = $2)
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query, categoryID, lessonID)
	if err != nil {
		log.Error("failed to query content items",
			slog.String("error", err.Error()),
			slog.Int64("category_id", categoryID))
		return nil, MapError(err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	items := []*domain.ContentItem{}
	for rows.Next() {
		item, err := scanContentItem(rows)
		if err != nil {
			log.Error("failed to scan content item row",
				slog.String("error", err.Error()))
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return nil, err
	}

	log.Debug("found content items",
		slog.Int64("category_id", categoryID),
		slog.Int("count", len(items)))
	return items, nil
}

// GetItem implements store.ContentStore.GetItem
// Returns store.ErrItemNotFound if the item does not exist.
func (s *PostgresContentStore) GetItem(ctx context.Context, id int64) (*domain.ContentItem, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + contentItemColumns + `
		FROM content_items
		WHERE id = $1
	`

	item, err := scanContentItem(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("content item not found", slog.Int64("item_id", id))
			return nil, store.ErrItemNotFound
		}
		log.Error("failed to get content item",
			slog.String("error", err.Error()),
			slog.Int64("item_id", id))
		return nil, err
	}

	return item, nil
}

// CreateItem implements store.ContentStore.CreateItem
// It saves a new content item and fills in its assigned ID.
// Returns store.ErrInvalidEntity if the category or lesson does not exist.
func (s *PostgresContentStore) CreateItem(ctx context.Context, item *domain.ContentItem) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := item.Validate(); err != nil {
		log.Warn("content item validation failed during create",
			slog.String("error", err.Error()),
			slog.String("text", item.Text))
		return err
	}

	query := `
		INSERT INTO content_items (category_id, lesson_id, kind, text, image_url, used_count, last_used_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	err := s.db.QueryRowContext(
		ctx,
		query,
		item.CategoryID,
		item.LessonID,
		item.Kind,
		item.Text,
		item.ImageURL,
		item.UsedCount,
		item.LastUsedAt,
		item.CreatedAt,
	).Scan(&item.ID)

	if err != nil {
		if IsForeignKeyViolation(err) {
			log.Warn("foreign key violation during content item creation",
				slog.String("error", err.Error()),
				slog.Int64("category_id", item.CategoryID))
			return fmt.Errorf("%w: category or lesson not found", store.ErrInvalidEntity)
		}
		log.Error("failed to create content item",
			slog.String("error", err.Error()),
			slog.Int64("category_id", item.CategoryID))
		return MapError(err)
	}

	log.Info("content item created",
		slog.Int64("item_id", item.ID),
		slog.Int64("category_id", item.CategoryID),
		slog.String("kind", string(item.Kind)))
	return nil
}

// RecordUse implements store.ContentStore.RecordUse
// It increments the item's used count and stamps last_used_at atomically.
// Returns store.ErrItemNotFound if the item does not exist.
func (s *PostgresContentStore) RecordUse(ctx context.Context, id int64) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE content_items
		SET used_count = used_count + 1, last_used_at = $1
		WHERE id = $2
	`

	result, err := s.db.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to record content item use",
			slog.String("error", err.Error()),
			slog.Int64("item_id", id))
		return err
	}

	if err := CheckRowsAffected(result, store.ErrItemNotFound); err != nil {
		log.Debug("content item not found for use recording", slog.Int64("item_id", id))
		return err
	}

	log.Debug("recorded content item use", slog.Int64("item_id", id))
	return nil
}

// ResetPoolIfExhausted implements store.ContentStore.ResetPoolIfExhausted
// The eligibility check and the reset run in a single guarded statement so
// concurrent callers cannot observe a partial reset.
func (s *PostgresContentStore) ResetPoolIfExhausted(
	ctx context.Context,
	categoryID int64,
	lessonID *int64,
	threshold int,
) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE content_items
		SET used_count = 0, last_used_at = NULL
		WHERE category_id = $1
		  AND ($2::bigint IS NULL OR lesson_id = $2)
		  AND NOT EXISTS (
			SELECT 1 FROM content_items
			WHERE category_id = $1
			  AND ($2::bigint IS NULL OR lesson_id = $2)
			  AND used_count <= $3
		  )
	`

	result, err := s.db.ExecContext(ctx, query, categoryID, lessonID, threshold)
	if err != nil {
		log.Error("failed to reset content pool",
			slog.String("error", err.Error()),
			slog.Int64("category_id", categoryID))
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected > 0 {
		log.Info("reset exhausted content pool",
			slog.Int64("category_id", categoryID),
			slog.Int64("items_reset", rowsAffected))
	}
	return rowsAffected > 0, nil
}

// GetTranslation implements store.ContentStore.GetTranslation
// Returns store.ErrTranslationNotFound if no translation exists yet for the
// (item, language) pair.
func (s *PostgresContentStore) GetTranslation(
	ctx context.Context,
	itemID int64,
	language string,
) (*domain.Translation, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, item_id, language, text, tokens, hints, explanation, created_at
		FROM translations
		WHERE item_id = $1 AND language = $2
	`

	var tr domain.Translation
	var tokensJSON, hintsJSON []byte

	err := s.db.QueryRowContext(ctx, query, itemID, language).Scan(
		&tr.ID,
		&tr.ItemID,
		&tr.Language,
		&tr.Text,
		&tokensJSON,
		&hintsJSON,
		&tr.Explanation,
		&tr.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("translation not found",
				slog.Int64("item_id", itemID),
				slog.String("language", language))
			return nil, store.ErrTranslationNotFound
		}
		log.Error("failed to get translation",
			slog.String("error", err.Error()),
			slog.Int64("item_id", itemID),
			slog.String("language", language))
		return nil, err
	}

	if err := json.Unmarshal(tokensJSON, &tr.Tokens); err != nil {
		return nil, fmt.Errorf("failed to decode translation tokens: %w", err)
	}
	if len(hintsJSON) > 0 {
		if err := json.Unmarshal(hintsJSON, &tr.Hints); err != nil {
			return nil, fmt.Errorf("failed to decode translation hints: %w", err)
		}
	}

	return &tr, nil
}

// CreateTranslation implements store.ContentStore.CreateTranslation
// Returns store.ErrTranslationExists when a concurrent writer committed a
// translation for the same (item, language) pair first. The caller must then
// re-fetch the winning row and discard its own payload.
func (s *PostgresContentStore) CreateTranslation(ctx context.Context, tr *domain.Translation) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := tr.Validate(); err != nil {
		log.Warn("translation validation failed during create",
			slog.String("error", err.Error()),
			slog.Int64("item_id", tr.ItemID),
			slog.String("language", tr.Language))
		return err
	}

	tokensJSON, err := json.Marshal(tr.Tokens)
	if err != nil {
		return fmt.Errorf("failed to encode translation tokens: %w", err)
	}
	hintsJSON, err := json.Marshal(tr.Hints)
	if err != nil {
		return fmt.Errorf("failed to encode translation hints: %w", err)
	}

	query := `
		INSERT INTO translations (item_id, language, text, tokens, hints, explanation, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err = s.db.QueryRowContext(
		ctx,
		query,
		tr.ItemID,
		tr.Language,
		tr.Text,
		tokensJSON,
		hintsJSON,
		tr.Explanation,
		tr.CreatedAt,
	).Scan(&tr.ID)

	if err != nil {
		if IsUniqueViolation(err) {
			log.Debug("translation already exists, concurrent writer won",
				slog.Int64("item_id", tr.ItemID),
				slog.String("language", tr.Language))
			return store.ErrTranslationExists
		}
		if IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: item with ID %d not found",
				store.ErrInvalidEntity, tr.ItemID)
		}
		log.Error("failed to create translation",
			slog.String("error", err.Error()),
			slog.Int64("item_id", tr.ItemID),
			slog.String("language", tr.Language))
		return MapError(err)
	}

	log.Info("translation created",
		slog.Int64("translation_id", tr.ID),
		slog.Int64("item_id", tr.ItemID),
		slog.String("language", tr.Language))
	return nil
}

// GetCategory implements store.ContentStore.GetCategory
// Returns store.ErrCategoryNotFound if the category does not exist.
func (s *PostgresContentStore) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, name, created_at
		FROM categories
		WHERE id = $1
	`

	var c domain.Category
	err := s.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Name, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("category not found", slog.Int64("category_id", id))
			return nil, store.ErrCategoryNotFound
		}
		log.Error("failed to get category",
			slog.String("error", err.Error()),
			slog.Int64("category_id", id))
		return nil, err
	}

	return &c, nil
}

// GetLesson implements store.ContentStore.GetLesson
// Returns store.ErrLessonNotFound if the lesson does not exist.
func (s *PostgresContentStore) GetLesson(ctx context.Context, id int64) (*domain.Lesson, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, category_id, name, position, created_at
		FROM lessons
		WHERE id = $1
	`

	var l domain.Lesson
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&l.ID,
		&l.CategoryID,
		&l.Name,
		&l.Position,
		&l.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("lesson not found", slog.Int64("lesson_id", id))
			return nil, store.ErrLessonNotFound
		}
		log.Error("failed to get lesson",
			slog.String("error", err.Error()),
			slog.Int64("lesson_id", id))
		return nil, err
	}

	return &l, nil
}
