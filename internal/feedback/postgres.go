package feedback

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/smartreview/pkg/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS feedback_records (
	id                 TEXT PRIMARY KEY,
	submission_id      TEXT NOT NULL DEFAULT '',
	store_id           TEXT NOT NULL,
	rating             INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
	free_text          TEXT NOT NULL,
	locale             TEXT NOT NULL DEFAULT '',
	improvement_areas  TEXT[] NOT NULL DEFAULT '{}',
	ai_suggestion      TEXT,
	contact_info       TEXT,
	follow_up_required BOOLEAN NOT NULL DEFAULT FALSE,
	created_at         TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS feedback_records_store_created_idx
	ON feedback_records (store_id, created_at DESC);
`

const selectColumns = `id, submission_id, store_id, rating, free_text, locale,
	improvement_areas, ai_suggestion, contact_info, follow_up_required, created_at`

// PostgresStore persists records in a feedback_records table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore uses an existing pool. Call Migrate once before use.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Connect opens a pool for databaseURL and verifies it.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// Migrate creates the table and index if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate feedback schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, rec *models.FeedbackRecord) error {
	areas := rec.ImprovementAreas
	if areas == nil {
		areas = []string{}
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO feedback_records (`+selectColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		rec.ID, rec.SubmissionID, rec.StoreID, rec.Rating, rec.FreeText, rec.Locale,
		areas, rec.AISuggestion, rec.ContactInfo, rec.FollowUpRequired, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert feedback record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*models.FeedbackRecord, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+selectColumns+` FROM feedback_records WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback record: %w", err)
	}
	rec, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[models.FeedbackRecord])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrFeedbackNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan feedback record: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) AttachSuggestion(ctx context.Context, id, suggestion string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE feedback_records SET ai_suggestion = $2 WHERE id = $1`, id, suggestion)
	if err != nil {
		return fmt.Errorf("failed to attach suggestion: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrFeedbackNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, storeID string, page, limit int) ([]*models.FeedbackRecord, error) {
	limit, offset, err := normalizePage(page, limit)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+selectColumns+`
		FROM feedback_records
		WHERE store_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`,
		storeID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback records: %w", err)
	}
	recs, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[models.FeedbackRecord])
	if err != nil {
		return nil, fmt.Errorf("failed to scan feedback records: %w", err)
	}
	return recs, nil
}
