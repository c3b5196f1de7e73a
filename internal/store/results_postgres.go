package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pageproc/page-processor-back/internal/domain"
)

// PostgresResultsRepository persists the stored-result history in Postgres.
type PostgresResultsRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresResultsRepository(ctx context.Context, databaseURL string) (*PostgresResultsRepository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pg pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping pg: %w", err)
	}

	repo := &PostgresResultsRepository{pool: pool}
	if err := repo.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return repo, nil
}

func (r *PostgresResultsRepository) Close() {
	r.pool.Close()
}

func (r *PostgresResultsRepository) ensureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS results (
			id           TEXT PRIMARY KEY,
			url          TEXT NOT NULL,
			title        TEXT NOT NULL DEFAULT '',
			summary      TEXT NOT NULL DEFAULT '',
			key_points   TEXT[] NOT NULL DEFAULT '{}',
			markdown     TEXT NOT NULL DEFAULT '',
			html         TEXT NOT NULL DEFAULT '',
			word_count   INTEGER NOT NULL DEFAULT 0,
			reading_time INTEGER NOT NULL DEFAULT 0,
			created_at   TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure results schema: %w", err)
	}
	return nil
}

func (r *PostgresResultsRepository) Append(ctx context.Context, result domain.StoredResult) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO results (
			id, url, title, summary, key_points, markdown, html, word_count, reading_time, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`,
		result.ID,
		result.URL,
		result.Title,
		result.Summary,
		result.KeyPoints,
		result.Markdown,
		result.HTML,
		result.WordCount,
		result.ReadingTime,
		result.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}

	// Evict everything past the history cap, oldest first.
	_, err = r.pool.Exec(ctx, `
		DELETE FROM results
		WHERE id NOT IN (
			SELECT id FROM results ORDER BY created_at DESC LIMIT $1
		)
	`, HistoryLimit)
	if err != nil {
		return fmt.Errorf("trim result history: %w", err)
	}
	return nil
}

func (r *PostgresResultsRepository) GetByID(ctx context.Context, id string) (*domain.StoredResult, error) {
	return r.queryOne(ctx, `
		SELECT id, url, title, summary, key_points, markdown, html, word_count, reading_time, created_at
		FROM results
		WHERE id = $1
	`, id)
}

func (r *PostgresResultsRepository) GetByURL(ctx context.Context, url string) (*domain.StoredResult, error) {
	return r.queryOne(ctx, `
		SELECT id, url, title, summary, key_points, markdown, html, word_count, reading_time, created_at
		FROM results
		WHERE url = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, url)
}

func (r *PostgresResultsRepository) List(ctx context.Context) ([]domain.StoredResult, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, url, title, summary, key_points, markdown, html, word_count, reading_time, created_at
		FROM results
		ORDER BY created_at DESC
		LIMIT $1
	`, HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	results := make([]domain.StoredResult, 0)
	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *result)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate results: %w", rows.Err())
	}
	return results, nil
}

func (r *PostgresResultsRepository) queryOne(ctx context.Context, query string, args ...any) (*domain.StoredResult, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query result: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if rows.Err() != nil {
			return nil, fmt.Errorf("query result: %w", rows.Err())
		}
		return nil, ErrNotFound
	}
	return scanResult(rows)
}

func scanResult(rows pgx.Rows) (*domain.StoredResult, error) {
	var (
		result    domain.StoredResult
		createdAt time.Time
	)
	err := rows.Scan(
		&result.ID,
		&result.URL,
		&result.Title,
		&result.Summary,
		&result.KeyPoints,
		&result.Markdown,
		&result.HTML,
		&result.WordCount,
		&result.ReadingTime,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan result: %w", err)
	}
	result.Timestamp = createdAt
	return &result, nil
}
