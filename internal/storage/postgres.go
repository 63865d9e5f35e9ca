package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sudhan/stockpicks/pkg/database"
)

// PostgresStore keeps chunk results in the chunk_results table. JSONB
// payloads keep the rows queryable for debugging, but the pipeline only
// ever reads them back whole.
type PostgresStore struct {
	db *database.DB
}

// NewPostgresStore creates a store backed by the shared connection pool
func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Put upserts the payload under the key. A chunk retried after a partial
// failure overwrites its earlier result.
func (s *PostgresStore) Put(ctx context.Context, key string, payload []byte) error {
	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO chunk_results (key, payload)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET payload = EXCLUDED.payload, created_at = now()
	`, key, payload)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Get reads the payload stored under the key
func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	err := s.db.Pool.QueryRow(ctx, `SELECT payload FROM chunk_results WHERE key = $1`, key).Scan(&payload)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return payload, nil
}

// List returns every key under the prefix in insertion order
func (s *PostgresStore) List(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT key FROM chunk_results WHERE key LIKE $1 || '%' ORDER BY created_at, key
	`, prefix)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Delete removes the object under the key. Deleting a missing key is not
// an error: cleanup is idempotent.
func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.Pool.Exec(ctx, `DELETE FROM chunk_results WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
