package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/sudhan/stockpicks/internal/contracts"
	"github.com/sudhan/stockpicks/pkg/database"
)

// ErrRunNotFound is returned when a run id is unknown
var ErrRunNotFound = fmt.Errorf("run not found")

// RunStore records launched runs so their status can be looked up later
type RunStore interface {
	Save(ctx context.Context, report contracts.RunReport) error
	Get(ctx context.Context, runID string) (contracts.RunReport, error)
}

// PostgresRunStore keeps run records in the runs table
type PostgresRunStore struct {
	db *database.DB
}

// NewPostgresRunStore creates a run store over the shared pool
func NewPostgresRunStore(db *database.DB) *PostgresRunStore {
	return &PostgresRunStore{db: db}
}

func (s *PostgresRunStore) Save(ctx context.Context, report contracts.RunReport) error {
	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO runs (run_id, mode, universe_size, chunks_expected, chunks_launched, message)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (run_id) DO UPDATE SET
			chunks_expected = EXCLUDED.chunks_expected,
			chunks_launched = EXCLUDED.chunks_launched,
			message = EXCLUDED.message
	`, report.RunID, report.Mode, report.UniverseSize, report.ChunksExpected, report.ChunksLaunched, report.Message)
	if err != nil {
		return fmt.Errorf("save run %s: %w", report.RunID, err)
	}
	return nil
}

func (s *PostgresRunStore) Get(ctx context.Context, runID string) (contracts.RunReport, error) {
	var report contracts.RunReport
	err := s.db.Pool.QueryRow(ctx, `
		SELECT run_id, mode, universe_size, chunks_expected, chunks_launched, COALESCE(message, ''), created_at
		FROM runs WHERE run_id = $1
	`, runID).Scan(
		&report.RunID, &report.Mode, &report.UniverseSize,
		&report.ChunksExpected, &report.ChunksLaunched, &report.Message, &report.StartedAt,
	)
	if err == pgx.ErrNoRows {
		return contracts.RunReport{}, ErrRunNotFound
	}
	if err != nil {
		return contracts.RunReport{}, fmt.Errorf("get run %s: %w", runID, err)
	}
	return report, nil
}

// MemoryRunStore is an in-process RunStore for tests and single-node runs
type MemoryRunStore struct {
	mu   sync.RWMutex
	runs map[string]contracts.RunReport
}

// NewMemoryRunStore creates an empty in-memory run store
func NewMemoryRunStore() *MemoryRunStore {
	return &MemoryRunStore{runs: make(map[string]contracts.RunReport)}
}

func (s *MemoryRunStore) Save(ctx context.Context, report contracts.RunReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[report.RunID] = report
	return nil
}

func (s *MemoryRunStore) Get(ctx context.Context, runID string) (contracts.RunReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	report, ok := s.runs[runID]
	if !ok {
		return contracts.RunReport{}, ErrRunNotFound
	}
	return report, nil
}
