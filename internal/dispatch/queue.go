package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sudhan/stockpicks/pkg/database"
	"github.com/sudhan/stockpicks/pkg/logger"
)

// Queue is a Postgres-backed dispatch queue. Enqueue inserts a pending
// row; workers claim rows with FOR UPDATE SKIP LOCKED so several worker
// processes can drain the same queue without stepping on each other.
// ⭐ SSOT: dispatch_jobs 테이블 접근은 여기서만
type Queue struct {
	db     *database.DB
	logger *logger.Logger
}

// NewQueue creates a queue over the shared connection pool
func NewQueue(db *database.DB, log *logger.Logger) *Queue {
	return &Queue{
		db:     db,
		logger: log.WithField("module", "dispatch"),
	}
}

// Enqueue inserts the payload as a pending job and returns immediately
func (q *Queue) Enqueue(ctx context.Context, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	_, err = q.db.Pool.Exec(ctx, `INSERT INTO dispatch_jobs (payload) VALUES ($1)`, body)
	if err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}

	q.logger.WithFields(map[string]interface{}{
		"operation": payload.Operation,
		"chunk_id":  payload.ChunkID,
	}).Debug("Job enqueued")

	return nil
}

// claim takes one pending job off the queue, or returns pgx.ErrNoRows
func (q *Queue) claim(ctx context.Context) (int64, Payload, error) {
	var id int64
	var body []byte

	err := q.db.Pool.QueryRow(ctx, `
		UPDATE dispatch_jobs SET status = 'running', started_at = now()
		WHERE id = (
			SELECT id FROM dispatch_jobs
			WHERE status = 'pending'
			ORDER BY id
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING id, payload
	`).Scan(&id, &body)
	if err != nil {
		return 0, Payload{}, err
	}

	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		return id, Payload{}, fmt.Errorf("unmarshal job %d: %w", id, err)
	}

	return id, payload, nil
}

// finish records the job outcome
func (q *Queue) finish(ctx context.Context, id int64, jobErr error) {
	status := "done"
	var errMsg *string
	if jobErr != nil {
		status = "failed"
		msg := jobErr.Error()
		errMsg = &msg
	}

	if _, err := q.db.Pool.Exec(ctx, `
		UPDATE dispatch_jobs SET status = $1, error = $2, done_at = now() WHERE id = $3
	`, status, errMsg, id); err != nil {
		q.logger.WithError(err).WithField("job_id", id).Error("Failed to record job outcome")
	}
}

// Worker drains the queue with a bounded number of concurrent handlers
type Worker struct {
	queue       *Queue
	handler     Handler
	logger      *logger.Logger
	concurrency int
	pollDelay   time.Duration
}

// NewWorker creates a queue worker
func NewWorker(queue *Queue, handler Handler, concurrency int, log *logger.Logger) *Worker {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Worker{
		queue:       queue,
		handler:     handler,
		logger:      log.WithField("module", "dispatch"),
		concurrency: concurrency,
		pollDelay:   time.Second,
	}
}

// Run polls for jobs until the context is cancelled. Each slot claims,
// handles, and records jobs independently.
func (w *Worker) Run(ctx context.Context) {
	w.logger.WithField("concurrency", w.concurrency).Info("Dispatch worker started")

	done := make(chan struct{})
	for i := 0; i < w.concurrency; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			w.loop(ctx)
		}()
	}

	for i := 0; i < w.concurrency; i++ {
		<-done
	}

	w.logger.Info("Dispatch worker stopped")
}

func (w *Worker) loop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		id, payload, err := w.queue.claim(ctx)
		if err == pgx.ErrNoRows {
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.pollDelay):
			}
			continue
		}
		if err != nil {
			w.logger.WithError(err).Error("Failed to claim job")
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.pollDelay):
			}
			continue
		}

		start := time.Now()
		jobErr := w.handler.Handle(ctx, payload)
		w.queue.finish(ctx, id, jobErr)

		fields := map[string]interface{}{
			"job_id":    id,
			"operation": payload.Operation,
			"chunk_id":  payload.ChunkID,
			"duration":  time.Since(start),
		}
		if jobErr != nil {
			w.logger.WithError(jobErr).WithFields(fields).Error("Job failed")
		} else {
			w.logger.WithFields(fields).Info("Job completed")
		}
	}
}
