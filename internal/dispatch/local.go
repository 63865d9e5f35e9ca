package dispatch

import (
	"context"
	"sync"

	"github.com/sudhan/stockpicks/pkg/logger"
)

// LocalInvoker runs payloads in-process on a fresh goroutine. It gives
// single-node deployments and tests the same fire-and-forget semantics
// as the queue without a database.
type LocalInvoker struct {
	handler Handler
	logger  *logger.Logger
	wg      sync.WaitGroup
}

// NewLocalInvoker creates an in-process invoker
func NewLocalInvoker(handler Handler, log *logger.Logger) *LocalInvoker {
	return &LocalInvoker{
		handler: handler,
		logger:  log.WithField("module", "dispatch"),
	}
}

// Enqueue starts the handler on its own goroutine and returns at once.
// The handler runs on a background context so it outlives the caller's
// request scope.
func (l *LocalInvoker) Enqueue(ctx context.Context, payload Payload) error {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		if err := l.handler.Handle(context.Background(), payload); err != nil {
			l.logger.WithError(err).WithFields(map[string]interface{}{
				"operation": payload.Operation,
				"chunk_id":  payload.ChunkID,
			}).Error("Local job failed")
		}
	}()
	return nil
}

// Wait blocks until every enqueued job has finished. For tests and
// graceful shutdown.
func (l *LocalInvoker) Wait() {
	l.wg.Wait()
}
