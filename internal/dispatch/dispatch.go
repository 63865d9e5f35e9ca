package dispatch

import (
	"context"

	"github.com/sudhan/stockpicks/internal/contracts"
)

// Operations carried in dispatch payloads
const (
	OpProcessChunk    = "process_chunk"
	OpFinalizeResults = "finalize_results"
)

// Payload is one unit of asynchronous work handed to a worker
type Payload struct {
	Operation string                  `json:"operation"`
	ChunkID   string                  `json:"chunk_id,omitempty"`
	Stocks    []contracts.StockRecord `json:"stocks,omitempty"`
}

// Invoker hands a payload off for asynchronous execution. Enqueue
// returns once the payload is accepted, not once the work is done:
// fire and forget.
// ⭐ SSOT: 비동기 작업 전달은 이 인터페이스를 통해서만
type Invoker interface {
	Enqueue(ctx context.Context, payload Payload) error
}

// Handler executes one dequeued payload
type Handler interface {
	Handle(ctx context.Context, payload Payload) error
}

// HandlerFunc adapts a function to the Handler interface
type HandlerFunc func(ctx context.Context, payload Payload) error

func (f HandlerFunc) Handle(ctx context.Context, payload Payload) error {
	return f(ctx, payload)
}
