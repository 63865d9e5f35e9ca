package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a key has no stored object
var ErrNotFound = errors.New("object not found")

// Store is durable key/value storage for intermediate chunk results.
// Keys are opaque strings; List matches by prefix.
// ⭐ SSOT: 청크 결과 저장소 접근은 이 인터페이스를 통해서만
type Store interface {
	Put(ctx context.Context, key string, payload []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, key string) error
}

// ChunkKey builds the storage key for one chunk's result object
func ChunkKey(prefix, chunkID string) string {
	return fmt.Sprintf("%s/%s.json", prefix, chunkID)
}
