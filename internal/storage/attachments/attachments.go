// Package attachments keeps the binary content of files received with protocol messages.
package attachments

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Ometra-Hela/Alize/internal/model"
)

// Store persists attachment blobs by key. Put does not overwrite an existing key.
type Store interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// Key places an attachment under its case, prefixed with the receive time so a
// re-sent file with the same name does not collide.
func Key(portID, fileName string, at time.Time) string {
	return fmt.Sprintf("portabilities/%s/%s-%s", portID, at.UTC().Format("20060102T150405.000000000"), fileName)
}

type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string]memoryBlob
}

type memoryBlob struct {
	body        []byte
	contentType string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string]memoryBlob)}
}

func (m *MemoryStore) Put(_ context.Context, key string, body []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.blobs[key]; exists {
		return fmt.Errorf("attachment %s already exists", key)
	}

	m.blobs[key] = memoryBlob{body: append([]byte(nil), body...), contentType: contentType}

	return nil
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	blob, ok := m.blobs[key]
	if !ok {
		return nil, model.NewNotFoundError("attachment", key)
	}

	return append([]byte(nil), blob.body...), nil
}

// Keys lists the stored keys; used by tests and diagnostics.
func (m *MemoryStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.blobs))
	for k := range m.blobs {
		keys = append(keys, k)
	}

	return keys
}
