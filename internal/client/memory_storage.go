package client

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// MemoryStorage is an in-memory StorageClient used when no object store
// is configured (local development) and by tests. Presigned URLs are
// fake but carry the expiry so callers can assert on them.
type MemoryStorage struct {
	mu      sync.RWMutex
	objects map[string][]byte
	types   map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

func memKey(bucket, key string) string {
	return bucket + "/" + key
}

func (m *MemoryStorage) Head(ctx context.Context, bucket, key string) (*ObjectInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[memKey(bucket, key)]
	if !ok {
		return &ObjectInfo{Exists: false}, nil
	}
	contentType := m.types[memKey(bucket, key)]
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return &ObjectInfo{Exists: true, Size: int64(len(data)), ContentType: contentType}, nil
}

func (m *MemoryStorage) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[memKey(bucket, key)]
	if !ok {
		return nil, fmt.Errorf("object not found: %s/%s", bucket, key)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *MemoryStorage) Upload(ctx context.Context, bucket, key string, body []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	data := make([]byte, len(body))
	copy(data, body)
	m.objects[memKey(bucket, key)] = data
	m.types[memKey(bucket, key)] = contentType
	return nil
}

func (m *MemoryStorage) PresignGet(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
	return fmt.Sprintf("https://storage.local/%s/%s?expires=%d", bucket, key, int(expiry.Seconds())), nil
}

func (m *MemoryStorage) PresignPut(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
	return fmt.Sprintf("https://storage.local/%s/%s?upload=1&expires=%d", bucket, key, int(expiry.Seconds())), nil
}

// Put seeds an object directly; test helper.
func (m *MemoryStorage) Put(bucket, key string, body []byte, contentType string) {
	_ = m.Upload(context.Background(), bucket, key, body, contentType)
}
