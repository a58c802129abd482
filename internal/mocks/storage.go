package mocks

import (
	"context"
	"sync"

	"github.com/newsdesk-api/internal/storage"
)

// StoredObject is one object written to MockObjectStore
type StoredObject struct {
	ContentType string
	Body        []byte
}

// MockObjectStore is an in-memory ObjectStore
type MockObjectStore struct {
	mu      sync.Mutex
	BaseURL string
	Objects map[string]StoredObject
	PutFunc func(ctx context.Context, key, contentType string, body []byte) (string, error)
}

// Verify interface compliance
var _ storage.ObjectStore = (*MockObjectStore)(nil)

func NewMockObjectStore() *MockObjectStore {
	return &MockObjectStore{
		BaseURL: "http://storage.test/news-images",
		Objects: make(map[string]StoredObject),
	}
}

func (m *MockObjectStore) Put(ctx context.Context, key, contentType string, body []byte) (string, error) {
	if m.PutFunc != nil {
		return m.PutFunc(ctx, key, contentType, body)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Objects[key] = StoredObject{ContentType: contentType, Body: append([]byte(nil), body...)}
	return m.BaseURL + "/" + key, nil
}

// Keys returns the keys written so far
func (m *MockObjectStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.Objects))
	for k := range m.Objects {
		keys = append(keys, k)
	}
	return keys
}
