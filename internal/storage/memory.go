package storage

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
)

// MemoryStorage is an in-process bucket used for local development and tests.
type MemoryStorage struct {
	mu      sync.Mutex
	baseURL string
	objects map[string][]byte

	// RemoveErr, when set, is returned by Remove without deleting anything.
	RemoveErr error
}

func NewMemoryStorage(baseURL string) *MemoryStorage {
	return &MemoryStorage{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		objects: make(map[string][]byte),
	}
}

func (m *MemoryStorage) List(_ context.Context, prefix string) ([]Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	objects := make([]Object, 0, len(m.objects))
	for name := range m.objects {
		if strings.HasPrefix(name, prefix) {
			objects = append(objects, Object{ID: name, Name: name})
		}
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Name < objects[j].Name })

	return objects, nil
}

func (m *MemoryStorage) Upload(_ context.Context, name string, body io.Reader, _ string) (Object, error) {
	if name == "" {
		return Object{}, errors.New("object name is required")
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return Object{}, err
	}

	m.mu.Lock()
	m.objects[name] = data
	m.mu.Unlock()

	return Object{ID: name, Name: name}, nil
}

func (m *MemoryStorage) Remove(_ context.Context, names ...string) error {
	if m.RemoveErr != nil {
		return m.RemoveErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, name := range names {
		delete(m.objects, name)
	}

	return nil
}

func (m *MemoryStorage) PublicURL(name string) string {
	return m.baseURL + "/" + name
}
