package imagesvc

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/rotinas-pei/backend/core/activity"
)

// MemoryStore keeps images in memory. Used by tests and the inmem database engine.
type MemoryStore struct {
	mu      sync.RWMutex
	baseURL string
	objects map[string][]byte
}

var _ activity.ImageStore = (*MemoryStore)(nil)

func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		objects: make(map[string][]byte),
	}
}

func (s *MemoryStore) PutImage(_ context.Context, key string, img activity.Image) error {
	body, err := io.ReadAll(img.Body)
	if err != nil {
		return errors.Wrap(err, "reading image")
	}
	s.mu.Lock()
	s.objects[key] = body
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) URL(key string) string {
	return s.baseURL + "/" + strings.TrimLeft(key, "/")
}

// Object returns the stored bytes of key.
func (s *MemoryStore) Object(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	body, ok := s.objects[key]
	return body, ok
}

// Len returns the number of stored objects.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
