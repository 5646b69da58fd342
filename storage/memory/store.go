package memory

import (
	"context"
	"sync"

	"github.com/4406arthur/copilot/domain"
)

//Store keeps client state in process memory
type Store struct {
	mu   sync.RWMutex
	data map[string]string
}

//NewStore ...
func NewStore() *Store {
	return &Store{data: make(map[string]string)}
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return "", domain.ErrNotFound
	}
	return v, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	s.data[key] = value
	s.mu.Unlock()
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}

func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	s.data = make(map[string]string)
	s.mu.Unlock()
	return nil
}

func (s *Store) Close() error { return nil }

// Len is the number of stored keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
