package token

import (
	"fmt"
	"sync"
)

// Store holds the current credential and writes every change through to its Storage.
type Store struct {
	mu      sync.Mutex
	value   string
	storage Storage
}

// NewStore creates a store and loads the persisted credential from storage.
// A nil storage falls back to a MemoryStorage.
func NewStore(storage Storage) (*Store, error) {
	if storage == nil {
		storage = NewMemoryStorage()
	}

	value, err := storage.Load()
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}

	return &Store{value: value, storage: storage}, nil
}

// Get returns the current credential.
func (s *Store) Get() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.value
}

// Set persists value and then makes it current. The in-memory value is left untouched
// when persisting fails.
func (s *Store) Set(value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.Save(value); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	s.value = value

	return nil
}

// Clear resets the credential to the empty string.
func (s *Store) Clear() error {
	return s.Set("")
}
