package token

import (
	"errors"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Storage persists one credential string.
type Storage interface {
	// Load returns the stored credential, or "" when nothing was stored yet.
	Load() (string, error)
	// Save replaces the stored credential.
	Save(value string) error
}

// MemoryStorage keeps the credential in process memory only.
type MemoryStorage struct {
	mu    sync.Mutex
	value string
}

var _ Storage = (*MemoryStorage)(nil)

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (s *MemoryStorage) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.value, nil
}

func (s *MemoryStorage) Save(value string) error {
	s.mu.Lock()
	s.value = value
	s.mu.Unlock()

	return nil
}

const dbMode = 0o600

var (
	bucketName = []byte("kotel")
	tokenKey   = []byte("token")
)

// ErrStorageClosed is returned by BoltStorage after Close.
var ErrStorageClosed = errors.New("token storage is closed")

// BoltStorage persists the credential in a bolt database file under a fixed bucket and key.
// It is safe for concurrent use; after Close every call fails with ErrStorageClosed.
type BoltStorage struct {
	mu sync.RWMutex
	db *bolt.DB
}

var _ Storage = (*BoltStorage)(nil)

// OpenBoltStorage opens, or creates, the bolt database at path.
func OpenBoltStorage(path string) (*BoltStorage, error) {
	db, err := bolt.Open(path, dbMode, &bolt.Options{
		Timeout: 500 * time.Millisecond,
	})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &BoltStorage{db: db}, nil
}

func (s *BoltStorage) Load() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return "", ErrStorageClosed
	}

	var value string
	err := s.db.View(func(tx *bolt.Tx) error {
		// bolt returns memory owned by the transaction, string() copies it
		if v := tx.Bucket(bucketName).Get(tokenKey); v != nil {
			value = string(v)
		}
		return nil
	})

	return value, err
}

func (s *BoltStorage) Save(value string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return ErrStorageClosed
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put(tokenKey, []byte(value))
	})
}

// Path returns the database file path, or "" after Close.
func (s *BoltStorage) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return ""
	}

	return s.db.Path()
}

// Close releases the database file lock. It waits for running Load and Save calls.
func (s *BoltStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil

	return err
}
