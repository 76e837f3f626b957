package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

// memStore is an in-memory blob store for tests and throwaway setups.
type memStore struct {
	mu    sync.RWMutex
	blobs map[string]memBlob
}

type memBlob struct {
	data        []byte
	contentType string
}

// NewMemory returns an empty in-memory store.
func NewMemory() Store {
	return &memStore{blobs: make(map[string]memBlob)}
}

func (s *memStore) Driver() Driver { return DriverMemory }

func (s *memStore) Put(ctx context.Context, key string, r io.Reader, contentType string) (Info, error) {
	if _, err := sanitizeKey(key); err != nil {
		return Info{}, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return Info{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.blobs[key]; exists {
		return Info{}, fmt.Errorf("blob %s already exists", key)
	}
	s.blobs[key] = memBlob{data: data, contentType: contentType}

	return Info{Key: key, Size: int64(len(data)), ContentType: contentType}, nil
}

func (s *memStore) Get(ctx context.Context, key string) (Info, io.ReadCloser, error) {
	s.mu.RLock()
	b, ok := s.blobs[key]
	s.mu.RUnlock()
	if !ok {
		return Info{}, nil, ErrNotFound
	}
	info := Info{Key: key, Size: int64(len(b.data)), ContentType: b.contentType}
	return info, io.NopCloser(bytes.NewReader(b.data)), nil
}

func (s *memStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[key]; !ok {
		return ErrNotFound
	}
	delete(s.blobs, key)
	return nil
}
