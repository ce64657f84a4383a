package usersettings

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// MemoryStore keeps settings in process memory. It backs the server when no
// database is reachable.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[[3]string]Setting
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[[3]string]Setting)}
}

func (s *MemoryStore) Get(_ context.Context, userEntityRef, bucket, key string) (*Setting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	setting, ok := s.data[[3]string{userEntityRef, bucket, key}]
	if !ok {
		return nil, ErrNotFound
	}
	return &setting, nil
}

func (s *MemoryStore) Set(_ context.Context, userEntityRef, bucket, key string, value json.RawMessage) (*Setting, error) {
	setting := Setting{
		Bucket:    bucket,
		Key:       key,
		Value:     append(json.RawMessage(nil), value...),
		UpdatedAt: time.Now().UTC(),
	}
	s.mu.Lock()
	s.data[[3]string{userEntityRef, bucket, key}] = setting
	s.mu.Unlock()
	return &setting, nil
}

func (s *MemoryStore) Delete(_ context.Context, userEntityRef, bucket, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := [3]string{userEntityRef, bucket, key}
	if _, ok := s.data[k]; !ok {
		return ErrNotFound
	}
	delete(s.data, k)
	return nil
}
