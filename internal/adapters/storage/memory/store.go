// Package memory provides an in-process StateStore. Records are lost when
// the process exits.
package memory

import (
	"context"
	"sync"

	"github.com/randomtoy/raffle-go/internal/ports"
)

type Store struct {
	mu      sync.RWMutex
	records map[string][]byte
}

func NewStore() *Store {
	return &Store{records: make(map[string][]byte)}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.records[key]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[key] = append([]byte(nil), value...)
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[key]; !ok {
		return ports.ErrNotFound
	}
	delete(s.records, key)
	return nil
}

func (s *Store) Close() error { return nil }
