package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mmcdole/tadb/internal/adapter"
	"github.com/mmcdole/tadb/internal/domain"
	"github.com/mmcdole/tadb/internal/store"
)

// fakeSource serves static files from memory and counts fetches.
type fakeSource struct {
	files map[domain.DataType]string
	gate  chan struct{} // when set, Fetch blocks until it is closed
	calls atomic.Int32
}

func (s *fakeSource) Fetch(ctx context.Context, t domain.DataType) ([]byte, error) {
	s.calls.Add(1)
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	data, ok := s.files[t]
	if !ok {
		return nil, domain.ErrSourceNotFound
	}
	return []byte(data), nil
}

// countingStore wraps a store, counting writes and optionally failing them.
type countingStore struct {
	domain.FallbackStore
	mu      sync.Mutex
	sets    map[string]int
	failSet bool
}

func newCountingStore(t *testing.T) *countingStore {
	t.Helper()
	s, err := store.NewBoltStore("")
	if err != nil {
		t.Fatalf("NewBoltStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return &countingStore{FallbackStore: s, sets: make(map[string]int)}
}

func (s *countingStore) Set(key string, value []byte) error {
	s.mu.Lock()
	fail := s.failSet
	s.sets[key]++
	s.mu.Unlock()
	if fail {
		return errors.New("quota exceeded")
	}
	return s.FallbackStore.Set(key, value)
}

func (s *countingStore) setCount(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sets[key]
}

func (s *countingStore) put(t *testing.T, dt domain.DataType, value string) {
	t.Helper()
	if err := s.FallbackStore.Set(dt.StorageKey(), []byte(value)); err != nil {
		t.Fatalf("seed store: %v", err)
	}
}

// fakeSaver records every save.
type fakeSaver struct {
	mu    sync.Mutex
	names []string
	data  map[string][]byte
	fail  map[string]bool
}

func newFakeSaver() *fakeSaver {
	return &fakeSaver{data: make(map[string][]byte), fail: make(map[string]bool)}
}

func (s *fakeSaver) Save(_ context.Context, filename string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names = append(s.names, filename)
	if s.fail[filename] {
		return errors.New("disk full")
	}
	s.data[filename] = append([]byte(nil), data...)
	return nil
}

func newTestLoader(source domain.StaticSource, st domain.FallbackStore) *Loader {
	return NewLoader(source, st, adapter.NullLogger())
}

// newReadyRepository builds a repository and waits for initialization.
func newReadyRepository(t *testing.T, source domain.StaticSource, st domain.FallbackStore) *PostRepository {
	t.Helper()
	repo := NewPostRepository(context.Background(), newTestLoader(source, st), adapter.NullLogger())
	select {
	case <-repo.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("repository initialization did not finish")
	}
	return repo
}
