// TransClaw - Telegram translation relay
// License: MIT
//
// Copyright (c) 2026 TransClaw contributors

// Package dedup remembers which updates and files were already processed.
package dedup

import (
	"sync"
	"time"
)

const (
	DefaultEventCapacity = 1000
	DefaultFileTTL       = 10 * time.Minute
)

type fileEntry struct {
	insertedAt time.Time
	reply      string
}

// Store holds two structures:
//   - a fixed-capacity ring of event ids with a set for membership; when the
//     ring is full the oldest id is evicted.
//   - a file id -> reply cache whose entries expire lazily on lookup.
//
// Store is safe for concurrent use.
type Store struct {
	mu sync.Mutex

	ring []int64
	next int
	size int
	seen map[int64]struct{}

	files   map[string]fileEntry
	fileTTL time.Duration

	now func() time.Time
}

type Option func(*Store)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(eventCapacity int, fileTTL time.Duration, opts ...Option) *Store {
	if eventCapacity <= 0 {
		eventCapacity = DefaultEventCapacity
	}
	if fileTTL <= 0 {
		fileTTL = DefaultFileTTL
	}
	s := &Store{
		ring:    make([]int64, eventCapacity),
		seen:    make(map[int64]struct{}, eventCapacity),
		files:   make(map[string]fileEntry),
		fileTTL: fileTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SeenEvent reports whether id was marked and not yet evicted.
func (s *Store) SeenEvent(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[id]
	return ok
}

// MarkEvent records id and reports whether it was new. Check and insert
// happen under one lock, so two callers racing on the same id get exactly one
// true.
func (s *Store) MarkEvent(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[id]; ok {
		return false
	}

	if s.size == len(s.ring) {
		delete(s.seen, s.ring[s.next])
	} else {
		s.size++
	}
	s.ring[s.next] = id
	s.next = (s.next + 1) % len(s.ring)
	s.seen[id] = struct{}{}
	return true
}

// EventCount returns how many event ids are currently remembered.
func (s *Store) EventCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// CachedFile returns the reply stored for fileID. An entry older than the TTL
// is removed and reported as missing.
func (s *Store) CachedFile(fileID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.files[fileID]
	if !ok {
		return "", false
	}
	if s.now().Sub(e.insertedAt) > s.fileTTL {
		delete(s.files, fileID)
		return "", false
	}
	return e.reply, true
}

// CacheFile stores reply for fileID and restarts its TTL.
func (s *Store) CacheFile(fileID, reply string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[fileID] = fileEntry{insertedAt: s.now(), reply: reply}
}

// FileCount returns the number of cached files, expired ones included.
func (s *Store) FileCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}
