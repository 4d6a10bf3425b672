package drafts

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	draft   Draft
	expires time.Time
}

// MemoryStore keeps drafts in process. Expired entries are pruned on access.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore builds a store whose drafts live for ttl. A non-positive ttl
// disables expiry.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Put(ctx context.Context, d *Draft) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()
	var expires time.Time
	if s.ttl > 0 {
		expires = s.now().Add(s.ttl)
	}
	s.entries[d.ID] = memoryEntry{draft: *d, expires: expires}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Draft, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()
	entry, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	d := entry.draft
	return &d, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

// Len reports the number of live drafts.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()
	return len(s.entries)
}

func (s *MemoryStore) pruneLocked() {
	now := s.now()
	for id, entry := range s.entries {
		if !entry.expires.IsZero() && !now.Before(entry.expires) {
			delete(s.entries, id)
		}
	}
}
