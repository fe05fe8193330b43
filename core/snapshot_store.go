package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

type MemorySnapshotStore struct {
	mu      sync.Mutex
	entries map[string]PersistedSnapshot
}

func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{entries: map[string]PersistedSnapshot{}}
}

func (s *MemorySnapshotStore) Load(_ context.Context, slot string) (PersistedSnapshot, bool, error) {
	if s == nil {
		return PersistedSnapshot{}, false, fmt.Errorf("core: snapshot store is not configured")
	}
	slot = strings.TrimSpace(slot)
	if slot == "" {
		return PersistedSnapshot{}, false, fmt.Errorf("core: snapshot slot is required")
	}

	s.mu.Lock()
	snapshot, ok := s.entries[slot]
	s.mu.Unlock()
	return snapshot, ok, nil
}

func (s *MemorySnapshotStore) Save(_ context.Context, slot string, snapshot PersistedSnapshot) error {
	if s == nil {
		return fmt.Errorf("core: snapshot store is not configured")
	}
	slot = strings.TrimSpace(slot)
	if slot == "" {
		return fmt.Errorf("core: snapshot slot is required")
	}
	snapshot.PrincipalID = strings.TrimSpace(snapshot.PrincipalID)
	if snapshot.PrincipalID == "" {
		return fmt.Errorf("core: snapshot principal is required")
	}
	if snapshot.UpdatedAt.IsZero() {
		snapshot.UpdatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	s.entries[slot] = snapshot
	s.mu.Unlock()
	return nil
}

func (s *MemorySnapshotStore) Delete(_ context.Context, slot string) error {
	if s == nil {
		return fmt.Errorf("core: snapshot store is not configured")
	}
	s.mu.Lock()
	delete(s.entries, strings.TrimSpace(slot))
	s.mu.Unlock()
	return nil
}
