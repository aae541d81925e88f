// Package catalog resolves store metadata. It stands in for the Store/QR
// service; the engine only ever reads from it.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/smartreview/pkg/models"
)

// Directory looks up stores by id.
type Directory interface {
	GetStore(ctx context.Context, id string) (*models.Store, error)
}

// Static is an in-memory directory, typically loaded from configuration.
type Static struct {
	mu     sync.RWMutex
	stores map[string]models.Store
}

// NewStatic indexes stores by id. Duplicate or empty ids are rejected.
func NewStatic(stores []models.Store) (*Static, error) {
	s := &Static{stores: make(map[string]models.Store, len(stores))}
	for _, st := range stores {
		if err := s.Put(st); err != nil {
			return nil, err
		}
		if st.ID != "" && countID(stores, st.ID) > 1 {
			return nil, fmt.Errorf("duplicate store id %q", st.ID)
		}
	}
	return s, nil
}

// Put adds or replaces a store.
func (s *Static) Put(st models.Store) error {
	st.ID = strings.TrimSpace(st.ID)
	if st.ID == "" {
		return fmt.Errorf("store id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stores[st.ID] = st
	return nil
}

// GetStore returns a copy of the store, or models.ErrStoreNotFound.
func (s *Static) GetStore(_ context.Context, id string) (*models.Store, error) {
	s.mu.RLock()
	st, ok := s.stores[strings.TrimSpace(id)]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrStoreNotFound, id)
	}
	st.SEOKeywords = append([]string(nil), st.SEOKeywords...)
	st.ServicesOffered = append([]string(nil), st.ServicesOffered...)
	st.Platforms = append([]models.PlatformLink(nil), st.Platforms...)
	return &st, nil
}

// IDs lists known store ids in sorted order.
func (s *Static) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.stores))
	for id := range s.stores {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func countID(stores []models.Store, id string) int {
	n := 0
	for _, st := range stores {
		if strings.TrimSpace(st.ID) == id {
			n++
		}
	}
	return n
}
