package feedback

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/smartreview/pkg/models"
)

// Page sizes for List. A limit that is not positive becomes DefaultPageSize
// and a larger one is capped at MaxPageSize.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Store persists feedback records. It stands in for the feedback-persistence
// collaborator; records are never published from here.
type Store interface {
	Save(ctx context.Context, rec *models.FeedbackRecord) error
	Get(ctx context.Context, id string) (*models.FeedbackRecord, error)
	AttachSuggestion(ctx context.Context, id, suggestion string) error
	// List returns a store's records, newest first. Pages start at 1.
	List(ctx context.Context, storeID string, page, limit int) ([]*models.FeedbackRecord, error)
}

// MemoryStore keeps records in process memory. Records are copied in and
// out, so callers never share state with the store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*models.FeedbackRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*models.FeedbackRecord)}
}

func (s *MemoryStore) Save(_ context.Context, rec *models.FeedbackRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = cloneRecord(rec)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*models.FeedbackRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, models.ErrFeedbackNotFound
	}
	return cloneRecord(rec), nil
}

func (s *MemoryStore) AttachSuggestion(_ context.Context, id, suggestion string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return models.ErrFeedbackNotFound
	}
	rec.AISuggestion = &suggestion
	return nil
}

func (s *MemoryStore) List(_ context.Context, storeID string, page, limit int) ([]*models.FeedbackRecord, error) {
	limit, start, err := normalizePage(page, limit)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	matched := make([]*models.FeedbackRecord, 0)
	for _, rec := range s.records {
		if rec.StoreID == storeID {
			matched = append(matched, rec)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if start >= len(matched) {
		return []*models.FeedbackRecord{}, nil
	}
	end := min(start+limit, len(matched))
	out := make([]*models.FeedbackRecord, 0, end-start)
	for _, rec := range matched[start:end] {
		out = append(out, cloneRecord(rec))
	}
	return out, nil
}

// normalizePage returns the effective limit and the offset of page.
func normalizePage(page, limit int) (int, int, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	limit = min(limit, MaxPageSize)
	if page-1 > math.MaxInt32/limit {
		return 0, 0, &models.InvalidRequestError{Field: "page", Reason: "is out of range"}
	}
	return limit, (page - 1) * limit, nil
}

func cloneRecord(rec *models.FeedbackRecord) *models.FeedbackRecord {
	c := *rec
	c.ImprovementAreas = append([]string(nil), rec.ImprovementAreas...)
	if rec.AISuggestion != nil {
		s := *rec.AISuggestion
		c.AISuggestion = &s
	}
	if rec.ContactInfo != nil {
		s := *rec.ContactInfo
		c.ContactInfo = &s
	}
	return &c
}
