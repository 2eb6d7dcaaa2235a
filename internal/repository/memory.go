package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/sentinela/internal/domain"
)

type analyticsKey struct {
	sessionID   string
	candidateID string
}

// MemorySessionAnalyticsStore keeps records in process memory. A single mutex
// serializes writers, and every returned record is a deep copy.
type MemorySessionAnalyticsStore struct {
	mu      sync.Mutex
	records map[analyticsKey]*domain.SessionAnalytics
	now     func() time.Time
}

func NewMemorySessionAnalyticsStore() *MemorySessionAnalyticsStore {
	return &MemorySessionAnalyticsStore{
		records: make(map[analyticsKey]*domain.SessionAnalytics),
		now:     time.Now,
	}
}

func (s *MemorySessionAnalyticsStore) Upsert(ctx context.Context, sessionID, candidateID string, mutate MutateFunc) (*domain.SessionAnalytics, error) {
	return s.modify(ctx, sessionID, candidateID, true, mutate)
}

func (s *MemorySessionAnalyticsStore) Update(ctx context.Context, sessionID, candidateID string, mutate MutateFunc) (*domain.SessionAnalytics, error) {
	return s.modify(ctx, sessionID, candidateID, false, mutate)
}

func (s *MemorySessionAnalyticsStore) modify(ctx context.Context, sessionID, candidateID string, create bool, mutate MutateFunc) (*domain.SessionAnalytics, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := analyticsKey{sessionID: sessionID, candidateID: candidateID}
	stored, ok := s.records[key]
	if !ok {
		if !create {
			return nil, domain.ErrAnalyticsNotFound
		}
		stored = domain.NewSessionAnalytics(sessionID, candidateID, s.now().UTC())
	}

	// Mutate a copy so a failing mutation leaves the stored record untouched
	working := stored.Clone()
	if err := mutate(working); err != nil {
		return nil, err
	}

	s.records[key] = working
	return working.Clone(), nil
}

func (s *MemorySessionAnalyticsStore) Get(ctx context.Context, sessionID, candidateID string) (*domain.SessionAnalytics, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[analyticsKey{sessionID: sessionID, candidateID: candidateID}]
	if !ok {
		return nil, domain.ErrAnalyticsNotFound
	}
	return record.Clone(), nil
}

func (s *MemorySessionAnalyticsStore) ListBySession(ctx context.Context, sessionID string) ([]*domain.SessionAnalytics, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var records []*domain.SessionAnalytics
	for key, record := range s.records {
		if key.sessionID == sessionID {
			records = append(records, record.Clone())
		}
	}

	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		}
		return records[i].CandidateID < records[j].CandidateID
	})

	return records, nil
}

// MemoryReferenceStore keeps enrolled descriptors in process memory.
type MemoryReferenceStore struct {
	mu   sync.RWMutex
	refs map[string]domain.CandidateReference
	now  func() time.Time
}

func NewMemoryReferenceStore() *MemoryReferenceStore {
	return &MemoryReferenceStore{
		refs: make(map[string]domain.CandidateReference),
		now:  time.Now,
	}
}

func (s *MemoryReferenceStore) Save(_ context.Context, ref *domain.CandidateReference) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	stored := *ref
	stored.Descriptor = append([]float64(nil), ref.Descriptor...)
	stored.Dimensions = len(ref.Descriptor)
	stored.CreatedAt = now
	if existing, ok := s.refs[ref.CandidateID]; ok {
		stored.CreatedAt = existing.CreatedAt
	}
	stored.UpdatedAt = now
	s.refs[ref.CandidateID] = stored

	ref.Dimensions = stored.Dimensions
	ref.CreatedAt = stored.CreatedAt
	ref.UpdatedAt = stored.UpdatedAt
	return nil
}

func (s *MemoryReferenceStore) Get(_ context.Context, candidateID string) (*domain.CandidateReference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ref, ok := s.refs[candidateID]
	if !ok {
		return nil, domain.ErrReferenceNotFound
	}
	ref.Descriptor = append([]float64(nil), ref.Descriptor...)
	return &ref, nil
}

func (s *MemoryReferenceStore) Delete(_ context.Context, candidateID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.refs[candidateID]; !ok {
		return domain.ErrReferenceNotFound
	}
	delete(s.refs, candidateID)
	return nil
}

// MemoryIdentityCheckStore keeps verification attempts in process memory.
type MemoryIdentityCheckStore struct {
	mu     sync.RWMutex
	checks []domain.IdentityCheck
	now    func() time.Time
}

func NewMemoryIdentityCheckStore() *MemoryIdentityCheckStore {
	return &MemoryIdentityCheckStore{now: time.Now}
}

func (s *MemoryIdentityCheckStore) Create(_ context.Context, check *domain.IdentityCheck) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if check.ID == uuid.Nil {
		check.ID = uuid.New()
	}
	check.CreatedAt = s.now().UTC()
	s.checks = append(s.checks, *check)
	return nil
}

func (s *MemoryIdentityCheckStore) ListBySession(_ context.Context, sessionID, candidateID string) ([]domain.IdentityCheck, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.IdentityCheck
	for _, c := range s.checks {
		if c.SessionID == sessionID && c.CandidateID == candidateID {
			out = append(out, c)
		}
	}
	return out, nil
}
