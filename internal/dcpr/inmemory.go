package dcpr

import (
	"context"
	"sort"
	"sync"
)

// InMemory implements Store with in-process concurrency safety. It backs the
// API when no database is configured and powers the test suites.
type InMemory struct {
	mu         sync.RWMutex
	requests   map[string]*Request
	activities []*ManagementActivity
}

var _ Store = (*InMemory)(nil)

// NewInMemory creates an empty store.
func NewInMemory() *InMemory {
	return &InMemory{requests: make(map[string]*Request)}
}

func (s *InMemory) Insert(ctx context.Context, req *Request, acts ...*ManagementActivity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[req.ReferenceID] = req.Clone()
	s.appendActivities(acts)
	return nil
}

func (s *InMemory) Get(ctx context.Context, referenceID string) (*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requests[referenceID]
	if !ok {
		return nil, ErrNotFound
	}
	return req.Clone(), nil
}

func (s *InMemory) Update(ctx context.Context, req *Request, acts ...*ManagementActivity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[req.ReferenceID]; !ok {
		return ErrNotFound
	}
	s.requests[req.ReferenceID] = req.Clone()
	s.appendActivities(acts)
	return nil
}

func (s *InMemory) ClaimReviewer(ctx context.Context, referenceID string, body ReviewBody, reviewerID string, from, to Status, act *ManagementActivity) (*Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[referenceID]
	if !ok {
		return nil, ErrNotFound
	}
	// Conditional bind: a concurrent claimant that committed first already
	// moved the request out of the awaiting status.
	if req.Status != from {
		return nil, NotAuthorized("request is no longer awaiting review")
	}
	req.Status = to
	switch body {
	case BodyNSIF:
		req.NSIFReviewer = reviewerID
	case BodyCSI:
		req.CSIModerator = reviewerID
	}
	req.UpdatedAt = act.OccurredAt
	s.appendActivities([]*ManagementActivity{act})
	return req.Clone(), nil
}

func (s *InMemory) Delete(ctx context.Context, referenceID string, act *ManagementActivity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[referenceID]; !ok {
		return ErrNotFound
	}
	delete(s.requests, referenceID)
	s.appendActivities([]*ManagementActivity{act})
	return nil
}

func (s *InMemory) ListByOwner(ctx context.Context, ownerID string) ([]*Request, error) {
	return s.list(func(r *Request) bool { return r.OwnerUser == ownerID })
}

func (s *InMemory) ListPublic(ctx context.Context) ([]*Request, error) {
	return s.list(func(r *Request) bool { return r.Status.Terminal() })
}

func (s *InMemory) ListPendingReview(ctx context.Context, body ReviewBody) ([]*Request, error) {
	awaiting, under := StatusAwaitingNSIFReview, StatusUnderNSIFReview
	if body == BodyCSI {
		awaiting, under = StatusAwaitingCSIReview, StatusUnderCSIReview
	}
	return s.list(func(r *Request) bool { return r.Status == awaiting || r.Status == under })
}

func (s *InMemory) ListActivities(ctx context.Context, referenceID string) ([]*ManagementActivity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*ManagementActivity
	for _, act := range s.activities {
		if act.RequestID == referenceID {
			cp := *act
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *InMemory) list(keep func(*Request) bool) ([]*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Request
	for _, req := range s.requests {
		if keep(req) {
			out = append(out, req.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReferenceID < out[j].ReferenceID })
	return out, nil
}

func (s *InMemory) appendActivities(acts []*ManagementActivity) {
	for _, act := range acts {
		cp := *act
		s.activities = append(s.activities, &cp)
	}
}
