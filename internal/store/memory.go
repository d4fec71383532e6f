package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fotescodev/claude-watch/internal/model"
)

// MemoryStore is an in-process Store used when no database is
// configured, and by tests. Everything is lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	requests map[string]*model.Request
	sessions map[string]*model.SessionState
}

var _ Store = (*MemoryStore)(nil)

func NewMemory() *MemoryStore {
	return &MemoryStore{
		requests: make(map[string]*model.Request),
		sessions: make(map[string]*model.SessionState),
	}
}

func (s *MemoryStore) CreateRequest(_ context.Context, r *model.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.requests[r.ID] = &cp
	return nil
}

func (s *MemoryStore) GetRequest(_ context.Context, id string) (*model.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) ListPending(_ context.Context, pairingID string) ([]*model.Request, error) {
	return s.list(pairingID, true), nil
}

func (s *MemoryStore) ListAll(_ context.Context, pairingID string) ([]*model.Request, error) {
	return s.list(pairingID, false), nil
}

func (s *MemoryStore) list(pairingID string, pendingOnly bool) []*model.Request {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Request
	for _, r := range s.requests {
		if pairingID != "" && r.PairingID != pairingID {
			continue
		}
		if pendingOnly && r.Status != model.StatusPending {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *MemoryStore) ResolveRequest(_ context.Context, id string, status model.Status, decision *model.Decision) (*model.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	if r.Status != model.StatusPending {
		return nil, ErrAlreadyResolved
	}
	now := time.Now().UTC()
	r.Status = status
	r.ResolvedAt = &now
	if decision != nil {
		r.Approved = decision.Approved
		r.Selected = decision.Selected
		r.ResolvedBy = decision.By
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) GetSession(_ context.Context, pairingID string) (*model.SessionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.sessions[pairingID]
	if !ok {
		return model.DefaultSession(pairingID), nil
	}
	cp := *st
	return &cp, nil
}

func (s *MemoryStore) PutSession(_ context.Context, st *model.SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *st
	s.sessions[st.PairingID] = &cp
	return nil
}

func (s *MemoryStore) Close() error { return nil }
