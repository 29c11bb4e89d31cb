package store

import (
	"context"
	"sort"
	"sync"

	"github.com/ballskill/credits-engine/internal/model"
)

// MemoryStore implements Store with in-memory maps. This is the default
// store and preserves the original behavior: all state lives for one
// process lifetime and is discarded on restart.
type MemoryStore struct {
	mu            sync.RWMutex
	balances      map[string]int64                    // userID → running sum of deltas
	ledger        map[string][]model.LedgerEntry      // userID → chronological entries
	events        map[string]*model.Event
	registrations map[string]map[string]*model.Registration // eventID → userID → reg
	submissions   map[string]map[string]map[string]*model.Submission // eventID → userID → drill
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		balances:      make(map[string]int64),
		ledger:        make(map[string][]model.LedgerEntry),
		events:        make(map[string]*model.Event),
		registrations: make(map[string]map[string]*model.Registration),
		submissions:   make(map[string]map[string]map[string]*model.Submission),
	}
}

func (s *MemoryStore) GetBalance(_ context.Context, userID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.balances[userID], nil
}

func (s *MemoryStore) InsertLedgerEntry(_ context.Context, entry *model.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Balance and ledger move together under one lock, so
	// balance == sum(deltas) holds at every point.
	s.ledger[entry.UserID] = append(s.ledger[entry.UserID], *entry)
	s.balances[entry.UserID] += entry.Delta
	return nil
}

func (s *MemoryStore) GetLedgerEntriesByUser(_ context.Context, userID string) ([]model.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.ledger[userID]
	out := make([]model.LedgerEntry, len(entries))
	copy(out, entries)
	return out, nil
}

func (s *MemoryStore) CreateEvent(_ context.Context, event *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[event.ID]; ok {
		return ErrConflict
	}
	// Store a copy to avoid external mutation.
	copy := *event
	s.events[event.ID] = &copy
	return nil
}

func (s *MemoryStore) GetEvent(_ context.Context, id string) (*model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	copy := *e
	return &copy, nil
}

func (s *MemoryStore) UpdateEvent(_ context.Context, event *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[event.ID]; !ok {
		return ErrNotFound
	}
	copy := *event
	s.events[event.ID] = &copy
	return nil
}

func (s *MemoryStore) DeleteEvent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[id]; !ok {
		return ErrNotFound
	}
	delete(s.events, id)
	return nil
}

func (s *MemoryStore) ListEvents(_ context.Context) ([]model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]model.Event, 0, len(s.events))
	for _, e := range s.events {
		events = append(events, *e)
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].Schedule.After(events[j].Schedule)
	})
	return events, nil
}

func (s *MemoryStore) InsertRegistration(_ context.Context, reg *model.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	regs, ok := s.registrations[reg.EventID]
	if !ok {
		regs = make(map[string]*model.Registration)
		s.registrations[reg.EventID] = regs
	}
	if _, exists := regs[reg.UserID]; exists {
		return ErrConflict
	}
	copy := *reg
	regs[reg.UserID] = &copy
	return nil
}

func (s *MemoryStore) GetRegistration(_ context.Context, eventID, userID string) (*model.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reg, ok := s.registrations[eventID][userID]
	if !ok {
		return nil, ErrNotFound
	}
	copy := *reg
	return &copy, nil
}

func (s *MemoryStore) CountRegistrations(_ context.Context, eventID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.registrations[eventID]), nil
}

func (s *MemoryStore) ListRegistrationsByEvent(_ context.Context, eventID string) ([]model.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	regs := s.registrations[eventID]
	out := make([]model.Registration, 0, len(regs))
	for _, r := range regs {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].AdmittedAt.Before(out[j].AdmittedAt)
	})
	return out, nil
}

func (s *MemoryStore) UpsertSubmission(_ context.Context, sub *model.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byUser, ok := s.submissions[sub.EventID]
	if !ok {
		byUser = make(map[string]map[string]*model.Submission)
		s.submissions[sub.EventID] = byUser
	}
	byDrill, ok := byUser[sub.UserID]
	if !ok {
		byDrill = make(map[string]*model.Submission)
		byUser[sub.UserID] = byDrill
	}
	copy := *sub
	byDrill[sub.Drill] = &copy
	return nil
}

func (s *MemoryStore) ListSubmissionsByEvent(_ context.Context, eventID string) ([]model.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Submission
	for _, byDrill := range s.submissions[eventID] {
		for _, sub := range byDrill {
			out = append(out, *sub)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].Drill < out[j].Drill
	})
	return out, nil
}
