package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ballskill/credits-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache for the hot read paths: balances, events, and admission counts.
// Writes go to the primary store and invalidate the affected keys, so a
// cached admission count or type-mix input never survives a new admission.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Read-through (check cache first) ---

func (s *CachedStore) GetBalance(ctx context.Context, userID string) (int64, error) {
	if v, err := s.rdb.Get(ctx, balanceKey(userID)).Result(); err == nil {
		if balance, err := strconv.ParseInt(v, 10, 64); err == nil {
			return balance, nil
		}
	}

	balance, err := s.primary.GetBalance(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.rdb.Set(ctx, balanceKey(userID), strconv.FormatInt(balance, 10), s.ttl)
	return balance, nil
}

func (s *CachedStore) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	data, err := s.rdb.Get(ctx, eventKey(id)).Bytes()
	if err == nil {
		var e model.Event
		if json.Unmarshal(data, &e) == nil {
			return &e, nil
		}
	}

	e, err := s.primary.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cacheEvent(ctx, e)
	return e, nil
}

func (s *CachedStore) CountRegistrations(ctx context.Context, eventID string) (int, error) {
	if v, err := s.rdb.Get(ctx, regCountKey(eventID)).Result(); err == nil {
		if count, err := strconv.Atoi(v); err == nil {
			return count, nil
		}
	}

	count, err := s.primary.CountRegistrations(ctx, eventID)
	if err != nil {
		return 0, err
	}
	s.rdb.Set(ctx, regCountKey(eventID), strconv.Itoa(count), s.ttl)
	return count, nil
}

// --- Write-through (write to primary, invalidate cache) ---

func (s *CachedStore) InsertLedgerEntry(ctx context.Context, entry *model.LedgerEntry) error {
	if err := s.primary.InsertLedgerEntry(ctx, entry); err != nil {
		return err
	}
	s.rdb.Del(ctx, balanceKey(entry.UserID))
	return nil
}

func (s *CachedStore) CreateEvent(ctx context.Context, e *model.Event) error {
	if err := s.primary.CreateEvent(ctx, e); err != nil {
		return err
	}
	s.cacheEvent(ctx, e)
	return nil
}

func (s *CachedStore) UpdateEvent(ctx context.Context, e *model.Event) error {
	if err := s.primary.UpdateEvent(ctx, e); err != nil {
		return err
	}
	// Invalidate; next read re-populates.
	s.rdb.Del(ctx, eventKey(e.ID))
	return nil
}

func (s *CachedStore) DeleteEvent(ctx context.Context, id string) error {
	if err := s.primary.DeleteEvent(ctx, id); err != nil {
		return err
	}
	s.rdb.Del(ctx, eventKey(id), regCountKey(id))
	return nil
}

func (s *CachedStore) InsertRegistration(ctx context.Context, reg *model.Registration) error {
	if err := s.primary.InsertRegistration(ctx, reg); err != nil {
		return err
	}
	s.rdb.Del(ctx, regCountKey(reg.EventID))
	return nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) GetLedgerEntriesByUser(ctx context.Context, userID string) ([]model.LedgerEntry, error) {
	return s.primary.GetLedgerEntriesByUser(ctx, userID)
}

func (s *CachedStore) ListEvents(ctx context.Context) ([]model.Event, error) {
	return s.primary.ListEvents(ctx)
}

func (s *CachedStore) GetRegistration(ctx context.Context, eventID, userID string) (*model.Registration, error) {
	return s.primary.GetRegistration(ctx, eventID, userID)
}

func (s *CachedStore) ListRegistrationsByEvent(ctx context.Context, eventID string) ([]model.Registration, error) {
	return s.primary.ListRegistrationsByEvent(ctx, eventID)
}

func (s *CachedStore) UpsertSubmission(ctx context.Context, sub *model.Submission) error {
	return s.primary.UpsertSubmission(ctx, sub)
}

func (s *CachedStore) ListSubmissionsByEvent(ctx context.Context, eventID string) ([]model.Submission, error) {
	return s.primary.ListSubmissionsByEvent(ctx, eventID)
}

// --- Cache helpers ---

func (s *CachedStore) cacheEvent(ctx context.Context, e *model.Event) {
	if data, err := json.Marshal(e); err == nil {
		s.rdb.Set(ctx, eventKey(e.ID), data, s.ttl)
	}
}

func balanceKey(userID string) string  { return fmt.Sprintf("balance:%s", userID) }
func eventKey(id string) string        { return fmt.Sprintf("event:%s", id) }
func regCountKey(eventID string) string { return fmt.Sprintf("regcount:%s", eventID) }
