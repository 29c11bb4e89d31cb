// Package registry owns per-event admission sets and the derived player
// type mix. Admission is an atomic insert-if-absent keyed by
// (eventID, userID); membership here is the authoritative answer to
// "is this user admitted".
package registry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ballskill/credits-engine/internal/catalog"
	"github.com/ballskill/credits-engine/internal/ledger"
	"github.com/ballskill/credits-engine/internal/model"
	"github.com/ballskill/credits-engine/internal/store"
)

var (
	// ErrAlreadyAdmitted is returned when the (event, user) pair already
	// holds a registration. Callers running the join transaction translate
	// this into an idempotent already-joined outcome rather than a failure.
	ErrAlreadyAdmitted = errors.New("registry: user already admitted")

	// ErrEventFull is returned when the event's capacity is exhausted.
	ErrEventFull = errors.New("registry: event is full")
)

// Service owns admissions. It depends on the catalog for event existence
// and capacity, and on the store for membership.
type Service struct {
	store   store.Store
	catalog *catalog.Service
}

// NewService creates a registry service.
func NewService(st store.Store, cat *catalog.Service) *Service {
	return &Service{store: st, catalog: cat}
}

// IsAdmitted reports whether the user holds a registration for the event.
func (s *Service) IsAdmitted(ctx context.Context, eventID, userID string) (bool, error) {
	_, err := s.store.GetRegistration(ctx, eventID, ledger.NormalizeUserID(userID))
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// AdmittedCount returns the number of admitted users for the event.
func (s *Service) AdmittedCount(ctx context.Context, eventID string) (int, error) {
	return s.store.CountRegistrations(ctx, eventID)
}

// Admit registers the user for the event. Fails with ErrEventFull when
// capacity is exhausted and ErrAlreadyAdmitted when the pair exists; the
// duplicate check and the insert are a single store operation, so racing
// admits cannot both succeed.
func (s *Service) Admit(ctx context.Context, eventID, userID string, creditsCharged int64, playerType string) (*model.Registration, error) {
	event, err := s.catalog.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}

	count, err := s.store.CountRegistrations(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if count >= event.Capacity {
		return nil, ErrEventFull
	}

	reg := &model.Registration{
		EventID:        eventID,
		UserID:         ledger.NormalizeUserID(userID),
		CreditsCharged: creditsCharged,
		PlayerType:     playerType,
		AdmittedAt:     time.Now().UTC(),
	}
	if err := s.store.InsertRegistration(ctx, reg); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrAlreadyAdmitted
		}
		return nil, err
	}

	slog.Info("user admitted",
		"event", eventID,
		"user", reg.UserID,
		"charged", creditsCharged,
		"player_type", playerType,
	)
	return reg, nil
}

// TypeMix returns the distribution of player types across the event's
// admitted users: tag → fraction in [0,1], fractions summing to 1. An
// event with no admissions yields an empty map. Recomputed from registry
// state on every call, so it can never go stale.
func (s *Service) TypeMix(ctx context.Context, eventID string) (map[string]float64, error) {
	regs, err := s.store.ListRegistrationsByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	mix := make(map[string]float64)
	if len(regs) == 0 {
		return mix, nil
	}

	counts := make(map[string]int)
	for _, r := range regs {
		counts[r.PlayerType]++
	}
	total := float64(len(regs))
	for tag, n := range counts {
		mix[tag] = float64(n) / total
	}
	return mix, nil
}
