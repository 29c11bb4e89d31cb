// Package catalog provides CRUD over event records. No business invariants
// live here beyond field validation; admission and debiting belong to the
// registry and ledger.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ballskill/credits-engine/internal/model"
	"github.com/ballskill/credits-engine/internal/profile"
	"github.com/ballskill/credits-engine/internal/store"
)

// ErrNotFound is returned for reads, updates, and deletes of unknown event
// IDs.
var ErrNotFound = errors.New("catalog: event not found")

// Service owns the event catalog.
type Service struct {
	store store.Store
}

// NewService creates a catalog service backed by the given store.
func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// EventSpec carries the caller-supplied fields for create and update.
// Zero-valued optional fields get defaults on create.
type EventSpec struct {
	Name             string    `json:"name"`
	FeeCredits       int64     `json:"fee_credits"`
	Capacity         int       `json:"capacity"`
	LocationType     string    `json:"location_type"`
	Schedule         time.Time `json:"schedule"`
	DrillsEnabled    []string  `json:"drills_enabled"`
	PrizePoolCredits int64     `json:"prize_pool_credits"`
}

func validate(spec *EventSpec) error {
	spec.Name = strings.TrimSpace(spec.Name)
	if spec.Name == "" {
		return fmt.Errorf("name is required")
	}
	if spec.FeeCredits < 0 {
		return fmt.Errorf("fee_credits must be a non-negative integer")
	}
	if spec.Capacity < 1 {
		return fmt.Errorf("capacity must be a positive integer")
	}
	if spec.PrizePoolCredits < 0 {
		return fmt.Errorf("prize_pool_credits must be a non-negative integer")
	}
	switch spec.LocationType {
	case model.LocationInPerson, model.LocationOnline:
	default:
		return fmt.Errorf("location_type must be %q or %q", model.LocationInPerson, model.LocationOnline)
	}
	for _, drill := range spec.DrillsEnabled {
		if !profile.ValidDrill(drill) {
			return fmt.Errorf("unknown drill %q", drill)
		}
	}
	return nil
}

// Create validates the spec and persists a new event. Defaults: location
// in_person, schedule now, the standard drill set, capacity required.
func (s *Service) Create(ctx context.Context, spec EventSpec) (*model.Event, error) {
	if spec.LocationType == "" {
		spec.LocationType = model.LocationInPerson
	}
	if spec.Schedule.IsZero() {
		spec.Schedule = time.Now().UTC()
	}
	if spec.DrillsEnabled == nil {
		spec.DrillsEnabled = profile.DefaultDrills()
	}
	if err := validate(&spec); err != nil {
		return nil, err
	}

	event := &model.Event{
		ID:               uuid.New().String(),
		Name:             spec.Name,
		FeeCredits:       spec.FeeCredits,
		Capacity:         spec.Capacity,
		LocationType:     spec.LocationType,
		Schedule:         spec.Schedule,
		DrillsEnabled:    spec.DrillsEnabled,
		PrizePoolCredits: spec.PrizePoolCredits,
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.store.CreateEvent(ctx, event); err != nil {
		return nil, err
	}

	slog.Info("event created", "id", event.ID, "name", event.Name,
		"fee", event.FeeCredits, "capacity", event.Capacity)
	return event, nil
}

// Update replaces the mutable fields of an existing event.
func (s *Service) Update(ctx context.Context, id string, spec EventSpec) (*model.Event, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if spec.LocationType == "" {
		spec.LocationType = existing.LocationType
	}
	if spec.Schedule.IsZero() {
		spec.Schedule = existing.Schedule
	}
	if spec.DrillsEnabled == nil {
		spec.DrillsEnabled = existing.DrillsEnabled
	}
	if err := validate(&spec); err != nil {
		return nil, err
	}

	event := &model.Event{
		ID:               existing.ID,
		Name:             spec.Name,
		FeeCredits:       spec.FeeCredits,
		Capacity:         spec.Capacity,
		LocationType:     spec.LocationType,
		Schedule:         spec.Schedule,
		DrillsEnabled:    spec.DrillsEnabled,
		PrizePoolCredits: spec.PrizePoolCredits,
		CreatedAt:        existing.CreatedAt,
	}
	if err := s.store.UpdateEvent(ctx, event); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return event, nil
}

// Delete removes an event.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteEvent(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	slog.Info("event deleted", "id", id)
	return nil
}

// Get retrieves an event by ID.
func (s *Service) Get(ctx context.Context, id string) (*model.Event, error) {
	event, err := s.store.GetEvent(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return event, nil
}

// List returns all events, newest schedule first.
func (s *Service) List(ctx context.Context) ([]model.Event, error) {
	return s.store.ListEvents(ctx)
}
