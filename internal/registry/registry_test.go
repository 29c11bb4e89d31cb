package registry_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/ballskill/credits-engine/internal/catalog"
	"github.com/ballskill/credits-engine/internal/model"
	"github.com/ballskill/credits-engine/internal/registry"
	"github.com/ballskill/credits-engine/internal/store"
)

func newRegistry(t *testing.T) (*registry.Service, *catalog.Service) {
	t.Helper()
	ms := store.NewMemoryStore()
	cat := catalog.NewService(ms)
	return registry.NewService(ms, cat), cat
}

func seedEvent(t *testing.T, cat *catalog.Service, capacity int) *model.Event {
	t.Helper()
	event, err := cat.Create(context.Background(), catalog.EventSpec{
		Name:     "test event",
		Capacity: capacity,
	})
	if err != nil {
		t.Fatalf("failed to seed event: %v", err)
	}
	return event
}

func TestAdmit_Basic(t *testing.T) {
	reg, cat := newRegistry(t)
	ctx := context.Background()
	event := seedEvent(t, cat, 4)

	r, err := reg.Admit(ctx, event.ID, "a@x.com", 30, "adult")
	if err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if r.CreditsCharged != 30 || r.PlayerType != "adult" {
		t.Errorf("unexpected registration: %+v", r)
	}

	admitted, _ := reg.IsAdmitted(ctx, event.ID, "a@x.com")
	if !admitted {
		t.Error("expected IsAdmitted true after Admit")
	}
	count, _ := reg.AdmittedCount(ctx, event.ID)
	if count != 1 {
		t.Errorf("expected count 1, got %d", count)
	}
}

func TestAdmit_DuplicateConflicts(t *testing.T) {
	reg, cat := newRegistry(t)
	ctx := context.Background()
	event := seedEvent(t, cat, 4)

	if _, err := reg.Admit(ctx, event.ID, "a@x.com", 30, "adult"); err != nil {
		t.Fatalf("first Admit failed: %v", err)
	}
	_, err := reg.Admit(ctx, event.ID, "a@x.com", 30, "adult")
	if !errors.Is(err, registry.ErrAlreadyAdmitted) {
		t.Fatalf("expected ErrAlreadyAdmitted, got %v", err)
	}
	count, _ := reg.AdmittedCount(ctx, event.ID)
	if count != 1 {
		t.Errorf("duplicate admit changed count: %d", count)
	}
}

func TestAdmit_CaseInsensitivePair(t *testing.T) {
	reg, cat := newRegistry(t)
	ctx := context.Background()
	event := seedEvent(t, cat, 4)

	if _, err := reg.Admit(ctx, event.ID, "A@X.com", 0, "adult"); err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if _, err := reg.Admit(ctx, event.ID, "a@x.COM", 0, "adult"); !errors.Is(err, registry.ErrAlreadyAdmitted) {
		t.Fatalf("expected case-insensitive conflict, got %v", err)
	}
	admitted, _ := reg.IsAdmitted(ctx, event.ID, "A@x.Com")
	if !admitted {
		t.Error("expected IsAdmitted true for case variant")
	}
}

func TestAdmit_CapacityExceeded(t *testing.T) {
	reg, cat := newRegistry(t)
	ctx := context.Background()
	event := seedEvent(t, cat, 2)

	if _, err := reg.Admit(ctx, event.ID, "a@x.com", 0, "adult"); err != nil {
		t.Fatalf("Admit a failed: %v", err)
	}
	if _, err := reg.Admit(ctx, event.ID, "b@x.com", 0, "pro"); err != nil {
		t.Fatalf("Admit b failed: %v", err)
	}
	_, err := reg.Admit(ctx, event.ID, "c@x.com", 0, "elite")
	if !errors.Is(err, registry.ErrEventFull) {
		t.Fatalf("expected ErrEventFull, got %v", err)
	}
}

func TestAdmit_UnknownEvent(t *testing.T) {
	reg, _ := newRegistry(t)

	_, err := reg.Admit(context.Background(), "missing", "a@x.com", 0, "adult")
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected catalog.ErrNotFound, got %v", err)
	}
}

func TestTypeMix_EmptyEvent(t *testing.T) {
	reg, cat := newRegistry(t)
	event := seedEvent(t, cat, 4)

	mix, err := reg.TypeMix(context.Background(), event.ID)
	if err != nil {
		t.Fatalf("TypeMix failed: %v", err)
	}
	if len(mix) != 0 {
		t.Errorf("expected empty mix for zero admissions, got %v", mix)
	}
}

func TestTypeMix_FractionsSumToOne(t *testing.T) {
	reg, cat := newRegistry(t)
	ctx := context.Background()
	event := seedEvent(t, cat, 8)

	admits := []struct{ user, tag string }{
		{"a@x.com", "adult"},
		{"b@x.com", "adult"},
		{"c@x.com", "pro"},
		{"d@x.com", "youth"},
	}
	for _, a := range admits {
		if _, err := reg.Admit(ctx, event.ID, a.user, 0, a.tag); err != nil {
			t.Fatalf("Admit %s failed: %v", a.user, err)
		}
	}

	mix, err := reg.TypeMix(ctx, event.ID)
	if err != nil {
		t.Fatalf("TypeMix failed: %v", err)
	}
	if got := mix["adult"]; got != 0.5 {
		t.Errorf("adult fraction = %v, want 0.5", got)
	}
	if got := mix["pro"]; got != 0.25 {
		t.Errorf("pro fraction = %v, want 0.25", got)
	}

	var sum float64
	for _, f := range mix {
		if f < 0 || f > 1 {
			t.Errorf("fraction out of range: %v", f)
		}
		sum += f
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("fractions sum to %v, want 1", sum)
	}
}

func TestTypeMix_UpdatesOnAdmission(t *testing.T) {
	reg, cat := newRegistry(t)
	ctx := context.Background()
	event := seedEvent(t, cat, 8)

	reg.Admit(ctx, event.ID, "a@x.com", 0, "adult")
	mix, _ := reg.TypeMix(ctx, event.ID)
	if mix["adult"] != 1.0 {
		t.Fatalf("expected all-adult mix, got %v", mix)
	}

	reg.Admit(ctx, event.ID, "b@x.com", 0, "elite")
	mix, _ = reg.TypeMix(ctx, event.ID)
	if mix["adult"] != 0.5 || mix["elite"] != 0.5 {
		t.Errorf("mix not recomputed after admission: %v", mix)
	}
}
