package profile_test

import (
	"errors"
	"testing"

	"github.com/ballskill/credits-engine/internal/profile"
)

func TestNormalizeType_Valid(t *testing.T) {
	for _, tag := range []string{"youth", "teens", "adult", "pro", "elite"} {
		got, err := profile.NormalizeType(tag)
		if err != nil {
			t.Errorf("NormalizeType(%q) failed: %v", tag, err)
		}
		if got != tag {
			t.Errorf("NormalizeType(%q) = %q", tag, got)
		}
	}
}

func TestNormalizeType_CaseAndWhitespace(t *testing.T) {
	got, err := profile.NormalizeType("  Elite ")
	if err != nil {
		t.Fatalf("NormalizeType failed: %v", err)
	}
	if got != profile.TypeElite {
		t.Errorf("got %q, want %q", got, profile.TypeElite)
	}
}

func TestNormalizeType_EmptyDefaults(t *testing.T) {
	got, err := profile.NormalizeType("")
	if err != nil {
		t.Fatalf("NormalizeType failed: %v", err)
	}
	if got != profile.DefaultType {
		t.Errorf("got %q, want default %q", got, profile.DefaultType)
	}
}

func TestNormalizeType_Invalid(t *testing.T) {
	_, err := profile.NormalizeType("wizard")
	if !errors.Is(err, profile.ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
}

func TestNormalizeDrill(t *testing.T) {
	got, err := profile.NormalizeDrill(" layup ")
	if err != nil {
		t.Fatalf("NormalizeDrill failed: %v", err)
	}
	if got != profile.DrillLayup {
		t.Errorf("got %q, want %q", got, profile.DrillLayup)
	}

	if _, err := profile.NormalizeDrill("DUNK"); !errors.Is(err, profile.ErrInvalidDrill) {
		t.Errorf("expected ErrInvalidDrill, got %v", err)
	}
}

func TestDefaultDrills_AllValid(t *testing.T) {
	drills := profile.DefaultDrills()
	if len(drills) != 4 {
		t.Fatalf("expected 4 default drills, got %d", len(drills))
	}
	for _, d := range drills {
		if !profile.ValidDrill(d) {
			t.Errorf("default drill %q not valid", d)
		}
	}
}
