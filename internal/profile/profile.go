// Package profile handles player type tags and drill codes: the two small
// categorical vocabularies shared by admissions and result submissions.
package profile

import (
	"errors"
	"fmt"
	"strings"
)

// Player type tags. The type mix for an event is a distribution over these.
const (
	TypeYouth = "youth"
	TypeTeens = "teens"
	TypeAdult = "adult"
	TypePro   = "pro"
	TypeElite = "elite"
)

// DefaultType is used when the caller supplies no player type.
const DefaultType = TypeAdult

var validTypes = map[string]bool{
	TypeYouth: true,
	TypeTeens: true,
	TypeAdult: true,
	TypePro:   true,
	TypeElite: true,
}

// Drill codes.
const (
	DrillThreePoint = "3PT"
	DrillFreeThrow  = "FT"
	DrillTwoPoint   = "2PT"
	DrillLayup      = "LAYUP"
)

var validDrills = map[string]bool{
	DrillThreePoint: true,
	DrillFreeThrow:  true,
	DrillTwoPoint:   true,
	DrillLayup:      true,
}

var (
	ErrInvalidType  = errors.New("profile: unsupported player type")
	ErrInvalidDrill = errors.New("profile: unsupported drill code")
)

// NormalizeType lowercases and validates a player type tag. An empty tag
// resolves to DefaultType.
func NormalizeType(tag string) (string, error) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return DefaultType, nil
	}
	if !validTypes[tag] {
		return "", fmt.Errorf("%w: %s", ErrInvalidType, tag)
	}
	return tag, nil
}

// ValidDrill reports whether code is a known drill.
func ValidDrill(code string) bool {
	return validDrills[code]
}

// NormalizeDrill uppercases and validates a drill code.
func NormalizeDrill(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !validDrills[code] {
		return "", fmt.Errorf("%w: %s", ErrInvalidDrill, code)
	}
	return code, nil
}

// DefaultDrills returns the standard drill set enabled for new events.
func DefaultDrills() []string {
	return []string{DrillThreePoint, DrillFreeThrow, DrillTwoPoint, DrillLayup}
}
