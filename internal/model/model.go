// Package model defines the core domain types shared across the credits engine.
// All credit amounts are whole units (int64) — fractional currency does not
// exist at this layer.
package model

import (
	"time"
)

// LedgerEntry is an immutable record of one balance change.
// Once created, these are never modified or deleted.
type LedgerEntry struct {
	ID           string    `json:"id" db:"id"`
	UserID       string    `json:"user_id" db:"user_id"`
	Delta        int64     `json:"delta" db:"delta"`
	Note         string    `json:"note,omitempty" db:"note"`
	BalanceAfter int64     `json:"balance_after" db:"balance_after"`
	Timestamp    time.Time `json:"timestamp" db:"created_at"`
}

// Location types for events.
const (
	LocationInPerson = "in_person"
	LocationOnline   = "online"
)

// Event is a capacity-constrained competition that users join for a
// whole-credit fee.
type Event struct {
	ID               string    `json:"id" db:"id"`
	Name             string    `json:"name" db:"name"`
	FeeCredits       int64     `json:"fee_credits" db:"fee_credits"`
	Capacity         int       `json:"capacity" db:"capacity"`
	LocationType     string    `json:"location_type" db:"location_type"`
	Schedule         time.Time `json:"schedule" db:"schedule"`
	DrillsEnabled    []string  `json:"drills_enabled" db:"drills_enabled"`
	PrizePoolCredits int64     `json:"prize_pool_credits" db:"prize_pool_credits"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// Registration records one user's admission to one event. At most one exists
// per (EventID, UserID) pair, and it is permanent — no leave or refund
// operation is defined.
type Registration struct {
	EventID        string    `json:"event_id" db:"event_id"`
	UserID         string    `json:"user_id" db:"user_id"`
	CreditsCharged int64     `json:"credits_charged" db:"credits_charged"`
	PlayerType     string    `json:"player_type" db:"player_type"`
	AdmittedAt     time.Time `json:"admitted_at" db:"admitted_at"`
}

// Submission is one user's result for one drill in one event. Re-submitting
// the same drill replaces the previous result.
type Submission struct {
	EventID    string    `json:"event_id" db:"event_id"`
	UserID     string    `json:"user_id" db:"user_id"`
	Drill      string    `json:"drill" db:"drill"`
	Made       int       `json:"made" db:"made"`
	Attempts   int       `json:"attempts" db:"attempts"`
	TimeMs     int64     `json:"time_ms" db:"time_ms"`
	VerifiedBy string    `json:"verified_by,omitempty" db:"verified_by"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// LeaderboardRow is one user's aggregate standing in an event: total makes
// across drills, lowest combined time winning ties.
type LeaderboardRow struct {
	Rank         int    `json:"rank"`
	UserID       string `json:"user_id"`
	TotalMade    int    `json:"total_made"`
	TotalTimeMs  int64  `json:"total_time_ms"`
	PrizeCredits int64  `json:"prize_credits"`
}
