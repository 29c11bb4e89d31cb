// Package store defines the persistence interface for the credits engine.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (the default; state is discarded on restart).
package store

import (
	"context"
	"errors"

	"github.com/ballskill/credits-engine/internal/model"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrConflict is returned when an insert collides with an existing
	// record, e.g. a second registration for the same (event, user) pair.
	ErrConflict = errors.New("store: conflict")

	// ErrUnavailable wraps infrastructure faults (connection loss, query
	// failures). Callers must treat it as fatal for the request rather
	// than report stale data.
	ErrUnavailable = errors.New("store: storage unavailable")
)

// Store is the persistence interface. The in-memory implementation is the
// reference behavior; PostgreSQL is the source of truth when configured and
// Redis provides a read-through cache layer on top of it.
type Store interface {
	// --- Credit ledger ---

	// GetBalance returns the current balance for a user. Unseen users have
	// balance 0; the wallet materializes on first write.
	GetBalance(ctx context.Context, userID string) (int64, error)

	// InsertLedgerEntry appends an immutable balance-change record.
	InsertLedgerEntry(ctx context.Context, entry *model.LedgerEntry) error

	// GetLedgerEntriesByUser returns a user's entries in chronological order.
	GetLedgerEntriesByUser(ctx context.Context, userID string) ([]model.LedgerEntry, error)

	// --- Events ---

	// CreateEvent persists a new event.
	CreateEvent(ctx context.Context, event *model.Event) error

	// GetEvent retrieves an event by its ID.
	GetEvent(ctx context.Context, id string) (*model.Event, error)

	// UpdateEvent replaces an existing event record.
	UpdateEvent(ctx context.Context, event *model.Event) error

	// DeleteEvent removes an event by its ID.
	DeleteEvent(ctx context.Context, id string) error

	// ListEvents returns all events, newest schedule first.
	ListEvents(ctx context.Context) ([]model.Event, error)

	// --- Registrations ---

	// InsertRegistration admits a user atomically: insert-if-absent keyed
	// by (EventID, UserID), returning ErrConflict when the pair exists.
	InsertRegistration(ctx context.Context, reg *model.Registration) error

	// GetRegistration retrieves one admission record.
	GetRegistration(ctx context.Context, eventID, userID string) (*model.Registration, error)

	// CountRegistrations returns the number of admitted users for an event.
	CountRegistrations(ctx context.Context, eventID string) (int, error)

	// ListRegistrationsByEvent returns all admissions for an event.
	ListRegistrationsByEvent(ctx context.Context, eventID string) ([]model.Registration, error)

	// --- Drill submissions ---

	// UpsertSubmission records a drill result, replacing any previous
	// result for the same (event, user, drill).
	UpsertSubmission(ctx context.Context, sub *model.Submission) error

	// ListSubmissionsByEvent returns all drill results for an event.
	ListSubmissionsByEvent(ctx context.Context, eventID string) ([]model.Submission, error)
}
