package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ballskill/credits-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// Balances are never stored independently: the balance is always
// SUM(delta) over the user's ledger rows, so the conservation invariant
// cannot drift. Infrastructure faults are wrapped in ErrUnavailable.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}

func (s *PostgresStore) GetBalance(ctx context.Context, userID string) (int64, error) {
	var balance int64
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(delta), 0) FROM credit_ledger WHERE user_id = $1`,
		userID).Scan(&balance)
	if err != nil {
		return 0, unavailable("get balance", err)
	}
	return balance, nil
}

func (s *PostgresStore) InsertLedgerEntry(ctx context.Context, e *model.LedgerEntry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO credit_ledger (id, user_id, delta, note, balance_after, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.UserID, e.Delta, e.Note, e.BalanceAfter, e.Timestamp,
	)
	if err != nil {
		return unavailable("insert ledger entry", err)
	}
	return nil
}

func (s *PostgresStore) GetLedgerEntriesByUser(ctx context.Context, userID string) ([]model.LedgerEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, delta, note, balance_after, created_at
		 FROM credit_ledger WHERE user_id = $1 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, unavailable("list ledger entries", err)
	}
	defer rows.Close()

	var entries []model.LedgerEntry
	for rows.Next() {
		var e model.LedgerEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Delta, &e.Note, &e.BalanceAfter, &e.Timestamp); err != nil {
			return nil, unavailable("scan ledger entry", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list ledger entries", err)
	}
	return entries, nil
}

func (s *PostgresStore) CreateEvent(ctx context.Context, e *model.Event) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO events (id, name, fee_credits, capacity, location_type, schedule, drills_enabled, prize_pool_credits, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.Name, e.FeeCredits, e.Capacity, e.LocationType, e.Schedule,
		e.DrillsEnabled, e.PrizePoolCredits, e.CreatedAt,
	)
	if err != nil {
		return unavailable("create event", err)
	}
	return nil
}

func (s *PostgresStore) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	var e model.Event
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, fee_credits, capacity, location_type, schedule, drills_enabled, prize_pool_credits, created_at
		 FROM events WHERE id = $1`, id).
		Scan(&e.ID, &e.Name, &e.FeeCredits, &e.Capacity, &e.LocationType,
			&e.Schedule, &e.DrillsEnabled, &e.PrizePoolCredits, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable("get event", err)
	}
	return &e, nil
}

func (s *PostgresStore) UpdateEvent(ctx context.Context, e *model.Event) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE events
		 SET name = $2, fee_credits = $3, capacity = $4, location_type = $5,
		     schedule = $6, drills_enabled = $7, prize_pool_credits = $8
		 WHERE id = $1`,
		e.ID, e.Name, e.FeeCredits, e.Capacity, e.LocationType,
		e.Schedule, e.DrillsEnabled, e.PrizePoolCredits,
	)
	if err != nil {
		return unavailable("update event", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteEvent(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return unavailable("delete event", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListEvents(ctx context.Context) ([]model.Event, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, fee_credits, capacity, location_type, schedule, drills_enabled, prize_pool_credits, created_at
		 FROM events ORDER BY schedule DESC`)
	if err != nil {
		return nil, unavailable("list events", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Name, &e.FeeCredits, &e.Capacity, &e.LocationType,
			&e.Schedule, &e.DrillsEnabled, &e.PrizePoolCredits, &e.CreatedAt); err != nil {
			return nil, unavailable("scan event", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list events", err)
	}
	return events, nil
}

// InsertRegistration is the check-and-set admission primitive: the insert
// and the uniqueness check are a single statement, so two racing admits for
// the same pair cannot both succeed.
func (s *PostgresStore) InsertRegistration(ctx context.Context, reg *model.Registration) error {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO registrations (event_id, user_id, credits_charged, player_type, admitted_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (event_id, user_id) DO NOTHING`,
		reg.EventID, reg.UserID, reg.CreditsCharged, reg.PlayerType, reg.AdmittedAt,
	)
	if err != nil {
		return unavailable("insert registration", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}
	return nil
}

func (s *PostgresStore) GetRegistration(ctx context.Context, eventID, userID string) (*model.Registration, error) {
	var r model.Registration
	err := s.pool.QueryRow(ctx,
		`SELECT event_id, user_id, credits_charged, player_type, admitted_at
		 FROM registrations WHERE event_id = $1 AND user_id = $2`, eventID, userID).
		Scan(&r.EventID, &r.UserID, &r.CreditsCharged, &r.PlayerType, &r.AdmittedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable("get registration", err)
	}
	return &r, nil
}

func (s *PostgresStore) CountRegistrations(ctx context.Context, eventID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = $1`, eventID).Scan(&count)
	if err != nil {
		return 0, unavailable("count registrations", err)
	}
	return count, nil
}

func (s *PostgresStore) ListRegistrationsByEvent(ctx context.Context, eventID string) ([]model.Registration, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT event_id, user_id, credits_charged, player_type, admitted_at
		 FROM registrations WHERE event_id = $1 ORDER BY admitted_at`, eventID)
	if err != nil {
		return nil, unavailable("list registrations", err)
	}
	defer rows.Close()

	var regs []model.Registration
	for rows.Next() {
		var r model.Registration
		if err := rows.Scan(&r.EventID, &r.UserID, &r.CreditsCharged, &r.PlayerType, &r.AdmittedAt); err != nil {
			return nil, unavailable("scan registration", err)
		}
		regs = append(regs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list registrations", err)
	}
	return regs, nil
}

func (s *PostgresStore) UpsertSubmission(ctx context.Context, sub *model.Submission) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO submissions (event_id, user_id, drill, made, attempts, time_ms, verified_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (event_id, user_id, drill) DO UPDATE
		 SET made = EXCLUDED.made, attempts = EXCLUDED.attempts,
		     time_ms = EXCLUDED.time_ms, verified_by = EXCLUDED.verified_by,
		     created_at = EXCLUDED.created_at`,
		sub.EventID, sub.UserID, sub.Drill, sub.Made, sub.Attempts,
		sub.TimeMs, sub.VerifiedBy, sub.CreatedAt,
	)
	if err != nil {
		return unavailable("upsert submission", err)
	}
	return nil
}

func (s *PostgresStore) ListSubmissionsByEvent(ctx context.Context, eventID string) ([]model.Submission, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT event_id, user_id, drill, made, attempts, time_ms, verified_by, created_at
		 FROM submissions WHERE event_id = $1 ORDER BY user_id, drill`, eventID)
	if err != nil {
		return nil, unavailable("list submissions", err)
	}
	defer rows.Close()

	var subs []model.Submission
	for rows.Next() {
		var sub model.Submission
		if err := rows.Scan(&sub.EventID, &sub.UserID, &sub.Drill, &sub.Made,
			&sub.Attempts, &sub.TimeMs, &sub.VerifiedBy, &sub.CreatedAt); err != nil {
			return nil, unavailable("scan submission", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list submissions", err)
	}
	return subs, nil
}
