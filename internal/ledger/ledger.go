// Package ledger is the single source of truth for credit balances and
// their audit trail. Every balance change in the system routes through
// ApplyDelta; nothing else mutates a balance.
package ledger

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ballskill/credits-engine/internal/metrics"
	"github.com/ballskill/credits-engine/internal/model"
	"github.com/ballskill/credits-engine/internal/store"
)

// History limits. Callers that ask for more than HistoryMaxLimit are capped.
const (
	HistoryDefaultLimit = 100
	HistoryMaxLimit     = 200
)

// ErrInvalidAmount is returned when ApplyDelta is called with a zero delta.
// Sign is deliberately unconstrained: administrative grants and deductions
// use the same path as transactional debits.
var ErrInvalidAmount = errors.New("ledger: delta must be a non-zero integer")

// Service owns wallet balances and the append-only entry history.
// Wallets materialize lazily on first reference and are never deleted.
type Service struct {
	store store.Store
	mu    sync.Mutex // serializes ApplyDelta so read-increment-append is atomic
}

// NewService creates a ledger service backed by the given store.
func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// NormalizeUserID canonicalizes a user identifier. Identifiers are emails
// and compare case-insensitively.
func NormalizeUserID(userID string) string {
	return strings.ToLower(strings.TrimSpace(userID))
}

// Balance returns the current balance for a user. Unseen users have
// balance 0.
func (s *Service) Balance(ctx context.Context, userID string) (int64, error) {
	return s.store.GetBalance(ctx, NormalizeUserID(userID))
}

// ApplyDelta atomically increments the user's balance by delta and appends
// one immutable entry whose BalanceAfter equals the new balance. Returns
// the new balance.
func (s *Service) ApplyDelta(ctx context.Context, userID string, delta int64, note string) (int64, error) {
	if delta == 0 {
		return 0, ErrInvalidAmount
	}
	userID = NormalizeUserID(userID)

	s.mu.Lock()
	defer s.mu.Unlock()

	balance, err := s.store.GetBalance(ctx, userID)
	if err != nil {
		return 0, err
	}

	newBalance := balance + delta
	entry := &model.LedgerEntry{
		ID:           uuid.New().String(),
		UserID:       userID,
		Delta:        delta,
		Note:         note,
		BalanceAfter: newBalance,
		Timestamp:    time.Now().UTC(),
	}
	if err := s.store.InsertLedgerEntry(ctx, entry); err != nil {
		return 0, err
	}

	direction := "credit"
	if delta < 0 {
		direction = "debit"
	}
	metrics.CreditsApplied.WithLabelValues(direction).Inc()

	slog.Info("delta applied",
		"user", userID,
		"delta", delta,
		"balance", newBalance,
		"note", note,
	)
	return newBalance, nil
}

// History returns a snapshot of the user's entries, most recent first.
// filter matches substrings of the note, case-insensitively. limit caps the
// result size; values outside (0, HistoryMaxLimit] fall back to the default
// or the hard cap.
func (s *Service) History(ctx context.Context, userID, filter string, limit int) ([]model.LedgerEntry, error) {
	if limit <= 0 {
		limit = HistoryDefaultLimit
	}
	if limit > HistoryMaxLimit {
		limit = HistoryMaxLimit
	}

	entries, err := s.store.GetLedgerEntriesByUser(ctx, NormalizeUserID(userID))
	if err != nil {
		return nil, err
	}

	filter = strings.ToLower(filter)
	result := make([]model.LedgerEntry, 0, limit)
	// Entries come back chronological; walk backwards for most-recent-first.
	for i := len(entries) - 1; i >= 0 && len(result) < limit; i-- {
		if filter != "" && !strings.Contains(strings.ToLower(entries[i].Note), filter) {
			continue
		}
		result = append(result, entries[i])
	}
	return result, nil
}
