// Package join composes the catalog, ledger, and registry into the one
// all-or-nothing operation of the engine: admitting a user into an event
// and debiting the fee exactly once.
package join

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/ballskill/credits-engine/internal/catalog"
	"github.com/ballskill/credits-engine/internal/ledger"
	"github.com/ballskill/credits-engine/internal/metrics"
	"github.com/ballskill/credits-engine/internal/profile"
	"github.com/ballskill/credits-engine/internal/registry"
)

// Outcome labels every way a join request can end. The failure outcomes are
// expected user-facing conditions, never system errors.
type Outcome string

const (
	OutcomeJoined              Outcome = "joined"
	OutcomeAlreadyJoined       Outcome = "already_joined"
	OutcomeEventNotFound       Outcome = "event_not_found"
	OutcomeEventFull           Outcome = "event_full"
	OutcomeInsufficientCredits Outcome = "insufficient_credits"
)

// Result is the single success/failure outcome of a join request.
// Balance is always the user's balance after the call; for every outcome
// except Joined that equals the balance before the call.
type Result struct {
	Outcome        Outcome `json:"outcome"`
	Joined         bool    `json:"joined"`
	Already        bool    `json:"already,omitempty"`
	CreditsCharged int64   `json:"credits_charged"`
	Balance        int64   `json:"balance"`
	Required       int64   `json:"required,omitempty"` // fee, on insufficient credits
}

// Service runs the join transaction. A service-level mutex serializes the
// check-debit-admit sequence, closing the window where two concurrent
// requests for the same pair could both pass the admission check and
// double-debit. Reads outside JoinEvent stay unsynchronized.
type Service struct {
	catalog  *catalog.Service
	ledger   *ledger.Service
	registry *registry.Service
	mu       sync.Mutex
}

// NewService creates the join service.
func NewService(cat *catalog.Service, led *ledger.Service, reg *registry.Service) *Service {
	return &Service{catalog: cat, ledger: led, registry: reg}
}

// JoinEvent executes the join transaction for one (event, user) pair.
// playerType defaults when empty; feeOverride, when non-nil, replaces the
// event's fee (administrative/demo callers). Errors are reserved for
// storage faults and invalid input; every business condition comes back as
// a Result.
func (s *Service) JoinEvent(ctx context.Context, eventID, userID, playerType string, feeOverride *int64) (*Result, error) {
	userID = ledger.NormalizeUserID(userID)
	tag, err := profile.NormalizeType(playerType)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// 1. Event must exist.
	event, err := s.catalog.Get(ctx, eventID)
	if errors.Is(err, catalog.ErrNotFound) {
		metrics.JoinsTotal.WithLabelValues(string(OutcomeEventNotFound)).Inc()
		return &Result{Outcome: OutcomeEventNotFound}, nil
	}
	if err != nil {
		return nil, err
	}

	// 2. Repeated joins are safe: no ledger mutation, balance unchanged.
	admitted, err := s.registry.IsAdmitted(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	if admitted {
		return s.alreadyJoined(ctx, userID)
	}

	// 3. Capacity before balance: a full event never consumes a balance check.
	count, err := s.registry.AdmittedCount(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if count >= event.Capacity {
		metrics.JoinsTotal.WithLabelValues(string(OutcomeEventFull)).Inc()
		return &Result{Outcome: OutcomeEventFull}, nil
	}

	// 4. Sufficient balance.
	fee := event.FeeCredits
	if feeOverride != nil && *feeOverride >= 0 {
		fee = *feeOverride
	}
	balance, err := s.ledger.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}
	if balance < fee {
		metrics.JoinsTotal.WithLabelValues(string(OutcomeInsufficientCredits)).Inc()
		return &Result{
			Outcome:  OutcomeInsufficientCredits,
			Balance:  balance,
			Required: fee,
		}, nil
	}

	// 5. Debit, then admit. The debit comes first so a crash between the
	// two steps shows up as a ledger entry without a matching registration,
	// recoverable by reconciling history against membership.
	newBalance := balance
	if fee > 0 {
		newBalance, err = s.ledger.ApplyDelta(ctx, userID, -fee, "join:"+eventID)
		if err != nil {
			return nil, err
		}
	}

	if _, err := s.registry.Admit(ctx, eventID, userID, fee, tag); err != nil {
		if errors.Is(err, registry.ErrAlreadyAdmitted) {
			// Admission race detected at the store; re-check as already
			// joined rather than surfacing the conflict.
			return s.alreadyJoined(ctx, userID)
		}
		return nil, err
	}

	slog.Info("join executed",
		"event", eventID,
		"user", userID,
		"charged", fee,
		"balance", newBalance,
	)
	metrics.JoinsTotal.WithLabelValues(string(OutcomeJoined)).Inc()

	return &Result{
		Outcome:        OutcomeJoined,
		Joined:         true,
		CreditsCharged: fee,
		Balance:        newBalance,
	}, nil
}

func (s *Service) alreadyJoined(ctx context.Context, userID string) (*Result, error) {
	balance, err := s.ledger.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}
	metrics.JoinsTotal.WithLabelValues(string(OutcomeAlreadyJoined)).Inc()
	return &Result{
		Outcome: OutcomeAlreadyJoined,
		Joined:  true,
		Already: true,
		Balance: balance,
	}, nil
}
