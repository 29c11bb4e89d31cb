// Package drills records per-event drill results and computes leaderboards.
// Results only exist for admitted users; standings rank by total makes with
// the lowest combined time breaking ties.
package drills

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"time"

	"github.com/ballskill/credits-engine/internal/catalog"
	"github.com/ballskill/credits-engine/internal/ledger"
	"github.com/ballskill/credits-engine/internal/metrics"
	"github.com/ballskill/credits-engine/internal/model"
	"github.com/ballskill/credits-engine/internal/prize"
	"github.com/ballskill/credits-engine/internal/profile"
	"github.com/ballskill/credits-engine/internal/registry"
	"github.com/ballskill/credits-engine/internal/store"
)

var (
	// ErrNotAdmitted rejects results from users who never joined the event.
	ErrNotAdmitted = errors.New("drills: user is not admitted to this event")

	// ErrDrillDisabled rejects results for drills the event does not run.
	ErrDrillDisabled = errors.New("drills: drill not enabled for this event")
)

// Service owns drill submissions and leaderboards.
type Service struct {
	store    store.Store
	catalog  *catalog.Service
	registry *registry.Service
}

// NewService creates a drills service.
func NewService(st store.Store, cat *catalog.Service, reg *registry.Service) *Service {
	return &Service{store: st, catalog: cat, registry: reg}
}

// SubmitRequest carries one drill result. Attempts defaults to 10.
type SubmitRequest struct {
	UserID     string `json:"email"`
	Drill      string `json:"drill"`
	Made       int    `json:"made"`
	Attempts   int    `json:"attempts"`
	TimeMs     int64  `json:"time_ms"`
	VerifiedBy string `json:"verified_by"`
}

// Submit validates and records one drill result, replacing any previous
// result for the same drill.
func (s *Service) Submit(ctx context.Context, eventID string, req SubmitRequest) (*model.Submission, error) {
	event, err := s.catalog.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}

	drill, err := profile.NormalizeDrill(req.Drill)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(event.DrillsEnabled, drill) {
		return nil, fmt.Errorf("%w: %s", ErrDrillDisabled, drill)
	}

	if req.Attempts == 0 {
		req.Attempts = 10
	}
	if req.Attempts < 1 || req.Made < 0 || req.Made > req.Attempts {
		return nil, fmt.Errorf("invalid made/attempts: %d/%d", req.Made, req.Attempts)
	}
	if req.TimeMs < 0 {
		return nil, fmt.Errorf("invalid time_ms: %d", req.TimeMs)
	}

	userID := ledger.NormalizeUserID(req.UserID)
	admitted, err := s.registry.IsAdmitted(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	if !admitted {
		return nil, ErrNotAdmitted
	}

	sub := &model.Submission{
		EventID:    eventID,
		UserID:     userID,
		Drill:      drill,
		Made:       req.Made,
		Attempts:   req.Attempts,
		TimeMs:     req.TimeMs,
		VerifiedBy: req.VerifiedBy,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.UpsertSubmission(ctx, sub); err != nil {
		return nil, err
	}

	metrics.SubmissionsTotal.WithLabelValues(drill).Inc()
	slog.Info("result submitted",
		"event", eventID,
		"user", userID,
		"drill", drill,
		"made", req.Made,
		"attempts", req.Attempts,
	)
	return sub, nil
}

// Leaderboard computes standings for the event: total makes across drills
// descending, total time ascending on ties. Rows carry the whole-credit
// prize estimate for their rank; estimates always sum to the prize pool.
func (s *Service) Leaderboard(ctx context.Context, eventID string) ([]model.LeaderboardRow, error) {
	event, err := s.catalog.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}

	subs, err := s.store.ListSubmissionsByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	type agg struct {
		made int
		time int64
	}
	totals := make(map[string]*agg)
	for _, sub := range subs {
		a, ok := totals[sub.UserID]
		if !ok {
			a = &agg{}
			totals[sub.UserID] = a
		}
		a.made += sub.Made
		a.time += sub.TimeMs
	}

	rows := make([]model.LeaderboardRow, 0, len(totals))
	for userID, a := range totals {
		rows = append(rows, model.LeaderboardRow{
			UserID:      userID,
			TotalMade:   a.made,
			TotalTimeMs: a.time,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TotalMade != rows[j].TotalMade {
			return rows[i].TotalMade > rows[j].TotalMade
		}
		if rows[i].TotalTimeMs != rows[j].TotalTimeMs {
			return rows[i].TotalTimeMs < rows[j].TotalTimeMs
		}
		return rows[i].UserID < rows[j].UserID
	})

	shares, err := prize.Split(event.PrizePoolCredits, len(rows), prize.DefaultWeights)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].Rank = i + 1
		if i < len(shares) {
			rows[i].PrizeCredits = shares[i]
		}
	}
	return rows, nil
}
