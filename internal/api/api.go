// Package api provides the HTTP surface of the credits engine: wallet
// queries, administrative credit grants, event CRUD, the join transaction,
// drill submissions, and leaderboards.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ballskill/credits-engine/internal/catalog"
	"github.com/ballskill/credits-engine/internal/drills"
	"github.com/ballskill/credits-engine/internal/join"
	"github.com/ballskill/credits-engine/internal/ledger"
	"github.com/ballskill/credits-engine/internal/model"
	"github.com/ballskill/credits-engine/internal/registry"
	"github.com/ballskill/credits-engine/internal/store"
)

// Server bundles the engine's services behind HTTP handlers.
// Pass nil for hub if live-feed broadcasting is not needed.
type Server struct {
	ledger   *ledger.Service
	catalog  *catalog.Service
	registry *registry.Service
	join     *join.Service
	drills   *drills.Service
	hub      *FeedHub
}

// NewServer creates the HTTP server facade.
func NewServer(led *ledger.Service, cat *catalog.Service, reg *registry.Service, jn *join.Service, dr *drills.Service, hub *FeedHub) *Server {
	return &Server{
		ledger:   led,
		catalog:  cat,
		registry: reg,
		join:     jn,
		drills:   dr,
		hub:      hub,
	}
}

// Routes mounts all API routes on a fresh chi router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	if s.hub != nil {
		r.Get("/ws", s.hub.HandleWS)
	}

	r.Get("/credits/{email}", s.GetBalance)
	r.Get("/credits/{email}/history", s.GetHistory)
	r.Post("/credits/apply", s.ApplyDelta)

	r.Get("/events", s.ListEvents)
	r.Post("/events", s.CreateEvent)
	r.Get("/events/{eventID}", s.GetEvent)
	r.Put("/events/{eventID}", s.UpdateEvent)
	r.Delete("/events/{eventID}", s.DeleteEvent)

	r.Get("/events/{eventID}/registration/{email}", s.GetRegistrationStatus)
	r.Post("/events/{eventID}/join", s.JoinEvent)
	r.Get("/events/{eventID}/mix", s.GetTypeMix)

	r.Post("/events/{eventID}/submit", s.SubmitResult)
	r.Get("/events/{eventID}/leaderboard", s.GetLeaderboard)

	return r
}

// --- Credits ---

// GetBalance handles GET /credits/{email}
func (s *Server) GetBalance(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")

	balance, err := s.ledger.Balance(r.Context(), email)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"balance": balance})
}

// GetHistory handles GET /credits/{email}/history?q=&limit=
func (s *Server) GetHistory(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	q := r.URL.Query().Get("q")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, "limit must be an integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	history, err := s.ledger.History(r.Context(), email, q, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]model.LedgerEntry{"history": history})
}

// ApplyDeltaRequest is the JSON body for POST /credits/apply.
type ApplyDeltaRequest struct {
	Email string `json:"email"`
	Delta int64  `json:"delta"`
	Note  string `json:"note"`
}

// ApplyDelta handles POST /credits/apply — administrative grants and
// deductions.
func (s *Server) ApplyDelta(w http.ResponseWriter, r *http.Request) {
	var req ApplyDeltaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Email == "" {
		writeError(w, "email is required", http.StatusBadRequest)
		return
	}

	balance, err := s.ledger.ApplyDelta(r.Context(), req.Email, req.Delta, req.Note)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if s.hub != nil {
		s.hub.Broadcast(FeedMessage{
			Type:    "wallet_updated",
			UserID:  ledger.NormalizeUserID(req.Email),
			Delta:   req.Delta,
			Balance: balance,
		})
	}
	writeJSON(w, http.StatusOK, map[string]int64{"balance": balance})
}

// --- Events ---

// CreateEvent handles POST /events
func (s *Server) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var spec catalog.EventSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	event, err := s.catalog.Create(r.Context(), spec)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// GetEvent handles GET /events/{eventID}
func (s *Server) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := s.catalog.Get(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// UpdateEvent handles PUT /events/{eventID}
func (s *Server) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var spec catalog.EventSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	event, err := s.catalog.Update(r.Context(), chi.URLParam(r, "eventID"), spec)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// DeleteEvent handles DELETE /events/{eventID}
func (s *Server) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.Delete(r.Context(), chi.URLParam(r, "eventID")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListEvents handles GET /events
func (s *Server) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.catalog.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, map[string][]model.Event{"events": events})
}

// --- Registration ---

// GetRegistrationStatus handles GET /events/{eventID}/registration/{email}
func (s *Server) GetRegistrationStatus(w http.ResponseWriter, r *http.Request) {
	joined, err := s.registry.IsAdmitted(r.Context(),
		chi.URLParam(r, "eventID"), chi.URLParam(r, "email"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"joined": joined})
}

// JoinRequest is the JSON body for POST /events/{eventID}/join.
// Fee, when present, overrides the event's fee.
type JoinRequest struct {
	Email      string `json:"email"`
	PlayerType string `json:"player_type"`
	Fee        *int64 `json:"fee"`
}

// JoinEvent handles POST /events/{eventID}/join — the transactional core.
func (s *Server) JoinEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	var req JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Email == "" {
		writeError(w, "email is required", http.StatusBadRequest)
		return
	}

	result, err := s.join.JoinEvent(r.Context(), eventID, req.Email, req.PlayerType, req.Fee)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	switch result.Outcome {
	case join.OutcomeEventNotFound:
		writeJSON(w, http.StatusNotFound, result)
	case join.OutcomeEventFull:
		writeJSON(w, http.StatusConflict, result)
	case join.OutcomeInsufficientCredits:
		writeJSON(w, http.StatusPaymentRequired, result)
	default:
		if result.Outcome == join.OutcomeJoined && s.hub != nil {
			s.hub.Broadcast(FeedMessage{
				Type:    "member_joined",
				EventID: eventID,
				UserID:  ledger.NormalizeUserID(req.Email),
				Delta:   -result.CreditsCharged,
				Balance: result.Balance,
			})
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// GetTypeMix handles GET /events/{eventID}/mix
func (s *Server) GetTypeMix(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	// 404 for unknown events rather than an empty mix.
	if _, err := s.catalog.Get(r.Context(), eventID); err != nil {
		writeDomainError(w, err)
		return
	}

	mix, err := s.registry.TypeMix(r.Context(), eventID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	admitted, err := s.registry.AdmittedCount(r.Context(), eventID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"mix": mix, "admitted": admitted})
}

// --- Drills ---

// SubmitResult handles POST /events/{eventID}/submit
func (s *Server) SubmitResult(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")

	var req drills.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.Drill == "" {
		writeError(w, "email and drill are required", http.StatusBadRequest)
		return
	}

	sub, err := s.drills.Submit(r.Context(), eventID, req)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if s.hub != nil {
		s.hub.Broadcast(FeedMessage{
			Type:    "result_submitted",
			EventID: eventID,
			UserID:  sub.UserID,
			Drill:   sub.Drill,
		})
	}
	writeJSON(w, http.StatusOK, sub)
}

// GetLeaderboard handles GET /events/{eventID}/leaderboard
func (s *Server) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	rows, err := s.drills.Leaderboard(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if rows == nil {
		rows = []model.LeaderboardRow{}
	}
	writeJSON(w, http.StatusOK, map[string][]model.LeaderboardRow{"leaderboard": rows})
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeDomainError maps service errors to HTTP statuses. Anything wrapping
// store.ErrUnavailable is the only 5xx class; every other error is a
// caller-recoverable condition.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrUnavailable):
		writeError(w, "storage unavailable", http.StatusServiceUnavailable)
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, "event not found", http.StatusNotFound)
	case errors.Is(err, registry.ErrEventFull):
		writeError(w, "event is full", http.StatusConflict)
	case errors.Is(err, registry.ErrAlreadyAdmitted):
		writeError(w, "already admitted", http.StatusConflict)
	case errors.Is(err, drills.ErrNotAdmitted):
		writeError(w, err.Error(), http.StatusForbidden)
	default:
		writeError(w, err.Error(), http.StatusBadRequest)
	}
}
