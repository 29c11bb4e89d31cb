package join_test

import (
	"context"
	"sync"
	"testing"

	"github.com/ballskill/credits-engine/internal/catalog"
	"github.com/ballskill/credits-engine/internal/join"
	"github.com/ballskill/credits-engine/internal/ledger"
	"github.com/ballskill/credits-engine/internal/model"
	"github.com/ballskill/credits-engine/internal/registry"
	"github.com/ballskill/credits-engine/internal/store"
)

type env struct {
	ledger   *ledger.Service
	catalog  *catalog.Service
	registry *registry.Service
	join     *join.Service
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ms := store.NewMemoryStore()
	led := ledger.NewService(ms)
	cat := catalog.NewService(ms)
	reg := registry.NewService(ms, cat)
	return &env{
		ledger:   led,
		catalog:  cat,
		registry: reg,
		join:     join.NewService(cat, led, reg),
	}
}

func (e *env) seedEvent(t *testing.T, fee int64, capacity int) *model.Event {
	t.Helper()
	event, err := e.catalog.Create(context.Background(), catalog.EventSpec{
		Name:       "qualifier",
		FeeCredits: fee,
		Capacity:   capacity,
	})
	if err != nil {
		t.Fatalf("failed to seed event: %v", err)
	}
	return event
}

func (e *env) grant(t *testing.T, user string, amount int64) {
	t.Helper()
	if _, err := e.ledger.ApplyDelta(context.Background(), user, amount, "grant"); err != nil {
		t.Fatalf("failed to grant credits: %v", err)
	}
}

func mustJoin(t *testing.T, e *env, eventID, user string) *join.Result {
	t.Helper()
	result, err := e.join.JoinEvent(context.Background(), eventID, user, "", nil)
	if err != nil {
		t.Fatalf("JoinEvent failed: %v", err)
	}
	return result
}

func TestJoinEvent_Scenario(t *testing.T) {
	// The end-to-end reference scenario: grant 100, join a fee-30
	// capacity-1 event, retry idempotently, then a second user hits
	// capacity before their balance is even considered.
	e := newEnv(t)
	ctx := context.Background()
	e.grant(t, "a@x.com", 100)
	event := e.seedEvent(t, 30, 1)

	result := mustJoin(t, e, event.ID, "a@x.com")
	if result.Outcome != join.OutcomeJoined {
		t.Fatalf("expected joined, got %s", result.Outcome)
	}
	if result.CreditsCharged != 30 || result.Balance != 70 {
		t.Errorf("expected charged 30 balance 70, got charged %d balance %d",
			result.CreditsCharged, result.Balance)
	}

	result = mustJoin(t, e, event.ID, "a@x.com")
	if result.Outcome != join.OutcomeAlreadyJoined {
		t.Fatalf("expected already_joined, got %s", result.Outcome)
	}
	if result.Balance != 70 {
		t.Errorf("repeat join changed balance: %d", result.Balance)
	}

	// b has 0 credits, but capacity fails first per the defined ordering.
	result = mustJoin(t, e, event.ID, "b@x.com")
	if result.Outcome != join.OutcomeEventFull {
		t.Fatalf("expected event_full for b, got %s", result.Outcome)
	}

	balance, _ := e.ledger.Balance(ctx, "a@x.com")
	if balance != 70 {
		t.Errorf("final balance %d, want 70", balance)
	}
}

func TestJoinEvent_EventNotFound(t *testing.T) {
	e := newEnv(t)

	result := mustJoin(t, e, "missing", "a@x.com")
	if result.Outcome != join.OutcomeEventNotFound {
		t.Fatalf("expected event_not_found, got %s", result.Outcome)
	}
}

func TestJoinEvent_InsufficientCreditsNoMutation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.grant(t, "a@x.com", 10)
	event := e.seedEvent(t, 30, 8)

	result := mustJoin(t, e, event.ID, "a@x.com")
	if result.Outcome != join.OutcomeInsufficientCredits {
		t.Fatalf("expected insufficient_credits, got %s", result.Outcome)
	}
	if result.Balance != 10 || result.Required != 30 {
		t.Errorf("expected balance 10 required 30, got %d/%d", result.Balance, result.Required)
	}

	balance, _ := e.ledger.Balance(ctx, "a@x.com")
	if balance != 10 {
		t.Errorf("failed join mutated balance: %d", balance)
	}
	admitted, _ := e.registry.IsAdmitted(ctx, event.ID, "a@x.com")
	if admitted {
		t.Error("failed join admitted the user")
	}
	history, _ := e.ledger.History(ctx, "a@x.com", "", 0)
	if len(history) != 1 {
		t.Errorf("failed join appended ledger entries: %d", len(history))
	}
}

func TestJoinEvent_ExactBalanceSucceeds(t *testing.T) {
	e := newEnv(t)
	e.grant(t, "a@x.com", 30)
	event := e.seedEvent(t, 30, 8)

	result := mustJoin(t, e, event.ID, "a@x.com")
	if result.Outcome != join.OutcomeJoined {
		t.Fatalf("expected joined with exact balance, got %s", result.Outcome)
	}
	if result.Balance != 0 {
		t.Errorf("expected balance 0, got %d", result.Balance)
	}
}

func TestJoinEvent_CapacityEnforcement(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	event := e.seedEvent(t, 10, 3)

	users := []string{"u1@x.com", "u2@x.com", "u3@x.com", "u4@x.com"}
	for _, u := range users {
		e.grant(t, u, 100)
	}

	for _, u := range users[:3] {
		if result := mustJoin(t, e, event.ID, u); result.Outcome != join.OutcomeJoined {
			t.Fatalf("user %s: expected joined, got %s", u, result.Outcome)
		}
	}
	if result := mustJoin(t, e, event.ID, users[3]); result.Outcome != join.OutcomeEventFull {
		t.Fatalf("4th user: expected event_full, got %s", result.Outcome)
	}

	count, _ := e.registry.AdmittedCount(ctx, event.ID)
	if count != 3 {
		t.Errorf("admitted count %d, want 3", count)
	}
}

func TestJoinEvent_ZeroFeeSkipsLedger(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	event := e.seedEvent(t, 0, 8)

	result := mustJoin(t, e, event.ID, "a@x.com")
	if result.Outcome != join.OutcomeJoined {
		t.Fatalf("expected joined, got %s", result.Outcome)
	}
	if result.CreditsCharged != 0 || result.Balance != 0 {
		t.Errorf("expected free join, got charged %d balance %d", result.CreditsCharged, result.Balance)
	}

	history, _ := e.ledger.History(ctx, "a@x.com", "", 0)
	if len(history) != 0 {
		t.Errorf("free join wrote %d ledger entries", len(history))
	}
}

func TestJoinEvent_FeeOverride(t *testing.T) {
	e := newEnv(t)
	e.grant(t, "a@x.com", 100)
	event := e.seedEvent(t, 30, 8)

	fee := int64(5)
	result, err := e.join.JoinEvent(context.Background(), event.ID, "a@x.com", "", &fee)
	if err != nil {
		t.Fatalf("JoinEvent failed: %v", err)
	}
	if result.CreditsCharged != 5 || result.Balance != 95 {
		t.Errorf("override not applied: charged %d balance %d", result.CreditsCharged, result.Balance)
	}
}

func TestJoinEvent_PlayerTypeRecorded(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.grant(t, "a@x.com", 100)
	e.grant(t, "b@x.com", 100)
	event := e.seedEvent(t, 10, 8)

	if _, err := e.join.JoinEvent(ctx, event.ID, "a@x.com", "pro", nil); err != nil {
		t.Fatalf("JoinEvent failed: %v", err)
	}
	// Empty tag falls back to the default.
	if _, err := e.join.JoinEvent(ctx, event.ID, "b@x.com", "", nil); err != nil {
		t.Fatalf("JoinEvent failed: %v", err)
	}

	mix, _ := e.registry.TypeMix(ctx, event.ID)
	if mix["pro"] != 0.5 || mix["adult"] != 0.5 {
		t.Errorf("unexpected mix: %v", mix)
	}
}

func TestJoinEvent_InvalidPlayerType(t *testing.T) {
	e := newEnv(t)
	e.grant(t, "a@x.com", 100)
	event := e.seedEvent(t, 10, 8)

	if _, err := e.join.JoinEvent(context.Background(), event.ID, "a@x.com", "wizard", nil); err == nil {
		t.Fatal("expected error for unknown player type")
	}
}

func TestJoinEvent_ConcurrentSamePairSingleCharge(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.grant(t, "a@x.com", 100)
	event := e.seedEvent(t, 30, 8)

	const attempts = 16
	results := make([]*join.Result, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := e.join.JoinEvent(ctx, event.ID, "a@x.com", "", nil)
			if err != nil {
				t.Errorf("JoinEvent failed: %v", err)
				return
			}
			results[i] = result
		}(i)
	}
	wg.Wait()

	var joined, already int
	for _, r := range results {
		switch r.Outcome {
		case join.OutcomeJoined:
			joined++
		case join.OutcomeAlreadyJoined:
			already++
		default:
			t.Errorf("unexpected outcome %s", r.Outcome)
		}
	}
	if joined != 1 || already != attempts-1 {
		t.Errorf("expected 1 joined / %d already, got %d / %d", attempts-1, joined, already)
	}

	balance, _ := e.ledger.Balance(ctx, "a@x.com")
	if balance != 70 {
		t.Errorf("concurrent joins double-charged: balance %d, want 70", balance)
	}
}

func TestJoinEvent_ConcurrentDistinctUsersRespectCapacity(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	event := e.seedEvent(t, 10, 4)

	const users = 12
	emails := make([]string, users)
	for i := range emails {
		emails[i] = string(rune('a'+i)) + "@x.com"
		e.grant(t, emails[i], 100)
	}

	var wg sync.WaitGroup
	outcomes := make([]*join.Result, users)
	for i, email := range emails {
		wg.Add(1)
		go func(i int, email string) {
			defer wg.Done()
			result, err := e.join.JoinEvent(ctx, event.ID, email, "", nil)
			if err != nil {
				t.Errorf("JoinEvent failed: %v", err)
				return
			}
			outcomes[i] = result
		}(i, email)
	}
	wg.Wait()

	var joined int
	for _, r := range outcomes {
		if r.Outcome == join.OutcomeJoined {
			joined++
		}
	}
	if joined != 4 {
		t.Errorf("expected exactly 4 admissions, got %d", joined)
	}
	count, _ := e.registry.AdmittedCount(ctx, event.ID)
	if count != 4 {
		t.Errorf("admitted count %d, want 4", count)
	}
}
