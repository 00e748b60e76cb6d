package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"plaza-client/internal/effects"
	"plaza-client/internal/profile"
	"plaza-client/internal/protocol"
)

func noSleep(t *testing.T) {
	t.Helper()
	orig := timeAfter
	timeAfter = func(time.Duration) <-chan time.Time {
		ch := make(chan time.Time, 1)
		ch <- time.Time{}
		return ch
	}
	t.Cleanup(func() { timeAfter = orig })
}

// flakyStore fails the first n writes, then delegates to the memory store.
type flakyStore struct {
	*profile.Memory
	failures int
}

func (s *flakyStore) WriteBalance(ctx context.Context, id string, v int64) error {
	if s.failures > 0 {
		s.failures--
		return errors.New("write_unavailable")
	}
	return s.Memory.WriteBalance(ctx, id, v)
}

func TestPurchaseHappyPath(t *testing.T) {
	rig := newRig(100)
	p := rig.seedLocal(500)

	out, err := rig.r.Purchase(ctx, "hat_blue", 200)
	if err != nil {
		t.Fatalf("Purchase() error = %v", err)
	}
	if p.Balance != 300 || !p.HasItem("hat_blue") {
		t.Fatalf("local state = %d/%v", p.Balance, p.Inventory)
	}

	prof, _ := rig.store.ReadProfile(ctx, "p1")
	if prof.Balance != 300 {
		t.Fatalf("persisted balance = %d, want 300", prof.Balance)
	}
	if len(prof.Inventory) != 1 || prof.Inventory[0] != "hat_blue" {
		t.Fatalf("persisted inventory = %v", prof.Inventory)
	}

	if len(rig.send.sent) != 1 {
		t.Fatalf("outbound frames = %d, want 1", len(rig.send.sent))
	}
	frame, ok := rig.send.sent[0].(protocol.Purchase)
	if !ok || frame.ItemID != "hat_blue" || frame.ResultingBalance != 300 {
		t.Fatalf("unexpected purchase frame: %+v", rig.send.sent[0])
	}
	if frame.RequestID == "" {
		t.Fatal("purchase frame missing request id")
	}
	if hasEffect(out, effects.KindNotice) {
		t.Fatalf("unexpected failure notice: %+v", out)
	}
}

func TestPurchaseRollsBackOnWriteFailure(t *testing.T) {
	rig := newRig(100)
	p := rig.seedLocal(500)
	rig.store.FailWrites = errors.New("store_down")

	out, err := rig.r.Purchase(ctx, "hat_blue", 200)
	if err == nil {
		t.Fatal("expected error")
	}
	if p.Balance != 500 {
		t.Fatalf("balance = %d, want pre-mutation 500", p.Balance)
	}
	if p.HasItem("hat_blue") {
		t.Fatal("inventory must be rolled back")
	}
	if len(rig.send.sent) != 0 {
		t.Fatal("server must not be notified of a failed purchase")
	}
	if !hasEffect(out, effects.KindNotice) {
		t.Fatalf("expected user-visible failure, got %+v", out)
	}
}

func TestPurchaseRollsBackOnNotifyFailure(t *testing.T) {
	rig := newRig(100)
	p := rig.seedLocal(500)
	rig.send.err = errors.New("not_connected")

	if _, err := rig.r.Purchase(ctx, "hat_blue", 200); err == nil {
		t.Fatal("expected error")
	}
	if p.Balance != 500 || p.HasItem("hat_blue") {
		t.Fatalf("expected rollback, got %d/%v", p.Balance, p.Inventory)
	}
}

func TestPurchaseValidatesAgainstPersistedValues(t *testing.T) {
	rig := newRig(100)
	p := rig.seedLocal(100)
	// The optimistic local value is inflated; persisted is what counts.
	p.Balance = 10000

	if _, err := rig.r.Purchase(ctx, "hat_blue", 500); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("error = %v, want ErrInsufficientFunds", err)
	}
}

func TestPurchaseRejectsOwnedItem(t *testing.T) {
	rig := newRig(100)
	rig.seedLocal(500, "hat_blue")

	if _, err := rig.r.Purchase(ctx, "hat_blue", 200); !errors.Is(err, ErrAlreadyOwned) {
		t.Fatalf("error = %v, want ErrAlreadyOwned", err)
	}
}

func TestPurchaseSingleFlight(t *testing.T) {
	rig := newRig(100)
	rig.seedLocal(500)
	rig.r.purchaseInFlight = true

	if _, err := rig.r.Purchase(ctx, "hat_blue", 200); !errors.Is(err, ErrMutationInFlight) {
		t.Fatalf("error = %v, want ErrMutationInFlight", err)
	}
	// The lootbox class has its own guard.
	if _, err := rig.r.OpenLootbox(ctx, 100, "hat_red"); err != nil {
		t.Fatalf("lootbox blocked by purchase guard: %v", err)
	}
}

func TestLootboxRetriesThenSucceeds(t *testing.T) {
	noSleep(t)
	rig := newRig(100)
	p := rig.seedLocal(500)
	store := &flakyStore{Memory: rig.store, failures: 2}
	rig.r.store = store

	if _, err := rig.r.OpenLootbox(ctx, 100, "hat_gold"); err != nil {
		t.Fatalf("OpenLootbox() error = %v", err)
	}
	if p.Balance != 400 || !p.HasItem("hat_gold") {
		t.Fatalf("local state = %d/%v", p.Balance, p.Inventory)
	}
	prof, _ := rig.store.ReadProfile(ctx, "p1")
	if prof.Balance != 400 {
		t.Fatalf("persisted balance = %d, want 400", prof.Balance)
	}
}

func TestLootboxExhaustsRetriesAndRollsBack(t *testing.T) {
	noSleep(t)
	rig := newRig(100)
	p := rig.seedLocal(500)
	store := &flakyStore{Memory: rig.store, failures: 99}
	rig.r.store = store

	_, err := rig.r.OpenLootbox(ctx, 100, "hat_gold")
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("error = %v, want ErrRetriesExhausted", err)
	}
	if p.Balance != 500 || p.HasItem("hat_gold") {
		t.Fatalf("expected rollback, got %d/%v", p.Balance, p.Inventory)
	}
}

func TestMutationDiscardedAfterSessionReset(t *testing.T) {
	rig := newRig(100)
	p := rig.seedLocal(500)
	// Epoch moves while the validation read is in flight (fast rejoin);
	// the optimistic update must never land.
	rig.store.OnRead = func() { rig.epoch.n++ }

	if _, err := rig.r.Purchase(ctx, "hat_blue", 200); !errors.Is(err, ErrStaleEpoch) {
		t.Fatalf("error = %v, want ErrStaleEpoch", err)
	}
	if p.Balance != 500 || p.HasItem("hat_blue") {
		t.Fatalf("stale mutation applied: %d/%v", p.Balance, p.Inventory)
	}
}
