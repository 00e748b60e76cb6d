package reconcile

import (
	"context"
	"time"

	"plaza-client/internal/effects"
	"plaza-client/internal/profile"
	"plaza-client/internal/protocol"
	"plaza-client/internal/state"
)

type fakeEpoch struct{ n int64 }

func (f *fakeEpoch) Epoch() int64 { return f.n }

type fakeSender struct {
	sent []any
	err  error
}

func (f *fakeSender) Send(v any) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, v)
	return nil
}

type testRig struct {
	r     *Reconciler
	world *state.World
	store *profile.Memory
	epoch *fakeEpoch
	send  *fakeSender
}

func newRig(drift int64) *testRig {
	world := state.NewWorld()
	store := profile.NewMemory()
	epoch := &fakeEpoch{}
	send := &fakeSender{}
	r := New(world, store, send, epoch, Options{
		DriftThreshold: drift,
		SlotsDelay:     1800 * time.Millisecond,
		LootboxTries:   3,
		RetryInterval:  time.Millisecond,
		NoiseRadius:    16,
		TeleportRadius: 64,
	})
	return &testRig{r: r, world: world, store: store, epoch: epoch, send: send}
}

func (rig *testRig) seedLocal(balance int64, inventory ...string) *state.Player {
	rig.world.LocalID = "p1"
	p, _ := rig.world.Upsert("p1")
	p.Name = "ana"
	p.Balance = balance
	p.Inventory = inventory
	rig.store.Seed(profile.Profile{PlayerID: "p1", Balance: balance, Inventory: inventory})
	return p
}

func push(channel protocol.Channel, playerID string, balance int64) *protocol.BalanceUpdate {
	return &protocol.BalanceUpdate{Type: "balance_update", PlayerID: playerID, Balance: balance, Channel: channel}
}

func hasEffect(list []effects.Effect, kind effects.Kind) bool {
	for _, e := range list {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

var ctx = context.Background()
