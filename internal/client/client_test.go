package client

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"plaza-client/internal/config"
	"plaza-client/internal/effects"
	"plaza-client/internal/profile"
	"plaza-client/internal/session"
)

type recordingDispatcher struct {
	mu   sync.Mutex
	effs []effects.Effect
}

func (d *recordingDispatcher) Dispatch(effs []effects.Effect) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.effs = append(d.effs, effs...)
}

func (d *recordingDispatcher) kinds() []effects.Kind {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]effects.Kind, 0, len(d.effs))
	for _, e := range d.effs {
		out = append(out, e.Kind)
	}
	return out
}

func (d *recordingDispatcher) has(kind effects.Kind) bool {
	for _, k := range d.kinds() {
		if k == kind {
			return true
		}
	}
	return false
}

func buildClient(t *testing.T) (*Client, *profile.Memory, *recordingDispatcher) {
	t.Helper()
	store := profile.NewMemory()
	disp := &recordingDispatcher{}
	cfg := config.ClientConfig{
		SessionWSURL:           "ws://localhost:0/ws",
		MapType:                "plaza",
		BalanceDriftThreshold:  100,
		PositionNoiseRadius:    16,
		PositionTeleportRadius: 64,
		SlotsRevealDelay:       time.Millisecond,
		LootboxWriteTries:      3,
		ReconnectMaxInterval:   time.Second,
	}
	return New(cfg, store, disp), store, disp
}

// seedRoom puts the client into a confirmed room as local player p1 with
// the given balance persisted in the store.
func seedRoom(t *testing.T, c *Client, balance int64) {
	t.Helper()
	mem, ok := c.store.(*profile.Memory)
	if !ok {
		t.Fatalf("test client needs a memory store")
	}
	mem.Seed(profile.Profile{PlayerID: "p1", Balance: balance})
	c.handleFrame(context.Background(), roomStateFrame(t, "p1", playerObj("p1", balance)))
}

func frame(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal frame: %v", err)
	}
	return data
}

func roomStateFrame(t *testing.T, youID string, players ...map[string]any) []byte {
	t.Helper()
	return frame(t, map[string]any{
		"type":    "room_state",
		"room_id": "plaza-1",
		"you_id":  youID,
		"players": players,
	})
}

func playerObj(id string, balance int64) map[string]any {
	return map[string]any{"id": id, "name": id, "x": 10.0, "y": 10.0, "balance": balance}
}

func TestRoomStateConfirmsSession(t *testing.T) {
	c, _, _ := buildClient(t)
	ctx := context.Background()

	if err := c.Join(ctx, "plaza-1", "p1", ""); err != nil {
		t.Fatalf("join: %v", err)
	}
	c.sess.HandleConnected()
	c.handleFrame(ctx, roomStateFrame(t, "p1", playerObj("p1", 500)))

	view := c.SessionView()
	if view.State != session.StateInRoom {
		t.Fatalf("state = %s, want %s", view.State, session.StateInRoom)
	}
	world := c.WorldView()
	if world["p1"].Balance != 500 {
		t.Fatalf("local balance = %d, want 500", world["p1"].Balance)
	}
}

func TestBalanceFrameRoutedThroughPolicy(t *testing.T) {
	c, _, disp := buildClient(t)
	ctx := context.Background()
	seedRoom(t, c, 500)

	c.handleFrame(ctx, frame(t, map[string]any{
		"type": "balance_update", "player_id": "p1",
		"balance": 525, "delta": 25, "channel": "idle",
	}))

	if got := c.WorldView()["p1"].Balance; got != 525 {
		t.Fatalf("balance = %d, want 525", got)
	}
	if !disp.has(effects.KindFloatingText) {
		t.Fatalf("expected floating text, got %v", disp.kinds())
	}
}

func TestSlotsFrameDefersBalance(t *testing.T) {
	c, store, disp := buildClient(t)
	ctx := context.Background()
	seedRoom(t, c, 500)

	c.handleFrame(ctx, frame(t, map[string]any{
		"type": "balance_update", "player_id": "p1",
		"balance": 900, "channel": "slots",
	}))

	if got := c.WorldView()["p1"].Balance; got != 500 {
		t.Fatalf("balance applied immediately: %d, want 500", got)
	}
	if !disp.has(effects.KindDeferredBalance) || !disp.has(effects.KindProfileWrite) {
		t.Fatalf("missing slots effects, got %v", disp.kinds())
	}

	// The deferred landing and the background write both settle on their own.
	deadline := time.Now().Add(2 * time.Second)
	for {
		prof, _ := store.ReadProfile(ctx, "p1")
		if c.WorldView()["p1"].Balance == 900 && prof.Balance == 900 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("deferred balance never landed: world=%d profile=%d",
				c.WorldView()["p1"].Balance, prof.Balance)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestTableFrameDrivesDifferAndLock(t *testing.T) {
	c, _, disp := buildClient(t)
	ctx := context.Background()
	seedRoom(t, c, 500)

	c.handleFrame(ctx, frame(t, map[string]any{
		"type": "table_state", "table_id": "bj-1", "phase": "betting", "round": 1,
		"seats": []map[string]any{{"player_id": "p1", "hands": []map[string]any{{"cards": []string{}}}}},
	}))
	c.handleFrame(ctx, frame(t, map[string]any{
		"type": "table_state", "table_id": "bj-1", "phase": "betting", "round": 1,
		"seats": []map[string]any{{"player_id": "p1", "hands": []map[string]any{{"cards": []string{}, "bet": 50}}}},
	}))

	if !disp.has(effects.KindSoundCue) {
		t.Fatalf("expected bet sound cue, got %v", disp.kinds())
	}

	// Seated in a live round: ambient balance frames must not poll the store.
	c.handleFrame(ctx, frame(t, map[string]any{
		"type": "balance_update", "player_id": "p1", "balance": 123, "channel": "other",
	}))
	if got := c.WorldView()["p1"].Balance; got == 123 {
		t.Fatalf("ambient update applied while seated at live table")
	}

	c.handleFrame(ctx, frame(t, map[string]any{
		"type": "table_state", "table_id": "bj-1", "phase": "finished", "round": 1,
		"seats": []map[string]any{{"player_id": "p1", "hands": []map[string]any{{"cards": []string{"TH", "9D"}, "bet": 50}}}},
		"dealer": map[string]any{"cards": []string{"TH", "8D"}},
	}))
	if c.differ.SeatedAt("p1") {
		t.Fatalf("still locked after round finished")
	}
}

func TestFatalServerErrorClearsEverything(t *testing.T) {
	c, _, disp := buildClient(t)
	ctx := context.Background()
	seedRoom(t, c, 500)
	epochBefore := c.sess.Epoch()

	c.handleFrame(ctx, frame(t, map[string]any{"type": "error", "code": "kicked"}))

	if len(c.WorldView()) != 0 {
		t.Fatalf("world not cleared: %v", c.WorldView())
	}
	if c.sess.Epoch() == epochBefore {
		t.Fatalf("epoch not advanced on fatal error")
	}
	if !disp.has(effects.KindNotice) {
		t.Fatalf("expected user-visible notice, got %v", disp.kinds())
	}
}

func TestGameplayErrorResyncsWithoutClearing(t *testing.T) {
	c, _, _ := buildClient(t)
	ctx := context.Background()
	seedRoom(t, c, 500)
	epochBefore := c.sess.Epoch()

	c.handleFrame(ctx, frame(t, map[string]any{"type": "error", "code": "invalid_bet"}))

	if len(c.WorldView()) == 0 {
		t.Fatalf("world cleared on gameplay error")
	}
	if c.sess.Epoch() != epochBefore {
		t.Fatalf("epoch advanced on gameplay error")
	}
}

func TestMalformedFrameIgnored(t *testing.T) {
	c, _, _ := buildClient(t)
	ctx := context.Background()
	seedRoom(t, c, 500)

	c.handleFrame(ctx, []byte(`{"type":"no_such_frame"}`))
	c.handleFrame(ctx, []byte(`{not json`))

	if got := c.WorldView()["p1"].Balance; got != 500 {
		t.Fatalf("world disturbed by junk frames: %d", got)
	}
}
