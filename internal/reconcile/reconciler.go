// Package reconcile merges the three sources of truth for shared player
// state: session-server pushes, the persisted profile store, and local
// optimistic predictions. Every entry point returns the side effects the
// merge produced; a dispatcher outside this package applies them.
package reconcile

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"plaza-client/internal/effects"
	"plaza-client/internal/position"
	"plaza-client/internal/profile"
	"plaza-client/internal/protocol"
	"plaza-client/internal/state"
)

// EpochSource reports the current session epoch. Results of profile-store
// round trips started under an older epoch are discarded.
type EpochSource interface {
	Epoch() int64
}

// Sender delivers outbound frames to the session server.
type Sender interface {
	Send(v any) error
}

type Options struct {
	DriftThreshold int64
	SlotsDelay     time.Duration
	LootboxTries   int
	RetryInterval  time.Duration
	NoiseRadius    float64
	TeleportRadius float64
}

type Reconciler struct {
	mu    sync.Mutex
	world *state.World
	store profile.Store
	send  Sender
	epoch EpochSource
	pos   position.Reconciler

	drift         int64
	slotsDelay    time.Duration
	lootboxTries  int
	retryInterval time.Duration

	// Single-flight guards, one per mutation class. A second request while
	// one is outstanding is rejected, never queued.
	purchaseInFlight bool
	lootboxInFlight  bool

	policies map[protocol.Channel]mergeFunc
}

func New(world *state.World, store profile.Store, send Sender, epoch EpochSource, opts Options) *Reconciler {
	if opts.LootboxTries <= 0 {
		opts.LootboxTries = 3
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 250 * time.Millisecond
	}
	r := &Reconciler{
		world:         world,
		store:         store,
		send:          send,
		epoch:         epoch,
		pos:           position.New(opts.NoiseRadius, opts.TeleportRadius),
		drift:         opts.DriftThreshold,
		slotsDelay:    opts.SlotsDelay,
		lootboxTries:  opts.LootboxTries,
		retryInterval: opts.RetryInterval,
	}
	r.policies = map[protocol.Channel]mergeFunc{
		protocol.ChannelIdle:            (*Reconciler).mergeIdle,
		protocol.ChannelTrade:           (*Reconciler).mergeTrade,
		protocol.ChannelBlackjackBet:    (*Reconciler).mergeBlackjack,
		protocol.ChannelBlackjackPayout: (*Reconciler).mergeBlackjack,
		protocol.ChannelSlots:           (*Reconciler).mergeSlots,
	}
	return r
}

// ApplyRoomState replaces the whole world with an accepted room snapshot.
// It reports whether the snapshot contained the local player.
func (r *Reconciler) ApplyRoomState(rs *protocol.RoomState) (bool, []effects.Effect) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.world.Reset()
	r.world.LocalID = rs.YouID
	hasLocal := false
	for _, ps := range rs.Players {
		p, _ := r.world.Upsert(ps.ID)
		applyPlayerState(p, ps)
		if ps.ID == rs.YouID {
			hasLocal = true
		}
	}
	log.Info().Str("room_id", rs.RoomID).Int("players", len(rs.Players)).Bool("has_local", hasLocal).Msg("room_state_applied")
	return hasLocal, nil
}

func (r *Reconciler) ApplyPlayerJoined(msg *protocol.PlayerJoined) []effects.Effect {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, existed := r.world.Upsert(msg.Player.ID)
	applyPlayerState(p, msg.Player)
	if existed || msg.Player.ID == r.world.LocalID {
		return nil
	}
	return []effects.Effect{effects.SoundCue("player_joined")}
}

func (r *Reconciler) ApplyPlayerLeft(msg *protocol.PlayerLeft) []effects.Effect {
	r.mu.Lock()
	defer r.mu.Unlock()
	if msg.PlayerID == r.world.LocalID {
		return nil
	}
	r.world.Remove(msg.PlayerID)
	return nil
}

func (r *Reconciler) ApplyChat(msg *protocol.ChatMessage) []effects.Effect {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.world.Get(msg.PlayerID)
	if p == nil {
		return nil
	}
	p.LastChat = msg.Text
	return []effects.Effect{effects.SpeechBubble(msg.PlayerID, msg.Text)}
}

// ApplyMove reconciles an authoritative position push. Remote players adopt
// it unconditionally; the local player goes through the divergence bands.
func (r *Reconciler) ApplyMove(msg *protocol.PlayerMoved) []effects.Effect {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.world.Get(msg.PlayerID)
	if p == nil {
		return nil
	}
	if msg.PlayerID != r.world.LocalID {
		dec := r.pos.Remote(msg.X, msg.Y)
		p.X, p.Y = dec.X, dec.Y
		p.Direction = msg.Direction
		return nil
	}
	dec := r.pos.Local(p.X, p.Y, msg.X, msg.Y)
	if dec.Outcome == position.OutcomeIgnore {
		return nil
	}
	p.X, p.Y = dec.X, dec.Y
	p.Direction = msg.Direction
	if dec.SuppressPrediction {
		return []effects.Effect{effects.SuppressPrediction(p.ID)}
	}
	return nil
}

// SetLocalPosition records a locally predicted move.
func (r *Reconciler) SetLocalPosition(x, y float64, direction string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p := r.world.Local(); p != nil {
		p.X, p.Y = x, y
		p.Direction = direction
	}
}

// SetInBlackjack toggles the high-stakes session lock. While set, profile
// polls never overwrite the local balance.
func (r *Reconciler) SetInBlackjack(v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.world.InBlackjack = v
}

// ApplyInventoryHint re-reads the profile and adopts its inventory; the
// server grants items out of band (events, daily rewards).
func (r *Reconciler) ApplyInventoryHint(ctx context.Context, msg *protocol.InventoryHint) []effects.Effect {
	r.mu.Lock()
	local := r.world.Local()
	if local == nil || msg.PlayerID != local.ID {
		r.mu.Unlock()
		return nil
	}
	id := local.ID
	before := r.epoch.Epoch()
	r.mu.Unlock()

	prof, err := r.store.ReadProfile(ctx, id)
	if err != nil {
		log.Warn().Err(err).Str("player_id", id).Msg("inventory_hint_read_failed")
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.epoch.Epoch() != before || r.world.Local() == nil || r.world.LocalID != id {
		return nil
	}
	r.world.Local().Inventory = prof.Inventory
	return []effects.Effect{effects.SoundCue("item_granted")}
}

// LocalID returns the confirmed local player id, or "".
func (r *Reconciler) LocalID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.world.LocalID
}

// ResetWorld drops all room-scoped state; called when session identity is
// cleared.
func (r *Reconciler) ResetWorld() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.world.Reset()
}

// ResyncLocal re-runs the default-channel reconcile for the local player,
// used after gameplay errors that may have desynced the balance.
func (r *Reconciler) ResyncLocal(ctx context.Context) []effects.Effect {
	r.mu.Lock()
	defer r.mu.Unlock()
	local := r.world.Local()
	if local == nil {
		return nil
	}
	upd := &protocol.BalanceUpdate{PlayerID: local.ID, Balance: local.Balance, Channel: protocol.ChannelOther}
	return r.mergeDefault(ctx, local, upd, true, true)
}

// ApplyDeferred lands a slots payout after its presentation delay. The
// value is dropped when the session moved on in the meantime.
func (r *Reconciler) ApplyDeferred(playerID string, balance int64, epoch int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.epoch.Epoch() != epoch {
		return
	}
	if p := r.world.Get(playerID); p != nil {
		p.Balance = balance
	}
}

// WorldView is a copy for the status API.
func (r *Reconciler) WorldView() map[string]state.Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]state.Player, len(r.world.Players))
	for id, p := range r.world.Players {
		out[id] = *p
	}
	return out
}

func applyPlayerState(p *state.Player, ps protocol.PlayerState) {
	p.Name = ps.Name
	p.X, p.Y = ps.X, ps.Y
	p.Direction = ps.Direction
	p.Balance = ps.Balance
	if ps.Inventory != nil {
		p.Inventory = ps.Inventory
	}
	if ps.Outfit != nil {
		p.Outfit = ps.Outfit
	}
}
