package reconcile

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"plaza-client/internal/effects"
	"plaza-client/internal/protocol"
	"plaza-client/internal/state"
)

type mergeFunc func(r *Reconciler, ctx context.Context, p *state.Player, upd *protocol.BalanceUpdate, isLocal bool, existed bool) []effects.Effect

// ApplyBalance resolves one balance push into a single trusted value via the
// per-channel policy table. Channels without a dedicated policy reconcile
// against the persisted profile store.
func (r *Reconciler) ApplyBalance(ctx context.Context, upd *protocol.BalanceUpdate) []effects.Effect {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, existed := r.world.Upsert(upd.PlayerID)
	isLocal := upd.PlayerID == r.world.LocalID

	merge, ok := r.policies[upd.Channel]
	if !ok {
		merge = (*Reconciler).mergeDefault
	}
	return merge(r, ctx, p, upd, isLocal, existed)
}

// mergeBlackjack: the table settlement is the only channel guaranteed to
// reflect real-money-style outcomes, so the push is applied even when the
// value matches what we already hold.
func (r *Reconciler) mergeBlackjack(ctx context.Context, p *state.Player, upd *protocol.BalanceUpdate, isLocal, existed bool) []effects.Effect {
	p.Balance = upd.Balance
	if upd.Channel == protocol.ChannelBlackjackPayout && isLocal && upd.Delta != nil && *upd.Delta > 0 {
		return []effects.Effect{
			effects.FloatingText(p.ID, fmt.Sprintf("+%d", *upd.Delta)),
			effects.SoundCue("chips"),
		}
	}
	return nil
}

// mergeTrade: trade settlement is one atomic server decision; the push wins
// for local and remote players alike.
func (r *Reconciler) mergeTrade(ctx context.Context, p *state.Player, upd *protocol.BalanceUpdate, isLocal, existed bool) []effects.Effect {
	p.Balance = upd.Balance
	if !isLocal {
		return nil
	}
	return []effects.Effect{effects.SoundCue("trade_complete")}
}

// mergeSlots defers the visible balance change behind the reel animation.
// The settled value is persisted in the background straight away so a crash
// mid-animation cannot lose the payout.
func (r *Reconciler) mergeSlots(ctx context.Context, p *state.Player, upd *protocol.BalanceUpdate, isLocal, existed bool) []effects.Effect {
	out := []effects.Effect{effects.DeferredBalance(p.ID, upd.Balance, r.slotsDelay)}
	if isLocal {
		out = append(out, effects.ProfileWrite(p.ID, upd.Balance))
	}
	return out
}

// mergeIdle applies incremental rewards immediately; the server is the sole
// writer on this channel, so no staleness check is needed.
func (r *Reconciler) mergeIdle(ctx context.Context, p *state.Player, upd *protocol.BalanceUpdate, isLocal, existed bool) []effects.Effect {
	delta := upd.Balance - p.Balance
	if upd.Delta != nil {
		delta = *upd.Delta
	}
	p.Balance = upd.Balance
	if delta <= 0 {
		return nil
	}
	return []effects.Effect{effects.FloatingText(p.ID, fmt.Sprintf("+%d", delta))}
}

// mergeDefault reconciles against the persisted profile store (purchase,
// sale, other). Remote players simply adopt: the client never predicts on
// their behalf.
func (r *Reconciler) mergeDefault(ctx context.Context, p *state.Player, upd *protocol.BalanceUpdate, isLocal, existed bool) []effects.Effect {
	if !isLocal {
		if !existed || p.Balance == 0 || p.Balance != upd.Balance {
			p.Balance = upd.Balance
		}
		return nil
	}

	if r.world.InBlackjack {
		// High-stakes session lock: only the table channel may move the
		// local balance while a round is live.
		log.Debug().Str("channel", string(upd.Channel)).Msg("balance_push_ignored_in_blackjack")
		return nil
	}

	id := p.ID
	before := r.epoch.Epoch()
	r.mu.Unlock()
	prof, err := r.store.ReadProfile(ctx, id)
	r.mu.Lock()
	if err != nil {
		log.Warn().Err(err).Str("player_id", id).Msg("profile_read_failed")
		return nil
	}
	if r.epoch.Epoch() != before || r.world.LocalID != id {
		// Session was reset while the read was in flight.
		return nil
	}
	p = r.world.Get(id)
	if p == nil {
		return nil
	}

	if p.Balance > prof.Balance && p.Balance-prof.Balance <= r.drift {
		// A local optimistic write is likely still propagating; the
		// persisted value is the stale one.
		log.Debug().Int64("local", p.Balance).Int64("persisted", prof.Balance).Msg("profile_balance_stale")
		return nil
	}
	p.Balance = prof.Balance
	return nil
}
