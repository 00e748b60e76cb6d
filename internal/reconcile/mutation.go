package reconcile

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"

	"plaza-client/internal/effects"
	"plaza-client/internal/protocol"
)

// swapped out in tests to avoid real sleeps
var timeAfter = time.After

// pendingMutation captures the pre-mutation values needed for rollback. At
// most one exists per operation class.
type pendingMutation struct {
	playerID  string
	epoch     int64
	balance   int64
	inventory []string
}

// Purchase buys an item: validate against persisted values, apply the local
// optimistic update, persist, then notify the session server. Any failing
// step rolls the optimistic update back.
func (r *Reconciler) Purchase(ctx context.Context, itemID string, price int64) ([]effects.Effect, error) {
	r.mu.Lock()
	if r.purchaseInFlight {
		r.mu.Unlock()
		return nil, ErrMutationInFlight
	}
	local := r.world.Local()
	if local == nil {
		r.mu.Unlock()
		return nil, ErrNoLocalPlayer
	}
	r.purchaseInFlight = true
	id := local.ID
	epoch := r.epoch.Epoch()
	r.mu.Unlock()
	defer r.clearGuard(&r.purchaseInFlight)

	// Funds and ownership are validated against the persisted record, not
	// the optimistic local value, to keep concurrent buyers honest.
	prof, err := r.store.ReadProfile(ctx, id)
	if err != nil {
		return failureNotice("purchase_failed"), err
	}
	if prof.Balance < price {
		return failureNotice("insufficient_funds"), ErrInsufficientFunds
	}
	for _, it := range prof.Inventory {
		if it == itemID {
			return failureNotice("already_owned"), ErrAlreadyOwned
		}
	}

	newBalance := prof.Balance - price
	newInventory := append(append([]string(nil), prof.Inventory...), itemID)

	pending, err := r.applyOptimistic(id, epoch, newBalance, newInventory)
	if err != nil {
		return failureNotice("purchase_failed"), err
	}

	if err := r.store.WriteBalance(ctx, id, newBalance); err != nil {
		return r.rollback(pending, "purchase_failed"), err
	}
	if err := r.store.WriteInventory(ctx, id, newInventory); err != nil {
		return r.rollback(pending, "purchase_failed"), err
	}
	if err := r.send.Send(protocol.Purchase{
		Type:               "purchase",
		RequestID:          protocol.NewID(),
		ItemID:             itemID,
		ResultingBalance:   newBalance,
		ResultingInventory: newInventory,
	}); err != nil {
		return r.rollback(pending, "purchase_failed"), err
	}

	log.Info().Str("item_id", itemID).Int64("price", price).Int64("balance", newBalance).Msg("purchase_complete")
	return []effects.Effect{effects.SoundCue("purchase"), effects.ParticleBurst(id)}, nil
}

// OpenLootbox debits the box price and grants the rolled reward. The
// persisted write is retried on a bounded backoff schedule, re-reading the
// profile before each attempt so a concurrent change is not clobbered.
func (r *Reconciler) OpenLootbox(ctx context.Context, price int64, reward string) ([]effects.Effect, error) {
	r.mu.Lock()
	if r.lootboxInFlight {
		r.mu.Unlock()
		return nil, ErrMutationInFlight
	}
	local := r.world.Local()
	if local == nil {
		r.mu.Unlock()
		return nil, ErrNoLocalPlayer
	}
	r.lootboxInFlight = true
	id := local.ID
	epoch := r.epoch.Epoch()
	r.mu.Unlock()
	defer r.clearGuard(&r.lootboxInFlight)

	prof, err := r.store.ReadProfile(ctx, id)
	if err != nil {
		return failureNotice("lootbox_failed"), err
	}
	if prof.Balance < price {
		return failureNotice("insufficient_funds"), ErrInsufficientFunds
	}

	pending, err := r.applyOptimistic(id, epoch, prof.Balance-price, appendItem(prof.Inventory, reward))
	if err != nil {
		return failureNotice("lootbox_failed"), err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.retryInterval
	var writeErr error
	for attempt := 1; attempt <= r.lootboxTries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return r.rollback(pending, "lootbox_failed"), ctx.Err()
			case <-timeAfter(bo.NextBackOff()):
			}
			// Re-read so a concurrent writer's changes survive ours.
			if prof, writeErr = r.store.ReadProfile(ctx, id); writeErr != nil {
				continue
			}
		}
		if writeErr = r.store.WriteBalance(ctx, id, prof.Balance-price); writeErr != nil {
			continue
		}
		if writeErr = r.store.WriteInventory(ctx, id, appendItem(prof.Inventory, reward)); writeErr != nil {
			continue
		}
		break
	}
	if writeErr != nil {
		log.Warn().Err(writeErr).Int("tries", r.lootboxTries).Msg("lootbox_write_exhausted")
		return r.rollback(pending, "lootbox_failed"), ErrRetriesExhausted
	}

	log.Info().Str("reward", reward).Int64("price", price).Msg("lootbox_opened")
	return []effects.Effect{effects.SoundCue("lootbox"), effects.ParticleBurst(id)}, nil
}

// applyOptimistic swaps the local value for the predicted outcome and
// returns the captured pre-mutation state.
func (r *Reconciler) applyOptimistic(playerID string, epoch int64, balance int64, inventory []string) (pendingMutation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.epoch.Epoch() != epoch || r.world.LocalID != playerID {
		return pendingMutation{}, ErrStaleEpoch
	}
	p := r.world.Get(playerID)
	if p == nil {
		return pendingMutation{}, ErrNoLocalPlayer
	}
	pending := pendingMutation{
		playerID:  playerID,
		epoch:     epoch,
		balance:   p.Balance,
		inventory: append([]string(nil), p.Inventory...),
	}
	p.Balance = balance
	p.Inventory = inventory
	return pending, nil
}

// rollback restores the captured pre-mutation state unless the session has
// been reset under us, and surfaces a user-visible failure notice.
func (r *Reconciler) rollback(pending pendingMutation, notice string) []effects.Effect {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.epoch.Epoch() == pending.epoch && r.world.LocalID == pending.playerID {
		if p := r.world.Get(pending.playerID); p != nil {
			p.Balance = pending.balance
			p.Inventory = pending.inventory
		}
	}
	log.Warn().Str("player_id", pending.playerID).Msg("optimistic_update_rolled_back")
	return failureNotice(notice)
}

func (r *Reconciler) clearGuard(flag *bool) {
	r.mu.Lock()
	*flag = false
	r.mu.Unlock()
}

// ResetGuards releases both single-flight guards; called on session reset.
func (r *Reconciler) ResetGuards() {
	r.mu.Lock()
	r.purchaseInFlight = false
	r.lootboxInFlight = false
	r.mu.Unlock()
}

func failureNotice(code string) []effects.Effect {
	return []effects.Effect{effects.Notice(code, true)}
}

func appendItem(items []string, item string) []string {
	out := append([]string(nil), items...)
	for _, it := range out {
		if it == item {
			return out
		}
	}
	return append(out, item)
}
