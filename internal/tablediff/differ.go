// Package tablediff turns repeated full blackjack-table broadcasts into a
// deduplicated stream of semantic transition events. The server sends a
// complete snapshot on every state change; this differ retains the previous
// snapshot per table and emits each transition exactly once.
package tablediff

import (
	"sync"

	"github.com/rs/zerolog/log"

	"plaza-client/internal/protocol"
)

type Differ struct {
	mu        sync.Mutex
	prev      map[string]*protocol.TableSnapshot
	prevRound map[string]int64
}

func New() *Differ {
	return &Differ{
		prev:      map[string]*protocol.TableSnapshot{},
		prevRound: map[string]int64{},
	}
}

// Reset drops all cached snapshots; called on session reset.
func (d *Differ) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.prev = map[string]*protocol.TableSnapshot{}
	d.prevRound = map[string]int64{}
}

// Apply diffs one incoming snapshot against the cached previous snapshot for
// its table, returning the transitions it implies. The incoming snapshot is
// cached afterwards regardless of whether any event fired.
func (d *Differ) Apply(snap *protocol.TableSnapshot) []Event {
	d.mu.Lock()
	defer d.mu.Unlock()

	prev := d.prev[snap.TableID]
	prevRound, hadRound := d.prevRound[snap.TableID]

	if hadRound && snap.Round < prevRound {
		// Out-of-order push from a previous round. Keep the cache pointed at
		// the freshest snapshot so future diffs stay correct.
		log.Debug().Str("table_id", snap.TableID).Int64("round", snap.Round).Int64("prev_round", prevRound).Msg("stale_table_snapshot_ignored")
		return nil
	}

	isNewRound := hadRound && snap.Round > prevRound
	isRoundReset := isNewRound || (prev != nil &&
		(prev.Phase == protocol.PhaseFinished || prev.Phase == protocol.PhaseWaiting) &&
		(snap.Phase == protocol.PhaseBetting || snap.Phase == protocol.PhaseDealing))

	var out []Event
	out = append(out, d.detectDealing(snap, prev, isRoundReset)...)
	out = append(out, d.detectReveals(snap, prev, isRoundReset)...)
	out = append(out, d.detectBets(snap, prev)...)
	if prev != nil && !isRoundReset {
		out = append(out, d.detectActions(snap, prev)...)
		out = append(out, d.detectDealer(snap, prev)...)
	}
	out = append(out, d.detectFinish(snap, prev)...)

	d.prev[snap.TableID] = snap
	d.prevRound[snap.TableID] = snap.Round
	return out
}

func (d *Differ) detectDealing(snap, prev *protocol.TableSnapshot, isRoundReset bool) []Event {
	if snap.Phase != protocol.PhaseDealing {
		return nil
	}
	if prev == nil || prev.Phase != protocol.PhaseDealing || isRoundReset {
		return []Event{{Kind: EventDealingStarted, TableID: snap.TableID}}
	}
	return nil
}

// detectReveals announces each freshly dealt two-card hand once. A round
// reset always re-announces, even when the hand shape matches the previous
// round's final snapshot.
func (d *Differ) detectReveals(snap, prev *protocol.TableSnapshot, isRoundReset bool) []Event {
	if snap.Phase != protocol.PhasePlaying {
		return nil
	}
	var out []Event
	for _, seat := range snap.Seats {
		for hi, hand := range seat.Hands {
			if hand.Bet <= 0 || len(hand.Cards) < 2 {
				continue
			}
			if !isRoundReset {
				if ph := findHand(prev, seat.PlayerID, hi); ph != nil && len(ph.Cards) >= 2 {
					continue
				}
			}
			out = append(out, Event{Kind: EventHandRevealed, TableID: snap.TableID, PlayerID: seat.PlayerID, HandIndex: hi})
		}
	}
	return out
}

func (d *Differ) detectBets(snap, prev *protocol.TableSnapshot) []Event {
	if prev == nil || prev.Phase != protocol.PhaseBetting || snap.Phase != protocol.PhaseBetting {
		return nil
	}
	var out []Event
	for _, seat := range snap.Seats {
		if len(seat.Hands) == 0 || seat.Hands[0].Bet <= 0 {
			continue
		}
		ph := findHand(prev, seat.PlayerID, 0)
		if ph == nil || ph.Bet > 0 {
			continue
		}
		out = append(out, Event{Kind: EventBetPlaced, TableID: snap.TableID, PlayerID: seat.PlayerID})
	}
	return out
}

// detectActions compares each hand against its previous self. Hands or
// players absent from the previous snapshot are new, not yet eligible.
func (d *Differ) detectActions(snap, prev *protocol.TableSnapshot) []Event {
	var out []Event
	for _, seat := range snap.Seats {
		for hi, hand := range seat.Hands {
			ph := findHand(prev, seat.PlayerID, hi)
			if ph == nil {
				continue
			}
			ev := Event{TableID: snap.TableID, PlayerID: seat.PlayerID, HandIndex: hi}
			switch {
			case hand.Double && !ph.Double:
				ev.Kind = EventDoubleDown
			case hand.Stand && !ph.Stand:
				ev.Kind = EventStand
			case snap.Phase == protocol.PhasePlaying && len(ph.Cards) >= 2 && len(hand.Cards) > len(ph.Cards):
				// A draw onto a revealed hand. The initial deal grows the
				// hand from empty and is announced as the reveal instead.
				ev.Kind = EventHit
			default:
				continue
			}
			out = append(out, ev)
		}
	}
	return out
}

func (d *Differ) detectDealer(snap, prev *protocol.TableSnapshot) []Event {
	var out []Event
	if snap.Phase == protocol.PhaseDealerTurn && prev.Phase != protocol.PhaseDealerTurn {
		out = append(out, Event{Kind: EventDealerTurn, TableID: snap.TableID})
	}
	// The entry transition reveals the hole card; only draws while already
	// in the dealer turn count as hits.
	if snap.Phase == protocol.PhaseDealerTurn && prev.Phase == protocol.PhaseDealerTurn &&
		len(snap.Dealer.Cards) > len(prev.Dealer.Cards) {
		out = append(out, Event{Kind: EventDealerHit, TableID: snap.TableID})
	}
	return out
}

func (d *Differ) detectFinish(snap, prev *protocol.TableSnapshot) []Event {
	if snap.Phase != protocol.PhaseFinished || prev == nil || prev.Phase == protocol.PhaseFinished {
		return nil
	}
	return []Event{{Kind: EventRoundFinished, TableID: snap.TableID, Outcome: classifyRound(snap)}}
}

func findHand(snap *protocol.TableSnapshot, playerID string, handIndex int) *protocol.Hand {
	if snap == nil {
		return nil
	}
	for _, seat := range snap.Seats {
		if seat.PlayerID != playerID {
			continue
		}
		if handIndex < len(seat.Hands) {
			return &seat.Hands[handIndex]
		}
		return nil
	}
	return nil
}

// SeatedAt reports whether playerID is currently seated at any cached table
// whose round is live; the reconciler uses this as the high-stakes lock.
func (d *Differ) SeatedAt(playerID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, snap := range d.prev {
		if snap.Phase == protocol.PhaseWaiting || snap.Phase == protocol.PhaseFinished {
			continue
		}
		for _, seat := range snap.Seats {
			if seat.PlayerID == playerID {
				return true
			}
		}
	}
	return false
}
