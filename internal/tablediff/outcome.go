package tablediff

import "plaza-client/internal/protocol"

// cardValue maps a rank+suit wire string ("AH", "TD", "10C") to its
// blackjack value, aces high.
func cardValue(card string) int {
	if card == "" {
		return 0
	}
	rank := card[:len(card)-1]
	switch rank {
	case "A":
		return 11
	case "K", "Q", "J", "T", "10":
		return 10
	default:
		v := 0
		for _, ch := range rank {
			v = v*10 + int(ch-'0')
		}
		return v
	}
}

// handTotal returns the best total, demoting aces from 11 to 1 while busting.
func handTotal(cards []string) int {
	total, aces := 0, 0
	for _, c := range cards {
		v := cardValue(c)
		if v == 11 {
			aces++
		}
		total += v
	}
	for total > 21 && aces > 0 {
		total -= 10
		aces--
	}
	return total
}

func isBlackjack(h protocol.Hand) bool {
	return h.Blackjack || (len(h.Cards) == 2 && handTotal(h.Cards) == 21)
}

func isBust(h protocol.Hand) bool {
	return h.Bust || handTotal(h.Cards) > 21
}

// classifyRound aggregates per-hand results against the dealer into the
// single announcement outcome. Pushes count toward neither side.
func classifyRound(snap *protocol.TableSnapshot) Outcome {
	dealerTotal := handTotal(snap.Dealer.Cards)
	dealerBust := dealerTotal > 21
	dealerBJ := isBlackjack(snap.Dealer)

	wins, losses := 0, 0
	for _, seat := range snap.Seats {
		for _, hand := range seat.Hands {
			if hand.Bet <= 0 {
				continue
			}
			switch resolveHand(hand, dealerTotal, dealerBust, dealerBJ) {
			case 1:
				wins++
			case -1:
				losses++
			}
		}
	}
	switch {
	case wins > 0 && losses == 0:
		return OutcomeAllWin
	case losses > 0 && wins == 0:
		return OutcomeAllLose
	case wins > 0 && losses > 0:
		return OutcomeMixed
	default:
		return OutcomePush
	}
}

// resolveHand returns 1 for a win, -1 for a loss, 0 for a push.
func resolveHand(h protocol.Hand, dealerTotal int, dealerBust, dealerBJ bool) int {
	switch {
	case isBust(h):
		return -1
	case isBlackjack(h) && dealerBJ:
		return 0
	case isBlackjack(h):
		return 1
	case dealerBJ:
		return -1
	case dealerBust:
		return 1
	}
	total := handTotal(h.Cards)
	switch {
	case total > dealerTotal:
		return 1
	case total < dealerTotal:
		return -1
	default:
		return 0
	}
}
