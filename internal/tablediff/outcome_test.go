package tablediff

import (
	"testing"

	"plaza-client/internal/protocol"
)

func TestHandTotalAceDemotion(t *testing.T) {
	cases := []struct {
		cards []string
		want  int
	}{
		{[]string{"AH", "KD"}, 21},
		{[]string{"AH", "AD"}, 12},
		{[]string{"AH", "9D", "5C"}, 15},
		{[]string{"10H", "9D", "5C"}, 24},
		{[]string{"TH", "9D", "2C"}, 21},
	}
	for _, tc := range cases {
		if got := handTotal(tc.cards); got != tc.want {
			t.Fatalf("handTotal(%v) = %d, want %d", tc.cards, got, tc.want)
		}
	}
}

func finished(dealer protocol.Hand, seats ...protocol.Seat) *protocol.TableSnapshot {
	s := snap(1, protocol.PhaseFinished, seats...)
	s.Dealer = dealer
	return s
}

func TestClassifyRound(t *testing.T) {
	cases := []struct {
		name string
		snap *protocol.TableSnapshot
		want Outcome
	}{
		{
			name: "all win on dealer bust",
			snap: finished(hand(0, "KH", "9D", "8C"),
				seat("p1", hand(100, "5H", "6D")),
				seat("p2", hand(100, "KD", "7C"))),
			want: OutcomeAllWin,
		},
		{
			name: "all lose against dealer twenty",
			snap: finished(hand(0, "KH", "QD"),
				seat("p1", hand(100, "5H", "6D")),
				seat("p2", hand(100, "KD", "7C"))),
			want: OutcomeAllLose,
		},
		{
			name: "mixed",
			snap: finished(hand(0, "KH", "8D"),
				seat("p1", hand(100, "KD", "QD")),
				seat("p2", hand(100, "5H", "6D"))),
			want: OutcomeMixed,
		},
		{
			name: "push on equal totals",
			snap: finished(hand(0, "KH", "8D"),
				seat("p1", hand(100, "9D", "9C"))),
			want: OutcomePush,
		},
		{
			name: "blackjack against dealer blackjack pushes",
			snap: finished(hand(0, "AD", "KC"),
				seat("p1", hand(100, "AH", "QD"))),
			want: OutcomePush,
		},
		{
			name: "dealer blackjack beats plain twenty-one",
			snap: finished(hand(0, "AD", "KC"),
				seat("p1", hand(100, "7H", "7D", "7C"))),
			want: OutcomeAllLose,
		},
		{
			name: "bust loses even against dealer bust",
			snap: finished(hand(0, "KH", "9D", "8C"),
				seat("p1", hand(100, "KD", "9C", "5H"))),
			want: OutcomeAllLose,
		},
		{
			name: "hands without bets ignored",
			snap: finished(hand(0, "KH", "QD"),
				seat("p1", hand(0, "5H", "6D"))),
			want: OutcomePush,
		},
	}
	for _, tc := range cases {
		if got := classifyRound(tc.snap); got != tc.want {
			t.Fatalf("%s: classifyRound() = %q, want %q", tc.name, got, tc.want)
		}
	}
}
