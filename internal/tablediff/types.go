package tablediff

// EventKind is a semantic transition derived from consecutive snapshots.
type EventKind string

const (
	EventDealingStarted EventKind = "dealing_started"
	EventHandRevealed   EventKind = "hand_revealed"
	EventBetPlaced      EventKind = "bet_placed"
	EventHit            EventKind = "hit"
	EventStand          EventKind = "stand"
	EventDoubleDown     EventKind = "double_down"
	EventDealerTurn     EventKind = "dealer_turn"
	EventDealerHit      EventKind = "dealer_hit"
	EventRoundFinished  EventKind = "round_finished"
)

// Outcome is the aggregate round classification used for the single
// representative announcement.
type Outcome string

const (
	OutcomeAllWin  Outcome = "all_win"
	OutcomeAllLose Outcome = "all_lose"
	OutcomeMixed   Outcome = "mixed"
	OutcomePush    Outcome = "push"
)

type Event struct {
	Kind      EventKind
	TableID   string
	PlayerID  string
	HandIndex int
	Outcome   Outcome
}
