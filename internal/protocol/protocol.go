package protocol

import (
	"encoding/json"
	"errors"
)

var ErrUnknownType = errors.New("unknown_message_type")

// Channel tags a balance update with the reward path that produced it.
// The reconciler dispatches its merge policy on this value.
type Channel string

const (
	ChannelIdle            Channel = "idle"
	ChannelTrade           Channel = "trade"
	ChannelBlackjackBet    Channel = "blackjack_bet"
	ChannelBlackjackPayout Channel = "blackjack_payout"
	ChannelSlots           Channel = "slots"
	ChannelPurchase        Channel = "purchase"
	ChannelSale            Channel = "sale"
	ChannelOther           Channel = "other"
)

// Phase is the lifecycle phase of a blackjack table.
type Phase string

const (
	PhaseWaiting    Phase = "waiting"
	PhaseBetting    Phase = "betting"
	PhaseDealing    Phase = "dealing"
	PhasePlaying    Phase = "playing"
	PhaseDealerTurn Phase = "dealer_turn"
	PhaseFinished   Phase = "finished"
)

// Inbound messages.

type RoomState struct {
	Type    string        `json:"type"`
	RoomID  string        `json:"room_id"`
	MapType string        `json:"map_type"`
	YouID   string        `json:"you_id"`
	Players []PlayerState `json:"players"`
}

type PlayerState struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	X         float64  `json:"x"`
	Y         float64  `json:"y"`
	Direction string   `json:"direction"`
	Balance   int64    `json:"balance"`
	Inventory []string `json:"inventory,omitempty"`
	Outfit    []string `json:"outfit,omitempty"`
}

type PlayerJoined struct {
	Type   string      `json:"type"`
	Player PlayerState `json:"player"`
}

type PlayerLeft struct {
	Type     string `json:"type"`
	PlayerID string `json:"player_id"`
}

type PlayerMoved struct {
	Type      string  `json:"type"`
	PlayerID  string  `json:"player_id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Direction string  `json:"direction"`
}

type ChatMessage struct {
	Type     string `json:"type"`
	PlayerID string `json:"player_id"`
	Text     string `json:"text"`
}

type BalanceUpdate struct {
	Type     string  `json:"type"`
	PlayerID string  `json:"player_id"`
	Balance  int64   `json:"balance"`
	Delta    *int64  `json:"delta,omitempty"`
	Channel  Channel `json:"channel"`
}

type InventoryHint struct {
	Type     string `json:"type"`
	PlayerID string `json:"player_id"`
}

type TableSnapshot struct {
	Type    string `json:"type"`
	TableID string `json:"table_id"`
	Phase   Phase  `json:"phase"`
	Round   int64  `json:"round"`
	Seats   []Seat `json:"seats"`
	Dealer  Hand   `json:"dealer"`
}

type Seat struct {
	PlayerID string `json:"player_id"`
	Hands    []Hand `json:"hands"`
}

// Hand is one blackjack hand. Cards are rank+suit strings ("AH", "TD").
type Hand struct {
	Cards     []string `json:"cards"`
	Stand     bool     `json:"stand,omitempty"`
	Double    bool     `json:"double,omitempty"`
	Bust      bool     `json:"bust,omitempty"`
	Blackjack bool     `json:"blackjack,omitempty"`
	Bet       int64    `json:"bet,omitempty"`
}

type TableError struct {
	Type    string `json:"type"`
	TableID string `json:"table_id"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// Outbound messages.

type JoinRoom struct {
	Type       string   `json:"type"`
	RoomID     string   `json:"room_id"`
	PlayerName string   `json:"player_name"`
	MapType    string   `json:"map_type,omitempty"`
	Balance    int64    `json:"balance"`
	Equipment  []string `json:"equipment,omitempty"`
	Password   string   `json:"password,omitempty"`
}

type Move struct {
	Type      string  `json:"type"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Direction string  `json:"direction"`
}

type Chat struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type CollectItem struct {
	Type   string `json:"type"`
	ItemID string `json:"item_id"`
}

type TableAction struct {
	Type      string `json:"type"`
	TableID   string `json:"table_id"`
	Action    string `json:"action"`
	HandIndex *int   `json:"hand_index,omitempty"`
}

type Purchase struct {
	Type               string   `json:"type"`
	RequestID          string   `json:"request_id"`
	ItemID             string   `json:"item_id"`
	ResultingBalance   int64    `json:"resulting_balance"`
	ResultingInventory []string `json:"resulting_inventory"`
}

// Decode unmarshals a raw frame into the concrete message for its type tag.
func Decode(data []byte) (any, error) {
	var base struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, err
	}
	var msg any
	switch base.Type {
	case "room_state":
		msg = &RoomState{}
	case "player_joined":
		msg = &PlayerJoined{}
	case "player_left":
		msg = &PlayerLeft{}
	case "player_moved":
		msg = &PlayerMoved{}
	case "chat_message":
		msg = &ChatMessage{}
	case "balance_update":
		msg = &BalanceUpdate{}
	case "inventory_hint":
		msg = &InventoryHint{}
	case "table_state":
		msg = &TableSnapshot{}
	case "table_error":
		msg = &TableError{}
	case "error":
		msg = &ErrorMessage{}
	default:
		return nil, ErrUnknownType
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return nil, err
	}
	return msg, nil
}
