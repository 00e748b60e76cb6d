package state

// Player is one occupant of the room. The local player is the only one the
// client predicts for; every other player mirrors server pushes verbatim.
type Player struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	X         float64  `json:"x"`
	Y         float64  `json:"y"`
	Direction string   `json:"direction"`
	Balance   int64    `json:"balance"`
	Inventory []string `json:"inventory,omitempty"`
	Outfit    []string `json:"outfit,omitempty"`
	LastChat  string   `json:"last_chat,omitempty"`
}

func (p *Player) HasItem(id string) bool {
	for _, it := range p.Inventory {
		if it == id {
			return true
		}
	}
	return false
}

func (p *Player) AddItem(id string) {
	if !p.HasItem(id) {
		p.Inventory = append(p.Inventory, id)
	}
}

// World is the locally reconciled view of the shared room.
type World struct {
	LocalID string
	Players map[string]*Player

	// InBlackjack marks the local player as seated in a server-authoritative
	// blackjack round; while set, profile polls must not overwrite balance.
	InBlackjack bool
}

func NewWorld() *World {
	return &World{Players: map[string]*Player{}}
}

func (w *World) Local() *Player {
	if w.LocalID == "" {
		return nil
	}
	return w.Players[w.LocalID]
}

func (w *World) Get(id string) *Player {
	return w.Players[id]
}

// Upsert returns the player for id, creating an empty record when the id is
// new. The second result reports whether the record already existed.
func (w *World) Upsert(id string) (*Player, bool) {
	if p, ok := w.Players[id]; ok {
		return p, true
	}
	p := &Player{ID: id}
	w.Players[id] = p
	return p, false
}

func (w *World) Remove(id string) {
	delete(w.Players, id)
}

// Reset drops all room-scoped state. Called on session reset and rejoin.
func (w *World) Reset() {
	w.LocalID = ""
	w.Players = map[string]*Player{}
	w.InBlackjack = false
}
