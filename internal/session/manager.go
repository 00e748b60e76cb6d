// Package session owns the logical connection to the session server and
// guarantees at most one join or rejoin request in flight, across reconnect
// storms, startup checks and manual join calls.
package session

import (
	"sync"

	"github.com/rs/zerolog/log"

	"plaza-client/internal/protocol"
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateJoining      State = "joining"
	StateInRoom       State = "in_room"
)

// Transport is the narrow slice of the websocket link the manager needs.
type Transport interface {
	Send(v any) error
	Rebuild()
	IsConnected() bool
}

type JoinRequest struct {
	RoomID     string
	PlayerName string
	MapType    string
	Balance    int64
	Equipment  []string
	Password   string
}

type Manager struct {
	mu sync.Mutex
	tr Transport

	state        State
	connectionID string
	epoch        int64

	roomID     string
	playerName string
	lastJoin   JoinRequest
	confirmed  bool

	// Three independent guards. Any one of them being set blocks the other
	// two triggers (connect event, startup check, manual join) from racing.
	joinInFlight    bool
	rejoinPending   bool
	rejoinAttempted bool

	// pendingSend defers the join frame to the next connect event when the
	// link is being rebuilt.
	pendingSend bool
}

func NewManager(tr Transport) *Manager {
	return &Manager{tr: tr, state: StateDisconnected}
}

// Join starts a user-initiated join. The connection is always rebuilt first
// so the link carries current authentication; the join frame goes out on the
// resulting connect event.
func (m *Manager) Join(req JoinRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.joinInFlight || m.rejoinPending {
		return ErrJoinInFlight
	}
	if m.confirmed && m.roomID == req.RoomID && m.playerName == req.PlayerName && m.tr.IsConnected() {
		return ErrAlreadyJoined
	}

	m.roomID = req.RoomID
	m.playerName = req.PlayerName
	m.lastJoin = req
	m.confirmed = false
	m.joinInFlight = true
	m.pendingSend = true
	m.rejoinAttempted = false
	m.state = StateConnecting

	log.Info().Str("room_id", req.RoomID).Str("player", req.PlayerName).Msg("join_requested")
	m.tr.Rebuild()
	return nil
}

// HandleConnected runs on every transport connect. It flushes a deferred
// manual join, or fires the automatic rejoin when a previously confirmed
// membership exists and nothing else is in flight.
func (m *Manager) HandleConnected() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.connectionID = protocol.NewID()
	m.state = StateConnected
	m.rejoinAttempted = false

	if m.pendingSend && m.joinInFlight {
		m.sendJoinLocked()
		return
	}
	m.maybeRejoinLocked()
}

// CheckRejoin is the already-connected-at-startup probe. It is a no-op
// unless the transport is up and a rejoin is warranted.
func (m *Manager) CheckRejoin() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.tr.IsConnected() {
		return
	}
	m.maybeRejoinLocked()
}

func (m *Manager) maybeRejoinLocked() {
	if !m.confirmed || m.roomID == "" {
		return
	}
	if m.joinInFlight || m.rejoinPending || m.rejoinAttempted {
		return
	}
	m.rejoinPending = true
	m.rejoinAttempted = true
	m.joinInFlight = true
	log.Info().Str("room_id", m.roomID).Msg("rejoin_started")
	m.sendJoinLocked()
}

func (m *Manager) sendJoinLocked() {
	m.pendingSend = false
	m.state = StateJoining
	req := m.lastJoin
	frame := protocol.JoinRoom{
		Type:       "join_room",
		RoomID:     req.RoomID,
		PlayerName: req.PlayerName,
		MapType:    req.MapType,
		Balance:    req.Balance,
		Equipment:  req.Equipment,
		Password:   req.Password,
	}
	if err := m.tr.Send(frame); err != nil {
		// The frame will be retried via pendingSend on the next connect.
		log.Warn().Err(err).Msg("join_send_failed")
		m.pendingSend = true
		m.state = StateConnected
	}
}

// HandleRoomConfirmed runs on a room-state push. hasLocalPlayer reports
// whether the accepted snapshot contained this client's player.
func (m *Manager) HandleRoomConfirmed(hasLocalPlayer bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.joinInFlight = false
	m.rejoinPending = false
	m.pendingSend = false

	if !hasLocalPlayer {
		if m.roomID != "" {
			// A prior join never produced a local player; drop the stale
			// identity so the UI cannot show "connecting" forever.
			log.Warn().Str("room_id", m.roomID).Msg("room_identity_cleared")
			m.roomID = ""
			m.playerName = ""
			m.confirmed = false
		}
		m.state = StateConnected
		return
	}
	m.confirmed = true
	m.state = StateInRoom
	log.Info().Str("room_id", m.roomID).Str("connection_id", m.connectionID).Msg("room_joined")
}

// HandleDisconnected clears the in-flight guards so a future reconnect can
// rejoin, but keeps room identity. A manual join that is still waiting for
// its rebuilt connection survives the intermediate disconnect.
func (m *Manager) HandleDisconnected() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = StateDisconnected
	m.rejoinPending = false
	m.rejoinAttempted = false
	if !m.pendingSend {
		m.joinInFlight = false
	}
}

// HandleServerError classifies a server error code. Fatal room errors clear
// identity and bump the epoch; gameplay errors leave the session untouched.
// It reports whether identity was cleared.
func (m *Manager) HandleServerError(code string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !IsFatalRoomError(code) {
		return false
	}
	log.Warn().Str("code", code).Str("room_id", m.roomID).Msg("room_membership_lost")
	m.clearIdentityLocked()
	return true
}

// Reset tears the session down entirely (logout, hot reload).
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearIdentityLocked()
	if m.tr.IsConnected() {
		m.state = StateConnected
	} else {
		m.state = StateDisconnected
	}
}

func (m *Manager) clearIdentityLocked() {
	m.roomID = ""
	m.playerName = ""
	m.confirmed = false
	m.joinInFlight = false
	m.rejoinPending = false
	m.rejoinAttempted = false
	m.pendingSend = false
	m.epoch++
	m.state = StateConnected
}

// Epoch increments whenever identity is reset. Asynchronous profile-store
// completions captured under an older epoch must be discarded.
func (m *Manager) Epoch() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.epoch
}

func (m *Manager) InRoom() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.confirmed
}

type View struct {
	State           State  `json:"state"`
	ConnectionID    string `json:"connection_id,omitempty"`
	RoomID          string `json:"room_id,omitempty"`
	PlayerName      string `json:"player_name,omitempty"`
	JoinInFlight    bool   `json:"join_in_flight"`
	RejoinAttempted bool   `json:"rejoin_attempted"`
	Epoch           int64  `json:"epoch"`
}

func (m *Manager) Snapshot() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return View{
		State:           m.state,
		ConnectionID:    m.connectionID,
		RoomID:          m.roomID,
		PlayerName:      m.playerName,
		JoinInFlight:    m.joinInFlight,
		RejoinAttempted: m.rejoinAttempted,
		Epoch:           m.epoch,
	}
}
