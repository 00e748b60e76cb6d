package session

import "errors"

var (
	ErrJoinInFlight  = errors.New("join_in_flight")
	ErrAlreadyJoined = errors.New("already_joined")
)

// fatalRoomCodes end the current room membership when received from the
// server. Gameplay validation codes are deliberately absent.
var fatalRoomCodes = map[string]bool{
	"bad_password": true,
	"kicked":       true,
	"banned":       true,
	"room_full":    true,
}

func IsFatalRoomError(code string) bool {
	return fatalRoomCodes[code]
}
