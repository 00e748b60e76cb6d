package effects

import "time"

// Kind identifies a presentation side effect derived during reconciliation.
// The core emits these fire-and-forget; a dispatcher owned by the embedding
// application decides what, if anything, to do with them.
type Kind string

const (
	KindFloatingText    Kind = "floating_text"
	KindSpeechBubble    Kind = "speech_bubble"
	KindSoundCue        Kind = "sound_cue"
	KindParticleBurst   Kind = "particle_burst"
	KindNotice          Kind = "notice"
	KindDeferredBalance Kind = "deferred_balance"
	KindProfileWrite    Kind = "profile_write"
	// KindSuppressPrediction tells the input collaborator to hold further
	// predicted moves until a server correction has landed.
	KindSuppressPrediction Kind = "suppress_prediction"
)

type Effect struct {
	Kind     Kind
	PlayerID string
	TableID  string
	Text     string
	Sound    string
	Amount   int64
	Balance  int64
	Delay    time.Duration
	// Failure marks a notice as user-visible error feedback.
	Failure bool
}

func FloatingText(playerID, text string) Effect {
	return Effect{Kind: KindFloatingText, PlayerID: playerID, Text: text}
}

func SpeechBubble(playerID, text string) Effect {
	return Effect{Kind: KindSpeechBubble, PlayerID: playerID, Text: text}
}

func SoundCue(name string) Effect {
	return Effect{Kind: KindSoundCue, Sound: name}
}

func ParticleBurst(playerID string) Effect {
	return Effect{Kind: KindParticleBurst, PlayerID: playerID}
}

func Notice(text string, failure bool) Effect {
	return Effect{Kind: KindNotice, Text: text, Failure: failure}
}

func DeferredBalance(playerID string, balance int64, delay time.Duration) Effect {
	return Effect{Kind: KindDeferredBalance, PlayerID: playerID, Balance: balance, Delay: delay}
}

// ProfileWrite asks the dispatcher to persist a settled balance in the
// background without touching the visible local value.
func ProfileWrite(playerID string, balance int64) Effect {
	return Effect{Kind: KindProfileWrite, PlayerID: playerID, Balance: balance}
}

func SuppressPrediction(playerID string) Effect {
	return Effect{Kind: KindSuppressPrediction, PlayerID: playerID}
}

// Dispatcher applies effects outside the reconciliation core. Implementations
// must not block; the core never awaits completion.
type Dispatcher interface {
	Dispatch([]Effect)
}

// Nop discards all effects.
type Nop struct{}

func (Nop) Dispatch([]Effect) {}
