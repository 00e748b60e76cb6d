package main

import (
	"plaza-client/internal/effects"

	"github.com/rs/zerolog/log"
)

// logDispatcher renders presentation effects as log lines. A real frontend
// would swap this for its animation and audio layer.
type logDispatcher struct{}

func newLogDispatcher() logDispatcher { return logDispatcher{} }

func (logDispatcher) Dispatch(effs []effects.Effect) {
	for _, eff := range effs {
		switch eff.Kind {
		case effects.KindNotice:
			ev := log.Info()
			if eff.Failure {
				ev = log.Warn()
			}
			ev.Str("text", eff.Text).Msg("notice")
		case effects.KindFloatingText:
			log.Info().Str("player_id", eff.PlayerID).Str("text", eff.Text).Msg("floating_text")
		case effects.KindSpeechBubble:
			log.Debug().Str("player_id", eff.PlayerID).Str("text", eff.Text).Msg("speech_bubble")
		case effects.KindSoundCue:
			log.Debug().Str("sound", eff.Sound).Msg("sound_cue")
		case effects.KindParticleBurst:
			log.Debug().Str("player_id", eff.PlayerID).Msg("particle_burst")
		case effects.KindSuppressPrediction:
			log.Debug().Str("player_id", eff.PlayerID).Msg("prediction_suppressed")
		case effects.KindDeferredBalance, effects.KindProfileWrite:
			// handled by the client core
		}
	}
}
