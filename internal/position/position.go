// Package position classifies authoritative position pushes against the
// locally predicted position of the player.
package position

import "math"

type Outcome int

const (
	// OutcomeIgnore: the divergence is below the noise radius; keep the
	// predicted position.
	OutcomeIgnore Outcome = iota
	// OutcomeCorrect: a server correction. Apply it and tell the prediction
	// side to hold fire so it does not immediately re-send a conflicting move.
	OutcomeCorrect
	// OutcomeTeleport: a forced relocation (table seat, map warp). Apply as-is.
	OutcomeTeleport
)

// Reconciler holds the two radii separating noise, corrections and teleports.
type Reconciler struct {
	NoiseRadius    float64
	TeleportRadius float64
}

func New(noise, teleport float64) Reconciler {
	return Reconciler{NoiseRadius: noise, TeleportRadius: teleport}
}

type Decision struct {
	Outcome Outcome
	X, Y    float64
	// SuppressPrediction is set for corrections; the input collaborator must
	// not re-send a move until the correction lands.
	SuppressPrediction bool
}

// Local resolves an authoritative push against the predicted local position.
func (r Reconciler) Local(predX, predY, pushX, pushY float64) Decision {
	d := math.Hypot(pushX-predX, pushY-predY)
	switch {
	case d <= r.NoiseRadius:
		return Decision{Outcome: OutcomeIgnore, X: predX, Y: predY}
	case d <= r.TeleportRadius:
		return Decision{Outcome: OutcomeCorrect, X: pushX, Y: pushY, SuppressPrediction: true}
	default:
		return Decision{Outcome: OutcomeTeleport, X: pushX, Y: pushY}
	}
}

// Remote positions are adopted unconditionally; no prediction exists for
// other players.
func (r Reconciler) Remote(pushX, pushY float64) Decision {
	return Decision{Outcome: OutcomeTeleport, X: pushX, Y: pushY}
}
