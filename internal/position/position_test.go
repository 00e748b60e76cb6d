package position

import "testing"

func TestLocalBands(t *testing.T) {
	r := New(16, 64)

	cases := []struct {
		name     string
		pushX    float64
		want     Outcome
		wantX    float64
		suppress bool
	}{
		{name: "noise", pushX: 10, want: OutcomeIgnore, wantX: 0},
		{name: "correction", pushX: 30, want: OutcomeCorrect, wantX: 30, suppress: true},
		{name: "teleport", pushX: 100, want: OutcomeTeleport, wantX: 100},
	}
	for _, tc := range cases {
		dec := r.Local(0, 0, tc.pushX, 0)
		if dec.Outcome != tc.want {
			t.Fatalf("%s: outcome = %v, want %v", tc.name, dec.Outcome, tc.want)
		}
		if dec.X != tc.wantX {
			t.Fatalf("%s: x = %v, want %v", tc.name, dec.X, tc.wantX)
		}
		if dec.SuppressPrediction != tc.suppress {
			t.Fatalf("%s: suppress = %v, want %v", tc.name, dec.SuppressPrediction, tc.suppress)
		}
	}
}

func TestLocalUsesEuclideanDistance(t *testing.T) {
	r := New(16, 64)
	// 12/12 off on both axes is ~17 apart, just past the noise radius.
	dec := r.Local(0, 0, 12, 12)
	if dec.Outcome != OutcomeCorrect {
		t.Fatalf("outcome = %v, want correction", dec.Outcome)
	}
}

func TestRemoteAlwaysAdopts(t *testing.T) {
	r := New(16, 64)
	dec := r.Remote(3, 4)
	if dec.Outcome != OutcomeTeleport || dec.X != 3 || dec.Y != 4 {
		t.Fatalf("unexpected decision: %+v", dec)
	}
}
