package reference

import (
	"math"
	"testing"
)

func TestPendulumJetMatchesLinearizedSmallAngle(t *testing.T) {
	// For small theta0 and omega0=0, theta(t) ~ theta0*cos(sqrt(g/l)*t),
	// so the quadratic Taylor coefficient should be ~ -0.5*(g/l)*theta0.
	g, l := 9.8, 1.0
	theta0 := 0.01
	theta, _ := PendulumJet(theta0, 0, g, l, 4)
	want := -0.5 * (g / l) * theta0
	if math.Abs(theta[2]-want) > 1e-6 {
		t.Errorf("theta[2] = %v, want ~%v", theta[2], want)
	}
}

func TestPendulumJetConservesEnergyApproximately(t *testing.T) {
	g, l := 9.8, 1.0
	theta, omega := PendulumJet(0.3, 0, g, l, 6)
	// Evaluate the truncated series a short time later and check the
	// energy is approximately conserved (a sanity check on the
	// recurrence, not an exactness claim for a truncated series).
	dt := 0.01
	thetaT := evalAt(theta, dt)
	omegaT := evalAt(omega, dt)
	e0 := 0.5*omega[0]*omega[0] - (g/l)*math.Cos(theta[0])
	e1 := 0.5*omegaT*omegaT - (g/l)*math.Cos(thetaT)
	if math.Abs(e0-e1) > 1e-6 {
		t.Errorf("energy drift too large: e0=%v e1=%v", e0, e1)
	}
}

func TestCollisionJetsGroundEventIsHeight(t *testing.T) {
	c := CollisionState{Y1: 10, VY1: 0, G: 9.8, R: 0.1}
	_, ground1, _ := c.Jets(4)
	if ground1[0] != 10 {
		t.Errorf("ground1[0] = %v, want 10", ground1[0])
	}
	if ground1[2] != -9.8/2 {
		t.Errorf("ground1[2] = %v, want %v", ground1[2], -9.8/2)
	}
}

func TestCollisionJetsDistanceAtCollisionRadius(t *testing.T) {
	// Two bodies starting exactly R apart and stationary: the collision
	// polynomial's constant term must be exactly zero.
	c := CollisionState{X1: 0, Y1: 0, X2: 1, Y2: 0, R: 1, G: 9.8}
	collision, _, _ := c.Jets(4)
	if math.Abs(collision[0]) > 1e-12 {
		t.Errorf("collision[0] = %v, want 0", collision[0])
	}
}

func TestConvolveTruncatesToDegree(t *testing.T) {
	a := []float64{1, 1} // 1 + x
	got := convolve(a, a, 1)
	// (1+x)^2 = 1 + 2x + x^2, truncated to degree 1: [1, 2]
	want := []float64{1, 2}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("coefficient %d: got %v want %v", i, got[i], want[i])
		}
	}
}

func evalAt(a []float64, x float64) float64 {
	n := len(a) - 1
	ret := a[n]
	for i := 1; i <= n; i++ {
		ret = a[n-i] + ret*x
	}
	return ret
}
