// Package reference provides two small, exactly-integrable dynamical
// systems — a simple pendulum and a two-body planar collision problem —
// together with a minimal Stepper that drives internal/detect against
// their Taylor-coefficient jets. It exists to exercise the detection
// pipeline end to end; it is not a production integrator (no adaptive
// step-size control, no high-order variable-step error estimation).
package reference

import "math"

// PendulumJet computes the Taylor coefficients (about t=0) of theta(t)
// and omega(t) for the undamped pendulum
//
//	theta' = omega
//	omega' = -(g/l) * sin(theta)
//
// up to the given order, via the standard automatic-differentiation
// recurrence: the sine and cosine of theta(t) are carried as auxiliary
// Taylor series and updated alongside theta/omega one order at a time.
func PendulumJet(theta0, omega0, g, l float64, order int) (theta, omega []float64) {
	theta = make([]float64, order+1)
	omega = make([]float64, order+1)
	s := make([]float64, order+1)
	c := make([]float64, order+1)

	theta[0] = theta0
	omega[0] = omega0
	s[0] = math.Sin(theta0)
	c[0] = math.Cos(theta0)

	ratio := g / l
	for k := 0; k < order; k++ {
		theta[k+1] = omega[k] / float64(k+1)
		omega[k+1] = -ratio * s[k] / float64(k+1)

		var sSum, cSum float64
		for j := 1; j <= k+1; j++ {
			sSum += float64(j) * theta[j] * c[k+1-j]
			cSum += float64(j) * theta[j] * s[k+1-j]
		}
		s[k+1] = sSum / float64(k+1)
		c[k+1] = -cSum / float64(k+1)
	}
	return theta, omega
}

// CollisionState is a pair of point masses falling under uniform
// gravity G in the y direction and moving at constant velocity in x,
// with collision treated as their centers coming within radius R of
// each other.
type CollisionState struct {
	X1, Y1, VX1, VY1 float64
	X2, Y2, VX2, VY2 float64
	G, R             float64
}

// positionJets returns the exact (finite) Taylor coefficients of x1, y1,
// x2, y2 as functions of t, zero-padded to length order+1.
func (c CollisionState) positionJets(order int) (x1, y1, x2, y2 []float64) {
	x1 = make([]float64, order+1)
	y1 = make([]float64, order+1)
	x2 = make([]float64, order+1)
	y2 = make([]float64, order+1)

	x1[0], x2[0] = c.X1, c.X2
	y1[0], y2[0] = c.Y1, c.Y2
	if order >= 1 {
		x1[1], x2[1] = c.VX1, c.VX2
		y1[1], y2[1] = c.VY1, c.VY2
	}
	if order >= 2 {
		y1[2] = -c.G / 2
		y2[2] = -c.G / 2
	}
	return x1, y1, x2, y2
}

// Jets returns the Taylor coefficients, up to order, of three event
// functions: the squared inter-center distance minus the squared
// collision radius (a terminal "collision" event, crossing from
// positive to zero/negative), and each body's height above the ground
// plane y=0 (non-terminal "bounce" events). order must be at least 4
// for the collision event's degree-4 polynomial to be represented
// exactly; lower orders truncate it.
func (c CollisionState) Jets(order int) (collision, ground1, ground2 []float64) {
	x1, y1, x2, y2 := c.positionJets(order)

	dx := subtract(x1, x2, order)
	dy := subtract(y1, y2, order)

	distSq := add(convolve(dx, dx, order), convolve(dy, dy, order), order)
	collision = make([]float64, order+1)
	copy(collision, distSq)
	collision[0] -= c.R * c.R

	return collision, y1, y2
}

func subtract(a, b []float64, n int) []float64 {
	out := make([]float64, n+1)
	for i := 0; i <= n; i++ {
		out[i] = a[i] - b[i]
	}
	return out
}

func add(a, b []float64, n int) []float64 {
	out := make([]float64, n+1)
	for i := 0; i <= n; i++ {
		out[i] = a[i] + b[i]
	}
	return out
}

// convolve computes the coefficients of a(t)*b(t), truncated to degree
// n (coefficients beyond n are discarded rather than overflowing the
// caller's fixed-width buffer).
func convolve(a, b []float64, n int) []float64 {
	out := make([]float64, n+1)
	for i := 0; i < len(a) && i <= n; i++ {
		if a[i] == 0 {
			continue
		}
		for j := 0; j < len(b) && i+j <= n; j++ {
			out[i+j] += a[i] * b[j]
		}
	}
	return out
}
