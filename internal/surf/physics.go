package surf

import "math"

const gravity = 9.81

// WaveNumber solves the linear dispersion relation w^2 = g k tanh(k h) for k
// by Newton iteration. A non-positive depth is treated as deep water.
func WaveNumber(period, depth float64) float64 {
	omega := 2 * math.Pi / period
	k0 := omega * omega / gravity
	if depth <= 0 {
		return k0
	}

	// Eckart's approximation as the starting point.
	k := k0 / math.Sqrt(math.Tanh(k0*depth))
	for i := 0; i < 50; i++ {
		th := math.Tanh(k * depth)
		f := gravity*k*th - omega*omega
		df := gravity*th + gravity*k*depth*(1-th*th)
		step := f / df
		k -= step
		if math.Abs(step) < 1e-12*k {
			break
		}
	}
	return k
}

func phaseSpeed(period, depth float64) float64 {
	return 2 * math.Pi / period / WaveNumber(period, depth)
}

// RefractionCoefficient is Kr = sqrt(cos a0 / cos a), with the local angle a
// from Snell's law. incidentAngle is the deep-water angle in degrees.
func RefractionCoefficient(period, incidentAngle, depth float64) float64 {
	if depth <= 0 {
		return 1
	}
	a0 := incidentAngle * math.Pi / 180
	c0 := gravity * period / (2 * math.Pi)
	a := math.Asin(math.Min(1, phaseSpeed(period, depth)/c0*math.Sin(a0)))
	cosA := math.Cos(a)
	if cosA == 0 {
		return 0
	}
	return math.Sqrt(math.Max(0, math.Cos(a0)) / cosA)
}

// BreakingCharacteristics estimates the breaking height and breaker index of
// a deep-water wave reaching a beach. The refracted deep-water height feeds
// the Komar-Gaughan breaker height; the index follows Weggel for the slope.
// Heights and depth are in metres.
func BreakingCharacteristics(period, incidentAngle, height, slope, depth float64) (float64, float64) {
	if period <= 0 || height <= 0 {
		return 0, 0
	}
	l0 := gravity * period * period / (2 * math.Pi)
	refracted := RefractionCoefficient(period, incidentAngle, depth) * height
	if refracted <= 0 {
		return 0, 0
	}

	hb := 0.56 * math.Pow(refracted/l0, -0.2) * refracted

	a := 43.8 * (1 - math.Exp(-19*slope))
	b := 1.56 / (1 + math.Exp(-19.5*slope))
	index := b - a*hb/(gravity*period*period)
	return hb, index
}
