package telemetry

import "math"

// sensorEnvelope is the normal operating band for one sensor together
// with the deviation scale used by the defect model. Values inside
// [lo, hi] contribute nothing; the contribution grows with the distance
// outside the band, normalized by tau.
type sensorEnvelope struct {
	lo, hi float64
	tau    float64
}

// Envelopes sit well outside the alerting thresholds used downstream
// (vibration > 0.4, speed outside [28, 100]): wide enough that the
// clipped tails of the normal-mode distributions land inside them in
// well over 95% of samples at any seed, yet still inside the bands
// anomaly mode generates into (vibration >= 0.46, speed <= 18 or
// >= 110).
var defectEnvelopes = [4]sensorEnvelope{
	{lo: 0, hi: 0.44, tau: 0.05}, // vibration
	{lo: 15.5, hi: 44.5, tau: 5}, // temperature
	{lo: 30, hi: 70, tau: 10},    // humidity
	{lo: 22, hi: 104, tau: 8},    // speed
}

// DefectProbability maps a reading to the modeled likelihood that the
// unit produced in this cycle is defective. Deterministic in the
// reading: the per-sensor envelope deviations are combined through a
// saturating exponential, so a single strongly anomalous sensor is
// enough to saturate the result while in-band readings stay near zero.
// The returned value is always in [0, 1].
func DefectProbability(r Reading) float64 {
	values := [4]float64{r.Vibration, r.Temperature, r.Humidity, r.Speed}

	var total float64
	for i, env := range defectEnvelopes {
		total += deviation(values[i], env) / env.tau
	}
	return 1 - math.Exp(-total)
}

// deviation is the distance of v outside the envelope band, zero inside.
func deviation(v float64, env sensorEnvelope) float64 {
	switch {
	case v < env.lo:
		return env.lo - v
	case v > env.hi:
		return v - env.hi
	default:
		return 0
	}
}
