// Package telemetry generates synthetic sensor readings and derives
// defect probabilities from them.
package telemetry

import (
	"math"
	"math/rand"
)

// Mode is the operating profile an asset is currently running under.
type Mode int32

const (
	ModeNormal Mode = iota
	ModeAnomaly
)

func (m Mode) String() string {
	if m == ModeAnomaly {
		return "ANOMALY"
	}
	return "NORMAL"
}

// Reading is one sample of the four simulated sensors.
type Reading struct {
	Vibration   float64
	Temperature float64
	Humidity    float64
	Speed       float64
}

// Normal-mode sampling parameters: clipped normal distributions.
const (
	vibrationMean, vibrationStdev, vibrationMin, vibrationMax = 0.23, 0.08, 0, 0.52
	tempMean, tempStdev, tempMin, tempMax                     = 28.8, 5.5, 15.5, 44.5
	humidityMean, humidityStdev, humidityMin, humidityMax     = 50, 12, 30, 70
	speedMean, speedStdev, speedMin, speedMax                 = 65, 18, 7.5, 130
)

// Anomaly-mode parameters. Each is tuned so that a single anomalous
// sensor already drives the defect probability above 0.5.
const (
	anomalyVibrationScaleMin = 2.0
	anomalyVibrationScaleMax = 3.0
	anomalyTempShiftMin      = 20.0
	anomalyTempShiftMax      = 30.0
	anomalySpeedLowMax       = 18.0
	anomalySpeedHighMin      = 110.0
	anomalySpeedHighMax      = 130.0
)

// Generator produces readings for one asset. Not safe for concurrent
// use; each worker owns its own Generator.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a generator seeded for one asset. Distinct seeds
// per asset keep the streams independent and runs reproducible.
func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Generate samples one reading under the given mode.
func (g *Generator) Generate(mode Mode) Reading {
	if mode == ModeAnomaly {
		return g.anomalyReading()
	}
	return Reading{
		Vibration:   g.clippedNormal(vibrationMean, vibrationStdev, vibrationMin, vibrationMax),
		Temperature: g.clippedNormal(tempMean, tempStdev, tempMin, tempMax),
		Humidity:    g.clippedNormal(humidityMean, humidityStdev, humidityMin, humidityMax),
		Speed:       g.clippedNormal(speedMean, speedStdev, speedMin, speedMax),
	}
}

// anomalyReading pushes vibration, temperature and speed outside their
// normal operating envelopes. Humidity is left on its normal profile.
// Bases are sampled from the upper half of the normal distribution so
// the scaled/shifted value is guaranteed to land out of band.
func (g *Generator) anomalyReading() Reading {
	vibBase := math.Min(vibrationMean+math.Abs(g.rng.NormFloat64())*vibrationStdev, vibrationMax)
	vibration := vibBase * g.uniform(anomalyVibrationScaleMin, anomalyVibrationScaleMax)

	tempBase := math.Min(tempMean+math.Abs(g.rng.NormFloat64())*tempStdev, tempMax)
	temperature := tempBase + g.uniform(anomalyTempShiftMin, anomalyTempShiftMax)

	var speed float64
	if g.rng.Intn(2) == 0 {
		speed = g.uniform(0, anomalySpeedLowMax)
	} else {
		speed = g.uniform(anomalySpeedHighMin, anomalySpeedHighMax)
	}

	return Reading{
		Vibration:   vibration,
		Temperature: temperature,
		Humidity:    g.clippedNormal(humidityMean, humidityStdev, humidityMin, humidityMax),
		Speed:       speed,
	}
}

func (g *Generator) clippedNormal(mean, stdev, lo, hi float64) float64 {
	v := mean + g.rng.NormFloat64()*stdev
	return math.Min(math.Max(v, lo), hi)
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}
