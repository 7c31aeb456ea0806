package discriminator

import "math"

const (
	mfccAMean    = 0.95
	mfccADev     = 0.999
	mfccADevPeak = 1.0
	mfccMultiple = 2.3
	maxOffsetFrames = 2_000_000 // about 5.5 hours of 10msec frames; a generous backstop
)

// MfccTransitions scans a frame-major MFCC matrix (each row 13 floats)
// for onsets of spectral-velocity peaks (spec §4.D). Unlike
// PowerTransitions, every frame whose velocity crosses the adaptive
// threshold is emitted — there is no single-shot debounce — and the
// in-peak state only softens the variance decay rather than gating
// emission.
func MfccTransitions(mfcc [][13]float32, length int) []int {
	if length > len(mfcc) {
		length = len(mfcc)
	}
	if length > maxOffsetFrames {
		length = maxOffsetFrames
	}

	var transitions []int
	var meanVel, m2Vel float64

	for i := 3; i < length; i++ {
		last := mfcc[i-1]
		this := mfcc[i]
		var sumSq float64
		for x := 0; x < 13; x++ {
			d := float64(last[x] - this[x])
			sumSq += d * d
		}
		vel := math.Sqrt(sumSq)
		delta := vel - meanVel

		inPeak := false
		if i > 0 {
			threshold := math.Sqrt(m2Vel/float64(i)) * mfccMultiple
			if vel > meanVel+threshold {
				transitions = append(transitions, i)
				inPeak = true
			}
		}

		divisor := i + 1
		if divisor > 100 {
			divisor = 100
		}
		meanVel = (meanVel+delta/float64(divisor))*mfccAMean + (1-mfccAMean)*vel
		// The variance decays by mfccADev on ordinary frames and by
		// mfccADevPeak (1.0, i.e. not at all) on in-peak frames.
		devFactor := mfccADev
		if inPeak {
			devFactor = mfccADevPeak
		}
		m2Vel = (m2Vel + delta*(vel-meanVel)) * devFactor
	}
	return transitions
}
