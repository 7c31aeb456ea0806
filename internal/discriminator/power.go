package discriminator

import "math"

const (
	velocityCap  = 10
	powerAMean   = 0.99
	powerADev    = 0.97
	powerSkipMs  = 30 // extra settle time beyond the first window
	powerSilence = -75
)

// PowerTransitions scans PCM for onsets of power-velocity peaks (spec
// §4.C): a 50msec non-overlapping window, an online mean/variance of
// the window-to-window power delta with a blended incremental/decayed
// update, and a Schmitt-style in-peak latch so a sustained peak emits
// only its leading edge. length is the audio length in samples.
func PowerTransitions(audio []int16, length int) []int {
	var transitions []int

	var lastPower float64
	var meanVel, m2Vel float64
	nSamples := 0
	inPeak := false

	if length > len(audio) {
		length = len(audio)
	}

	start := powerWindowSamples + 16*powerSkipMs
	for i := start; i < length; i += powerWindowSamples {
		power, sum := windowPowerDbfs(audio, i-powerWindowSamples)
		if sum == 0 {
			continue
		}
		nSamples++
		if power < powerSilence {
			continue
		}
		if lastPower == 0 {
			lastPower = power
		}
		vel := math.Min(velocityCap, math.Abs(power-lastPower))
		lastPower = power

		delta := vel - meanVel
		meanVel = (meanVel+delta/float64(nSamples))*powerAMean + (1-powerAMean)*vel
		m2Vel = (m2Vel + delta*(vel-meanVel)) * powerADev

		if nSamples > 1 {
			divisor := nSamples - 1
			if divisor > 100 {
				divisor = 100
			}
			threshold := math.Sqrt(m2Vel/float64(divisor)) * 1.6
			if vel > meanVel+threshold {
				if !inPeak {
					transitions = append(transitions, i-powerWindowSamples)
				}
				inPeak = true
			} else {
				inPeak = false
			}
		}
	}
	return transitions
}
