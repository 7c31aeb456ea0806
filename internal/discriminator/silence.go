// Package discriminator finds silent periods and phonetic transition
// points directly from the signal: an RMS-power hysteresis detector for
// silence, and online-variance peak detectors over power and MFCC
// velocity for transitions. None of this looks at recognized words —
// it runs purely off PCM and MFCC, in parallel with the word aligner.
package discriminator

import (
	"math"

	"qalign/internal/rates"
)

// Interval is a half-open [StartMs, EndMs) span.
type Interval struct {
	StartMs uint32
	EndMs   uint32
}

// powerWindowSamples is 50msec at 16kHz, matching the non-overlapping
// RMS window the whole discriminator package scans with.
const powerWindowSamples = 800

const (
	silenceEnterDbfs = -100
	silenceExitDbfs  = -75
)

// windowPowerDbfs returns 20*log10(sum(x^2)/400) for the window
// audio[start:start+powerWindowSamples], x normalized to [-1, 1]; the
// divisor is half the window length.
// Returns (power, sumSq).
func windowPowerDbfs(audio []int16, start int) (float64, float64) {
	var sum float64
	for i := start; i < start+powerWindowSamples; i++ {
		x := float64(audio[i]) / 32768
		sum += x * x
	}
	power := 20 * math.Log10(sum/(powerWindowSamples/2))
	return power, sum
}

// Silences runs the RMS-power Schmitt trigger of spec §4.B over a PCM
// clip and returns the silence intervals it crossed fully (entered and
// exited). A silence straddling the start or end of the clip that never
// exits the hysteresis band is not reported.
func Silences(audio []int16, lengthMs uint32) []Interval {
	var results []Interval
	inSilence := false
	var silenceStartMs uint32

	limit := int(rates.MsecToSamples(lengthMs))
	for i := powerWindowSamples; i < limit; i += powerWindowSamples {
		power, _ := windowPowerDbfs(audio, i-powerWindowSamples)
		rightEdgeMs := rates.SamplesToMsec(uint32(i))
		switch {
		case !inSilence && power < silenceEnterDbfs:
			inSilence = true
			silenceStartMs = rightEdgeMs
		case inSilence && power > silenceExitDbfs:
			inSilence = false
			results = append(results, Interval{StartMs: silenceStartMs, EndMs: rightEdgeMs})
		}
	}
	return results
}
