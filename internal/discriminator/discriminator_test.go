package discriminator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func toneBurst(freqHz float64, amp float64, ms int) []int16 {
	n := ms * 16
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		t := float64(i) / 16000
		out[i] = int16(amp * 32767 * sinApprox(2*math.Pi*freqHz*t))
	}
	return out
}

func sinApprox(x float64) float64 { return math.Sin(x) }

func silence(ms int) []int16 {
	return make([]int16, ms*16)
}

func TestSilencesDetectsGapBetweenTones(t *testing.T) {
	audio := append(toneBurst(440, 0.8, 500), silence(500)...)
	audio = append(audio, toneBurst(440, 0.8, 500)...)

	got := Silences(audio, uint32(len(audio)/16))
	require.NotEmpty(t, got, "expected at least one detected silence interval")
	for _, iv := range got {
		require.GreaterOrEqual(t, iv.EndMs, iv.StartMs)
	}
}

func TestSilencesIdempotent(t *testing.T) {
	audio := append(toneBurst(220, 0.5, 300), silence(400)...)
	audio = append(audio, toneBurst(220, 0.5, 300)...)

	a := Silences(audio, uint32(len(audio)/16))
	b := Silences(audio, uint32(len(audio)/16))
	require.Equal(t, a, b, "SilenceDetector must be a pure function of its input")
}

func TestPowerTransitionsMonotonic(t *testing.T) {
	audio := append(toneBurst(300, 0.7, 400), toneBurst(900, 0.9, 400)...)
	transitions := PowerTransitions(audio, len(audio))
	for i := 1; i < len(transitions); i++ {
		require.Greater(t, transitions[i], transitions[i-1], "transitions must be strictly increasing")
	}
}

func TestMfccTransitionsMonotonicAndDeterministic(t *testing.T) {
	mfcc := make([][13]float32, 200)
	for i := range mfcc {
		for x := 0; x < 13; x++ {
			mfcc[i][x] = float32(i%20) * float32(x+1) * 0.01
		}
	}
	a := MfccTransitions(mfcc, len(mfcc))
	b := MfccTransitions(mfcc, len(mfcc))
	require.Equal(t, a, b)
	for i := 1; i < len(a); i++ {
		require.GreaterOrEqual(t, a[i], a[i-1])
	}
}

func TestMergeTransitionsTruncatesAtShorterList(t *testing.T) {
	// mfcc frames at 0, 10, 20, 30ms; power samples only cover the first 15ms.
	mfccFrames := []int{0, 1, 2, 3}
	powerSamples := []int{0, 160} // 0ms, 10ms

	merged := MergeTransitions(mfccFrames, powerSamples)
	// Known quirk (spec §4.E, §9): stops once the shorter list (power) is
	// drained, even though mfcc still has 10ms/20ms/30ms left.
	require.Len(t, merged, 3)
	require.Equal(t, []uint32{0, 0, 10}, merged)
}
