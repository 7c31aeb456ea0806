package discriminator

import "qalign/internal/rates"

// MergeTransitions walks the MFCC-frame transition list and the
// PCM-sample transition list in parallel, chronologically interleaving
// them into one msec-indexed list (spec §4.E).
//
// Known quirk, preserved deliberately: the source terminates as soon as
// either list is exhausted, silently dropping the tail of whichever list
// is longer, rather than draining both to completion. See DESIGN.md for
// the open-question discussion; spec.md §4.E and §9 both call this out
// explicitly as behavior to preserve rather than "fix".
func MergeTransitions(mfccFrames, powerSamples []int) []uint32 {
	var merged []uint32
	i, j := 0, 0
	for i < len(mfccFrames) && j < len(powerSamples) {
		mfccMs := rates.FrameToMsec(uint32(mfccFrames[i]))
		powerMs := rates.SamplesToMsec(uint32(powerSamples[j]))
		if mfccMs < powerMs {
			merged = append(merged, mfccMs)
			i++
		} else {
			merged = append(merged, powerMs)
			j++
		}
	}
	return merged
}
