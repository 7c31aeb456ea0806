// Package refine implements the SpanRefiner (spec.md component H): a
// fixed sequence of five mutation passes that patch up the raw span
// list BuildSpans produces, using the silence intervals and transition
// points the discriminator package found independently of the word
// aligner. Every pass is diagnostic-only on a violated invariant — it
// logs and keeps going rather than aborting the job, matching the
// reference implementation's "sanity check, not a hard assertion"
// posture.
package refine

import (
	"log"

	"qalign/internal/discriminator"
	"qalign/internal/segment"
)

const (
	// MinWordLenMs is the shortest plausible duration for one reference
	// word; a span narrower than MinWordLenMs times its word count and
	// never touched by decoder audio is discarded as infeasible.
	MinWordLenMs = 100
	// MaxBacktrackMs bounds how far a liaison boundary may move earlier
	// than the decoder originally reported it.
	MaxBacktrackMs = 300
	// InterwordDelayMs is the gap left between two spans after a
	// boundary has been snapped to a detected transition or silence, so
	// consecutive spans never touch.
	InterwordDelayMs = 10
)

// Params configures the liaison-resolution pass (pass 4).
type Params struct {
	// ForwardDerate weights the cost of moving a liaison boundary away
	// from the decoder's reported start time. The reference
	// implementation hardwires this to 1 (no effect); spec.md §9
	// records it as an open question resolved by exposing it here
	// instead of burying it as an unexported constant.
	ForwardDerate float64
}

// DefaultParams matches the reference implementation's fixed behavior.
func DefaultParams() Params {
	return Params{ForwardDerate: 1.0}
}

// Refine runs the five passes in order and returns the patched span
// list. spans must already be sorted by IndexStart/StartMs, as
// BuildSpans produces them.
func Refine(spans []segment.SegmentedWordSpan, silences []discriminator.Interval, transitionsMs []uint32, liaisePoints []segment.LiaisePoint, audioLenMs uint32, params Params) []segment.SegmentedWordSpan {
	spans = append([]segment.SegmentedWordSpan(nil), spans...)

	patchFinalEnd(spans, audioLenMs)
	spans = dropInfeasibleSpans(spans)
	shiftStartsOutOfSilence(spans, silences)
	resolveLiaisons(spans, transitionsMs, liaisePoints, params)
	fixWordEndings(spans, silences)

	return spans
}

// pass 1: a span whose EndMs was never set (the decoder's last word ran
// off the end of the clip) is patched to the clip length.
func patchFinalEnd(spans []segment.SegmentedWordSpan, audioLenMs uint32) {
	if len(spans) == 0 {
		return
	}
	last := &spans[len(spans)-1]
	if last.EndMs == 0 {
		last.EndMs = audioLenMs
	}
}

// pass 2: drop spans that never got any decoder audio and are too
// short, word-count-for-word-count, to plausibly be real.
func dropInfeasibleSpans(spans []segment.SegmentedWordSpan) []segment.SegmentedWordSpan {
	out := spans[:0]
	for _, s := range spans {
		if s.Flags&segment.MatchedInput == 0 {
			wordCount := uint32(0)
			if s.HasMatch() {
				wordCount = s.IndexEnd - s.IndexStart
			}
			minLen := wordCount * MinWordLenMs
			if s.EndMs-s.StartMs < minLen {
				continue
			}
		}
		out = append(out, s)
	}
	return out
}

// pass 3: a span whose start falls strictly inside a detected silence
// interval is pulled forward to the silence's end — the decoder heard
// nothing there, so the word cannot have actually started mid-silence.
func shiftStartsOutOfSilence(spans []segment.SegmentedWordSpan, silences []discriminator.Interval) {
	for i := range spans {
		s := &spans[i]
		for _, sil := range silences {
			if s.StartMs > sil.StartMs && s.StartMs < sil.EndMs {
				s.StartMs = sil.EndMs
				break
			}
		}
	}
}

// pass 4: for each liaison point, look for the span boundary that sits
// exactly at that reference index and try to snap it to the nearest
// detected transition, within MaxBacktrackMs of the span's original
// start. Every liaise point is processed regardless of its flags —
// the reference implementation's liaison-resolution loop applies to
// all of them unconditionally; LiaisePoint.Flags only carries
// Backtrack as informational metadata about how the point was
// derived, not a gate on whether to resolve it.
func resolveLiaisons(spans []segment.SegmentedWordSpan, transitionsMs []uint32, liaisePoints []segment.LiaisePoint, params Params) {
	for _, lp := range liaisePoints {
		idx := findSpanStartingAt(spans, uint32(lp.Index))
		if idx < 0 {
			continue
		}
		span := &spans[idx]
		origStart := span.StartMs

		bestT, found := bestTransition(transitionsMs, origStart, span.EndMs, params.ForwardDerate)
		if !found {
			continue
		}

		if idx > 0 {
			spans[idx-1].EndMs = bestT
			span.StartMs = bestT + InterwordDelayMs
		} else {
			span.StartMs = bestT
		}
	}
}

func findSpanStartingAt(spans []segment.SegmentedWordSpan, refIdx uint32) int {
	for i, s := range spans {
		if s.HasMatch() && s.IndexStart == refIdx {
			return i
		}
	}
	return -1
}

// bestTransition scans transitionsMs (assumed chronologically sorted)
// for the candidate minimizing |t - origStart| * derate, subject to
// t < limitMs and origStart - t < MaxBacktrackMs. It stops at the first
// candidate that is no better than the best found so far, since cost
// rises monotonically away from the true boundary.
func bestTransition(transitionsMs []uint32, origStart, limitMs uint32, derate float64) (uint32, bool) {
	var best uint32
	bestCost := -1.0
	found := false

	for _, t := range transitionsMs {
		if t >= limitMs {
			continue
		}
		var backtrack int64
		if int64(origStart)-int64(t) > 0 {
			backtrack = int64(origStart) - int64(t)
		} else {
			backtrack = int64(t) - int64(origStart)
		}
		if int64(origStart)-int64(t) >= MaxBacktrackMs {
			continue
		}
		cost := float64(backtrack) * derate
		if !found {
			best, bestCost, found = t, cost, true
			continue
		}
		if cost >= bestCost {
			break
		}
		best, bestCost = t, cost
	}
	return best, found
}

// pass 5: walk the spans with a silence cursor and snap each span's end
// either to the start of an overlapping trailing silence, or to just
// before the next span's start. The final span snaps to any remaining
// trailing silence.
func fixWordEndings(spans []segment.SegmentedWordSpan, silences []discriminator.Interval) {
	silIdx := 0
	for i := range spans {
		s := &spans[i]
		for silIdx < len(silences) && silences[silIdx].EndMs <= s.EndMs {
			silIdx++
		}

		if i == len(spans)-1 {
			if silIdx < len(silences) && silences[silIdx].StartMs > s.StartMs {
				s.EndMs = silences[silIdx].StartMs
			}
			continue
		}

		next := spans[i+1]
		if silIdx < len(silences) && silences[silIdx].StartMs < next.StartMs {
			s.EndMs = silences[silIdx].StartMs
		} else if next.StartMs > InterwordDelayMs {
			s.EndMs = next.StartMs - InterwordDelayMs
		} else {
			s.EndMs = next.StartMs
		}

		if s.EndMs < s.StartMs {
			log.Printf("refine: span %d end %dms before start %dms after fixWordEndings", i, s.EndMs, s.StartMs)
		}
		if s.EndMs > next.StartMs {
			log.Printf("refine: span %d end %dms overlaps next span start %dms", i, s.EndMs, next.StartMs)
		}
	}
}
