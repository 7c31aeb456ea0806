// Package align implements the word-level sequence alignment and span
// construction at the heart of the aligner (spec.md components F and
// G: WordAligner and SpanBuilder). Both live in one package because the
// reference implementation keeps them in a single translation unit —
// SpanBuilder is a direct consumer of WordAligner's backtrace and
// nothing else ever sits between them.
package align

import "qalign/internal/segment"

const (
	mismatchPenalty = 1
	gapPenalty      = 1
)

// AlignedPair is one step of the backtrace: a reference word index, a
// recognized word, or both. Exactly one of the two may be nil but never
// both.
type AlignedPair struct {
	Input  *segment.RecognizedWord
	RefIdx *int
}

// Align runs global (Needleman-Wunsch style) alignment between the
// known reference words and the decoder's recognized word stream, and
// returns the aligned pair sequence together with the edit-operation
// counters spec.md §3 attaches to a SegmentationResult.
//
// Tie-break order when two or more recurrence branches cost the same:
// prefer consuming both sequences ("Both"), then consuming only the
// reference ("I"), then consuming only the input ("J"). This is the
// order the original match.cc actually codes — its comments describe a
// looser "J, then I, then Both" preference, but the load-bearing
// behavior picks Both first whenever it is not strictly worse.
//
// The backtrace is asymmetric at the edges: once the reference index
// is exhausted, any recognized words still left over are dropped
// silently rather than emitted as spurious deletion pairs. Once the
// recognized-word index is exhausted, remaining reference indices are
// still drained as insertion pairs.
func Align(refWords []string, recognized []segment.RecognizedWord) ([]AlignedPair, segment.SegmentationStats) {
	r := len(refWords)
	n := len(recognized)

	cost := make([][]int, r+1)
	for i := range cost {
		cost[i] = make([]int, n+1)
	}
	for i := 1; i <= r; i++ {
		cost[i][0] = i * gapPenalty
	}
	for j := 1; j <= n; j++ {
		cost[0][j] = j * gapPenalty
	}
	for i := 1; i <= r; i++ {
		for j := 1; j <= n; j++ {
			mismatch := 0
			if refWords[i-1] != recognized[j-1].Text {
				mismatch = mismatchPenalty
			}
			costBoth := cost[i-1][j-1] + mismatch
			costI := cost[i-1][j] + gapPenalty
			costJ := cost[i][j-1] + gapPenalty
			best := costBoth
			if costI < best {
				best = costI
			}
			if costJ < best {
				best = costJ
			}
			cost[i][j] = best
		}
	}

	const inf = 1 << 30
	var pairs []AlignedPair
	stats := segment.SegmentationStats{}

	i, j := r, n
	for i > 0 || j > 0 {
		if i == 0 {
			// Reference is exhausted; any leftover recognized words are
			// silently dropped, not recorded as spurious deletions.
			break
		}
		costBoth, costI, costJ := inf, inf, inf
		exact := false
		if i > 0 && j > 0 {
			exact = refWords[i-1] == recognized[j-1].Text
			mismatch := 0
			if !exact {
				mismatch = mismatchPenalty
			}
			costBoth = cost[i-1][j-1] + mismatch
		}
		if i > 0 {
			costI = cost[i-1][j] + gapPenalty
		}
		if j > 0 {
			costJ = cost[i][j-1] + gapPenalty
		}

		switch {
		case i > 0 && j > 0 && costBoth <= costI && costBoth <= costJ:
			idx := i - 1
			word := recognized[j-1]
			pairs = append(pairs, AlignedPair{Input: &word, RefIdx: &idx})
			if !exact {
				stats.Transpositions++
			}
			i--
			j--
		case i > 0 && costI <= costJ:
			idx := i - 1
			pairs = append(pairs, AlignedPair{RefIdx: &idx})
			stats.Insertions++
			i--
		default:
			word := recognized[j-1]
			pairs = append(pairs, AlignedPair{Input: &word})
			stats.Deletions++
			j--
		}
	}

	for l, h := 0, len(pairs)-1; l < h; l, h = l+1, h-1 {
		pairs[l], pairs[h] = pairs[h], pairs[l]
	}
	return pairs, stats
}
