// Package segment holds the shared data model of the alignment core
// (spec.md §3): the decoder's recognized words, the reference word
// list's liaison annotations, the span type every downstream component
// reads and writes, and the per-job request/result wrapper. It mirrors
// the original implementation's segment.h, which groups exactly these
// structs together.
package segment

import "math"

// NoMatch is the sentinel stored in a SegmentedWordSpan's IndexStart /
// IndexEnd to mean "no reference word assigned". The original C++ used
// (unsigned)~0 for this; spec.md §9 asks for an explicit named constant
// instead of relying on wrap-around arithmetic.
const NoMatch uint32 = math.MaxUint32

// RecognizedWord is one word segment as emitted by the (external,
// black-box) speech decoder.
//
// Invariant: EndMs >= StartMs is NOT guaranteed by the decoder —
// overlapping or zero-length segments are possible and every consumer
// must tolerate them.
type RecognizedWord struct {
	StartMs uint32
	EndMs   uint32
	Text    string
}

// LiaiseFlags is a bitset over a LiaisePoint.
type LiaiseFlags uint8

// Backtrack is the only flag bit defined today: it marks a liaison
// where the span's start may lie earlier than the decoder reported it,
// because the reciter elided the boundary. The refiner's liaison pass
// resolves every liaise point whether or not this bit is set.
const Backtrack LiaiseFlags = 1 << 0

// LiaisePoint marks a reference-word boundary where the preceding
// word's final sound and the following word's initial sound elide in
// recitation, so the decoder-reported boundary there is unreliable.
type LiaisePoint struct {
	Index uint16
	Flags LiaiseFlags
}

// SpanFlag is a bitset of provenance markers for a SegmentedWordSpan.
type SpanFlag uint8

const (
	// MatchedInput is set when at least one recognized (decoder) word
	// contributed to this span.
	MatchedInput SpanFlag = 1 << iota
	// MatchedReference is set when at least one reference word is
	// covered by this span.
	MatchedReference
	// Exact is set for a span produced by a single exact text match.
	Exact
	// Inexact is set for a span produced by a single substitution
	// (recognized and reference texts differ).
	Inexact
)

// SegmentedWordSpan covers reference words [IndexStart, IndexEnd) during
// [StartMs, EndMs) of clip audio. IndexStart/IndexEnd hold NoMatch when
// no reference word is assigned (a purely spurious recognized run).
type SegmentedWordSpan struct {
	IndexStart uint32
	IndexEnd   uint32
	StartMs    uint32
	EndMs      uint32
	Flags      SpanFlag
}

// HasMatch reports whether this span carries a real reference-index
// range (as opposed to the NoMatch sentinel pair).
func (s SegmentedWordSpan) HasMatch() bool {
	return s.IndexStart != NoMatch && s.IndexEnd != NoMatch
}

// SegmentationStats accumulates the edit-operation counters produced by
// the word aligner: insertion = reference word the decoder never
// produced, deletion = spurious decoder word, transposition =
// substitution (decoder word present but text differs).
type SegmentationStats struct {
	Insertions     int
	Deletions      int
	Transpositions int
}

// SegmentationJob describes one forced-alignment request: a known
// reference word sequence for one ayah, the liaison points discovered
// for it, and the path to the recitation clip to align against.
type SegmentationJob struct {
	ID             string
	Surah          uint16
	Ayah           uint16
	AudioPath      string
	ReferenceWords []string
	LiaisePoints   []LiaisePoint
}

// SegmentationResult is the output of running one SegmentationJob:
// the final span list plus the aligner's edit-distance stats.
type SegmentationResult struct {
	Job   *SegmentationJob
	Spans []SegmentedWordSpan
	Stats SegmentationStats
}
