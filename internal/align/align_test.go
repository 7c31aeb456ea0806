package align

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"qalign/internal/segment"
)

func rw(start, end uint32, text string) segment.RecognizedWord {
	return segment.RecognizedWord{StartMs: start, EndMs: end, Text: text}
}

func TestAlignExactMatch(t *testing.T) {
	ref := []string{"bismillah", "al", "rahman", "al", "raheem"}
	recognized := []segment.RecognizedWord{
		rw(0, 100, "bismillah"),
		rw(100, 150, "al"),
		rw(150, 300, "rahman"),
		rw(300, 350, "al"),
		rw(350, 500, "raheem"),
	}

	pairs, stats := Align(ref, recognized)
	require.Equal(t, segment.SegmentationStats{}, stats)
	require.Len(t, pairs, len(ref))
	for i, p := range pairs {
		require.NotNil(t, p.Input)
		require.NotNil(t, p.RefIdx)
		require.Equal(t, i, *p.RefIdx)
	}
}

func TestAlignInsertionForMissingWord(t *testing.T) {
	ref := []string{"a", "b", "c"}
	recognized := []segment.RecognizedWord{rw(0, 10, "a"), rw(10, 20, "c")}

	pairs, stats := Align(ref, recognized)
	require.Equal(t, 1, stats.Insertions)

	var sawMissingB bool
	for _, p := range pairs {
		if p.RefIdx != nil && *p.RefIdx == 1 && p.Input == nil {
			sawMissingB = true
		}
	}
	require.True(t, sawMissingB, "expected reference word 'b' to align to no input")
}

func TestAlignDeletionForSpuriousWord(t *testing.T) {
	ref := []string{"a", "b"}
	recognized := []segment.RecognizedWord{rw(0, 10, "a"), rw(10, 20, "uh"), rw(20, 30, "b")}

	_, stats := Align(ref, recognized)
	require.Equal(t, 1, stats.Deletions)
}

func TestAlignSubstitutionCountsTransposition(t *testing.T) {
	ref := []string{"a", "b", "c"}
	recognized := []segment.RecognizedWord{rw(0, 10, "a"), rw(10, 20, "x"), rw(20, 30, "c")}

	_, stats := Align(ref, recognized)
	require.Equal(t, 1, stats.Transpositions)
}

// Every AlignedPair must carry at least one non-nil side.
func TestAlignPairsNeverEmpty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		refLen := rapid.IntRange(0, 6).Draw(t, "refLen")
		recLen := rapid.IntRange(0, 6).Draw(t, "recLen")

		ref := make([]string, refLen)
		for i := range ref {
			ref[i] = rapid.SampledFrom([]string{"a", "b", "c"}).Draw(t, "refWord")
		}
		recognized := make([]segment.RecognizedWord, recLen)
		for i := range recognized {
			recognized[i] = rw(uint32(i*10), uint32(i*10+5), rapid.SampledFrom([]string{"a", "b", "c"}).Draw(t, "recWord"))
		}

		pairs, _ := Align(ref, recognized)
		for _, p := range pairs {
			if p.Input == nil && p.RefIdx == nil {
				t.Fatalf("pair with both sides nil")
			}
		}

		// Every reference index 0..refLen-1 appears in the backtrace exactly once.
		seen := make([]bool, refLen)
		for _, p := range pairs {
			if p.RefIdx != nil {
				if seen[*p.RefIdx] {
					t.Fatalf("reference index %d visited twice", *p.RefIdx)
				}
				seen[*p.RefIdx] = true
			}
		}
		for idx, ok := range seen {
			if !ok {
				t.Fatalf("reference index %d never visited", idx)
			}
		}
	})
}

func TestBuildSpansEmitsOneSpanPerExactMatch(t *testing.T) {
	ref := []string{"a", "b", "c"}
	recognized := []segment.RecognizedWord{rw(0, 10, "a"), rw(10, 20, "b"), rw(20, 30, "c")}

	pairs, _ := Align(ref, recognized)
	spans := BuildSpans(pairs, ref)

	require.Len(t, spans, 3)
	for i, s := range spans {
		require.Equal(t, uint32(i), s.IndexStart)
		require.Equal(t, uint32(i+1), s.IndexEnd)
		require.True(t, s.Flags&segment.Exact != 0)
	}
	require.Equal(t, uint32(0), spans[0].StartMs)
	require.Equal(t, uint32(10), spans[0].EndMs)
	require.Equal(t, uint32(20), spans[2].StartMs)
	require.Equal(t, uint32(30), spans[2].EndMs)
}

func TestBuildSpansEmitsNoMatchForSpuriousWord(t *testing.T) {
	ref := []string{"a", "b"}
	recognized := []segment.RecognizedWord{rw(0, 10, "a"), rw(10, 20, "uh"), rw(20, 30, "b")}

	pairs, _ := Align(ref, recognized)
	spans := BuildSpans(pairs, ref)

	var sawNoMatch bool
	for _, s := range spans {
		if s.IndexStart == segment.NoMatch {
			sawNoMatch = true
			require.Equal(t, segment.NoMatch, s.IndexEnd)
			require.Equal(t, uint32(10), s.StartMs)
			require.Equal(t, uint32(20), s.EndMs)
		}
	}
	require.True(t, sawNoMatch)
}
