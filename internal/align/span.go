package align

import "qalign/internal/segment"

// BuildSpans walks an aligned pair sequence (the WordAligner's output)
// and turns it into SegmentedWordSpans (spec.md component G). Four kinds
// of pair drive four branches:
//
//   - exact:     Input and RefIdx both set, texts equal.
//   - inexact:   Input and RefIdx both set, texts differ (substitution).
//   - missing:   RefIdx set, Input nil — a reference word the decoder
//     never produced any audio for.
//   - spurious:  Input set, RefIdx nil — decoder output with no
//     corresponding reference word.
//
// Every exact/inexact pair gets its own fresh span — match_words()
// always pushes a new span for a matched pair, never extends the
// current one; a missing pair extends the currently open span's
// reference coverage without touching its time range; a spurious pair
// always closes whatever span is open and emits its own NoMatch-indexed
// span. The final open span, if any, is only kept if it actually covers
// at least one reference word — mirroring the "close any worthwhile
// span still open" check at the end of the reference match_words loop.
func BuildSpans(pairs []AlignedPair, refWords []string) []segment.SegmentedWordSpan {
	var spans []segment.SegmentedWordSpan
	var cur *segment.SegmentedWordSpan

	closeCurrent := func() {
		if cur != nil && cur.IndexEnd > cur.IndexStart {
			spans = append(spans, *cur)
		}
		cur = nil
	}

	for _, p := range pairs {
		switch {
		case p.Input != nil && p.RefIdx != nil:
			idx := uint32(*p.RefIdx)
			flag := segment.Exact
			if refWords[*p.RefIdx] != p.Input.Text {
				flag = segment.Inexact
			}
			closeCurrent()
			span := segment.SegmentedWordSpan{
				IndexStart: idx,
				IndexEnd:   idx + 1,
				StartMs:    p.Input.StartMs,
				EndMs:      p.Input.EndMs,
				Flags:      segment.MatchedInput | segment.MatchedReference | flag,
			}
			cur = &span

		case p.RefIdx != nil:
			idx := uint32(*p.RefIdx)
			if cur != nil && cur.HasMatch() && cur.IndexEnd == idx {
				cur.IndexEnd = idx + 1
				cur.Flags |= segment.MatchedReference
			} else {
				closeCurrent()
				span := segment.SegmentedWordSpan{
					IndexStart: idx,
					IndexEnd:   idx + 1,
					Flags:      segment.MatchedReference,
				}
				cur = &span
			}

		default: // p.Input != nil, p.RefIdx == nil: spurious decoder output
			closeCurrent()
			spans = append(spans, segment.SegmentedWordSpan{
				IndexStart: segment.NoMatch,
				IndexEnd:   segment.NoMatch,
				StartMs:    p.Input.StartMs,
				EndMs:      p.Input.EndMs,
				Flags:      segment.MatchedInput,
			})
		}
	}
	closeCurrent()
	return spans
}
