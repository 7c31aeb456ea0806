package reftext

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"qalign/internal/segment"
)

func TestParseTanzilParsesRecords(t *testing.T) {
	input := "# comment line\n1|1|بسم الله الرحمن الرحيم\n\n2|255|الله لا اله الا هو\n"
	got, err := ParseTanzil(strings.NewReader(input))
	require.NoError(t, err)
	require.Equal(t, []string{"بسم", "الله", "الرحمن", "الرحيم"}, got[1*1000+1])
	require.Equal(t, []string{"الله", "لا", "اله", "الا", "هو"}, got[2*1000+255])
}

func TestParseTanzilRejectsMalformedLine(t *testing.T) {
	_, err := ParseTanzil(strings.NewReader("not-a-valid-line\n"))
	require.Error(t, err)
}

func TestParseLiaisonFileParsesIndices(t *testing.T) {
	got, err := ParseLiaisonFile(strings.NewReader("1 1 2 1\n1 1 5 1\n1 2 0 0\n"))
	require.NoError(t, err)
	require.Equal(t, []segment.LiaisePoint{
		{Index: 2, Flags: segment.Backtrack},
		{Index: 5, Flags: segment.Backtrack},
	}, got[1001])
	require.Equal(t, []segment.LiaisePoint{{Index: 0, Flags: 0}}, got[1002])
}

func TestParseDictionaryPreservesPhonesVerbatim(t *testing.T) {
	got, err := ParseDictionary(strings.NewReader("bismillah B IH S M IH L AH\nrahman R AH M AA N\n"))
	require.NoError(t, err)
	require.Equal(t, "B IH S M IH L AH", got["bismillah"])
	require.Equal(t, "R AH M AA N", got["rahman"])
}

func TestCollapseMuqataatMergesMarkerIntoPrevious(t *testing.T) {
	refWords := []string{"alif_lam_meem", "_", "dhalika"}
	spans := []segment.SegmentedWordSpan{
		{IndexStart: 0, IndexEnd: 1, StartMs: 0, EndMs: 200, Flags: segment.MatchedInput | segment.MatchedReference | segment.Exact},
		{IndexStart: 1, IndexEnd: 2, StartMs: 200, EndMs: 250, Flags: segment.MatchedInput | segment.MatchedReference | segment.Exact},
		{IndexStart: 2, IndexEnd: 3, StartMs: 250, EndMs: 400, Flags: segment.MatchedInput | segment.MatchedReference | segment.Exact},
	}
	got := CollapseMuqataat(spans, refWords)
	require.Len(t, got, 2)
	require.Equal(t, uint32(0), got[0].IndexStart)
	require.Equal(t, uint32(2), got[0].IndexEnd)
	require.Equal(t, uint32(250), got[0].EndMs)

	// "dhalika" originally sat at reference index 2; after the marker at
	// index 1 collapses into the previous span, it shifts down to 1.
	require.Equal(t, uint32(1), got[1].IndexStart)
	require.Equal(t, uint32(2), got[1].IndexEnd)
}
