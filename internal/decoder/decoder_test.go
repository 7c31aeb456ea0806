package decoder

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"qalign/internal/segment"
)

func TestConfigureWritesProjectedDictionaryAndCleansUp(t *testing.T) {
	dir := t.TempDir()
	job := &segment.SegmentationJob{
		ID:             "job-1",
		ReferenceWords: []string{"bismillah", "bismillah", "rahman", "unknown"},
	}
	dict := map[string]string{
		"bismillah": "B IH S M IH L AH",
		"rahman":    "R AH M AA N",
	}

	d, err := Configure(dir, job, dict)
	require.NoError(t, err)

	contents, err := os.ReadFile(d.Path())
	require.NoError(t, err)
	require.Contains(t, string(contents), "bismillah B IH S M IH L AH\n")
	require.Contains(t, string(contents), "rahman R AH M AA N\n")
	require.NotContains(t, string(contents), "unknown")

	// duplicate reference words are projected only once
	require.Equal(t, 1, countOccurrences(string(contents), "bismillah"))

	require.NoError(t, d.Close())
	_, statErr := os.Stat(d.Path())
	require.True(t, os.IsNotExist(statErr))
}

func countOccurrences(haystack, needle string) int {
	count := 0
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			count++
		}
	}
	return count
}
