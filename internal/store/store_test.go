package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"qalign/internal/result"
)

func TestGetMissReturnsFalse(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer s.Close()

	_, ok, err := s.Get(1, 1)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPutThenGetRoundTrips(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer s.Close()

	doc := result.Document{Surah: 1, Ayah: 7, Spans: []result.SpanDoc{{0, 1, 0, 100}}}
	require.NoError(t, s.Put(1, 7, doc))

	got, ok, err := s.Get(1, 7)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, doc.Surah, got.Surah)
	require.Equal(t, doc.Ayah, got.Ayah)
	require.Equal(t, doc.Spans, got.Spans)
}

func TestPutOverwritesExistingEntry(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Put(2, 5, result.Document{Surah: 2, Ayah: 5, Stats: result.StatsDoc{Insertions: 1}}))
	require.NoError(t, s.Put(2, 5, result.Document{Surah: 2, Ayah: 5, Stats: result.StatsDoc{Insertions: 9}}))

	got, ok, err := s.Get(2, 5)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 9, got.Stats.Insertions)
}
