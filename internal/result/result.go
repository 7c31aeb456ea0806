// Package result formats a SegmentationResult as the JSON document the
// CLI emits (spec.md §6).
package result

import (
	"encoding/json"
	"io"

	"qalign/internal/segment"
)

// Document is the on-the-wire shape of one job's output.
type Document struct {
	Surah uint16     `json:"surah"`
	Ayah  uint16     `json:"ayah"`
	Stats StatsDoc   `json:"stats"`
	Spans []SpanDoc  `json:"segments"`
	Error string     `json:"error,omitempty"`
}

// StatsDoc mirrors segment.SegmentationStats.
type StatsDoc struct {
	Insertions     int `json:"insertions"`
	Deletions      int `json:"deletions"`
	Transpositions int `json:"transpositions"`
}

// SpanDoc is one emitted span: [index_start, index_end, start_ms,
// end_ms]. NoMatch indices are emitted as -1.
type SpanDoc [4]int64

// FromResult converts a completed SegmentationResult to its document
// form.
func FromResult(res *segment.SegmentationResult) Document {
	doc := Document{
		Surah: res.Job.Surah,
		Ayah:  res.Job.Ayah,
		Stats: StatsDoc{
			Insertions:     res.Stats.Insertions,
			Deletions:      res.Stats.Deletions,
			Transpositions: res.Stats.Transpositions,
		},
		Spans: make([]SpanDoc, 0, len(res.Spans)),
	}
	for _, s := range res.Spans {
		indexStart, indexEnd := int64(s.IndexStart), int64(s.IndexEnd)
		if s.IndexStart == segment.NoMatch {
			indexStart = -1
		}
		if s.IndexEnd == segment.NoMatch {
			indexEnd = -1
		}
		doc.Spans = append(doc.Spans, SpanDoc{indexStart, indexEnd, int64(s.StartMs), int64(s.EndMs)})
	}
	return doc
}

// FailedDocument builds a Document recording a job that never produced
// a result, so a batch run can report per-job failures without losing
// the other jobs' output (spec.md §7 expansion: the Pool worker
// boundary catches here).
func FailedDocument(surah, ayah uint16, err error) Document {
	return Document{Surah: surah, Ayah: ayah, Error: err.Error()}
}

// WriteAll emits one JSON array of documents to w.
func WriteAll(w io.Writer, docs []Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(docs)
}
