// Package reftext loads the textual inputs to an alignment run: the
// Tanzil.net-format reference text, the liaison annotation file, and
// the decoder's pronunciation dictionary. It also implements the
// muqata'at post-processing collapse spec.md §6 requires on the
// aligner's output.
package reftext

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"qalign/internal/segment"
)

// ParseTanzil reads a Tanzil.net-format reference text file: one ayah
// per line as "surah|ayah|text", blank lines and '#'-prefixed comment
// lines discarded. The key of the returned map is surah*1000+ayah, and
// each value is the ayah's text split on whitespace into words.
func ParseTanzil(r io.Reader) (map[int][]string, error) {
	out := make(map[int][]string)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "|", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("reftext: line %d: expected surah|ayah|text, got %q", lineNo, line)
		}
		surah, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, fmt.Errorf("reftext: line %d: bad surah number: %w", lineNo, err)
		}
		ayah, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("reftext: line %d: bad ayah number: %w", lineNo, err)
		}
		out[surah*1000+ayah] = strings.Fields(parts[2])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reftext: scan: %w", err)
	}
	return out, nil
}

// ParseLiaisonFile reads one whitespace-separated "surah ayah word_index
// flags" record per line, naming the reference-word indices within an
// ayah that need liaison resolution and the bitset of behavior that
// applies to each (1 = Backtrack). The returned map mirrors ParseTanzil's
// key and may hold several LiaisePoints per ayah, one per matching line.
func ParseLiaisonFile(r io.Reader) (map[int][]segment.LiaisePoint, error) {
	out := make(map[int][]segment.LiaisePoint)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 4 {
			return nil, fmt.Errorf("reftext: liaison line %d: expected \"surah ayah word_index flags\", got %q", lineNo, line)
		}
		surah, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("reftext: liaison line %d: bad surah number: %w", lineNo, err)
		}
		ayah, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("reftext: liaison line %d: bad ayah number: %w", lineNo, err)
		}
		idx, err := strconv.ParseUint(fields[2], 10, 16)
		if err != nil {
			return nil, fmt.Errorf("reftext: liaison line %d: bad word index %q: %w", lineNo, fields[2], err)
		}
		flags, err := strconv.ParseUint(fields[3], 10, 8)
		if err != nil {
			return nil, fmt.Errorf("reftext: liaison line %d: bad flags %q: %w", lineNo, fields[3], err)
		}

		key := surah*1000 + ayah
		out[key] = append(out[key], segment.LiaisePoint{Index: uint16(idx), Flags: segment.LiaiseFlags(flags)})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reftext: liaison scan: %w", err)
	}
	return out, nil
}

// ParseDictionary reads one "word phone phone ..." line per
// pronunciation entry, verbatim — the decoder consumes these lines
// unmodified, so no normalization is applied here.
func ParseDictionary(r io.Reader) (map[string]string, error) {
	out := make(map[string]string)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		fields := strings.SplitN(trimmed, " ", 2)
		if len(fields) != 2 {
			continue
		}
		out[fields[0]] = fields[1]
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reftext: dictionary scan: %w", err)
	}
	return out, nil
}

// CollapseMuqataat merges a span covering a "disjointed letter" marker
// word (conventionally written with a leading underscore, e.g. "_الم")
// into the preceding span, so the marker is not reported as a separate
// word in its own right. A marker span with no preceding span is kept
// as is. Every later span's reference indices are shifted down by the
// number of marker words merged so far.
//
// Preserved quirk: the reference implementation's collapse check treats
// an underscore-prefixed word followed by an empty reference string the
// same as a genuine muqata'at marker — two different conditions that
// happen to take the same branch. Spec.md §9 documents this and asks
// for it to be kept rather than split into two explicit cases.
func CollapseMuqataat(spans []segment.SegmentedWordSpan, refWords []string) []segment.SegmentedWordSpan {
	var out []segment.SegmentedWordSpan
	shift := uint32(0)
	for _, s := range spans {
		isMarker := s.HasMatch() && isMuqataatMarker(refWords, s.IndexStart)
		collapsedCount := uint32(0)
		if s.HasMatch() {
			collapsedCount = s.IndexEnd - s.IndexStart
			s.IndexStart -= shift
			s.IndexEnd -= shift
		}

		if len(out) > 0 && isMarker {
			prev := &out[len(out)-1]
			prev.IndexEnd = s.IndexEnd
			prev.EndMs = s.EndMs
			prev.Flags |= s.Flags
			shift += collapsedCount
			continue
		}
		out = append(out, s)
	}
	return out
}

func isMuqataatMarker(refWords []string, idx uint32) bool {
	if int(idx) >= len(refWords) {
		return false
	}
	word := refWords[idx]
	if word == "" {
		return idx > 0 && isMuqataatMarker(refWords, idx-1)
	}
	return strings.HasPrefix(word, "_")
}
