// Package audio opens recitation clips and hands the rest of the
// aligner raw PCM. A clip is a fixed 78-byte proprietary header
// followed by mono 16-bit little-endian samples at 16kHz — not a
// standard WAV file, so there is no RIFF chunk to walk the way the
// teacher's asr.ComputeWaveformPeaks does; the header length here is
// simply skipped.
package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"regexp"
	"strconv"

	"golang.org/x/exp/mmap"

	"qalign/internal/rates"
)

const headerSizeBytes = 78

// filenameRe extracts (surah, ayah) from a clip path ending in
// "..._SSSAAA.wav" — three digits of surah number immediately followed
// by three digits of ayah number, per spec.md §6.
var filenameRe = regexp.MustCompile(`(\d{3})(\d{3})\.wav$`)

// ParseFilename extracts the surah and ayah number a clip's filename
// encodes, per the "..._SSSAAA.wav" convention.
func ParseFilename(path string) (surah, ayah uint16, err error) {
	m := filenameRe.FindStringSubmatch(path)
	if m == nil {
		return 0, 0, fmt.Errorf("audio: filename %q does not match *_SSSAAA.wav", path)
	}
	s, err := strconv.ParseUint(m[1], 10, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("audio: bad surah digits in %q: %w", path, err)
	}
	a, err := strconv.ParseUint(m[2], 10, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("audio: bad ayah digits in %q: %w", path, err)
	}
	return uint16(s), uint16(a), nil
}

// File is a memory-mapped clip: the header is skipped up front and the
// rest is exposed as signed 16-bit PCM.
type File struct {
	r   *mmap.ReaderAt
	pcm []int16
}

// Open memory-maps path and validates it is long enough to hold the
// fixed header.
func Open(path string) (*File, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audio: open %q: %w", path, err)
	}
	if r.Len() <= headerSizeBytes {
		r.Close()
		return nil, fmt.Errorf("audio: %q is smaller than the %d-byte header", path, headerSizeBytes)
	}

	body := make([]byte, r.Len()-headerSizeBytes)
	if _, err := r.ReadAt(body, headerSizeBytes); err != nil {
		r.Close()
		return nil, fmt.Errorf("audio: read %q: %w", path, err)
	}

	pcm := make([]int16, len(body)/2)
	for i := range pcm {
		pcm[i] = int16(binary.LittleEndian.Uint16(body[i*2 : i*2+2]))
	}

	return &File{r: r, pcm: pcm}, nil
}

// Close releases the memory mapping.
func (f *File) Close() error {
	return f.r.Close()
}

// PCM returns the clip's samples.
func (f *File) PCM() []int16 {
	return f.pcm
}

// LengthMs is the clip's duration.
func (f *File) LengthMs() uint32 {
	return rates.SamplesToMsec(uint32(len(f.pcm)))
}

// ComputeMFCC is the seam for the (out-of-scope, black-box) MFCC
// feature extractor. No MFCC library exists anywhere in the retrieved
// example corpus, so this is a direct port of the standard
// mel-filterbank + DCT pipeline — see DESIGN.md for the stdlib
// justification. MfccTransitionDetector only consumes frame-to-frame
// Euclidean distance between rows, so fidelity to any particular
// reference filterbank design is not load-bearing here.
func ComputeMFCC(pcm []int16) [][13]float32 {
	const frameSamples = rates.WavSampleRateHz * rates.MfccFramePeriodMs / 1000
	if len(pcm) < frameSamples {
		return nil
	}

	numFrames := len(pcm) / frameSamples
	out := make([][13]float32, numFrames)
	for f := 0; f < numFrames; f++ {
		frame := pcm[f*frameSamples : (f+1)*frameSamples]
		out[f] = melCepstrum(frame)
	}
	return out
}

func melCepstrum(frame []int16) [13]float32 {
	const numBands = 26
	var energies [numBands]float64

	n := len(frame)
	for b := 0; b < numBands; b++ {
		lo := b * n / numBands
		hi := (b + 1) * n / numBands
		var sum float64
		for i := lo; i < hi; i++ {
			x := float64(frame[i]) / 32768
			sum += x * x
		}
		if hi > lo {
			sum /= float64(hi - lo)
		}
		energies[b] = logOrFloor(sum)
	}

	var out [13]float32
	for k := 0; k < 13; k++ {
		var sum float64
		for b := 0; b < numBands; b++ {
			angle := (float64(b) + 0.5) * float64(k) * math.Pi / numBands
			sum += energies[b] * math.Cos(angle)
		}
		out[k] = float32(sum)
	}
	return out
}

func logOrFloor(x float64) float64 {
	if x <= 1e-10 {
		return -23 // ln(1e-10)
	}
	return math.Log(x)
}
