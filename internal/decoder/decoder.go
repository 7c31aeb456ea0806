// Package decoder wraps the external speech decoder behind the
// interface the rest of the aligner needs: write a job-local
// pronunciation dictionary file, decode a PCM window into recognized
// words, and split decoding at the silence intervals the discriminator
// package found. The recognizer is built from Config alone and does not
// read the dictionary file. The decoder engine (sherpa-onnx-go) and the
// feature extraction inside it are a black box — spec.md §1 explicitly
// scopes them out — this package only adapts its API surface.
package decoder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	sherpa "github.com/k2-fsa/sherpa-onnx-go/sherpa_onnx"

	"qalign/internal/discriminator"
	"qalign/internal/segment"
)

// segmentationTokens are emitted by the decoder but carry no lexical
// content; they are dropped before building RecognizedWords.
var segmentationTokens = map[string]bool{
	"<s>":   true,
	"</s>":  true,
	"<sil>": true,
}

// Config names the decoder model files and threading. One Config is
// shared read-only across all workers; each worker builds its own
// Decoder from it.
type Config struct {
	EncoderPath    string
	DecoderPath    string
	JoinerPath     string
	TokensPath     string
	SampleRate     int
	NumThreads     int
	DecodingMethod string
	MaxActivePaths int
}

func (c Config) sherpaConfig() sherpa.OfflineRecognizerConfig {
	return sherpa.OfflineRecognizerConfig{
		FeatConfig: sherpa.FeatureConfig{
			SampleRate: c.SampleRate,
			FeatureDim: 80,
		},
		ModelConfig: sherpa.OfflineModelConfig{
			Transducer: sherpa.OfflineTransducerModelConfig{
				Encoder: c.EncoderPath,
				Decoder: c.DecoderPath,
				Joiner:  c.JoinerPath,
			},
			Tokens:     c.TokensPath,
			NumThreads: c.NumThreads,
			Debug:      0,
		},
		DecodingMethod: c.DecodingMethod,
		MaxActivePaths: c.MaxActivePaths,
	}
}

// Decoder owns one sherpa-onnx offline recognizer instance. Workers
// never share a Decoder — spec.md §5 requires each worker to own its
// own decoder handle, since the underlying recognizer is not
// goroutine-safe.
type Decoder struct {
	cfg        Config
	recognizer *sherpa.OfflineRecognizer
}

// New constructs a decoder bound to cfg's model files. The per-job
// dictionary file written by Configure is not passed to the recognizer.
func New(cfg Config) (*Decoder, error) {
	rec := sherpa.NewOfflineRecognizer(ptr(cfg.sherpaConfig()))
	if rec == nil {
		return nil, fmt.Errorf("decoder: failed to construct offline recognizer")
	}
	return &Decoder{cfg: cfg, recognizer: rec}, nil
}

func ptr(c sherpa.OfflineRecognizerConfig) *sherpa.OfflineRecognizerConfig { return &c }

// Dictionary is a job-local temp file projecting the global
// pronunciation dictionary onto one job's reference words. Close
// removes the temp file unconditionally.
type Dictionary struct {
	path string
}

// Path is the dictionary file's location on disk.
func (d *Dictionary) Path() string { return d.path }

// Close removes the temp file backing the dictionary.
func (d *Dictionary) Close() error {
	if d == nil || d.path == "" {
		return nil
	}
	return os.Remove(d.path)
}

// Configure projects dict onto job's reference words and writes the
// result to a job-ID-named temp file, matching spec.md §9's
// "temp-file dictionary handoff" design note — using the job's UUID
// rather than tmpnam(3) rules out name collisions between concurrent
// workers.
func Configure(tmpDir string, job *segment.SegmentationJob, dict map[string]string) (*Dictionary, error) {
	path := filepath.Join(tmpDir, fmt.Sprintf("qalign-dict-%s.txt", job.ID))
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("decoder: create dictionary %q: %w", path, err)
	}
	defer f.Close()

	seen := make(map[string]bool)
	for _, w := range job.ReferenceWords {
		if seen[w] {
			continue
		}
		seen[w] = true
		phones, ok := dict[w]
		if !ok {
			continue
		}
		if _, err := fmt.Fprintf(f, "%s %s\n", w, phones); err != nil {
			os.Remove(path)
			return nil, fmt.Errorf("decoder: write dictionary %q: %w", path, err)
		}
	}
	return &Dictionary{path: path}, nil
}

// Decode runs one full-utterance decode over pcm[windowStartSamples:]
// and returns the recognized words it found, with window-relative
// timestamps shifted to absolute clip time by windowStartMs.
func (d *Decoder) Decode(ctx context.Context, pcm []int16, windowStartSamples int, windowStartMs uint32) ([]segment.RecognizedWord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if windowStartSamples < 0 || windowStartSamples > len(pcm) {
		return nil, fmt.Errorf("decoder: window start %d out of range [0,%d]", windowStartSamples, len(pcm))
	}

	samples := make([]float32, len(pcm)-windowStartSamples)
	for i, s := range pcm[windowStartSamples:] {
		samples[i] = float32(s) / 32768
	}

	stream := sherpa.NewOfflineStream(d.recognizer)
	defer sherpa.DeleteOfflineStream(stream)

	stream.AcceptWaveform(d.cfg.SampleRate, samples)
	d.recognizer.Decode(stream)

	result := stream.GetResult()
	if result == nil {
		return nil, fmt.Errorf("decoder: decode produced no result")
	}

	words := make([]segment.RecognizedWord, 0, len(result.Tokens))
	for i, tok := range result.Tokens {
		if segmentationTokens[tok] {
			continue
		}
		var startMs, endMs uint32
		if i < len(result.Timestamps) {
			startMs = windowStartMs + uint32(result.Timestamps[i]*1000)
		}
		if i+1 < len(result.Timestamps) {
			endMs = windowStartMs + uint32(result.Timestamps[i+1]*1000)
		} else {
			endMs = startMs
		}
		words = append(words, segment.RecognizedWord{StartMs: startMs, EndMs: endMs, Text: tok})
	}
	return words, nil
}

// RunWithRetry implements spec.md §7's decoder VAD retry loop: for each
// silence interval that starts past the current cursor, decode from the
// cursor up to the silence's start, snap the last word of that window
// to the silence's start, and move the cursor to the silence's end;
// finally decode the tail from the cursor to the end of the clip. This
// avoids treating the gaps as a single (and therefore badly
// time-stamped) continuous utterance.
func (d *Decoder) RunWithRetry(ctx context.Context, pcm []int16, silences []discriminator.Interval) ([]segment.RecognizedWord, error) {
	var all []segment.RecognizedWord
	cursorSamples := 0
	cursorMs := uint32(0)

	const samplesPerMs = 16
	for _, sil := range silences {
		if sil.StartMs <= cursorMs {
			continue
		}
		windowEndSamples := int(sil.StartMs) * samplesPerMs
		if windowEndSamples <= cursorSamples || windowEndSamples > len(pcm) {
			continue
		}
		words, err := d.Decode(ctx, pcm[:windowEndSamples], cursorSamples, cursorMs)
		if err != nil {
			return nil, err
		}
		if len(words) > 0 {
			words[len(words)-1].EndMs = sil.StartMs
		}
		all = append(all, words...)
		cursorSamples = int(sil.EndMs) * samplesPerMs
		cursorMs = sil.EndMs
	}

	tail, err := d.Decode(ctx, pcm, cursorSamples, cursorMs)
	if err != nil {
		return nil, err
	}
	all = append(all, tail...)
	return all, nil
}
