// Package job wires the other components together into the
// JobRunner spec.md §4.I describes: given one SegmentationJob, open its
// clip, decode it, align the decoded words against the reference text,
// build spans, and refine them, producing one SegmentationResult. A
// JobRunner instance is not safe for concurrent use by more than one
// goroutine at a time — that isolation is the Pool's job (spec.md §5),
// not this package's.
package job

import (
	"context"
	"fmt"

	"qalign/internal/align"
	"qalign/internal/audio"
	"qalign/internal/decoder"
	"qalign/internal/discriminator"
	"qalign/internal/refine"
	"qalign/internal/reftext"
	"qalign/internal/segment"
)

// Runner executes SegmentationJobs sequentially against one decoder.
// Each worker in the Pool owns exactly one Runner (and therefore
// exactly one Decoder), so the Decode step never races.
type Runner struct {
	Decoder      *decoder.Decoder
	Dictionary   map[string]string
	TmpDir       string
	RefineParams refine.Params
}

// NewRunner builds a Runner around an already-configured decoder.
func NewRunner(d *decoder.Decoder, dict map[string]string, tmpDir string) *Runner {
	return &Runner{Decoder: d, Dictionary: dict, TmpDir: tmpDir, RefineParams: refine.DefaultParams()}
}

// Run executes one job end to end. A failure at any step is returned
// as an error rather than a panic, per spec.md §7 — the caller (the
// Pool) decides whether to abort the whole batch or just this job.
func (r *Runner) Run(ctx context.Context, j *segment.SegmentationJob) (*segment.SegmentationResult, error) {
	dict, err := decoder.Configure(r.TmpDir, j, r.Dictionary)
	if err != nil {
		return nil, fmt.Errorf("job %s: configure dictionary: %w", j.ID, err)
	}
	defer dict.Close()

	clip, err := audio.Open(j.AudioPath)
	if err != nil {
		return nil, fmt.Errorf("job %s: open audio: %w", j.ID, err)
	}
	defer clip.Close()

	pcm := clip.PCM()
	lengthMs := clip.LengthMs()

	silences := discriminator.Silences(pcm, lengthMs)
	recognized, err := r.Decoder.RunWithRetry(ctx, pcm, silences)
	if err != nil {
		return nil, fmt.Errorf("job %s: decode: %w", j.ID, err)
	}

	mfcc := audio.ComputeMFCC(pcm)
	powerTransitionsSamples := discriminator.PowerTransitions(pcm, len(pcm))
	mfccTransitionsFrames := discriminator.MfccTransitions(mfcc, len(mfcc))
	transitionsMs := discriminator.MergeTransitions(mfccTransitionsFrames, powerTransitionsSamples)

	pairs, stats := align.Align(j.ReferenceWords, recognized)
	spans := align.BuildSpans(pairs, j.ReferenceWords)
	spans = refine.Refine(spans, silences, transitionsMs, j.LiaisePoints, lengthMs, r.RefineParams)
	spans = reftext.CollapseMuqataat(spans, j.ReferenceWords)

	return &segment.SegmentationResult{Job: j, Spans: spans, Stats: stats}, nil
}
