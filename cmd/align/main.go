// Command align forced-aligns recited ayahs against their reference
// text. It reads a Tanzil-format reference text file, a liaison
// annotation file and a decoder config, and produces one segmentation
// result per recitation clip given on the command line.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"qalign/internal/audio"
	"qalign/internal/decoder"
	"qalign/internal/reftext"
	"qalign/internal/result"
	"qalign/internal/segment"
	"qalign/internal/store"
	"qalign/internal/worker"
)

func main() {
	// A .env in the working directory is optional; its absence is not
	// an error, it just means no env-based overrides are available.
	_ = godotenv.Load()

	var (
		threads    = flag.Int("threads", 0, "worker count (default: NumCPU, floor 4)")
		cachePath  = flag.String("cache", "", "optional sqlite result cache path; empty falls back to $QALIGN_CACHE, and caching is off when both are empty")
		statusAddr = flag.String("status-addr", "", "optional address to serve GET /status on, e.g. :8088")
		outputFile = flag.String("o", "", "output file (default: stdout)")
		tmpDir     = flag.String("tmp", os.TempDir(), "directory for job-local dictionary temp files")
		verbose    = flag.Bool("v", false, "verbose output")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] REFERENCE_TEXT LIAISE_FILE DECODER_CFG CLIP.wav [CLIP.wav ...]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) < 4 {
		fmt.Fprintf(os.Stderr, "Error: reference text, liaison file, decoder config and at least one clip are required\n\n")
		flag.Usage()
		os.Exit(1)
	}
	refPath, liaisePath, decoderCfgPath := args[0], args[1], args[2]
	clipPaths := args[3:]

	if *cachePath == "" {
		*cachePath = os.Getenv("QALIGN_CACHE")
	}
	if *statusAddr == "" {
		*statusAddr = os.Getenv("QALIGN_STATUS_ADDR")
	}

	refWords, err := loadReferenceText(refPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	liaisons, err := loadLiaisonFile(liaisePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	cfg, dict, err := loadDecoderConfig(decoderCfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var jobs []*segment.SegmentationJob
	for _, clip := range clipPaths {
		surah, ayah, err := audio.ParseFilename(clip)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		words, ok := refWords[int(surah)*1000+int(ayah)]
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: no reference text for surah %d ayah %d (%s)\n", surah, ayah, clip)
			os.Exit(1)
		}
		jobs = append(jobs, &segment.SegmentationJob{
			ID:             uuid.NewString(),
			Surah:          surah,
			Ayah:           ayah,
			AudioPath:      clip,
			ReferenceWords: words,
			LiaisePoints:   liaisons[int(surah)*1000+int(ayah)],
		})
	}

	var cache *store.Store
	if *cachePath != "" {
		cache, err = store.Open(*cachePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: opening cache: %v\n", err)
			os.Exit(1)
		}
		defer cache.Close()
	}

	var pending []*segment.SegmentationJob
	docs := make(map[string]result.Document)
	for _, j := range jobs {
		if cache != nil {
			if doc, ok, err := cache.Get(j.Surah, j.Ayah); err == nil && ok {
				docs[j.ID] = *doc
				continue
			}
		}
		pending = append(pending, j)
	}
	if *verbose && cache != nil {
		fmt.Fprintf(os.Stderr, "cache hit for %s of %s jobs\n",
			humanize.Comma(int64(len(jobs)-len(pending))), humanize.Comma(int64(len(jobs))))
	}

	pool := worker.New(*threads, worker.DecoderRunnerFactory(cfg, dict, *tmpDir))
	pool.Submit(pending...)

	var reporter func(worker.Status)
	var statusServer *worker.StatusServer
	if *statusAddr != "" {
		statusServer = worker.NewStatusServer(pool)
		go func() {
			if err := statusServer.Start(*statusAddr); err != nil && *verbose {
				fmt.Fprintf(os.Stderr, "status server: %v\n", err)
			}
		}()
		defer statusServer.Shutdown()
	}
	if *verbose {
		reporter = func(s worker.Status) {
			fmt.Fprintf(os.Stderr, "queued=%d in_flight=%d completed=%d\n", s.Queued, s.InFlight, s.Completed)
		}
	}

	results := pool.Run(context.Background(), reporter)
	for _, r := range results {
		if r.Err != nil {
			docs[r.Job.ID] = result.FailedDocument(r.Job.Surah, r.Job.Ayah, r.Err)
			continue
		}
		doc := result.FromResult(r.Output)
		docs[r.Job.ID] = doc
		if cache != nil {
			if err := cache.Put(r.Job.Surah, r.Job.Ayah, doc); err != nil && *verbose {
				fmt.Fprintf(os.Stderr, "cache: failed to store %d/%d: %v\n", r.Job.Surah, r.Job.Ayah, err)
			}
		}
	}

	ordered := make([]result.Document, 0, len(jobs))
	for _, j := range jobs {
		ordered = append(ordered, docs[j.ID])
	}

	out := os.Stdout
	if *outputFile != "" {
		f, err := os.Create(*outputFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: creating output file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}
	if err := result.WriteAll(out, ordered); err != nil {
		fmt.Fprintf(os.Stderr, "Error: writing output: %v\n", err)
		os.Exit(1)
	}
}

func loadReferenceText(path string) (map[int][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening reference text %q: %w", path, err)
	}
	defer f.Close()
	return reftext.ParseTanzil(f)
}

func loadLiaisonFile(path string) (map[int][]segment.LiaisePoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening liaison file %q: %w", path, err)
	}
	defer f.Close()
	return reftext.ParseLiaisonFile(f)
}

// loadDecoderConfig reads a small "key value" file naming the decoder's
// model files and the dictionary file that sits alongside them.
func loadDecoderConfig(path string) (decoder.Config, map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return decoder.Config{}, nil, fmt.Errorf("opening decoder config %q: %w", path, err)
	}
	defer f.Close()

	kv, err := reftext.ParseDictionary(f) // same "key value..." shape is reused for config files
	if err != nil {
		return decoder.Config{}, nil, fmt.Errorf("parsing decoder config %q: %w", path, err)
	}

	cfg := decoder.Config{
		EncoderPath:    kv["encoder"],
		DecoderPath:    kv["decoder"],
		JoinerPath:     kv["joiner"],
		TokensPath:     kv["tokens"],
		SampleRate:     16000,
		NumThreads:     2,
		DecodingMethod: "greedy_search",
		MaxActivePaths: 4,
	}

	var dict map[string]string
	if dictPath, ok := kv["dictionary"]; ok {
		df, err := os.Open(dictPath)
		if err != nil {
			return decoder.Config{}, nil, fmt.Errorf("opening dictionary %q: %w", dictPath, err)
		}
		defer df.Close()
		dict, err = reftext.ParseDictionary(df)
		if err != nil {
			return decoder.Config{}, nil, fmt.Errorf("parsing dictionary %q: %w", dictPath, err)
		}
	}

	return cfg, dict, nil
}
