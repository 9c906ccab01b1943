// Package translate runs a document translation: it flattens a JSON value
// into string leaves, filters them through the cache, packs the rest into
// delimiter-joined batches, sends every batch to a provider, stores the
// segments in the cache and rebuilds a document of identical shape.
package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/minios-linux/jsonlate/batch"
	"github.com/minios-linux/jsonlate/cache"
	"github.com/minios-linux/jsonlate/flatten"
	"github.com/minios-linux/jsonlate/jsonvalue"
	"github.com/minios-linux/jsonlate/keypath"
	"github.com/minios-linux/jsonlate/provider"
)

// ---------------------------------------------------------------------------
// Run stages
// ---------------------------------------------------------------------------

// Stage is a step of a run. Stages only move forward.
type Stage int

const (
	Loaded Stage = iota
	Flattened
	CacheFiltered
	Batched
	Translating
	Merged
	Rebuilt
	Persisted
)

var stageNames = [...]string{
	Loaded:        "loaded",
	Flattened:     "flattened",
	CacheFiltered: "cache-filtered",
	Batched:       "batched",
	Translating:   "translating",
	Merged:        "merged",
	Rebuilt:       "rebuilt",
	Persisted:     "persisted",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// ---------------------------------------------------------------------------
// Translation options
// ---------------------------------------------------------------------------

// Options controls a run.
type Options struct {
	// Translator sends payloads to the translation service. It may be nil
	// for dry runs.
	Translator provider.Translator
	// Cache holds known translations for TargetLang. A memory-only store is
	// used when nil.
	Cache *cache.Store
	// TargetLang is the canonical target language code (e.g. "DE").
	TargetLang string
	// Delimiter separates strings in a payload (default "::"). A fallback is
	// chosen when a source string contains it.
	Delimiter string
	// BatchLimit bounds a payload in bytes (default 1500, negative = one batch).
	BatchLimit int
	// Mismatch decides what a segment count mismatch does.
	Mismatch batch.MismatchPolicy
	// MaxConcurrent is the number of batches in flight (default 1).
	MaxConcurrent int
	// RequestDelay is the delay between launching parallel batches.
	RequestDelay time.Duration
	// DryRun stops after batching; nothing is sent.
	DryRun bool
	// OnStage is called when the run enters a stage.
	OnStage func(Stage)
	// OnProgress is called after each batch with the number of distinct
	// strings done so far.
	OnProgress func(done, total int)
	// OnLog emits log messages during the run.
	OnLog func(format string, args ...any)
	// OnError emits error and warning messages during the run.
	OnError func(format string, args ...any)
	// Verbose enables detailed logging.
	Verbose bool
}

func (o *Options) log(format string, args ...any) {
	if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) logError(format string, args ...any) {
	if o.OnError != nil {
		o.OnError(format, args...)
	} else if o.OnLog != nil {
		o.OnLog(format, args...)
	}
}

func (o *Options) stage(s Stage) {
	if o.OnStage != nil {
		o.OnStage(s)
	}
}

func (o *Options) effectiveDelimiter() string {
	if o.Delimiter != "" {
		return o.Delimiter
	}
	return batch.DefaultDelimiter
}

func (o *Options) effectiveBatchLimit() int {
	if o.BatchLimit == 0 {
		return batch.DefaultLimit
	}
	return o.BatchLimit
}

func (o *Options) effectiveMismatch() batch.MismatchPolicy {
	if o.Mismatch == "" {
		return batch.MismatchTruncate
	}
	return o.Mismatch
}

func (o *Options) effectiveMaxConcurrent() int {
	if o.MaxConcurrent > 0 {
		return o.MaxConcurrent
	}
	return 1
}

// ---------------------------------------------------------------------------
// Report
// ---------------------------------------------------------------------------

// Report describes what a run did.
type Report struct {
	// Leaves is the number of leaves in the document: scalars plus empty
	// objects and arrays.
	Leaves int
	// Strings is the number of string leaves.
	Strings int
	// Blank counts empty or whitespace-only strings, which are never sent.
	Blank int
	// CacheHits counts string leaves already in the cache.
	CacheHits int
	// Pending is the number of distinct strings sent for translation.
	Pending int
	// Batches is the number of payloads.
	Batches int
	// Calls is the number of provider calls that returned a payload.
	Calls int
	// Translated is the number of distinct strings that received a
	// translation in this run.
	Translated int
	// Missing counts strings left untranslated by a truncated response.
	Missing int
	// Delimiter is the delimiter actually used.
	Delimiter string
	// Output is the written file, when a file run completes.
	Output string
	// Sizes holds the payload size of every batch.
	Sizes []int
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

// InputError is an input document that is missing, unreadable or not JSON.
type InputError struct {
	Path string
	Err  error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("input %s: %v", e.Path, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// OutputError is a failure to write the translated document or the cache.
type OutputError struct {
	Path string
	Err  error
}

func (e *OutputError) Error() string {
	return fmt.Sprintf("output %s: %v", e.Path, e.Err)
}

func (e *OutputError) Unwrap() error { return e.Err }

// ---------------------------------------------------------------------------
// Translate
// ---------------------------------------------------------------------------

// Translate returns doc with every non-blank string leaf replaced by its
// translation. Cached strings are not sent. Identical strings are sent
// once.
//
// On a provider failure the run stops and the error is returned; the cache
// keeps the batches that completed before the failure. In a dry run the
// returned value is doc itself.
func Translate(ctx context.Context, doc jsonvalue.Value, opts Options) (jsonvalue.Value, *Report, error) {
	if opts.Cache == nil {
		opts.Cache = cache.New(opts.TargetLang, nil)
	}
	if opts.Translator == nil && !opts.DryRun {
		return jsonvalue.Value{}, nil, errors.New("no translator configured")
	}
	if opts.TargetLang == "" {
		return jsonvalue.Value{}, nil, errors.New("no target language")
	}

	rep := &Report{}

	leaves := flatten.Flatten(doc)
	rep.Leaves = leaves.Len()
	strs := leaves.Strings()
	rep.Strings = len(strs)
	opts.stage(Flattened)

	units := pendingUnits(strs, opts.Cache, rep)
	rep.Pending = len(units)
	opts.stage(CacheFiltered)

	sources := make([]string, len(units))
	for i, u := range units {
		sources[i] = u.Source
	}
	delim, err := batch.ChooseDelimiter(opts.effectiveDelimiter(), sources)
	if err != nil {
		return jsonvalue.Value{}, rep, fmt.Errorf("choosing delimiter: %w", err)
	}
	if delim != opts.effectiveDelimiter() {
		opts.logError("Source strings collide with delimiter %q; using %q", opts.effectiveDelimiter(), delim)
	}
	rep.Delimiter = delim

	batches := batch.Make(units, opts.effectiveBatchLimit(), delim)
	rep.Batches = len(batches)
	for _, b := range batches {
		rep.Sizes = append(rep.Sizes, b.Size)
	}
	opts.stage(Batched)

	if opts.DryRun {
		return doc, rep, nil
	}

	if len(batches) > 0 {
		opts.log("Translating %d string(s) in %d batch(es) into %s...", len(units), len(batches), opts.TargetLang)
	} else {
		opts.log("Nothing to send: all %d string(s) resolved from cache", rep.Strings)
	}
	opts.stage(Translating)

	r := &runner{opts: opts, delim: delim, total: len(units), batches: len(batches)}
	r.tr = opts.Translator
	if da, ok := r.tr.(provider.DelimiterAware); ok {
		r.tr = da.WithDelimiter(delim)
	}

	if opts.effectiveMaxConcurrent() > 1 && len(batches) > 1 {
		err = r.runParallel(ctx, batches)
	} else {
		err = r.runSequential(ctx, batches)
	}
	rep.Calls = int(r.calls.Load())
	rep.Translated = int(r.translated.Load())
	rep.Missing = int(r.missing.Load())
	if err != nil {
		return jsonvalue.Value{}, rep, err
	}

	translations := make(map[keypath.Path]string, len(strs))
	for _, e := range strs {
		if target, ok := opts.Cache.Lookup(e.Value.Str()); ok {
			translations[e.Path] = target
		}
	}
	opts.stage(Merged)

	out, err := flatten.Rebuild(leaves, translations)
	if err != nil {
		return jsonvalue.Value{}, rep, fmt.Errorf("rebuilding document: %w", err)
	}
	opts.stage(Rebuilt)
	return out, rep, nil
}

// pendingUnits returns one unit per distinct string that still needs a
// translation, in document order.
func pendingUnits(strs []flatten.Entry, store *cache.Store, rep *Report) []batch.Unit {
	var units []batch.Unit
	seen := make(map[string]bool)
	for _, e := range strs {
		src := e.Value.Str()
		if strings.TrimSpace(src) == "" {
			rep.Blank++
			continue
		}
		if _, ok := store.Lookup(src); ok {
			rep.CacheHits++
			continue
		}
		if seen[src] {
			continue
		}
		seen[src] = true
		units = append(units, batch.Unit{Path: e.Path, Source: src})
	}
	return units
}

// ---------------------------------------------------------------------------
// Batch execution
// ---------------------------------------------------------------------------

type runner struct {
	opts    Options
	tr      provider.Translator
	delim   string
	total   int
	batches int

	calls      atomic.Int64
	translated atomic.Int64
	missing    atomic.Int64
	done       atomic.Int64
}

type indexedBatch struct {
	index int
	batch batch.Batch
}

func (r *runner) runSequential(ctx context.Context, batches []batch.Batch) error {
	for i, b := range batches {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.translateBatch(ctx, i, b); err != nil {
			return err
		}
	}
	return nil
}

func (r *runner) runParallel(ctx context.Context, batches []batch.Batch) error {
	tasks := make([]indexedBatch, len(batches))
	for i, b := range batches {
		tasks[i] = indexedBatch{index: i, batch: b}
	}
	return runParallelGeneric(ctx, tasks, r.opts.effectiveMaxConcurrent(), r.opts.RequestDelay, func(ctx context.Context, t indexedBatch) error {
		return r.translateBatch(ctx, t.index, t.batch)
	})
}

// translateBatch sends one batch, splits the reply and stores every
// segment in the cache under its source string. The cache is flushed
// before returning so completed batches survive a later failure.
func (r *runner) translateBatch(ctx context.Context, i int, b batch.Batch) error {
	opts := &r.opts
	payload := batch.Encode(b, r.delim)

	if opts.Verbose {
		opts.log("Batch %d/%d: %d string(s), %d bytes", i+1, r.batches, b.Len(), len(payload))
	}

	text, err := r.tr.Translate(ctx, payload, opts.TargetLang)
	if err != nil {
		return fmt.Errorf("batch %d/%d: %w", i+1, r.batches, err)
	}
	r.calls.Add(1)

	segments, err := batch.Decode(text, b.Len(), r.delim, opts.effectiveMismatch())
	if err != nil {
		var mm *batch.MismatchError
		if !errors.As(err, &mm) || !mm.Lossy() {
			return fmt.Errorf("batch %d/%d: %w", i+1, r.batches,
				&provider.DecodeError{Provider: r.tr.Name(), Reason: "segment count mismatch", Err: err})
		}
		opts.logError("Batch %d/%d: %v; %d string(s) left untranslated", i+1, r.batches, mm, b.Len()-len(segments))
		r.missing.Add(int64(b.Len() - len(segments)))
	}
	segments = batch.RestoreSpacing(b.Sources()[:len(segments)], segments)

	for j, seg := range segments {
		opts.Cache.Insert(b.Units[j].Source, seg)
	}
	r.translated.Add(int64(len(segments)))

	if err := opts.Cache.Flush(); err != nil {
		return &OutputError{Path: opts.Cache.Location(), Err: err}
	}

	done := r.done.Add(int64(b.Len()))
	opts.log("Translated batch %d/%d", i+1, r.batches)
	if opts.OnProgress != nil {
		opts.OnProgress(int(done), r.total)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Generic parallel runner
// ---------------------------------------------------------------------------

// runParallelGeneric runs typed tasks with a concurrency limit and a delay
// between launches. The first error cancels the context seen by the
// remaining tasks and is returned once all started tasks have finished.
func runParallelGeneric[T any](ctx context.Context, tasks []T, maxConcurrent int, delay time.Duration, fn func(context.Context, T) error) error {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup
	var firstErr error
	var errOnce sync.Once

launch:
	for i, task := range tasks {
		if i > 0 && delay > 0 {
			select {
			case <-ctx.Done():
				break launch
			case <-time.After(delay):
			}
		}

		select {
		case <-ctx.Done():
			break launch
		case sem <- struct{}{}:
		}
		wg.Add(1)

		go func(t T) {
			defer func() {
				<-sem
				wg.Done()
			}()

			if err := fn(ctx, t); err != nil {
				errOnce.Do(func() {
					firstErr = err
					cancel()
				})
			}
		}(task)
	}

	wg.Wait()
	if firstErr == nil {
		return parent.Err()
	}
	return firstErr
}
