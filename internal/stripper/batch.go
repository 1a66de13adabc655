package stripper

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/stripclass/pkg/compression"
	apperrors "github.com/stripclass/pkg/errors"
	"github.com/stripclass/pkg/filter"
	"github.com/stripclass/pkg/parallel"
	"github.com/stripclass/pkg/telemetry"
)

// ClassSuffix marks the files Collect picks up from directories.
const ClassSuffix = ".class"

// BatchOptions configures Batch.
type BatchOptions struct {
	Mode    Mode
	Workers int
	Filter  *filter.ClassFilter
	// Progress, when set, is called periodically with completed and total
	// file counts.
	Progress func(completed, total int64)
}

// Summary aggregates a batch run.
type Summary struct {
	Files    int           `json:"files"`
	Written  int           `json:"written"`
	Skipped  int           `json:"skipped"`
	Filtered int           `json:"filtered"`
	Failed   int           `json:"failed"`
	Removed  int           `json:"removed"`
	Duration time.Duration `json:"duration_ns"`
	Results  []*Result     `json:"results"`
}

// Collect expands paths into class files. Directories are walked for
// names ending in .class, optionally compressed. Plain files are taken as
// given. The result is sorted and free of duplicates.
func Collect(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, apperrors.Wrapf(apperrors.CodeIOError, err, "unable to open %s", root)
		}
		if !info.IsDir() {
			add(filepath.Clean(root))
			continue
		}
		err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isClassName(d.Name()) {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, apperrors.Wrapf(apperrors.CodeIOError, err, "unable to walk %s", root)
		}
	}

	sort.Strings(files)
	return files, nil
}

func isClassName(name string) bool {
	for _, ext := range []string{"", compression.TypeGzip.Extension(), compression.TypeZstd.Extension()} {
		if strings.HasSuffix(name, ClassSuffix+ext) {
			return true
		}
	}
	return false
}

// Batch processes files in parallel. Per-file failures are counted in the
// summary; the returned error is the first of them.
func (p *Processor) Batch(ctx context.Context, files []string, opts BatchOptions) (*Summary, error) {
	info, ok := GetModeInfo(opts.Mode)
	if !ok || !info.Writes {
		return nil, apperrors.New(apperrors.CodeInvalidInput,
			fmt.Sprintf("batch mode must be prune or write, got %q", opts.Mode))
	}

	ctx, span := telemetry.StartSpan(ctx, "stripper.Batch",
		attribute.Int("files", len(files)),
		attribute.String("mode", opts.Mode.String()),
	)
	start := time.Now()

	var tracker *parallel.ProgressTracker
	if opts.Progress != nil {
		tracker = parallel.NewProgressTracker(int64(len(files)), opts.Progress, time.Second)
		tracker.Start(ctx)
		defer tracker.Stop()
	}

	pool := parallel.NewWorkerPool[string, *Result](parallel.DefaultPoolConfig().WithWorkers(opts.Workers))
	results := pool.ExecuteFunc(ctx, files, func(ctx context.Context, file string) (*Result, error) {
		if tracker != nil {
			defer tracker.Increment()
		}
		return p.processFile(ctx, file, opts.Mode, opts.Filter)
	})

	sum := &Summary{Files: len(files), Results: make([]*Result, 0, len(results))}
	var firstErr error
	for _, r := range results {
		res := r.Result
		if res == nil {
			// Never started.
			res = &Result{File: r.Input, Mode: opts.Mode}
			if r.Error != nil {
				res.ErrorCode = apperrors.GetErrorCode(r.Error)
				res.Error = r.Error.Error()
			}
		}
		switch {
		case r.Error != nil:
			sum.Failed++
			if firstErr == nil {
				firstErr = r.Error
			}
			p.logger.Warn("%s: %v", r.Input, r.Error)
		case res.Filtered:
			sum.Filtered++
		case res.Skipped:
			sum.Skipped++
		case res.Output != "":
			sum.Written++
		}
		sum.Removed += res.Removed()
		sum.Results = append(sum.Results, res)
	}
	sum.Duration = time.Since(start)

	span.SetAttributes(
		attribute.Int("written", sum.Written),
		attribute.Int("failed", sum.Failed),
	)
	telemetry.EndSpan(span, firstErr)

	p.logger.Info("batch %s: %d files, %d written, %d skipped, %d filtered, %d failed in %v",
		opts.Mode, sum.Files, sum.Written, sum.Skipped, sum.Filtered, sum.Failed, sum.Duration)
	return sum, firstErr
}
