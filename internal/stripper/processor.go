// Package stripper runs the per-file pipeline: load, decode, prune, compact,
// encode, store and record.
package stripper

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/stripclass/internal/classfile"
	"github.com/stripclass/internal/disasm"
	"github.com/stripclass/internal/history"
	"github.com/stripclass/internal/prune"
	"github.com/stripclass/internal/reachability"
	"github.com/stripclass/internal/storage"
	"github.com/stripclass/pkg/compression"
	"github.com/stripclass/pkg/config"
	apperrors "github.com/stripclass/pkg/errors"
	"github.com/stripclass/pkg/filter"
	"github.com/stripclass/pkg/telemetry"
	"github.com/stripclass/pkg/utils"
	"github.com/stripclass/pkg/writer"
)

// Writable are the class flags that allow an output file.
const Writable = classfile.AccPublic | classfile.AccAbstract

// ProcessorConfig holds processor configuration.
type ProcessorConfig struct {
	Config  *config.Config
	Storage storage.Storage
	History history.Store
	Logger  utils.Logger
	// Stdout receives dump output. Defaults to os.Stdout.
	Stdout io.Writer
	// Verbose resolves pool indices to symbols in dumps.
	Verbose bool
	// JSON renders dumps as a JSON document.
	JSON bool
}

// Processor runs one class file at a time through a mode. It is safe for
// concurrent use as long as Stdout is only written by dump runs, which
// batch never performs.
type Processor struct {
	config     *config.Config
	storage    storage.Storage
	history    history.Store
	logger     utils.Logger
	stdout     io.Writer
	verbose    bool
	json       bool
	endian     classfile.Endian
	compressor compression.Compressor
}

// Result describes one processed file.
type Result struct {
	File        string        `json:"file"`
	Mode        Mode          `json:"mode"`
	Class       string        `json:"class,omitempty"`
	Compression string        `json:"input_compression,omitempty"`
	PoolBefore  int           `json:"pool_before"`
	PoolAfter   int           `json:"pool_after"`
	Rounds      int           `json:"rounds,omitempty"`
	Prune       *prune.Report `json:"prune,omitempty"`

	// Output is the sink location written. Empty when nothing was stored.
	Output string `json:"output,omitempty"`

	// Skipped is set when the output policy declined to write the class.
	Skipped bool `json:"skipped,omitempty"`

	// Filtered is set when the class name filter excluded the class.
	Filtered bool `json:"filtered,omitempty"`

	Phases    map[string]int64 `json:"phases_ms,omitempty"`
	Duration  time.Duration    `json:"duration_ns"`
	ErrorCode string           `json:"error_code,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// Removed returns how many pool slots the run removed.
func (r *Result) Removed() int {
	return r.PoolBefore - r.PoolAfter
}

// NewProcessor creates a Processor. A nil Storage is built from the
// output config; a nil History discards records.
func NewProcessor(cfg *ProcessorConfig) (*Processor, error) {
	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = config.Default()
	}

	endian, err := classfile.ParseByteOrder(appCfg.Codec.ByteOrder)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfigError, "invalid codec byte order", err)
	}

	ctype, err := compression.ParseType(appCfg.Output.Compress)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfigError, "invalid output compression", err)
	}
	comp, err := compression.New(ctype)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeConfigError, "failed to create compressor", err)
	}

	sink := cfg.Storage
	if sink == nil {
		sink, err = storage.NewStorage(&appCfg.Output.Storage)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeStorageError, "failed to initialize storage", err)
		}
	}

	store := cfg.History
	if store == nil {
		store = history.Discard
	}

	stdout := cfg.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	return &Processor{
		config:     appCfg,
		storage:    sink,
		history:    store,
		logger:     utils.OrNull(cfg.Logger),
		stdout:     stdout,
		verbose:    cfg.Verbose,
		json:       cfg.JSON,
		endian:     endian,
		compressor: comp,
	}, nil
}

// Close releases the output compressor.
func (p *Processor) Close() {
	compression.Close(p.compressor)
}

// ProcessFile runs path through mode. The returned Result is non-nil
// whenever mode is valid, and carries the error code on failure.
func (p *Processor) ProcessFile(ctx context.Context, path string, mode Mode) (*Result, error) {
	return p.processFile(ctx, path, mode, nil)
}

func (p *Processor) processFile(ctx context.Context, path string, mode Mode, classes *filter.ClassFilter) (*Result, error) {
	info, ok := GetModeInfo(mode)
	if !ok {
		return nil, apperrors.New(apperrors.CodeInvalidInput, fmt.Sprintf("unknown mode %q (valid: %s)", mode, ValidModes()))
	}

	ctx, span := telemetry.StartSpan(ctx, "stripper.ProcessFile",
		attribute.String("file", path),
		attribute.String("mode", mode.String()),
	)
	log := p.logger.WithFields(map[string]interface{}{"file": path, "mode": mode})
	timer := utils.NewTimer(path, utils.WithLogger(log))

	res := &Result{File: path, Mode: mode}
	err := p.process(ctx, path, info, classes, res, timer, log)

	res.Duration = timer.Total()
	res.Phases = timer.Milliseconds()
	if err != nil {
		res.ErrorCode = apperrors.GetErrorCode(err)
		res.Error = err.Error()
	}
	span.SetAttributes(
		attribute.Int("pool.before", res.PoolBefore),
		attribute.Int("pool.after", res.PoolAfter),
		attribute.Bool("written", res.Output != ""),
	)
	telemetry.EndSpan(span, err)
	timer.Summary()

	p.record(ctx, res, log)
	return res, err
}

func (p *Processor) process(ctx context.Context, path string, info *ModeInfo, classes *filter.ClassFilter, res *Result, timer *utils.Timer, log utils.Logger) error {
	cf, err := p.load(ctx, path, res, timer, log)
	if err != nil {
		return err
	}
	if classes != nil && !classes.Match(res.Class) {
		log.Debug("filtered out %s", res.Class)
		res.Filtered = true
		return nil
	}
	res.PoolBefore = cf.Pool.Count()
	res.PoolAfter = res.PoolBefore

	if info.Mode == ModeDump {
		return timer.TimeFunc("dump", func() error { return p.dump(cf) })
	}

	if info.Prunes {
		if err := p.prune(ctx, cf, res, timer, log); err != nil {
			return err
		}
	}

	if !info.Writes {
		return nil
	}
	if cf.AccessFlags&Writable == 0 {
		log.Info("not writing %s: class is neither public nor abstract", res.Class)
		res.Skipped = true
		return nil
	}
	return p.store(ctx, cf, res, timer, log)
}

// load reads, decompresses and decodes path.
func (p *Processor) load(ctx context.Context, path string, res *Result, timer *utils.Timer, log utils.Logger) (*classfile.ClassFile, error) {
	_, span := telemetry.StartSpan(ctx, "stripper.load")
	defer span.End()
	defer timer.Start("read").Stop()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.CodeIOError, err, "unable to open class file %s", path)
	}

	data, ctype, err := compression.AutoDecompress(raw)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.CodeInvalidInput, err, "unable to decompress %s", path)
	}
	if ctype != compression.TypeNone {
		res.Compression = ctype.String()
		log.Debug("decompressed %s input: %d -> %d bytes", ctype, len(raw), len(data))
	}

	cf, err := classfile.Parse(data, &classfile.Options{Endian: p.endian, Logger: log})
	if err != nil {
		return nil, wrap(err, "unable to read class file %s", path)
	}

	name, err := cf.Name()
	if err != nil {
		return nil, wrap(err, "class file %s has no valid this_class", path)
	}
	res.Class = name
	return cf, nil
}

func (p *Processor) dump(cf *classfile.ClassFile) error {
	if err := reachability.Mark(cf); err != nil {
		return wrap(err, "unable to count references")
	}

	if p.json {
		view, err := disasm.Describe(cf)
		if err != nil {
			return wrap(err, "unable to describe class")
		}
		if err := writer.NewPrettyJSONWriter[*disasm.ClassView]().Write(view, p.stdout); err != nil {
			return apperrors.Wrap(apperrors.CodeIOError, "unable to write dump", err)
		}
		return nil
	}

	if err := disasm.NewPrinter(p.stdout, disasm.Options{Verbose: p.verbose}).PrintClass(cf); err != nil {
		return apperrors.Wrap(apperrors.CodeIOError, "unable to write dump", err)
	}
	return nil
}

func (p *Processor) prune(ctx context.Context, cf *classfile.ClassFile, res *Result, timer *utils.Timer, log utils.Logger) error {
	var report *prune.Report
	err := timer.TimeFunc("prune", func() error {
		var err error
		report, err = prune.Prune(cf, &prune.Options{Logger: log})
		return err
	})
	if err != nil {
		return wrap(err, "unable to prune %s", res.Class)
	}
	res.Prune = report

	var stats *reachability.Stats
	err = timer.TimeFunc("compact", func() error {
		var err error
		stats, err = reachability.Run(ctx, cf, &reachability.Options{
			Logger: log,
			Verify: p.config.Codec.Verify,
		})
		return err
	})
	if err != nil {
		return wrap(err, "unable to compact constant pool of %s", res.Class)
	}
	res.Rounds = stats.Rounds
	res.PoolAfter = stats.After
	return nil
}

// store encodes cf in memory and hands it to the sink in one Put, so a
// failed encode leaves no output behind.
func (p *Processor) store(ctx context.Context, cf *classfile.ClassFile, res *Result, timer *utils.Timer, log utils.Logger) error {
	var data []byte
	err := timer.TimeFunc("encode", func() error {
		var err error
		data, err = classfile.Encode(cf, &classfile.Options{Endian: p.endian, Logger: log})
		return err
	})
	if err != nil {
		return wrap(err, "unable to encode %s", res.Class)
	}

	if p.compressor.Type() != compression.TypeNone {
		data, err = p.compressor.Compress(data)
		if err != nil {
			return apperrors.Wrapf(apperrors.CodeIOError, err, "unable to compress %s", res.Class)
		}
	}

	key := p.config.OutputPath(res.File) + p.compressor.Type().Extension()
	ctx, span := telemetry.StartSpan(ctx, "stripper.store", attribute.String("key", key))
	defer timer.Start("write").Stop()

	err = p.storage.Put(ctx, key, data)
	telemetry.EndSpan(span, err)
	if err != nil {
		return apperrors.Wrapf(apperrors.CodeStorageError, err, "unable to write %s", key)
	}

	res.Output = p.storage.GetURL(key)
	log.Info("wrote %s (%d bytes, pool %d -> %d)", res.Output, len(data), res.PoolBefore, res.PoolAfter)
	return nil
}

// record stores res in the history. Failures are logged and never fail
// the file.
func (p *Processor) record(ctx context.Context, res *Result, log utils.Logger) {
	run := &history.Run{
		File:         res.File,
		Mode:         res.Mode.String(),
		ClassName:    res.Class,
		PoolBefore:   res.PoolBefore,
		PoolAfter:    res.PoolAfter,
		Rounds:       res.Rounds,
		Removed:      res.Removed(),
		Output:       res.Output,
		ErrorCode:    res.ErrorCode,
		ErrorMessage: res.Error,
		DurationMs:   res.Duration.Milliseconds(),
	}
	if err := p.history.Record(ctx, run); err != nil {
		log.Warn("failed to record run: %v", err)
	}
}
