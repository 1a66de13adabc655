package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/stripclass/internal/history"
	"github.com/stripclass/internal/stripper"
	"github.com/stripclass/pkg/config"
	apperrors "github.com/stripclass/pkg/errors"
	"github.com/stripclass/pkg/pprof"
	"github.com/stripclass/pkg/telemetry"
	"github.com/stripclass/pkg/utils"
)

var (
	// Global flags
	verbose    bool
	configPath string
	logLevel   string

	// Profiling flags
	pprofDir      string
	pprofProfiles string

	// Mode selectors for running without a subcommand
	legacyDump  bool
	legacyWrite bool
	legacyPrune bool

	cfg       *config.Config
	logger    utils.Logger = &utils.NullLogger{}
	logCloser io.Closer
	shutdown  telemetry.ShutdownFunc
	profiler  *pprof.Session
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "stripclass [flags] <class-file>...",
	Short: "Strip Java class files down to their public skeleton",
	Long: `stripclass reads compiled Java class files and writes a reduced copy.

Pruning drops private and package-private members, removes debug
attributes, replaces method bodies with minimal stubs and then compacts the
constant pool until no unreferenced entry is left. The result is written
next to the input with a suffix (default .alt), and only for classes that
are public or abstract.

Running the command on a file without a subcommand prunes it.`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeConfigError, "failed to load configuration", err)
		}
		cfg = loaded

		level := utils.ParseLogLevel(cfg.Log.Level)
		if logLevel != "" {
			level = utils.ParseLogLevel(logLevel)
		}
		if verbose {
			level = utils.LevelDebug
		}
		if cfg.Log.OutputPath != "" {
			fileLogger, closer, err := utils.NewFileLogger(level, cfg.Log.OutputPath)
			if err != nil {
				return apperrors.Wrap(apperrors.CodeConfigError, "failed to open log file", err)
			}
			logger, logCloser = fileLogger, closer
		} else {
			logger = utils.NewDefaultLogger(level, cmd.ErrOrStderr())
		}

		shutdown, err = telemetry.Init(cmd.Context(), telemetry.LoadFromEnv())
		if err != nil {
			logger.Warn("tracing disabled: %v", err)
		}

		if pprofDir != "" {
			types, err := pprof.ParseProfileTypes(pprofProfiles)
			if err != nil {
				return apperrors.Wrap(apperrors.CodeInvalidInput, "invalid --pprof-profiles", err)
			}
			profiler, err = pprof.Start(pprof.Config{Dir: pprofDir, Profiles: types})
			if err != nil {
				return apperrors.Wrap(apperrors.CodeIOError, "failed to start profiling", err)
			}
			logger.Debug("profiling %v into %s", types, pprofDir)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		cleanup()
		return nil
	},
	RunE: runRoot,
}

// Execute adds all child commands to the root command and runs it. Any
// error is printed to stderr and exits with status 1.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		cleanup()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging and symbolic names in dumps")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: stripclass.yaml in ., ./configs, $HOME/.stripclass)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&pprofDir, "pprof-dir", "", "Write runtime profiles of this run to the directory")
	rootCmd.PersistentFlags().StringVar(&pprofProfiles, "pprof-profiles", "cpu,heap", "Comma-separated profiles: cpu,heap,goroutine,block,mutex,allocs")

	rootCmd.Flags().BoolVarP(&legacyDump, "dump", "d", false, "Dump the class instead of pruning it")
	rootCmd.Flags().BoolVarP(&legacyWrite, "write", "w", false, "Re-encode the class without pruning")
	rootCmd.Flags().BoolVarP(&legacyPrune, "prune", "p", false, "Prune the class (default)")
	rootCmd.MarkFlagsMutuallyExclusive("dump", "write", "prune")

	binName := BinName()
	rootCmd.Example = `  # Prune a class, writing Foo.class.alt
  ` + binName + ` Foo.class

  # Print the class structure with symbolic names
  ` + binName + ` dump -v Foo.class

  # Prune every class under a directory with 8 workers
  ` + binName + ` batch --workers 8 ./build/classes

  # Profile a large batch
  ` + binName + ` batch --pprof-dir ./pprof --pprof-profiles cpu,heap,allocs ./build/classes`
}

// BinName returns the base name of the current executable
func BinName() string {
	return filepath.Base(os.Args[0])
}

// GetLogger returns the configured logger
func GetLogger() utils.Logger {
	return logger
}

func runRoot(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return apperrors.New(apperrors.CodeInvalidInput, "no class file specified!")
	}
	mode := stripper.ModePrune
	switch {
	case legacyDump:
		mode = stripper.ModeDump
	case legacyWrite:
		mode = stripper.ModeWrite
	}
	return processFiles(cmd, mode, args, false)
}

// processFiles runs each file through mode in order and stops at the first
// failure.
func processFiles(cmd *cobra.Command, mode stripper.Mode, files []string, jsonDump bool) error {
	p, closeAll, err := newProcessor(cmd, jsonDump)
	if err != nil {
		return err
	}
	defer closeAll()

	for _, file := range files {
		if _, err := p.ProcessFile(cmd.Context(), file, mode); err != nil {
			return err
		}
	}
	return nil
}

// newProcessor builds a processor over the configured history store. The
// returned func releases both.
func newProcessor(cmd *cobra.Command, jsonDump bool) (*stripper.Processor, func(), error) {
	store := openHistory(cmd.Context())
	p, err := stripper.NewProcessor(&stripper.ProcessorConfig{
		Config:  cfg,
		History: store,
		Logger:  logger,
		Stdout:  cmd.OutOrStdout(),
		Verbose: verbose,
		JSON:    jsonDump,
	})
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return p, func() {
		p.Close()
		if err := store.Close(); err != nil {
			logger.Warn("failed to close history store: %v", err)
		}
	}, nil
}

// openHistory opens the configured run history. A store that cannot be
// opened is logged and replaced by one that discards records.
func openHistory(ctx context.Context) history.Store {
	store, err := history.Open(ctx, &cfg.History)
	if err != nil {
		logger.Warn("run history unavailable: %v", err)
		return history.Discard
	}
	return store
}

func cleanup() {
	if profiler != nil {
		if err := profiler.Stop(); err != nil {
			logger.Warn("failed to write profiles: %v", err)
		}
		logger.Info("profiles written to %s", profiler.Dir())
		profiler = nil
	}
	if shutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := shutdown(ctx); err != nil {
			logger.Warn("failed to flush traces: %v", err)
		}
		cancel()
		shutdown = nil
	}
	if logCloser != nil {
		logCloser.Close()
		logCloser = nil
	}
}
