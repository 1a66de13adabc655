package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stripclass/internal/stripper"
	apperrors "github.com/stripclass/pkg/errors"
	"github.com/stripclass/pkg/filter"
	"github.com/stripclass/pkg/writer"
)

var (
	// Batch command flags
	batchMode     string
	batchWorkers  int
	batchInclude  []string
	batchExclude  []string
	batchSkipJDK  bool
	batchReport   string
	batchProgress bool
)

var batchCmd = &cobra.Command{
	Use:   "batch <dir|class-file>...",
	Short: "Process many class files in parallel",
	Long: `Process every class file found under the given directories, plus any
files named directly, on a pool of workers.

Directories are walked for *.class, *.class.gz and *.class.zst. Classes can
be selected by internal name prefix; --include, --exclude and --skip-jdk
override the batch section of the config file. A failing file does not
stop the others, but makes the command exit with status 1.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	binName := BinName()
	batchCmd.Example = `  # Prune a build output tree
  ` + binName + ` batch ./build/classes

  # Only com/example, skipping the JDK, with a JSON report
  ` + binName + ` batch --include com/example/ --skip-jdk --report report.json ./classes

  # Round-trip check of every class
  ` + binName + ` batch --mode write ./classes`

	batchCmd.Flags().StringVarP(&batchMode, "mode", "m", "prune", "Mode: prune or write")
	batchCmd.Flags().IntVarP(&batchWorkers, "workers", "j", 0, "Number of workers (default from config)")
	batchCmd.Flags().StringSliceVar(&batchInclude, "include", nil, "Only process classes with these name prefixes")
	batchCmd.Flags().StringSliceVar(&batchExclude, "exclude", nil, "Skip classes with these name prefixes")
	batchCmd.Flags().BoolVar(&batchSkipJDK, "skip-jdk", false, "Skip JDK classes (java, javax, jdk, sun, com.sun)")
	batchCmd.Flags().StringVarP(&batchReport, "report", "r", "", "Write a JSON report (gzipped when the name ends in .gz)")
	batchCmd.Flags().BoolVar(&batchProgress, "progress", false, "Log progress every second")
}

func runBatch(cmd *cobra.Command, args []string) error {
	mode, err := stripper.ParseMode(batchMode)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInvalidInput, "invalid batch mode", err)
	}

	files, err := stripper.Collect(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return apperrors.New(apperrors.CodeInvalidInput, "no class files found")
	}

	opts := stripper.BatchOptions{
		Mode:    mode,
		Workers: cfg.Batch.Workers,
		Filter:  batchFilter(cmd),
	}
	if batchWorkers > 0 {
		opts.Workers = batchWorkers
	}
	if batchProgress {
		opts.Progress = func(completed, total int64) {
			logger.Info("progress: %d/%d files", completed, total)
		}
	}

	p, closeAll, err := newProcessor(cmd, false)
	if err != nil {
		return err
	}
	defer closeAll()

	logger.Debug("batch %s: %d files on %d workers", mode, len(files), opts.Workers)
	sum, batchErr := p.Batch(cmd.Context(), files, opts)
	if sum == nil {
		return batchErr
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d files: %d written, %d skipped, %d filtered, %d failed, %d pool entries removed (%v)\n",
		sum.Files, sum.Written, sum.Skipped, sum.Filtered, sum.Failed, sum.Removed, sum.Duration)

	if batchReport != "" {
		if err := writer.ForPath[*stripper.Summary](batchReport).WriteToFile(sum, batchReport); err != nil {
			return apperrors.Wrapf(apperrors.CodeIOError, err, "unable to write report %s", batchReport)
		}
		logger.Info("report written to %s", batchReport)
	}

	if batchErr != nil {
		return fmt.Errorf("%d of %d files failed, first: %w", sum.Failed, sum.Files, batchErr)
	}
	return nil
}

// batchFilter merges the filter flags over the config. It returns nil when
// no file would be excluded.
func batchFilter(cmd *cobra.Command) *filter.ClassFilter {
	fc := filter.Config{
		Include: cfg.Batch.Include,
		Exclude: cfg.Batch.Exclude,
		SkipJDK: cfg.Batch.SkipJDK,
	}
	flags := cmd.Flags()
	if flags.Changed("include") {
		fc.Include = batchInclude
	}
	if flags.Changed("exclude") {
		fc.Exclude = batchExclude
	}
	if flags.Changed("skip-jdk") {
		fc.SkipJDK = batchSkipJDK
	}
	if len(fc.Include) == 0 && len(fc.Exclude) == 0 && !fc.SkipJDK {
		return nil
	}
	return filter.NewClassFilter(fc)
}
