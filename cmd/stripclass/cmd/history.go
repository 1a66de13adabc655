package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/stripclass/internal/history"
	apperrors "github.com/stripclass/pkg/errors"
	"github.com/stripclass/pkg/writer"
)

var (
	historyLimit int
	historyJSON  bool
	historyFile  string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent runs from the history store",
	Long: `List the most recent runs recorded in the history store, newest first.

The store is configured in the history section of the config file and must
be enabled. With --file only the runs for that input path are listed.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs to list (0 for all)")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Print runs as JSON")
	historyCmd.Flags().StringVarP(&historyFile, "file", "f", "", "Only list runs for this input path")
}

func runHistory(cmd *cobra.Command, args []string) error {
	if !cfg.History.Enabled {
		return apperrors.New(apperrors.CodeConfigError, "run history is disabled (set history.enabled)")
	}

	store, err := history.Open(cmd.Context(), &cfg.History)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeDatabaseError, "failed to open run history", err)
	}
	defer store.Close()

	var runs []history.Run
	if historyFile != "" {
		runs, err = store.ListByFile(cmd.Context(), historyFile)
		if err == nil && historyLimit > 0 && len(runs) > historyLimit {
			runs = runs[:historyLimit]
		}
	} else {
		runs, err = store.List(cmd.Context(), historyLimit)
	}
	if err != nil {
		return apperrors.Wrap(apperrors.CodeDatabaseError, "failed to list runs", err)
	}

	out := cmd.OutOrStdout()
	if historyJSON {
		return writer.NewPrettyJSONWriter[[]history.Run]().Write(runs, out)
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIME\tMODE\tCLASS\tPOOL\tREMOVED\tMS\tRESULT")
	for _, r := range runs {
		result := r.Output
		switch {
		case r.Failed():
			result = r.ErrorCode
		case result == "":
			result = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d->%d\t%d\t%d\t%s\n",
			r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Mode, r.ClassName,
			r.PoolBefore, r.PoolAfter, r.Removed, r.DurationMs, result)
	}
	return tw.Flush()
}
