package cmd

import (
	"github.com/spf13/cobra"

	"github.com/stripclass/internal/stripper"
)

var dumpJSON bool

var dumpCmd = &cobra.Command{
	Use:   "dump <class-file>...",
	Short: "Print the structure and disassembled code of class files",
	Long: `Print a class file's constant pool with reference counts, its fields,
methods and attributes, and disassembled bytecode.

With -v pool indices are resolved to the names they point at. With --json
the same model is printed as a JSON document.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return processFiles(cmd, stripper.ModeDump, args, dumpJSON)
	},
}

var pruneCmd = &cobra.Command{
	Use:   "prune <class-file>...",
	Short: "Prune class files and write the reduced copies",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return processFiles(cmd, stripper.ModePrune, args, false)
	},
}

var writeCmd = &cobra.Command{
	Use:   "write <class-file>...",
	Short: "Re-encode class files without pruning",
	Long: `Decode and re-encode class files unchanged. The output is byte-identical
to the input, which makes this a check of the codec.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return processFiles(cmd, stripper.ModeWrite, args, false)
	},
}

func init() {
	rootCmd.AddCommand(dumpCmd, pruneCmd, writeCmd)

	dumpCmd.Flags().BoolVar(&dumpJSON, "json", false, "Print the class model as JSON")

	binName := BinName()
	dumpCmd.Example = `  ` + binName + ` dump Foo.class
  ` + binName + ` dump --json Foo.class.gz`
	pruneCmd.Example = `  ` + binName + ` prune Foo.class Bar.class
  ` + binName + ` prune --config ./stripclass.yaml Foo.class`
}
