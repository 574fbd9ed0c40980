package cli

import (
	"fmt"
	"io"
	"os"

	"aircraft_logger/internal/export"

	"github.com/spf13/cobra"
)

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	var batchSize int

	cmd := &cobra.Command{
		Use:   "import <csv-file>...",
		Short: "Import records from CSV files",
		Long: `Import records from one or more CSV files.

The header row names the columns: aircraftModel, acNumber, moNumber,
monumentNumber, startDate, finishDate, issues, notes. Rows that fail
validation are skipped and logged. Each batch is written in one
transaction.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(rootOpts, cmd, args, batchSize)
		},
	}

	cmd.Flags().IntVar(&batchSize, "batch-size", 500, "records per transaction")

	return cmd
}

func runImport(opts *RootOptions, cmd *cobra.Command, paths []string, batchSize int) error {
	formatter := newFormatter(opts, cmd)

	_, st, err := openStore(opts, cmd)
	if err != nil {
		return formatter.Fail(err)
	}
	defer st.Close()

	formatter.VerboseLog("Importing %d file(s) with batch size %d", len(paths), batchSize)
	n, err := st.records.ImportCSV(cmd.Context(), paths, batchSize)
	if err != nil {
		return formatter.Fail(WrapExitError(ExitCommandError, "import failed", err))
	}

	return formatter.Success(map[string]int{"imported": n}, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "Imported %d record(s)\n", n)
		return err
	})
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		out    string
		search string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export records to an XLSX spreadsheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(rootOpts, cmd, out, search)
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (required)")
	cmd.Flags().StringVarP(&search, "search", "s", "", "export only matching records")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

func runExport(opts *RootOptions, cmd *cobra.Command, out, search string) error {
	formatter := newFormatter(opts, cmd)

	_, st, err := openStore(opts, cmd)
	if err != nil {
		return formatter.Fail(err)
	}
	defer st.Close()

	recs, err := st.records.List(cmd.Context(), search)
	if err != nil {
		return formatter.Fail(WrapExitError(ExitCommandError, "failed to load records", err))
	}

	f, err := os.Create(out)
	if err != nil {
		return formatter.Fail(WrapExitError(ExitCommandError, "failed to create output file", err))
	}
	if err := export.WriteXLSX(f, recs); err != nil {
		f.Close()
		return formatter.Fail(WrapExitError(ExitCommandError, "failed to write spreadsheet", err))
	}
	if err := f.Close(); err != nil {
		return formatter.Fail(WrapExitError(ExitCommandError, "failed to write spreadsheet", err))
	}

	result := map[string]any{"exported": len(recs), "path": out}
	return formatter.Success(result, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "Exported %d record(s) to %s\n", len(recs), out)
		return err
	})
}
