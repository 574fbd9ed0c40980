package cli

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"aircraft_logger/internal/models"
	"aircraft_logger/internal/records"

	"github.com/spf13/cobra"
)

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	var search string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List records, newest first",
		Long: `List stored records, newest first.

--search keeps only records whose A/C#, Monument# or MO# contains the
term, ignoring case.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(rootOpts, cmd, search)
		},
	}

	cmd.Flags().StringVarP(&search, "search", "s", "", "filter by A/C#, Monument# or MO#")

	return cmd
}

func runList(opts *RootOptions, cmd *cobra.Command, search string) error {
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
	formatter.VerboseLog("Found %d record(s)", len(recs))

	return formatter.Success(recs, func(w io.Writer) error {
		return writeTable(w, recs)
	})
}

// writeTable prints one aligned row per record
func writeTable(w io.Writer, recs []*models.Record) error {
	if len(recs) == 0 {
		_, err := fmt.Fprintln(w, "No records found.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tMODEL\tA/C#\tMO#\tMONUMENT#\tSTART\tFINISH\tPICTURES")
	for _, r := range recs {
		mo := r.MONumber
		if !r.HasMONumber() {
			mo = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
			r.ID, r.AircraftModel, r.ACNumber, mo, r.MonumentNumber,
			r.StartDate, r.FinishDate, len(r.Pictures))
	}
	return tw.Flush()
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(rootOpts, cmd, args[0])
		},
	}
}

func runShow(opts *RootOptions, cmd *cobra.Command, id string) error {
	formatter := newFormatter(opts, cmd)

	_, st, err := openStore(opts, cmd)
	if err != nil {
		return formatter.Fail(err)
	}
	defer st.Close()

	rec, err := st.records.Get(cmd.Context(), id)
	if errors.Is(err, records.ErrNotFound) {
		return formatter.Fail(NewExitError(ExitFailure, fmt.Sprintf("record %s not found", id)))
	}
	if err != nil {
		return formatter.Fail(WrapExitError(ExitCommandError, "failed to load record", err))
	}

	return formatter.Success(rec, func(w io.Writer) error {
		return writeDetail(w, rec)
	})
}

func writeDetail(w io.Writer, r *models.Record) error {
	orNone := func(s, none string) string {
		if s == "" {
			return none
		}
		return s
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%s\n", r.ID)
	fmt.Fprintf(tw, "Aircraft Model:\t%s\n", r.AircraftModel)
	fmt.Fprintf(tw, "A/C#:\t%s\n", r.ACNumber)
	fmt.Fprintf(tw, "MO#:\t%s\n", orNone(r.MONumber, "N/A"))
	fmt.Fprintf(tw, "Monument#:\t%s\n", r.MonumentNumber)
	fmt.Fprintf(tw, "Start Date:\t%s\n", r.StartDate)
	fmt.Fprintf(tw, "Finish Date:\t%s\n", r.FinishDate)
	fmt.Fprintf(tw, "Issues:\t%s\n", orNone(r.Issues, "No issues reported."))
	fmt.Fprintf(tw, "Notes:\t%s\n", orNone(r.Notes, "No notes added."))
	fmt.Fprintf(tw, "Created:\t%s\n", r.CreatedAt.UTC().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(tw, "Pictures:\t%d\n", len(r.Pictures))
	for _, p := range r.Pictures {
		fmt.Fprintf(tw, "\t%s (%s)\n", p.Name, p.ID)
	}
	return tw.Flush()
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a record permanently",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(rootOpts, cmd, args[0])
		},
	}
}

func runDelete(opts *RootOptions, cmd *cobra.Command, id string) error {
	formatter := newFormatter(opts, cmd)

	_, st, err := openStore(opts, cmd)
	if err != nil {
		return formatter.Fail(err)
	}
	defer st.Close()

	if err := st.records.Delete(cmd.Context(), id); err != nil {
		return formatter.Fail(WrapExitError(ExitCommandError, "failed to delete record", err))
	}

	return formatter.Success(map[string]string{"deleted": id}, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "Deleted record %s\n", id)
		return err
	})
}
