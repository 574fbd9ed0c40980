package cli

import (
	"fmt"
	"io"
	"os"

	"aircraft_logger/internal/config"
	"aircraft_logger/internal/database"
	"aircraft_logger/internal/logging"
	"aircraft_logger/internal/records"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
	Format     string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the aircraft-logger CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "aircraft-logger",
		Short: "Aircraft Product Logger",
		Long:  "Log aircraft work records with pictures, locally, and browse them from a web UI.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to config file (YAML)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// loadConfig reads configuration and installs the logger. Logs go to logW so
// they never mix with command output.
func loadConfig(opts *RootOptions, logW io.Writer) (*config.Config, error) {
	if opts.ConfigPath != "" {
		os.Setenv(config.ConfigPathEnv, opts.ConfigPath)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load configuration", err)
	}

	level := cfg.Log.Level
	if opts.Verbose {
		level = "debug"
	}
	logging.Init(logW, level, cfg.Log.Format)

	return cfg, nil
}

// store is an open database with the record service on top of it
type store struct {
	db      *database.DB
	records *records.Service
}

func openStore(opts *RootOptions, cmd *cobra.Command) (*config.Config, *store, error) {
	cfg, err := loadConfig(opts, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}

	db, err := database.New(cfg.DBPath)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	return cfg, &store{db: db, records: records.NewService(db.Records())}, nil
}

func (s *store) Close() {
	if err := s.db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "error closing database: %v\n", err)
	}
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
