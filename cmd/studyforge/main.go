// Command studyforge generates synthetic DICOM studies from job files.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mrsinham/studyforge/internal/failure"
)

// version is set at build time via -ldflags
var version = "1.1.0"

// app holds the state shared by every command of one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer

	verbose   bool
	quiet     bool
	logFile   string
	templates string
	patients  string
	catalog   string
	workers   int

	logger *zap.Logger
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "studyforge",
		Short: "Generate synthetic DICOM studies for testing imaging systems",
		Long: `studyforge writes complete, internally consistent DICOM studies from a
YAML job description: one patient, one study, any number of series.

Files can be written to a directory or to an s3://bucket/prefix location,
optionally recorded in a SQLite catalog.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := a.buildLogger()
			if err != nil {
				return &failure.ConfigurationError{Msg: fmt.Sprintf("Failed to initialize logger: %v", err), Err: err}
			}
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	flags := root.PersistentFlags()
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	flags.BoolVarP(&a.quiet, "quiet", "q", false, "Only log warnings and errors, hide the progress bar")
	flags.StringVar(&a.logFile, "log-file", "", "Also write logs to this file")
	flags.StringVar(&a.templates, "templates", "", "Template directory (default: built-in templates)")
	flags.StringVar(&a.patients, "patients", "patients.yaml", "Patient master file used by quick")
	flags.StringVar(&a.catalog, "catalog", "", "Record written files in this SQLite catalog")
	flags.IntVar(&a.workers, "workers", 0, "Concurrent writers (default: one per CPU)")

	root.AddCommand(
		newGenerateCmd(a),
		newValidateCmd(a),
		newQuickCmd(a),
		newCatalogCmd(a),
		newVersionCmd(a),
	)
	return root
}

func (a *app) buildLogger() (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	switch {
	case a.verbose:
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case a.quiet:
		config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}
	if a.logFile != "" {
		config.OutputPaths = append(config.OutputPaths, a.logFile)
	}
	return config.Build()
}

// run executes the command line and returns the process exit status.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr}
	root := newRootCmd(a)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return failure.KindOf(err).ExitCode()
	}
	return 0
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
