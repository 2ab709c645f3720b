package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sort"

	"github.com/spf13/cobra"

	"github.com/specialistvlad/tsflow/internal/app"
	"github.com/specialistvlad/tsflow/internal/config"
	"github.com/specialistvlad/tsflow/internal/report"
)

// Exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(format string, args ...any) error {
	return &ExitError{Code: ExitUsage, Message: fmt.Sprintf(format, args...)}
}

// Execute runs the command line in args, writing output and logs to outW.
func Execute(ctx context.Context, args []string, outW io.Writer) error {
	root := NewRootCommand(outW)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// NewRootCommand builds the tsflow command tree.
func NewRootCommand(outW io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "tsflow",
		Short: "Run time series processing command files",
		Long: `tsflow runs command files: one command per line, executed in order
against a shared set of properties and time series results.

A directory argument runs every *.tsflow file below it in lexical order.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(outW)
	root.SetErr(outW)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError("%v", err)
	})
	root.AddCommand(runCmd(outW), checkCmd(outW), commandsCmd(), versionCmd())
	return root
}

// runFlags are the flags shared by run and check.
type runFlags struct {
	configFile      string
	workingDir      string
	inputStart      string
	inputEnd        string
	properties      map[string]string
	logLevel        string
	logFormat       string
	healthcheckPort int
	progressURL     string
	reportPath      string
	from            int
	to              int
}

func (f *runFlags) register(cmd *cobra.Command, withRange bool) {
	fs := cmd.Flags()
	fs.StringVarP(&f.configFile, "config", "c", "", "Path to an HCL configuration file.")
	fs.StringVar(&f.workingDir, "working-dir", "", "Initial working directory. Defaults to the command file's directory.")
	fs.StringVar(&f.inputStart, "input-start", "", "Global InputStart, e.g. 2020-01-01.")
	fs.StringVar(&f.inputEnd, "input-end", "", "Global InputEnd, e.g. 2020-12-31.")
	fs.StringToStringVarP(&f.properties, "property", "p", nil, "Initial property as Name=Value. Repeatable.")
	fs.StringVar(&f.logLevel, "log-level", "", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	fs.StringVar(&f.logFormat, "log-format", "", "Log output format. Options: 'text' or 'json'.")
	fs.IntVar(&f.healthcheckPort, "healthcheck-port", 0, "Port for the HTTP health check and status server. 0 is disabled.")
	fs.StringVar(&f.progressURL, "progress-url", "", "Socket.IO server to publish progress events to.")
	fs.StringVar(&f.reportPath, "report", "", "Write a YAML run report to this file.")
	if withRange {
		fs.IntVar(&f.from, "from", 0, "Index of the first command to run.")
		fs.IntVar(&f.to, "to", 0, "Index after the last command to run. 0 runs to the end.")
	}
}

// config builds the validated application configuration. Flags take
// precedence over the configuration file.
func (f *runFlags) config(path string, checkOnly bool) (*app.Config, error) {
	cfg := app.Config{
		ScriptPath:      path,
		ConfigFile:      f.configFile,
		WorkingDir:      f.workingDir,
		InputStart:      f.inputStart,
		InputEnd:        f.inputEnd,
		Properties:      f.properties,
		LogLevel:        f.logLevel,
		LogFormat:       f.logFormat,
		HealthcheckPort: f.healthcheckPort,
		ProgressURL:     f.progressURL,
		ReportPath:      f.reportPath,
		From:            f.from,
		To:              f.to,
		CheckOnly:       checkOnly,
	}
	if f.configFile != "" {
		file, err := config.Load(f.configFile)
		if err != nil {
			return nil, usageError("%v", err)
		}
		cfg.MergeFile(file)
	}
	validated, err := app.NewConfig(cfg)
	if err != nil {
		return nil, usageError("%v", err)
	}
	slog.Debug("CLI configuration complete.", "script", validated.ScriptPath, "check", checkOnly)
	return validated, nil
}

func exactlyOnePath(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return usageError("%s requires exactly one command file or directory, got %d", cmd.Name(), len(args))
	}
	return nil
}

func runCmd(outW io.Writer) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run PATH",
		Short: "Run a command file or a directory of command files",
		Args:  exactlyOnePath,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.config(args[0], false)
			if err != nil {
				return err
			}
			return execute(cmd.Context(), outW, cfg)
		},
	}
	f.register(cmd, true)
	return cmd
}

func checkCmd(outW io.Writer) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "check PATH",
		Short: "Check command files and run discovery without processing data",
		Args:  exactlyOnePath,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.config(args[0], true)
			if err != nil {
				return err
			}
			return execute(cmd.Context(), outW, cfg)
		},
	}
	f.register(cmd, false)
	return cmd
}

// execute runs the application and maps the reports to an exit status.
func execute(ctx context.Context, outW io.Writer, cfg *app.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	reports, err := app.NewApp(outW, cfg).Run(ctx)
	printSummary(outW, reports)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return &ExitError{Code: ExitFailure, Message: "interrupted"}
		}
		return &ExitError{Code: ExitFailure, Message: err.Error()}
	}
	failed := 0
	for _, r := range reports {
		if !r.Success {
			failed++
		}
	}
	if failed > 0 {
		return &ExitError{Code: ExitFailure, Message: fmt.Sprintf("%d of %d command files failed", failed, len(reports))}
	}
	return nil
}

func printSummary(w io.Writer, reports []*report.Report) {
	for _, r := range reports {
		line := fmt.Sprintf("%s: %s (%d commands, %s)", r.Script, r.Severity, len(r.Commands), r.Duration)
		if r.FirstFailure != nil {
			line += fmt.Sprintf(", first failure at command %d", *r.FirstFailure)
		}
		if r.Canceled {
			line += ", canceled"
		}
		fmt.Fprintln(w, line)
	}
}

func commandsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "commands",
		Short: "List the available commands",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			reg := app.NewApp(io.Discard, &app.Config{LogLevel: "error"}).Registry()
			for _, name := range reg.Names() {
				cmd.Println(name)
			}
			legacy := reg.LegacyAliases()
			if len(legacy) == 0 {
				return
			}
			names := make([]string, 0, len(legacy))
			for old := range legacy {
				names = append(names, old)
			}
			sort.Strings(names)
			cmd.Println()
			cmd.Println("Deprecated names:")
			for _, old := range names {
				cmd.Printf("  %s -> %s\n", old, legacy[old])
			}
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print tsflow version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("tsflow %s (%s, %s/%s)\n", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
