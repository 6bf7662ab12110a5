package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/stagegrid/internal/app"
	"github.com/vk/stagegrid/internal/cmdline"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes the global options and the command name. The command's own
// arguments are left for the workflow parser. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("stagegrid", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
stagegrid - Run pipelines of parameterized stages.

Usage:
  stagegrid [options] run [--storage LOCATION] [-d NAME VALUE]... [-m REGISTRY] WORKFLOW...
  stagegrid [options] freeze OUTPUT [--storage LOCATION] [-d NAME VALUE]... WORKFLOW...
  stagegrid [options] list [STAGE...]

Arguments:
  WORKFLOW
    Stage names each followed by their flags, or one .json/.yaml workflow document.

Options:
`)
		flagSet.PrintDefaults()
	}

	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	registryFlag := flagSet.String("registry", "", "Default stage registry to search.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	if flagSet.NArg() == 0 {
		slog.Debug("No command provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	cfg := app.Config{
		Command:   flagSet.Arg(0),
		Args:      flagSet.Args()[1:],
		Registry:  *registryFlag,
		LogFormat: logFormat,
		LogLevel:  logLevel,
	}
	if cfg.Command == app.CommandFreeze && len(cfg.Args) > 0 {
		cfg.Output, cfg.Args = cfg.Args[0], cfg.Args[1:]
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(cfg)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "command", config.Command)
	return config, false, nil
}

// AsExitError maps errors returned by the application to an exit status:
// malformed command lines exit with 2 and every other failure with 1.
func AsExitError(err error) *ExitError {
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	var cmdErr *cmdline.Error
	if errors.As(err, &cmdErr) {
		return &ExitError{Code: 2, Message: err.Error()}
	}
	return &ExitError{Code: 1, Message: err.Error()}
}
