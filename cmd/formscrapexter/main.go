// cmd/formscrapexter/main.go
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	retry "github.com/valpere/FormScrapexter/internal/errors"
)

// Version information (set by build flags)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	app := newApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		os.Exit(handleError(os.Stderr, err, hasFlag("-v") || hasFlag("--verbose")))
	}
}

// handleError prints err for the terminal and returns the exit code
func handleError(w io.Writer, err error, verbose bool) int {
	var exit cli.ExitCoder
	if errors.As(err, &exit) {
		if msg := exit.Error(); msg != "" {
			fmt.Fprintln(w, msg)
		}
		return exit.ExitCode()
	}
	service := retry.NewService(retry.DefaultRetryConfig()).WithVerbose(verbose)
	fmt.Fprint(w, service.FormatErrorForCLI(err))
	return service.GetExitCode(err)
}

// hasFlag checks if a flag is present in command line arguments
func hasFlag(flag string) bool {
	for _, arg := range os.Args {
		if arg == flag {
			return true
		}
	}
	return false
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "formscrapexter",
		Usage:     "Locate registration form fields on web pages",
		Version:   version,
		Writer:    stdout,
		ErrWriter: stderr,
		// Errors are reported by main so exit codes follow the error service
		ExitErrHandler: func(*cli.Context, error) {},
		Commands: []*cli.Command{
			runCommand(),
			convertCommand(),
			validateCommand(),
			templateCommand(),
			versionCommand(),
		},
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Action: func(c *cli.Context) error {
			printVersion(c.App.Writer)
			return nil
		},
	}
}

// printVersion displays version information
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "FormScrapexter %s\n", version)
	fmt.Fprintf(w, "Build time: %s\n", buildTime)
	fmt.Fprintf(w, "Git commit: %s\n", gitCommit)
}
