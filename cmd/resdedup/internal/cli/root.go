// Package cli implements the resdedup command-line interface.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/plugindist/resdedup/cmd/resdedup/internal/dedup"
	"github.com/plugindist/resdedup/internal/log"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// Exit codes, one per failure class.
const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitMissingInput = 2
	ExitIO           = 3
	ExitInvariant    = 4
)

// errStale is returned by build --check when the output is out of date.
var errStale = errors.New("resources are out of date; run 'resdedup build' to update them")

// globalFlags holds persistent flags that apply to all commands
type globalFlags struct {
	verbosity  int
	logFormat  string
	configPath string
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "resdedup",
		Short: "Deduplicate per-version build output into an installer resource set",
		Long: `resdedup packs the build output of a multi-version plugin for its installer.

Every version directory under the source root is scanned for artifacts.
Files that are byte-identical across versions are stored once, under a
resource name that encodes which versions use them, and a manifest tells
the installer which resources to extract for each version:

  _common.<file>    identical in every version
  _<version>.<file> used by that version only, or first shipped in it

Use 'resdedup plan' to preview and 'resdedup build' to write the resources.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return log.Init(g.verbosity, g.logFormat, cmd.ErrOrStderr())
		},
		// Default behavior: show help
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	// Global flags (persistent across all commands)
	root.PersistentFlags().IntVarP(&g.verbosity, "verbosity", "v", log.VerbosityWarn,
		"Verbosity level (0=error, 1=warn, 2=info, 3=debug, 4=trace)")
	root.PersistentFlags().StringVar(&g.logFormat, "log-format", "text",
		"Log format (text, json)")
	root.PersistentFlags().StringVar(&g.configPath, "config", "",
		"Config file to use instead of searching for resdedup.toml")

	root.AddCommand(
		newBuildCmd(g),
		newPlanCmd(g),
		newVerifyCmd(g),
		newRestoreCmd(g),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "resdedup %s (%s)\n", Version, GitCommit)
		},
	}
}

// ExitCode maps an error returned by a command to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, dedup.ErrMissingInput):
		return ExitMissingInput
	case errors.Is(err, dedup.ErrIO):
		return ExitIO
	case errors.Is(err, dedup.ErrInvariantViolation):
		return ExitInvariant
	default:
		return ExitFailure
	}
}

// Execute runs the root command and exits with the code for its result.
func Execute() {
	root := NewRootCmd()
	err := root.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(ExitCode(err))
}

// RootCmd returns a fresh root command for testing.
func RootCmd() *cobra.Command {
	return NewRootCmd()
}
