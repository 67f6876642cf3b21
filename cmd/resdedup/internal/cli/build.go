package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

type buildFlags struct {
	pipelineFlags
	check bool
}

func newBuildCmd(g *globalFlags) *cobra.Command {
	f := &buildFlags{}
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Write the deduplicated resources and manifest",
		Long: `Scans every version directory, stores each distinct file once in the
resource directory and writes the manifest next to the resources.

The resource directory is rebuilt from scratch on every run. It is replaced
only after all resources were written, so a failed build leaves the previous
output in place.

The --check flag can be used in CI to verify the manifest is up to date
without writing anything (exit 1 if it would change).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, g, f)
		},
	}

	addPipelineFlags(cmd, &f.pipelineFlags)
	cmd.Flags().BoolVar(&f.check, "check", false,
		"Check if the manifest is up to date (exit 1 if changes needed)")
	return cmd
}

func runBuild(cmd *cobra.Command, g *globalFlags, f *buildFlags) error {
	r, err := newRunner(cmd, g, &f.pipelineFlags)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if f.check {
		res, err := r.Check(cmd.Context())
		if err != nil {
			return err
		}
		if !res.UpToDate() {
			fmt.Fprint(out, res.Diff)
			return errStale
		}
		fmt.Fprintln(out, "Resources are up to date")
		return nil
	}

	res, err := r.Build(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Wrote %d resources for %d versions to %s\n",
		len(res.Plan.Entries), len(res.Plan.Versions), res.OutputDir)
	fmt.Fprintf(out, "Manifest: %s\n", res.ManifestPath)
	fmt.Fprintln(out, res.Plan.Stats.String())
	return nil
}
