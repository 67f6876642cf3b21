package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plugindist/resdedup/cmd/resdedup/internal/dedup"
)

type restoreFlags struct {
	pipelineFlags
	version string
	dest    string
}

func newRestoreCmd(g *globalFlags) *cobra.Command {
	f := &restoreFlags{}
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Reconstruct one version's files from the resources",
		Long: `Extracts the files of one version from the resource directory, the same
way the installer does, into the destination directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRestore(cmd, g, f)
		},
	}

	addPipelineFlags(cmd, &f.pipelineFlags)
	cmd.Flags().StringVar(&f.version, "version", "",
		"Version to restore")
	cmd.Flags().StringVar(&f.dest, "dest", "",
		"Destination directory")
	_ = cmd.MarkFlagRequired("version")
	_ = cmd.MarkFlagRequired("dest")
	return cmd
}

func runRestore(cmd *cobra.Command, g *globalFlags, f *restoreFlags) error {
	r, err := newRunner(cmd, g, &f.pipelineFlags)
	if err != nil {
		return err
	}
	files, err := r.Restore(dedup.VersionID(f.version), f.dest)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, name := range files {
		fmt.Fprintf(out, "  %s\n", name)
	}
	fmt.Fprintf(out, "Restored %d files for version %s to %s\n", len(files), f.version, f.dest)
	return nil
}
