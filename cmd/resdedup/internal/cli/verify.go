package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plugindist/resdedup/cmd/resdedup/internal/dedup"
)

type verifyFlags struct {
	pipelineFlags
	json bool
}

func newVerifyCmd(g *globalFlags) *cobra.Command {
	f := &verifyFlags{}
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that the resources reproduce every version exactly",
		Long: `Fingerprints the build output again and checks the existing resource
directory against it: every file of every version must be restorable from
exactly one resource with identical bytes, and the directory must hold
nothing besides the resources and the manifest.

Exits with status 4 when a problem is found.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVerify(cmd, g, f)
		},
	}

	addPipelineFlags(cmd, &f.pipelineFlags)
	cmd.Flags().BoolVar(&f.json, "json", false,
		"Output as JSON")
	return cmd
}

func runVerify(cmd *cobra.Command, g *globalFlags, f *verifyFlags) error {
	r, err := newRunner(cmd, g, &f.pipelineFlags)
	if err != nil {
		return err
	}
	report, err := r.Verify(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if f.json {
		if err := outputJSON(out, report); err != nil {
			return err
		}
	} else {
		for _, p := range report.Problems {
			fmt.Fprintf(out, "  ! %s\n", p)
		}
		if report.OK() {
			fmt.Fprintf(out, "Verified %d files across %d versions against %d resources\n",
				report.Files, report.Versions, report.Resources)
		}
	}

	if !report.OK() {
		return dedup.Invariantf("verification found %d problem(s)", len(report.Problems))
	}
	return nil
}
