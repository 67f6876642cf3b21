package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/plugindist/resdedup/cmd/resdedup/internal/dedup"
)

type planFlags struct {
	pipelineFlags
	format string
}

// PlanOutput is the structured output format for resdedup plan.
type PlanOutput struct {
	Versions []dedup.VersionID `json:"versions" yaml:"versions"`
	Stats    dedup.Stats       `json:"stats" yaml:"stats"`
	Entries  []dedup.Entry     `json:"entries" yaml:"entries"`
}

func newPlanCmd(g *globalFlags) *cobra.Command {
	f := &planFlags{}
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the resources a build would write",
		Long: `Scans and fingerprints every version directory and prints the resulting
resources without writing anything.

The --format flag selects text (default), json or yaml output.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPlan(cmd, g, f)
		},
	}

	addPipelineFlags(cmd, &f.pipelineFlags)
	cmd.Flags().StringVar(&f.format, "format", "text",
		"Output format (text, json, yaml)")
	return cmd
}

func runPlan(cmd *cobra.Command, g *globalFlags, f *planFlags) error {
	if err := validateOutputFormat(f.format); err != nil {
		return err
	}
	r, err := newRunner(cmd, g, &f.pipelineFlags)
	if err != nil {
		return err
	}
	plan, err := r.Plan(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch f.format {
	case "json":
		return outputJSON(out, PlanOutput{Versions: plan.Versions, Stats: plan.Stats, Entries: plan.Entries})
	case "yaml":
		return outputYAML(out, PlanOutput{Versions: plan.Versions, Stats: plan.Stats, Entries: plan.Entries})
	}
	return printPlan(out, plan)
}

func printPlan(out io.Writer, plan *dedup.Plan) error {
	fmt.Fprintf(out, "Versions (%d): %s\n\n", len(plan.Versions), dedup.JoinVersions(plan.Versions, ", "))

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RESOURCE\tFILE\tSCOPE\tVERSIONS")
	for _, e := range plan.Entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.ResourceName, e.Filename, e.Scope, dedup.JoinVersions(e.Versions, ","))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "\n%s\n", plan.Stats.String())
	return nil
}
