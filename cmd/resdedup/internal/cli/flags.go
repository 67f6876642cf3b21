package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/plugindist/resdedup/cmd/resdedup/internal/detect"
	"github.com/plugindist/resdedup/cmd/resdedup/internal/fingerprint"
	"github.com/plugindist/resdedup/cmd/resdedup/internal/runner"
	"github.com/plugindist/resdedup/internal/log"
	"github.com/plugindist/resdedup/pkg/config"
)

// algorithmValue is a pflag.Value accepting digest algorithm names.
type algorithmValue struct {
	algo fingerprint.Algorithm
}

var _ pflag.Value = (*algorithmValue)(nil)

func (a *algorithmValue) String() string {
	return string(a.algo)
}

func (a *algorithmValue) Set(s string) error {
	algo, err := fingerprint.ParseAlgorithm(s)
	if err != nil {
		return err
	}
	a.algo = algo
	return nil
}

func (a *algorithmValue) Type() string {
	return "algorithm"
}

// pipelineFlags are the flags shared by every command that reads the
// build output. Each one overrides the matching config value when set.
type pipelineFlags struct {
	source    string
	output    string
	manifest  string
	algorithm algorithmValue
	workers   int
	allowWeak bool
	versions  []string
	dirs      map[string]string
}

func addPipelineFlags(cmd *cobra.Command, f *pipelineFlags) {
	algos := make([]string, 0, len(fingerprint.Algorithms()))
	for _, a := range fingerprint.Algorithms() {
		algos = append(algos, string(a))
	}

	flags := cmd.Flags()
	flags.StringVar(&f.source, "source", "",
		"Directory holding one subdirectory per version")
	flags.StringVarP(&f.output, "output", "o", "",
		"Resource store directory")
	flags.StringVar(&f.manifest, "manifest", "",
		"Manifest file name inside the resource store")
	flags.Var(&f.algorithm, "algorithm",
		fmt.Sprintf("Digest algorithm (%s)", strings.Join(algos, ", ")))
	flags.IntVarP(&f.workers, "workers", "j", 0,
		"Concurrent hashing and copying (0 = one per CPU)")
	flags.BoolVar(&f.allowWeak, "allow-weak", false,
		"Allow digest algorithms that are not collision-resistant")
	flags.StringSliceVar(&f.versions, "versions", nil,
		"Versions that must be present (comma-separated)")
	flags.StringToStringVar(&f.dirs, "dir", nil,
		"Explicit version directory as version=path (repeatable); disables discovery")
}

// loadConfig loads the layered configuration, honoring --config.
func loadConfig(g *globalFlags) (*config.Config, error) {
	if g.configPath != "" {
		return config.LoadFile(g.configPath)
	}
	return config.Load()
}

// newRunner loads configuration, applies the command's flags and creates a
// runner.
func newRunner(cmd *cobra.Command, g *globalFlags, f *pipelineFlags) (*runner.Runner, error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, err
	}

	// CLI flags override config
	flags := cmd.Flags()
	if flags.Changed("source") {
		cfg.Source.Root = f.source
	}
	if flags.Changed("output") {
		cfg.Output.Dir = f.output
	}
	if flags.Changed("manifest") {
		cfg.Output.Manifest = f.manifest
	}
	if flags.Changed("algorithm") {
		cfg.Hash.Algorithm = f.algorithm.String()
	}
	if flags.Changed("workers") {
		cfg.Hash.Workers = &f.workers
	}
	if flags.Changed("allow-weak") {
		cfg.Hash.AllowWeak = &f.allowWeak
	}
	if flags.Changed("versions") {
		cfg.Source.Versions = f.versions
	}

	var opts []runner.Option
	if len(f.dirs) > 0 {
		dirs, err := detect.ParseVersionDirs(f.dirs)
		if err != nil {
			return nil, err
		}
		opts = append(opts, runner.WithVersionDirs(dirs))
	}

	log.Debug("configuration loaded", "source", cfg.Source.Root, "output", cfg.Output.Dir,
		"algorithm", cfg.Hash.Algorithm, "workers", cfg.WorkerCount())
	return runner.New(cfg, opts...)
}
