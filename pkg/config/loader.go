package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// ConfigFileName is the name of the project-level config file.
const ConfigFileName = "resdedup.toml"

// ConfigDirName is the name of the project-level config directory.
const ConfigDirName = ".resdedup"

// GlobalConfigDir is the name of the global config directory inside user's config.
const GlobalConfigDir = "resdedup"

// Load loads configuration from all layers, searching for a project config
// from the working directory upward.
//
// CLI flags are applied separately after Load() returns.
func Load() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return LoadFrom(wd)
}

// LoadFrom loads configuration starting from a specific directory.
func LoadFrom(dir string) (*Config, error) {
	cfg := NewConfig()

	// Layer 2: Global user config
	globalCfg, err := loadGlobalConfig()
	if err != nil {
		return nil, err
	}
	cfg.Merge(globalCfg)

	// Layer 3: Project config from specified directory
	projectCfg, err := loadProjectConfigFrom(dir)
	if err != nil {
		return nil, err
	}
	cfg.Merge(projectCfg)

	// Layer 4: Environment variables
	if err := applyEnvironmentVariables(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFile loads configuration with an explicit file in place of the
// project config search. The file must exist.
func LoadFile(path string) (*Config, error) {
	cfg := NewConfig()

	globalCfg, err := loadGlobalConfig()
	if err != nil {
		return nil, err
	}
	cfg.Merge(globalCfg)

	fileCfg, err := loadConfigFile(path)
	if err != nil {
		return nil, err
	}
	if fileCfg == nil {
		return nil, fmt.Errorf("config file %s does not exist", path)
	}
	cfg.Merge(fileCfg)

	if err := applyEnvironmentVariables(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadGlobalConfig loads the global user configuration from ~/.config/resdedup/config.toml.
func loadGlobalConfig() (*Config, error) {
	path := GetGlobalConfigPath()
	if path == "" {
		return nil, nil
	}
	return loadConfigFile(path)
}

// loadProjectConfigFrom looks for project configuration starting from the
// given directory and walking up to the repository root.
func loadProjectConfigFrom(dir string) (*Config, error) {
	current := dir
	for {
		for _, path := range GetProjectConfigPaths(current) {
			cfg, err := loadConfigFile(path)
			if err != nil {
				return nil, err
			}
			if cfg != nil {
				return cfg, nil
			}
		}

		// Stop at filesystem root or repository root
		if isWorkspaceRoot(current) {
			break
		}

		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}

	return nil, nil
}

// isWorkspaceRoot checks if the directory is a repository root.
func isWorkspaceRoot(dir string) bool {
	markers := []string{".git", ".hg", ".svn"}
	for _, marker := range markers {
		if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
			return true
		}
	}
	return false
}

// loadConfigFile loads a configuration from a TOML file. A missing file
// yields (nil, nil); a file that exists but does not parse is an error.
// Relative paths inside the file are resolved against the directory the file
// configures: its own directory, or the parent of a .resdedup directory.
func loadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys in config file %s: %s", path, strings.Join(keys, ", "))
	}

	base := filepath.Dir(path)
	if filepath.Base(base) == ConfigDirName {
		base = filepath.Dir(base)
	}
	cfg.Source.Root = resolvePath(base, cfg.Source.Root)
	cfg.Output.Dir = resolvePath(base, cfg.Output.Dir)
	return &cfg, nil
}

func resolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// applyEnvironmentVariables applies RESDEDUP_* environment variables to the config.
func applyEnvironmentVariables(cfg *Config) error {
	if v := os.Getenv("RESDEDUP_SOURCE_ROOT"); v != "" {
		cfg.Source.Root = v
	}
	if v := os.Getenv("RESDEDUP_VERSION_PATTERN"); v != "" {
		cfg.Source.VersionPattern = v
	}

	// Comma-separated lists
	if v := os.Getenv("RESDEDUP_VERSIONS"); v != "" {
		cfg.Source.Versions = splitAndTrim(v)
	}
	if v := os.Getenv("RESDEDUP_KINDS"); v != "" {
		cfg.Source.Kinds = splitAndTrim(v)
	}
	if v := os.Getenv("RESDEDUP_PATTERNS"); v != "" {
		cfg.Source.Patterns = splitAndTrim(v)
	}
	if v := os.Getenv("RESDEDUP_REQUIRED"); v != "" {
		cfg.Source.Required = splitAndTrim(v)
	}

	if v := os.Getenv("RESDEDUP_OUTPUT_DIR"); v != "" {
		cfg.Output.Dir = v
	}
	if v := os.Getenv("RESDEDUP_MANIFEST"); v != "" {
		cfg.Output.Manifest = v
	}
	if v := os.Getenv("RESDEDUP_TITLE"); v != "" {
		cfg.Output.Title = v
	}

	if v := os.Getenv("RESDEDUP_HASH_ALGORITHM"); v != "" {
		cfg.Hash.Algorithm = v
	}
	if v := os.Getenv("RESDEDUP_HASH_WORKERS"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid RESDEDUP_HASH_WORKERS %q: %w", v, err)
		}
		cfg.Hash.Workers = &n
	}
	return applyBoolEnv("RESDEDUP_HASH_ALLOW_WEAK", &cfg.Hash.AllowWeak)
}

// splitAndTrim splits a comma-separated string and trims whitespace.
func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// applyBoolEnv applies a boolean environment variable to a pointer.
func applyBoolEnv(envVar string, target **bool) error {
	v := os.Getenv(envVar)
	if v == "" {
		return nil
	}
	switch strings.ToLower(v) {
	case "true", "1", "yes":
		t := true
		*target = &t
	case "false", "0", "no":
		f := false
		*target = &f
	default:
		return fmt.Errorf("invalid %s %q: want true or false", envVar, v)
	}
	return nil
}

// GetGlobalConfigPath returns the path to the global config file.
func GetGlobalConfigPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(configDir, GlobalConfigDir, "config.toml")
}

// GetProjectConfigPaths returns potential project config paths for a given directory.
func GetProjectConfigPaths(dir string) []string {
	return []string{
		filepath.Join(dir, ConfigDirName, "config.toml"),
		filepath.Join(dir, ConfigFileName),
	}
}
