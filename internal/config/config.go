// Package config loads the bellman command's settings with viper. Values come,
// lowest precedence first, from Default, a YAML config file, BELLMAN_*
// environment variables and bound command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"github.com/sw965/bellman/internal/logging"
	"github.com/sw965/bellman/mdp"
	"github.com/sw965/bellman/mdp/pi"
)

const EnvPrefix = "BELLMAN"

const (
	AlgorithmVI   = "vi"
	AlgorithmPI   = "pi"
	AlgorithmBoth = "both"
)

var (
	ErrUnknownAlgorithm = errors.New("config error: unknown algorithm")
	ErrNegativeCap      = errors.New("config error: caps must be non-negative")
)

type Config struct {
	Planner PlannerConfig `mapstructure:"planner"`
	Grid    GridConfig    `mapstructure:"grid"`
	Logging LoggingConfig `mapstructure:"logging"`
	Output  OutputConfig  `mapstructure:"output"`
}

type PlannerConfig struct {
	// Algorithm is "vi", "pi" or "both".
	Algorithm string  `mapstructure:"algorithm"`
	Gamma     float64 `mapstructure:"gamma"`
	Threshold float64 `mapstructure:"threshold"`
	// Rule is the policy-evaluation rule, "sum" or "max".
	Rule string `mapstructure:"rule"`
	// Zero means no cap.
	MaxSweeps     int `mapstructure:"max_sweeps"`
	MaxIterations int `mapstructure:"max_iterations"`
}

type GridConfig struct {
	// File is a YAML grid. Empty means the built-in demo grid.
	File string `mapstructure:"file"`
}

type LoggingConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"`
}

type OutputConfig struct {
	// Plain prints gonum matrices instead of the coloured grid.
	Plain bool `mapstructure:"plain"`
	// Chart is an HTML file for the convergence chart. Empty means none.
	Chart string `mapstructure:"chart"`
}

func Default() *Config {
	return &Config{
		Planner: PlannerConfig{
			Algorithm: AlgorithmBoth,
			Gamma:     mdp.DefaultGamma,
			Threshold: mdp.DefaultThreshold,
			Rule:      pi.WeightedSum.String(),
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   logging.LevelWarn,
			Format:  logging.FormatText,
		},
	}
}

// SetDefaults registers every key of Default with v, which also makes the
// keys visible to environment lookup.
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("planner.algorithm", defaults.Planner.Algorithm)
	v.SetDefault("planner.gamma", defaults.Planner.Gamma)
	v.SetDefault("planner.threshold", defaults.Planner.Threshold)
	v.SetDefault("planner.rule", defaults.Planner.Rule)
	v.SetDefault("planner.max_sweeps", defaults.Planner.MaxSweeps)
	v.SetDefault("planner.max_iterations", defaults.Planner.MaxIterations)

	v.SetDefault("grid.file", defaults.Grid.File)

	v.SetDefault("logging.enabled", defaults.Logging.Enabled)
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.format", defaults.Logging.Format)

	v.SetDefault("output.plain", defaults.Output.Plain)
	v.SetDefault("output.chart", defaults.Output.Chart)
}

// New returns a viper instance with defaults and environment lookup set up,
// and the config file read. An explicit cfgFile must exist. Without one,
// config.yaml is looked up in ConfigDir and the working directory and may be
// absent.
func New(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(ConfigDir())
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	// BELLMAN_PLANNER_GAMMA for planner.gamma
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.Planner.Algorithm) {
	case AlgorithmVI, AlgorithmPI, AlgorithmBoth:
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, c.Planner.Algorithm))
	}
	if err := mdp.CheckParams(c.Planner.Gamma, c.Planner.Threshold); err != nil {
		errs = append(errs, err)
	}
	if _, err := pi.ParseRule(c.Planner.Rule); err != nil {
		errs = append(errs, err)
	}
	if c.Planner.MaxSweeps < 0 || c.Planner.MaxIterations < 0 {
		errs = append(errs, fmt.Errorf("%w: max_sweeps=%d max_iterations=%d", ErrNegativeCap, c.Planner.MaxSweeps, c.Planner.MaxIterations))
	}
	if _, err := logging.New(nil, c.Logging.Format, c.Logging.Level, false); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ConfigDir returns $XDG_CONFIG_HOME/bellman, falling back to ~/.config/bellman.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "bellman")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".bellman"
	}
	return filepath.Join(home, ".config", "bellman")
}
