// Package config loads the CLI configuration: defaults, then an optional
// YAML file, then INTSOLVE_* environment variables, then validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/gitrdm/intsolve/internal/logging"
	"github.com/gitrdm/intsolve/pkg/oracle"
	"github.com/gitrdm/intsolve/pkg/solver"
)

// Config is the complete CLI configuration.
type Config struct {
	Solver  SolverConfig  `yaml:"solver"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Oracle  OracleConfig  `yaml:"oracle"`
	Store   StoreConfig   `yaml:"store"`
	Bench   BenchConfig   `yaml:"bench"`
}

// SolverConfig mirrors the solver options.
type SolverConfig struct {
	NodeLimit       int           `yaml:"node_limit" validate:"gte=0"`
	TimeLimit       time.Duration `yaml:"time_limit" validate:"gte=0"`
	MaxBranchValues int           `yaml:"max_branch_values" validate:"gte=2"`
	OptionLimit     int           `yaml:"option_limit" validate:"gte=1"`
	Reduce          bool          `yaml:"reduce"`
}

type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `yaml:"json"`
}

type MetricsConfig struct {
	// Addr is where /metrics is served; empty disables the endpoint.
	Addr string `yaml:"addr" validate:"omitempty,hostname_port"`
}

type OracleConfig struct {
	Precision float64 `yaml:"precision" validate:"gt=0"`
}

type StoreConfig struct {
	// Path of the run history database; empty disables history.
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
}

type BenchConfig struct {
	Workers int `yaml:"workers" validate:"gte=0"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Solver: SolverConfig{
			MaxBranchValues: 64,
			OptionLimit:     512,
		},
		Logging: LoggingConfig{Level: "info"},
		Oracle:  OracleConfig{Precision: oracle.DefaultPrecision},
	}
}

var validate = validator.New()

// Load reads path (if non-empty) over the defaults, applies the environment
// and validates the result. A missing file is an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the field constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s fails %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	ints := []struct {
		key string
		dst *int
	}{
		{"INTSOLVE_NODE_LIMIT", &c.Solver.NodeLimit},
		{"INTSOLVE_MAX_BRANCH_VALUES", &c.Solver.MaxBranchValues},
		{"INTSOLVE_OPTION_LIMIT", &c.Solver.OptionLimit},
		{"INTSOLVE_WORKERS", &c.Bench.Workers},
	}
	for _, e := range ints {
		if v := getenv(e.key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", e.key, err)
			}
			*e.dst = n
		}
	}
	if v := getenv("INTSOLVE_TIME_LIMIT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("INTSOLVE_TIME_LIMIT: %w", err)
		}
		c.Solver.TimeLimit = d
	}
	if v := getenv("INTSOLVE_REDUCE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("INTSOLVE_REDUCE: %w", err)
		}
		c.Solver.Reduce = b
	}
	if v := getenv("INTSOLVE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := getenv("INTSOLVE_LOG_JSON"); v != "" {
		c.Logging.JSON = v == "true" || v == "1"
	}
	if v := getenv("INTSOLVE_METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
	if v := getenv("INTSOLVE_DB"); v != "" {
		c.Store.Path = v
	}
	return nil
}

// SolverOptions converts the solver section into solver options.
func (c Config) SolverOptions() []solver.Option {
	return []solver.Option{
		solver.WithNodeLimit(c.Solver.NodeLimit),
		solver.WithTimeLimit(c.Solver.TimeLimit),
		solver.WithMaxBranchValues(c.Solver.MaxBranchValues),
		solver.WithOptionLimit(c.Solver.OptionLimit),
		solver.WithReduce(c.Solver.Reduce),
	}
}

// LoggerConfig converts the logging section for package logging.
func (c Config) LoggerConfig() logging.Config {
	return logging.Config{Level: c.Logging.Level, JSON: c.Logging.JSON, Service: "intsolve"}
}
