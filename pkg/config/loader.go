package config

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"github.com/codeready-toolchain/tarsy/pkg/resumelog"
)

// Load resolves a Config from defaults, an optional YAML file at path, and
// environment variable overrides, in that precedence order (env wins),
// matching the teacher's Initialize/load entry-point shape.
func Load(path string) (*Config, error) {
	log := slog.With("component", "config", "path", path)

	cfg := Default()

	if path != "" {
		fileCfg, err := loadYAML(path)
		if err != nil {
			if os.IsNotExist(err) {
				log.Info("no config file found, using defaults")
			} else {
				return nil, err
			}
		} else if fileCfg != nil {
			if err := mergo.Merge(cfg, fileCfg, mergo.WithOverride); err != nil {
				return nil, fmt.Errorf("merging file config: %w", err)
			}
		}
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	stats := cfg.Stats()
	log.Info("configuration resolved",
		"enabled", stats.Enabled,
		"budget_total", stats.BudgetTotal,
		"resume_logs_enabled", stats.ResumeLogs,
		"storage_dir", stats.StorageDir,
		"keep_count", stats.KeepCount)

	return cfg, nil
}

// loadYAML reads and decodes the config file at path, rejecting any key
// outside the closed set of recognized options via yaml.v3's strict
// KnownFields decoding.
func loadYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data = ExpandEnv(data)

	var fileCfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fileCfg); err != nil {
		return nil, NewLoadError(path, fmt.Errorf("%w: %v", ErrInvalidYAML, err))
	}
	return &fileCfg, nil
}

// envVarPrefix is the prefix for all recognized environment overrides,
// matching the spec's CLAUDE_MPM_* naming.
const envVarPrefix = "CLAUDE_MPM_"

// applyEnvOverrides applies the closed set of recognized environment
// variables over cfg, highest precedence.
func applyEnvOverrides(cfg *Config) {
	if v, ok := os.LookupEnv(envVarPrefix + "BUDGET_TOTAL"); ok {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			cfg.BudgetTotal = uint32(n)
		} else {
			slog.Warn("ignoring invalid env override", "var", envVarPrefix+"BUDGET_TOTAL", "value", v)
		}
	}
	if v, ok := os.LookupEnv(envVarPrefix + "RESUME_LOGS_ENABLED"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.ResumeLogs.Enabled = b
		} else {
			slog.Warn("ignoring invalid env override", "var", envVarPrefix+"RESUME_LOGS_ENABLED", "value", v)
		}
	}
	if v, ok := os.LookupEnv(envVarPrefix + "RESUME_LOGS_MAX_TOKENS"); ok {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			cfg.ResumeLogs.MaxTokens = uint32(n)
		} else {
			slog.Warn("ignoring invalid env override", "var", envVarPrefix+"RESUME_LOGS_MAX_TOKENS", "value", v)
		}
	}
	if v, ok := os.LookupEnv(envVarPrefix + "RESUME_LOGS_STORAGE_DIR"); ok && strings.TrimSpace(v) != "" {
		cfg.ResumeLogs.StorageDir = v
	}
}

// sectionAllocationKeys returns the closed set of token_allocation.* keys,
// used by the validator to check for unknown section names.
func sectionAllocationKeys() []resumelog.SectionName {
	return resumelog.SectionOrder
}
