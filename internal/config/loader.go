package config

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/markerrig/internal/domain/marker"
)

// Environment variable names.
const (
	EnvConfigFile = "RIG_CONFIG"
	envPrefix     = "RIG_"
)

var logLevels = []string{"debug", "info", "warn", "error"} //nolint:gochecknoglobals // read-only

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if RIG_CONFIG is set
//  3. env (prefix RIG_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// RIG_MARKER_PORT -> marker_port. Underscores are kept so keys stay flat
	// and match the koanf tags.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	// A configured trial list replaces the defaults rather than merging
	// into them element by element.
	if k.Exists("trials") {
		cfg.Trials = nil
	}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.MarkerHost) == "":
		return invalid("marker_host must not be empty")
	case c.MarkerPort <= 0 || c.MarkerPort > 65535:
		return invalid("marker_port %d out of range", c.MarkerPort)
	case !slices.Contains(marker.BuiltinNames(), c.MarkerTable):
		return invalid("marker_table %q unknown (known: %v)", c.MarkerTable, marker.BuiltinNames())
	case !slices.Contains(logLevels, c.LogLevel):
		return invalid("log_level %q unknown", c.LogLevel)
	case len(c.Trials) == 0:
		return invalid("trials must not be empty")
	case c.OpenRestSec < 0 || c.CloseRestSec < 0:
		return invalid("rest durations must not be negative")
	case c.InterTrialDelayMS < 0 || c.FinishDelayMS < 0:
		return invalid("delays must not be negative")
	}
	for name, v := range c.MarkerOverrides {
		if v < 0 || v > 255 {
			return invalid("marker_overrides[%q] = %d does not fit a byte", name, v)
		}
	}
	for i, t := range c.Trials {
		if strings.TrimSpace(t.Media) == "" || strings.TrimSpace(t.Category) == "" {
			return invalid("trials[%d] needs media and category", i)
		}
	}
	if c.BCIEnabled {
		if !strings.HasPrefix(c.BCIURL, "ws://") && !strings.HasPrefix(c.BCIURL, "wss://") {
			return invalid("bci_url %q must be a ws:// or wss:// URL", c.BCIURL)
		}
		if c.BCIQueueSize <= 0 || c.BCITickMS <= 0 {
			return invalid("bci_queue_size and bci_tick_ms must be positive")
		}
	}
	if c.PlayerCommand == "" && c.PlayerFixedMS <= 0 {
		return invalid("player_fixed_ms must be positive when player_command is empty")
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
